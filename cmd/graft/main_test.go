package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mathUnit = `import "graft/pkg/unit"

func Load(s *unit.Scope) error {
	s.Def("add", func(args ...any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	})
	return nil
}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	t.Cleanup(func() { scriptDir = "" })
	err := rootCmd.Execute()
	return out.String(), err
}

func writeUnit(t *testing.T, dir, rel, src string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSplitTarget(t *testing.T) {
	u, fn, err := splitTarget("lib.math.add")
	require.NoError(t, err)
	assert.Equal(t, "lib.math", u)
	assert.Equal(t, "add", fn)

	for _, bad := range []string{"add", ".add", "lib."} {
		_, _, err := splitTarget(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseArgs(t *testing.T) {
	got, err := parseArgs([]string{"3", "2.5", "true", "hello", ""})
	require.NoError(t, err)
	assert.Equal(t, []any{3, 2.5, true, "hello", ""}, got)
}

func TestCallCommand(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "lib/math.go", mathUnit, time.Now().Add(-time.Hour))

	out, err := execute(t, "call", "--dir", dir, "lib.math.add", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))
}

func TestCallCommand_RequiresDir(t *testing.T) {
	_, err := execute(t, "call", "lib.math.add")
	assert.Error(t, err)
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()
	past := time.Now().Add(-time.Hour)
	path := writeUnit(t, dir, "lib/math.go", mathUnit, past)

	out, err := execute(t, "scan", "--dir", dir)
	require.NoError(t, err)
	assert.Regexp(t, `lib\.math\s+new`, out)

	_, err = execute(t, "call", "--dir", dir, "lib.math.add", "1", "1")
	require.NoError(t, err)

	out, err = execute(t, "scan", "--dir", dir)
	require.NoError(t, err)
	assert.Regexp(t, `lib\.math\s+fresh`, out)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
	out, err = execute(t, "scan", "--dir", dir)
	require.NoError(t, err)
	assert.Regexp(t, `lib\.math\s+touched`, out)

	writeUnit(t, dir, "lib/math.go", strings.Replace(mathUnit, "+", "-", 1), future)
	out, err = execute(t, "scan", "--dir", dir)
	require.NoError(t, err)
	assert.Regexp(t, `lib\.math\s+stale`, out)
}
