package scan

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
	"time"

	"graft/internal/host"
	"graft/pkg/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

// fileLoader has no CheckNewer, so staleness comes from comparators.
type fileLoader struct{}

func (fileLoader) Exec(unit.Env, *unit.Unit) error { return nil }

// otherLoader is never registered.
type otherLoader struct{}

func (*otherLoader) Exec(unit.Env, *unit.Unit) error { return nil }

type staticSource []*unit.Unit

func (s staticSource) Units() []*unit.Unit { return s }

func names(seq func(func(*unit.Unit) bool)) []string {
	var out []string
	for u := range seq {
		out = append(out, u.Name)
	}
	return out
}

func writeFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestScan_NoLoaderIsNeverStale(t *testing.T) {
	s := NewScanner(nil)
	assert.Empty(t, names(s.Scan(context.Background(), unit.New("a", nil))))
	assert.False(t, s.IsStale(context.Background(), nil))
}

func TestScan_DelegatesToNewerChecker(t *testing.T) {
	ctx := context.Background()
	mem := host.NewMemoryLoader()
	h := host.New(nil, mem)
	mem.Define("a", func(*unit.Scope) error { return nil })
	mem.Define("b", func(*unit.Scope) error { return nil })
	a, err := h.Import(ctx, "a")
	require.NoError(t, err)
	_, err = h.Import(ctx, "b")
	require.NoError(t, err)

	s := NewScanner(h.Registry())
	assert.Empty(t, names(s.Scan(ctx)))

	mem.Define("b", func(*unit.Scope) error { return nil })
	assert.Equal(t, []string{"b"}, names(s.Scan(ctx)))
	assert.Empty(t, names(s.Scan(ctx, a)))
	assert.Empty(t, names(s.Scan(ctx, []*unit.Unit{}...)), "an empty list is not \"all units\"")
	var none []*unit.Unit
	assert.Equal(t, []string{"b"}, names(s.Scan(ctx, none...)))
}

func TestScan_UnknownLoaderTypeIsFresh(t *testing.T) {
	s := NewScanner(nil)
	u := unit.New("a", &otherLoader{})
	assert.False(t, s.IsStale(context.Background(), u))
}

func TestScan_LocalComparatorOverridesDefault(t *testing.T) {
	lt := reflect.TypeFor[fileLoader]()
	RegisterComparator(lt, func(context.Context, *unit.Unit) bool { return false })
	t.Cleanup(func() { RegisterComparator(lt, nil) })

	u := unit.New("a", fileLoader{})
	plain := NewScanner(nil)
	assert.False(t, plain.IsStale(context.Background(), u))

	local := NewScanner(nil)
	local.RegisterComparator(lt, func(context.Context, *unit.Unit) bool { return true })
	assert.True(t, local.IsStale(context.Background(), u))

	_, ok := LookupComparator(lt)
	assert.True(t, ok)
}

func TestRegisterComparatorFor(t *testing.T) {
	RegisterComparatorFor[*otherLoader](func(context.Context, *unit.Unit) bool { return true })
	t.Cleanup(func() { RegisterComparator(reflect.TypeFor[*otherLoader](), nil) })

	s := NewScanner(nil)
	assert.True(t, s.IsStale(context.Background(), unit.New("a", &otherLoader{})))
}

func TestScan_IsLazyAndStopsEarly(t *testing.T) {
	checked := 0
	s := NewScanner(nil)
	s.RegisterComparator(reflect.TypeFor[fileLoader](), func(context.Context, *unit.Unit) bool {
		checked++
		return true
	})
	units := []*unit.Unit{unit.New("a", fileLoader{}), unit.New("b", fileLoader{}), unit.New("c", fileLoader{})}

	seq := s.Scan(context.Background(), units...)
	assert.Equal(t, 0, checked)

	for range seq {
		break
	}
	assert.Equal(t, 1, checked)
}

func TestScan_SourceIsReadAtIteration(t *testing.T) {
	s := NewScanner(nil)
	s.RegisterComparator(reflect.TypeFor[fileLoader](), func(context.Context, *unit.Unit) bool { return true })
	src := &staticSource{}
	s.source = src

	seq := s.Scan(context.Background())
	*src = append(*src, unit.New("late", fileLoader{}))
	assert.Equal(t, []string{"late"}, names(seq))
}

func TestScan_CancelledContextYieldsNothing(t *testing.T) {
	s := NewScanner(nil)
	s.RegisterComparator(reflect.TypeFor[fileLoader](), func(context.Context, *unit.Unit) bool { return true })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, names(s.Scan(ctx, unit.New("a", fileLoader{}))))
}

// =============================================================================
// SOURCE FILE COMPARATOR
// =============================================================================

func TestSourceFileComparator(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.go")
	art := filepath.Join(dir, "cache", "a.graftc")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	cmp := SourceFileComparator(afs.New())
	ctx := context.Background()

	u := unit.New("a", fileLoader{})
	assert.False(t, cmp(ctx, u), "no paths")

	u.SetSource(src)
	u.SetArtifact(art)
	assert.False(t, cmp(ctx, u), "missing files")

	writeFile(t, src, base)
	assert.False(t, cmp(ctx, u), "missing artifact")

	writeFile(t, art, base)
	assert.False(t, cmp(ctx, u), "equal mtimes")

	touched := base.Add(2 * time.Second)
	require.NoError(t, os.Chtimes(src, touched, touched))
	assert.True(t, cmp(ctx, u), "source newer")

	require.NoError(t, os.Chtimes(art, touched.Add(time.Second), touched.Add(time.Second)))
	assert.False(t, cmp(ctx, u), "artifact newer")
}

func TestSourceFileComparator_ThroughScanner(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	var units []*unit.Unit
	for _, name := range []string{"a", "b", "c"} {
		u := unit.New(name, fileLoader{})
		u.SetSource(filepath.Join(dir, name+".go"))
		u.SetArtifact(filepath.Join(dir, name+".graftc"))
		writeFile(t, u.Source(), base)
		writeFile(t, u.Artifact(), base)
		units = append(units, u)
	}

	s := NewScanner(staticSource(units))
	s.RegisterComparator(reflect.TypeFor[fileLoader](), SourceFileComparator(afs.New()))
	ctx := context.Background()

	assert.Empty(t, names(s.Scan(ctx)))

	later := base.Add(5 * time.Second)
	require.NoError(t, os.Chtimes(units[1].Source(), later, later))
	got := names(s.Scan(ctx))
	assert.True(t, slices.Equal([]string{"b"}, got), "got %v", got)
}
