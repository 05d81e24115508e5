package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "graft" {
		t.Errorf("expected Name=graft, got %s", cfg.Name)
	}
	if !cfg.Refresh.Mutate {
		t.Errorf("expected Refresh.Mutate=true by default")
	}
	if cfg.Script.Extension != ".go" {
		t.Errorf("expected Extension=.go, got %s", cfg.Script.Extension)
	}
	assert.Contains(t, cfg.Script.AllowedImports, UnitImportPath)
	assert.NotContains(t, cfg.Script.AllowedImports, "os/exec")
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("GRAFT_SCRIPT_DIR", "")
	t.Setenv("GRAFT_ARTIFACT_DIR", "")
	t.Setenv("GRAFT_LOG_LEVEL", "")
	t.Setenv("GRAFT_DEBOUNCE", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "graft.yaml")

	cfg := DefaultConfig()
	cfg.Script.Dir = "/srv/units"
	cfg.Refresh.Mutate = false
	cfg.Watch.Debounce = "1s"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assert.Equal(t, "/srv/units", loaded.Script.Dir)
	assert.False(t, loaded.Refresh.Mutate)
	assert.Equal(t, time.Second, loaded.GetDebounce())
}

func TestConfig_LoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GRAFT_SCRIPT_DIR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Name, cfg.Name)
}

func TestConfig_LoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("script: [unterminated"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

// =============================================================================
// DURATIONS / VALIDATION
// =============================================================================

func TestConfig_DurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Watch.Debounce = "soon"
	cfg.Watch.PollInterval = ""
	cfg.Refresh.Timeout = "forever"

	assert.Equal(t, 300*time.Millisecond, cfg.GetDebounce())
	assert.Equal(t, 100*time.Millisecond, cfg.GetPollInterval())
	assert.Equal(t, 30*time.Second, cfg.GetRefreshTimeout())

	cfg.Refresh.Timeout = ""
	assert.Equal(t, time.Duration(0), cfg.GetRefreshTimeout())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"extension without dot", func(c *Config) { c.Script.Extension = "go" }, true},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "fast" }, true},
		{"bad timeout", func(c *Config) { c.Refresh.Timeout = "1parsec" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScriptConfig_ResolveArtifactDir(t *testing.T) {
	s := ScriptConfig{}
	assert.Equal(t, "", s.ResolveArtifactDir())

	s.Dir = "/srv/units"
	assert.Equal(t, filepath.Join("/srv/units", ".graft"), s.ResolveArtifactDir())

	s.ArtifactDir = "/cache"
	assert.Equal(t, "/cache", s.ResolveArtifactDir())
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	assert.False(t, c.IsCategoryEnabled("scan"))

	c.DebugMode = true
	assert.True(t, c.IsCategoryEnabled("scan"))

	c.Categories = map[string]bool{"scan": false}
	assert.False(t, c.IsCategoryEnabled("scan"))
	assert.True(t, c.IsCategoryEnabled("watch"))
}
