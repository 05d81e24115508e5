package config

import "path/filepath"

// ScriptConfig configures interpreted source units.
type ScriptConfig struct {
	// Dir is the root that unit names resolve against ("a.b" -> Dir/a/b.go).
	Dir string `yaml:"dir" json:"dir,omitempty"`

	// ArtifactDir receives one compiled artifact per executed unit.
	ArtifactDir string `yaml:"artifact_dir" json:"artifact_dir,omitempty"`

	// Extension of unit source files.
	Extension string `yaml:"extension" json:"extension,omitempty"`

	// AllowedImports whitelists packages unit source may import.
	AllowedImports []string `yaml:"allowed_imports" json:"allowed_imports,omitempty"`
}

// UnitImportPath is the import path unit source uses for the scope API.
const UnitImportPath = "graft/pkg/unit"

// DefaultScriptConfig returns defaults for interpreted units.
func DefaultScriptConfig() ScriptConfig {
	return ScriptConfig{
		Extension: ".go",
		AllowedImports: []string{
			UnitImportPath,
			// Safe stdlib packages
			"bytes",
			"encoding/base64",
			"encoding/json",
			"errors",
			"fmt",
			"math",
			"path",
			"path/filepath",
			"regexp",
			"sort",
			"strconv",
			"strings",
			"time",

			// EXPLICITLY BLOCKED:
			// "os", "os/exec", "net", "net/http", "syscall", "unsafe"
		},
	}
}

// ResolveArtifactDir defaults ArtifactDir to Dir/.graft when unset.
func (s *ScriptConfig) ResolveArtifactDir() string {
	if s.ArtifactDir != "" || s.Dir == "" {
		return s.ArtifactDir
	}
	return filepath.Join(s.Dir, ".graft")
}
