package config

// WatchConfig controls the filesystem watcher.
type WatchConfig struct {
	// Debounce is how long a path must be quiet before it triggers a refresh.
	Debounce string `yaml:"debounce" json:"debounce,omitempty"`
	// PollInterval is how often pending events are checked.
	PollInterval string `yaml:"poll_interval" json:"poll_interval,omitempty"`
	// Extensions limits which files trigger refreshes. Empty means the script extension.
	Extensions []string `yaml:"extensions" json:"extensions,omitempty"`
	// IgnorePatterns skips matching directory names.
	IgnorePatterns []string `yaml:"ignore_patterns" json:"ignore_patterns,omitempty"`
}

// DefaultWatchConfig returns defaults for the watcher.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Debounce:     "300ms",
		PollInterval: "100ms",
		IgnorePatterns: []string{
			".git",
			".graft",
			"node_modules",
			"vendor",
		},
	}
}
