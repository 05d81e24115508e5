// Package logging provides categorized logging on top of zap.
// When debug_mode is false every logger is a no-op.
package logging

import (
	"fmt"
	"sync"

	"graft/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a logging category.
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config
	CategoryHost    Category = "host"    // Unit registry, imports, class construction
	CategoryScan    Category = "scan"    // Staleness detection
	CategoryMutate  Category = "mutate"  // In-place reconciliation
	CategoryRefresh Category = "refresh" // Refresh cycles
	CategoryScript  Category = "script"  // Interpreted unit loading
	CategoryWatch   Category = "watch"   // Filesystem watcher
)

// Logger writes to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	base     *zap.Logger
	settings config.LoggingConfig
	configMu sync.RWMutex
)

// Initialize builds the zap logger described by cfg.
func Initialize(cfg config.LoggingConfig) error {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
	}

	z, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	install(z, cfg)
	return nil
}

// InitializeWithCore installs a logger writing to core. Used by embedders
// that already own a zap pipeline.
func InitializeWithCore(core zapcore.Core, cfg config.LoggingConfig) {
	install(zap.New(core), cfg)
}

func install(z *zap.Logger, cfg config.LoggingConfig) {
	configMu.Lock()
	old := base
	base = z
	settings = cfg
	configMu.Unlock()

	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()

	if old != nil {
		_ = old.Sync()
	}
}

// IsDebugMode returns the master toggle.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	configMu.RLock()
	z := base
	configMu.RUnlock()
	if z == nil || !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    z.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// With returns a logger that attaches key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// StructuredLog logs msg with fields at the given level.
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.sugar == nil {
		return
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	switch level {
	case "debug":
		l.sugar.Debugw(msg, kv...)
	case "warn":
		l.sugar.Warnw(msg, kv...)
	case "error":
		l.sugar.Errorw(msg, kv...)
	default:
		l.sugar.Infow(msg, kv...)
	}
}

// CloseAll flushes the logger and drops cached category loggers (call at shutdown).
func CloseAll() {
	configMu.Lock()
	z := base
	base = nil
	configMu.Unlock()

	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()

	if z != nil {
		_ = z.Sync()
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Host(format string, args ...interface{})      { Get(CategoryHost).Info(format, args...) }
func HostDebug(format string, args ...interface{}) { Get(CategoryHost).Debug(format, args...) }

func Scan(format string, args ...interface{})      { Get(CategoryScan).Info(format, args...) }
func ScanDebug(format string, args ...interface{}) { Get(CategoryScan).Debug(format, args...) }

func Mutate(format string, args ...interface{})      { Get(CategoryMutate).Info(format, args...) }
func MutateDebug(format string, args ...interface{}) { Get(CategoryMutate).Debug(format, args...) }

func Refresh(format string, args ...interface{})      { Get(CategoryRefresh).Info(format, args...) }
func RefreshDebug(format string, args ...interface{}) { Get(CategoryRefresh).Debug(format, args...) }
func RefreshWarn(format string, args ...interface{})  { Get(CategoryRefresh).Warn(format, args...) }

func Script(format string, args ...interface{})      { Get(CategoryScript).Info(format, args...) }
func ScriptDebug(format string, args ...interface{}) { Get(CategoryScript).Debug(format, args...) }
func ScriptWarn(format string, args ...interface{})  { Get(CategoryScript).Warn(format, args...) }

func Watch(format string, args ...interface{})      { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debug(format, args...) }
func WatchError(format string, args ...interface{}) { Get(CategoryWatch).Error(format, args...) }

// Sync flushes buffered entries.
func Sync() {
	configMu.RLock()
	z := base
	configMu.RUnlock()
	if z != nil {
		_ = z.Sync()
	}
}
