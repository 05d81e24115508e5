// Package graft is the embedding surface: it wires the host, change scanner,
// mutation engine and reload orchestrator into one Engine.
//
//	eng, _ := graft.New(config.DefaultConfig())
//	eng.Define("a", func(s *unit.Scope) error { ... })
//	u, _ := eng.Import(ctx, "a")
//	...
//	report, err := eng.Refresh(ctx, nil)
package graft

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	"graft/internal/config"
	"graft/internal/host"
	"graft/internal/logging"
	"graft/internal/mutate"
	"graft/internal/refresh"
	"graft/internal/scan"
	"graft/internal/script"
	"graft/internal/watch"
	"graft/pkg/unit"

	"github.com/viant/afs"
)

type (
	Batch         = refresh.Batch
	Report        = refresh.Report
	RefreshOption = refresh.Option
	Comparator    = scan.Comparator
	Body          = host.Body
)

// WithMutate selects in-place mutation for one Refresh call.
var WithMutate = refresh.WithMutate

// RegisterComparator installs a process-wide staleness comparator for units
// whose loader has the given dynamic type. A nil fn removes it.
func RegisterComparator(loaderType reflect.Type, fn Comparator) {
	scan.RegisterComparator(loaderType, fn)
}

type options struct {
	finders []host.Finder
	fs      afs.Service
}

// Option configures New.
type Option func(*options)

// WithFinder adds a unit finder consulted before the built-in ones.
func WithFinder(f host.Finder) Option {
	return func(o *options) { o.finders = append(o.finders, f) }
}

// WithFileSystem sets the storage service the script loader reads and writes
// through. Staleness checks for script units stat through it too.
func WithFileSystem(fs afs.Service) Option {
	return func(o *options) { o.fs = fs }
}

// Engine is a wired graft instance.
type Engine struct {
	cfg     *config.Config
	host    *host.Host
	memory  *host.MemoryLoader
	script  *script.Loader
	scanner *scan.Scanner
	mutator *mutate.Engine
	orch    *refresh.Orchestrator
}

// New builds an engine from cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		cfg:     cfg,
		memory:  host.NewMemoryLoader(),
		mutator: mutate.NewEngine(),
	}
	finders := append(o.finders, e.memory)

	fs := o.fs
	if fs == nil {
		fs = afs.New()
	}
	if cfg.Script.Dir != "" {
		sl, err := script.NewLoader(cfg.Script, fs)
		if err != nil {
			return nil, err
		}
		e.script = sl
		finders = append(finders, sl)
	}

	e.host = host.New(nil, finders...)
	e.scanner = scan.NewScanner(e.host.Registry())
	if e.script != nil {
		// Stat through the same service the loader reads and writes.
		e.scanner.RegisterComparator(reflect.TypeFor[*script.Loader](), scan.SourceFileComparator(fs))
	}
	e.orch = refresh.New(e.host, e.scanner, e.mutator)

	logging.Boot("engine ready (script dir %q, mutate=%v)", cfg.Script.Dir, cfg.Refresh.Mutate)
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Host returns the underlying host.
func (e *Engine) Host() *host.Host { return e.host }

// Registry returns the loaded-unit registry.
func (e *Engine) Registry() *host.Registry { return e.host.Registry() }

// Memory returns the in-process loader used by Define.
func (e *Engine) Memory() *host.MemoryLoader { return e.memory }

// Script returns the script loader, or nil when no script dir is configured.
func (e *Engine) Script() *script.Loader { return e.script }

// Mutator returns the mutation engine, whose Stats accumulate across cycles.
func (e *Engine) Mutator() *mutate.Engine { return e.mutator }

// Running reports whether a refresh cycle is in progress.
func (e *Engine) Running() bool { return e.orch.Running() }

// Define registers (or replaces) an in-process unit body.
func (e *Engine) Define(name string, body Body) { e.memory.Define(name, body) }

// Import loads name through the host, returning the registered unit if present.
func (e *Engine) Import(ctx context.Context, name string) (*unit.Unit, error) {
	return e.host.Import(ctx, name)
}

// ImportAll imports each name in order.
func (e *Engine) ImportAll(ctx context.Context, names ...string) ([]*unit.Unit, error) {
	units := make([]*unit.Unit, 0, len(names))
	for _, name := range names {
		u, err := e.Import(ctx, name)
		if err != nil {
			return units, err
		}
		units = append(units, u)
	}
	return units, nil
}

// Scan yields the stale units among units, or among all loaded units when
// called without any. An explicitly empty slice yields nothing.
func (e *Engine) Scan(ctx context.Context, units ...*unit.Unit) iter.Seq[*unit.Unit] {
	return e.scanner.Scan(ctx, units...)
}

// IsStale reports whether u has newer source than what is running.
func (e *Engine) IsStale(ctx context.Context, u *unit.Unit) bool {
	return e.scanner.IsStale(ctx, u)
}

// RegisterComparator installs a comparator for this engine only.
func (e *Engine) RegisterComparator(loaderType reflect.Type, fn Comparator) {
	e.scanner.RegisterComparator(loaderType, fn)
}

// Refresh reloads batch, or every stale unit when batch is nil. Mutation
// defaults to the configured refresh.mutate; opts override it. The configured
// refresh timeout bounds the cycle.
func (e *Engine) Refresh(ctx context.Context, batch Batch, opts ...RefreshOption) (*Report, error) {
	if d := e.cfg.GetRefreshTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	all := append([]RefreshOption{refresh.WithMutate(e.cfg.Refresh.Mutate)}, opts...)
	return e.orch.Refresh(ctx, batch, all...)
}

// RefreshUnits reloads the named loaded units.
func (e *Engine) RefreshUnits(ctx context.Context, names ...string) (*Report, error) {
	batch := make(Batch, len(names))
	reg := e.Registry()
	for _, name := range names {
		u, ok := reg.Lookup(name)
		if !ok {
			return nil, &host.UnitNotFoundError{Name: name}
		}
		batch[name] = u
	}
	return e.Refresh(ctx, batch)
}

// Watch creates a watcher over the script directory that refreshes this
// engine. The caller starts and stops it.
func (e *Engine) Watch(onReport func(*Report, error)) (*watch.Watcher, error) {
	if e.script == nil {
		return nil, fmt.Errorf("watch requires script.dir")
	}
	opts := watch.OptionsFrom(e.cfg)
	opts.OnReport = onReport
	return watch.New(e.script.Dir(), e, opts)
}
