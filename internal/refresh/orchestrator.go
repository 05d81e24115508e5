// Package refresh reloads stale units in dependency order through the host's
// own import pathway, optionally mutating the old definitions in place.
package refresh

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"graft/internal/host"
	"graft/internal/logging"
	"graft/internal/mutate"
	"graft/internal/scan"
	"graft/pkg/unit"
)

var _ host.ClassInterceptor = (*mutate.ClassScope)(nil)

// Batch maps unit names to the units to reload.
type Batch map[string]*unit.Unit

// BatchOf builds a batch keyed by each unit's name.
func BatchOf(units ...*unit.Unit) Batch {
	b := make(Batch, len(units))
	for _, u := range units {
		b[u.Name] = u
	}
	return b
}

// Names returns the batch names in sorted order.
func (b Batch) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type options struct {
	mutate bool
}

// Option configures a single Refresh call.
type Option func(*options)

// WithMutate selects in-place mutation (true, the default) or plain
// replacement of definitions (false).
func WithMutate(on bool) Option {
	return func(o *options) { o.mutate = on }
}

// Orchestrator runs refresh cycles. One cycle runs at a time.
type Orchestrator struct {
	host    *host.Host
	scanner *scan.Scanner
	engine  *mutate.Engine

	running atomic.Bool
}

// New creates an orchestrator. A nil scanner scans the host's registry and
// a nil engine gets a fresh one.
func New(h *host.Host, s *scan.Scanner, e *mutate.Engine) *Orchestrator {
	if s == nil {
		s = scan.NewScanner(h.Registry())
	}
	if e == nil {
		e = mutate.NewEngine()
	}
	return &Orchestrator{host: h, scanner: s, engine: e}
}

// Running reports whether a cycle is in progress.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// Refresh reloads batch, or every stale unit when batch is nil.
//
// Every member must be the unit currently registered under its name; the
// check happens before anything is evicted. Members are then evicted and
// imported in sorted name order with an import hook installed, so a member
// imported by another member's body is reloaded at that point, ahead of its
// dependent. On error the report lists what was processed and what remains;
// remaining members stay evicted.
func (o *Orchestrator) Refresh(ctx context.Context, batch Batch, opts ...Option) (*Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer o.running.Store(false)

	cfg := options{mutate: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if batch == nil {
		batch = Batch{}
		for u := range o.scanner.Scan(ctx) {
			batch[u.Name] = u
		}
	}

	names := batch.Names()
	report := newReport(cfg.mutate, names)
	log := logging.Get(logging.CategoryRefresh).With("cycle", report.ID)

	reg := o.host.Registry()
	for _, name := range names {
		u := batch[name]
		registered, ok := reg.Lookup(name)
		if u == nil || u.Name != name || !ok || registered != u {
			report.finish(names)
			return report, &BatchMismatchError{Name: name}
		}
	}

	if len(names) == 0 {
		report.finish(nil)
		log.Debug("nothing to refresh")
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		report.finish(names)
		return report, err
	}
	log.Info("refreshing %d unit(s): %v (mutate=%v)", len(names), names, cfg.mutate)

	for _, name := range names {
		reg.Delete(name)
	}

	hook := &importHook{
		engine:    o.engine,
		registry:  reg,
		mutate:    cfg.mutate,
		remaining: make(Batch, len(batch)),
		report:    report,
	}
	for name, u := range batch {
		hook.remaining[name] = u
	}

	lc := o.host.NewContext(ctx)
	release, err := lc.InstallImportHook(hook)
	if err != nil {
		report.finish(hook.pending())
		return report, err
	}
	defer release()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			report.finish(hook.pending())
			log.Warn("refresh cancelled with %d unit(s) remaining", len(report.Remaining))
			return report, err
		}
		if _, err := lc.Import(name); err != nil {
			report.finish(hook.pending())
			log.Error("refresh failed: %v", err)
			return report, err
		}
	}

	report.finish(nil)
	log.Info("refreshed %v in %s (%d transplanted, %d types mutated)",
		report.Processed, report.Duration(), report.Stats.Transplanted, report.Stats.TypesMutated)
	return report, nil
}

// importHook routes imports of batch members to a reload of the existing
// unit; everything else goes down the normal pathway.
type importHook struct {
	engine   *mutate.Engine
	registry *host.Registry
	mutate   bool
	report   *Report

	mu        sync.Mutex
	remaining Batch
}

func (h *importHook) take(name string) (*unit.Unit, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u, ok := h.remaining[name]
	if ok {
		delete(h.remaining, name)
	}
	return u, ok
}

func (h *importHook) pending() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.remaining.Names()
}

func (h *importHook) Import(lc *host.LoadContext, name string, next host.ImportFunc) (*unit.Unit, error) {
	u, ok := h.take(name)
	if !ok {
		return next(lc, name)
	}
	h.registry.Insert(u)

	if !h.mutate {
		if err := lc.Reload(u); err != nil {
			return nil, &ReloadError{Unit: name, Err: err}
		}
		h.report.processed(name, mutate.Stats{})
		return u, nil
	}

	snap := h.engine.CaptureNamespace(u)
	scope := h.engine.NewClassScope(u.Name, snap.Types(u.Name))
	if err := h.reloadScoped(lc, u, scope); err != nil {
		return nil, &ReloadError{Unit: name, Err: err}
	}

	st := h.engine.ReconcileFunctions(snap, u.Namespace())
	st.Add(scope.Stats())
	h.report.processed(name, st)
	logging.MutateDebug("%s: %d transplanted, %d closures skipped, %d types mutated",
		name, st.Transplanted, st.SkippedClosures, st.TypesMutated)
	return u, nil
}

func (h *importHook) reloadScoped(lc *host.LoadContext, u *unit.Unit, scope *mutate.ClassScope) error {
	release := lc.PushClassScope(scope)
	defer release()
	return lc.Reload(u)
}
