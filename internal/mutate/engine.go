package mutate

import (
	"sync"

	"graft/internal/logging"
	"graft/pkg/unit"
)

// Engine wraps the reconciliation functions and keeps running totals.
type Engine struct {
	mu    sync.Mutex
	stats Stats
}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) CaptureNamespace(u *unit.Unit) Snapshot {
	return CaptureNamespace(u)
}

// ReconcileFunctions runs the package-level ReconcileFunctions and records
// the result.
func (e *Engine) ReconcileFunctions(old Snapshot, newNS *unit.Namespace) Stats {
	st := ReconcileFunctions(old, newNS)
	e.record(st)
	return st
}

// NewClassScope returns a scope owned by module that reuses oldTypes for
// matching class requests.
func (e *Engine) NewClassScope(module string, oldTypes []*unit.Type) *ClassScope {
	return &ClassScope{engine: e, module: module, oldTypes: oldTypes}
}

// Stats returns totals since the engine was created.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) record(st Stats) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.stats.Add(st)
	e.mu.Unlock()
}

// ClassScope claims class requests that match a pre-existing type and
// mutates that type in place instead of building a new one.
//
// A scope with a module only sees requests from that unit; requests from
// other units (dependencies loaded while it is active) pass through
// untouched and uncounted. An empty module sees every request.
type ClassScope struct {
	engine   *Engine
	module   string
	oldTypes []*unit.Type

	mu    sync.Mutex
	stats Stats
}

// NewClassScope is the engine-less form of Engine.NewClassScope.
func NewClassScope(module string, oldTypes []*unit.Type) *ClassScope {
	return &ClassScope{module: module, oldTypes: oldTypes}
}

// InterceptClass implements host.ClassInterceptor.
func (cs *ClassScope) InterceptClass(req *unit.ClassRequest, ns *unit.Namespace) (*unit.Type, bool) {
	if cs.module != "" && req.Module != cs.module {
		return nil, false
	}
	if req.IsClosure() || req.Meta != nil {
		cs.add(Stats{TypesDeclined: 1})
		logging.MutateDebug("declining class %s (closure or custom meta)", req.QualName)
		return nil, false
	}

	key := req.MatchKey()
	for _, old := range cs.oldTypes {
		if old.IsClosure() || old.Key() != key {
			continue
		}
		// Scopes nest across units; only claim types of the requesting unit.
		if req.Module != "" && old.Module() != req.Module {
			continue
		}
		st := MutateType(old, ns)
		cs.add(st)
		logging.MutateDebug("mutated class %s in place (%d methods transplanted)", old.QualName(), st.Transplanted)
		return old, true
	}
	return nil, false
}

// Stats returns what this scope did.
func (cs *ClassScope) Stats() Stats {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.stats
}

func (cs *ClassScope) add(st Stats) {
	cs.mu.Lock()
	cs.stats.Add(st)
	cs.mu.Unlock()
	cs.engine.record(st)
}
