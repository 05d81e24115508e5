// Package scan decides which loaded units have source newer than the code
// that is running.
package scan

import (
	"context"
	"iter"
	"reflect"
	"sync"

	"graft/internal/logging"
	"graft/pkg/unit"
)

// Comparator reports whether u is stale. Implementations swallow their own
// I/O errors and answer false.
type Comparator func(ctx context.Context, u *unit.Unit) bool

// UnitSource supplies the units to scan when none are given explicitly.
type UnitSource interface {
	Units() []*unit.Unit
}

type comparatorRegistry struct {
	mu sync.RWMutex
	m  map[reflect.Type]Comparator
}

func newComparatorRegistry() *comparatorRegistry {
	return &comparatorRegistry{m: make(map[reflect.Type]Comparator)}
}

func (r *comparatorRegistry) set(t reflect.Type, fn Comparator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.m, t)
		return
	}
	r.m[t] = fn
}

func (r *comparatorRegistry) get(t reflect.Type) (Comparator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.m[t]
	return fn, ok
}

var defaults = newComparatorRegistry()

// RegisterComparator installs fn process-wide for loaders whose concrete type
// is loaderType. A nil fn removes the entry.
func RegisterComparator(loaderType reflect.Type, fn Comparator) {
	defaults.set(loaderType, fn)
}

// RegisterComparatorFor is RegisterComparator keyed by a type parameter.
func RegisterComparatorFor[L unit.Loader](fn Comparator) {
	RegisterComparator(reflect.TypeFor[L](), fn)
}

// LookupComparator returns the process-wide comparator for loaderType.
func LookupComparator(loaderType reflect.Type) (Comparator, bool) {
	return defaults.get(loaderType)
}

// Scanner finds stale units.
type Scanner struct {
	source UnitSource
	local  *comparatorRegistry
}

// NewScanner creates a scanner over source. source may be nil if Scan is
// always given explicit units.
func NewScanner(source UnitSource) *Scanner {
	return &Scanner{source: source, local: newComparatorRegistry()}
}

// RegisterComparator installs fn on this scanner only. Local comparators
// take precedence over process-wide ones.
func (s *Scanner) RegisterComparator(loaderType reflect.Type, fn Comparator) {
	s.local.set(loaderType, fn)
}

// Scan yields the stale units among units. Called with no units at all
// (a nil slice) it checks every unit in the source; an explicitly empty
// slice yields nothing. Units are checked lazily as the sequence is
// consumed, and checking stops early if ctx is done.
func (s *Scanner) Scan(ctx context.Context, units ...*unit.Unit) iter.Seq[*unit.Unit] {
	return func(yield func(*unit.Unit) bool) {
		candidates := units
		if candidates == nil && s.source != nil {
			candidates = s.source.Units()
		}
		for _, u := range candidates {
			if ctx.Err() != nil {
				return
			}
			if !s.IsStale(ctx, u) {
				continue
			}
			logging.ScanDebug("unit %s is stale", u.Name)
			if !yield(u) {
				return
			}
		}
	}
}

// IsStale is the single-unit decision behind Scan.
func (s *Scanner) IsStale(ctx context.Context, u *unit.Unit) bool {
	if u == nil || u.Loader == nil {
		return false
	}
	if nc, ok := u.Loader.(unit.NewerChecker); ok {
		return nc.CheckNewer(u)
	}
	t := reflect.TypeOf(u.Loader)
	if fn, ok := s.local.get(t); ok {
		return fn(ctx, u)
	}
	if fn, ok := defaults.get(t); ok {
		return fn(ctx, u)
	}
	return false
}
