// Package mutate reconciles freshly executed definitions into the objects
// that existed before a reload, so references held elsewhere pick up the new
// behavior without changing identity.
package mutate

import (
	"graft/internal/logging"
	"graft/pkg/unit"
)

// Stats counts what a reconciliation did.
type Stats struct {
	Transplanted    int `json:"transplanted"`
	SkippedClosures int `json:"skipped_closures"`
	TypesMutated    int `json:"types_mutated"`
	TypesDeclined   int `json:"types_declined"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Transplanted += o.Transplanted
	s.SkippedClosures += o.SkippedClosures
	s.TypesMutated += o.TypesMutated
	s.TypesDeclined += o.TypesDeclined
}

// ReconcileFunctions transplants every callable in newNS into the old
// callable with the same key, then rebinds the name to the old callable.
// The first old callable in name order wins when keys repeat. Pairs where
// either side is a closure are left alone.
func ReconcileFunctions(old Snapshot, newNS *unit.Namespace) Stats {
	var stats Stats

	byKey := make(map[string]*unit.Callable)
	for _, name := range old.names {
		c, ok := old.entries[name].(*unit.Callable)
		if !ok {
			continue
		}
		if _, dup := byKey[c.Key()]; !dup {
			byKey[c.Key()] = c
		}
	}
	if len(byKey) == 0 {
		return stats
	}

	for _, name := range newNS.Names() {
		v, _ := newNS.Get(name)
		fresh, ok := v.(*unit.Callable)
		if !ok {
			continue
		}
		prev, ok := byKey[fresh.Key()]
		if !ok || prev == fresh {
			continue
		}
		if prev.IsClosure() || fresh.IsClosure() {
			stats.SkippedClosures++
			logging.MutateDebug("skipping closure %s", fresh.QualName())
			continue
		}
		prev.Transplant(fresh)
		newNS.Set(name, prev)
		stats.Transplanted++
	}
	return stats
}

// MutateType reconciles the callables of ns into t, then applies every
// binding of ns onto t. Bases are not touched.
func MutateType(t *unit.Type, ns *unit.Namespace) Stats {
	stats := ReconcileFunctions(SnapshotOf(t.Namespace()), ns)
	for name, v := range ns.Entries() {
		t.Set(name, v)
	}
	stats.TypesMutated++
	return stats
}
