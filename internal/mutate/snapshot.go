package mutate

import (
	"sort"

	"graft/pkg/unit"
)

// Snapshot is an immutable shallow copy of a namespace taken before a reload.
type Snapshot struct {
	entries map[string]any
	names   []string
}

// SnapshotOf copies ns.
func SnapshotOf(ns *unit.Namespace) Snapshot {
	entries := ns.Entries()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return Snapshot{entries: entries, names: names}
}

// CaptureNamespace snapshots the namespace of u.
func CaptureNamespace(u *unit.Unit) Snapshot {
	return SnapshotOf(u.Namespace())
}

func (s Snapshot) Get(name string) (any, bool) {
	v, ok := s.entries[name]
	return v, ok
}

// Names returns the captured names in sorted order.
func (s Snapshot) Names() []string {
	return append([]string(nil), s.names...)
}

func (s Snapshot) Len() int { return len(s.names) }

// Types returns the types defined by module, including types nested in
// their namespaces, in name order.
func (s Snapshot) Types(module string) []*unit.Type {
	var out []*unit.Type
	seen := make(map[*unit.Type]bool)
	var walk func(names []string, get func(string) (any, bool))
	walk = func(names []string, get func(string) (any, bool)) {
		for _, name := range names {
			v, _ := get(name)
			t, ok := v.(*unit.Type)
			if !ok || seen[t] || t.Module() != module {
				continue
			}
			seen[t] = true
			out = append(out, t)
			ns := t.Namespace()
			walk(ns.Names(), ns.Get)
		}
	}
	walk(s.names, s.Get)
	return out
}
