package host

import (
	"sort"
	"sync"

	"graft/pkg/unit"
)

// Registry maps unit names to loaded units. At most one unit is registered
// per name.
type Registry struct {
	mu    sync.RWMutex
	units map[string]*unit.Unit
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]*unit.Unit)}
}

// Lookup returns the unit registered under name.
func (r *Registry) Lookup(name string) (*unit.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[name]
	return u, ok
}

// Insert registers u under u.Name, replacing any previous entry.
func (r *Registry) Insert(u *unit.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[u.Name] = u
}

// Delete removes the entry for name.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.units, name)
}

// deleteIf removes name only while it still maps to u.
func (r *Registry) deleteIf(name string, u *unit.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.units[name] == u {
		delete(r.units, name)
	}
}

// Units returns the registered units ordered by name.
func (r *Registry) Units() []*unit.Unit {
	r.mu.RLock()
	out := make([]*unit.Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}
