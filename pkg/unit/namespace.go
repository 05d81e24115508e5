package unit

import (
	"sort"
	"sync"
)

// Namespace is a concurrency-safe name -> value table. Units and types each
// own one; reloading a unit re-executes its body into the same Namespace.
type Namespace struct {
	mu   sync.RWMutex
	vars map[string]any
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{vars: make(map[string]any)}
}

// Get returns the value bound to name.
func (n *Namespace) Get(name string) (any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.vars[name]
	return v, ok
}

// Set binds name to v, replacing any previous binding.
func (n *Namespace) Set(name string, v any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.vars[name] = v
}

// Has reports whether name is bound.
func (n *Namespace) Has(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.vars[name]
	return ok
}

// Delete removes the binding for name.
func (n *Namespace) Delete(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.vars, name)
}

// Len returns the number of bindings.
func (n *Namespace) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.vars)
}

// Names returns the bound names in sorted order.
func (n *Namespace) Names() []string {
	n.mu.RLock()
	names := make([]string, 0, len(n.vars))
	for name := range n.vars {
		names = append(names, name)
	}
	n.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Entries returns a shallow copy of the bindings. Values are shared, not cloned.
func (n *Namespace) Entries() map[string]any {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]any, len(n.vars))
	for k, v := range n.vars {
		out[k] = v
	}
	return out
}
