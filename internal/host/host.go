// Package host is the unit-loading subsystem: a registry of loaded units,
// an import pathway backed by finders, and per-cycle load contexts that carry
// the import-hook slot and class scope stack.
package host

import (
	"context"
	"sync"

	"graft/pkg/unit"
)

// Finder locates units that are not registered yet. Find returns nil, nil
// when it does not know the name.
type Finder interface {
	Find(ctx context.Context, name string) (*unit.Unit, error)
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(ctx context.Context, name string) (*unit.Unit, error)

func (f FinderFunc) Find(ctx context.Context, name string) (*unit.Unit, error) { return f(ctx, name) }

// Host owns the registry and the finders consulted on a registry miss.
type Host struct {
	registry *Registry

	mu      sync.RWMutex
	finders []Finder
}

// New creates a host. A nil registry gets a fresh one.
func New(registry *Registry, finders ...Finder) *Host {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Host{registry: registry, finders: finders}
}

func (h *Host) Registry() *Registry { return h.registry }

// AddFinder appends f to the finder chain.
func (h *Host) AddFinder(f Finder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finders = append(h.finders, f)
}

// NewContext starts a load session. Hooks and class scopes installed on the
// returned context are visible only to imports made through it.
func (h *Host) NewContext(ctx context.Context) *LoadContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &LoadContext{ctx: ctx, host: h, s: &session{}}
}

// Import resolves name in a fresh load session.
func (h *Host) Import(ctx context.Context, name string) (*unit.Unit, error) {
	return h.NewContext(ctx).Import(name)
}

func (h *Host) find(ctx context.Context, name string) (*unit.Unit, error) {
	h.mu.RLock()
	finders := append([]Finder(nil), h.finders...)
	h.mu.RUnlock()

	for _, f := range finders {
		u, err := f.Find(ctx, name)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return u, nil
		}
	}
	return nil, nil
}
