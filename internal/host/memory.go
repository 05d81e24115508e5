package host

import (
	"context"
	"fmt"
	"sync"

	"graft/pkg/unit"
)

// Body is a unit body written as a Go function.
type Body func(s *unit.Scope) error

type memBody struct {
	fn       Body
	revision int
}

// MemoryLoader loads units whose bodies are Go functions registered by name.
// Redefining a body bumps its revision, which CheckNewer compares against the
// revision last executed. It is also a Finder for the names it knows.
type MemoryLoader struct {
	mu       sync.RWMutex
	bodies   map[string]*memBody
	executed map[string]int
	runs     map[string]int
}

// NewMemoryLoader creates an empty loader.
func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{
		bodies:   make(map[string]*memBody),
		executed: make(map[string]int),
		runs:     make(map[string]int),
	}
}

// Define registers or replaces the body for name.
func (m *MemoryLoader) Define(name string, fn Body) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bodies[name]
	if !ok {
		b = &memBody{}
		m.bodies[name] = b
	}
	b.fn = fn
	b.revision++
}

// Find returns a new unit for a defined name, or nil.
func (m *MemoryLoader) Find(_ context.Context, name string) (*unit.Unit, error) {
	m.mu.RLock()
	_, ok := m.bodies[name]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return unit.New(name, m), nil
}

// Exec runs the current body for u. The revision is recorded before the body
// runs, so a failing body is not reported as newer again.
func (m *MemoryLoader) Exec(env unit.Env, u *unit.Unit) error {
	m.mu.Lock()
	b, ok := m.bodies[u.Name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("no body defined for %s", u.Name)
	}
	fn := b.fn
	m.executed[u.Name] = b.revision
	m.runs[u.Name]++
	m.mu.Unlock()

	return fn(unit.NewScope(env, u))
}

// CheckNewer reports whether the body changed since it last ran.
func (m *MemoryLoader) CheckNewer(u *unit.Unit) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bodies[u.Name]
	if !ok {
		return false
	}
	return b.revision > m.executed[u.Name]
}

// Runs returns how many times the body for name was executed.
func (m *MemoryLoader) Runs(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runs[name]
}
