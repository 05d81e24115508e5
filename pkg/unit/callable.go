package unit

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Code is the executable body of a Callable. Methods receive their
// *Instance as the first argument.
type Code func(args ...any) (any, error)

// Cell is a captured variable shared between a Callable and the scope that
// created it. A Callable carrying cells is a closure and is never mutated
// in place.
type Cell struct {
	mu sync.RWMutex
	v  any
}

// NewCell creates a cell holding v.
func NewCell(v any) *Cell {
	return &Cell{v: v}
}

// Get returns the current value.
func (c *Cell) Get() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

// Set replaces the current value.
func (c *Cell) Set(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = v
}

var lastID atomic.Uint64

func nextID() uint64 {
	return lastID.Add(1)
}

type body struct {
	code Code
}

// Callable is a function definition with a stable identity. Every holder of
// a *Callable (namespaces, types, other units) observes a body swap made by
// Transplant.
type Callable struct {
	id       uint64
	qualName string
	key      string
	module   string
	closure  []*Cell

	body     atomic.Pointer[body]
	revision atomic.Int64
}

// DefOption configures a Callable at construction.
type DefOption func(*Callable)

// WithKey overrides the matching key. It defaults to the qualified name.
func WithKey(key string) DefOption {
	return func(c *Callable) { c.key = key }
}

// WithClosure attaches captured cells, making the callable a closure.
func WithClosure(cells ...*Cell) DefOption {
	return func(c *Callable) { c.closure = append(c.closure, cells...) }
}

// WithModule records the unit the callable was defined in.
func WithModule(module string) DefOption {
	return func(c *Callable) { c.module = module }
}

// NewCallable creates a callable named qualName running code.
func NewCallable(qualName string, code Code, opts ...DefOption) *Callable {
	c := &Callable{id: nextID(), qualName: qualName}
	for _, opt := range opts {
		opt(c)
	}
	if c.key == "" {
		c.key = qualName
	}
	c.body.Store(&body{code: code})
	return c
}

func (c *Callable) ID() uint64       { return c.id }
func (c *Callable) QualName() string { return c.qualName }
func (c *Callable) Key() string      { return c.key }
func (c *Callable) Module() string   { return c.module }

// Name is the last segment of the qualified name.
func (c *Callable) Name() string {
	if i := strings.LastIndexByte(c.qualName, '.'); i >= 0 {
		return c.qualName[i+1:]
	}
	return c.qualName
}

// IsClosure reports whether the callable captured variables.
func (c *Callable) IsClosure() bool { return len(c.closure) > 0 }

// Closure returns the captured cells.
func (c *Callable) Closure() []*Cell {
	out := make([]*Cell, len(c.closure))
	copy(out, c.closure)
	return out
}

// Revision counts how many times the body was transplanted.
func (c *Callable) Revision() int64 { return c.revision.Load() }

// Call runs the current body.
func (c *Callable) Call(args ...any) (any, error) {
	b := c.body.Load()
	if b == nil || b.code == nil {
		return nil, fmt.Errorf("%w: %s has no body", ErrNotCallable, c.qualName)
	}
	return b.code(args...)
}

// Transplant replaces this callable's body with src's. The identity of c is
// unchanged so existing references start running the new body.
func (c *Callable) Transplant(src *Callable) {
	if src == nil || src == c {
		return
	}
	c.body.Store(src.body.Load())
	c.revision.Add(1)
}

func (c *Callable) String() string {
	return fmt.Sprintf("<callable %s#%d>", c.qualName, c.id)
}

// BoundMethod pairs a Callable with the instance it was looked up on.
type BoundMethod struct {
	Self *Instance
	Func *Callable
}

// Call invokes the method with Self prepended to args.
func (m *BoundMethod) Call(args ...any) (any, error) {
	full := make([]any, 0, len(args)+1)
	full = append(full, m.Self)
	full = append(full, args...)
	return m.Func.Call(full...)
}
