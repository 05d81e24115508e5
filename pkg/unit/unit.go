// Package unit defines the runtime data model for reloadable code units:
// namespaces, callables, types, instances and the scope API unit bodies use
// to populate them.
package unit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Loader executes a unit's body into its namespace.
type Loader interface {
	Exec(env Env, u *Unit) error
}

// NewerChecker is implemented by loaders that can tell on their own whether
// a unit's source changed since it was last executed.
type NewerChecker interface {
	CheckNewer(u *Unit) bool
}

// Env is the loading environment a unit body runs in.
type Env interface {
	Context() context.Context
	// Unit is the unit currently executing.
	Unit() *Unit
	// Import resolves another unit by name, loading it if needed.
	Import(name string) (*Unit, error)
	// BuildClass runs a class body and constructs (or reuses) a Type.
	BuildClass(req *ClassRequest) (*Type, error)
}

// Unit is a named, loaded piece of code with its own namespace.
type Unit struct {
	Name   string
	Loader Loader

	ns *Namespace

	mu         sync.RWMutex
	source     string
	artifact   string
	loadedAt   time.Time
	generation int
}

// New creates an unloaded unit.
func New(name string, loader Loader) *Unit {
	return &Unit{Name: name, Loader: loader, ns: NewNamespace()}
}

// Namespace returns the unit's namespace. It is the same object for the
// life of the unit, across reloads.
func (u *Unit) Namespace() *Namespace { return u.ns }

// Get returns a top-level binding.
func (u *Unit) Get(name string) (any, bool) { return u.ns.Get(name) }

// Callable returns a top-level binding that must be a *Callable.
func (u *Unit) Callable(name string) (*Callable, error) {
	v, ok := u.ns.Get(name)
	if !ok {
		return nil, &AttributeError{Owner: u.Name, Name: name}
	}
	c, ok := v.(*Callable)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is %T", ErrNotCallable, u.Name, name, v)
	}
	return c, nil
}

// Type returns a top-level binding that must be a *Type.
func (u *Unit) Type(name string) (*Type, error) {
	v, ok := u.ns.Get(name)
	if !ok {
		return nil, &AttributeError{Owner: u.Name, Name: name}
	}
	t, ok := v.(*Type)
	if !ok {
		return nil, fmt.Errorf("%s.%s is %T, not a type", u.Name, name, v)
	}
	return t, nil
}

// Call invokes a top-level callable, or instantiates a top-level type.
func (u *Unit) Call(name string, args ...any) (any, error) {
	v, ok := u.ns.Get(name)
	if !ok {
		return nil, &AttributeError{Owner: u.Name, Name: name}
	}
	switch fn := v.(type) {
	case *Callable:
		return fn.Call(args...)
	case *Type:
		return fn.New(args...)
	default:
		return nil, fmt.Errorf("%w: %s.%s is %T", ErrNotCallable, u.Name, name, v)
	}
}

// Source is the location of the unit's source, if it has one.
func (u *Unit) Source() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.source
}

func (u *Unit) SetSource(path string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.source = path
}

// Artifact is the location of the unit's compiled artifact, if any.
func (u *Unit) Artifact() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.artifact
}

func (u *Unit) SetArtifact(path string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.artifact = path
}

// MarkLoaded records a successful execution of the body.
func (u *Unit) MarkLoaded(at time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.loadedAt = at
	u.generation++
}

// LoadedAt is the time of the last successful execution.
func (u *Unit) LoadedAt() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.loadedAt
}

// Generation counts successful executions; 1 after the first load.
func (u *Unit) Generation() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.generation
}

func (u *Unit) String() string {
	return fmt.Sprintf("<unit %s>", u.Name)
}
