package unit

import (
	"context"
	"fmt"
)

// ClassRequest describes one class-construction event.
type ClassRequest struct {
	Name     string
	QualName string
	// Key overrides QualName for matching against existing types.
	Key    string
	Module string
	Bases  []*Type
	Body   func(*Scope) error
	// Closure is set when the class was created inside a function and
	// captured that function's variables.
	Closure []*Cell
	// Meta is a custom meta-constructor. Nil means DefaultMeta.
	Meta    MetaConstructor
	Options map[string]any
}

// MatchKey is the key used to find an existing type for this request.
func (r *ClassRequest) MatchKey() string {
	switch {
	case r.Key != "":
		return r.Key
	case r.QualName != "":
		return r.QualName
	default:
		return r.Name
	}
}

// IsClosure reports whether the request captured enclosing variables.
func (r *ClassRequest) IsClosure() bool { return len(r.Closure) > 0 }

// ClassOption configures a ClassRequest built by Scope.Class.
type ClassOption func(*ClassRequest)

func ClassKey(key string) ClassOption {
	return func(r *ClassRequest) { r.Key = key }
}

func ClassClosure(cells ...*Cell) ClassOption {
	return func(r *ClassRequest) { r.Closure = append(r.Closure, cells...) }
}

func ClassMeta(meta MetaConstructor) ClassOption {
	return func(r *ClassRequest) { r.Meta = meta }
}

// ClassQualName overrides the qualified name derived from the scope.
func ClassQualName(qualName string) ClassOption {
	return func(r *ClassRequest) { r.QualName = qualName }
}

func ClassOptions(opts map[string]any) ClassOption {
	return func(r *ClassRequest) { r.Options = opts }
}

// Scope is what a unit or class body receives to define things. Definitions
// made through a class-body scope are qualified with the class name.
type Scope struct {
	env    Env
	ns     *Namespace
	prefix string
}

// NewScope returns the top-level scope for executing u.
func NewScope(env Env, u *Unit) *Scope {
	return &Scope{env: env, ns: u.Namespace()}
}

// NewBodyScope returns a scope for a class body whose definitions land in ns.
func NewBodyScope(env Env, qualName string, ns *Namespace) *Scope {
	return &Scope{env: env, ns: ns, prefix: qualName + "."}
}

func (s *Scope) Env() Env              { return s.env }
func (s *Scope) Namespace() *Namespace { return s.ns }

func (s *Scope) Context() context.Context {
	if s.env == nil {
		return context.Background()
	}
	return s.env.Context()
}

// Unit returns the unit being executed, or nil without an environment.
func (s *Scope) Unit() *Unit {
	if s.env == nil {
		return nil
	}
	return s.env.Unit()
}

// Qualify prefixes name with the enclosing class names.
func (s *Scope) Qualify(name string) string { return s.prefix + name }

func (s *Scope) module() string {
	if u := s.Unit(); u != nil {
		return u.Name
	}
	return ""
}

// Def defines a function in this scope.
func (s *Scope) Def(name string, code Code, opts ...DefOption) *Callable {
	opts = append([]DefOption{WithModule(s.module())}, opts...)
	c := NewCallable(s.Qualify(name), code, opts...)
	s.ns.Set(name, c)
	return c
}

// Closure defines a function capturing cells.
func (s *Scope) Closure(name string, cells []*Cell, code Code, opts ...DefOption) *Callable {
	return s.Def(name, code, append(opts, WithClosure(cells...))...)
}

func (s *Scope) Set(name string, v any) { s.ns.Set(name, v) }

func (s *Scope) Get(name string) (any, bool) { return s.ns.Get(name) }

// Class constructs a type through the environment and binds it to name.
func (s *Scope) Class(name string, bases []*Type, body func(*Scope) error, opts ...ClassOption) (*Type, error) {
	if s.env == nil {
		return nil, fmt.Errorf("class %s: scope has no environment", name)
	}
	req := &ClassRequest{
		Name:     name,
		QualName: s.Qualify(name),
		Module:   s.module(),
		Bases:    bases,
		Body:     body,
	}
	for _, opt := range opts {
		opt(req)
	}
	t, err := s.env.BuildClass(req)
	if err != nil {
		return nil, err
	}
	s.ns.Set(name, t)
	return t, nil
}

// Import resolves a unit through the environment and binds it under its
// own name.
func (s *Scope) Import(name string) (*Unit, error) {
	if s.env == nil {
		return nil, fmt.Errorf("import %s: scope has no environment", name)
	}
	u, err := s.env.Import(name)
	if err != nil {
		return nil, err
	}
	s.ns.Set(name, u)
	return u, nil
}

// From imports unit and binds the listed names from its namespace.
func (s *Scope) From(unitName string, names ...string) error {
	if s.env == nil {
		return fmt.Errorf("import %s: scope has no environment", unitName)
	}
	u, err := s.env.Import(unitName)
	if err != nil {
		return err
	}
	for _, name := range names {
		v, ok := u.Get(name)
		if !ok {
			return &AttributeError{Owner: unitName, Name: name}
		}
		s.ns.Set(name, v)
	}
	return nil
}
