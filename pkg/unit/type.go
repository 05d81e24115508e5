package unit

import (
	"fmt"
	"strings"
)

// MetaConstructor builds a Type from a class request and the namespace its
// body populated.
type MetaConstructor func(req *ClassRequest, ns *Namespace) (*Type, error)

// DefaultMeta is the meta-constructor used when a request names none.
func DefaultMeta(req *ClassRequest, ns *Namespace) (*Type, error) {
	t := NewType(req.QualName, req.Bases, ns, WithKey(req.MatchKey()), WithModule(req.Module), WithClosure(req.Closure...))
	return t, nil
}

// Type is a type definition with a stable identity. Instances hold a
// pointer to their Type, so updating the Type's namespace in place changes
// behavior for every existing instance.
type Type struct {
	id       uint64
	qualName string
	key      string
	module   string
	bases    []*Type
	closure  []*Cell
	ns       *Namespace
}

// NewType creates a type. A nil ns gets a fresh namespace.
func NewType(qualName string, bases []*Type, ns *Namespace, opts ...DefOption) *Type {
	if ns == nil {
		ns = NewNamespace()
	}
	// Options are shared with Callable; apply them to a scratch value.
	scratch := &Callable{}
	for _, opt := range opts {
		opt(scratch)
	}
	key := scratch.key
	if key == "" {
		key = qualName
	}
	return &Type{
		id:       nextID(),
		qualName: qualName,
		key:      key,
		module:   scratch.module,
		bases:    append([]*Type(nil), bases...),
		closure:  scratch.closure,
		ns:       ns,
	}
}

func (t *Type) ID() uint64            { return t.id }
func (t *Type) QualName() string      { return t.qualName }
func (t *Type) Key() string           { return t.key }
func (t *Type) Module() string        { return t.module }
func (t *Type) Namespace() *Namespace { return t.ns }
func (t *Type) IsClosure() bool       { return len(t.closure) > 0 }

// Name is the last segment of the qualified name.
func (t *Type) Name() string {
	if i := strings.LastIndexByte(t.qualName, '.'); i >= 0 {
		return t.qualName[i+1:]
	}
	return t.qualName
}

// Bases returns the direct base types.
func (t *Type) Bases() []*Type {
	return append([]*Type(nil), t.bases...)
}

// Set binds an attribute on the type itself.
func (t *Type) Set(name string, v any) { t.ns.Set(name, v) }

// Lookup resolves name on t, then on its bases depth-first left to right.
func (t *Type) Lookup(name string) (any, bool) {
	return t.lookup(name, make(map[*Type]bool))
}

func (t *Type) lookup(name string, seen map[*Type]bool) (any, bool) {
	if seen[t] {
		return nil, false
	}
	seen[t] = true
	if v, ok := t.ns.Get(name); ok {
		return v, true
	}
	for _, b := range t.bases {
		if v, ok := b.lookup(name, seen); ok {
			return v, true
		}
	}
	return nil, false
}

// IsSubtype reports whether t is other or derives from it.
func (t *Type) IsSubtype(other *Type) bool {
	if t == other {
		return true
	}
	for _, b := range t.bases {
		if b.IsSubtype(other) {
			return true
		}
	}
	return false
}

// New creates an instance. If the type defines "init", it is called with
// the new instance followed by args.
func (t *Type) New(args ...any) (*Instance, error) {
	inst := &Instance{typ: t, fields: NewNamespace()}
	if v, ok := t.Lookup("init"); ok {
		fn, ok := v.(*Callable)
		if !ok {
			return nil, fmt.Errorf("%w: %s.init is %T", ErrNotCallable, t.qualName, v)
		}
		if _, err := (&BoundMethod{Self: inst, Func: fn}).Call(args...); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (t *Type) String() string {
	return fmt.Sprintf("<type %s#%d>", t.qualName, t.id)
}

// Instance is a value created from a Type.
type Instance struct {
	typ    *Type
	fields *Namespace
}

// Type returns the instance's type. It never changes.
func (i *Instance) Type() *Type { return i.typ }

// Fields returns the per-instance attribute namespace.
func (i *Instance) Fields() *Namespace { return i.fields }

// Set binds a per-instance attribute.
func (i *Instance) Set(name string, v any) { i.fields.Set(name, v) }

// Get resolves name on the instance, then on its type. Callables found on
// the type come back as *BoundMethod.
func (i *Instance) Get(name string) (any, bool) {
	if v, ok := i.fields.Get(name); ok {
		return v, true
	}
	v, ok := i.typ.Lookup(name)
	if !ok {
		return nil, false
	}
	if fn, isFn := v.(*Callable); isFn {
		return &BoundMethod{Self: i, Func: fn}, true
	}
	return v, true
}

// Method returns name bound to the instance.
func (i *Instance) Method(name string) (*BoundMethod, error) {
	v, ok := i.Get(name)
	if !ok {
		return nil, &AttributeError{Owner: i.typ.qualName, Name: name}
	}
	m, ok := v.(*BoundMethod)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is %T", ErrNotCallable, i.typ.qualName, name, v)
	}
	return m, nil
}

// Call invokes the named method.
func (i *Instance) Call(name string, args ...any) (any, error) {
	m, err := i.Method(name)
	if err != nil {
		return nil, err
	}
	return m.Call(args...)
}
