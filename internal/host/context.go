package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"graft/internal/logging"
	"graft/pkg/unit"
)

// ImportFunc is the import pathway an ImportHook delegates to.
type ImportFunc func(lc *LoadContext, name string) (*unit.Unit, error)

// ImportHook intercepts every import made through a LoadContext.
type ImportHook interface {
	Import(lc *LoadContext, name string, next ImportFunc) (*unit.Unit, error)
}

// ClassInterceptor may claim a class-construction request after its body ran.
// Returning false passes the request on.
type ClassInterceptor interface {
	InterceptClass(req *unit.ClassRequest, ns *unit.Namespace) (*unit.Type, bool)
}

type session struct {
	mu      sync.Mutex
	hook    ImportHook
	scopes  []ClassInterceptor
	loading []string
}

// enter records name as being loaded for the first time. It returns the
// import chain if name is already on it.
func (s *session) enter(name string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.loading {
		if n == name {
			chain := append(append([]string(nil), s.loading[i:]...), name)
			return chain, true
		}
	}
	s.loading = append(s.loading, name)
	return nil, false
}

func (s *session) leave(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.loading) - 1; i >= 0; i-- {
		if s.loading[i] == name {
			s.loading = append(s.loading[:i], s.loading[i+1:]...)
			return
		}
	}
}

// LoadContext is the environment unit bodies execute in. It implements
// unit.Env. Contexts derived for nested units share one session.
type LoadContext struct {
	ctx  context.Context
	host *Host
	unit *unit.Unit
	s    *session
}

func (lc *LoadContext) Context() context.Context { return lc.ctx }
func (lc *LoadContext) Host() *Host              { return lc.host }

// Unit returns the unit whose body is executing, nil at the top level.
func (lc *LoadContext) Unit() *unit.Unit { return lc.unit }

// InstallImportHook fills the session's hook slot. The slot holds one hook;
// a second install fails with ErrHookInstalled until the first is released.
func (lc *LoadContext) InstallImportHook(h ImportHook) (release func(), err error) {
	lc.s.mu.Lock()
	defer lc.s.mu.Unlock()
	if lc.s.hook != nil {
		return nil, ErrHookInstalled
	}
	lc.s.hook = h
	var once sync.Once
	return func() {
		once.Do(func() {
			lc.s.mu.Lock()
			lc.s.hook = nil
			lc.s.mu.Unlock()
		})
	}, nil
}

// HasImportHook reports whether the hook slot is taken.
func (lc *LoadContext) HasImportHook() bool {
	lc.s.mu.Lock()
	defer lc.s.mu.Unlock()
	return lc.s.hook != nil
}

// PushClassScope activates ci. The returned release pops it along with any
// scope pushed after it, so deferred releases unwind in LIFO order.
func (lc *LoadContext) PushClassScope(ci ClassInterceptor) (release func()) {
	lc.s.mu.Lock()
	lc.s.scopes = append(lc.s.scopes, ci)
	depth := len(lc.s.scopes)
	lc.s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lc.s.mu.Lock()
			if len(lc.s.scopes) >= depth {
				lc.s.scopes = lc.s.scopes[:depth-1]
			}
			lc.s.mu.Unlock()
		})
	}
}

// ClassScopes returns the active scopes, innermost first.
func (lc *LoadContext) ClassScopes() []ClassInterceptor {
	lc.s.mu.Lock()
	defer lc.s.mu.Unlock()
	out := make([]ClassInterceptor, 0, len(lc.s.scopes))
	for i := len(lc.s.scopes) - 1; i >= 0; i-- {
		out = append(out, lc.s.scopes[i])
	}
	return out
}

// Import resolves name through the installed hook, if any, then the
// default pathway.
func (lc *LoadContext) Import(name string) (*unit.Unit, error) {
	lc.s.mu.Lock()
	hook := lc.s.hook
	lc.s.mu.Unlock()

	if hook != nil {
		return hook.Import(lc, name, DefaultImport)
	}
	return DefaultImport(lc, name)
}

// DefaultImport is the host's own pathway: a registry hit, else the first
// finder that knows name. A found unit is registered before its body runs
// and unregistered again if that first execution fails.
func DefaultImport(lc *LoadContext, name string) (*unit.Unit, error) {
	if chain, cyclic := lc.s.enter(name); cyclic {
		return nil, &CircularImportError{Chain: chain}
	}
	defer lc.s.leave(name)

	reg := lc.host.registry
	if u, ok := reg.Lookup(name); ok {
		return u, nil
	}

	u, err := lc.host.find(lc.ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", name, err)
	}
	if u == nil {
		return nil, &UnitNotFoundError{Name: name}
	}

	reg.Insert(u)
	if err := lc.exec(u); err != nil {
		reg.deleteIf(name, u)
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	logging.HostDebug("loaded unit %s", name)
	return u, nil
}

// Reload re-executes u's body into its existing namespace. Bindings the new
// body does not define are left in place.
func (lc *LoadContext) Reload(u *unit.Unit) error {
	logging.HostDebug("reloading unit %s (generation %d)", u.Name, u.Generation())
	return lc.exec(u)
}

func (lc *LoadContext) exec(u *unit.Unit) (err error) {
	if err := lc.ctx.Err(); err != nil {
		return err
	}
	if u.Loader == nil {
		return fmt.Errorf("unit %s has no loader", u.Name)
	}

	child := &LoadContext{ctx: lc.ctx, host: lc.host, unit: u, s: lc.s}
	defer func() {
		if r := recover(); r != nil {
			err = &BodyPanicError{Unit: u.Name, Value: r}
		}
	}()

	if err := u.Loader.Exec(child, u); err != nil {
		return err
	}
	u.MarkLoaded(time.Now())
	return nil
}

// BuildClass runs req.Body once into a fresh namespace, then offers the
// result to the active class scopes innermost first. If none claims it the
// meta-constructor builds a new type. Closure-bearing requests skip the scopes.
func (lc *LoadContext) BuildClass(req *unit.ClassRequest) (*unit.Type, error) {
	if req.Module == "" && lc.unit != nil {
		req.Module = lc.unit.Name
	}
	if req.QualName == "" {
		req.QualName = req.Name
	}

	ns := unit.NewNamespace()
	if req.Body != nil {
		if err := lc.runClassBody(req, ns); err != nil {
			return nil, err
		}
	}

	if !req.IsClosure() {
		for _, sc := range lc.ClassScopes() {
			if t, ok := sc.InterceptClass(req, ns); ok {
				logging.HostDebug("class %s claimed by active scope", req.QualName)
				return t, nil
			}
		}
	}

	meta := req.Meta
	if meta == nil {
		meta = unit.DefaultMeta
	}
	t, err := meta(req, ns)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", req.QualName, err)
	}
	return t, nil
}

func (lc *LoadContext) runClassBody(req *unit.ClassRequest, ns *unit.Namespace) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &BodyPanicError{Unit: req.QualName, Value: r}
		}
	}()
	return req.Body(unit.NewBodyScope(lc, req.QualName, ns))
}
