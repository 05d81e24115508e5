package mutate

import (
	"testing"

	"graft/pkg/unit"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v any) unit.Code {
	return func(args ...any) (any, error) { return v, nil }
}

func call(t *testing.T, c *unit.Callable) any {
	t.Helper()
	v, err := c.Call()
	require.NoError(t, err)
	return v
}

// =============================================================================
// RECONCILE FUNCTIONS
// =============================================================================

func TestReconcileFunctions_TransplantsIntoOldCell(t *testing.T) {
	oldNS := unit.NewNamespace()
	oldFoo := unit.NewCallable("foo", constant(1))
	oldNS.Set("foo", oldFoo)
	snap := SnapshotOf(oldNS)

	newNS := unit.NewNamespace()
	newFoo := unit.NewCallable("foo", constant(2))
	newNS.Set("foo", newFoo)
	newNS.Set("bar", unit.NewCallable("bar", constant(3)))
	newNS.Set("n", 5)

	st := ReconcileFunctions(snap, newNS)

	assert.Equal(t, Stats{Transplanted: 1}, st)
	got, _ := newNS.Get("foo")
	assert.Same(t, oldFoo, got)
	assert.Equal(t, 2, call(t, oldFoo))
	assert.Equal(t, int64(1), oldFoo.Revision())

	bar, _ := newNS.Get("bar")
	assert.Equal(t, "bar", bar.(*unit.Callable).QualName())
}

func TestReconcileFunctions_SkipsClosures(t *testing.T) {
	cell := unit.NewCell(0)
	oldNS := unit.NewNamespace()
	oldClosure := unit.NewCallable("f", constant(1), unit.WithClosure(cell))
	oldPlain := unit.NewCallable("g", constant(1))
	oldNS.Set("f", oldClosure)
	oldNS.Set("g", oldPlain)
	snap := SnapshotOf(oldNS)

	newNS := unit.NewNamespace()
	newF := unit.NewCallable("f", constant(2), unit.WithClosure(cell))
	newG := unit.NewCallable("g", constant(2), unit.WithClosure(cell))
	newNS.Set("f", newF)
	newNS.Set("g", newG)

	st := ReconcileFunctions(snap, newNS)

	assert.Equal(t, Stats{SkippedClosures: 2}, st)
	assert.Equal(t, 1, call(t, oldClosure))
	assert.Equal(t, 1, call(t, oldPlain))
	f, _ := newNS.Get("f")
	assert.Same(t, newF, f)
}

func TestReconcileFunctions_MatchesByKeyNotName(t *testing.T) {
	oldNS := unit.NewNamespace()
	old := unit.NewCallable("handler", constant("v1"), unit.WithKey("route:/x"))
	oldNS.Set("handler", old)
	snap := SnapshotOf(oldNS)

	newNS := unit.NewNamespace()
	newNS.Set("renamed", unit.NewCallable("renamed", constant("v2"), unit.WithKey("route:/x")))

	st := ReconcileFunctions(snap, newNS)
	assert.Equal(t, 1, st.Transplanted)
	got, _ := newNS.Get("renamed")
	assert.Same(t, old, got)
	assert.Equal(t, "v2", call(t, old))
}

func TestReconcileFunctions_FirstMatchWins(t *testing.T) {
	oldNS := unit.NewNamespace()
	first := unit.NewCallable("foo", constant(1))
	second := unit.NewCallable("foo", constant(1))
	oldNS.Set("a_alias", first)
	oldNS.Set("b_alias", second)
	snap := SnapshotOf(oldNS)

	newNS := unit.NewNamespace()
	newNS.Set("foo", unit.NewCallable("foo", constant(2)))

	ReconcileFunctions(snap, newNS)
	assert.Equal(t, 2, call(t, first))
	assert.Equal(t, 1, call(t, second))
}

func TestReconcileFunctions_SameObjectIsNoop(t *testing.T) {
	shared := unit.NewCallable("helper", constant(1))
	oldNS := unit.NewNamespace()
	oldNS.Set("helper", shared)
	snap := SnapshotOf(oldNS)

	newNS := unit.NewNamespace()
	newNS.Set("helper", shared)

	assert.Equal(t, Stats{}, ReconcileFunctions(snap, newNS))
	assert.Equal(t, int64(0), shared.Revision())
}

func TestCaptureNamespace_IsShallowAndFrozen(t *testing.T) {
	u := unit.New("a", nil)
	foo := unit.NewCallable("foo", constant(1))
	u.Namespace().Set("foo", foo)

	snap := CaptureNamespace(u)
	u.Namespace().Set("foo", 2)
	u.Namespace().Set("later", 3)

	v, ok := snap.Get("foo")
	require.True(t, ok)
	assert.Same(t, foo, v)
	assert.Equal(t, []string{"foo"}, snap.Names())
	assert.Equal(t, 1, snap.Len())
}

func TestSnapshot_TypesIncludesNestedOfSameModule(t *testing.T) {
	inner := unit.NewType("Outer.Inner", nil, nil, unit.WithModule("a"))
	outer := unit.NewType("Outer", nil, nil, unit.WithModule("a"))
	outer.Set("Inner", inner)
	foreign := unit.NewType("Other", nil, nil, unit.WithModule("b"))

	ns := unit.NewNamespace()
	ns.Set("Outer", outer)
	ns.Set("Other", foreign)
	ns.Set("Alias", outer)

	got := SnapshotOf(ns).Types("a")
	names := make([]string, 0, len(got))
	for _, typ := range got {
		names = append(names, typ.QualName())
	}
	if diff := cmp.Diff([]string{"Outer", "Outer.Inner"}, names); diff != "" {
		t.Errorf("Types mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// CLASS SCOPE
// =============================================================================

func TestClassScope_MutatesMatchingType(t *testing.T) {
	e := NewEngine()
	oldFoo := unit.NewCallable("X.foo", constant(1))
	oldX := unit.NewType("X", nil, nil, unit.WithModule("a"))
	oldX.Set("foo", oldFoo)
	oldX.Set("gone", "kept")
	x, err := oldX.New()
	require.NoError(t, err)

	cs := e.NewClassScope("", []*unit.Type{oldX})
	ns := unit.NewNamespace()
	ns.Set("foo", unit.NewCallable("X.foo", constant(2)))
	ns.Set("bar", unit.NewCallable("X.bar", constant(3)))

	got, ok := cs.InterceptClass(&unit.ClassRequest{Name: "X", QualName: "X"}, ns)
	require.True(t, ok)
	assert.Same(t, oldX, got)

	v, err := x.Call("foo")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	v, err = x.Call("bar")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	foo, _ := oldX.Namespace().Get("foo")
	assert.Same(t, oldFoo, foo)
	_, stillThere := oldX.Namespace().Get("gone")
	assert.True(t, stillThere)

	want := Stats{Transplanted: 1, TypesMutated: 1}
	assert.Equal(t, want, cs.Stats())
	assert.Equal(t, want, e.Stats())
}

func TestClassScope_Declines(t *testing.T) {
	oldX := unit.NewType("X", nil, nil)
	cs := NewClassScope("", []*unit.Type{oldX})

	tests := []struct {
		name string
		req  *unit.ClassRequest
	}{
		{"closure", &unit.ClassRequest{Name: "X", Closure: []*unit.Cell{unit.NewCell(1)}}},
		{"custom meta", &unit.ClassRequest{Name: "X", Meta: unit.DefaultMeta}},
		{"no match", &unit.ClassRequest{Name: "Y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cs.InterceptClass(tt.req, unit.NewNamespace())
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
	assert.Equal(t, 2, cs.Stats().TypesDeclined)
}

func TestClassScope_SkipsClosureBearingOldType(t *testing.T) {
	oldX := unit.NewType("X", nil, nil, unit.WithClosure(unit.NewCell(1)))
	cs := NewClassScope("", []*unit.Type{oldX})
	_, ok := cs.InterceptClass(&unit.ClassRequest{Name: "X"}, unit.NewNamespace())
	assert.False(t, ok)
}

func TestClassScope_MatchesByRequestKey(t *testing.T) {
	oldX := unit.NewType("Old", nil, nil, unit.WithKey("model:user"))
	cs := NewClassScope("", []*unit.Type{oldX})

	got, ok := cs.InterceptClass(&unit.ClassRequest{Name: "User", QualName: "User", Key: "model:user"}, unit.NewNamespace())
	require.True(t, ok)
	assert.Same(t, oldX, got)
}

func TestClassScope_IgnoresOtherModules(t *testing.T) {
	oldX := unit.NewType("X", nil, nil, unit.WithModule("a"))
	cs := NewClassScope("", []*unit.Type{oldX})

	_, ok := cs.InterceptClass(&unit.ClassRequest{Name: "X", Module: "b"}, unit.NewNamespace())
	assert.False(t, ok)

	got, ok := cs.InterceptClass(&unit.ClassRequest{Name: "X", Module: "a"}, unit.NewNamespace())
	require.True(t, ok)
	assert.Same(t, oldX, got)
}

func TestClassScope_OwnedScopeIgnoresOtherUnits(t *testing.T) {
	e := NewEngine()
	oldX := unit.NewType("X", nil, nil, unit.WithModule("a"))
	cs := e.NewClassScope("a", []*unit.Type{oldX})

	// Requests from another unit are neither claimed nor counted.
	_, ok := cs.InterceptClass(&unit.ClassRequest{Name: "X", Module: "b"}, unit.NewNamespace())
	assert.False(t, ok)
	_, ok = cs.InterceptClass(&unit.ClassRequest{Name: "M", Module: "b", Meta: unit.DefaultMeta}, unit.NewNamespace())
	assert.False(t, ok)
	assert.Equal(t, Stats{}, cs.Stats())
	assert.Equal(t, Stats{}, e.Stats())

	_, ok = cs.InterceptClass(&unit.ClassRequest{Name: "M", Module: "a", Meta: unit.DefaultMeta}, unit.NewNamespace())
	assert.False(t, ok)
	assert.Equal(t, Stats{TypesDeclined: 1}, cs.Stats())

	got, ok := cs.InterceptClass(&unit.ClassRequest{Name: "X", Module: "a"}, unit.NewNamespace())
	require.True(t, ok)
	assert.Same(t, oldX, got)
}
