package script

import (
	"reflect"

	"graft/pkg/unit"

	"github.com/traefik/yaegi/interp"
)

// Symbols exposes graft/pkg/unit to interpreted units.
var Symbols = interp.Exports{
	"graft/pkg/unit/unit": {
		// function, constant and variable definitions
		"ClassClosure":   reflect.ValueOf(unit.ClassClosure),
		"ClassKey":       reflect.ValueOf(unit.ClassKey),
		"ClassMeta":      reflect.ValueOf(unit.ClassMeta),
		"ClassOptions":   reflect.ValueOf(unit.ClassOptions),
		"ClassQualName":  reflect.ValueOf(unit.ClassQualName),
		"DefaultMeta":    reflect.ValueOf(unit.DefaultMeta),
		"ErrNotCallable": reflect.ValueOf(&unit.ErrNotCallable).Elem(),
		"New":            reflect.ValueOf(unit.New),
		"NewBodyScope":   reflect.ValueOf(unit.NewBodyScope),
		"NewCallable":    reflect.ValueOf(unit.NewCallable),
		"NewCell":        reflect.ValueOf(unit.NewCell),
		"NewNamespace":   reflect.ValueOf(unit.NewNamespace),
		"NewScope":       reflect.ValueOf(unit.NewScope),
		"NewType":        reflect.ValueOf(unit.NewType),
		"WithClosure":    reflect.ValueOf(unit.WithClosure),
		"WithKey":        reflect.ValueOf(unit.WithKey),
		"WithModule":     reflect.ValueOf(unit.WithModule),

		// type definitions
		"AttributeError":  reflect.ValueOf((*unit.AttributeError)(nil)),
		"BoundMethod":     reflect.ValueOf((*unit.BoundMethod)(nil)),
		"Callable":        reflect.ValueOf((*unit.Callable)(nil)),
		"Cell":            reflect.ValueOf((*unit.Cell)(nil)),
		"ClassOption":     reflect.ValueOf((*unit.ClassOption)(nil)),
		"ClassRequest":    reflect.ValueOf((*unit.ClassRequest)(nil)),
		"Code":            reflect.ValueOf((*unit.Code)(nil)),
		"DefOption":       reflect.ValueOf((*unit.DefOption)(nil)),
		"Env":             reflect.ValueOf((*unit.Env)(nil)),
		"Instance":        reflect.ValueOf((*unit.Instance)(nil)),
		"Loader":          reflect.ValueOf((*unit.Loader)(nil)),
		"MetaConstructor": reflect.ValueOf((*unit.MetaConstructor)(nil)),
		"Namespace":       reflect.ValueOf((*unit.Namespace)(nil)),
		"NewerChecker":    reflect.ValueOf((*unit.NewerChecker)(nil)),
		"Scope":           reflect.ValueOf((*unit.Scope)(nil)),
		"Type":            reflect.ValueOf((*unit.Type)(nil)),
		"Unit":            reflect.ValueOf((*unit.Unit)(nil)),
	},
}
