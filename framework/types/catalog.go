package types

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// ── Builtins ──────────────────────────────────────────────────────────────────

// Builtin classes, bound to the matching Go types in every catalog.
var (
	String   = MustClass("string").Type()
	Int      = MustClass("int").Type()
	Int64    = MustClass("int64").Type()
	Float64  = MustClass("float64").Type()
	Bool     = MustClass("bool").Type()
	Bytes    = MustClass("bytes").Type()
	Duration = MustClass("duration").Type()
)

func builtins() map[reflect.Type]Type {
	return map[reflect.Type]Type{
		reflect.TypeOf((*string)(nil)).Elem():        String,
		reflect.TypeOf((*int)(nil)).Elem():           Int,
		reflect.TypeOf((*int64)(nil)).Elem():         Int64,
		reflect.TypeOf((*float64)(nil)).Elem():       Float64,
		reflect.TypeOf((*bool)(nil)).Elem():          Bool,
		reflect.TypeOf((*[]byte)(nil)).Elem():        Bytes,
		reflect.TypeOf((*time.Duration)(nil)).Elem(): Duration,
	}
}

// ── Catalog ───────────────────────────────────────────────────────────────────

// Catalog is the declared mapping between Go types and Types. Providers use
// it to learn what they produce and what their parameters and fields need.
type Catalog struct {
	mu   sync.RWMutex
	byGo map[reflect.Type]Type
	goOf map[string]reflect.Type
}

// Default is the process-wide catalog.
var Default = NewCatalog()

// NewCatalog returns a catalog holding only the builtins.
func NewCatalog() *Catalog {
	c := &Catalog{
		byGo: make(map[reflect.Type]Type),
		goOf: make(map[string]reflect.Type),
	}
	for rt, t := range builtins() {
		c.byGo[rt] = t
		c.goOf[t.Key()] = rt
	}
	return c
}

// Bind associates a Go type with a concrete Type. Rebinding the same pair is
// a no-op; any other conflict is an error.
func (c *Catalog) Bind(rt reflect.Type, t Type) error {
	if rt == nil || t.IsZero() {
		return &DeclarationError{Reason: "bind needs a Go type and a Type"}
	}
	if !t.IsBound() {
		return &UnboundTypeError{Type: t}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.byGo[rt]; ok {
		if cur.Equal(t) {
			return nil
		}
		return &DeclarationError{Name: t.String(), Reason: fmt.Sprintf("Go type %v is already bound to %s", rt, cur)}
	}
	if cur, ok := c.goOf[t.Key()]; ok {
		return &DeclarationError{Name: t.String(), Reason: fmt.Sprintf("already bound to Go type %v", cur)}
	}
	c.byGo[rt] = t
	c.goOf[t.Key()] = rt
	return nil
}

// Lookup returns the Type bound to a Go type.
func (c *Catalog) Lookup(rt reflect.Type) (Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byGo[rt]
	return t, ok
}

// Require is Lookup returning an UndeclaredTypeError for unknown Go types.
func (c *Catalog) Require(rt reflect.Type) (Type, error) {
	if t, ok := c.Lookup(rt); ok {
		return t, nil
	}
	return Type{}, &UndeclaredTypeError{GoType: rt}
}

// TypeOf returns the Type bound to the dynamic Go type of v.
func (c *Catalog) TypeOf(v any) (Type, bool) {
	if v == nil {
		return Type{}, false
	}
	return c.Lookup(reflect.TypeOf(v))
}

// GoType returns the Go type bound to t.
func (c *Catalog) GoType(t Type) (reflect.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rt, ok := c.goOf[t.Key()]
	return rt, ok
}

// ── Generic helpers ───────────────────────────────────────────────────────────

// Declare creates a non-generic class for the Go type T and binds it.
//
//	var Logger = types.MustDeclare[*zap.Logger](types.Default, "Logger")
//	var Repo = types.MustDeclare[*SQLRepo](types.Default, "SQLRepo", types.Extends(Repository))
//
// Generic classes are declared with NewClass and their instantiations bound
// with Bind.
func Declare[T any](c *Catalog, name string, opts ...ClassOption) (Type, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()

	cls, err := NewClass(name, opts...)
	if err != nil {
		return Type{}, err
	}
	if cls.IsGeneric() {
		return Type{}, &DeclarationError{Name: name, Reason: "a Go type cannot carry an open generic class; bind its instantiations instead"}
	}

	for _, b := range cls.bases {
		bt, ok := c.GoType(b)
		if ok && bt.Kind() == reflect.Interface && !rt.Implements(bt) {
			return Type{}, &DeclarationError{Name: name, Reason: fmt.Sprintf("%v does not implement %v required by base %s", rt, bt, b)}
		}
	}

	if cls.ctor != nil {
		ft := reflect.TypeOf(cls.ctor.Fn)
		if ft.NumOut() == 0 || !ft.Out(0).AssignableTo(rt) {
			return Type{}, &DeclarationError{Name: name, Reason: fmt.Sprintf("constructor does not return %v", rt)}
		}
	}

	t := cls.Type()
	if err := c.Bind(rt, t); err != nil {
		return Type{}, err
	}
	return t, nil
}

// MustDeclare is like Declare but panics on error. Intended for package-level
// declarations.
func MustDeclare[T any](c *Catalog, name string, opts ...ClassOption) Type {
	t, err := Declare[T](c, name, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Bind associates the Go type T with t.
//
//	types.Bind[Box[int]](cat, box.Of(types.Int))
func Bind[T any](c *Catalog, t Type) error {
	return c.Bind(reflect.TypeOf((*T)(nil)).Elem(), t)
}

// For returns the Type bound to the Go type T.
func For[T any](c *Catalog) (Type, bool) {
	return c.Lookup(reflect.TypeOf((*T)(nil)).Elem())
}
