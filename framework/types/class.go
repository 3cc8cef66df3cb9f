package types

import (
	"fmt"
	"reflect"
	"sort"
	"sync/atomic"
)

// ── Variance ──────────────────────────────────────────────────────────────────

// Variance describes how a type parameter follows the subtype relation of
// its argument.
type Variance int

const (
	// Invariant parameters only accept identical arguments.
	Invariant Variance = iota
	// Covariant parameters follow the argument: G[B] <: G[A] when B <: A.
	Covariant
	// Contravariant parameters reverse the argument: G[A] <: G[B] when B <: A.
	Contravariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	default:
		return "invariant"
	}
}

// Param is a declared type parameter of a generic class.
type Param struct {
	Name     string
	Variance Variance
}

// Out declares a covariant parameter.
func Out(name string) Param { return Param{Name: name, Variance: Covariant} }

// In declares a contravariant parameter.
func In(name string) Param { return Param{Name: name, Variance: Contravariant} }

// Fixed declares an invariant parameter.
func Fixed(name string) Param { return Param{Name: name, Variance: Invariant} }

// ── Producer descriptions ─────────────────────────────────────────────────────

// Func pairs a Go function with the dependency names of its parameters, in
// order. Parameter types come from the catalog.
type Func struct {
	Fn     any
	Params []string
}

// MethodSpec declares how a module method is exposed as a provider.
type MethodSpec struct {
	// Method is the Go method name.
	Method string
	// Provides is the name the provider is registered under.
	Provides string
	// Params names the method's parameters, in order.
	Params []string
}

// ── Class ─────────────────────────────────────────────────────────────────────

// Class is a nominal type declaration: a name, type parameters, declared
// bases and, for modules, composition metadata. Classes are immutable once
// NewClass returns.
type Class struct {
	id       uint64
	name     string
	params   []Param
	bases    []Type
	marker   bool
	module   bool
	includes []Type
	ctor     *Func
	methods  map[string]MethodSpec
}

var classSeq atomic.Uint64

// ClassOption configures a Class under construction.
type ClassOption func(*Class)

// Params declares the class's type parameters.
func Params(params ...Param) ClassOption {
	return func(c *Class) { c.params = append(c.params, params...) }
}

// Extends declares direct bases. A base may reference the class's own
// parameters through Var.
//
//	list := types.MustClass("List", types.Params(types.Out("T")),
//	    types.Extends(iterable.Of(types.Var("T"))))
func Extends(bases ...Type) ClassOption {
	return func(c *Class) { c.bases = append(c.bases, bases...) }
}

// Marker flags a structural base that carries no resolvable behaviour. Markers
// are walked through but never exposed as interfaces.
func Marker() ClassOption {
	return func(c *Class) { c.marker = true }
}

// Module tags the class as a composition unit.
func Module() ClassOption {
	return func(c *Class) { c.module = true }
}

// Includes attaches the modules and plain classes a module pulls in.
func Includes(items ...Type) ClassOption {
	return func(c *Class) { c.includes = append(c.includes, items...) }
}

// Constructor declares the Go function that builds instances of the class,
// with the dependency names of its parameters.
//
//	types.Declare[*Mailer](cat, "Mailer",
//	    types.Constructor(NewMailer, "config", "logger"))
func Constructor(fn any, params ...string) ClassOption {
	return func(c *Class) { c.ctor = &Func{Fn: fn, Params: params} }
}

// Method names the parameters of a module method. The provider keeps the Go
// method name.
func Method(name string, params ...string) ClassOption {
	return MethodAs(name, name, params...)
}

// MethodAs is Method with a provider name that differs from the Go name.
//
//	types.MethodAs("LogPath", "log_path", "config_dir")
func MethodAs(name, provides string, params ...string) ClassOption {
	return func(c *Class) {
		if c.methods == nil {
			c.methods = make(map[string]MethodSpec)
		}
		c.methods[name] = MethodSpec{Method: name, Provides: provides, Params: params}
	}
}

// NewClass declares a class.
func NewClass(name string, opts ...ClassOption) (*Class, error) {
	c := &Class{id: classSeq.Add(1), name: name}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustClass is like NewClass but panics on a malformed declaration.
func MustClass(name string, opts ...ClassOption) *Class {
	c, err := NewClass(name, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Class) validate() error {
	if c.name == "" {
		return &DeclarationError{Reason: "class name is empty"}
	}

	declared := make(map[string]bool, len(c.params))
	for _, p := range c.params {
		if p.Name == "" || declared[p.Name] {
			return &DeclarationError{Name: c.name, Reason: fmt.Sprintf("invalid type parameter %q", p.Name)}
		}
		declared[p.Name] = true
	}

	for _, b := range c.bases {
		if b.IsZero() || b.IsVar() {
			return &DeclarationError{Name: c.name, Reason: "base must be a class type"}
		}
		for _, v := range b.freeVars(nil) {
			if !declared[v] {
				return &DeclarationError{Name: c.name, Reason: fmt.Sprintf("base %s uses undeclared parameter %s", b, v)}
			}
		}
	}

	if !c.module {
		if len(c.includes) > 0 {
			return &ModuleDeclarationError{Class: c.name, Reason: "includes attached to a non-module"}
		}
		if len(c.methods) > 0 {
			return &ModuleDeclarationError{Class: c.name, Reason: "provider methods attached to a non-module"}
		}
	} else if len(c.params) > 0 {
		return &ModuleDeclarationError{Class: c.name, Reason: "modules cannot be generic"}
	}

	for _, item := range c.includes {
		if item.IsZero() || !item.IsBound() || item.IsParameterized() || item.class.marker {
			return &InvalidIncludeError{Module: c.name, Item: item}
		}
	}

	if c.ctor != nil {
		ft := reflect.TypeOf(c.ctor.Fn)
		if ft == nil || ft.Kind() != reflect.Func {
			return &DeclarationError{Name: c.name, Reason: "constructor is not a function"}
		}
		if ft.IsVariadic() || ft.NumIn() != len(c.ctor.Params) {
			return &DeclarationError{Name: c.name, Reason: fmt.Sprintf("constructor takes %d parameters, %d names declared", ft.NumIn(), len(c.ctor.Params))}
		}
	}
	return nil
}

// Name returns the declared name.
func (c *Class) Name() string { return c.name }

// Params returns a copy of the declared type parameters.
func (c *Class) Params() []Param { return append([]Param(nil), c.params...) }

// Bases returns a copy of the declared bases.
func (c *Class) Bases() []Type { return append([]Type(nil), c.bases...) }

// IsGeneric reports whether the class declares type parameters.
func (c *Class) IsGeneric() bool { return len(c.params) > 0 }

// IsMarker reports whether the class is a structural marker.
func (c *Class) IsMarker() bool { return c.marker }

// IsModule reports whether the class is tagged as a module.
func (c *Class) IsModule() bool { return c.module }

// Includes returns a copy of the module's include list.
func (c *Class) Includes() []Type { return append([]Type(nil), c.includes...) }

// Constructor returns the declared constructor, if any.
func (c *Class) Constructor() (Func, bool) {
	if c.ctor == nil {
		return Func{}, false
	}
	return *c.ctor, true
}

// Method returns the declaration for a module method.
func (c *Class) Method(name string) (MethodSpec, bool) {
	m, ok := c.methods[name]
	return m, ok
}

// Methods returns the module method declarations, sorted by Go name.
func (c *Class) Methods() []MethodSpec {
	out := make([]MethodSpec, 0, len(c.methods))
	for _, m := range c.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

// Type returns the class as an unapplied type. For generic classes the
// result is open.
func (c *Class) Type() Type { return Type{class: c} }

// Of applies type arguments. The argument count must match the declared
// parameters.
func (c *Class) Of(args ...Type) Type {
	if len(args) != len(c.params) {
		panic(fmt.Sprintf("types: %s takes %d type arguments, got %d", c.name, len(c.params), len(args)))
	}
	if len(args) == 0 {
		return Type{class: c}
	}
	for _, a := range args {
		if a.IsZero() {
			panic(fmt.Sprintf("types: zero type argument for %s", c.name))
		}
	}
	return Type{class: c, args: append([]Type(nil), args...)}
}

func (c *Class) key() string { return fmt.Sprintf("%s#%d", c.name, c.id) }
