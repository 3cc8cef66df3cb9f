package types

import "strings"

// Type is a class, optionally applied to type arguments, or a type variable
// used inside base declarations. The zero Type is invalid.
type Type struct {
	class *Class
	args  []Type
	vname string
}

// Var references a type parameter of the class being declared.
func Var(name string) Type { return Type{vname: name} }

// IsZero reports whether t is the zero Type.
func (t Type) IsZero() bool { return t.class == nil && t.vname == "" }

// IsVar reports whether t is a type variable.
func (t Type) IsVar() bool { return t.class == nil && t.vname != "" }

// Class returns the un-parameterized origin of t, nil for variables.
func (t Type) Class() *Class { return t.class }

// Args returns a copy of the type arguments.
func (t Type) Args() []Type { return append([]Type(nil), t.args...) }

// IsParameterized reports whether t carries type arguments.
func (t Type) IsParameterized() bool { return len(t.args) > 0 }

// IsBound reports whether t is concrete: a class whose parameters are all
// bound to concrete arguments. Open types can be neither registered nor
// resolved.
func (t Type) IsBound() bool {
	if t.class == nil || len(t.args) != len(t.class.params) {
		return false
	}
	for _, a := range t.args {
		if !a.IsBound() {
			return false
		}
	}
	return true
}

// Equal reports whether t and o denote the same type.
func (t Type) Equal(o Type) bool { return t.Key() == o.Key() }

// Key returns a canonical identity for t, suitable as a map key. Two classes
// with the same name still produce distinct keys.
func (t Type) Key() string {
	var b strings.Builder
	t.write(&b, true)
	return b.String()
}

func (t Type) String() string {
	if t.IsZero() {
		return "<invalid>"
	}
	var b strings.Builder
	t.write(&b, false)
	return b.String()
}

func (t Type) write(b *strings.Builder, identity bool) {
	switch {
	case t.IsVar():
		b.WriteString("$")
		b.WriteString(t.vname)
		return
	case t.class == nil:
		return
	}
	if identity {
		b.WriteString(t.class.key())
	} else {
		b.WriteString(t.class.name)
	}
	if len(t.args) == 0 {
		return
	}
	b.WriteByte('[')
	for i, a := range t.args {
		if i > 0 {
			b.WriteString(", ")
		}
		a.write(b, identity)
	}
	b.WriteByte(']')
}

// env maps the class's parameter names to t's arguments.
func (t Type) env() map[string]Type {
	if t.class == nil || len(t.args) == 0 {
		return nil
	}
	env := make(map[string]Type, len(t.args))
	for i, p := range t.class.params {
		env[p.Name] = t.args[i]
	}
	return env
}

func (t Type) subst(env map[string]Type) Type {
	if len(env) == 0 {
		return t
	}
	if t.IsVar() {
		if r, ok := env[t.vname]; ok {
			return r
		}
		return t
	}
	if len(t.args) == 0 {
		return t
	}
	args := make([]Type, len(t.args))
	for i, a := range t.args {
		args[i] = a.subst(env)
	}
	return Type{class: t.class, args: args}
}

func (t Type) freeVars(acc []string) []string {
	if t.IsVar() {
		return append(acc, t.vname)
	}
	for _, a := range t.args {
		acc = a.freeVars(acc)
	}
	return acc
}
