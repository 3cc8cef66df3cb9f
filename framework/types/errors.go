package types

import (
	"fmt"
	"reflect"
)

// UnboundTypeError reports a type that still has unbound parameters where a
// concrete type is required.
type UnboundTypeError struct {
	Type Type
}

func (e *UnboundTypeError) Error() string {
	return fmt.Sprintf("types: %s has unbound type parameters", e.Type)
}

// DeclarationError reports a malformed class declaration or catalog binding.
type DeclarationError struct {
	Name   string
	Reason string
}

func (e *DeclarationError) Error() string {
	if e.Name == "" {
		return "types: " + e.Reason
	}
	return fmt.Sprintf("types: %s: %s", e.Name, e.Reason)
}

// ModuleDeclarationError reports module metadata on a class that is not a
// module, or a module that cannot be one.
type ModuleDeclarationError struct {
	Class  string
	Reason string
}

func (e *ModuleDeclarationError) Error() string {
	return fmt.Sprintf("types: %s is not a valid module: %s", e.Class, e.Reason)
}

// InvalidIncludeError reports an include item that is neither a module nor a
// plain class.
type InvalidIncludeError struct {
	Module string
	Item   Type
}

func (e *InvalidIncludeError) Error() string {
	return fmt.Sprintf("types: module %s cannot include %s", e.Module, e.Item)
}

// UndeclaredTypeError reports a Go type with no catalog binding.
type UndeclaredTypeError struct {
	GoType reflect.Type
}

func (e *UndeclaredTypeError) Error() string {
	return fmt.Sprintf("types: Go type %v is not declared in the catalog", e.GoType)
}
