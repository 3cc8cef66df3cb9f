// Package types is the declared type model the container indexes providers
// by.
//
// Go has no runtime view of class hierarchies or generic variance, so both
// are declared explicitly. A Class names a type, its type parameters (each
// with a Variance) and its bases. A Catalog binds Go types to Types so that
// values, function signatures and struct fields can be mapped onto the
// model.
//
// # Declaring
//
//	var (
//	    cat    = types.NewCatalog()
//	    Animal = types.MustDeclare[Animal](cat, "Animal")
//	    Dog    = types.MustDeclare[*Dog](cat, "Dog", types.Extends(Animal))
//
//	    // generic: Source[T] is covariant in T
//	    source = types.MustClass("Source", types.Params(types.Out("T")))
//	    Kennel = types.MustDeclare[*Kennel](cat, "Kennel", types.Extends(source.Of(Dog)))
//	)
//
// # Hierarchy
//
// Linearize lists every interface a type is discoverable under:
//
//	types.Linearize(Kennel) // Kennel, Source[Dog], Source[Animal]
//
// IsSubtype decides whether a provider's type satisfies a request:
//
//	ok, _ := types.IsSubtype(Kennel, source.Of(Animal)) // true
//
// Types with unbound parameters (source.Type(), or anything mentioning
// types.Var) can be neither registered nor resolved.
package types
