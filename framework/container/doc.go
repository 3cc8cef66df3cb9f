// Package container provides a type-indexed provider registry.
//
// # Overview
//
// Every registration is a Provider: something that knows the Type it
// produces and how to build it from a Resolver. The container files each
// provider under every interface its type linearizes to (see
// types.Linearize), so a value registered as a concrete class is found when
// any of its ancestors is requested.
//
// # Registering
//
//	// Pre-built value, typed through the catalog
//	c.RegisterInstance(cfg)
//	c.RegisterInstance("/etc/app", container.Named("config_dir"))
//
//	// Class: constructor if declared, otherwise `inject` tagged fields
//	c.RegisterClass(Mailer)
//
//	// Function, parameters named explicitly
//	c.RegisterCallable(func(dir string) string { return dir + "/app.log" },
//	    container.Named("log_path"), container.Params("config_dir"))
//
//	// Module: the module, its includes and its methods
//	c.RegisterModule(AppModule)
//
// Every provider is wrapped in a CachedProvider, so a registration builds its
// value at most once. Registering the same class, module method, comparable
// instance or Provider value again under the same name adds nothing.
//
// # Resolving
//
//	v, err := c.Resolve(Repository, "")
//	log, err := container.Resolve[*zap.Logger](c, "")
//
// A request selects the providers filed under its type whose own type is a
// subtype of it. Registrations without a name match any request; named ones
// only match unnamed requests and requests with the same name. A request
// name that matches exactly one registration picks it. Otherwise the request
// fails with MissingDependencyError when nothing matches and with
// AmbiguousDependencyError when several do.
//
// # Cycles
//
// Providers resolve their dependencies through the Resolver they are given,
// which knows the chain of requests above it. A provider needed again while
// it is still being built fails the request with CyclicDependencyError.
// The same holds when the two ends of a cycle are resolved from different
// goroutines: a request that would wait on a provider whose builder is itself
// waiting, directly or not, on the requester fails instead of blocking.
//
// # Modules
//
//	type appModule struct{}
//
//	func (appModule) LogPath(dir string) string { return dir + "/app.log" }
//
//	var AppModule = types.MustDeclare[appModule](types.Default, "AppModule",
//	    types.Module(),
//	    types.Includes(RoutingModule, Mailer),
//	    types.MethodAs("LogPath", "log_path", "config_dir"))
//
// RegisterModule registers AppModule, then RoutingModule (recursively), then
// Mailer, then a "log_path" provider calling LogPath on the resolved module.
package container
