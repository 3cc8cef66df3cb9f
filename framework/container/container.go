package container

import (
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/go-injector/framework/types"
)

// ── Registry entries ──────────────────────────────────────────────────────────

// entry is one (provider, name) registration under an interface.
type entry struct {
	name     string
	provider *CachedProvider
}

// bucket holds every registration discoverable under one interface.
type bucket struct {
	iface   types.Type
	entries []entry
}

type classKey string

type methodKey struct {
	module string
	method string
}

type instanceKey struct {
	typ   string
	value any
}

type funcKey struct {
	pc   uintptr
	typ  string
	deps string
}

// Closures and method values share code between distinct func values.
var anonymousFunc = regexp.MustCompile(`\.func\d+(\.\d+)*$|-fm$|\[`)

// callableKey identifies a declared function registered with the same type
// and dependencies. Closures, method values and generic instantiations have
// no key.
func callableKey(fv reflect.Value, typ types.Type, deps []Dependency) any {
	pc := fv.Pointer()
	fn := runtime.FuncForPC(pc)
	if fn == nil || anonymousFunc.MatchString(fn.Name()) {
		return nil
	}
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = d.Type.Key() + "/" + d.Name
	}
	return funcKey{pc: pc, typ: typ.Key(), deps: strings.Join(parts, ",")}
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is a type-indexed provider registry.
//
// A provider registered for a type is discoverable under every interface the
// type linearizes to. Resolving a type picks the single provider whose type
// is a subtype of the request; names narrow the choice when several apply.
//
//	c := container.New(container.WithLogger(log))
//	_ = c.RegisterInstance("/etc/app", container.Named("config_dir"))
//	_ = c.RegisterModule(LogModule)
//	path, err := c.Resolve(types.String, "log_path")
//
// Registration and resolution are safe for concurrent use. Every provider is
// wrapped in a CachedProvider, so each registration builds its value once.
// A dependency cycle fails with CyclicDependencyError even when its ends are
// resolved from different goroutines.
type Container struct {
	id        string
	catalog   *types.Catalog
	hierarchy *types.Hierarchy
	log       *zap.Logger
	cacheSize int

	mu sync.RWMutex

	// interface key → registrations
	bindings map[string]*bucket

	// generic class → keys of its parameterized buckets, in creation order
	origins map[*types.Class][]string

	// provider identity → shared cached provider
	cached map[any]*CachedProvider

	// which resolution builds which provider, across goroutines
	waits *waitGraph

	// resolved callbacks
	afterResolving []func(types.Type, string, any)
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		id:        uuid.NewString(),
		catalog:   types.Default,
		log:       zap.NewNop(),
		cacheSize: types.DefaultCacheSize,
		bindings:  make(map[string]*bucket),
		origins:   make(map[*types.Class][]string),
		cached:    make(map[any]*CachedProvider),
		waits:     newWaitGraph(),
	}
	for _, opt := range opts {
		opt(c)
	}

	h, err := types.NewHierarchy(c.cacheSize)
	if err != nil {
		// cacheSize is always positive here.
		panic(err)
	}
	c.hierarchy = h
	c.log = c.log.With(zap.String("container", c.id))
	return c
}

// ID returns the container's instance id.
func (c *Container) ID() string { return c.id }

// Catalog returns the catalog the container maps Go types through.
func (c *Container) Catalog() *types.Catalog { return c.catalog }

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterInstance registers a pre-built value. Its type comes from the
// catalog unless As is given.
//
//	c.RegisterInstance(cfg)
//	c.RegisterInstance("/etc/app", container.Named("config_dir"))
func (c *Container) RegisterInstance(value any, opts ...RegisterOption) error {
	reg := newRegistration(opts)

	typ := reg.as
	if typ.IsZero() {
		if value == nil {
			return &InvalidProducerError{Producer: "nil instance", Reason: "needs As to declare its type"}
		}
		t, err := c.catalog.Require(reflect.TypeOf(value))
		if err != nil {
			return err
		}
		typ = t
	} else if rt, ok := c.catalog.GoType(typ); ok {
		if _, ok := assignable(value, rt); !ok {
			return &InvalidProducerError{Producer: typ.String(), Reason: fmt.Sprintf("instance of %T is not a %v", value, rt)}
		}
	}

	var id any
	if value != nil && reflect.ValueOf(value).Comparable() {
		id = instanceKey{typ: typ.Key(), value: value}
	}
	return c.add(id, NewInstanceProvider(value, typ), reg.name)
}

// RegisterClass registers a class. Classes with a declared constructor are
// built through it; the others are allocated and have their tagged fields
// injected.
//
//	var Mailer = types.MustDeclare[*Mailer](types.Default, "Mailer",
//	    types.Constructor(NewMailer, "config", "logger"))
//	c.RegisterClass(Mailer)
func (c *Container) RegisterClass(t types.Type, opts ...RegisterOption) error {
	reg := newRegistration(opts)
	if !t.IsBound() {
		return &UnboundTypeError{Type: t}
	}

	var (
		p   Provider
		err error
	)
	if _, ok := t.Class().Constructor(); ok {
		p, err = NewConstructorProvider(t, c.catalog)
	} else {
		p, err = NewAutowiredProvider(t, c.catalog)
	}
	if err != nil {
		return err
	}
	return c.add(classKey(t.Key()), p, reg.name)
}

// RegisterCallable registers a function called with its dependencies. Its
// type is the catalog type of its first result unless As is given.
//
// Registering the same declared function again with the same type and
// dependencies is a no-op. Closures cannot be told apart from other closures
// of the same literal, so each registration of one adds a provider.
//
//	c.RegisterCallable(func(dir string) string { return dir + "/app.log" },
//	    container.Named("log_path"), container.Params("config_dir"))
func (c *Container) RegisterCallable(fn any, opts ...RegisterOption) error {
	reg := newRegistration(opts)

	producer := fmt.Sprintf("%T", fn)
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return &InvalidProducerError{Producer: producer, Reason: "not a function"}
	}
	ft := fv.Type()
	if err := checkFuncType(ft, ft.NumIn(), producer); err != nil {
		return err
	}

	typ := reg.as
	if typ.IsZero() {
		t, err := c.catalog.Require(ft.Out(0))
		if err != nil {
			return err
		}
		typ = t
	}

	deps := reg.deps
	if !reg.hasDep {
		d, err := signatureDeps(c.catalog, ft, reg.params, typ.String())
		if err != nil {
			return err
		}
		deps = d
	}

	p, err := NewCallableProvider(fn, typ, deps)
	if err != nil {
		return err
	}
	return c.add(callableKey(fv, typ, deps), p, reg.name)
}

// Register inserts a provider built by the caller. Registering the same
// provider again under the same name is a no-op. Only Named applies.
func (c *Container) Register(p Provider, opts ...RegisterOption) error {
	if p == nil {
		return &InvalidProducerError{Producer: "nil provider", Reason: "nothing to register"}
	}
	reg := newRegistration(opts)

	var id any
	if reflect.ValueOf(p).Comparable() {
		id = p
	}
	return c.add(id, p, reg.name)
}

// add wraps p, or reuses the cached provider already registered for id, and
// files it under every interface of its type.
func (c *Container) add(id any, p Provider, name string) error {
	typ := p.Type()
	if !typ.IsBound() {
		return &UnboundTypeError{Type: typ}
	}
	ifaces := c.hierarchy.Linearize(typ)

	c.mu.Lock()
	defer c.mu.Unlock()

	var cp *CachedProvider
	if id != nil {
		cp = c.cached[id]
	}
	if cp == nil {
		cp = NewCachedProvider(p)
		if id != nil {
			c.cached[id] = cp
		}
	}

	added := 0
	for _, iface := range ifaces {
		if c.insert(iface, entry{name: name, provider: cp}) {
			added++
		}
	}

	c.log.Debug("container: registered",
		zap.Stringer("type", typ),
		zap.String("name", name),
		zap.Int("interfaces", len(ifaces)),
		zap.Int("added", added),
	)
	return nil
}

// insert adds e under iface unless the same provider already sits there
// under the same name. Caller holds mu.
func (c *Container) insert(iface types.Type, e entry) bool {
	key := iface.Key()
	b, ok := c.bindings[key]
	if !ok {
		b = &bucket{iface: iface}
		c.bindings[key] = b
		if iface.IsParameterized() {
			origin := iface.Class()
			c.origins[origin] = append(c.origins[origin], key)
		}
	}
	for _, cur := range b.entries {
		if cur.provider == e.provider && cur.name == e.name {
			return false
		}
	}
	b.entries = append(b.entries, e)
	return true
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve builds a value for t. An empty name resolves by type alone.
//
//	v, err := c.Resolve(Repository, "")
//	dir, err := c.Resolve(types.String, "config_dir")
func (c *Container) Resolve(t types.Type, name string) (any, error) {
	return (&resolution{c: c}).Resolve(t, name)
}

// Bound reports whether at least one provider satisfies the request.
func (c *Container) Bound(t types.Type, name string) bool {
	if !t.IsBound() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.candidates(t, name)) > 0
}

type candidate struct {
	entry
	exact bool
}

// lookup selects the single provider for a request.
func (c *Container) lookup(t types.Type, name string) (*CachedProvider, error) {
	c.mu.RLock()
	found := c.candidates(t, name)
	c.mu.RUnlock()

	if name != "" {
		var exact []candidate
		for _, cand := range found {
			if cand.exact {
				exact = append(exact, cand)
			}
		}
		if len(exact) == 1 {
			return exact[0].provider, nil
		}
	}

	switch len(found) {
	case 0:
		return nil, &MissingDependencyError{Type: t, Name: name}
	case 1:
		return found[0].provider, nil
	}

	err := &AmbiguousDependencyError{Type: t, Name: name}
	for _, cand := range found {
		err.Candidates = append(err.Candidates, Candidate{Type: cand.provider.Type(), Name: cand.name})
	}
	return nil, err
}

// candidates collects the eligible providers, once each, from the exact
// bucket then, for parameterized requests, from every bucket of the same
// generic class. Caller holds mu.
func (c *Container) candidates(t types.Type, name string) []candidate {
	keys := []string{t.Key()}
	if t.IsParameterized() {
		for _, k := range c.origins[t.Class()] {
			if k != keys[0] {
				keys = append(keys, k)
			}
		}
	}

	var (
		out   []candidate
		index = make(map[*CachedProvider]int)
	)
	for _, k := range keys {
		b, ok := c.bindings[k]
		if !ok {
			continue
		}
		for _, e := range b.entries {
			if e.name != "" && name != "" && e.name != name {
				continue
			}
			if ok, err := c.hierarchy.IsSubtype(e.provider.Type(), t); err != nil || !ok {
				continue
			}
			exact := name != "" && e.name == name
			if i, seen := index[e.provider]; seen {
				if exact && !out[i].exact {
					out[i] = candidate{entry: e, exact: true}
				}
				continue
			}
			index[e.provider] = len(out)
			out = append(out, candidate{entry: e, exact: exact})
		}
	}
	return out
}

// ── Typed helpers ─────────────────────────────────────────────────────────────

// Resolve builds a value for the Go type T, mapped through the container's
// catalog.
//
//	log, err := container.Resolve[*zap.Logger](c, "")
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	rt := reflect.TypeOf((*T)(nil)).Elem()
	t, err := c.catalog.Require(rt)
	if err != nil {
		return zero, err
	}
	v, err := c.Resolve(t, name)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		return zero, &ProviderError{Type: t, Err: fmt.Errorf("%T is not %v", v, rt)}
	}
	return out, nil
}

// MustResolve is like Resolve but panics on error.
//
//	router := container.MustResolve[*routing.Router](c, "")
func MustResolve[T any](c *Container, name string) T {
	v, err := Resolve[T](c, name)
	if err != nil {
		panic(err)
	}
	return v
}

// ── Diagnostics ───────────────────────────────────────────────────────────────

// Interfaces returns the interfaces with at least one registration, sorted.
func (c *Container) Interfaces() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings))
	for _, b := range c.bindings {
		out = append(out, b.iface.String())
	}
	sort.Strings(out)
	return out
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after every successful
// resolution, nested ones included.
//
//	c.AfterResolving(func(t types.Type, name string, v any) {
//	    log.Info("built", zap.Stringer("type", t))
//	})
func (c *Container) AfterResolving(cb func(t types.Type, name string, v any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireAfterResolving(t types.Type, name string, v any) {
	c.mu.RLock()
	cbs := slices.Clone(c.afterResolving)
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(t, name, v)
	}
}
