package container

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"

	"github.com/km-arc/go-injector/framework/types"
)

// ── Provider interface ────────────────────────────────────────────────────────

// Resolver builds a value for a type, optionally qualified by name. Providers
// receive one and must resolve their own dependencies through it.
type Resolver interface {
	Resolve(t types.Type, name string) (any, error)
}

// Provider produces a value of a declared type.
//
// The set of implementations is closed: InstanceProvider, CallableProvider,
// ConstructorProvider, AutowiredProvider, ModuleMethodProvider and the
// CachedProvider decorator the container wraps every registration in.
type Provider interface {
	// Type is the type of the produced value.
	Type() types.Type

	// Provide builds the value. Dependency failures are returned as they
	// come from the resolver; failures of the producer itself are returned
	// as *ProviderError.
	Provide(r Resolver) (any, error)
}

// Dependency is one named, typed input of a producer.
type Dependency struct {
	Name string
	Type types.Type
}

func (d Dependency) String() string { return describe(d.Type, d.Name) }

// ── InstanceProvider ──────────────────────────────────────────────────────────

// InstanceProvider always returns the same pre-built value.
type InstanceProvider struct {
	value any
	typ   types.Type
}

// NewInstanceProvider wraps value, declared as typ.
func NewInstanceProvider(value any, typ types.Type) *InstanceProvider {
	return &InstanceProvider{value: value, typ: typ}
}

func (p *InstanceProvider) Type() types.Type { return p.typ }

func (p *InstanceProvider) Provide(_ Resolver) (any, error) { return p.value, nil }

// ── CallableProvider ──────────────────────────────────────────────────────────

// CallableProvider calls a function with its dependencies each time it is
// asked for a value.
//
//	func NewMailer(cfg *config.Config, log *zap.Logger) (*Mailer, error)
//
//	p, err := container.NewCallableProvider(NewMailer, mailerType, []container.Dependency{
//	    {Name: "config", Type: configType},
//	    {Name: "logger", Type: loggerType},
//	})
type CallableProvider struct {
	fn   reflect.Value
	typ  types.Type
	deps []Dependency
}

// NewCallableProvider checks that fn takes exactly deps and returns a value,
// optionally followed by an error.
func NewCallableProvider(fn any, typ types.Type, deps []Dependency) (*CallableProvider, error) {
	fv := reflect.ValueOf(fn)
	if err := checkSignature(fv, len(deps), typ.String()); err != nil {
		return nil, err
	}
	return &CallableProvider{fn: fv, typ: typ, deps: append([]Dependency(nil), deps...)}, nil
}

func (p *CallableProvider) Type() types.Type { return p.typ }

// Dependencies returns the declared inputs, in call order.
func (p *CallableProvider) Dependencies() []Dependency {
	return append([]Dependency(nil), p.deps...)
}

func (p *CallableProvider) Provide(r Resolver) (any, error) {
	return invoke(r, p.fn, p.deps, p.typ)
}

// ── ConstructorProvider ───────────────────────────────────────────────────────

// ConstructorProvider builds a class through its declared constructor.
type ConstructorProvider struct {
	class types.Type
	fn    reflect.Value
	deps  []Dependency
}

// NewConstructorProvider binds the constructor declared on class.
func NewConstructorProvider(class types.Type, cat *types.Catalog) (*ConstructorProvider, error) {
	ctor, ok := class.Class().Constructor()
	if !ok {
		return nil, &InvalidProducerError{Producer: class.String(), Reason: "no constructor declared"}
	}
	fv := reflect.ValueOf(ctor.Fn)
	if err := checkSignature(fv, len(ctor.Params), class.String()); err != nil {
		return nil, err
	}
	deps, err := signatureDeps(cat, fv.Type(), ctor.Params, class.String())
	if err != nil {
		return nil, err
	}
	return &ConstructorProvider{class: class, fn: fv, deps: deps}, nil
}

func (p *ConstructorProvider) Type() types.Type { return p.class }

// Dependencies returns the constructor inputs, in call order.
func (p *ConstructorProvider) Dependencies() []Dependency {
	return append([]Dependency(nil), p.deps...)
}

func (p *ConstructorProvider) Provide(r Resolver) (any, error) {
	return invoke(r, p.fn, p.deps, p.class)
}

// ── AutowiredProvider ─────────────────────────────────────────────────────────

// InjectTag marks struct fields an AutowiredProvider fills. The tag value is
// the dependency name; an empty value uses the field name.
//
//	type Application struct {
//	    Dir    string      `inject:"my_dir"`
//	    Logger *zap.Logger `inject:""`
//	}
const InjectTag = "inject"

type injectField struct {
	index int
	dep   Dependency
}

// AutowiredProvider allocates a zero struct and sets each tagged field from
// the resolver, in declaration order. If any field fails, the half-built
// value is dropped.
type AutowiredProvider struct {
	class   types.Type
	elem    reflect.Type
	pointer bool
	fields  []injectField
}

// NewAutowiredProvider inspects the Go type bound to class.
func NewAutowiredProvider(class types.Type, cat *types.Catalog) (*AutowiredProvider, error) {
	rt, ok := cat.GoType(class)
	if !ok {
		return nil, &InvalidProducerError{Producer: class.String(), Reason: "no Go type bound in the catalog"}
	}

	p := &AutowiredProvider{class: class, elem: rt}
	if rt.Kind() == reflect.Pointer {
		p.elem, p.pointer = rt.Elem(), true
	}
	if p.elem.Kind() != reflect.Struct {
		return nil, &InvalidProducerError{Producer: class.String(), Reason: fmt.Sprintf("%v is not a struct and has no constructor", rt)}
	}

	for i := 0; i < p.elem.NumField(); i++ {
		sf := p.elem.Field(i)
		name, ok := sf.Tag.Lookup(InjectTag)
		if !ok {
			continue
		}
		if !sf.IsExported() {
			return nil, &InvalidProducerError{Producer: class.String(), Reason: fmt.Sprintf("field %s is not exported", sf.Name)}
		}
		if name == "" {
			name = sf.Name
		}
		ft, err := cat.Require(sf.Type)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s of %s", sf.Name, class)
		}
		p.fields = append(p.fields, injectField{index: i, dep: Dependency{Name: name, Type: ft}})
	}
	return p, nil
}

func (p *AutowiredProvider) Type() types.Type { return p.class }

// Dependencies returns the injected fields, in declaration order.
func (p *AutowiredProvider) Dependencies() []Dependency {
	deps := make([]Dependency, len(p.fields))
	for i, f := range p.fields {
		deps[i] = f.dep
	}
	return deps
}

func (p *AutowiredProvider) Provide(r Resolver) (any, error) {
	ptr := reflect.New(p.elem)
	for _, f := range p.fields {
		v, err := r.Resolve(f.dep.Type, f.dep.Name)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s of %s", p.elem.Field(f.index).Name, p.class)
		}
		field := ptr.Elem().Field(f.index)
		av, ok := assignable(v, field.Type())
		if !ok {
			return nil, &ProviderError{Type: p.class, Err: fmt.Errorf("field %s: %T is not assignable to %v", p.elem.Field(f.index).Name, v, field.Type())}
		}
		field.Set(av)
	}
	if p.pointer {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}

// ── ModuleMethodProvider ──────────────────────────────────────────────────────

// ModuleMethodProvider resolves a module instance, then calls one of its
// methods with the method's own dependencies.
type ModuleMethodProvider struct {
	module types.Type
	method string
	typ    types.Type
	deps   []Dependency
}

// NewModuleMethodProvider describes method m of the module's Go type. m must
// come from the bound Go type's method set, so its first input is the
// receiver.
func NewModuleMethodProvider(module types.Type, m reflect.Method, params []string, cat *types.Catalog) (*ModuleMethodProvider, error) {
	producer := fmt.Sprintf("%s.%s", module, m.Name)

	// Drop the receiver.
	in := make([]reflect.Type, 0, m.Type.NumIn())
	for i := 1; i < m.Type.NumIn(); i++ {
		in = append(in, m.Type.In(i))
	}
	out := make([]reflect.Type, 0, m.Type.NumOut())
	for i := 0; i < m.Type.NumOut(); i++ {
		out = append(out, m.Type.Out(i))
	}
	ft := reflect.FuncOf(in, out, m.Type.IsVariadic())

	if err := checkFuncType(ft, len(params), producer); err != nil {
		return nil, err
	}
	typ, err := cat.Require(ft.Out(0))
	if err != nil {
		return nil, errors.WithMessagef(err, "result of %s", producer)
	}
	deps, err := signatureDeps(cat, ft, params, producer)
	if err != nil {
		return nil, err
	}
	return &ModuleMethodProvider{module: module, method: m.Name, typ: typ, deps: deps}, nil
}

func (p *ModuleMethodProvider) Type() types.Type { return p.typ }

// Module returns the owning module type.
func (p *ModuleMethodProvider) Module() types.Type { return p.module }

// Dependencies returns the method inputs, in call order, without the module.
func (p *ModuleMethodProvider) Dependencies() []Dependency {
	return append([]Dependency(nil), p.deps...)
}

func (p *ModuleMethodProvider) Provide(r Resolver) (any, error) {
	module, err := r.Resolve(p.module, "")
	if err != nil {
		return nil, errors.WithMessagef(err, "module %s", p.module)
	}
	fn := reflect.ValueOf(module).MethodByName(p.method)
	if !fn.IsValid() {
		return nil, &ProviderError{Type: p.typ, Err: fmt.Errorf("%T has no method %s", module, p.method)}
	}
	return invoke(r, fn, p.deps, p.typ)
}

// ── CachedProvider ────────────────────────────────────────────────────────────

// CachedProvider memoizes the first value its subject produces. The subject
// is called at most once per CachedProvider; failed attempts are not
// remembered.
type CachedProvider struct {
	subject Provider

	mu    sync.Mutex
	done  bool
	value any
}

// NewCachedProvider wraps subject. Wrapping a CachedProvider returns it
// unchanged.
func NewCachedProvider(subject Provider) *CachedProvider {
	if c, ok := subject.(*CachedProvider); ok {
		return c
	}
	return &CachedProvider{subject: subject}
}

func (p *CachedProvider) Type() types.Type { return p.subject.Type() }

// Subject returns the wrapped provider.
func (p *CachedProvider) Subject() Provider { return p.subject }

// Resolved reports whether the value has been produced.
func (p *CachedProvider) Resolved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *CachedProvider) Provide(r Resolver) (any, error) {
	return p.provide(r, nil)
}

// provide calls hold once the lock is taken; the release func it returns runs
// before the lock is dropped.
func (p *CachedProvider) provide(r Resolver, hold func() (release func())) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hold != nil {
		defer hold()()
	}

	if p.done {
		return p.value, nil
	}
	v, err := p.subject.Provide(r)
	if err != nil {
		return nil, err
	}
	p.value, p.done = v, true
	return v, nil
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func checkSignature(fv reflect.Value, params int, producer string) error {
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return &InvalidProducerError{Producer: producer, Reason: "not a function"}
	}
	return checkFuncType(fv.Type(), params, producer)
}

func checkFuncType(ft reflect.Type, params int, producer string) error {
	switch {
	case ft.IsVariadic():
		return &InvalidProducerError{Producer: producer, Reason: "variadic functions are not supported"}
	case ft.NumIn() != params:
		return &InvalidProducerError{Producer: producer, Reason: fmt.Sprintf("takes %d parameters, %d dependencies declared", ft.NumIn(), params)}
	case ft.NumOut() == 1:
		return nil
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
		return nil
	}
	return &InvalidProducerError{Producer: producer, Reason: "must return a value, optionally followed by an error"}
}

// signatureDeps pairs parameter names with the catalog types of ft's inputs.
func signatureDeps(cat *types.Catalog, ft reflect.Type, names []string, producer string) ([]Dependency, error) {
	if len(names) != ft.NumIn() {
		return nil, &InvalidProducerError{Producer: producer, Reason: fmt.Sprintf("takes %d parameters, %d names declared", ft.NumIn(), len(names))}
	}
	deps := make([]Dependency, len(names))
	for i, name := range names {
		t, err := cat.Require(ft.In(i))
		if err != nil {
			return nil, errors.WithMessagef(err, "parameter %q of %s", name, producer)
		}
		deps[i] = Dependency{Name: name, Type: t}
	}
	return deps, nil
}

// invoke resolves deps in order, then calls fn.
func invoke(r Resolver, fn reflect.Value, deps []Dependency, typ types.Type) (any, error) {
	ft := fn.Type()
	args := make([]reflect.Value, len(deps))
	for i, d := range deps {
		v, err := r.Resolve(d.Type, d.Name)
		if err != nil {
			return nil, errors.WithMessagef(err, "parameter %q of %s", d.Name, typ)
		}
		av, ok := assignable(v, ft.In(i))
		if !ok {
			return nil, &ProviderError{Type: typ, Err: fmt.Errorf("parameter %q: %T is not assignable to %v", d.Name, v, ft.In(i))}
		}
		args[i] = av
	}

	out := fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, &ProviderError{Type: typ, Err: out[1].Interface().(error)}
	}
	return out[0].Interface(), nil
}

func assignable(v any, want reflect.Type) (reflect.Value, bool) {
	if v == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), true
		}
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(want) {
		return reflect.Value{}, false
	}
	return rv, true
}
