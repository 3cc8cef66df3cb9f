package container_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-injector/framework/config"
	"github.com/km-arc/go-injector/framework/container"
	"github.com/km-arc/go-injector/framework/types"
)

// ── RegisterClass / Resolve ───────────────────────────────────────────────────

func TestContainer_RegisterClass_ResolvesConcreteType(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterClass(f.First))

	v, err := f.c.Resolve(f.First, "")
	require.NoError(t, err)
	assert.IsType(t, &first{}, v)
}

func TestContainer_RegisterClass_DiscoverableUnderAncestors(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterClass(f.First))

	v, err := f.c.Resolve(f.Identified, "")
	require.NoError(t, err)
	assert.Equal(t, "first", v.(identified).ID())
}

func TestContainer_RegisterClass_Unbound(t *testing.T) {
	f := newFixture(t)
	g := types.MustClass("G", types.Params(types.Out("T")))

	err := f.c.RegisterClass(g.Type())
	var unbound *container.UnboundTypeError
	assert.ErrorAs(t, err, &unbound)
}

func TestContainer_Resolve_Singleton(t *testing.T) {
	f := newFixture(t)
	fn, n := counted()
	require.NoError(t, f.c.RegisterCallable(fn))

	a, err := f.c.Resolve(f.Clock, "")
	require.NoError(t, err)
	b, err := f.c.Resolve(f.Clock, "")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.EqualValues(t, 1, n.Load())
}

func TestContainer_Resolve_Unbound(t *testing.T) {
	f := newFixture(t)
	g := types.MustClass("G", types.Params(types.Out("T")))

	for name, typ := range map[string]types.Type{
		"open":       g.Type(),
		"nested var": g.Of(types.Var("T")),
		"zero":       {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.c.Resolve(typ, "")
			var unbound *container.UnboundTypeError
			assert.ErrorAs(t, err, &unbound)
		})
	}
}

func TestContainer_Resolve_Missing(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.Resolve(f.Clock, "wall")
	var missing *container.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.True(t, missing.Type.Equal(f.Clock))
	assert.Equal(t, "wall", missing.Name)
	assert.Contains(t, err.Error(), `Clock (name="wall")`)
}

// ── Ambiguity and names ───────────────────────────────────────────────────────

func TestContainer_Resolve_SiblingsAreAmbiguous(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterClass(f.First))
	require.NoError(t, f.c.RegisterClass(f.Second))

	_, err := f.c.Resolve(f.Identified, "")
	var amb *container.AmbiguousDependencyError
	require.ErrorAs(t, err, &amb)
	require.Len(t, amb.Candidates, 2)
	assert.Equal(t, "First", amb.Candidates[0].String())
	assert.Equal(t, "Second", amb.Candidates[1].String())

	v, err := f.c.Resolve(f.First, "")
	require.NoError(t, err)
	assert.IsType(t, &first{}, v)

	v, err = f.c.Resolve(f.Second, "")
	require.NoError(t, err)
	assert.IsType(t, &second{}, v)
}

func TestContainer_Resolve_NameDisambiguates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterClass(f.First, container.Named("primary")))
	require.NoError(t, f.c.RegisterClass(f.Second, container.Named("replica")))

	v, err := f.c.Resolve(f.Identified, "replica")
	require.NoError(t, err)
	assert.Equal(t, "second", v.(identified).ID())

	_, err = f.c.Resolve(f.Identified, "standby")
	var missing *container.MissingDependencyError
	assert.ErrorAs(t, err, &missing, "named registrations never match a different name")
}

func TestContainer_Resolve_NamedStrings(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterInstance("/etc/app", container.Named("config_dir")))
	require.NoError(t, f.c.RegisterInstance("/var/log", container.Named("log_dir")))

	v, err := f.c.Resolve(types.String, "config_dir")
	require.NoError(t, err)
	assert.Equal(t, "/etc/app", v)

	_, err = f.c.Resolve(types.String, "")
	var amb *container.AmbiguousDependencyError
	assert.ErrorAs(t, err, &amb)
}

func TestContainer_Resolve_UnnamedMatchesAnyName(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterInstance(8000))

	v, err := f.c.Resolve(types.Int, "port")
	require.NoError(t, err)
	assert.Equal(t, 8000, v)
}

func TestContainer_Resolve_ExactNamePreferred(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterInstance("anonymous"))
	require.NoError(t, f.c.RegisterInstance("tagged", container.Named("x")))

	v, err := f.c.Resolve(types.String, "x")
	require.NoError(t, err)
	assert.Equal(t, "tagged", v)

	v, err = f.c.Resolve(types.String, "y")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", v)

	_, err = f.c.Resolve(types.String, "")
	var amb *container.AmbiguousDependencyError
	assert.ErrorAs(t, err, &amb)
}

// ── Idempotence ───────────────────────────────────────────────────────────────

func TestContainer_Register_Idempotent(t *testing.T) {
	t.Run("class", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.c.RegisterClass(f.First))
		require.NoError(t, f.c.RegisterClass(f.First))

		_, err := f.c.Resolve(f.Identified, "")
		assert.NoError(t, err)
	})

	t.Run("instance", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.c.RegisterInstance("/etc/app"))
		require.NoError(t, f.c.RegisterInstance("/etc/app"))

		_, err := f.c.Resolve(types.String, "")
		assert.NoError(t, err)
	})

	t.Run("provider", func(t *testing.T) {
		f := newFixture(t)
		p := container.NewInstanceProvider(&clock{}, f.Clock)
		require.NoError(t, f.c.Register(p))
		require.NoError(t, f.c.Register(p))

		_, err := f.c.Resolve(f.Clock, "")
		assert.NoError(t, err)
	})
}

func TestContainer_Register_SameClassShareValue(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterClass(f.First))
	require.NoError(t, f.c.RegisterClass(f.First, container.Named("primary")))

	a, err := f.c.Resolve(f.First, "")
	require.NoError(t, err)
	b, err := f.c.Resolve(f.First, "primary")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

// ── RegisterInstance / RegisterCallable ───────────────────────────────────────

func TestContainer_RegisterInstance_Undeclared(t *testing.T) {
	f := newFixture(t)

	err := f.c.RegisterInstance(&rock{})
	var undeclared *container.UndeclaredTypeError
	assert.ErrorAs(t, err, &undeclared)

	err = f.c.RegisterInstance(nil)
	var invalid *container.InvalidProducerError
	assert.ErrorAs(t, err, &invalid)
}

func TestContainer_RegisterInstance_As(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterInstance(&first{}, container.As(f.Identified)))

	v, err := f.c.Resolve(f.Identified, "")
	require.NoError(t, err)
	assert.IsType(t, &first{}, v)

	_, err = f.c.Resolve(f.First, "")
	var missing *container.MissingDependencyError
	assert.ErrorAs(t, err, &missing, "the value is only known as Identified")

	err = f.c.RegisterInstance(&rock{}, container.As(f.Identified))
	var invalid *container.InvalidProducerError
	assert.ErrorAs(t, err, &invalid)
}

func TestContainer_RegisterCallable_Params(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterInstance("/etc/app", container.Named("config_dir")))
	require.NoError(t, f.c.RegisterCallable(
		func(dir string) string { return dir + "/app.log" },
		container.Named("log_path"), container.Params("config_dir"),
	))

	v, err := f.c.Resolve(types.String, "log_path")
	require.NoError(t, err)
	assert.Equal(t, "/etc/app/app.log", v)
}

func TestContainer_RegisterCallable_Deps(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterInstance(&clock{now: "noon"}))
	require.NoError(t, f.c.RegisterCallable(
		func(c any) string { return c.(*clock).now },
		container.Named("now"),
		container.Deps(container.Dependency{Name: "clock", Type: f.Clock}),
	))

	v, err := f.c.Resolve(types.String, "now")
	require.NoError(t, err)
	assert.Equal(t, "noon", v)
}

func TestContainer_RegisterCallable_Idempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterCallable(newClock))
	require.NoError(t, f.c.RegisterCallable(newClock))
	require.NoError(t, f.c.RegisterCallable(newClock, container.Named("wall")))

	a, err := f.c.Resolve(f.Clock, "")
	require.NoError(t, err)
	b, err := f.c.Resolve(f.Clock, "wall")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestContainer_RegisterCallable_ClosuresStayDistinct(t *testing.T) {
	f := newFixture(t)
	at := func(now string) func() *clock {
		return func() *clock { return &clock{now: now} }
	}
	require.NoError(t, f.c.RegisterCallable(at("noon"), container.Named("noon")))
	require.NoError(t, f.c.RegisterCallable(at("midnight"), container.Named("midnight")))

	v, err := f.c.Resolve(f.Clock, "midnight")
	require.NoError(t, err)
	assert.Equal(t, "midnight", v.(*clock).now)
	v, err = f.c.Resolve(f.Clock, "noon")
	require.NoError(t, err)
	assert.Equal(t, "noon", v.(*clock).now)
}

func TestContainer_RegisterCallable_Invalid(t *testing.T) {
	f := newFixture(t)
	var invalid *container.InvalidProducerError

	assert.ErrorAs(t, f.c.RegisterCallable("nope"), &invalid)
	assert.ErrorAs(t, f.c.RegisterCallable(func(dir string) string { return dir }), &invalid,
		"parameters need names")

	var undeclared *container.UndeclaredTypeError
	assert.ErrorAs(t, f.c.RegisterCallable(func() *rock { return nil }), &undeclared)
}

func TestContainer_Register_NilProvider(t *testing.T) {
	f := newFixture(t)
	var invalid *container.InvalidProducerError
	assert.ErrorAs(t, f.c.Register(nil), &invalid)
}

// ── Dependency graphs ─────────────────────────────────────────────────────────

func TestContainer_Resolve_ConstructorChain(t *testing.T) {
	f := newFixture(t)
	mt := types.MustDeclare[*mailer](f.cat, "Mailer", types.Constructor(
		func(from string, c *clock) *mailer { return &mailer{from: from, clock: c} },
		"from", "clock",
	))
	require.NoError(t, f.c.RegisterInstance("ops@example.com", container.Named("from")))
	require.NoError(t, f.c.RegisterCallable(func() *clock { return &clock{now: "noon"} }))
	require.NoError(t, f.c.RegisterClass(mt))

	m, err := container.Resolve[*mailer](f.c, "")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", m.from)

	ck, err := container.Resolve[*clock](f.c, "")
	require.NoError(t, err)
	assert.Same(t, ck, m.clock, "dependencies are shared singletons")
}

func TestContainer_Resolve_Autowired(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterInstance("/srv", container.Named("my_dir")))
	require.NoError(t, f.c.RegisterInstance(&clock{now: "noon"}))
	require.NoError(t, f.c.RegisterClass(f.App))

	app, err := container.Resolve[*application](f.c, "")
	require.NoError(t, err)
	assert.Equal(t, "/srv", app.Dir)
	assert.Equal(t, "noon", app.Clock.now)
}

func TestContainer_Resolve_AutowiredFailureNotExposed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterInstance("/srv", container.Named("my_dir")))
	require.NoError(t, f.c.RegisterClass(f.App))

	var built []string
	f.c.AfterResolving(func(t types.Type, _ string, _ any) { built = append(built, t.String()) })

	v, err := f.c.Resolve(f.App, "")
	assert.Nil(t, v)
	var missing *container.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.True(t, missing.Type.Equal(f.Clock))
	assert.Equal(t, []string{"string"}, built)

	// The failure is not memoized: registering the missing piece fixes it.
	require.NoError(t, f.c.RegisterInstance(&clock{}))
	_, err = f.c.Resolve(f.App, "")
	assert.NoError(t, err)
}

func TestContainer_Resolve_Cycle(t *testing.T) {
	f := newFixture(t)
	pi := types.MustDeclare[*ping](f.cat, "Ping", types.Constructor(
		func(p *pong) *ping { return &ping{pong: p} }, "pong",
	))
	po := types.MustDeclare[*pong](f.cat, "Pong", types.Constructor(
		func(p *ping) *pong { return &pong{ping: p} }, "ping",
	))
	require.NoError(t, f.c.RegisterClass(pi))
	require.NoError(t, f.c.RegisterClass(po))

	_, err := f.c.Resolve(pi, "")
	var cycle *container.CyclicDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"Ping", `Pong (name="pong")`, `Ping (name="ping")`}, cycle.Path)
}

// ── Variance ──────────────────────────────────────────────────────────────────

func TestContainer_Resolve_Variance(t *testing.T) {
	f := newFixture(t)
	a := types.MustClass("A").Type()
	b := types.MustClass("B", types.Extends(a)).Type()
	c := types.MustClass("C", types.Extends(b)).Type()

	out := types.MustClass("Source", types.Params(types.Out("T")))
	in := types.MustClass("Sink", types.Params(types.In("T")))
	fixed := types.MustClass("Cell", types.Params(types.Fixed("T")))

	require.NoError(t, f.c.RegisterInstance("source", container.As(out.Of(b))))
	require.NoError(t, f.c.RegisterInstance("sink", container.As(in.Of(b))))
	require.NoError(t, f.c.RegisterInstance("cell", container.As(fixed.Of(b))))

	tests := []struct {
		name string
		req  types.Type
		want any
	}{
		{"covariant wider", out.Of(a), "source"},
		{"covariant same", out.Of(b), "source"},
		{"covariant narrower", out.Of(c), nil},
		{"contravariant wider", in.Of(a), nil},
		{"contravariant same", in.Of(b), "sink"},
		{"contravariant narrower", in.Of(c), "sink"},
		{"invariant wider", fixed.Of(a), nil},
		{"invariant same", fixed.Of(b), "cell"},
		{"invariant narrower", fixed.Of(c), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := f.c.Resolve(tt.req, "")
			if tt.want == nil {
				var missing *container.MissingDependencyError
				assert.ErrorAs(t, err, &missing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

// ── Typed helpers ─────────────────────────────────────────────────────────────

func TestResolve_Generic(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterClass(f.First))

	v, err := container.Resolve[identified](f.c, "")
	require.NoError(t, err)
	assert.Equal(t, "first", v.ID())

	_, err = container.Resolve[*rock](f.c, "")
	var undeclared *container.UndeclaredTypeError
	assert.ErrorAs(t, err, &undeclared)

	assert.Panics(t, func() { container.MustResolve[*second](f.c, "") })
	assert.NotPanics(t, func() { container.MustResolve[*first](f.c, "") })
}

// ── Diagnostics ───────────────────────────────────────────────────────────────

func TestContainer_Bound(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterClass(f.First, container.Named("primary")))

	assert.True(t, f.c.Bound(f.Identified, ""))
	assert.True(t, f.c.Bound(f.First, "primary"))
	assert.False(t, f.c.Bound(f.First, "replica"))
	assert.False(t, f.c.Bound(f.Second, ""))
	assert.False(t, f.c.Bound(types.MustClass("G", types.Params(types.Out("T"))).Type(), ""))
}

func TestContainer_Interfaces(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterClass(f.Second))
	require.NoError(t, f.c.RegisterInstance(8000))

	assert.Equal(t, []string{"Identified", "Second", "int"}, f.c.Interfaces())
}

func TestContainer_ID(t *testing.T) {
	a := container.New()
	b := container.New(container.WithConfig(config.ContainerConfig{CacheSize: 8}))

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Same(t, types.Default, a.Catalog())
}

func TestContainer_AfterResolving(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.RegisterInstance("/srv", container.Named("my_dir")))
	require.NoError(t, f.c.RegisterInstance(&clock{}))
	require.NoError(t, f.c.RegisterClass(f.App))

	var names []string
	f.c.AfterResolving(func(t types.Type, name string, _ any) {
		names = append(names, t.String()+"/"+name)
	})

	_, err := f.c.Resolve(f.App, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"string/my_dir", "Clock/Clock", "Application/"}, names)
}

func TestContainer_LogsAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixture(t, container.WithLogger(zap.New(core)))

	require.NoError(t, f.c.RegisterClass(f.First))
	_, err := f.c.Resolve(f.First, "")
	require.NoError(t, err)

	registered := logs.FilterMessage("container: registered").All()
	require.Len(t, registered, 1)
	fields := registered[0].ContextMap()
	assert.Equal(t, f.c.ID(), fields["container"])
	assert.Equal(t, "First", fields["type"])
	assert.EqualValues(t, 2, fields["interfaces"])

	assert.Equal(t, 1, logs.FilterMessage("container: resolved").Len())
}

// ── Concurrency ───────────────────────────────────────────────────────────────

func TestContainer_Resolve_ConcurrentSingleton(t *testing.T) {
	f := newFixture(t)
	fn, n := counted()
	require.NoError(t, f.c.RegisterCallable(fn))

	var wg sync.WaitGroup
	got := make([]any, 32)
	for i := range got {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			got[i], _ = f.c.Resolve(f.Clock, "")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, n.Load())
	for _, v := range got {
		assert.Same(t, got[0], v)
	}
}

func TestContainer_Resolve_CycleAcrossGoroutines(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Register(&slowProvider{typ: f.First, dep: f.Second, value: &first{}}))
	require.NoError(t, f.c.Register(&slowProvider{typ: f.Second, dep: f.First, value: &second{}}))

	errs := make(chan error, 2)
	for _, typ := range []types.Type{f.First, f.Second} {
		typ := typ
		go func() {
			_, err := f.c.Resolve(typ, "")
			errs <- err
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			var cycle *container.CyclicDependencyError
			require.ErrorAs(t, err, &cycle)
			assert.GreaterOrEqual(t, len(cycle.Path), 3)
		case <-time.After(5 * time.Second):
			t.Fatal("cyclic resolution from two goroutines did not return")
		}
	}
}
