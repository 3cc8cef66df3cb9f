package container_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/km-arc/go-injector/framework/container"
	"github.com/km-arc/go-injector/framework/types"
)

// ── stub Go types ─────────────────────────────────────────────────────────────

type identified interface{ ID() string }

type first struct{}

func (*first) ID() string { return "first" }

type second struct{}

func (*second) ID() string { return "second" }

type clock struct{ now string }

type mailer struct {
	from  string
	clock *clock
}

var errSMTP = errors.New("smtp down")

type ping struct{ pong *pong }

type pong struct{ ping *ping }

type application struct {
	Dir   string `inject:"my_dir"`
	Clock *clock `inject:""`
	Port  int
}

type hidden struct {
	dir string `inject:"my_dir"`
}

type rock struct{}

// ── fixtures ──────────────────────────────────────────────────────────────────

// fixture is a catalog with a small hierarchy and a container over it.
type fixture struct {
	cat *types.Catalog
	c   *container.Container

	Identified types.Type // interface, A
	First      types.Type // *first extends Identified
	Second     types.Type // *second extends Identified
	Clock      types.Type
	App        types.Type
}

func newFixture(t *testing.T, opts ...container.Option) *fixture {
	t.Helper()
	cat := types.NewCatalog()

	f := &fixture{cat: cat}
	f.Identified = types.MustDeclare[identified](cat, "Identified")
	f.First = types.MustDeclare[*first](cat, "First", types.Extends(f.Identified))
	f.Second = types.MustDeclare[*second](cat, "Second", types.Extends(f.Identified))
	f.Clock = types.MustDeclare[*clock](cat, "Clock")
	f.App = types.MustDeclare[*application](cat, "Application")

	f.c = container.New(append([]container.Option{container.WithCatalog(cat)}, opts...)...)
	return f
}

// counted returns a callable building a fresh *clock and the counter of its
// calls.
func counted() (func() *clock, *atomic.Int64) {
	var n atomic.Int64
	return func() *clock {
		n.Add(1)
		return &clock{now: "noon"}
	}, &n
}

// stubResolver answers requests by name.
type stubResolver map[string]any

func (s stubResolver) Resolve(t types.Type, name string) (any, error) {
	if v, ok := s[name]; ok {
		return v, nil
	}
	return nil, &container.MissingDependencyError{Type: t, Name: name}
}

// slowProvider pauses, then resolves dep unnamed before returning value.
type slowProvider struct {
	typ   types.Type
	dep   types.Type
	value any
}

func (p *slowProvider) Type() types.Type { return p.typ }

func (p *slowProvider) Provide(r container.Resolver) (any, error) {
	time.Sleep(50 * time.Millisecond)
	if _, err := r.Resolve(p.dep, ""); err != nil {
		return nil, err
	}
	return p.value, nil
}

// newClock is a declared function, as opposed to a closure.
func newClock() *clock { return &clock{now: "noon"} }
