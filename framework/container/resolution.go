package container

import (
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-injector/framework/types"
)

// resolution is one step of a resolve call tree. Providers receive the step
// that selected them, so every nested request knows the chain above it.
type resolution struct {
	c        *Container
	parent   *resolution
	provider *CachedProvider
	iface    types.Type
	name     string
}

func (r *resolution) Resolve(t types.Type, name string) (any, error) {
	if !t.IsBound() {
		return nil, &UnboundTypeError{Type: t}
	}

	p, err := r.c.lookup(t, name)
	if err != nil {
		return nil, err
	}
	if r.contains(p) {
		return nil, &CyclicDependencyError{Path: r.path(t, name)}
	}

	root := r.root()
	if tail, cyclic := r.c.waits.wait(root, waiter{provider: p, iface: t, name: name}); cyclic {
		return nil, &CyclicDependencyError{Path: append(r.path(t, name), tail...)}
	}

	step := &resolution{c: r.c, parent: r, provider: p, iface: t, name: name}
	v, err := p.provide(step, func() func() { return r.c.waits.hold(root, p) })
	if err != nil {
		return nil, err
	}

	r.c.log.Debug("container: resolved",
		zap.Stringer("type", t),
		zap.String("name", name),
		zap.Int("depth", step.depth()),
	)
	r.c.fireAfterResolving(t, name, v)
	return v, nil
}

func (r *resolution) contains(p *CachedProvider) bool {
	for s := r; s != nil; s = s.parent {
		if s.provider == p {
			return true
		}
	}
	return false
}

func (r *resolution) root() *resolution {
	s := r
	for s.parent != nil {
		s = s.parent
	}
	return s
}

func (r *resolution) depth() int {
	d := 0
	for s := r.parent; s != nil && s.provider != nil; s = s.parent {
		d++
	}
	return d
}

// path lists the requests from the root down to t.
func (r *resolution) path(t types.Type, name string) []string {
	var rev []string
	for s := r; s != nil && s.provider != nil; s = s.parent {
		rev = append(rev, describe(s.iface, s.name))
	}
	out := make([]string, 0, len(rev)+1)
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return append(out, describe(t, name))
}

// ── Cross-goroutine cycles ────────────────────────────────────────────────────

// waiter is the provider a resolve call tree is blocked on.
type waiter struct {
	provider *CachedProvider
	iface    types.Type
	name     string
}

// waitGraph tracks which resolve call tree is building each provider and
// which provider each tree waits for. A tree about to wait on a provider
// whose builders, followed through their own waits, lead back to itself
// would never be woken.
type waitGraph struct {
	mu      sync.Mutex
	holders map[*CachedProvider]*resolution
	waiting map[*resolution]waiter
}

func newWaitGraph() *waitGraph {
	return &waitGraph{
		holders: make(map[*CachedProvider]*resolution),
		waiting: make(map[*resolution]waiter),
	}
}

// wait records that root is about to block on w.provider. If that closes a
// cycle it records nothing and returns the requests other trees are blocked
// on, in order.
func (g *waitGraph) wait(root *resolution, w waiter) ([]string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var tail []string
	h := g.holders[w.provider]
	for hops := 0; h != nil && hops <= len(g.holders); hops++ {
		if h == root {
			return tail, true
		}
		next, ok := g.waiting[h]
		if !ok {
			break
		}
		tail = append(tail, describe(next.iface, next.name))
		h = g.holders[next.provider]
	}
	g.waiting[root] = w
	return nil, false
}

// hold records that root now builds p. The returned func undoes it.
func (g *waitGraph) hold(root *resolution, p *CachedProvider) func() {
	g.mu.Lock()
	delete(g.waiting, root)
	g.holders[p] = root
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		if g.holders[p] == root {
			delete(g.holders, p)
		}
		g.mu.Unlock()
	}
}
