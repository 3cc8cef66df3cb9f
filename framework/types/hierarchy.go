package types

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

const (
	// MaxDepth bounds ancestor expansion so self-growing generic bases
	// terminate.
	MaxDepth = 64

	// DefaultCacheSize is the number of linearizations a Hierarchy keeps.
	DefaultCacheSize = 1024
)

// Hierarchy computes interface sets and the subtype relation over declared
// classes. Linearizations are memoized; classes are immutable, so entries
// never go stale.
type Hierarchy struct {
	cache *lru.Cache[string, []Type]
}

// NewHierarchy returns a Hierarchy remembering up to size linearizations.
func NewHierarchy(size int) (*Hierarchy, error) {
	cache, err := lru.New[string, []Type](size)
	if err != nil {
		return nil, errors.Wrapf(err, "types: hierarchy cache of size %d", size)
	}
	return &Hierarchy{cache: cache}, nil
}

var std = func() *Hierarchy {
	h, err := NewHierarchy(DefaultCacheSize)
	if err != nil {
		panic(err)
	}
	return h
}()

// Linearize uses the package hierarchy. See Hierarchy.Linearize.
func Linearize(t Type) []Type { return std.Linearize(t) }

// IsSubtype uses the package hierarchy. See Hierarchy.IsSubtype.
func IsSubtype(lhs, rhs Type) (bool, error) { return std.IsSubtype(lhs, rhs) }

// ── Linearization ─────────────────────────────────────────────────────────────

// Linearize returns every interface t is discoverable under: t itself, then
// its ancestors depth-first, each once. Markers and unbound types are never
// returned, but their own bases are still visited, so an open generic class
// exposes its plain ancestors. Parameterized ancestors are also widened
// along covariant parameters.
//
//	// P extends G[B], G covariant, B extends A
//	types.Linearize(p) // P, G[B], G[A]
func (h *Hierarchy) Linearize(t Type) []Type {
	if t.class == nil {
		return nil
	}
	key := t.Key()
	if cached, ok := h.cache.Get(key); ok {
		return append([]Type(nil), cached...)
	}

	var out []Type
	h.walk(t, 0, make(map[string]bool), &out)
	h.cache.Add(key, out)
	return append([]Type(nil), out...)
}

func (h *Hierarchy) walk(t Type, depth int, seen map[string]bool, out *[]Type) {
	if depth > MaxDepth || t.class == nil {
		return
	}
	key := t.Key()
	if seen[key] {
		return
	}
	seen[key] = true

	bound := t.IsBound()
	if bound && !t.class.marker {
		*out = append(*out, t)
	}
	if bound && t.IsParameterized() {
		h.widen(t, depth, seen, out)
	}

	env := t.env()
	for _, b := range t.class.bases {
		h.walk(b.subst(env), depth+1, seen, out)
	}
}

// widen visits t with each covariant argument replaced by one of its
// ancestors.
func (h *Hierarchy) widen(t Type, depth int, seen map[string]bool, out *[]Type) {
	for i, p := range t.class.params {
		if p.Variance != Covariant {
			continue
		}
		for _, up := range h.Linearize(t.args[i]) {
			if up.Equal(t.args[i]) {
				continue
			}
			args := append([]Type(nil), t.args...)
			args[i] = up
			h.walk(Type{class: t.class, args: args}, depth+1, seen, out)
		}
	}
}

// ── Subtyping ─────────────────────────────────────────────────────────────────

// IsSubtype reports whether lhs can stand in for rhs. Both must be bound.
//
// A plain rhs must be one of lhs's interfaces. A parameterized rhs needs an
// ancestor of lhs with the same origin whose arguments agree position by
// position: covariant arguments are subtypes, contravariant arguments are
// supertypes, invariant arguments are identical.
func (h *Hierarchy) IsSubtype(lhs, rhs Type) (bool, error) {
	if !lhs.IsBound() {
		return false, &UnboundTypeError{Type: lhs}
	}
	if !rhs.IsBound() {
		return false, &UnboundTypeError{Type: rhs}
	}
	return h.subtype(lhs, rhs), nil
}

func (h *Hierarchy) subtype(lhs, rhs Type) bool {
	if lhs.Equal(rhs) {
		return true
	}

	ancestors := h.Linearize(lhs)
	if !rhs.IsParameterized() {
		for _, a := range ancestors {
			if a.Equal(rhs) {
				return true
			}
		}
		return false
	}

	for _, a := range ancestors {
		if a.class == rhs.class && a.IsParameterized() && h.argsAgree(a, rhs) {
			return true
		}
	}
	return false
}

func (h *Hierarchy) argsAgree(lhs, rhs Type) bool {
	for i, p := range rhs.class.params {
		l, r := lhs.args[i], rhs.args[i]
		switch p.Variance {
		case Covariant:
			if !h.subtype(l, r) {
				return false
			}
		case Contravariant:
			if !h.subtype(r, l) {
				return false
			}
		default:
			if !l.Equal(r) {
				return false
			}
		}
	}
	return true
}
