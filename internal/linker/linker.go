// Package linker implements Component C of the engine: spec.md §4.3's
// `link(graph, value, visitor, cache) → JsValue`, grounded directly on
// Turbopack's analyzer::linker (referenced from
// original_source/crates/turbopack/src/ecmascript/references.rs as
// `link(&var_graph, value, &linker, &cache)`).
package linker

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/refscan/modgraph/internal/graphbuilder"
	"github.com/refscan/modgraph/internal/jsast"
	"github.com/refscan/modgraph/internal/valuemodel"
)

// Visitor lowers a substituted, shallow-normalized value one step further
// (spec.md §4.3 "Visitor contract"); internal/wellknown supplies the one
// real implementation. The bool return is "modified?": true iff the
// visitor rewrote its input.
type Visitor func(v valuemodel.Value) (valuemodel.Value, bool, error)

// maxRewritePasses bounds the "re-enter to find further reductions" loop
// (spec.md §4.3) so a visitor bug that oscillates between two shapes can't
// hang a module's analysis; a confluent visitor (the contractual
// requirement) converges in a handful of passes.
const maxRewritePasses = 64

// Cache is the per-module LinkCache of spec.md §4.3/§5 ("created fresh for
// each invocation... safely usable across the module's internal concurrent
// links"). Memoization is keyed by binding id, per spec.md's "(binding-id,
// visitor-generation)" — since a fresh Cache is built per module, the
// generation component is always 1 and folds away. A bounded LRU (rather
// than an unbounded map) is the one piece of this repo's domain stack
// wired from github.com/hashicorp/golang-lru/v2: a module with a very
// large number of bindings still gets a bounded cache instead of growing
// without limit for the lifetime of one analysis. The LRU is internally
// synchronized, so concurrent sibling links (internal/effects links
// independent call arguments via errgroup) can share it directly; cycle
// detection is scoped per traversal instead (see linkState below), so it
// never needs locking here at all.
type Cache struct {
	memo *lru.Cache[jsast.Ref, valuemodel.Value]
}

func NewCache() *Cache {
	memo, err := lru.New[jsast.Ref, valuemodel.Value](4096)
	if err != nil {
		// Only returns an error for a non-positive size, which is a compile-time
		// constant here; this can't happen.
		panic(err)
	}
	return &Cache{memo: memo}
}

// linkState is the "currently expanding" set for one top-level Link call
// tree. It used to live on Cache and be shared (and mutex-guarded) across
// every concurrent sibling traversal internal/effects launches via
// errgroup — which meant one goroutine's legitimate, non-cyclic resolution
// of a binding could lose a race to a sibling goroutine resolving the same
// binding and get told "circular variable reference" even though neither
// traversal ever re-entered itself. Cycle detection only means anything
// within a single recursive descent, so it belongs to that descent alone:
// each call to the exported Link starts a fresh, goroutine-local linkState
// that is threaded through every internal recursive call instead, and two
// concurrent Link calls no longer interact at all.
type linkState struct {
	inProgress map[jsast.Ref]bool
}

func newLinkState() *linkState {
	return &linkState{inProgress: map[jsast.Ref]bool{}}
}

// Linker carries the per-module state: the variable graph to read
// bindings from, the well-known-lowering visitor, and the cache.
type Linker struct {
	Graph   *graphbuilder.Graph
	Visitor Visitor
	Cache   *Cache
}

func New(graph *graphbuilder.Graph, visitor Visitor, cache *Cache) *Linker {
	return &Linker{Graph: graph, Visitor: visitor, Cache: cache}
}

// Link walks v, substituting Variable(id) reads with their graph
// expression (recursively linked, with cycle protection), applying
// normalization and the well-known visitor bottom-up at every node, per
// spec.md §4.3. Each call starts its own linkState, so concurrent calls
// (e.g. sibling call arguments linked via errgroup in internal/effects)
// never share cycle-detection state.
func (l *Linker) Link(v valuemodel.Value) (valuemodel.Value, error) {
	return l.linkPass(v, 0, newLinkState())
}

func (l *Linker) linkPass(v valuemodel.Value, depth int, state *linkState) (valuemodel.Value, error) {
	substituted, err := l.substituteChildren(v, state)
	if err != nil {
		return nil, err
	}
	substituted = valuemodel.NormalizeShallow(substituted)

	rewritten, modified, err := l.Visitor(substituted)
	if err != nil {
		return nil, err
	}
	rewritten = valuemodel.NormalizeShallow(rewritten)

	if modified && depth < maxRewritePasses {
		return l.linkPass(rewritten, depth+1, state)
	}
	return rewritten, nil
}

// substituteChildren recurses into a value's children, replacing Variable
// nodes along the way, and reconstructs the parent node from the linked
// children (without yet applying the visitor to the parent — that's
// linkPass's job, to keep "substitute" and "visit" as the two distinct
// steps spec.md §4.3 describes).
func (l *Linker) substituteChildren(v valuemodel.Value, state *linkState) (valuemodel.Value, error) {
	switch t := v.(type) {
	case *valuemodel.Variable:
		return l.linkVariable(t.Binding, state)

	case *valuemodel.Array:
		elems, err := l.linkAll(t.Elements, state)
		if err != nil {
			return nil, err
		}
		return &valuemodel.Array{Elements: elems}, nil

	case *valuemodel.Object:
		entries := make([]valuemodel.ObjectEntry, len(t.Entries))
		for i, e := range t.Entries {
			linked, err := l.linkPass(e.Value, 0, state)
			if err != nil {
				return nil, err
			}
			entries[i] = valuemodel.ObjectEntry{Key: e.Key, Value: linked}
		}
		return &valuemodel.Object{Entries: entries}, nil

	case *valuemodel.Concat:
		parts, err := l.linkAll(t.Parts, state)
		if err != nil {
			return nil, err
		}
		return &valuemodel.Concat{Parts: parts}, nil

	case *valuemodel.Add:
		parts, err := l.linkAll(t.Parts, state)
		if err != nil {
			return nil, err
		}
		return &valuemodel.Add{Parts: parts}, nil

	case *valuemodel.Logical:
		parts, err := l.linkAll(t.Parts, state)
		if err != nil {
			return nil, err
		}
		return &valuemodel.Logical{Op: t.Op, Parts: parts}, nil

	case *valuemodel.Alternatives:
		values, err := l.linkAll(t.Values, state)
		if err != nil {
			return nil, err
		}
		return valuemodel.AlternativesOf(values), nil

	case *valuemodel.Call:
		callee, err := l.linkPass(t.Callee, 0, state)
		if err != nil {
			return nil, err
		}
		args, err := l.linkAll(t.Args, state)
		if err != nil {
			return nil, err
		}
		return valuemodel.CallOf(callee, args), nil

	case *valuemodel.Member:
		obj, err := l.linkPass(t.Object, 0, state)
		if err != nil {
			return nil, err
		}
		prop, err := l.linkPass(t.Property, 0, state)
		if err != nil {
			return nil, err
		}
		return valuemodel.MemberOf(obj, prop), nil

	default:
		// Leaf values (Constant, FreeVar, Module, Argument, WellKnownFunction,
		// WellKnownObject, Unknown) have no children to substitute.
		return v, nil
	}
}

func (l *Linker) linkAll(values []valuemodel.Value, state *linkState) ([]valuemodel.Value, error) {
	out := make([]valuemodel.Value, len(values))
	for i, v := range values {
		linked, err := l.linkPass(v, 0, state)
		if err != nil {
			return nil, err
		}
		out[i] = linked
	}
	return out, nil
}

// linkVariable resolves a binding id to its fully linked value, with
// cycle safety (spec.md §4.3): a binding encountered while its own
// expansion is in progress *within this traversal* resolves to
// Unknown("circular variable reference"); completed results are memoized
// in l.Cache and shared across traversals (including concurrent ones),
// since a finished resolution can never become a cycle.
func (l *Linker) linkVariable(id jsast.Ref, state *linkState) (valuemodel.Value, error) {
	if cached, ok := l.Cache.memo.Get(id); ok {
		return cached, nil
	}

	if state.inProgress[id] {
		return valuemodel.NewUnknown(&valuemodel.Variable{Binding: id}, "circular variable reference"), nil
	}
	state.inProgress[id] = true
	defer delete(state.inProgress, id)

	expr, ok := l.Graph.Bindings[id]
	if !ok {
		return valuemodel.NewUnknown(nil, fmt.Sprintf("reference to unknown binding %q", id.Name)), nil
	}

	linked, err := l.linkPass(expr, 0, state)
	if err != nil {
		return nil, err
	}

	l.Cache.memo.Add(id, linked)
	return linked, nil
}
