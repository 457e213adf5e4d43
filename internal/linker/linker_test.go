package linker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refscan/modgraph/internal/graphbuilder"
	"github.com/refscan/modgraph/internal/jsast"
	"github.com/refscan/modgraph/internal/valuemodel"
)

// passthroughVisitor never rewrites anything; it exercises substitution and
// normalization in isolation from well-known lowering (Component D has its
// own tests).
func passthroughVisitor(v valuemodel.Value) (valuemodel.Value, bool, error) {
	return v, false, nil
}

func TestLinkSubstitutesVariable(t *testing.T) {
	ref := jsast.Ref{Name: "x"}
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{
		ref: valuemodel.String("hello"),
	}}
	l := New(graph, passthroughVisitor, NewCache())

	got, err := l.Link(&valuemodel.Variable{Binding: ref})
	require.NoError(t, err)
	require.Equal(t, valuemodel.String("hello"), got)
}

func TestLinkFoldsConcatOfVariables(t *testing.T) {
	a := jsast.Ref{Name: "a"}
	b := jsast.Ref{Name: "b"}
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{
		a: valuemodel.String("foo"),
		b: valuemodel.String("bar"),
	}}
	l := New(graph, passthroughVisitor, NewCache())

	concat := &valuemodel.Concat{Parts: []valuemodel.Value{
		&valuemodel.Variable{Binding: a}, &valuemodel.Variable{Binding: b},
	}}
	got, err := l.Link(concat)
	require.NoError(t, err)
	s, ok := got.(*valuemodel.Constant)
	require.True(t, ok)
	str, _ := s.AsString()
	require.Equal(t, "foobar", str)
}

func TestLinkCircularReferenceBecomesUnknown(t *testing.T) {
	self := jsast.Ref{Name: "self"}
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	graph.Bindings[self] = &valuemodel.Variable{Binding: self}
	l := New(graph, passthroughVisitor, NewCache())

	got, err := l.Link(&valuemodel.Variable{Binding: self})
	require.NoError(t, err)
	_, ok := got.(*valuemodel.Unknown)
	require.True(t, ok)
}

func TestLinkMemoizesBindingResolution(t *testing.T) {
	calls := 0
	ref := jsast.Ref{Name: "x"}
	// A multi-node bound expression so re-expanding it (without the cache)
	// would visit several nodes, not just one.
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{
		ref: &valuemodel.Concat{Parts: []valuemodel.Value{valuemodel.String("foo"), valuemodel.String("bar")}},
	}}
	counting := func(v valuemodel.Value) (valuemodel.Value, bool, error) {
		calls++
		return v, false, nil
	}
	cache := NewCache()
	l := New(graph, counting, cache)

	_, err := l.Link(&valuemodel.Variable{Binding: ref})
	require.NoError(t, err)
	firstRoundCalls := calls

	calls = 0
	_, err = l.Link(&valuemodel.Variable{Binding: ref})
	require.NoError(t, err)
	// Only the outer Variable wrapper is revisited; the cached binding's
	// internal nodes (the two string leaves and their folded Concat) are
	// not re-walked through the visitor.
	require.Less(t, calls, firstRoundCalls)
}

// TestLinkConcurrentSiblingLinksOfSameBindingDoNotRace exercises the exact
// shape internal/effects' lazyArgs produces: two sibling arguments of one
// call (e.g. path.join(base, base + "/x")) both read the same binding.
// Neither traversal ever re-enters itself, so neither should ever observe
// a phantom cycle, no matter how their goroutines interleave.
func TestLinkConcurrentSiblingLinksOfSameBindingDoNotRace(t *testing.T) {
	base := jsast.Ref{Name: "base"}
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{
		base: valuemodel.String("/project/src"),
	}}

	for i := 0; i < 200; i++ {
		l := New(graph, passthroughVisitor, NewCache())
		var wg sync.WaitGroup
		results := make([]valuemodel.Value, 2)
		for j := 0; j < 2; j++ {
			j := j
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := l.Link(&valuemodel.Variable{Binding: base})
				require.NoError(t, err)
				results[j] = got
			}()
		}
		wg.Wait()

		for _, got := range results {
			_, isUnknown := got.(*valuemodel.Unknown)
			require.False(t, isUnknown, "sibling link of a non-circular binding must not resolve to Unknown")
			require.Equal(t, valuemodel.String("/project/src"), got)
		}
	}
}

func TestLinkAppliesVisitorAndReentersOnModification(t *testing.T) {
	ref := jsast.Ref{Name: "x"}
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{
		ref: valuemodel.String("a"),
	}}
	// A visitor that rewrites "a" to "b" exactly once (modified=true), then
	// leaves "b" alone, confirming the re-entry loop terminates correctly.
	rewriteOnce := func(v valuemodel.Value) (valuemodel.Value, bool, error) {
		if c, ok := v.(*valuemodel.Constant); ok {
			if s, _ := c.AsString(); s == "a" {
				return valuemodel.String("b"), true, nil
			}
		}
		return v, false, nil
	}
	l := New(graph, rewriteOnce, NewCache())

	got, err := l.Link(&valuemodel.Variable{Binding: ref})
	require.NoError(t, err)
	s, _ := got.(*valuemodel.Constant).AsString()
	require.Equal(t, "b", s)
}
