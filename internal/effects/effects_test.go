package effects

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refscan/modgraph/internal/config"
	"github.com/refscan/modgraph/internal/fs"
	"github.com/refscan/modgraph/internal/graphbuilder"
	"github.com/refscan/modgraph/internal/jsast"
	"github.com/refscan/modgraph/internal/linker"
	"github.com/refscan/modgraph/internal/logger"
	"github.com/refscan/modgraph/internal/refs"
	"github.com/refscan/modgraph/internal/resolver"
	"github.com/refscan/modgraph/internal/valuemodel"
	"github.com/refscan/modgraph/internal/wellknown"
)

func newHandler(t *testing.T, graph *graphbuilder.Graph, files map[string]string) *Handler {
	t.Helper()
	res := resolver.NewFSResolver(fs.NewMockFS(files))
	lowerer := &wellknown.Lowerer{SourcePath: "/proj/src/index.js", Resolver: res, Target: config.CompileTarget{}}
	lnk := linker.New(graph, lowerer.Visit, linker.NewCache())
	return &Handler{
		Graph:      graph,
		Linker:     lnk,
		Log:        logger.NewLog(),
		SourcePath: "/proj/src/index.js",
		SourceDir:  "/proj/src",
		Suppressed: map[logger.Range]bool{},
	}
}

func requireEffect(kind graphbuilder.EffectKind, callee valuemodel.Value, args []valuemodel.Value) graphbuilder.Effect {
	return graphbuilder.Effect{Kind: kind, Callee: callee, Args: args}
}

func TestHandlerEmitsCjsReferenceForRequire(t *testing.T) {
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	graph.Effects = []graphbuilder.Effect{
		requireEffect(graphbuilder.EffectCall, &valuemodel.FreeVar{Kind: valuemodel.FreeVarRequire}, []valuemodel.Value{valuemodel.String("./a")}),
	}
	h := newHandler(t, graph, nil)

	out, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	cjs, ok := out[0].(*refs.CjsAssetReference)
	require.True(t, ok)
	require.Equal(t, "./a", cjs.Request.String())
}

func TestHandlerEmitsEsmReferenceForDynamicImport(t *testing.T) {
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	graph.Effects = []graphbuilder.Effect{
		requireEffect(graphbuilder.EffectCall, &valuemodel.FreeVar{Kind: valuemodel.FreeVarImport}, []valuemodel.Value{valuemodel.String("./b")}),
	}
	h := newHandler(t, graph, nil)

	out, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, ok := out[0].(*refs.EsmAssetReference)
	require.True(t, ok)
}

func TestHandlerRequireWrongArityEmitsErrorDiagnosticNoReference(t *testing.T) {
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	graph.Effects = []graphbuilder.Effect{
		requireEffect(graphbuilder.EffectCall, &valuemodel.FreeVar{Kind: valuemodel.FreeVarRequire}, []valuemodel.Value{valuemodel.String("a"), valuemodel.String("b")}),
	}
	h := newHandler(t, graph, nil)

	out, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
	msgs := h.Log.Done()
	require.Len(t, msgs, 1)
	require.Equal(t, logger.Error, msgs[0].Kind)
	require.Equal(t, logger.CodeRequire, msgs[0].Code)
}

func TestHandlerDynamicRequireLintsButStillEmits(t *testing.T) {
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	graph.Effects = []graphbuilder.Effect{
		requireEffect(graphbuilder.EffectCall, &valuemodel.FreeVar{Kind: valuemodel.FreeVarRequire},
			[]valuemodel.Value{valuemodel.NewUnknown(nil, "computed name")}),
	}
	h := newHandler(t, graph, nil)

	out, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	msgs := h.Log.Done()
	require.Len(t, msgs, 1)
	require.Equal(t, logger.Warning, msgs[0].Kind)
}

func TestHandlerDynamicRequireInsideNodeModulesSkipsLint(t *testing.T) {
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	graph.Effects = []graphbuilder.Effect{
		requireEffect(graphbuilder.EffectCall, &valuemodel.FreeVar{Kind: valuemodel.FreeVarRequire},
			[]valuemodel.Value{valuemodel.NewUnknown(nil, "computed name")}),
	}
	res := resolver.NewFSResolver(fs.NewMockFS(nil))
	lowerer := &wellknown.Lowerer{SourcePath: "/proj/node_modules/dep/index.js", Resolver: res, Target: config.CompileTarget{}}
	h := &Handler{
		Graph:      graph,
		Linker:     linker.New(graph, lowerer.Visit, linker.NewCache()),
		Log:        logger.NewLog(),
		SourcePath: "/proj/node_modules/dep/index.js",
		SourceDir:  "/proj/node_modules/dep",
		Suppressed: map[logger.Range]bool{},
	}

	out, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Empty(t, h.Log.Done())
}

func TestHandlerAlternativesCalleeDispatchesBoth(t *testing.T) {
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	graph.Effects = []graphbuilder.Effect{
		requireEffect(graphbuilder.EffectCall, &valuemodel.Alternatives{Values: []valuemodel.Value{
			&valuemodel.FreeVar{Kind: valuemodel.FreeVarRequire},
			&valuemodel.WellKnownFunction{Kind: valuemodel.WKImport},
		}}, []valuemodel.Value{valuemodel.String("./c")}),
	}
	h := newHandler(t, graph, nil)

	out, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestHandlerPathJoinFoldsAndEmitsSourceReference(t *testing.T) {
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	// A MemberCall effect: object is the "path" well-known module, callee
	// (the property) is "join".
	graph.Effects = []graphbuilder.Effect{{
		Kind:   graphbuilder.EffectMemberCall,
		Object: &valuemodel.Module{Name: "path"},
		Callee: valuemodel.String("join"),
		Args:   []valuemodel.Value{valuemodel.String("a"), valuemodel.String("b.js")},
	}}
	h := newHandler(t, graph, nil)

	out, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	src, ok := out[0].(*refs.SourceAssetReference)
	require.True(t, ok)
	require.Equal(t, "a/b.js", src.Pattern.String())
}

func TestHandlerSuppressedSpanIsSkipped(t *testing.T) {
	graph := &graphbuilder.Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	span := logger.Range{Loc: logger.Loc{Start: 5}}
	graph.Effects = []graphbuilder.Effect{
		{Kind: graphbuilder.EffectCall, Callee: &valuemodel.FreeVar{Kind: valuemodel.FreeVarRequire},
			Args: []valuemodel.Value{valuemodel.String("./a")}, Span: span},
	}
	h := newHandler(t, graph, nil)
	h.Suppressed[span] = true

	out, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}
