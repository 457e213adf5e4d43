// Package effects implements Component F of the engine, spec.md §4.6: the
// effect handler that walks the graph builder's Effect list, links each
// callee through the linker with the well-known-lowering visitor, and
// dispatches on the fully linked callee to produce reference records and
// diagnostics. Grounded on references.rs's `handle_call`/`handle_free_var`
// dispatch (original_source/crates/turbopack/src/ecmascript/references.rs),
// with argument linking parallelized via golang.org/x/sync/errgroup to
// mirror that file's `try_join_all(args.iter().map(|arg| link(...)))`.
package effects

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/refscan/modgraph/internal/graphbuilder"
	"github.com/refscan/modgraph/internal/helpers"
	"github.com/refscan/modgraph/internal/linker"
	"github.com/refscan/modgraph/internal/logger"
	"github.com/refscan/modgraph/internal/refs"
	"github.com/refscan/modgraph/internal/request"
	"github.com/refscan/modgraph/internal/valuemodel"
)

// Handler carries the state the dispatch table of spec.md §4.6 needs:
// where the diagnostics surface, which spans are already accounted for by
// the webpack runtime state machine (Component E), and the source's own
// location for building relative references.
type Handler struct {
	Graph      *graphbuilder.Graph
	Linker     *linker.Linker
	Log        logger.Log
	Source     *logger.Source
	SourcePath string
	SourceDir  string

	// Suppressed holds the spans the syntactic visitor's webpack-5 runtime
	// marker detection has already claimed, per spec.md §4.5/§4.6 step 1.
	Suppressed map[logger.Range]bool

	FromTypescript bool
}

// Run iterates the graph's effects in order and returns the accumulated
// reference records (diagnostics are pushed to h.Log as a side effect).
func (h *Handler) Run(ctx context.Context) ([]refs.Reference, error) {
	var out []refs.Reference
	for _, eff := range h.Graph.Effects {
		if h.Suppressed[eff.Span] {
			continue
		}
		found, err := h.handleEffect(ctx, eff)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func (h *Handler) handleEffect(ctx context.Context, eff graphbuilder.Effect) ([]refs.Reference, error) {
	callee, err := h.linkCallee(eff)
	if err != nil {
		return nil, err
	}
	args := newLazyArgs(ctx, h.Linker, eff.Args)
	return h.dispatch(callee, eff, args)
}

// linkCallee implements spec.md §4.6 step 2: a plain call links its callee
// directly; a member call first links the receiver, builds
// Member(linked-object, property) (linking the property expression too,
// since `obj[expr]()` is legal), and links that member access as a whole so
// the structural Member→WellKnownFunction reductions of §4.4 rule 10 fire.
func (h *Handler) linkCallee(eff graphbuilder.Effect) (valuemodel.Value, error) {
	if eff.Kind != graphbuilder.EffectMemberCall {
		return h.Linker.Link(eff.Callee)
	}
	obj, err := h.Linker.Link(eff.Object)
	if err != nil {
		return nil, err
	}
	prop, err := h.Linker.Link(eff.Callee)
	if err != nil {
		return nil, err
	}
	return h.Linker.Link(valuemodel.MemberOf(obj, prop))
}

// lazyArgs is the `linked_args()` thunk of spec.md §4.6 step 2: arguments
// are linked only when a dispatch rule actually needs them, and the result
// is memoized and shared if more than one rule (e.g. an Alternatives
// recursion) ends up asking for it.
type lazyArgs struct {
	ctx    context.Context
	linker *linker.Linker
	raw    []valuemodel.Value
	linked []valuemodel.Value
	done   bool
}

func newLazyArgs(ctx context.Context, l *linker.Linker, raw []valuemodel.Value) *lazyArgs {
	return &lazyArgs{ctx: ctx, linker: l, raw: raw}
}

func (a *lazyArgs) get() ([]valuemodel.Value, error) {
	if a.done {
		return a.linked, nil
	}
	out := make([]valuemodel.Value, len(a.raw))
	g, _ := errgroup.WithContext(a.ctx)
	for i, arg := range a.raw {
		i, arg := i, arg
		g.Go(func() error {
			linked, err := a.linker.Link(arg)
			if err != nil {
				return err
			}
			out[i] = linked
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.linked = out
	a.done = true
	return out, nil
}

func (h *Handler) dispatch(callee valuemodel.Value, eff graphbuilder.Effect, args *lazyArgs) ([]refs.Reference, error) {
	switch t := callee.(type) {
	case *valuemodel.Alternatives:
		var out []refs.Reference
		for _, alt := range t.Values {
			found, err := h.dispatch(alt, eff, args)
			if err != nil {
				return nil, err
			}
			out = append(out, found...)
		}
		return out, nil

	case *valuemodel.WellKnownFunction:
		return h.dispatchWellKnown(t, eff, args)

	default:
		return nil, nil
	}
}

func (h *Handler) dispatchWellKnown(fn *valuemodel.WellKnownFunction, eff graphbuilder.Effect, args *lazyArgs) ([]refs.Reference, error) {
	linkedArgs, err := args.get()
	if err != nil {
		return nil, err
	}

	switch fn.Kind {
	case valuemodel.WKImport:
		return h.dynamicRequestEffect(linkedArgs, eff, logger.CodeDynamicImport, true)

	case valuemodel.WKRequire:
		return h.dynamicRequestEffect(linkedArgs, eff, logger.CodeRequire, false)

	case valuemodel.WKRequireResolve:
		return h.dynamicRequestEffect(linkedArgs, eff, logger.CodeRequireResolve, false)

	case valuemodel.WKFsReadMethod:
		if len(linkedArgs) < 1 {
			return nil, nil
		}
		pattern := request.ValueToPattern(linkedArgs[0])
		h.lintIfDynamic(pattern, eff.Span, logger.CodeFsMethod)
		return []refs.Reference{&refs.SourceAssetReference{
			SourceDir: h.SourceDir, Pattern: pattern, SpanRange: eff.Span,
		}}, nil

	case valuemodel.WKPathJoin:
		joined, err := h.Linker.Link(&valuemodel.Call{Callee: fn, Args: linkedArgs})
		if err != nil {
			return nil, err
		}
		pattern := request.ValueToPattern(joined)
		h.lintIfDynamic(pattern, eff.Span, logger.CodePathMethod)
		return []refs.Reference{&refs.SourceAssetReference{
			SourceDir: h.SourceDir, Pattern: pattern, SpanRange: eff.Span,
		}}, nil

	case valuemodel.WKChildProcessSpawnMethod:
		if len(linkedArgs) < 1 {
			return nil, nil
		}
		argv0 := request.ValueToPattern(linkedArgs[0])
		h.lintIfDynamic(argv0, eff.Span, logger.CodeChildProcessSpawn)
		out := []refs.Reference{&refs.SourceAssetReference{
			SourceDir: h.SourceDir, Pattern: argv0, SpanRange: eff.Span,
		}}
		if argv0.IsMatch("node") && len(linkedArgs) >= 2 {
			if arr, ok := linkedArgs[1].(*valuemodel.Array); ok && len(arr.Elements) >= 1 {
				scriptPattern := request.ValueToPattern(arr.Elements[0])
				out = append(out, &refs.CjsAssetReference{
					SourcePath: h.SourcePath, Request: request.ParsePattern(scriptPattern), SpanRange: eff.Span,
				})
			}
		}
		return out, nil

	case valuemodel.WKChildProcessFork:
		if len(linkedArgs) < 1 {
			return nil, nil
		}
		pattern := request.ValueToPattern(linkedArgs[0])
		h.lintIfDynamic(pattern, eff.Span, logger.CodeChildProcessSpawn)
		return []refs.Reference{&refs.CjsAssetReference{
			SourcePath: h.SourcePath, Request: request.ParsePattern(pattern), SpanRange: eff.Span,
		}}, nil

	default:
		return nil, nil
	}
}

// dynamicRequestEffect implements the import()/require()/require.resolve()
// rows of spec.md §4.6's table: exactly one argument emits a reference
// (ESM for import, CJS otherwise), with a lint diagnostic if the resolved
// pattern still has no constant parts; any other arity emits nothing and an
// error-severity diagnostic.
func (h *Handler) dynamicRequestEffect(args []valuemodel.Value, eff graphbuilder.Effect, code logger.DiagnosticCode, esm bool) ([]refs.Reference, error) {
	if len(args) != 1 {
		h.Log.AddRangeError(h.Source, eff.Span, code, "expected exactly one argument")
		return nil, nil
	}
	pattern := request.ValueToPattern(args[0])
	h.lintIfDynamic(pattern, eff.Span, code)

	req := request.ParsePattern(pattern)
	if esm {
		return []refs.Reference{&refs.EsmAssetReference{
			SourcePath: h.SourcePath, Request: req, FromTypescript: h.FromTypescript, SpanRange: eff.Span,
		}}, nil
	}
	return []refs.Reference{&refs.CjsAssetReference{
		SourcePath: h.SourcePath, Request: req, SpanRange: eff.Span,
	}}, nil
}

// lintIfDynamic warns when a dynamic call site resolved to no constant
// parts at all, unless the call site itself lives inside node_modules:
// vendored dependency code isn't something the caller can fix, so esbuild's
// own resolver keeps a dedicated IsInsideNodeModules check
// (internal/helpers/path.go) to bias diagnostics away from code nobody here
// controls, and this handler follows the same bias.
func (h *Handler) lintIfDynamic(p request.Pattern, span logger.Range, code logger.DiagnosticCode) {
	if p.HasConstantParts() || helpers.IsInsideNodeModules(h.SourcePath) {
		return
	}
	h.Log.AddRangeWarning(h.Source, span, code, "expression could not be fully statically analyzed")
}
