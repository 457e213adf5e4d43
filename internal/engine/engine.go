// Package engine is the top-level orchestration of spec.md §5/§6: the
// `module_references(source, module-type, compile-target)` entry point
// that wires together the graph builder (B), linker (C) plus well-known
// lowering (D), syntactic visitor (E), and effect handler (F) to produce
// an ordered list of reference records (G). Grounded on the driving
// sequence in references.rs's top-level analysis function — "parse, then
// create_graph, then walk references while linking effects" — reshaped
// into this repo's package boundaries.
package engine

import (
	"context"

	"github.com/refscan/modgraph/internal/config"
	"github.com/refscan/modgraph/internal/effects"
	"github.com/refscan/modgraph/internal/graphbuilder"
	"github.com/refscan/modgraph/internal/jsast"
	"github.com/refscan/modgraph/internal/linker"
	"github.com/refscan/modgraph/internal/logger"
	"github.com/refscan/modgraph/internal/refs"
	"github.com/refscan/modgraph/internal/resolver"
	"github.com/refscan/modgraph/internal/syntax"
	"github.com/refscan/modgraph/internal/wellknown"
)

// ParseResult stands in for spec.md §6's `ParseResult ∈ { Ok {...} |
// Unparseable | NotFound }`. The parser itself is out of scope; this repo
// is handed the result of one.
type ParseResult struct {
	Ok      bool
	Program *jsast.Program
}

// Request bundles the entry point's three logical inputs (spec.md §6) plus
// the collaborators the engine is handed rather than importing concretely:
// the resolver and the webpack-runtime predicate, both external per spec.md
// §1/§6.
type Request struct {
	SourcePath       string
	Parsed           ParseResult
	ModuleType       config.ModuleType
	Target           config.CompileTarget
	Resolver         resolver.Resolver
	IsWebpackRuntime syntax.WebpackRuntimePredicate
	Log              logger.Log
	Source           *logger.Source
}

func sourceDir(sourcePath string) string {
	dir, _, _ := logger.PlatformIndependentPathDirBaseExt(sourcePath)
	return dir
}

// ModuleReferences is spec.md §6's entry point. On Unparseable/NotFound
// input it returns an empty list without error, per spec.md §7. Duplicate
// references are not removed from the returned list.
func ModuleReferences(ctx context.Context, req Request) ([]refs.Reference, error) {
	if !req.Parsed.Ok || req.Parsed.Program == nil {
		return nil, nil
	}
	program := req.Parsed.Program
	dir := sourceDir(req.SourcePath)

	syn := &syntax.Visitor{
		SourcePath:       req.SourcePath,
		SourceDir:        dir,
		ModuleType:       req.ModuleType,
		IsWebpackRuntime: req.IsWebpackRuntime,
	}
	synResult := syn.Visit(program)

	graph := graphbuilder.Create(program)

	lowerer := &wellknown.Lowerer{
		SourcePath: req.SourcePath,
		Resolver:   req.Resolver,
		Target:     req.Target,
	}
	lnk := linker.New(graph, lowerer.Visit, linker.NewCache())

	handler := &effects.Handler{
		Graph:          graph,
		Linker:         lnk,
		Log:            req.Log,
		Source:         req.Source,
		SourcePath:     req.SourcePath,
		SourceDir:      dir,
		Suppressed:     synResult.Suppressed,
		FromTypescript: req.ModuleType.IsTypescript(),
	}
	effectRefs, err := handler.Run(ctx)
	if err != nil {
		return nil, err
	}

	// Ordering contract (spec.md §5): direct references first — the nearest
	// ancestor package.json unconditionally, the nearest tsconfig.json for
	// TypeScript modules, then static imports/triple-slash/webpack refs from
	// the syntactic pass — followed by effect-derived references, which
	// themselves preserve effect order.
	direct := projectFileReferences(req, dir)
	out := make([]refs.Reference, 0, len(direct)+len(synResult.References)+len(effectRefs))
	out = append(out, direct...)
	out = append(out, synResult.References...)
	out = append(out, effectRefs...)
	return out, nil
}

// projectFileReferences emits the package.json and (for TypeScript modules)
// tsconfig.json references that Turbopack's module_references produces
// before any static import is walked (original_source's references.rs
// 67-82: PackageJsonReference for the ancestor package.json, then a
// TsConfigReference when the module is TypeScript), via spec.md §6's
// find-context-file(dir, name) resolver op.
func projectFileReferences(req Request, dir string) []refs.Reference {
	var out []refs.Reference
	if path, ok := req.Resolver.FindContextFile(dir, "package.json"); ok {
		out = append(out, &refs.PackageJsonReference{Path: path})
	}
	if req.ModuleType.IsTypescript() {
		if path, ok := req.Resolver.FindContextFile(dir, "tsconfig.json"); ok {
			out = append(out, &refs.TsConfigReference{Path: path})
		}
	}
	return out
}
