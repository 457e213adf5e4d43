// Package syntax implements Component E of the engine, spec.md §4.5: the
// single AST pass that collects static ESM edges, TypeScript triple-slash
// references, and the webpack 5 runtime signature. Grounded on
// original_source/crates/turbopack-ecmascript/src/webpack/mod.rs for the
// runtime/entry/chunk detection shapes, and on esbuild's own leading-
// comment scanning in internal/js_parser for how a single-pass "look at
// the leading comments, then walk the statement list" visitor is
// structured.
package syntax

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/refscan/modgraph/internal/config"
	"github.com/refscan/modgraph/internal/jsast"
	"github.com/refscan/modgraph/internal/logger"
	"github.com/refscan/modgraph/internal/refs"
	"github.com/refscan/modgraph/internal/request"
)

// WebpackRuntimePredicate is the external `is-webpack-runtime(asset)`
// predicate of spec.md §4.5, injected rather than hard-coded since
// deciding whether a resolved asset really is a webpack-5 runtime chunk
// requires inspecting its contents — the engine only supplies the literal
// request text being asked about.
type WebpackRuntimePredicate func(requestText string) bool

// Visitor holds the one pass's fixed inputs.
type Visitor struct {
	SourcePath       string
	SourceDir        string
	ModuleType       config.ModuleType
	IsWebpackRuntime WebpackRuntimePredicate
}

// Result is everything the pass discovers: the direct references
// (ESM imports, triple-slash refs, webpack-derived refs), the span
// suppression set the effect handler must honor, and the webpack runtime
// context needed to resolve chunk ids later.
type Result struct {
	References            []refs.Reference
	Suppressed            map[logger.Range]bool
	WebpackRuntimeContext string
	HasWebpackRuntime     bool
}

var referencePathRe = regexp.MustCompile(`^<reference\s+path\s*=\s*"([^"]*)"`)
var referenceTypesRe = regexp.MustCompile(`^<reference\s+types\s*=\s*"([^"]*)"`)

func (v *Visitor) Visit(program *jsast.Program) *Result {
	res := &Result{Suppressed: map[logger.Range]bool{}}

	v.visitComments(program, res)
	v.visitTopLevelStmts(program.Stmts, res)
	v.visitWebpackRuntime(program, res)

	return res
}

// visitComments implements spec.md §4.5's triple-slash reference scan: the
// module's leading line comments only, regex-anchored.
func (v *Visitor) visitComments(program *jsast.Program, res *Result) {
	if !v.ModuleType.IsTypescript() {
		return
	}
	for _, c := range program.LeadingComments {
		if c.Kind != jsast.CommentLine {
			continue
		}
		text := strings.TrimLeft(c.Text, "/ \t")
		span := logger.Range{Loc: c.Loc}

		if m := referencePathRe.FindStringSubmatch(text); m != nil {
			res.References = append(res.References, &refs.TsReferencePathAssetReference{
				SourceDir: v.SourceDir, LiteralPath: m[1], SpanRange: span,
			})
			continue
		}
		if m := referenceTypesRe.FindStringSubmatch(text); m != nil {
			res.References = append(res.References, &refs.TsReferenceTypeAssetReference{
				SourcePath: v.SourcePath, TypeName: m[1], SpanRange: span,
			})
		}
	}
}

// visitTopLevelStmts collects static ESM edges: import declarations and
// export-from/export-star re-exports, per spec.md §4.5.
func (v *Visitor) visitTopLevelStmts(stmts []jsast.Stmt, res *Result) {
	for _, stmt := range stmts {
		span := logger.Range{Loc: stmt.Loc}
		switch s := stmt.Data.(type) {
		case *jsast.SImport:
			res.References = append(res.References, &refs.EsmAssetReference{
				SourcePath: v.SourcePath, Request: request.ParseLiteral(s.Source),
				FromTypescript: v.ModuleType.IsTypescript(), SpanRange: span,
			})
		case *jsast.SExportFrom:
			res.References = append(res.References, &refs.EsmAssetReference{
				SourcePath: v.SourcePath, Request: request.ParseLiteral(s.Source),
				FromTypescript: v.ModuleType.IsTypescript(), SpanRange: span,
			})
		case *jsast.SExportStar:
			res.References = append(res.References, &refs.EsmAssetReference{
				SourcePath: v.SourcePath, Request: request.ParseLiteral(s.Source),
				FromTypescript: v.ModuleType.IsTypescript(), SpanRange: span,
			})
		}
	}
}

// runtimeBindingName is the conventional name webpack 5 gives its runtime
// module-cache variable; detection keys off this name the same way
// original_source/crates/turbopack-ecmascript/src/webpack/mod.rs keys off
// `__webpack_require__` identifiers in the generated bundle.
const runtimeBindingName = "__webpack_require__"

// visitWebpackRuntime implements spec.md §4.5's state machine: find the
// `var __webpack_require__ = require("X")` marker, ask the injected
// predicate whether "X" really is a webpack-5 runtime, and if so scan the
// rest of the program for `.C(...)` (entry) and `.X(_, [ids...], _)`
// (chunk) calls against that same binding.
func (v *Visitor) visitWebpackRuntime(program *jsast.Program, res *Result) {
	runtimeRef, requestLiteral, callSpan, found := findRuntimeMarker(program.Stmts)
	if !found {
		return
	}
	if v.IsWebpackRuntime == nil || !v.IsWebpackRuntime(requestLiteral) {
		return
	}

	res.References = append(res.References, &refs.WebpackRuntimeAssetReference{
		SourcePath: v.SourcePath, Request: request.ParseLiteral(requestLiteral), SpanRange: callSpan,
	})
	res.Suppressed[callSpan] = true
	res.WebpackRuntimeContext = v.SourceDir
	res.HasWebpackRuntime = true

	entryFound, chunkIDs := scanRuntimeCalls(program.Stmts, runtimeRef)
	if entryFound {
		res.References = append(res.References, &refs.WebpackEntryAssetReference{
			SourcePath: v.SourcePath, SpanRange: callSpan,
		})
	}
	for _, id := range chunkIDs {
		res.References = append(res.References, &refs.WebpackChunkAssetReference{
			ChunkID: id, RuntimeContext: v.SourceDir, HasRuntime: true, SpanRange: callSpan,
		})
	}
}

func findRuntimeMarker(stmts []jsast.Stmt) (jsast.Ref, string, logger.Range, bool) {
	for _, stmt := range stmts {
		local, ok := stmt.Data.(*jsast.SLocal)
		if !ok {
			continue
		}
		for _, decl := range local.Decls {
			if decl.Binding.Name != runtimeBindingName || decl.Value == nil {
				continue
			}
			call, ok := decl.Value.Data.(*jsast.ECall)
			if !ok || len(call.Args) != 1 {
				continue
			}
			id, ok := call.Target.Data.(*jsast.EIdentifier)
			if !ok || id.IsBound || id.Name != "require" {
				continue
			}
			lit, ok := call.Args[0].Data.(*jsast.EString)
			if !ok {
				continue
			}
			return decl.Binding, lit.Value, logger.Range{Loc: decl.Value.Loc}, true
		}
	}
	return jsast.Ref{}, "", logger.Range{}, false
}

// scanRuntimeCalls walks every statement reachable in the program looking
// for `runtimeRef.C(...)` and `runtimeRef.X(_, [literals...], _)` calls,
// per spec.md §4.5's per-property state-machine rules.
func scanRuntimeCalls(stmts []jsast.Stmt, runtimeRef jsast.Ref) (entry bool, chunkIDs []string) {
	var walkStmts func([]jsast.Stmt)
	var walkExpr func(jsast.Expr)

	isRuntimeIdent := func(e jsast.Expr) bool {
		id, ok := e.Data.(*jsast.EIdentifier)
		return ok && id.IsBound && id.Ref == runtimeRef
	}

	walkExpr = func(e jsast.Expr) {
		switch ex := e.Data.(type) {
		case *jsast.ECall:
			if dot, ok := ex.Target.Data.(*jsast.EDot); ok && isRuntimeIdent(dot.Target) {
				switch dot.Name {
				case "C":
					entry = true
				case "X":
					if len(ex.Args) >= 2 {
						if arr, ok := ex.Args[1].Data.(*jsast.EArray); ok {
							for _, item := range arr.Items {
								if id, ok := literalChunkID(item); ok {
									chunkIDs = append(chunkIDs, id)
								}
							}
						}
					}
				}
			}
			walkExpr(ex.Target)
			for _, a := range ex.Args {
				walkExpr(a)
			}
		case *jsast.ENew:
			walkExpr(ex.Target)
			for _, a := range ex.Args {
				walkExpr(a)
			}
		case *jsast.EDot:
			walkExpr(ex.Target)
		case *jsast.EIndex:
			walkExpr(ex.Target)
			walkExpr(ex.Index)
		case *jsast.EArray:
			for _, it := range ex.Items {
				walkExpr(it)
			}
		case *jsast.EObject:
			for _, p := range ex.Properties {
				walkExpr(p.Value)
			}
		case *jsast.EBinary:
			walkExpr(ex.Left)
			walkExpr(ex.Right)
		case *jsast.ELogical:
			walkExpr(ex.Left)
			walkExpr(ex.Right)
		case *jsast.ETemplate:
			for _, sub := range ex.Exprs {
				walkExpr(sub)
			}
		case *jsast.EIf:
			walkExpr(ex.Test)
			walkExpr(ex.Yes)
			walkExpr(ex.No)
		case *jsast.EArrow:
			if ex.ExprBody != nil {
				walkExpr(*ex.ExprBody)
			}
			walkStmts(ex.Body)
		case *jsast.EFunction:
			walkStmts(ex.Body)
		case *jsast.ESpread:
			walkExpr(ex.Value)
		case *jsast.EAwait:
			walkExpr(ex.Value)
		}
	}

	walkStmts = func(list []jsast.Stmt) {
		for _, stmt := range list {
			switch s := stmt.Data.(type) {
			case *jsast.SLocal:
				for _, d := range s.Decls {
					if d.Value != nil {
						walkExpr(*d.Value)
					}
				}
			case *jsast.SExpr:
				walkExpr(s.Value)
			case *jsast.SFunction:
				walkStmts(s.Fn.Body)
			case *jsast.SReturn:
				if s.Value != nil {
					walkExpr(*s.Value)
				}
			case *jsast.SBlock:
				walkStmts(s.Stmts)
			case *jsast.SIf:
				walkExpr(s.Test)
				walkStmts(s.Yes)
				walkStmts(s.No)
			}
		}
	}

	walkStmts(stmts)
	return entry, chunkIDs
}

func literalChunkID(e jsast.Expr) (string, bool) {
	switch ex := e.Data.(type) {
	case *jsast.EString:
		return ex.Value, true
	case *jsast.ENumber:
		return strconv.FormatFloat(ex.Value, 'f', -1, 64), true
	default:
		return "", false
	}
}
