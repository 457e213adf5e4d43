// Package graphbuilder implements Component B of the engine: converting
// an AST into the variable graph of spec.md §3/§4.2. It is grounded on
// Turbopack's `create_graph` (referenced, not defined, in
// original_source/crates/turbopack/src/ecmascript/references.rs — "let
// var_graph = create_graph(&program, eval_context);"); this repo supplies
// the concrete algorithm the distilled spec leaves as an external
// contract, since without it there is nothing for the linker to link.
package graphbuilder

import (
	"github.com/refscan/modgraph/internal/jsast"
	"github.com/refscan/modgraph/internal/logger"
	"github.com/refscan/modgraph/internal/valuemodel"
)

// EffectKind distinguishes a plain call from a member call, per spec.md §3.
type EffectKind uint8

const (
	EffectCall EffectKind = iota
	EffectMemberCall
)

// Effect is spec.md §3's Effect::Call / Effect::MemberCall, unified into
// one struct with Object nil for a plain call.
type Effect struct {
	Kind   EffectKind
	Object valuemodel.Value // only set when Kind == EffectMemberCall
	Callee valuemodel.Value // the callee expression (Call) or property (MemberCall)
	Args   []valuemodel.Value
	Span   logger.Range
}

// Graph is the Variable Graph of spec.md §3: a mapping from binding
// identifier to expression, plus effects in evaluation order.
type Graph struct {
	Bindings map[jsast.Ref]valuemodel.Value
	Effects  []Effect
}

// Create walks a Program's statements and builds the variable graph,
// matching the contract of spec.md §4.2.
func Create(program *jsast.Program) *Graph {
	g := &Graph{Bindings: map[jsast.Ref]valuemodel.Value{}}
	b := &builder{graph: g}
	b.walkStmts(program.Stmts)
	return g
}

type builder struct {
	graph *Graph
}

// walkStmts processes a straight-line statement list, mutating the
// module-wide binding map as declarations and assignments are found. It is
// also called (recursively) for the bodies of nested functions/arrows, so
// that effects inside callbacks are still discovered, in source order,
// appended to the same top-level effect list (spec.md §4.2: "Side-effecting
// call expressions... append Effects to the graph in source order").
func (b *builder) walkStmts(stmts []jsast.Stmt) {
	for _, stmt := range stmts {
		b.walkStmt(stmt)
	}
}

func (b *builder) walkStmt(stmt jsast.Stmt) {
	switch s := stmt.Data.(type) {
	case *jsast.SImport:
		b.bindImport(s)

	case *jsast.SLocal:
		for _, decl := range s.Decls {
			if decl.Value == nil {
				b.graph.Bindings[decl.Binding] = valuemodel.Undefined()
				continue
			}
			b.graph.Bindings[decl.Binding] = b.convertExpr(*decl.Value)
		}

	case *jsast.SExpr:
		b.convertExpr(s.Value)

	case *jsast.SFunction:
		b.walkFunctionLike(s.Fn.Args, s.Fn.Body, nil)

	case *jsast.SReturn:
		if s.Value != nil {
			b.convertExpr(*s.Value)
		}

	case *jsast.SBlock:
		b.walkStmts(s.Stmts)

	case *jsast.SIf:
		b.walkIf(s)

	case *jsast.SExportFrom, *jsast.SExportStar:
		// Static edges are the syntactic visitor's job (Component E); the
		// graph builder has nothing to bind or evaluate here.
	}
}

// walkIf implements spec.md §4.2's control-flow merge rule: a binding
// assigned along both arms of a conditional reads back as an Alternatives
// of the two arms' values; a binding only assigned on one arm merges with
// the value it had before the conditional. A binding that did not exist
// before the conditional and is assigned on only one arm reads back as that
// arm's value alone.
func (b *builder) walkIf(s *jsast.SIf) {
	b.convertExpr(s.Test)

	before := cloneBindings(b.graph.Bindings)

	yes := cloneBindings(before)
	b.graph.Bindings = yes
	b.walkStmts(s.Yes)

	no := cloneBindings(before)
	b.graph.Bindings = no
	b.walkStmts(s.No)

	merged := cloneBindings(before)
	touched := map[jsast.Ref]bool{}
	for ref := range yes {
		if !valuesEqual(yes[ref], before[ref]) {
			touched[ref] = true
		}
	}
	for ref := range no {
		if !valuesEqual(no[ref], before[ref]) {
			touched[ref] = true
		}
	}
	for ref := range touched {
		yesVal, yesOk := yes[ref]
		noVal, noOk := no[ref]
		var alts []valuemodel.Value
		if yesOk {
			alts = append(alts, yesVal)
		}
		if noOk {
			alts = append(alts, noVal)
		}
		merged[ref] = valuemodel.AlternativesOf(alts)
	}
	b.graph.Bindings = merged
}

func cloneBindings(m map[jsast.Ref]valuemodel.Value) map[jsast.Ref]valuemodel.Value {
	out := make(map[jsast.Ref]valuemodel.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func valuesEqual(a, b valuemodel.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Print() == b.Print()
}

// walkFunctionLike binds each parameter to Argument(i) (spec.md §4.2) and
// walks the body for its own effects. Closure captures fall out for free:
// identifiers the body reads that are bound outside resolve to the same
// Ref, so the linker sees them as ordinary Variable reads.
func (b *builder) walkFunctionLike(args []jsast.Arg, body []jsast.Stmt, exprBody *jsast.Expr) valuemodel.Value {
	for i, a := range args {
		b.graph.Bindings[a.Binding] = &valuemodel.Argument{Index: i}
	}
	if exprBody != nil {
		return b.convertExpr(*exprBody)
	}
	b.walkStmts(body)
	return valuemodel.Undefined()
}

// bindImport models a static ESM import as a binding so later dynamic use
// of the imported name (e.g. `import * as path from "path"; path.join(x)`)
// still flows through the well-known lowering rules of spec.md §4.4 rule 8.
func (b *builder) bindImport(s *jsast.SImport) {
	mod := &valuemodel.Module{Name: s.Source}
	if s.DefaultName != nil {
		b.graph.Bindings[*s.DefaultName] = valuemodel.MemberOf(mod, valuemodel.String("default"))
	}
	if s.NamespaceRef != nil {
		b.graph.Bindings[*s.NamespaceRef] = mod
	}
	for _, item := range s.Items {
		b.graph.Bindings[item.Local] = valuemodel.MemberOf(mod, valuemodel.String(item.Alias))
	}
}

// convertExpr folds an AST expression into the shape of a JsValue,
// appending any Call/MemberCall effects it contains to the graph in
// source (evaluation) order.
func (b *builder) convertExpr(e jsast.Expr) valuemodel.Value {
	span := logger.Range{Loc: e.Loc}
	switch ex := e.Data.(type) {
	case *jsast.EString:
		return valuemodel.String(ex.Value)
	case *jsast.ENumber:
		return valuemodel.Number(ex.Value)
	case *jsast.EBoolean:
		return valuemodel.Boolean(ex.Value)
	case *jsast.ENull:
		return valuemodel.Null()
	case *jsast.EUndefined:
		return valuemodel.Undefined()
	case *jsast.EBigInt:
		return valuemodel.BigInt(ex.Value)
	case *jsast.ERegExp:
		return valuemodel.RegExp(ex.Value)

	case *jsast.EArray:
		elems := make([]valuemodel.Value, len(ex.Items))
		for i, it := range ex.Items {
			elems[i] = b.convertExpr(it)
		}
		return &valuemodel.Array{Elements: elems}

	case *jsast.EObject:
		entries := make([]valuemodel.ObjectEntry, 0, len(ex.Properties))
		for _, p := range ex.Properties {
			if p.Kind == jsast.PropertySpread {
				continue
			}
			key, ok := constantKeyOf(b.convertExpr(p.Key))
			if !ok {
				continue
			}
			entries = append(entries, valuemodel.ObjectEntry{Key: key, Value: b.convertExpr(p.Value)})
		}
		return &valuemodel.Object{Entries: entries}

	case *jsast.EIdentifier:
		if ex.IsBound {
			return &valuemodel.Variable{Binding: ex.Ref}
		}
		return freeVarFor(ex.Name)

	case *jsast.EDot:
		obj := b.convertExpr(ex.Target)
		return valuemodel.MemberOf(obj, valuemodel.String(ex.Name))

	case *jsast.EIndex:
		obj := b.convertExpr(ex.Target)
		prop := b.convertExpr(ex.Index)
		return valuemodel.MemberOf(obj, prop)

	case *jsast.ECall:
		args := make([]valuemodel.Value, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = b.convertExpr(a)
		}
		if dot, ok := ex.Target.Data.(*jsast.EDot); ok {
			obj := b.convertExpr(dot.Target)
			prop := valuemodel.String(dot.Name)
			b.graph.Effects = append(b.graph.Effects, Effect{
				Kind: EffectMemberCall, Object: obj, Callee: prop, Args: args, Span: span,
			})
			return valuemodel.MemberOf(obj, prop)
		}
		if idx, ok := ex.Target.Data.(*jsast.EIndex); ok {
			obj := b.convertExpr(idx.Target)
			prop := b.convertExpr(idx.Index)
			b.graph.Effects = append(b.graph.Effects, Effect{
				Kind: EffectMemberCall, Object: obj, Callee: prop, Args: args, Span: span,
			})
			return valuemodel.MemberOf(obj, prop)
		}
		callee := b.convertExpr(ex.Target)
		b.graph.Effects = append(b.graph.Effects, Effect{Kind: EffectCall, Callee: callee, Args: args, Span: span})
		return &valuemodel.Call{Callee: callee, Args: args}

	case *jsast.ENew:
		for _, a := range ex.Args {
			b.convertExpr(a)
		}
		return valuemodel.NewUnknown(nil, "new expressions are not analyzed")

	case *jsast.EBinary:
		left := b.convertExpr(ex.Left)
		right := b.convertExpr(ex.Right)
		return valuemodel.NormalizeShallow(&valuemodel.Add{Parts: flattenAdd(left, right)})

	case *jsast.ELogical:
		left := b.convertExpr(ex.Left)
		right := b.convertExpr(ex.Right)
		return valuemodel.AlternativesOf([]valuemodel.Value{left, right})

	case *jsast.ETemplate:
		var parts []valuemodel.Value
		for i, s := range ex.Strings {
			if s != "" {
				parts = append(parts, valuemodel.String(s))
			}
			if i < len(ex.Exprs) {
				parts = append(parts, b.convertExpr(ex.Exprs[i]))
			}
		}
		return valuemodel.NormalizeShallow(&valuemodel.Concat{Parts: parts})

	case *jsast.EIf:
		b.convertExpr(ex.Test)
		yes := b.convertExpr(ex.Yes)
		no := b.convertExpr(ex.No)
		return valuemodel.AlternativesOf([]valuemodel.Value{yes, no})

	case *jsast.EArrow:
		return b.walkFunctionLike(ex.Args, ex.Body, ex.ExprBody)

	case *jsast.EFunction:
		return b.walkFunctionLike(ex.Args, ex.Body, nil)

	case *jsast.ESpread:
		return b.convertExpr(ex.Value)

	case *jsast.EAwait:
		return b.convertExpr(ex.Value)
	}
	return valuemodel.NewUnknown(nil, "unsupported expression form")
}

func flattenAdd(values ...valuemodel.Value) []valuemodel.Value {
	var out []valuemodel.Value
	for _, v := range values {
		if add, ok := v.(*valuemodel.Add); ok {
			out = append(out, add.Parts...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func constantKeyOf(v valuemodel.Value) (string, bool) {
	if c, ok := v.(*valuemodel.Constant); ok && c.Kind == valuemodel.ConstString {
		return c.Str, true
	}
	return "", false
}

func freeVarFor(name string) valuemodel.Value {
	switch name {
	case "require":
		return &valuemodel.FreeVar{Kind: valuemodel.FreeVarRequire}
	case "import":
		return &valuemodel.FreeVar{Kind: valuemodel.FreeVarImport}
	case "__dirname":
		return &valuemodel.FreeVar{Kind: valuemodel.FreeVarDirname}
	case "__filename":
		return &valuemodel.FreeVar{Kind: valuemodel.FreeVarFilename}
	case "process":
		return &valuemodel.FreeVar{Kind: valuemodel.FreeVarNodeProcess}
	default:
		return &valuemodel.FreeVar{Kind: valuemodel.FreeVarOther, Name: name}
	}
}
