package graphbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refscan/modgraph/internal/jsast"
	"github.com/refscan/modgraph/internal/valuemodel"
)

func expr(data jsast.E) jsast.Expr { return jsast.Expr{Data: data} }
func stmt(data jsast.S) jsast.Stmt { return jsast.Stmt{Data: data} }

func TestCreateBindsSimpleDeclaration(t *testing.T) {
	ref := jsast.Ref{Name: "x"}
	program := &jsast.Program{Stmts: []jsast.Stmt{
		stmt(&jsast.SLocal{Kind: jsast.LocalConst, Decls: []jsast.Decl{
			{Binding: ref, Value: ptr(expr(&jsast.EString{Value: "hi"}))},
		}}),
	}}

	g := Create(program)
	require.Equal(t, valuemodel.String("hi"), g.Bindings[ref])
}

func TestCreateRecordsCallEffect(t *testing.T) {
	program := &jsast.Program{Stmts: []jsast.Stmt{
		stmt(&jsast.SExpr{Value: expr(&jsast.ECall{
			Target: expr(&jsast.EIdentifier{Name: "require"}),
			Args:   []jsast.Expr{expr(&jsast.EString{Value: "./a"})},
		})}),
	}}

	g := Create(program)
	require.Len(t, g.Effects, 1)
	require.Equal(t, EffectCall, g.Effects[0].Kind)
	fv, ok := g.Effects[0].Callee.(*valuemodel.FreeVar)
	require.True(t, ok)
	require.Equal(t, valuemodel.FreeVarRequire, fv.Kind)
}

func TestCreateRecordsMemberCallEffect(t *testing.T) {
	program := &jsast.Program{Stmts: []jsast.Stmt{
		stmt(&jsast.SExpr{Value: expr(&jsast.ECall{
			Target: expr(&jsast.EDot{
				Target: expr(&jsast.EIdentifier{Name: "path"}),
				Name:   "join",
			}),
			Args: []jsast.Expr{expr(&jsast.EString{Value: "a"})},
		})}),
	}}

	g := Create(program)
	require.Len(t, g.Effects, 1)
	require.Equal(t, EffectMemberCall, g.Effects[0].Kind)
}

func TestCreateIfMergeProducesAlternatives(t *testing.T) {
	ref := jsast.Ref{Name: "x"}
	program := &jsast.Program{Stmts: []jsast.Stmt{
		stmt(&jsast.SIf{
			Test: expr(&jsast.EBoolean{Value: true}),
			Yes: []jsast.Stmt{
				stmt(&jsast.SLocal{Kind: jsast.LocalLet, Decls: []jsast.Decl{
					{Binding: ref, Value: ptr(expr(&jsast.EString{Value: "yes"}))},
				}}),
			},
			No: []jsast.Stmt{
				stmt(&jsast.SLocal{Kind: jsast.LocalLet, Decls: []jsast.Decl{
					{Binding: ref, Value: ptr(expr(&jsast.EString{Value: "no"}))},
				}}),
			},
		}),
	}}

	g := Create(program)
	alt, ok := g.Bindings[ref].(*valuemodel.Alternatives)
	require.True(t, ok)
	require.Len(t, alt.Values, 2)
}

func TestCreateFunctionArgumentsAreArgumentValues(t *testing.T) {
	paramRef := jsast.Ref{Name: "p", Scope: 1}
	bodyRef := jsast.Ref{Name: "result", Scope: 1}
	program := &jsast.Program{Stmts: []jsast.Stmt{
		stmt(&jsast.SFunction{
			Name: jsast.Ref{Name: "f"},
			Fn: jsast.EFunction{
				Args: []jsast.Arg{{Binding: paramRef}},
				Body: []jsast.Stmt{
					stmt(&jsast.SLocal{Kind: jsast.LocalConst, Decls: []jsast.Decl{
						{Binding: bodyRef, Value: ptr(expr(&jsast.EIdentifier{Ref: paramRef, IsBound: true}))},
					}}),
				},
			},
		}),
	}}

	g := Create(program)
	arg, ok := g.Bindings[paramRef].(*valuemodel.Argument)
	require.True(t, ok)
	require.Equal(t, 0, arg.Index)

	v, ok := g.Bindings[bodyRef].(*valuemodel.Variable)
	require.True(t, ok)
	require.Equal(t, paramRef, v.Binding)
}

func TestCreateImportBindingFlowsToModule(t *testing.T) {
	nsRef := jsast.Ref{Name: "path"}
	program := &jsast.Program{Stmts: []jsast.Stmt{
		stmt(&jsast.SImport{Source: "path", NamespaceRef: &nsRef}),
	}}

	g := Create(program)
	mod, ok := g.Bindings[nsRef].(*valuemodel.Module)
	require.True(t, ok)
	require.Equal(t, "path", mod.Name)
}

func ptr(e jsast.Expr) *jsast.Expr { return &e }
