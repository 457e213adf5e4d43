package syntax

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refscan/modgraph/internal/config"
	"github.com/refscan/modgraph/internal/jsast"
	"github.com/refscan/modgraph/internal/refs"
)

func expr(data jsast.E) jsast.Expr { return jsast.Expr{Data: data} }
func stmt(data jsast.S) jsast.Stmt { return jsast.Stmt{Data: data} }
func ptr(e jsast.Expr) *jsast.Expr { return &e }

func TestVisitCollectsStaticEsmEdges(t *testing.T) {
	program := &jsast.Program{Stmts: []jsast.Stmt{
		stmt(&jsast.SImport{Source: "./a"}),
		stmt(&jsast.SExportFrom{Source: "./b"}),
		stmt(&jsast.SExportStar{Source: "./c"}),
	}}
	v := &Visitor{SourcePath: "/proj/src/index.js", SourceDir: "/proj/src", ModuleType: config.Ecmascript}

	res := v.Visit(program)
	require.Len(t, res.References, 3)
	for _, r := range res.References {
		_, ok := r.(*refs.EsmAssetReference)
		require.True(t, ok)
	}
}

func TestVisitTripleSlashReferences(t *testing.T) {
	program := &jsast.Program{
		LeadingComments: []jsast.Comment{
			{Kind: jsast.CommentLine, Text: `/ <reference path="./types.d.ts"/>`},
			{Kind: jsast.CommentLine, Text: `/ <reference types="node"/>`},
		},
	}
	v := &Visitor{SourcePath: "/proj/src/index.ts", SourceDir: "/proj/src", ModuleType: config.Typescript}

	res := v.Visit(program)
	require.Len(t, res.References, 2)
	path, ok := res.References[0].(*refs.TsReferencePathAssetReference)
	require.True(t, ok)
	require.Equal(t, "./types.d.ts", path.LiteralPath)

	typ, ok := res.References[1].(*refs.TsReferenceTypeAssetReference)
	require.True(t, ok)
	require.Equal(t, "node", typ.TypeName)
}

func TestVisitIgnoresTripleSlashInNonTypescript(t *testing.T) {
	program := &jsast.Program{
		LeadingComments: []jsast.Comment{
			{Kind: jsast.CommentLine, Text: `/ <reference path="./types.d.ts"/>`},
		},
	}
	v := &Visitor{SourcePath: "/proj/src/index.js", SourceDir: "/proj/src", ModuleType: config.Ecmascript}

	res := v.Visit(program)
	require.Empty(t, res.References)
}

func webpackRuntimeDecl() jsast.Stmt {
	runtimeRef := jsast.Ref{Name: "__webpack_require__"}
	return stmt(&jsast.SLocal{Kind: jsast.LocalVar, Decls: []jsast.Decl{
		{Binding: runtimeRef, Value: ptr(expr(&jsast.ECall{
			Target: expr(&jsast.EIdentifier{Name: "require"}),
			Args:   []jsast.Expr{expr(&jsast.EString{Value: "./runtime.js"})},
		}))},
	}})
}

func TestVisitDetectsWebpackRuntimeAndSuppressesSpan(t *testing.T) {
	decl := webpackRuntimeDecl()
	program := &jsast.Program{Stmts: []jsast.Stmt{decl}}

	v := &Visitor{
		SourcePath: "/proj/dist/main.js", SourceDir: "/proj/dist", ModuleType: config.Ecmascript,
		IsWebpackRuntime: func(requestText string) bool { return requestText == "./runtime.js" },
	}
	res := v.Visit(program)

	require.True(t, res.HasWebpackRuntime)
	require.Len(t, res.References, 1)
	_, ok := res.References[0].(*refs.WebpackRuntimeAssetReference)
	require.True(t, ok)
	require.Len(t, res.Suppressed, 1)
}

func TestVisitDetectsWebpackEntryAndChunks(t *testing.T) {
	runtimeRef := jsast.Ref{Name: "__webpack_require__"}
	decl := webpackRuntimeDecl()
	entryCall := stmt(&jsast.SExpr{Value: expr(&jsast.ECall{
		Target: expr(&jsast.EDot{Target: expr(&jsast.EIdentifier{Ref: runtimeRef, IsBound: true}), Name: "C"}),
	})})
	chunkCall := stmt(&jsast.SExpr{Value: expr(&jsast.ECall{
		Target: expr(&jsast.EDot{Target: expr(&jsast.EIdentifier{Ref: runtimeRef, IsBound: true}), Name: "X"}),
		Args: []jsast.Expr{
			expr(&jsast.EUndefined{}),
			expr(&jsast.EArray{Items: []jsast.Expr{expr(&jsast.EString{Value: "chunk-1"})}}),
			expr(&jsast.EUndefined{}),
		},
	})})
	program := &jsast.Program{Stmts: []jsast.Stmt{decl, entryCall, chunkCall}}

	v := &Visitor{
		SourcePath: "/proj/dist/main.js", SourceDir: "/proj/dist", ModuleType: config.Ecmascript,
		IsWebpackRuntime: func(string) bool { return true },
	}
	res := v.Visit(program)

	var sawEntry, sawChunk bool
	for _, r := range res.References {
		switch rr := r.(type) {
		case *refs.WebpackEntryAssetReference:
			sawEntry = true
		case *refs.WebpackChunkAssetReference:
			sawChunk = true
			require.Equal(t, "chunk-1", rr.ChunkID)
		}
	}
	require.True(t, sawEntry)
	require.True(t, sawChunk)
}
