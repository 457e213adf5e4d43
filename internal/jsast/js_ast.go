// Package jsast is a deliberately small descendant of esbuild's
// internal/js_ast. esbuild's parser resolves scopes and assigns symbols
// while building this tree; the lexer/parser that would do that for us is
// an external collaborator out of spec.md's scope ("referenced only by
// contract"), so this package defines only the node shapes the engine's
// components (graph builder, syntactic visitor) actually walk, and leaves
// symbol binding to whoever constructs a Program — in this repo, tests
// build Program values by hand, or a future real parser could be wired
// in later.
package jsast

import "github.com/refscan/modgraph/internal/logger"

// Ref names a binding introduced by a declaration (var/let/const, function,
// arrow parameter). It doubles as the variable graph's "binding-id"
// (spec.md §3, "Variable Graph"). Two Refs are the same binding iff equal.
type Ref struct {
	Name string
	// Scope disambiguates shadowed declarations of the same name across
	// nested functions; the zero value is the module's top-level scope.
	Scope int
}

func (r Ref) IsZero() bool { return r == Ref{} }

type Expr struct {
	Data E
	Loc  logger.Loc
}

// E is the marker interface for expression variants, following esbuild's
// own "isExpr()" tagging idiom (internal/js_ast.E) rather than a Go type
// switch over an open interface.
type E interface{ isExpr() }

func (*EString) isExpr()            {}
func (*ENumber) isExpr()             {}
func (*EBoolean) isExpr()            {}
func (*ENull) isExpr()               {}
func (*EUndefined) isExpr()          {}
func (*EBigInt) isExpr()             {}
func (*ERegExp) isExpr()             {}
func (*EArray) isExpr()              {}
func (*EObject) isExpr()             {}
func (*ECall) isExpr()               {}
func (*ENew) isExpr()                {}
func (*EDot) isExpr()                {}
func (*EIndex) isExpr()              {}
func (*EIdentifier) isExpr()         {}
func (*EBinary) isExpr()             {}
func (*ELogical) isExpr()            {}
func (*ETemplate) isExpr()           {}
func (*EIf) isExpr()                 {}
func (*EArrow) isExpr()              {}
func (*EFunction) isExpr()           {}
func (*ESpread) isExpr()             {}
func (*EAwait) isExpr()              {}

type EString struct{ Value string }
type ENumber struct{ Value float64 }
type EBoolean struct{ Value bool }
type ENull struct{}
type EUndefined struct{}
type EBigInt struct{ Value string }
type ERegExp struct{ Value string }

type EArray struct{ Items []Expr }

type PropertyKind uint8

const (
	PropertyNormal PropertyKind = iota
	PropertySpread
)

type Property struct {
	Kind  PropertyKind
	Key   Expr // typically *EString or *ENumber
	Value Expr
}

type EObject struct{ Properties []Property }

// ECall is a call expression. Target is the callee; for a MemberCall
// (spec.md §3's Effect::MemberCall), Target is an *EDot or *EIndex and the
// graph builder splits obj/prop out of it.
type ECall struct {
	Target  Expr
	Args    []Expr
	IsNew   bool
	Optional bool
}

// ENew is kept distinct from ECall for fidelity with real JS syntax, but
// carries no special semantics in this engine (no well-known function is a
// constructor): the graph builder records no effect for it, walks only its
// arguments, and folds it to Unknown.
type ENew struct {
	Target Expr
	Args   []Expr
}

// EDot is `target.name`, a member access with a statically-known property.
type EDot struct {
	Target Expr
	Name   string
}

// EIndex is `target[index]`, a member access with a computed property.
type EIndex struct {
	Target Expr
	Index  Expr
}

// EIdentifier is either a bound reference (IsBound true, Ref valid) into
// the variable graph, or a free/global reference resolved only by name
// (e.g. "require", "__dirname", "process", or some unrecognized global).
type EIdentifier struct {
	Name    string
	Ref     Ref
	IsBound bool
}

type BinOp uint8

const (
	BinOpAdd BinOp = iota
)

type EBinary struct {
	Op    BinOp
	Left  Expr
	Right Expr
}

type LogicalOp uint8

const (
	LogicalOpAnd LogicalOp = iota
	LogicalOpOr
	LogicalOpNullishCoalescing
)

// ELogical models `a && b`, `a || b`, `a ?? b` — each side is a possible
// control-flow outcome, so the graph builder folds it to an Alternatives of
// its two sides (spec.md §3's JsValue lattice).
type ELogical struct {
	Op    LogicalOp
	Left  Expr
	Right Expr
}

// ETemplate models a template literal with interpolated expressions; parts
// alternate literal text (Strings[i]) and expressions (Exprs[i]), with
// len(Strings) == len(Exprs)+1.
type ETemplate struct {
	Strings []string
	Exprs   []Expr
}

// EIf is the ternary conditional; like ELogical, both branches merge into
// an Alternatives read at the binding level.
type EIf struct {
	Test Expr
	Yes  Expr
	No   Expr
}

type Arg struct {
	Binding Ref
}

// EArrow and EFunction both introduce a nested scope whose parameters
// become JsValue::Argument(i) (spec.md §4.2) and whose free identifiers
// read the outer binding (closure capture). Body is expressed as a single
// tail expression (arrow shorthand) or a list of statements.
type EArrow struct {
	Args     []Arg
	ExprBody *Expr
	Body     []Stmt
}

type EFunction struct {
	Name *Ref
	Args []Arg
	Body []Stmt
}

type ESpread struct{ Value Expr }

type EAwait struct{ Value Expr }

// --- Statements ---

type Stmt struct {
	Data S
	Loc  logger.Loc
}

type S interface{ isStmt() }

func (*SImport) isStmt()      {}
func (*SExportFrom) isStmt()  {}
func (*SExportStar) isStmt()  {}
func (*SLocal) isStmt()       {}
func (*SExpr) isStmt()        {}
func (*SFunction) isStmt()    {}
func (*SReturn) isStmt()      {}
func (*SIf) isStmt()          {}
func (*SBlock) isStmt()       {}

type ImportItem struct {
	Alias string // the exported name on the other side ("default" for default imports)
	Local Ref
}

// SImport is a static ESM import declaration. Source is the literal
// specifier (spec.md §4.5's "EsmAssetReference").
type SImport struct {
	Source       string
	DefaultName  *Ref
	NamespaceRef *Ref
	Items        []ImportItem
	IsTypeOnly   bool
}

// SExportFrom is `export { x } from "mod"` / `export * as ns from "mod"`.
type SExportFrom struct {
	Source string
}

// SExportStar is `export * from "mod"`.
type SExportStar struct {
	Source string
}

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

type Decl struct {
	Binding Ref
	Value   *Expr
}

type SLocal struct {
	Kind  LocalKind
	Decls []Decl
}

type SExpr struct{ Value Expr }

type SFunction struct {
	Name Ref
	Fn   EFunction
}

type SReturn struct{ Value *Expr }

// SIf contributes both branches as predecessors of any binding assigned in
// either arm, per spec.md §4.2 ("Control-flow merges... produce
// Alternatives on read").
type SIf struct {
	Test Expr
	Yes  []Stmt
	No   []Stmt
}

type SBlock struct{ Stmts []Stmt }

// CommentKind distinguishes line comments (the only kind triple-slash
// references can appear in, per spec.md §4.5) from block comments.
type CommentKind uint8

const (
	CommentLine CommentKind = iota
	CommentBlock
)

type Comment struct {
	Kind CommentKind
	Text string
	Loc  logger.Loc
}

// Program is the root of the AST the engine consumes, standing in for
// swc's Program/leading_comments pair in the original Rust implementation
// and esbuild's (*js_ast.AST). LeadingComments holds only the comments
// that precede the first statement — the only ones spec.md §4.5 inspects
// for triple-slash references.
type Program struct {
	Stmts           []Stmt
	LeadingComments []Comment
}
