// Package valuemodel implements Component A of the module reference
// discovery engine: the lattice of abstract JS values described in
// spec.md §3/§4.1, grounded on Turbopack's JsValue
// (original_source/crates/turbopack/src/ecmascript/references.rs uses it
// throughout `value_visitor_inner` and `handle_call`) but expressed as a Go
// interface with one struct per variant, in the same "marker interface"
// idiom internal/jsast and esbuild's own internal/js_ast use for their
// node types.
package valuemodel

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/refscan/modgraph/internal/jsast"
)

// Value is the tagged variant described in spec.md §3. Every concrete type
// below is a Value; there is no open extension point, matching the "closed
// sum type" guidance of spec.md §9.
type Value interface {
	isValue()
	// Print renders a value the way spec.md §4.1's explain_args formatter
	// needs: a short, human-readable approximation, not a parseable form.
	Print() string
}

// --- Constant ---

type ConstantKind uint8

const (
	ConstString ConstantKind = iota
	ConstNumber
	ConstBoolean
	ConstNull
	ConstUndefined
	ConstBigInt
	ConstRegExp
)

type Constant struct {
	Kind ConstantKind
	Str  string
	Num  float64
	Bool bool
}

func (*Constant) isValue() {}

func String(s string) *Constant  { return &Constant{Kind: ConstString, Str: s} }
func Number(n float64) *Constant { return &Constant{Kind: ConstNumber, Num: n} }
func Boolean(b bool) *Constant   { return &Constant{Kind: ConstBoolean, Bool: b} }
func Null() *Constant            { return &Constant{Kind: ConstNull} }
func Undefined() *Constant       { return &Constant{Kind: ConstUndefined} }
func BigInt(s string) *Constant  { return &Constant{Kind: ConstBigInt, Str: s} }
func RegExp(s string) *Constant  { return &Constant{Kind: ConstRegExp, Str: s} }

func (c *Constant) AsString() (string, bool) {
	if c.Kind == ConstString {
		return c.Str, true
	}
	return "", false
}

func (c *Constant) Print() string {
	switch c.Kind {
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstNumber:
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	case ConstBoolean:
		return strconv.FormatBool(c.Bool)
	case ConstNull:
		return "null"
	case ConstUndefined:
		return "undefined"
	case ConstBigInt:
		return c.Str + "n"
	case ConstRegExp:
		return "/" + c.Str + "/"
	}
	return "?"
}

// --- Array / Object ---

type Array struct{ Elements []Value }

func (*Array) isValue() {}
func (a *Array) Print() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.Print()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type ObjectEntry struct {
	Key   string
	Value Value
}

type Object struct{ Entries []ObjectEntry }

func (*Object) isValue() {}
func (o *Object) Print() string {
	parts := make([]string, len(o.Entries))
	for i, e := range o.Entries {
		parts[i] = e.Key + ": " + e.Value.Print()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// --- Concat / Add / Logical ---

// Concat is template-literal concatenation (spec.md §3).
type Concat struct{ Parts []Value }

func (*Concat) isValue() {}
func (c *Concat) Print() string { return joinPrint(c.Parts, " + ") }

// Add is the `+` binary operator, which may mean string concatenation or
// numeric addition depending on its operands (spec.md §4.4 resolves this
// via constant folding in the linker).
type Add struct{ Parts []Value }

func (*Add) isValue() {}
func (a *Add) Print() string { return joinPrint(a.Parts, " + ") }

type LogicalOp uint8

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalNullishCoalescing
)

func (op LogicalOp) String() string {
	switch op {
	case LogicalAnd:
		return "&&"
	case LogicalOr:
		return "||"
	default:
		return "??"
	}
}

type Logical struct {
	Op    LogicalOp
	Parts []Value
}

func (*Logical) isValue() {}
func (l *Logical) Print() string { return joinPrint(l.Parts, " "+l.Op.String()+" ") }

func joinPrint(vs []Value, sep string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.Print()
	}
	return strings.Join(parts, sep)
}

// --- Call / Member ---

type Call struct {
	Callee Value
	Args   []Value
}

func (*Call) isValue() {}
func (c *Call) Print() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.Print()
	}
	return c.Callee.Print() + "(" + strings.Join(parts, ", ") + ")"
}

type Member struct {
	Object   Value
	Property Value
}

func (*Member) isValue() {}
func (m *Member) Print() string {
	if c, ok := m.Property.(*Constant); ok && c.Kind == ConstString && isIdentLike(c.Str) {
		return m.Object.Print() + "." + c.Str
	}
	return m.Object.Print() + "[" + m.Property.Print() + "]"
}

func isIdentLike(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$'
		isDigit := c >= '0' && c <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if i > 0 && !isLetter && !isDigit {
			return false
		}
	}
	return true
}

// --- Variable ---

// Variable is a reference into the variable graph (spec.md §3). Binding is
// the same Ref the graph builder assigns to the declaration it came from.
type Variable struct{ Binding jsast.Ref }

func (*Variable) isValue() {}
func (v *Variable) Print() string { return v.Binding.Name }

// --- Alternatives ---

// Alternatives is the join of a control-flow merge (spec.md §3). It is set
// semantics: duplicates are removed, and it is flattened one level deep on
// construction, per the Alternatives smart constructor, spec.md §4.1.
type Alternatives struct{ Values []Value }

func (*Alternatives) isValue() {}
func (a *Alternatives) Print() string { return joinPrint(a.Values, " | ") }

// AlternativesOf is the smart constructor spec.md §4.1 calls out by name:
// it flattens nested Alternatives, removes duplicates (by Print(), which is
// the closest thing this lattice has to a structural-equality key), and
// collapses a singleton result down to its one element (invariant (i)).
func AlternativesOf(values []Value) Value {
	var flat []Value
	for _, v := range values {
		if alt, ok := v.(*Alternatives); ok {
			flat = append(flat, alt.Values...)
		} else {
			flat = append(flat, v)
		}
	}
	seen := map[string]bool{}
	var deduped []Value
	for _, v := range flat {
		key := v.Print()
		if !seen[key] {
			seen[key] = true
			deduped = append(deduped, v)
		}
	}
	if len(deduped) == 1 {
		return deduped[0]
	}
	return &Alternatives{Values: deduped}
}

// --- FreeVar ---

type FreeVarKind uint8

const (
	FreeVarRequire FreeVarKind = iota
	FreeVarImport
	FreeVarDirname
	FreeVarFilename
	FreeVarNodeProcess
	FreeVarOther
)

type FreeVar struct {
	Kind FreeVarKind
	Name string // populated when Kind == FreeVarOther, for diagnostics
}

func (*FreeVar) isValue() {}
func (f *FreeVar) Print() string {
	if f.Kind == FreeVarOther {
		return f.Name
	}
	return "<free var>"
}

// --- Module ---

// Module is a named bare-specifier dependency discovered from a static
// import (spec.md §3). The well-known lowering visitor (internal/wellknown)
// is the only place this is interpreted.
type Module struct{ Name string }

func (*Module) isValue() {}
func (m *Module) Print() string { return "module(" + m.Name + ")" }

// --- Argument ---

// Argument is a function parameter read at a call site the linker can't
// trace back to an argument value (spec.md §3).
type Argument struct{ Index int }

func (*Argument) isValue() {}
func (a *Argument) Print() string { return fmt.Sprintf("arguments[%d]", a.Index) }

// --- WellKnownFunction / WellKnownObject ---

type WellKnownFunctionKind uint8

const (
	WKImport WellKnownFunctionKind = iota
	WKRequire
	WKRequireResolve
	WKPathJoin
	WKFsReadMethod
	WKChildProcessSpawnMethod
	WKChildProcessFork
)

type WellKnownFunction struct {
	Kind WellKnownFunctionKind
	// Name carries the specific method for the two parameterized kinds
	// (FsReadMethod(name), ChildProcessSpawnMethod(name) in spec.md §3).
	Name string
}

func (*WellKnownFunction) isValue() {}
func (w *WellKnownFunction) Print() string {
	switch w.Kind {
	case WKImport:
		return "import()"
	case WKRequire:
		return "require"
	case WKRequireResolve:
		return "require.resolve"
	case WKPathJoin:
		return "path.join"
	case WKFsReadMethod:
		return "fs." + w.Name
	case WKChildProcessSpawnMethod:
		return "child_process." + w.Name
	case WKChildProcessFork:
		return "child_process.fork"
	}
	return "?"
}

type WellKnownObjectKind uint8

const (
	WKNodeProcess WellKnownObjectKind = iota
	WKPathModule
	WKFsModule
	WKChildProcess
	WKOsModule
)

type WellKnownObject struct{ Kind WellKnownObjectKind }

func (*WellKnownObject) isValue() {}
func (w *WellKnownObject) Print() string {
	switch w.Kind {
	case WKNodeProcess:
		return "process"
	case WKPathModule:
		return "path"
	case WKFsModule:
		return "fs"
	case WKChildProcess:
		return "child_process"
	case WKOsModule:
		return "os"
	}
	return "?"
}

// --- Unknown ---

// Unknown is the top of the lattice (spec.md §3, invariant (ii): it
// absorbs in folding). Origin chains back to the value that produced it,
// for diagnostic messages; Reason is a short human-readable explanation.
type Unknown struct {
	Origin Value
	Reason string
}

func (*Unknown) isValue() {}
func (u *Unknown) Print() string { return "unknown" }

func NewUnknown(origin Value, reason string) *Unknown {
	return &Unknown{Origin: origin, Reason: reason}
}

// --- normalization ---

// NormalizeShallow applies the shallow-normal-form invariants of spec.md
// §3 to a single node: constant folding of adjacent constant Concat/Add
// parts, Alternatives flatten+dedup, and Unknown absorption.
func NormalizeShallow(v Value) Value {
	switch t := v.(type) {
	case *Concat:
		return normalizeConcatOrAdd(t.Parts, true)
	case *Add:
		return normalizeConcatOrAdd(t.Parts, false)
	case *Alternatives:
		return AlternativesOf(t.Values)
	case *Logical:
		if u := firstUnknown(t.Parts); u != nil {
			return NewUnknown(u, "operand of logical expression is unknown")
		}
		return t
	default:
		return v
	}
}

func firstUnknown(vs []Value) Value {
	for _, v := range vs {
		if u, ok := v.(*Unknown); ok {
			return u
		}
	}
	return nil
}

// normalizeConcatOrAdd folds runs of adjacent constants together. For Add,
// a run of two-or-more numeric constants sums numerically; everything else
// stringifies and concatenates, matching JS's "+" semantics closely enough
// for request-pattern purposes (spec.md never needs numeric results, only
// string request fragments).
func normalizeConcatOrAdd(parts []Value, isConcat bool) Value {
	if u := firstUnknown(parts); u != nil {
		return NewUnknown(u, "operand is unknown")
	}
	var folded []Value
	for _, p := range parts {
		if len(folded) > 0 {
			prevConst, prevOk := folded[len(folded)-1].(*Constant)
			curConst, curOk := p.(*Constant)
			if prevOk && curOk {
				folded[len(folded)-1] = foldConstantPair(prevConst, curConst, isConcat)
				continue
			}
		}
		folded = append(folded, p)
	}
	if len(folded) == 1 {
		return folded[0]
	}
	if isConcat {
		return &Concat{Parts: folded}
	}
	return &Add{Parts: folded}
}

func foldConstantPair(a, b *Constant, isConcat bool) *Constant {
	if !isConcat && a.Kind == ConstNumber && b.Kind == ConstNumber {
		return Number(a.Num + b.Num)
	}
	return String(stringify(a) + stringify(b))
}

func stringify(c *Constant) string {
	switch c.Kind {
	case ConstString:
		return c.Str
	case ConstNumber:
		if c.Num == math.Trunc(c.Num) && !math.IsInf(c.Num, 0) {
			return strconv.FormatInt(int64(c.Num), 10)
		}
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	case ConstBoolean:
		return strconv.FormatBool(c.Bool)
	case ConstNull:
		return "null"
	case ConstUndefined:
		return "undefined"
	case ConstBigInt:
		return c.Str
	case ConstRegExp:
		return "/" + c.Str + "/"
	}
	return ""
}

// --- smart constructors ---

// MemberOf is the `member(o, p)` smart constructor of spec.md §4.1: it
// folds indexing a constant Array by a constant non-negative integer and
// accessing an Object literal's entry by a constant key at construction
// time (the remaining structural reductions live in internal/wellknown,
// since they need well-known-object context).
func MemberOf(object, property Value) Value {
	if u, ok := object.(*Unknown); ok {
		return NewUnknown(u, "member access on unknown value")
	}
	if arr, ok := object.(*Array); ok {
		if n, ok := property.(*Constant); ok && n.Kind == ConstNumber && n.Num >= 0 && n.Num == math.Trunc(n.Num) {
			idx := int(n.Num)
			if idx < len(arr.Elements) {
				return arr.Elements[idx]
			}
			return Undefined()
		}
	}
	if obj, ok := object.(*Object); ok {
		if key, ok := property.(*Constant); ok && key.Kind == ConstString {
			for _, e := range obj.Entries {
				if e.Key == key.Str {
					return e.Value
				}
			}
			return Undefined()
		}
	}
	return &Member{Object: object, Property: property}
}

// CallOf is the `call(f, args)` smart constructor named in spec.md §4.1.
func CallOf(callee Value, args []Value) Value {
	if u, ok := callee.(*Unknown); ok {
		return NewUnknown(u, "call of unknown value")
	}
	return &Call{Callee: callee, Args: args}
}

// ExplainArgs is spec.md §4.1's "human-readable trailing hint string"
// formatter, modeled on references.rs's explain_args(&args, 10, 2).
// internal/effects does not call it; its diagnostics use fixed message text.
func ExplainArgs(args []Value, maxItems int, depth int) (argsText string, hints string) {
	parts := make([]string, 0, len(args))
	var hintLines []string
	for i, a := range args {
		if i >= maxItems {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, a.Print())
		if u, ok := unwindToUnknown(a, depth); ok {
			hintLines = append(hintLines, fmt.Sprintf("\n  argument %d is unknown because %s", i, u.Reason))
		}
	}
	sort.Strings(hintLines) // deterministic order regardless of map iteration elsewhere
	return strings.Join(parts, ", "), strings.Join(hintLines, "")
}

func unwindToUnknown(v Value, depth int) (*Unknown, bool) {
	for i := 0; i < depth; i++ {
		switch t := v.(type) {
		case *Unknown:
			return t, true
		case *Member:
			v = t.Object
		case *Call:
			v = t.Callee
		default:
			return nil, false
		}
	}
	if u, ok := v.(*Unknown); ok {
		return u, true
	}
	return nil, false
}
