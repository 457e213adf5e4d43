// Package request implements the Pattern and Request types of spec.md §3.
// Pattern is grounded on esbuild's internal/helpers/glob.go GlobPart /
// ParseGlobPattern, which already represents a string as a sequence of
// literal-prefix-plus-wildcard parts for glob resolution; a module request
// pattern is the same shape with "wildcard" narrowed to "some dynamic JS
// expression folded in" instead of a glob "*".
package request

import (
	"regexp"
	"strings"

	"github.com/refscan/modgraph/internal/valuemodel"
)

// PartKind distinguishes a literal run of text from a dynamic fragment
// that the linker could not fold to a constant.
type PartKind uint8

const (
	PartLiteral PartKind = iota
	PartDynamic
)

type Part struct {
	Kind PartKind
	Text string // only meaningful when Kind == PartLiteral
}

// Pattern is a partially-known string (spec.md §3). It is always at least
// one element; a fully dynamic pattern is a single PartDynamic element.
type Pattern struct {
	Parts []Part
}

func Literal(s string) Pattern {
	return Pattern{Parts: []Part{{Kind: PartLiteral, Text: s}}}
}

func Dynamic() Pattern {
	return Pattern{Parts: []Part{{Kind: PartDynamic}}}
}

// HasConstantParts reports whether at least one literal, non-empty part is
// present — the predicate spec.md §3/§4.6 uses to decide whether a dynamic
// call site is "very dynamic" (lint) or entirely opaque.
func (p Pattern) HasConstantParts() bool {
	for _, part := range p.Parts {
		if part.Kind == PartLiteral && part.Text != "" {
			return true
		}
	}
	return false
}

// IsMatch reports whether a concrete literal string could have produced
// this pattern, substituting each dynamic part for ".*".
func (p Pattern) IsMatch(literal string) bool {
	var sb strings.Builder
	sb.WriteByte('^')
	for _, part := range p.Parts {
		if part.Kind == PartDynamic {
			sb.WriteString(".*")
		} else {
			sb.WriteString(regexp.QuoteMeta(part.Text))
		}
	}
	sb.WriteByte('$')
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(literal)
}

func (p Pattern) String() string {
	var sb strings.Builder
	for _, part := range p.Parts {
		if part.Kind == PartDynamic {
			sb.WriteString("<dynamic>")
		} else {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// Concat appends the literal-or-dynamic structure of other after p, merging
// adjacent literal parts so HasConstantParts/IsMatch see one contiguous
// literal rather than two empty-joined ones.
func (p Pattern) Concat(other Pattern) Pattern {
	parts := append([]Part{}, p.Parts...)
	for _, part := range other.Parts {
		if len(parts) > 0 && parts[len(parts)-1].Kind == PartLiteral && part.Kind == PartLiteral {
			parts[len(parts)-1].Text += part.Text
			continue
		}
		parts = append(parts, part)
	}
	return Pattern{Parts: parts}
}

// ValueToPattern converts a linked JsValue into the Pattern it denotes,
// the `js_value_to_pattern` helper referenced throughout references.rs
// (e.g. handle_call's `let pat = js_value_to_pattern(&args[0]);`).
func ValueToPattern(v valuemodel.Value) Pattern {
	switch t := v.(type) {
	case *valuemodel.Constant:
		if s, ok := t.AsString(); ok {
			return Literal(s)
		}
		return Literal(t.Print())
	case *valuemodel.Concat:
		return foldParts(t.Parts)
	case *valuemodel.Add:
		return foldParts(t.Parts)
	case *valuemodel.Alternatives:
		// A pattern has no native notion of alternation: the result is the
		// first alternative's pattern, and the other alternatives are not
		// represented in it.
		if len(t.Values) == 0 {
			return Dynamic()
		}
		return ValueToPattern(t.Values[0])
	default:
		return Dynamic()
	}
}

func foldParts(parts []valuemodel.Value) Pattern {
	result := Literal("")
	for _, p := range parts {
		result = result.Concat(ValueToPattern(p))
	}
	return result
}

// Request is the opaque descriptor handed to the external resolver
// (spec.md §3/§6). Equality is by structural content: either a literal
// string or a Pattern with at least one dynamic part.
type Request struct {
	Pattern Pattern
}

func ParseLiteral(s string) Request  { return Request{Pattern: Literal(s)} }
func ParsePattern(p Pattern) Request { return Request{Pattern: p} }

func (r Request) String() string { return r.Pattern.String() }
