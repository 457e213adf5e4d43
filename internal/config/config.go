// Package config carries the small amount of configuration the engine's
// well-known lowering needs, trimmed from esbuild's much larger
// internal/config.Options (which also configures JSX, minification and
// syntax-lowering — none of which this engine touches).
package config

// ModuleType gates TypeScript-only behavior (triple-slash references, the
// tsconfig.json reference, and the FromTypescript flag recorded on ESM
// references), per spec.md §6.
type ModuleType uint8

const (
	Ecmascript ModuleType = iota
	Typescript
	TypescriptDeclaration
)

func (t ModuleType) IsTypescript() bool {
	return t == Typescript || t == TypescriptDeclaration
}

// CompileTarget is passed through to well-known lowering unmodified
// (spec.md §6: "opaque value passed through... for target-specific
// replacements"). esbuild's internal/compat.JSFeature plays the analogous
// role for its own syntax-lowering passes; here it is only threaded
// through: internal/wellknown stores it on its Lowerer, and no lowering rule
// reads it.
type CompileTarget struct {
	Name string
}
