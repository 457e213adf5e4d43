// Package refs implements Component G of the engine, spec.md §4.7: the
// closed set of reference record types and the uniform resolve_reference()
// contract each implements. Grounded on Turbopack's
// `ModuleReference`/`AssetReference` enum in
// original_source/crates/turbopack/src/ecmascript/references.rs, reshaped
// into esbuild's E/S sum-type pattern (one struct per variant, a marker
// method, a dispatching switch at the consumer).
package refs

import (
	"fmt"
	"path"

	"github.com/refscan/modgraph/internal/logger"
	"github.com/refscan/modgraph/internal/request"
	"github.com/refscan/modgraph/internal/resolver"
)

// AssetKind distinguishes the wrapping an outcome's path should receive
// downstream (plain module vs. webpack-runtime-specific vs. TS config).
type AssetKind uint8

const (
	AssetModule AssetKind = iota
	AssetWebpackModule
	AssetTsConfigModule
)

type Asset struct {
	Path string
	Kind AssetKind
}

// OutcomeKind mirrors spec.md §6's ResolveResult sum: Single | Alternatives | Unresolveable.
type OutcomeKind uint8

const (
	OutcomeSingle OutcomeKind = iota
	OutcomeAlternatives
	OutcomeUnresolveable
)

type ResolveOutcome struct {
	Kind   OutcomeKind
	Assets []Asset
}

func Single(a Asset) ResolveOutcome { return ResolveOutcome{Kind: OutcomeSingle, Assets: []Asset{a}} }
func Alternatives(as []Asset) ResolveOutcome {
	return ResolveOutcome{Kind: OutcomeAlternatives, Assets: as}
}
func Unresolveable() ResolveOutcome { return ResolveOutcome{Kind: OutcomeUnresolveable} }

// Reference is the uniform contract every record below implements.
type Reference interface {
	ResolveReference(r resolver.Resolver) ResolveOutcome
	Span() logger.Range
}

// EsmAssetReference is emitted for static `import`/`export ... from`/
// `export * from` declarations, and for WellKnownFunction(Import) effects.
type EsmAssetReference struct {
	SourcePath     string
	Request        request.Request
	FromTypescript bool
	SpanRange      logger.Range
}

func (r *EsmAssetReference) Span() logger.Range { return r.SpanRange }

func (r *EsmAssetReference) ResolveReference(res resolver.Resolver) ResolveOutcome {
	return resolveModuleRequest(res, r.SourcePath, r.Request, AssetModule)
}

// CjsAssetReference is emitted for require()/require.resolve() effects.
type CjsAssetReference struct {
	SourcePath string
	Request    request.Request
	SpanRange  logger.Range
}

func (r *CjsAssetReference) Span() logger.Range { return r.SpanRange }

func (r *CjsAssetReference) ResolveReference(res resolver.Resolver) ResolveOutcome {
	return resolveModuleRequest(res, r.SourcePath, r.Request, AssetModule)
}

// SourceAssetReference is the raw-pattern reference fs/path/child_process
// handling produces: no module resolution, just a glob-style path relative
// to the source's own directory.
type SourceAssetReference struct {
	SourceDir string
	Pattern   request.Pattern
	SpanRange logger.Range
}

func (r *SourceAssetReference) Span() logger.Range { return r.SpanRange }

func (r *SourceAssetReference) ResolveReference(resolver.Resolver) ResolveOutcome {
	if !r.Pattern.HasConstantParts() {
		return Unresolveable()
	}
	return Single(Asset{Path: path.Join(r.SourceDir, r.Pattern.String()), Kind: AssetModule})
}

// PackageJsonReference points at a discovered package.json; it carries an
// already-resolved path (found by the engine's project-file discovery, not
// by the general resolver), so ResolveReference is a pure pass-through.
type PackageJsonReference struct {
	Path      string
	SpanRange logger.Range
}

func (r *PackageJsonReference) Span() logger.Range { return r.SpanRange }
func (r *PackageJsonReference) ResolveReference(resolver.Resolver) ResolveOutcome {
	return Single(Asset{Path: r.Path, Kind: AssetModule})
}

// TsConfigReference points at a discovered tsconfig.json, wrapped as a TS
// config module asset.
type TsConfigReference struct {
	Path      string
	SpanRange logger.Range
}

func (r *TsConfigReference) Span() logger.Range { return r.SpanRange }
func (r *TsConfigReference) ResolveReference(resolver.Resolver) ResolveOutcome {
	return Single(Asset{Path: r.Path, Kind: AssetTsConfigModule})
}

// WebpackRuntimeAssetReference resolves the request the
// `var __webpack_require__ = require(...)` marker names, wrapping the
// result as a webpack module asset.
type WebpackRuntimeAssetReference struct {
	SourcePath string
	Request    request.Request
	SpanRange  logger.Range
}

func (r *WebpackRuntimeAssetReference) Span() logger.Range { return r.SpanRange }

func (r *WebpackRuntimeAssetReference) ResolveReference(res resolver.Resolver) ResolveOutcome {
	return resolveModuleRequest(res, r.SourcePath, r.Request, AssetWebpackModule)
}

// WebpackEntryAssetReference marks the source itself as a webpack entry
// once a `__webpack_require__.C(...)` call is observed.
type WebpackEntryAssetReference struct {
	SourcePath string
	SpanRange  logger.Range
}

func (r *WebpackEntryAssetReference) Span() logger.Range { return r.SpanRange }
func (r *WebpackEntryAssetReference) ResolveReference(resolver.Resolver) ResolveOutcome {
	return Single(Asset{Path: r.SourcePath, Kind: AssetWebpackModule})
}

// WebpackChunkAssetReference forms `./chunks/<id>.js` relative to the
// runtime's context path; unresolvable if no runtime marker was ever seen.
type WebpackChunkAssetReference struct {
	ChunkID        string
	RuntimeContext string
	HasRuntime     bool
	SpanRange      logger.Range
}

func (r *WebpackChunkAssetReference) Span() logger.Range { return r.SpanRange }

func (r *WebpackChunkAssetReference) ResolveReference(resolver.Resolver) ResolveOutcome {
	if !r.HasRuntime {
		return Unresolveable()
	}
	chunkPath := path.Join(r.RuntimeContext, "chunks", fmt.Sprintf("%s.js", r.ChunkID))
	return Single(Asset{Path: chunkPath, Kind: AssetWebpackModule})
}

// TsReferencePathAssetReference is emitted for `/// <reference path="X"/>`.
type TsReferencePathAssetReference struct {
	SourceDir   string
	LiteralPath string
	SpanRange   logger.Range
}

func (r *TsReferencePathAssetReference) Span() logger.Range { return r.SpanRange }

func (r *TsReferencePathAssetReference) ResolveReference(resolver.Resolver) ResolveOutcome {
	if r.LiteralPath == "" {
		return Unresolveable()
	}
	return Single(Asset{Path: path.Join(r.SourceDir, r.LiteralPath), Kind: AssetModule})
}

// TsReferenceTypeAssetReference is emitted for `/// <reference types="X"/>`,
// resolved as a bare module request through the same Resolver.Resolve call
// every other module request uses; no TypeScript-types-specific resolution
// is applied.
type TsReferenceTypeAssetReference struct {
	SourcePath string
	TypeName   string
	SpanRange  logger.Range
}

func (r *TsReferenceTypeAssetReference) Span() logger.Range { return r.SpanRange }

func (r *TsReferenceTypeAssetReference) ResolveReference(res resolver.Resolver) ResolveOutcome {
	req := request.ParseLiteral(r.TypeName)
	return resolveModuleRequest(res, r.SourcePath, req, AssetModule)
}

func resolveModuleRequest(res resolver.Resolver, sourcePath string, req request.Request, kind AssetKind) ResolveOutcome {
	if !req.Pattern.HasConstantParts() {
		return Unresolveable()
	}
	result, ok := res.Resolve(sourcePath, req)
	if !ok {
		return Unresolveable()
	}
	return Single(Asset{Path: result.AbsolutePath, Kind: kind})
}
