// Package resolver supplies the external collaborator spec.md §6 names but
// deliberately leaves abstract: "a path resolver (turns a Request into an
// absolute module path or marks it unresolvable)". The engine only ever
// calls through the Resolver interface; FSResolver is a minimal concrete
// implementation (Node.js CommonJS-style resolution, trimmed from esbuild's
// internal/resolver/resolver.go ResolveWithoutSymlinks) good enough to
// drive the require.resolve lowering rule of spec.md §4.4 end to end.
package resolver

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/refscan/modgraph/internal/fs"
	"github.com/refscan/modgraph/internal/request"
)

// Result mirrors esbuild's resolver.ResolveResult, trimmed to the one
// field the engine's lowering rules consume.
type Result struct {
	AbsolutePath string
	IsExternal   bool // package import that resolves outside the project, e.g. bare "react"
}

// Resolver turns a Request into a Result, or reports that the request
// could not be resolved. Implementations are free to consult whatever
// project configuration (tsconfig paths, package.json "exports", a
// resolve.alias map) they like; the engine treats this as opaque per
// spec.md §6.
type Resolver interface {
	Resolve(importer string, req request.Request) (Result, bool)

	// FindContextFile implements spec.md §6's find-context-file(dir, name)
	// op: walk dir and its ancestors for a file named `name`, returning its
	// absolute path. Used by the engine to locate the nearest package.json
	// (and, for TypeScript modules, tsconfig.json) for a source file.
	FindContextFile(dir, name string) (string, bool)
}

// candidateExtensions mirrors esbuild's default resolve.extensions order.
var candidateExtensions = []string{"", ".js", ".jsx", ".ts", ".tsx", ".json", ".node"}

// builtinModules are the Node core module specifiers esbuild's resolver
// hard-codes (internal/resolver/resolver.go's BuiltInNodeModules), consulted
// before ever touching node_modules.
var builtinModules = map[string]bool{
	"assert": true, "buffer": true, "child_process": true, "crypto": true,
	"events": true, "fs": true, "http": true, "https": true, "net": true,
	"os": true, "path": true, "process": true, "querystring": true,
	"readline": true, "stream": true, "url": true, "util": true, "zlib": true,
}

// FSResolver implements plain relative/absolute path resolution plus
// directory index lookup, the subset of Node's CommonJS algorithm that
// exercises the engine's lowering rules without pulling in package.json
// "exports" map resolution (out of scope: that's bundler-configuration
// territory, not this engine's concern).
type FSResolver struct {
	FS fs.FS
}

func NewFSResolver(fsys fs.FS) *FSResolver {
	return &FSResolver{FS: fsys}
}

func (r *FSResolver) Resolve(importer string, req request.Request) (Result, bool) {
	if !req.Pattern.HasConstantParts() {
		return Result{}, false
	}
	text := req.Pattern.String()

	if strings.HasPrefix(text, "./") || strings.HasPrefix(text, "../") || strings.HasPrefix(text, "/") {
		base := text
		if !path.IsAbs(base) {
			base = path.Join(path.Dir(importer), text)
		} else {
			base = path.Clean(base)
		}
		if resolved, ok := r.resolveFileOrDirectory(base); ok {
			return Result{AbsolutePath: resolved}, true
		}
		return Result{}, false
	}

	// A built-in core module never touches the file system.
	pkg, _, _ := splitPackageAndSubpath(text)
	if builtinModules[pkg] {
		return Result{AbsolutePath: text, IsExternal: true}, true
	}

	if resolved, ok := r.resolveNodeModules(importer, text); ok {
		return Result{AbsolutePath: resolved}, true
	}

	// Nothing on disk under any ancestor node_modules: still treat it as an
	// external package rather than unresolvable, the stance esbuild takes by
	// default for dependencies it isn't told to bundle.
	return Result{AbsolutePath: text, IsExternal: true}, true
}

// splitPackageAndSubpath separates a bare specifier's package name (scoped
// packages keep their "@scope/name" prefix) from any subpath after it.
func splitPackageAndSubpath(text string) (pkg, subpath string, hasSubpath bool) {
	parts := strings.SplitN(text, "/", 2)
	if strings.HasPrefix(text, "@") && len(parts) == 2 {
		scoped := strings.SplitN(parts[1], "/", 2)
		if len(scoped) == 2 {
			return parts[0] + "/" + scoped[0], scoped[1], true
		}
		return parts[0] + "/" + scoped[0], "", false
	}
	if len(parts) == 2 {
		return parts[0], parts[1], true
	}
	return parts[0], "", false
}

// resolveNodeModules walks each ancestor "node_modules" directory starting
// from the importer, mirroring esbuild's resolver.go loadNodeModules: a
// subpath is resolved as a file/directory index under the package; a bare
// package name first follows its package.json "main" field, then falls back
// to the package path itself as a file/directory index, per esbuild's
// internal/resolver/package_json.go parseMainFields — trimmed to the single
// legacy "main" field since this
// engine doesn't drive package "exports" conditions (§6, DESIGN.md).
func (r *FSResolver) resolveNodeModules(importer, text string) (string, bool) {
	pkg, subpath, hasSubpath := splitPackageAndSubpath(text)
	dir := path.Dir(importer)
	for {
		base := path.Join(dir, "node_modules", pkg)
		if hasSubpath {
			if resolved, ok := r.resolveFileOrDirectory(path.Join(base, subpath)); ok {
				return resolved, true
			}
		} else {
			if main, ok := r.readPackageMain(base); ok {
				if resolved, ok := r.resolveFileOrDirectory(path.Join(base, main)); ok {
					return resolved, true
				}
			}
			if resolved, ok := r.resolveFileOrDirectory(base); ok {
				return resolved, true
			}
		}
		if dir == "/" || dir == "." {
			return "", false
		}
		parent := path.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// FindContextFile implements spec.md §6's find-context-file(dir, name): walk
// dir and each ancestor directory looking for a file named `name`, the same
// upward search Node uses to locate the nearest package.json and tsc uses to
// locate the nearest tsconfig.json.
func (r *FSResolver) FindContextFile(dir, name string) (string, bool) {
	for {
		candidate := path.Join(dir, name)
		if _, ok := r.FS.ReadFile(candidate); ok {
			return candidate, true
		}
		if dir == "/" || dir == "." {
			return "", false
		}
		parent := path.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func (r *FSResolver) readPackageMain(pkgDir string) (string, bool) {
	contents, ok := r.FS.ReadFile(path.Join(pkgDir, "package.json"))
	if !ok {
		return "", false
	}
	var fields struct {
		Main string `json:"main"`
	}
	if err := json.Unmarshal([]byte(contents), &fields); err != nil || fields.Main == "" {
		return "", false
	}
	return fields.Main, true
}

func (r *FSResolver) resolveFileOrDirectory(base string) (string, bool) {
	for _, ext := range candidateExtensions {
		candidate := base + ext
		if _, ok := r.FS.ReadFile(candidate); ok {
			return candidate, true
		}
	}
	for _, index := range []string{"index.js", "index.ts", "index.json"} {
		candidate := path.Join(base, index)
		if _, ok := r.FS.ReadFile(candidate); ok {
			return candidate, true
		}
	}
	return "", false
}
