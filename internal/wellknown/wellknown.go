// Package wellknown implements Component D of the engine, spec.md §4.4:
// the linker.Visitor that lowers the value lattice toward host-API forms.
// It is grounded on Turbopack's `WellKnownFunctionKind`/`WellKnownObjectKind`
// match arms (referenced implicitly throughout references.rs's
// `linker(value, ...)` closure) and follows esbuild's E/S marker-interface
// switch style for the rule dispatch itself.
package wellknown

import (
	"fmt"
	"path"

	"github.com/refscan/modgraph/internal/config"
	"github.com/refscan/modgraph/internal/logger"
	"github.com/refscan/modgraph/internal/request"
	"github.com/refscan/modgraph/internal/resolver"
	"github.com/refscan/modgraph/internal/valuemodel"
)

// Lowerer holds the context the visitor needs beyond the value itself:
// the source's own path (for FreeVar(Dirname)/FreeVar(Filename)), the
// resolver (for RequireResolve), and the compile target (opaque passthrough
// per spec.md §6, reserved for future target-specific replacements).
type Lowerer struct {
	SourcePath string
	Resolver   resolver.Resolver
	Target     config.CompileTarget
}

var bareModules = map[string]valuemodel.WellKnownObjectKind{
	"path":          valuemodel.WKPathModule,
	"fs":            valuemodel.WKFsModule,
	"fs/promises":   valuemodel.WKFsModule,
	"child_process": valuemodel.WKChildProcess,
	"os":            valuemodel.WKOsModule,
	"process":       valuemodel.WKNodeProcess,
}

var fsReadMethods = map[string]bool{
	"readFile": true, "readFileSync": true,
	"createReadStream": true,
	"readdir":          true, "readdirSync": true,
	"stat": true, "statSync": true,
	"existsSync": true,
}

var childProcessSpawnMethods = map[string]bool{
	"spawn": true, "spawnSync": true, "exec": true, "execSync": true, "execFile": true, "execFileSync": true,
}

// Visit implements linker.Visitor. Rules are matched top-down, first match
// wins, exactly as spec.md §4.4 enumerates them.
func (l *Lowerer) Visit(v valuemodel.Value) (valuemodel.Value, bool, error) {
	switch t := v.(type) {
	case *valuemodel.Call:
		if fn, ok := t.Callee.(*valuemodel.WellKnownFunction); ok && fn.Kind == valuemodel.WKRequireResolve {
			return l.lowerRequireResolve(t), true, nil
		}
		return l.lowerStructuralCall(t)

	case *valuemodel.FreeVar:
		return l.lowerFreeVar(t)

	case *valuemodel.Module:
		if kind, ok := bareModules[t.Name]; ok {
			return &valuemodel.WellKnownObject{Kind: kind}, true, nil
		}
		return valuemodel.NewUnknown(t, "cross module analyzing is not yet supported"), true, nil

	case *valuemodel.Argument:
		return valuemodel.NewUnknown(t, "cross function analyzing is not yet supported"), true, nil

	case *valuemodel.Member:
		return l.lowerStructuralMember(t)

	default:
		return v, false, nil
	}
}

func (l *Lowerer) lowerRequireResolve(call *valuemodel.Call) valuemodel.Value {
	if len(call.Args) != 1 {
		return valuemodel.NewUnknown(call, "only a single argument is supported")
	}
	pattern := request.ValueToPattern(call.Args[0])
	if !pattern.HasConstantParts() {
		return valuemodel.NewUnknown(call, fmt.Sprintf("unresolveable request %s", pattern.String()))
	}
	req := request.ParsePattern(pattern)
	result, ok := l.Resolver.Resolve(l.SourcePath, req)
	if !ok {
		return valuemodel.NewUnknown(call, fmt.Sprintf("unresolveable request %s", pattern.String()))
	}
	return valuemodel.String("/ROOT/" + result.AbsolutePath)
}

func (l *Lowerer) lowerFreeVar(fv *valuemodel.FreeVar) (valuemodel.Value, bool, error) {
	switch fv.Kind {
	case valuemodel.FreeVarDirname:
		dir, _, _ := logger.PlatformIndependentPathDirBaseExt(l.SourcePath)
		return valuemodel.String("/ROOT/" + dir), true, nil
	case valuemodel.FreeVarFilename:
		return valuemodel.String("/ROOT/" + l.SourcePath), true, nil
	case valuemodel.FreeVarRequire:
		return &valuemodel.WellKnownFunction{Kind: valuemodel.WKRequire}, true, nil
	case valuemodel.FreeVarImport:
		return &valuemodel.WellKnownFunction{Kind: valuemodel.WKImport}, true, nil
	case valuemodel.FreeVarNodeProcess:
		return &valuemodel.WellKnownObject{Kind: valuemodel.WKNodeProcess}, true, nil
	default:
		return valuemodel.NewUnknown(fv, "unknown global"), true, nil
	}
}

// lowerStructuralMember implements rule 10's object-access reductions:
// Member(WellKnownObject(PathModule), "join"/"resolve") → WellKnownFunction,
// Member(WellKnownObject(FsModule), name) → WellKnownFunction(FsReadMethod),
// Member(WellKnownObject(ChildProcess), name) → WellKnownFunction(Spawn/Fork),
// plus the builtin Array/Object constant-index reduction already performed
// by valuemodel.MemberOf before the visitor ever sees a Member survive —
// this only has to handle well-known-object members.
func (l *Lowerer) lowerStructuralMember(m *valuemodel.Member) (valuemodel.Value, bool, error) {
	obj, ok := m.Object.(*valuemodel.WellKnownObject)
	if !ok {
		return m, false, nil
	}
	name, ok := propertyName(m.Property)
	if !ok {
		return m, false, nil
	}

	switch obj.Kind {
	case valuemodel.WKPathModule:
		if name == "join" || name == "resolve" {
			return &valuemodel.WellKnownFunction{Kind: valuemodel.WKPathJoin}, true, nil
		}
	case valuemodel.WKFsModule:
		if fsReadMethods[name] {
			return &valuemodel.WellKnownFunction{Kind: valuemodel.WKFsReadMethod, Name: name}, true, nil
		}
	case valuemodel.WKChildProcess:
		if childProcessSpawnMethods[name] {
			return &valuemodel.WellKnownFunction{Kind: valuemodel.WKChildProcessSpawnMethod, Name: name}, true, nil
		}
		if name == "fork" {
			return &valuemodel.WellKnownFunction{Kind: valuemodel.WKChildProcessFork}, true, nil
		}
	}
	return m, false, nil
}

func propertyName(v valuemodel.Value) (string, bool) {
	if c, ok := v.(*valuemodel.Constant); ok {
		return c.AsString()
	}
	return "", false
}

// lowerStructuralCall implements rule 10's Call(WellKnownFunction(PathJoin), args)
// folding: a run of leading constant string arguments is joined with POSIX
// path-join semantics; if every argument was constant the call collapses to
// a single string, otherwise a new Call carrying the folded prefix plus the
// remaining non-constant args is re-emitted.
func (l *Lowerer) lowerStructuralCall(call *valuemodel.Call) (valuemodel.Value, bool, error) {
	fn, ok := call.Callee.(*valuemodel.WellKnownFunction)
	if !ok || fn.Kind != valuemodel.WKPathJoin {
		return call, false, nil
	}
	if len(call.Args) == 0 {
		return call, false, nil
	}

	var constParts []string
	i := 0
	for ; i < len(call.Args); i++ {
		s, ok := propertyName(call.Args[i])
		if !ok {
			break
		}
		constParts = append(constParts, s)
	}
	if len(constParts) == 0 {
		return call, false, nil
	}

	joined := path.Join(constParts...)
	if i == len(call.Args) {
		return valuemodel.String(joined), true, nil
	}

	newArgs := append([]valuemodel.Value{valuemodel.String(joined)}, call.Args[i:]...)
	if len(newArgs) == len(call.Args) {
		// Exactly one leading constant: the argument list keeps its shape, so
		// report no rewrite to keep the rule confluent.
		return call, false, nil
	}
	return &valuemodel.Call{Callee: fn, Args: newArgs}, true, nil
}
