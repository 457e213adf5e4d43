package refs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refscan/modgraph/internal/fs"
	"github.com/refscan/modgraph/internal/request"
	"github.com/refscan/modgraph/internal/resolver"
)

func TestEsmAssetReferenceResolves(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{"/proj/src/a.js": ""})
	res := resolver.NewFSResolver(mock)
	r := &EsmAssetReference{SourcePath: "/proj/src/index.js", Request: request.ParseLiteral("./a")}

	out := r.ResolveReference(res)
	require.Equal(t, OutcomeSingle, out.Kind)
	require.Equal(t, "/proj/src/a.js", out.Assets[0].Path)
}

func TestEsmAssetReferenceUnresolveable(t *testing.T) {
	mock := fs.NewMockFS(nil)
	res := resolver.NewFSResolver(mock)
	r := &EsmAssetReference{SourcePath: "/proj/src/index.js", Request: request.ParseLiteral("./missing")}

	out := r.ResolveReference(res)
	require.Equal(t, OutcomeUnresolveable, out.Kind)
}

func TestSourceAssetReferenceJoinsRelativeToSourceDir(t *testing.T) {
	r := &SourceAssetReference{SourceDir: "/proj/src", Pattern: request.Literal("data.json")}
	out := r.ResolveReference(nil)
	require.Equal(t, OutcomeSingle, out.Kind)
	require.Equal(t, "/proj/src/data.json", out.Assets[0].Path)
}

func TestWebpackChunkAssetReferenceNeedsRuntime(t *testing.T) {
	r := &WebpackChunkAssetReference{ChunkID: "5", HasRuntime: false}
	require.Equal(t, OutcomeUnresolveable, r.ResolveReference(nil).Kind)

	r2 := &WebpackChunkAssetReference{ChunkID: "5", RuntimeContext: "/proj/dist", HasRuntime: true}
	out := r2.ResolveReference(nil)
	require.Equal(t, OutcomeSingle, out.Kind)
	require.Equal(t, "/proj/dist/chunks/5.js", out.Assets[0].Path)
}

func TestTsReferencePathAssetReference(t *testing.T) {
	r := &TsReferencePathAssetReference{SourceDir: "/proj/src", LiteralPath: "./types.d.ts"}
	out := r.ResolveReference(nil)
	require.Equal(t, OutcomeSingle, out.Kind)
	require.Equal(t, "/proj/src/types.d.ts", out.Assets[0].Path)
}
