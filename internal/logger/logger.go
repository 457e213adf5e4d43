package logger

// This is a trimmed descendant of esbuild's internal/logger package. The
// terminal-rendering and summary-table machinery (CLI-only concerns, out of
// scope for this engine per spec.md's non-goals) has been removed; what
// remains is the diagnostic data model the rest of the engine reports
// through: source locations, ranges, paths, and buffered messages.

import (
	"sort"
	"strings"
	"sync"
)

// Loc is a 0-based byte offset from the start of the source file.
type Loc struct {
	Start int32
}

type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

// Path identifies the asset a diagnostic or reference belongs to. Namespace
// is "file" for on-disk assets and something else (e.g. "node_modules") for
// virtual ones.
type Path struct {
	Text      string
	Namespace string
}

func (a Path) ComesBeforeInSortedOrder(b Path) bool {
	return a.Namespace > b.Namespace ||
		(a.Namespace == b.Namespace && a.Text < b.Text)
}

type Source struct {
	Index    uint32
	KeyPath  Path
	Contents string
}

func (s *Source) TextForRange(r Range) string {
	return s.Contents[r.Loc.Start : r.Loc.Start+r.Len]
}

func computeLineAndColumn(contents string, offset int32) (line int, column int) {
	line = 1
	lineStart := 0
	for i, c := range contents {
		if int32(i) >= offset {
			break
		}
		if c == '\n' {
			line++
			lineStart = i + 1
		}
	}
	if int(offset) <= len(contents) {
		column = int(offset) - lineStart
	}
	return
}

// MsgKind mirrors esbuild's severity levels, narrowed to the two the
// spec's diagnostic surface (spec.md §6) actually uses.
type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		panic("unreachable")
	}
}

// DiagnosticCode is one of the six stable diagnostic codes fixed by
// spec.md §6.
type DiagnosticCode string

const (
	CodeDynamicImport     DiagnosticCode = "DYNAMIC_IMPORT"
	CodeRequire           DiagnosticCode = "REQUIRE"
	CodeRequireResolve    DiagnosticCode = "REQUIRE_RESOLVE"
	CodeFsMethod          DiagnosticCode = "FS_METHOD"
	CodePathMethod        DiagnosticCode = "PATH_METHOD"
	CodeChildProcessSpawn DiagnosticCode = "CHILD_PROCESS_SPAWN"
)

type MsgLocation struct {
	File   string
	Line   int
	Column int
	Length int
	Line_  string
}

type MsgData struct {
	Text     string
	Location *MsgLocation
}

type Msg struct {
	Kind MsgKind
	Code DiagnosticCode
	Data MsgData
}

func LocationOrNil(source *Source, r Range) *MsgLocation {
	if source == nil {
		return nil
	}
	line, column := computeLineAndColumn(source.Contents, r.Loc.Start)
	return &MsgLocation{
		File:   source.KeyPath.Text,
		Line:   line,
		Column: column,
		Length: int(r.Len),
		Line_:  source.TextForRange(Range{Loc: r.Loc, Len: r.Len}),
	}
}

// SortableMsgs lets diagnostics be flushed in source order, per spec.md §5
// ("Diagnostics ordering... must preserve source order by span").
type SortableMsgs []Msg

func (a SortableMsgs) Len() int      { return len(a) }
func (a SortableMsgs) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a SortableMsgs) Less(i, j int) bool {
	ai, aj := a[i].Data.Location, a[j].Data.Location
	if ai == nil || aj == nil {
		return ai == nil && aj != nil
	}
	if ai.Line != aj.Line {
		return ai.Line < aj.Line
	}
	return ai.Column < aj.Column
}

// Log buffers diagnostics for the duration of one module analysis and
// flushes them in source order, matching spec.md §5's ordering contract.
// This replaces esbuild's channel-based async Log (which exists to support
// concurrent multi-file builds); a single module analysis only ever has one
// logical writer, so a mutex-guarded slice is sufficient.
type Log struct {
	mu   *sync.Mutex
	msgs *[]Msg
}

func NewLog() Log {
	return Log{mu: &sync.Mutex{}, msgs: &[]Msg{}}
}

func (log Log) AddMsg(msg Msg) {
	log.mu.Lock()
	defer log.mu.Unlock()
	*log.msgs = append(*log.msgs, msg)
}

func (log Log) AddRangeWarning(source *Source, r Range, code DiagnosticCode, text string) {
	log.AddMsg(Msg{Kind: Warning, Code: code, Data: MsgData{Text: text, Location: LocationOrNil(source, r)}})
}

func (log Log) AddRangeError(source *Source, r Range, code DiagnosticCode, text string) {
	log.AddMsg(Msg{Kind: Error, Code: code, Data: MsgData{Text: text, Location: LocationOrNil(source, r)}})
}

// Done flushes the buffered messages in source order. Called once after
// analysis completes.
func (log Log) Done() []Msg {
	log.mu.Lock()
	defer log.mu.Unlock()
	msgs := make([]Msg, len(*log.msgs))
	copy(msgs, *log.msgs)
	sort.Stable(SortableMsgs(msgs))
	return msgs
}

func (log Log) HasErrors() bool {
	log.mu.Lock()
	defer log.mu.Unlock()
	for _, msg := range *log.msgs {
		if msg.Kind == Error {
			return true
		}
	}
	return false
}

// PlatformIndependentPathDirBaseExt is used by the engine (to derive the
// source directory) and by well-known lowering (for __dirname) so that
// output doesn't depend on the host OS's path separator conventions.
func PlatformIndependentPathDirBaseExt(path string) (dir string, base string, ext string) {
	for {
		i := strings.LastIndexAny(path, "/\\")
		if i < 0 {
			base = path
			break
		}
		if i+1 != len(path) {
			dir, base = path[:i], path[i+1:]
			break
		}
		path = path[:i]
	}
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		base, ext = base[:dot], base[dot:]
	}
	return
}
