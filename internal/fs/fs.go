// Package fs is a small descendant of esbuild's internal/fs file-system
// abstraction (internal/fs/fs.go), trimmed to the two operations the
// resolver actually needs: reading a file's contents and listing a
// directory's entries. esbuild's version additionally tracks directory
// entries accessed during a build so a watch-mode cache can invalidate
// itself — that's the job of "the content-addressed task/memoization
// runtime that caches results", which spec.md §1 places out of scope, so
// it has been dropped here rather than carried along unused.
package fs

import "os"

// FS lets the resolver be driven by either the real file system or an
// in-memory fixture, the same separation of concerns esbuild uses to keep
// its resolver tests hermetic (internal/fs/fs_mock.go).
type FS interface {
	ReadFile(path string) (contents string, ok bool)
	ReadDirectory(path string) (names []string, ok bool)
}

// RealFS reads from the host file system.
type RealFS struct{}

func (RealFS) ReadFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (RealFS) ReadDirectory(path string) ([]string, bool) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, true
}

// MockFS is an in-memory fixture, grounded on esbuild's internal/fs/fs_mock.go,
// used so resolver and engine tests don't touch the real disk.
type MockFS struct {
	Files map[string]string
}

func NewMockFS(files map[string]string) *MockFS {
	return &MockFS{Files: files}
}

func (m *MockFS) ReadFile(path string) (string, bool) {
	contents, ok := m.Files[path]
	return contents, ok
}

func (m *MockFS) ReadDirectory(dir string) ([]string, bool) {
	seen := map[string]bool{}
	var names []string
	prefix := dir
	if len(prefix) == 0 || prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	found := false
	for path := range m.Files {
		if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
			continue
		}
		found = true
		rest := path[len(prefix):]
		name := rest
		for i := 0; i < len(rest); i++ {
			if rest[i] == '/' {
				name = rest[:i]
				break
			}
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, found
}
