// Package handle defines the canonical file identity used throughout the
// server: File (root, relative path, optional in-memory override) and
// Handle, the root-relative string that is the map key everywhere else
// in the system (spec.md §3 "File / FileHandle").
package handle

import (
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Handle is the canonical, root-relative identifier for a source file.
// Two handles are equal iff they denote the same repo-relative path
// (spec.md §3 invariant on FileHandle).
type Handle string

// File is (root, relative_path, optional in-memory content override).
type File struct {
	Root     string
	RelPath  string
	Override *string // in-memory content, e.g. from didSave's params.text
}

// New builds a File rooted at root from a relative path, with no content
// override.
func New(root, relPath string) File {
	return File{Root: root, RelPath: canonicalize(relPath)}
}

// NewWithContent builds a File carrying an in-memory content override.
func NewWithContent(root, relPath, content string) File {
	f := New(root, relPath)
	f.Override = &content
	return f
}

// Handle returns the canonical handle for this file: its cleaned,
// forward-slashed relative path.
func (f File) Handle() Handle {
	return Handle(canonicalize(f.RelPath))
}

// AbsPath returns the file's absolute path on disk under its root.
func (f File) AbsPath() string {
	return filepath.Join(f.Root, filepath.FromSlash(string(f.Handle())))
}

func canonicalize(relPath string) string {
	return filepath.ToSlash(filepath.Clean(relPath))
}

// Resolve produces the canonical handle for f, or ok=false when the
// relative path escapes the project root (e.g. leading ".." after
// cleaning) or is empty. Files that fail to resolve are silently dropped
// from analysis (spec.md §9 Open Question, preserved as-is).
func Resolve(f File) (Handle, bool) {
	h := f.Handle()
	if h == "" || h == "." || strings.HasPrefix(string(h), "..") {
		return "", false
	}
	return h, true
}

// FromAbs derives a File rooted at root from an absolute or
// already-relative path. If path is not under root, it is used verbatim
// as the relative path (matching the LSP adapter's URI-rewrite fallback
// in spec.md §4.1).
func FromAbs(root, path string) File {
	rel := path
	if filepath.IsAbs(path) {
		if r, err := filepath.Rel(root, path); err == nil && r != ".." && !strings.HasPrefix(r, "../") {
			rel = r
		}
	}
	return New(root, rel)
}

// SocketNameForRoot derives a deterministic, filesystem-safe socket
// filename component from an absolute project root, replacing the
// teacher's ad hoc additive hash loop (internal/server.GetSocketPathForRoot)
// with xxhash.
func SocketNameForRoot(absRoot string) string {
	sum := xxhash.Sum64String(absRoot)
	return "tychk-" + hex64(sum) + ".sock"
}

func hex64(v uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf)
}

// Qualifier is a module identity derived from a relative path (spec.md
// glossary: "module identity derived from a relative path"). ".py" and
// stub-suffixed files at the same path share a qualifier so the
// shadowed-by-stub rule (spec.md §4.4 Stage 5) can compare them.
type Qualifier string

// QualifierFor derives the module qualifier for a handle: strip the
// extension, replace path separators with '.', and drop a trailing
// "__init__" package marker.
func QualifierFor(h Handle, stubSuffix string) Qualifier {
	p := string(h)
	if stubSuffix != "" && strings.HasSuffix(p, stubSuffix) {
		p = strings.TrimSuffix(p, stubSuffix)
	} else if ext := filepath.Ext(p); ext != "" {
		p = strings.TrimSuffix(p, ext)
	}
	p = strings.TrimSuffix(p, "/__init__")
	return Qualifier(strings.ReplaceAll(p, "/", "."))
}
