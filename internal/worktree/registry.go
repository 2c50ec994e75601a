package worktree

import (
	"bytes"
	"sort"
	"strings"

	"github.com/mmr-tortoise/banyan/internal/fsutil"
)

// Record is one working tree from the porcelain listing.
//
// Example -z listing for a single working tree (NUL shown as \0):
//
//	worktree /path/to/depot\0HEAD abc123\0branch refs/heads/main\0\0
type Record struct {
	// Path is the canonical filesystem path of the working tree.
	Path string

	// Attrs maps every attribute key of the record, including "worktree",
	// to its value. Flag attributes such as "bare", "detached", or a
	// reason-less "locked" map to nil.
	Attrs map[string]*string
}

// Value returns the value of key and whether the key is present with a
// value.
func (r *Record) Value(key string) (string, bool) {
	v, ok := r.Attrs[key]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// Has reports whether key is present, with or without a value.
func (r *Record) Has(key string) bool {
	_, ok := r.Attrs[key]
	return ok
}

// Head returns the commit the working tree points at.
func (r *Record) Head() string {
	v, _ := r.Value("HEAD")
	return v
}

// Branch returns the short name of the checked-out branch, or "" for a
// detached or bare working tree.
func (r *Record) Branch() string {
	v, _ := r.Value("branch")
	return strings.TrimPrefix(v, "refs/heads/")
}

// IsBare reports whether the record is the bare repository itself.
func (r *Record) IsBare() bool { return r.Has("bare") }

// IsDetached reports whether HEAD is detached.
func (r *Record) IsDetached() bool { return r.Has("detached") }

// IsLocked reports whether the working tree is locked.
func (r *Record) IsLocked() bool { return r.Has("locked") }

// IsPrunable reports whether git considers the working tree prunable.
func (r *Record) IsPrunable() bool { return r.Has("prunable") }

// Registry maps canonical working-tree paths to their records.
//
// A Registry is a snapshot: it does not observe working trees added after
// it was listed.
type Registry map[string]*Record

// Contains reports whether a working tree is registered at the canonical
// path p.
func (r Registry) Contains(p string) bool {
	_, ok := r[p]
	return ok
}

// Get returns the record registered at the canonical path p.
func (r Registry) Get(p string) (*Record, bool) {
	rec, ok := r[p]
	return rec, ok
}

// Paths returns the registered paths, sorted.
func (r Registry) Paths() []string {
	paths := make([]string, 0, len(r))
	for p := range r {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ParseListing parses the output of `git worktree list --porcelain -z`.
//
// The output is a sequence of NUL-terminated lines. A line is either
// empty, which ends the current record, or "key" / "key value". The
// "worktree" key carries the record's path, which is canonicalized with
// fsutil.Canonical.
//
// The final record is committed even when the output lacks the trailing
// empty line, and a "worktree" line arriving while a record with a path is
// still open commits that record first.
func ParseListing(raw []byte) (Registry, error) {
	results := Registry{}

	var (
		currentPath   string
		currentRecord map[string]*string
	)

	commit := func() {
		if currentPath != "" && currentRecord != nil {
			results[currentPath] = &Record{Path: currentPath, Attrs: currentRecord}
		}
		currentPath = ""
		currentRecord = nil
	}

	lines := bytes.Split(raw, []byte{0})
	if n := len(lines); n > 0 && len(lines[n-1]) == 0 {
		// Terminator of the last line, not an empty line of its own.
		lines = lines[:n-1]
	}

	for _, line := range lines {
		if len(line) == 0 {
			commit()
			continue
		}

		key, value, ok := splitAttribute(line)
		if !ok {
			// Whitespace-only line: neither an attribute nor a terminator.
			continue
		}

		if key == "worktree" && currentPath != "" {
			commit()
		}
		if currentRecord == nil {
			currentRecord = map[string]*string{}
		}
		currentRecord[key] = value

		if key == "worktree" && value != nil {
			canonical, err := fsutil.Canonical(*value)
			if err != nil {
				return nil, err
			}
			currentPath = canonical
		}
	}
	commit()

	return results, nil
}

// splitAttribute splits a listing line at the first run of whitespace.
// Leading whitespace is ignored; whitespace inside and at the end of the
// value is kept, since working-tree paths may contain spaces.
func splitAttribute(line []byte) (string, *string, bool) {
	trimmed := bytes.TrimLeft(line, " \t\r\n\v\f")
	if len(trimmed) == 0 {
		return "", nil, false
	}

	end := bytes.IndexAny(trimmed, " \t\r\n\v\f")
	if end < 0 {
		return string(trimmed), nil, true
	}

	key := string(trimmed[:end])
	rest := bytes.TrimLeft(trimmed[end:], " \t\r\n\v\f")
	if len(rest) == 0 {
		return key, nil, true
	}
	value := string(rest)
	return key, &value, true
}
