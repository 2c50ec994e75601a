package worktree

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listing joins lines with NUL terminators, the way `-z` output looks.
func listing(lines ...string) []byte {
	return []byte(strings.Join(lines, "\x00") + "\x00")
}

func strPtr(s string) *string { return &s }

// TestParseListing parses a typical two-record listing with a trailing
// empty line.
func TestParseListing(t *testing.T) {
	raw := listing(
		"worktree /path/to/main",
		"HEAD abc123def456",
		"branch refs/heads/main",
		"",
		"worktree /path/to/feature",
		"HEAD def789abc012",
		"branch refs/heads/feature",
		"",
	)

	registry, err := ParseListing(raw)
	require.NoError(t, err)
	require.Len(t, registry, 2)

	mainRec, ok := registry.Get("/path/to/main")
	require.True(t, ok)
	assert.Equal(t, map[string]*string{
		"worktree": strPtr("/path/to/main"),
		"HEAD":     strPtr("abc123def456"),
		"branch":   strPtr("refs/heads/main"),
	}, mainRec.Attrs)
	assert.Equal(t, "main", mainRec.Branch())

	feature, ok := registry.Get("/path/to/feature")
	require.True(t, ok)
	assert.Equal(t, "def789abc012", feature.Head())
	assert.Equal(t, "feature", feature.Branch())
}

// TestParseListingWithoutTrailingTerminator verifies that the last record
// is kept when the output does not end with an empty line.
func TestParseListingWithoutTrailingTerminator(t *testing.T) {
	raw := []byte("worktree /a\x00HEAD 111\x00\x00worktree /b\x00HEAD 222")

	registry, err := ParseListing(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b"}, registry.Paths())
	b, _ := registry.Get("/b")
	assert.Equal(t, "222", b.Head())
}

// TestParseListingRoundTrip builds synthetic listings with and without the
// trailing terminator and checks that every record survives verbatim.
func TestParseListingRoundTrip(t *testing.T) {
	records := []map[string]*string{
		{"worktree": strPtr("/depot"), "HEAD": strPtr("aaa"), "branch": strPtr("refs/heads/main")},
		{"worktree": strPtr("/depot/scratch/pad1"), "HEAD": strPtr("bbb"), "detached": nil},
		{"worktree": strPtr("/depot/tools"), "HEAD": strPtr("ccc"), "branch": strPtr("refs/heads/mount/default{tools}"), "locked": strPtr("on a usb stick")},
		{"worktree": strPtr("/bare.git"), "bare": nil},
		{"worktree": strPtr("/gone"), "HEAD": strPtr("ddd"), "prunable": strPtr("gitdir file points to non-existent location")},
	}

	encode := func(trailing bool) []byte {
		var lines []string
		for i, rec := range records {
			lines = append(lines, "worktree "+*rec["worktree"])
			for _, key := range []string{"HEAD", "branch", "bare", "detached", "locked", "prunable"} {
				v, ok := rec[key]
				if !ok {
					continue
				}
				if v == nil {
					lines = append(lines, key)
				} else {
					lines = append(lines, key+" "+*v)
				}
			}
			if trailing || i < len(records)-1 {
				lines = append(lines, "")
			}
		}
		return []byte(strings.Join(lines, "\x00") + "\x00")
	}

	for _, trailing := range []bool{true, false} {
		name := "with trailing terminator"
		if !trailing {
			name = "without trailing terminator"
		}
		t.Run(name, func(t *testing.T) {
			registry, err := ParseListing(encode(trailing))
			require.NoError(t, err)
			require.Len(t, registry, len(records))

			for _, want := range records {
				got, ok := registry.Get(*want["worktree"])
				require.True(t, ok, "missing record %s", *want["worktree"])
				assert.Equal(t, want, got.Attrs)
			}
		})
	}
}

// TestParseListingFlagAttributes checks that value-less keys map to nil
// rather than to an empty string.
func TestParseListingFlagAttributes(t *testing.T) {
	registry, err := ParseListing(listing("worktree /path/to/bare-repo", "bare", ""))
	require.NoError(t, err)

	rec, ok := registry.Get("/path/to/bare-repo")
	require.True(t, ok)

	v, present := rec.Attrs["bare"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.True(t, rec.IsBare())
	assert.Empty(t, rec.Branch(), "bare worktree should have no branch")

	_, hasValue := rec.Value("bare")
	assert.False(t, hasValue)
}

func TestParseListingDetachedAndLocked(t *testing.T) {
	registry, err := ParseListing(listing(
		"worktree /path/to/detached",
		"HEAD abc123",
		"detached",
		"locked",
		"prunable gitdir file points to non-existent location",
		"",
	))
	require.NoError(t, err)

	rec, ok := registry.Get("/path/to/detached")
	require.True(t, ok)
	assert.True(t, rec.IsDetached())
	assert.True(t, rec.IsLocked())
	assert.True(t, rec.IsPrunable())
	assert.False(t, rec.IsBare())
	assert.Empty(t, rec.Branch())
}

// TestParseListingPathWithSpaces verifies that only the first run of
// whitespace separates key from value.
func TestParseListingPathWithSpaces(t *testing.T) {
	registry, err := ParseListing(listing("worktree /path/with  two spaces", "locked  reason with spaces ", ""))
	require.NoError(t, err)

	rec, ok := registry.Get("/path/with  two spaces")
	require.True(t, ok)
	locked, _ := rec.Value("locked")
	assert.Equal(t, "reason with spaces ", locked)
}

// TestParseListingAdjacentRecords covers a "worktree" line that arrives
// while the previous record is still open.
func TestParseListingAdjacentRecords(t *testing.T) {
	registry, err := ParseListing(listing("worktree /a", "HEAD 1", "worktree /b", "HEAD 2", ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b"}, registry.Paths())
	a, _ := registry.Get("/a")
	assert.Equal(t, "1", a.Head())
}

// TestParseListingRecordWithoutPath drops attribute blocks that never name
// a working tree.
func TestParseListingRecordWithoutPath(t *testing.T) {
	registry, err := ParseListing(listing("HEAD 1", "", "worktree /b", ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"/b"}, registry.Paths())
}

func TestParseListingEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, {0}, []byte("   \x00")} {
		registry, err := ParseListing(raw)
		require.NoError(t, err)
		assert.Empty(t, registry)
	}
}

// TestParseListingCanonicalizesPaths verifies that worktree paths are
// resolved through symlinks before being used as keys.
func TestParseListingCanonicalizesPaths(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	realDir := filepath.Join(root, "real")
	require.NoError(t, os.MkdirAll(realDir, 0o755))
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(realDir, link))

	registry, err := ParseListing(listing("worktree "+link+"/./", "HEAD 1", ""))
	require.NoError(t, err)

	assert.True(t, registry.Contains(realDir))
	assert.False(t, registry.Contains(link))
}
