// Package config loads BANYAN_DEPOT.toml and BANYAN_WORKSPACE.toml files
// into a generic, order-preserving value tree.
//
// The loader does not know what the keys mean. Callers (internal/depot)
// inspect the resulting shape and report structural problems themselves.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/mmr-tortoise/banyan/internal/model"
)

// Document is a decoded configuration file.
type Document struct {
	// Path is the file the document was read from.
	Path string

	// Root is the top-level table. It is never nil.
	Root *Table
}

// Load reads and decodes the TOML file at path.
//
// A missing file and a syntax error are both reported as
// *model.ConfigError; the parse error carries the line number reported by
// the TOML decoder.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.NewConfigError(path, fmt.Sprintf("the config file %s does not exist", path), nil)
		}
		return nil, model.NewConfigError(path, fmt.Sprintf("cannot read config file %s", path), err)
	}
	return Parse(path, data)
}

// Parse decodes TOML data. path is only used in error messages.
func Parse(path string, data []byte) (*Document, error) {
	var raw map[string]any
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		cerr := model.NewConfigError(path, fmt.Sprintf("cannot parse config file `%s`", path), err)
		var perr toml.ParseError
		if errors.As(err, &perr) {
			cerr.Line = perr.Position.Line
		}
		return nil, cerr
	}

	root := FromInterface(raw, declarationOrder(meta))
	table, _ := root.Table()
	if table == nil {
		table = NewTable()
	}
	return &Document{Path: path, Root: table}, nil
}

// declarationOrder derives, for any table key path, the order in which its
// child keys first appear in the file. toml.MetaData.Keys reports every key
// in document order, including the keys of implicitly created parent
// tables (e.g. "mount" for a [mount."a/b"] header).
func declarationOrder(meta toml.MetaData) func([]string) []string {
	all := meta.Keys()
	return func(prefix []string) []string {
		var out []string
		seen := map[string]bool{}
		for _, key := range all {
			if len(key) <= len(prefix) || !hasPrefix(key, prefix) {
				continue
			}
			child := key[len(prefix)]
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
		return out
	}
}

func hasPrefix(key toml.Key, prefix []string) bool {
	for i, p := range prefix {
		if key[i] != p {
			return false
		}
	}
	return true
}
