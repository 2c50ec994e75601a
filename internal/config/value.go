package config

import "sort"

// Kind identifies the shape of a Value.
type Kind int

const (
	// KindScalar is a string, integer, float, boolean or date-time.
	KindScalar Kind = iota
	// KindTable is a TOML table (including inline tables).
	KindTable
	// KindSequence is a TOML array.
	KindSequence
)

// String returns the TOML name of the kind, used in error messages.
func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindSequence:
		return "array"
	default:
		return "scalar"
	}
}

// Value is one node of a decoded configuration tree. Tables keep their
// declaration order; everything else is reached through Interface.
type Value struct {
	kind   Kind
	table  *Table
	seq    []Value
	scalar any
}

// Kind returns the shape of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Table returns the value as a table.
func (v Value) Table() (*Table, bool) {
	return v.table, v.kind == KindTable
}

// Interface converts the value back into plain Go maps, slices and scalars,
// which is what the JSON and YAML encoders expect.
func (v Value) Interface() any {
	switch v.kind {
	case KindTable:
		return v.table.Interface()
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	default:
		return v.scalar
	}
}

// Table is a TOML table whose keys remember declaration order.
type Table struct {
	keys    []string
	entries map[string]Value
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: map[string]Value{}}
}

// Set adds or replaces a key. New keys are appended to the key order.
func (t *Table) Set(key string, v Value) {
	if _, ok := t.entries[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = v
}

// Get returns the value stored under key.
func (t *Table) Get(key string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	v, ok := t.entries[key]
	return v, ok
}

// Keys returns the table's keys in declaration order. A nil table has no
// keys.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// Len returns the number of keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Interface converts the table into a map[string]any.
func (t *Table) Interface() map[string]any {
	out := make(map[string]any, t.Len())
	if t == nil {
		return out
	}
	for _, k := range t.keys {
		out[k] = t.entries[k].Interface()
	}
	return out
}

// TableValue wraps a table in a Value.
func TableValue(t *Table) Value {
	return Value{kind: KindTable, table: t}
}

// SequenceValue wraps an array in a Value.
func SequenceValue(items ...Value) Value {
	return Value{kind: KindSequence, seq: items}
}

// ScalarValue wraps a scalar in a Value.
func ScalarValue(x any) Value {
	return Value{kind: KindScalar, scalar: x}
}

// FromInterface builds a Value from the output of a TOML decoder.
//
// order returns the declaration order of the keys of the table found at a
// given key path; keys it does not know about are appended sorted so the
// result is deterministic.
func FromInterface(raw any, order func(path []string) []string) Value {
	return fromInterface(raw, nil, order)
}

func fromInterface(raw any, keyPath []string, order func([]string) []string) Value {
	switch x := raw.(type) {
	case map[string]any:
		t := NewTable()
		for _, k := range orderedKeys(x, keyPath, order) {
			child := append(append([]string(nil), keyPath...), k)
			t.Set(k, fromInterface(x[k], child, order))
		}
		return TableValue(t)
	case []map[string]any:
		items := make([]Value, len(x))
		for i, m := range x {
			// Array-of-tables entries have no addressable key path of their
			// own, so their keys fall back to sorted order.
			items[i] = fromInterface(m, nil, nil)
		}
		return SequenceValue(items...)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = fromInterface(item, nil, nil)
		}
		return SequenceValue(items...)
	default:
		return ScalarValue(x)
	}
}

func orderedKeys(m map[string]any, keyPath []string, order func([]string) []string) []string {
	var declared []string
	if order != nil {
		declared = order(keyPath)
	}

	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range declared {
		if _, ok := m[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}

	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
