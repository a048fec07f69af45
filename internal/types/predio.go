package types

import (
	"sort"
	"strconv"
	"strings"
)

// Kind tags the shape of a field value. The zero Kind is Absent so that a
// lookup on a missing field yields a usable Value.
type Kind int

const (
	Absent Kind = iota
	Null        // element present without any character data
	Scalar      // element with text content (possibly empty or whitespace)
	Nested      // element with structured children
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Scalar:
		return "scalar"
	case Nested:
		return "nested"
	default:
		return "absent"
	}
}

// Value is one field of a cadastral record: either scalar text or a nested
// mapping of sub-fields. Text is kept verbatim; no coercion happens here.
type Value struct {
	Kind   Kind
	Text   string
	Fields Fields
}

// Fields maps field names to values. Repeated child elements are keyed with an
// ordinal suffix (see EntryKey).
type Fields map[string]Value

// Text builds a scalar value.
func Text(s string) Value { return Value{Kind: Scalar, Text: s} }

// NullValue builds a value for an element that carried no text.
func NullValue() Value { return Value{Kind: Null} }

// Group builds a nested value.
func Group(f Fields) Value {
	if f == nil {
		f = Fields{}
	}
	return Value{Kind: Nested, Fields: f}
}

// IsNested reports whether v has structured children.
func (v Value) IsNested() bool { return v.Kind == Nested }

// Present reports whether the field exists at all.
func (v Value) Present() bool { return v.Kind != Absent }

// Trimmed returns the scalar text without surrounding whitespace. Nested,
// null and absent values yield "".
func (v Value) Trimmed() string {
	if v.Kind != Scalar {
		return ""
	}
	return strings.TrimSpace(v.Text)
}

// Equal compares two values structurally with exact text equality.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Scalar:
		return v.Text == o.Text
	case Nested:
		if len(v.Fields) != len(o.Fields) {
			return false
		}
		for k, fv := range v.Fields {
			ov, ok := o.Fields[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders the value for reports.
func (v Value) String() string {
	switch v.Kind {
	case Absent:
		return "<ausente>"
	case Null:
		return "<null>"
	case Scalar:
		return v.Text
	}
	keys := v.Fields.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+v.Fields[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Get returns the named field, or an Absent value.
func (f Fields) Get(name string) Value {
	if f == nil {
		return Value{}
	}
	return f[name]
}

// Path walks nested groups following the given names.
func (f Fields) Path(names ...string) Value {
	cur := Group(f)
	for _, n := range names {
		if !cur.IsNested() {
			return Value{}
		}
		cur = cur.Fields.Get(n)
	}
	return cur
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EntryKey names the n-th (0-based) occurrence of a repeated child element.
// The first occurrence keeps the bare name.
func EntryKey(name string, n int) string {
	if n == 0 {
		return name
	}
	return name + "#" + strconv.Itoa(n+1)
}

// Predio is one cadastral unit keyed by its national cadastral number.
type Predio struct {
	NumeroPredial string
	Fields        Fields
}

// Municipio returns the municipality code encoded in the first five
// characters of the identifier.
func (p Predio) Municipio() string { return MunicipioOf(p.NumeroPredial) }

// MunicipioOf returns the first five characters of an identifier, or the whole
// identifier when it is shorter.
func MunicipioOf(id string) string {
	if len(id) < 5 {
		return id
	}
	return id[:5]
}

// Snapshot indexes the records of one municipality file for one period.
type Snapshot struct {
	Municipio string
	Vigencia  string
	Predios   map[string]Predio

	// Skipped counts records dropped for an absent or empty identifier.
	Skipped int
	// Duplicates counts records whose identifier was already indexed; the
	// later record replaces the earlier one.
	Duplicates int
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot(municipio, vigencia string) *Snapshot {
	return &Snapshot{
		Municipio: municipio,
		Vigencia:  vigencia,
		Predios:   make(map[string]Predio),
	}
}

// Len returns the number of indexed records.
func (s *Snapshot) Len() int { return len(s.Predios) }

// IDs returns the indexed identifiers as a set.
func (s *Snapshot) IDs() IDSet {
	ids := make(IDSet, len(s.Predios))
	for id := range s.Predios {
		ids[id] = struct{}{}
	}
	return ids
}

// Sorted returns the records ordered by identifier.
func (s *Snapshot) Sorted() []Predio {
	out := make([]Predio, 0, len(s.Predios))
	for _, p := range s.Predios {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NumeroPredial < out[j].NumeroPredial })
	return out
}
