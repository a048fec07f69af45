package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"absent vs absent", Value{}, Value{}, true},
		{"null vs empty text", NullValue(), Text(""), false},
		{"same text", Text("10"), Text("10"), true},
		{"no coercion", Text("10"), Text("10.0"), false},
		{"nested equal", Group(Fields{"a": Text("1")}), Group(Fields{"a": Text("1")}), true},
		{"nested extra key", Group(Fields{"a": Text("1")}), Group(Fields{"a": Text("1"), "b": Text("2")}), false},
		{"nested vs scalar", Group(nil), Text(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestFields_Path(t *testing.T) {
	f := Fields{
		"interesados": Group(Fields{
			"persona_natural": Group(Fields{"documento": Text("123")}),
		}),
		"avaluo": Text("0"),
	}
	assert.Equal(t, "123", f.Path("interesados", "persona_natural", "documento").Text)
	assert.False(t, f.Path("avaluo", "x").Present())
	assert.False(t, f.Path("missing").Present())
}

func TestEntryKey(t *testing.T) {
	assert.Equal(t, "persona_natural", EntryKey("persona_natural", 0))
	assert.Equal(t, "persona_natural#2", EntryKey("persona_natural", 1))
}

func TestMunicipioOf(t *testing.T) {
	assert.Equal(t, "25019", MunicipioOf("2501900112345678901230010000"))
	assert.Equal(t, "250", MunicipioOf("250"))
}

func TestIDSet_Algebra(t *testing.T) {
	a := NewIDSet("A", "B", "C", "")
	b := NewIDSet("B", "D")

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []string{"A", "C"}, a.Minus(b).Sorted())
	assert.Equal(t, []string{"B"}, a.Intersect(b).Sorted())
	assert.Equal(t, []string{"A", "B", "C", "D"}, a.Union(b).Sorted())
	// operands are untouched
	assert.Equal(t, []string{"A", "B", "C"}, a.Sorted())
}
