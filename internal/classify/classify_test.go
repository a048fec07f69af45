package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"catastro/internal/types"
)

func predio(id string, fields types.Fields) types.Predio {
	return types.Predio{NumeroPredial: id, Fields: fields}
}

func TestMissingInterestedParties(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		name   string
		fields types.Fields
		want   bool
	}{
		{"absent", types.Fields{}, true},
		{"null element", types.Fields{"interesados": types.NullValue()}, true},
		{"whitespace only", types.Fields{"interesados": types.Text("\n  ")}, true},
		{"empty group", types.Fields{"interesados": types.Group(nil)}, true},
		{"one party", types.Fields{"interesados": types.Group(types.Fields{"persona_natural": types.Group(nil)})}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.MissingInterestedParties(predio("X", tt.fields)))
		})
	}
}

func TestMissingAppraisal(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		name  string
		value types.Value
		want  bool
	}{
		{"absent", types.Value{}, true},
		{"null", types.NullValue(), true},
		{"blank", types.Text("   "), true},
		{"zero is present", types.Text("0"), false},
		{"value", types.Text("150000"), false},
		{"structured", types.Group(types.Fields{"valor": types.Text("1")}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := types.Fields{}
			if tt.value.Present() {
				f["avaluo"] = tt.value
			}
			assert.Equal(t, tt.want, r.MissingAppraisal(predio("X", f)))
		})
	}
}

func TestZeroAppraisalUnderCondition(t *testing.T) {
	r := DefaultRules()
	const (
		flagged   = "2501900112345678901230010000" // position 22 is '0'
		unflagged = "2501900112345678901291010000" // position 22 is '1'
	)
	tests := []struct {
		name   string
		id     string
		fields types.Fields
		want   bool
	}{
		{"zero with NPH and flag", flagged, types.Fields{"avaluo": types.Text("0"), "condicion_predio": types.Text("NPH")}, true},
		{"zero with NPH only", unflagged, types.Fields{"avaluo": types.Text("0"), "condicion_predio": types.Text("NPH")}, true},
		{"zero with flag only", flagged, types.Fields{"avaluo": types.Text("0"), "condicion_predio": types.Text("PH")}, true},
		{"zero without either", unflagged, types.Fields{"avaluo": types.Text("0"), "condicion_predio": types.Text("PH")}, false},
		{"non-zero with both", flagged, types.Fields{"avaluo": types.Text("1000"), "condicion_predio": types.Text("NPH")}, false},
		{"absent appraisal reads as zero", flagged, types.Fields{}, true},
		{"non-numeric reads as zero", unflagged, types.Fields{"avaluo": types.Text("N/A"), "condicion_predio": types.Text("NPH")}, true},
		{"decimal zero", unflagged, types.Fields{"avaluo": types.Text("0.00"), "condicion_predio": types.Text("NPH")}, true},
		{"decimal non-zero", unflagged, types.Fields{"avaluo": types.Text("1500.50"), "condicion_predio": types.Text("NPH")}, false},
		{"thousands separator is non-numeric", unflagged, types.Fields{"avaluo": types.Text("1,500"), "condicion_predio": types.Text("NPH")}, true},
		{"short id falls back to condition", "2501900", types.Fields{"avaluo": types.Text("0"), "condicion_predio": types.Text("NPH")}, true},
		{"short id without condition", "2501900", types.Fields{"avaluo": types.Text("0")}, false},
		{"id of exactly 21 chars", "250190011234567890120", types.Fields{"avaluo": types.Text("0")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ZeroAppraisalUnderCondition(predio(tt.id, tt.fields)))
		})
	}
}

func TestMissingOwnerDocument(t *testing.T) {
	r := DefaultRules()
	withDoc := types.Fields{"interesados": types.Group(types.Fields{
		"persona_natural": types.Group(types.Fields{"documento": types.Text("79000000")}),
	})}
	blankDoc := types.Fields{"interesados": types.Group(types.Fields{
		"persona_natural": types.Group(types.Fields{"documento": types.Text(" ")}),
	})}

	assert.False(t, r.MissingOwnerDocument(predio("X", withDoc)))
	assert.True(t, r.MissingOwnerDocument(predio("X", blankDoc)))
	assert.True(t, r.MissingOwnerDocument(predio("X", types.Fields{})))
}

func TestApply(t *testing.T) {
	snap := types.NewSnapshot("25019", "2025")
	snap.Predios["B"] = predio("B", types.Fields{})
	snap.Predios["A"] = predio("A", types.Fields{})
	snap.Predios["C"] = predio("C", types.Fields{"avaluo": types.Text("10")})

	res := Apply(Classifier{Name: "sin_avaluo", Match: DefaultRules().MissingAppraisal}, snap)
	assert.Equal(t, Result{Count: 2, Identifiers: []string{"A", "B"}}, res)

	empty := Apply(Classifier{Match: func(types.Predio) bool { return false }}, snap)
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.Identifiers)
}

func TestSelect(t *testing.T) {
	all := Standard(DefaultRules())
	assert.Len(t, Select(all, nil), 4)

	picked := Select(all, []string{ZeroAppraisalUnderCondition, MissingAppraisal})
	names := make([]string, 0, len(picked))
	for _, c := range picked {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{MissingAppraisal, ZeroAppraisalUnderCondition}, names)
}
