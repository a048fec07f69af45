// Package classify holds the completeness rules evaluated on every record of a
// snapshot. Rules never fail: a missing field reads as absent, null or zero.
package classify

import (
	"strconv"

	"catastro/internal/types"
)

// Rules names the fields and codes the classifiers read.
type Rules struct {
	InterestedField string
	AppraisalField  string
	ConditionField  string
	// ConditionCode is the condition that, with a zero appraisal, flags a record.
	ConditionCode string
	// RegimePosition is the 1-based identifier position checked for RegimeFlag.
	RegimePosition int
	RegimeFlag     byte
	// OwnerDocumentPath locates the owner's document inside InterestedField.
	OwnerDocumentPath []string
}

// DefaultRules matches the field names of the cadastral exports.
func DefaultRules() Rules {
	return Rules{
		InterestedField:   "interesados",
		AppraisalField:    "avaluo",
		ConditionField:    "condicion_predio",
		ConditionCode:     "NPH",
		RegimePosition:    22,
		RegimeFlag:        '0',
		OwnerDocumentPath: []string{"persona_natural", "documento"},
	}
}

// Classifier is a named predicate over one record.
type Classifier struct {
	Name        string
	Description string
	Match       func(types.Predio) bool
}

// Result is what a classifier reports for one snapshot.
type Result struct {
	Count       int      `yaml:"conteo" json:"conteo"`
	Identifiers []string `yaml:"numeros_prediales" json:"numeros_prediales"`
}

// Apply evaluates c over every record of snap. Identifiers are unique and sorted.
func Apply(c Classifier, snap *types.Snapshot) Result {
	ids := make(types.IDSet)
	for id, p := range snap.Predios {
		if c.Match(p) {
			ids.Add(id)
		}
	}
	sorted := ids.Sorted()
	return Result{Count: len(sorted), Identifiers: sorted}
}

const (
	MissingInterestedParties    = "sin_interesados"
	MissingAppraisal            = "sin_avaluo"
	ZeroAppraisalUnderCondition = "avaluo_cero"
	MissingOwnerDocument        = "sin_documento_propietario"
)

// Standard returns the classifiers in reporting order.
func Standard(r Rules) []Classifier {
	return []Classifier{
		{
			Name:        MissingInterestedParties,
			Description: "Predios sin interesados asociados",
			Match:       r.MissingInterestedParties,
		},
		{
			Name:        MissingAppraisal,
			Description: "Predios sin avalúo",
			Match:       r.MissingAppraisal,
		},
		{
			Name:        ZeroAppraisalUnderCondition,
			Description: "Predios con avalúo cero (posición " + strconv.Itoa(r.RegimePosition) + " = '" + string(r.RegimeFlag) + "' o condición " + r.ConditionCode + ")",
			Match:       r.ZeroAppraisalUnderCondition,
		},
		{
			Name:        MissingOwnerDocument,
			Description: "Predios sin documento de propietario",
			Match:       r.MissingOwnerDocument,
		},
	}
}

// Select returns the classifiers from all whose names are listed. An empty
// list selects everything.
func Select(all []Classifier, names []string) []Classifier {
	if len(names) == 0 {
		return all
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Classifier
	for _, c := range all {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// MissingInterestedParties is true when the interested-parties section is
// absent or has no structured children.
func (r Rules) MissingInterestedParties(p types.Predio) bool {
	v := p.Fields.Get(r.InterestedField)
	return !v.IsNested() || len(v.Fields) == 0
}

// MissingAppraisal is true when the appraisal is absent, null or blank.
// A structured appraisal section counts as present.
func (r Rules) MissingAppraisal(p types.Predio) bool {
	v := p.Fields.Get(r.AppraisalField)
	switch v.Kind {
	case types.Nested:
		return false
	case types.Scalar:
		return v.Trimmed() == ""
	default:
		return true
	}
}

// ZeroAppraisalUnderCondition is true when the appraisal reads as zero and
// either the regime position of the identifier holds the flag or the
// condition field carries the configured code.
func (r Rules) ZeroAppraisalUnderCondition(p types.Predio) bool {
	if appraisal(p.Fields.Get(r.AppraisalField)) != 0 {
		return false
	}
	return r.regimeFlagged(p.NumeroPredial) ||
		p.Fields.Get(r.ConditionField).Trimmed() == r.ConditionCode
}

// MissingOwnerDocument is true when the first natural person listed has no
// document number.
func (r Rules) MissingOwnerDocument(p types.Predio) bool {
	path := append([]string{r.InterestedField}, r.OwnerDocumentPath...)
	return p.Fields.Path(path...).Trimmed() == ""
}

func (r Rules) regimeFlagged(id string) bool {
	i := r.RegimePosition - 1
	if i < 0 || len(id) <= i {
		return false
	}
	return id[i] == r.RegimeFlag
}

// appraisal reads an appraisal as an integer. Decimal text with a point is
// truncated; anything else non-numeric, separators included, reads as 0.
func appraisal(v types.Value) int64 {
	s := v.Trimmed()
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
