package diff

// Policy holds the field names and sentinel values that decide which
// differences are noise. It is plain data so runs can swap it from config.
type Policy struct {
	// NullTokens are texts read as "no value" besides absent and empty elements.
	NullTokens []string

	AddressField string
	// NoAddress is the placeholder address; when the first snapshot holds it
	// any change of address is ignored.
	NoAddress string

	InterestedField string
	// UnknownName is the placeholder for an unknown party name.
	UnknownName string
	// NameFields are the party sub-fields compared inside InterestedField.
	NameFields []string
	// PartyKeyField identifies a party across snapshots, so reordered
	// entries are still paired. Entries without it pair by position.
	PartyKeyField string

	// ReportAddedFields also compares fields that exist only in the second
	// snapshot. Off by default: only first-snapshot fields are inspected.
	ReportAddedFields bool
}

// DefaultPolicy returns the sentinels used in the cadastral exports.
func DefaultPolicy() Policy {
	return Policy{
		NullTokens:      []string{"", "NULL"},
		AddressField:    "direccion",
		NoAddress:       "SIN DIRECCION",
		InterestedField: "interesados",
		UnknownName:     "DESCONOCIDO",
		NameFields:      []string{"primer_nombre", "segundo_nombre", "primer_apellido", "segundo_apellido"},
		PartyKeyField:   "documento",
	}
}

// Rule names a suppression rule.
type Rule string

const (
	RuleNullEquivalent Rule = "null_equivalente"
	RuleNoAddress      Rule = "sin_direccion"
	RuleUnknownName    Rule = "nombre_desconocido"
)

func (p Policy) isNameField(name string) bool {
	for _, n := range p.NameFields {
		if n == name {
			return true
		}
	}
	return false
}

func (p Policy) isNullToken(s string) bool {
	for _, t := range p.NullTokens {
		if s == t {
			return true
		}
	}
	return false
}
