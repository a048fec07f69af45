// Package extract turns one municipality XML file into a Snapshot keyed by
// national cadastral number.
package extract

import (
	"io"
	"strings"

	"catastro/internal/types"
)

// Schema names the elements the extractor looks for.
type Schema struct {
	RecordElement   string
	IdentifierField string
}

// DefaultSchema matches the Registro_catastral_XXXXX.xml exports.
func DefaultSchema() Schema {
	return Schema{
		RecordElement:   "predio",
		IdentifierField: "codigo_predial_nacional",
	}
}

// Extractor builds Snapshots from parsed trees.
type Extractor struct {
	schema Schema
}

// New returns an Extractor; empty schema names fall back to the defaults.
func New(schema Schema) *Extractor {
	def := DefaultSchema()
	if schema.RecordElement == "" {
		schema.RecordElement = def.RecordElement
	}
	if schema.IdentifierField == "" {
		schema.IdentifierField = def.IdentifierField
	}
	return &Extractor{schema: schema}
}

// Read parses r and indexes its records. source is only used in errors.
func (e *Extractor) Read(r io.Reader, source, municipio, vigencia string) (*types.Snapshot, error) {
	root, err := Parse(r, source)
	if err != nil {
		return nil, err
	}
	return e.FromTree(root, municipio, vigencia), nil
}

// FromTree indexes every record element found at any depth below root.
// Records without an identifier are counted in Skipped and never indexed.
func (e *Extractor) FromTree(root *Node, municipio, vigencia string) *types.Snapshot {
	snap := types.NewSnapshot(municipio, vigencia)
	root.walk(func(n *Node) bool {
		if n.Name != e.schema.RecordElement {
			return true
		}
		id := identifierOf(n, e.schema.IdentifierField)
		if id == "" {
			snap.Skipped++
			return false
		}
		if _, dup := snap.Predios[id]; dup {
			snap.Duplicates++
		}
		snap.Predios[id] = types.Predio{NumeroPredial: id, Fields: fieldsOf(n)}
		return false
	})
	return snap
}

func identifierOf(record *Node, field string) string {
	c := record.Child(field)
	if c == nil || c.Text == nil || len(c.Children) > 0 {
		return ""
	}
	return strings.TrimSpace(*c.Text)
}

// fieldsOf converts the children of n, recursing into structured ones.
func fieldsOf(n *Node) types.Fields {
	fields := make(types.Fields, len(n.Children))
	seen := make(map[string]int, len(n.Children))
	for _, c := range n.Children {
		key := types.EntryKey(c.Name, seen[c.Name])
		seen[c.Name]++
		fields[key] = valueOf(c)
	}
	return fields
}

func valueOf(n *Node) types.Value {
	switch {
	case len(n.Children) > 0:
		return types.Group(fieldsOf(n))
	case n.Text == nil:
		return types.NullValue()
	default:
		return types.Text(*n.Text)
	}
}
