// Package accumulate collects the changed identifiers of every municipality
// processed in a run. The set only grows.
package accumulate

import (
	"catastro/internal/diff"
	"catastro/internal/types"
)

// ChangeSet is the run-wide set of changed identifiers. It is owned by the
// caller and passed explicitly; it is not safe for concurrent use.
type ChangeSet struct {
	ids          types.IDSet
	municipios   map[string]int
	unionsByMpio map[string]int
}

// New returns an empty ChangeSet.
func New() *ChangeSet {
	return &ChangeSet{
		ids:          make(types.IDSet),
		municipios:   make(map[string]int),
		unionsByMpio: make(map[string]int),
	}
}

// Fold unions every result into a fresh ChangeSet.
func Fold(results ...diff.Result) *ChangeSet {
	cs := New()
	for _, r := range results {
		cs.Union(r)
	}
	return cs
}

// Union adds the changed identifiers of r. Repeating a union is a no-op.
func (c *ChangeSet) Union(r diff.Result) {
	c.unionsByMpio[r.Municipio]++
	c.Add(r.Changed...)
}

// Add inserts identifiers directly.
func (c *ChangeSet) Add(ids ...string) {
	for _, id := range ids {
		if id == "" || c.ids.Has(id) {
			continue
		}
		c.ids[id] = struct{}{}
		c.municipios[types.MunicipioOf(id)]++
	}
}

// Merge unions another ChangeSet into c. Merge order does not matter.
func (c *ChangeSet) Merge(o *ChangeSet) {
	for id := range o.ids {
		c.Add(id)
	}
	for m, n := range o.unionsByMpio {
		c.unionsByMpio[m] += n
	}
}

// Len returns the number of distinct changed identifiers.
func (c *ChangeSet) Len() int { return len(c.ids) }

// Contains reports membership.
func (c *ChangeSet) Contains(id string) bool { return c.ids.Has(id) }

// IDs returns a copy of the accumulated set.
func (c *ChangeSet) IDs() types.IDSet { return c.ids.Clone() }

// ByMunicipio returns the number of distinct changed identifiers per
// municipality code (first five characters).
func (c *ChangeSet) ByMunicipio() map[string]int {
	out := make(map[string]int, len(c.municipios))
	for m, n := range c.municipios {
		out[m] = n
	}
	return out
}

// Unions returns how many diff results were folded in.
func (c *ChangeSet) Unions() int {
	n := 0
	for _, v := range c.unionsByMpio {
		n += v
	}
	return n
}
