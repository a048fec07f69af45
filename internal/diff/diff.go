// Package diff compares two snapshots of the same municipality and reports
// the identifiers that were added, removed or changed between periods.
package diff

import (
	"sort"
	"strconv"
	"strings"

	"catastro/internal/types"
)

// Delta is one field-level difference. Field is a slash separated path for
// differences found inside structured sections.
type Delta struct {
	Field string
	A     types.Value
	B     types.Value
}

// Result is the outcome of comparing two snapshots.
type Result struct {
	Municipio string
	VigenciaA string
	VigenciaB string

	OnlyInA []string
	OnlyInB []string
	Changed []string
	Deltas  map[string][]Delta

	// Unchanged counts identifiers present in both snapshots with no delta.
	Unchanged int
	// Suppressed counts the field comparisons each rule silenced.
	Suppressed map[Rule]int
}

// ChangedSet returns the changed identifiers as a set.
func (r Result) ChangedSet() types.IDSet { return types.NewIDSet(r.Changed...) }

// Differ compares snapshots under a Policy.
type Differ struct {
	policy Policy
}

// New returns a Differ using p.
func New(p Policy) *Differ {
	return &Differ{policy: p}
}

// Diff compares a (earlier period) against b (later period).
func (d *Differ) Diff(a, b *types.Snapshot) Result {
	res := Result{
		Municipio:  a.Municipio,
		VigenciaA:  a.Vigencia,
		VigenciaB:  b.Vigencia,
		Deltas:     make(map[string][]Delta),
		Suppressed: make(map[Rule]int),
	}
	if res.Municipio == "" {
		res.Municipio = b.Municipio
	}

	keysA, keysB := a.IDs(), b.IDs()
	res.OnlyInA = keysA.Minus(keysB).Sorted()
	res.OnlyInB = keysB.Minus(keysA).Sorted()

	for _, id := range keysA.Intersect(keysB).Sorted() {
		deltas := d.Compare(a.Predios[id].Fields, b.Predios[id].Fields, res.Suppressed)
		if len(deltas) == 0 {
			res.Unchanged++
			continue
		}
		res.Changed = append(res.Changed, id)
		res.Deltas[id] = deltas
	}
	return res
}

// Compare returns the unsuppressed differences between two records' fields.
// suppressed, when non-nil, is incremented per silenced comparison.
func (d *Differ) Compare(a, b types.Fields, suppressed map[Rule]int) []Delta {
	c := comparison{policy: d.policy, suppressed: suppressed}
	for _, name := range c.keys(a, b) {
		c.topField(name, a.Get(name), b.Get(name))
	}
	return c.deltas
}

type comparison struct {
	policy     Policy
	suppressed map[Rule]int
	deltas     []Delta
}

func (c *comparison) suppress(r Rule) {
	if c.suppressed != nil {
		c.suppressed[r]++
	}
}

func (c *comparison) record(path string, a, b types.Value) {
	c.deltas = append(c.deltas, Delta{Field: path, A: a, B: b})
}

// keys lists the field names to inspect: those of a, plus those only in b
// when the policy asks for added fields.
func (c *comparison) keys(a, b types.Fields) []string {
	names := a.Keys()
	if !c.policy.ReportAddedFields {
		return names
	}
	for name := range b {
		if _, ok := a[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *comparison) topField(name string, a, b types.Value) {
	p := c.policy
	switch {
	case name == p.AddressField && a.Kind == types.Scalar && a.Trimmed() == p.NoAddress:
		c.suppress(RuleNoAddress)
	case name == p.InterestedField && a.IsNested():
		var bf types.Fields
		if b.IsNested() {
			bf = b.Fields
		}
		c.parties(name, a.Fields, bf)
	default:
		c.field(name, a, b)
	}
}

// field compares two values at path, descending into structured sections.
func (c *comparison) field(path string, a, b types.Value) {
	if c.nullEquivalent(a, b) {
		c.suppress(RuleNullEquivalent)
		return
	}
	if a.IsNested() && b.IsNested() {
		for _, name := range c.keys(a.Fields, b.Fields) {
			c.field(path+"/"+name, a.Fields.Get(name), b.Fields.Get(name))
		}
		return
	}
	if !a.Equal(b) {
		c.record(path, a, b)
	}
}

// parties walks the interested-parties section and compares only name
// sub-fields. Each structured entry of a is compared with its counterpart in
// b (see pair); entries without one, on either side, are not compared.
func (c *comparison) parties(path string, a, b types.Fields) {
	p := c.policy
	pairs := c.pair(a, b)
	for _, name := range c.keys(a, b) {
		av, bv := a.Get(name), b.Get(name)
		sub := path + "/" + name
		switch {
		case av.IsNested():
			if match, ok := pairs[name]; ok {
				c.parties(sub, av.Fields, b.Get(match).Fields)
			}
		case bv.IsNested():
			continue
		case !p.isNameField(name):
			continue
		case av.Kind == types.Scalar && av.Trimmed() == p.UnknownName:
			c.suppress(RuleUnknownName)
		case c.nullEquivalent(av, bv):
			c.suppress(RuleNullEquivalent)
		case !av.Equal(bv):
			c.record(sub, av, bv)
		}
	}
}

// pair matches the structured entries of a to those of b. An entry first
// takes the unused b entry of the same element with the same party key, then
// the b entry under its own name if that one is still free.
func (c *comparison) pair(a, b types.Fields) map[string]string {
	pairs := make(map[string]string)
	taken := make(map[string]bool)
	names, others := a.Keys(), b.Keys()

	if key := c.policy.PartyKeyField; key != "" {
		for _, an := range names {
			av := a.Get(an)
			id := av.Fields.Get(key).Trimmed()
			if !av.IsNested() || id == "" {
				continue
			}
			for _, bn := range others {
				bv := b.Get(bn)
				if taken[bn] || !bv.IsNested() || element(bn) != element(an) {
					continue
				}
				if bv.Fields.Get(key).Trimmed() == id {
					pairs[an], taken[bn] = bn, true
					break
				}
			}
		}
	}
	for _, an := range names {
		if _, ok := pairs[an]; ok || !a.Get(an).IsNested() {
			continue
		}
		if !taken[an] && b.Get(an).IsNested() {
			pairs[an], taken[an] = an, true
		}
	}
	return pairs
}

// element strips the occurrence suffix added to repeated child elements.
func element(name string) string {
	base, _, _ := strings.Cut(name, "#")
	return base
}

func (c *comparison) nullEquivalent(a, b types.Value) bool {
	return (c.nullish(a) && isZero(b)) || (c.nullish(b) && isZero(a))
}

func (c *comparison) nullish(v types.Value) bool {
	switch v.Kind {
	case types.Absent, types.Null:
		return true
	case types.Scalar:
		return c.policy.isNullToken(v.Text)
	}
	return false
}

func isZero(v types.Value) bool {
	if v.Kind != types.Scalar {
		return false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
	return err == nil && f == 0
}
