package accumulate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"catastro/internal/diff"
)

func TestChangeSet_UnionIsIdempotent(t *testing.T) {
	r := diff.Result{Municipio: "25019", Changed: []string{"25019A", "25019B"}}

	once := New()
	once.Union(r)

	twice := New()
	twice.Union(r)
	twice.Union(r)

	assert.Equal(t, once.IDs(), twice.IDs())
	assert.Equal(t, 2, twice.Len())
	assert.Equal(t, map[string]int{"25019": 2}, twice.ByMunicipio())
	assert.Equal(t, 2, twice.Unions())
}

func TestChangeSet_GrowsAcrossMunicipalities(t *testing.T) {
	cs := Fold(
		diff.Result{Municipio: "25019", Changed: []string{"25019A"}},
		diff.Result{Municipio: "25126", Changed: []string{"25126A", "25126B"}},
		diff.Result{Municipio: "25175"},
	)

	assert.Equal(t, 3, cs.Len())
	assert.True(t, cs.Contains("25126B"))
	assert.False(t, cs.Contains("25175A"))
	assert.Equal(t, map[string]int{"25019": 1, "25126": 2}, cs.ByMunicipio())
}

func TestChangeSet_MergeIsCommutative(t *testing.T) {
	r1 := diff.Result{Municipio: "25019", Changed: []string{"A1", "A2"}}
	r2 := diff.Result{Municipio: "25126", Changed: []string{"A2", "B1"}}

	left := Fold(r1)
	left.Merge(Fold(r2))

	right := Fold(r2)
	right.Merge(Fold(r1))

	assert.Equal(t, left.IDs(), right.IDs())
	assert.Equal(t, 3, left.Len())
}

func TestChangeSet_IDsIsACopy(t *testing.T) {
	cs := New()
	cs.Add("X")
	ids := cs.IDs()
	delete(ids, "X")
	assert.True(t, cs.Contains("X"))
}
