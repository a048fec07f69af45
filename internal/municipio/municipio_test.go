package municipio

import (
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLayer(t *testing.T, rows [][3]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "MGN_MPIO_POLITICO.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("MPIO_CDPMP", 5),
		shp.StringField("MPIO_CNMBR", 40),
		shp.StringField("DPTO_CNMBR", 40),
	}))
	for i, row := range rows {
		n := w.Write(&shp.Point{X: -74 + float64(i), Y: 4.5})
		for f, v := range row {
			require.NoError(t, w.WriteAttribute(int(n), f, v))
		}
	}
	w.Close()
	return path
}

func TestLoad(t *testing.T) {
	path := writeLayer(t, [][3]string{
		{"25126", "CAJICA", "CUNDINAMARCA"},
		{"25175", "CHIA", "CUNDINAMARCA"},
		{"", "SIN CODIGO", ""},
	})

	d, err := Load(path, Fields{})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"25126", "25175"}, d.Codes())

	m, ok := d.Lookup("25175")
	require.True(t, ok)
	assert.Equal(t, "CHIA", m.Name)
	assert.Equal(t, "CUNDINAMARCA", m.Department)

	assert.Equal(t, "25126 CAJICA (CUNDINAMARCA)", d.Label("25126"))
	assert.Equal(t, "99999", d.Label("99999"))
}

func TestLabel_WithoutDepartment(t *testing.T) {
	path := writeLayer(t, [][3]string{{"25126", "CAJICA", ""}})
	d, err := Load(path, Fields{})
	require.NoError(t, err)
	assert.Equal(t, "25126 CAJICA", d.Label("25126"))

	var none *Directory
	assert.Equal(t, "25126", none.Label("25126"))
}

func TestLoad_MissingFields(t *testing.T) {
	path := writeLayer(t, [][3]string{{"25126", "CAJICA", "CUNDINAMARCA"}})
	_, err := Load(path, Fields{Code: "COD_MPIO"})
	assert.ErrorContains(t, err, "COD_MPIO")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.shp"), Fields{})
	assert.Error(t, err)
}

func TestNilDirectory(t *testing.T) {
	var d *Directory
	assert.Equal(t, "25126", d.Label("25126"))
	assert.Zero(t, d.Len())
}
