package purge

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catastro/internal/extract"
	"catastro/internal/types"
)

const (
	urban1 = "254360000000000010001000000000"
	urban2 = "254360000000000010002000000000"
	rural  = "254360100000000010003000000000"
)

func doc(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="ISO-8859-1"?>` + "\n<registros>\n")
	for _, id := range ids {
		b.WriteString("  <predio><codigo_predial_nacional> " + id + " </codigo_predial_nacional><direccion>CL 1</direccion></predio>\n")
	}
	b.WriteString("</registros>\n")
	return b.String()
}

func TestPurge(t *testing.T) {
	var out bytes.Buffer
	rep, err := Purge(strings.NewReader(doc(urban1, urban2, rural)), &out, Options{
		Exclude: types.NewIDSet(urban2, "999"),
		Zone:    "01",
	})
	require.NoError(t, err)

	assert.Equal(t, Report{
		Municipio:     "25436",
		Initial:       3,
		RemovedByList: 1,
		RemovedByZone: 1,
		Remaining:     1,
		ListedMissing: []string{"999"},
	}, rep)

	snap, err := extract.New(extract.Schema{}).Read(&out, "out", "25436", "2025")
	require.NoError(t, err)
	assert.Equal(t, []string{urban1}, snap.IDs().Sorted())
}

func TestPurge_OutputIsUTF8(t *testing.T) {
	in := `<?xml version="1.0" encoding="ISO-8859-1"?><r><predio><codigo_predial_nacional>1</codigo_predial_nacional><direccion>CARRERA ` + "\xd1" + `O</direccion></predio></r>`
	var out bytes.Buffer
	_, err := Purge(strings.NewReader(in), &out, Options{Exclude: types.NewIDSet()})
	require.NoError(t, err)

	assert.Contains(t, out.String(), `encoding="UTF-8"`)
	assert.Contains(t, out.String(), "CARRERA ÑO")
}

func TestPurge_ZoneRuleDisabled(t *testing.T) {
	var out bytes.Buffer
	rep, err := Purge(strings.NewReader(doc(rural, "2543601")), &out, Options{Exclude: types.NewIDSet()})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Remaining)
	assert.Zero(t, rep.RemovedByZone)
}

func TestPurge_ShortIdentifierNeverMatchesZone(t *testing.T) {
	var out bytes.Buffer
	rep, err := Purge(strings.NewReader(doc("2543601")), &out, Options{Exclude: types.NewIDSet(), Zone: "01"})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Remaining)
}

func TestPurge_KeepsRecordsWithoutIdentifier(t *testing.T) {
	in := `<r><predio><direccion>x</direccion></predio><predio><codigo_predial_nacional>` + rural + `</codigo_predial_nacional></predio></r>`
	var out bytes.Buffer
	rep, err := Purge(strings.NewReader(in), &out, Options{Exclude: types.NewIDSet(), Zone: "01"})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.NoIdentifier)
	assert.Equal(t, 1, rep.Remaining)
	assert.Equal(t, 1, rep.RemovedByZone)
}

func TestPurge_Malformed(t *testing.T) {
	var out bytes.Buffer
	_, err := Purge(strings.NewReader(`<r><predio><codigo_predial_nacional>1`), &out, Options{})
	assert.True(t, errors.Is(err, extract.ErrMalformedInput))
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Registro_catastral_25436.xml")
	list := filepath.Join(dir, "Numeros_Prediales_Rurales_Exc.txt")
	out := filepath.Join(dir, "salida", "Registro_catastral_modificado.xml")
	require.NoError(t, os.WriteFile(in, []byte(doc(urban1, urban2, rural)), 0o644))
	require.NoError(t, os.WriteFile(list, []byte(urban2+"\n"+urban2+"\n\n"), 0o644))

	rep, err := File(in, out, list, Options{Zone: "01"})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.List.Lines)
	assert.Equal(t, 1, rep.List.Duplicates)
	assert.Equal(t, 1, rep.Remaining)
	assert.Equal(t, "Reporte_Eliminacion_Predios_25436.txt", rep.ReportName())

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), urban1)
	assert.NotContains(t, string(written), urban2)

	var b bytes.Buffer
	_, err = rep.WriteTo(&b)
	require.NoError(t, err)
	assert.Contains(t, b.String(), "Cantidad inicial de predios en XML: 3")
	assert.Contains(t, b.String(), "Duplicados encontrados: 1")
	assert.Contains(t, b.String(), "No hay predios faltantes")
}

func TestFile_MalformedNamesInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(in, []byte("<r><predio>"), 0o644))

	_, err := File(in, filepath.Join(dir, "out.xml"), "", Options{})
	var mie *extract.MalformedInputError
	require.True(t, errors.As(err, &mie))
	assert.Equal(t, in, mie.Source)
	_, statErr := os.Stat(filepath.Join(dir, "out.xml"))
	assert.True(t, os.IsNotExist(statErr))
}
