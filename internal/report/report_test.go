package report

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catastro/internal/classify"
	"catastro/internal/crossref"
	"catastro/internal/diff"
	"catastro/internal/source"
	"catastro/internal/types"
)

type names map[string]string

func (n names) Label(code string) string {
	if v, ok := n[code]; ok {
		return code + " " + v
	}
	return code
}

func sampleMunicipality() MunicipalityReport {
	return MunicipalityReport{
		Municipio: "25126",
		A: FileReport{
			Vigencia: "2024",
			File:     "Registro_catastral_25126.xml",
			Records:  3,
			Classifiers: []ClassifierCount{{
				Name:        classify.MissingInterestedParties,
				Description: "Predios sin interesados asociados",
				Result:      classify.Result{Count: 1, Identifiers: []string{"251260003"}},
			}},
		},
		B: FileReport{Vigencia: "2025", File: "Registro_catastral_25126.xml", Records: 3, Skipped: 1},
		Diff: diff.Result{
			Municipio: "25126",
			VigenciaA: "2024",
			VigenciaB: "2025",
			OnlyInA:   []string{"251260003"},
			OnlyInB:   []string{"251260004"},
			Changed:   []string{"251260001", "251260002"},
			Deltas: map[string][]diff.Delta{
				"251260001": {{Field: "avaluo", A: types.Text("100"), B: types.Text("120")}},
				"251260002": {{Field: "direccion", A: types.Value{}, B: types.Text("CL 1")}},
			},
			Unchanged:  4,
			Suppressed: map[diff.Rule]int{diff.RuleNoAddress: 2},
		},
		Accumulated: 2,
	}
}

func sampleSummary() Summary {
	changed := types.NewIDSet("251260001", "251260002")
	res, _ := crossref.Resolve(changed, []crossref.Reference{
		{Name: "tramites", IDs: types.NewIDSet("251260001")},
		{Name: "resoluciones", Err: errors.New("timeout")},
	}, crossref.Options{AllowUnavailable: true})

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return Summary{
		RunID:     "run-1",
		Started:   start,
		Finished:  start.Add(2 * time.Second),
		VigenciaA: "2024",
		VigenciaB: "2025",
		From:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Pairing: source.Pairing{
			A:          source.Folder{Total: 2, Valid: map[string]string{"25126": "x"}, Invalid: []string{"notas.txt"}},
			B:          source.Folder{Total: 1, Valid: map[string]string{"25126": "x"}},
			Pairs:      []source.Pair{{Municipio: "25126"}},
			MissingInB: []string{"25175"},
		},
		Accumulated: 2,
		ByMunicipio: map[string]int{"25126": 2},
		Crossref:    &res,
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	sink := NewText(&buf, TextOptions{Labels: names{"25126": "CAJICA"}, MaxDeltas: 1})
	require.NoError(t, sink.Municipality(sampleMunicipality()))
	require.NoError(t, sink.Summary(sampleSummary()))
	require.NoError(t, sink.Close())

	out := buf.String()
	for _, want := range []string{
		"MUNICIPIO 25126 CAJICA",
		"----    RESULTADOS Registro_catastral_25126.xml (2024):    ----",
		"Predios sin interesados asociados: 1\nNúmeros prediales únicos:\n- 251260003\n",
		"Registros sin número predial (omitidos): 1",
		"Solo en 2024: 1",
		"Predios con cambios: 2",
		"Diferencias ignoradas (sin_direccion): 2",
		`avaluo: "100" -> "120"`,
		"... 1 predios más",
		"Archivos que no cumplen con la estructura en 2024: 1\n  Nombres: notas.txt",
		"Municipios faltantes en 2025: 1\n  Nombres: 25175",
		"Municipios faltantes en 2024: 0\n  Nombres: Ninguno",
		"resoluciones: NO DISPONIBLE",
		"tramites: 1 números prediales, 1 explican cambios",
		"sin trámite ni resolución: 1",
		"25126 CAJICA (1):\n- 251260002",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "direccion: ")
	assert.Equal(t, 1, strings.Count(out, "Reporte consolidado"))
}

func TestText_CrossrefError(t *testing.T) {
	var buf bytes.Buffer
	sink := NewText(&buf, TextOptions{})
	s := sampleSummary()
	s.Crossref = nil
	s.CrossrefErr = errors.New("reference tramites unavailable")
	require.NoError(t, sink.Summary(s))
	assert.Contains(t, buf.String(), "no disponible: reference tramites unavailable")
}

func TestYAML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resultados.yaml")
	sink, err := CreateYAML(path, names{"25126": "CAJICA"})
	require.NoError(t, err)
	require.NoError(t, sink.Municipality(sampleMunicipality()))
	require.NoError(t, sink.Summary(sampleSummary()))
	require.NoError(t, sink.Close())

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", doc.RunID)
	require.Len(t, doc.Municipios, 1)
	m := doc.Municipios[0]
	assert.Equal(t, "25126 CAJICA", m.Nombre)
	assert.Equal(t, 1, m.A.Clasificacion[classify.MissingInterestedParties].Conteo)
	assert.Equal(t, 2, m.Suprimidas["sin_direccion"])

	assert.Equal(t, []string{"251260002"}, doc.Unexplained())
	_, deltas, ok := doc.Changes("251260002")
	require.True(t, ok)
	assert.Equal(t, []DeltaDoc{{Campo: "direccion", A: "<ausente>", B: "CL 1"}}, deltas)

	_, _, ok = doc.Changes("999")
	assert.False(t, ok)
}

func TestConsole_NoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, nil, 5)
	require.NoError(t, c.Municipality(sampleMunicipality()))
	require.NoError(t, c.Summary(sampleSummary()))

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "avaluo")
	assert.Contains(t, out, "120 [100]")
	assert.Contains(t, out, "Sin explicar          : 1")
}

type failingSink struct{ err error }

func (f failingSink) Municipality(MunicipalityReport) error { return f.err }
func (f failingSink) Summary(Summary) error                 { return f.err }
func (f failingSink) Close() error                          { return f.err }

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("disk full")
	m := Multi{NewText(&buf, TextOptions{}), failingSink{err: boom}}

	err := m.Municipality(sampleMunicipality())
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, Multi{NewText(&buf, TextOptions{})}.Close())
	assert.ErrorIs(t, m.Close(), boom)
	assert.Contains(t, buf.String(), "MUNICIPIO 25126")
}
