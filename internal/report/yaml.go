package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/goccy/go-yaml"

	"catastro/internal/diff"
)

// Document is the structured form of a run written to resultados.yaml.
type Document struct {
	RunID      string         `yaml:"ejecucion"`
	VigenciaA  string         `yaml:"vigencia_a"`
	VigenciaB  string         `yaml:"vigencia_b"`
	Municipios []MunicipioDoc `yaml:"municipios"`
	Resumen    *SummaryDoc    `yaml:"resumen,omitempty"`
}

type FileDoc struct {
	Archivo       string              `yaml:"archivo"`
	Predios       int                 `yaml:"predios"`
	Omitidos      int                 `yaml:"omitidos,omitempty"`
	Duplicados    int                 `yaml:"duplicados,omitempty"`
	Clasificacion map[string]ClassDoc `yaml:"clasificacion,omitempty"`
}

type ClassDoc struct {
	Conteo           int      `yaml:"conteo"`
	NumerosPrediales []string `yaml:"numeros_prediales,omitempty"`
}

type DeltaDoc struct {
	Campo string `yaml:"campo"`
	A     string `yaml:"a"`
	B     string `yaml:"b"`
}

type MunicipioDoc struct {
	Codigo     string                `yaml:"codigo"`
	Nombre     string                `yaml:"nombre,omitempty"`
	A          FileDoc               `yaml:"a"`
	B          FileDoc               `yaml:"b"`
	SoloEnA    []string              `yaml:"solo_en_a,omitempty"`
	SoloEnB    []string              `yaml:"solo_en_b,omitempty"`
	Cambios    map[string][]DeltaDoc `yaml:"cambios,omitempty"`
	SinCambios int                   `yaml:"sin_cambios"`
	Suprimidas map[string]int        `yaml:"diferencias_ignoradas,omitempty"`
	Acumulado  int                   `yaml:"acumulado"`
}

type ReferenceDoc struct {
	Nombre       string `yaml:"nombre"`
	Tamano       int    `yaml:"tamano"`
	Explicados   int    `yaml:"explicados"`
	NoDisponible bool   `yaml:"no_disponible,omitempty"`
}

type SummaryDoc struct {
	Inicio           time.Time           `yaml:"inicio"`
	Fin              time.Time           `yaml:"fin"`
	Comparados       int                 `yaml:"municipios_comparados"`
	FaltantesEnA     []string            `yaml:"faltantes_en_a,omitempty"`
	FaltantesEnB     []string            `yaml:"faltantes_en_b,omitempty"`
	Fallidos         map[string]string   `yaml:"fallidos,omitempty"`
	Acumulado        int                 `yaml:"total_cambios"`
	Referencias      []ReferenceDoc      `yaml:"referencias,omitempty"`
	ErrorCruce       string              `yaml:"error_cruce,omitempty"`
	SinExplicar      map[string][]string `yaml:"sin_explicar,omitempty"`
	SinExplicarTotal int                 `yaml:"sin_explicar_total"`
}

// YAML accumulates a Document and writes it on Close.
type YAML struct {
	w      io.Writer
	closer io.Closer
	labels Labeler
	doc    Document
}

// NewYAML writes the document to w on Close.
func NewYAML(w io.Writer, labels Labeler) *YAML {
	return &YAML{w: w, labels: labels}
}

// CreateYAML creates the results file at path.
func CreateYAML(path string, labels Labeler) (*YAML, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create results %s: %w", path, err)
	}
	y := NewYAML(f, labels)
	y.closer = f
	return y, nil
}

func fileDoc(f FileReport) FileDoc {
	d := FileDoc{
		Archivo:    f.File,
		Predios:    f.Records,
		Omitidos:   f.Skipped,
		Duplicados: f.Duplicates,
	}
	if len(f.Classifiers) > 0 {
		d.Clasificacion = make(map[string]ClassDoc, len(f.Classifiers))
		for _, c := range f.Classifiers {
			d.Clasificacion[c.Name] = ClassDoc{Conteo: c.Count, NumerosPrediales: c.Identifiers}
		}
	}
	return d
}

func deltaDocs(ds []diff.Delta) []DeltaDoc {
	out := make([]DeltaDoc, 0, len(ds))
	for _, d := range ds {
		out = append(out, DeltaDoc{Campo: d.Field, A: d.A.String(), B: d.B.String()})
	}
	return out
}

func (y *YAML) Municipality(r MunicipalityReport) error {
	m := MunicipioDoc{
		Codigo:     r.Municipio,
		A:          fileDoc(r.A),
		B:          fileDoc(r.B),
		SoloEnA:    r.Diff.OnlyInA,
		SoloEnB:    r.Diff.OnlyInB,
		SinCambios: r.Diff.Unchanged,
		Acumulado:  r.Accumulated,
	}
	if l := label(y.labels, r.Municipio); l != r.Municipio {
		m.Nombre = l
	}
	if len(r.Diff.Changed) > 0 {
		m.Cambios = make(map[string][]DeltaDoc, len(r.Diff.Changed))
		for _, id := range r.Diff.Changed {
			m.Cambios[id] = deltaDocs(r.Diff.Deltas[id])
		}
	}
	if len(r.Diff.Suppressed) > 0 {
		m.Suprimidas = make(map[string]int, len(r.Diff.Suppressed))
		for rule, n := range r.Diff.Suppressed {
			m.Suprimidas[string(rule)] = n
		}
	}
	y.doc.VigenciaA, y.doc.VigenciaB = r.A.Vigencia, r.B.Vigencia
	y.doc.Municipios = append(y.doc.Municipios, m)
	return nil
}

func (y *YAML) Summary(s Summary) error {
	y.doc.RunID = s.RunID
	y.doc.VigenciaA, y.doc.VigenciaB = s.VigenciaA, s.VigenciaB
	sum := &SummaryDoc{
		Inicio:       s.Started,
		Fin:          s.Finished,
		Comparados:   len(s.Pairing.Pairs) - len(s.Failures),
		FaltantesEnA: s.Pairing.MissingInA,
		FaltantesEnB: s.Pairing.MissingInB,
		Acumulado:    s.Accumulated,
	}
	if len(s.Failures) > 0 {
		sum.Fallidos = make(map[string]string, len(s.Failures))
		for _, f := range s.Failures {
			sum.Fallidos[f.Municipio] = f.Err
		}
	}
	if s.CrossrefErr != nil {
		sum.ErrorCruce = s.CrossrefErr.Error()
	}
	if x := s.Crossref; x != nil {
		for _, r := range x.References {
			sum.Referencias = append(sum.Referencias, ReferenceDoc{
				Nombre:       r.Name,
				Tamano:       r.Size,
				Explicados:   r.Explained,
				NoDisponible: r.Unavailable,
			})
		}
		sum.SinExplicarTotal = len(x.Unexplained)
		if len(x.Groups) > 0 {
			sum.SinExplicar = make(map[string][]string, len(x.Groups))
			for _, g := range x.Groups {
				sum.SinExplicar[g.Municipio] = g.IDs
			}
		}
	}
	y.doc.Resumen = sum
	return nil
}

// Document returns what has been collected so far.
func (y *YAML) Document() Document { return y.doc }

func (y *YAML) Close() error {
	out, err := yaml.Marshal(y.doc)
	if err == nil {
		_, err = y.w.Write(out)
	}
	if y.closer != nil {
		if cerr := y.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// LoadDocument reads a results file written by a previous run.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	return &doc, nil
}

// Unexplained returns the unexplained identifiers of the document, sorted.
func (d *Document) Unexplained() []string {
	if d.Resumen == nil {
		return nil
	}
	var out []string
	for _, ids := range d.Resumen.SinExplicar {
		out = append(out, ids...)
	}
	sort.Strings(out)
	return out
}

// Changes returns the recorded deltas of id, if any municipality changed it.
func (d *Document) Changes(id string) (MunicipioDoc, []DeltaDoc, bool) {
	for _, m := range d.Municipios {
		if ds, ok := m.Cambios[id]; ok {
			return m, ds, true
		}
	}
	return MunicipioDoc{}, nil, false
}
