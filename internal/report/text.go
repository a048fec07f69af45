package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"catastro/internal/diff"
)

// TextOptions tune the consolidated text report.
type TextOptions struct {
	Labels Labeler
	// MaxDeltas caps the changed identifiers listed with their field deltas
	// per municipality. Zero lists all of them.
	MaxDeltas int
}

// Text writes Reporte_Consolidado.txt.
type Text struct {
	w      *bufio.Writer
	closer io.Closer
	opts   TextOptions
	err    error
	header bool
}

// NewText writes to w. Close flushes but does not close w.
func NewText(w io.Writer, opts TextOptions) *Text {
	return &Text{w: bufio.NewWriter(w), opts: opts}
}

// CreateText creates the report file at path.
func CreateText(path string, opts TextOptions) (*Text, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report %s: %w", path, err)
	}
	t := NewText(f, opts)
	t.closer = f
	return t, nil
}

func (t *Text) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *Text) writeHeader() {
	if t.header {
		return
	}
	t.header = true
	t.printf("Reporte consolidado de conciliación catastral\n")
	t.printf("%s\n\n", strings.Repeat("-", 56))
}

func (t *Text) Municipality(r MunicipalityReport) error {
	t.writeHeader()
	t.printf("========  MUNICIPIO %s  ========\n\n", label(t.opts.Labels, r.Municipio))
	t.file(r.A)
	t.file(r.B)
	t.diff(r.Diff)
	t.printf("Acumulado de predios con cambios: %d\n\n", r.Accumulated)
	return t.err
}

// Classification writes the classifier results of a single file, for runs
// that do not compare periods.
func (t *Text) Classification(f FileReport) error {
	t.writeHeader()
	t.file(f)
	return t.err
}

func (t *Text) file(f FileReport) {
	t.printf("----    RESULTADOS %s (%s):    ----\n", f.File, f.Vigencia)
	t.printf("Predios leídos: %d\n", f.Records)
	if f.Skipped > 0 {
		t.printf("Registros sin número predial (omitidos): %d\n", f.Skipped)
	}
	if f.Duplicates > 0 {
		t.printf("Números prediales repetidos: %d\n", f.Duplicates)
	}
	for _, c := range f.Classifiers {
		t.printf("%s: %d\n", c.Description, c.Count)
		if c.Count == 0 {
			continue
		}
		t.printf("Números prediales únicos:\n")
		for _, id := range c.Identifiers {
			t.printf("- %s\n", id)
		}
	}
	t.printf("\n")
}

func (t *Text) diff(d diff.Result) {
	t.printf("----    DIFERENCIAS %s / %s:    ----\n", d.VigenciaA, d.VigenciaB)
	t.printf("Solo en %s: %d\n", d.VigenciaA, len(d.OnlyInA))
	t.printf("Solo en %s: %d\n", d.VigenciaB, len(d.OnlyInB))
	t.printf("Predios con cambios: %d\n", len(d.Changed))
	t.printf("Predios sin cambios: %d\n", d.Unchanged)

	rules := make([]string, 0, len(d.Suppressed))
	for r := range d.Suppressed {
		rules = append(rules, string(r))
	}
	sort.Strings(rules)
	for _, r := range rules {
		t.printf("Diferencias ignoradas (%s): %d\n", r, d.Suppressed[diff.Rule(r)])
	}

	listed := d.Changed
	if t.opts.MaxDeltas > 0 && len(listed) > t.opts.MaxDeltas {
		listed = listed[:t.opts.MaxDeltas]
	}
	for _, id := range listed {
		t.printf("- %s\n", id)
		for _, delta := range d.Deltas[id] {
			t.printf("    %s: %q -> %q\n", delta.Field, delta.A.String(), delta.B.String())
		}
	}
	if rest := len(d.Changed) - len(listed); rest > 0 {
		t.printf("  ... %d predios más\n", rest)
	}
	t.printf("\n")
}

func (t *Text) Summary(s Summary) error {
	t.writeHeader()
	t.printf("========  RESUMEN  ========\n\n")
	t.printf("Ejecución: %s\n", s.RunID)
	t.printf("Vigencias comparadas: %s y %s\n\n", s.VigenciaA, s.VigenciaB)

	p := s.Pairing
	t.printf("Conteo inicial de archivos:\n")
	t.printf("- %s: %d archivos encontrados, %d válidos\n", s.VigenciaA, p.A.Total, len(p.A.Valid))
	t.printf("- %s: %d archivos encontrados, %d válidos\n", s.VigenciaB, p.B.Total, len(p.B.Valid))
	t.names("Archivos que no cumplen con la estructura en "+s.VigenciaA, p.A.Invalid)
	t.names("Archivos que no cumplen con la estructura en "+s.VigenciaB, p.B.Invalid)
	t.names("Municipios faltantes en "+s.VigenciaA, p.MissingInA)
	t.names("Municipios faltantes en "+s.VigenciaB, p.MissingInB)
	if len(p.NotApproved) > 0 {
		t.names("Municipios sin aprobación", p.NotApproved)
	}
	t.printf("Municipios comparados: %d\n", len(p.Pairs)-len(s.Failures))
	for _, f := range s.Failures {
		t.printf("- %s no procesado (%s): %s\n", label(t.opts.Labels, f.Municipio), f.File, f.Err)
	}
	t.printf("\nTotal de predios con cambios: %d\n", s.Accumulated)

	codes := make([]string, 0, len(s.ByMunicipio))
	for c := range s.ByMunicipio {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		t.printf("- %s: %d\n", label(t.opts.Labels, c), s.ByMunicipio[c])
	}
	t.printf("\n")

	switch {
	case s.CrossrefErr != nil:
		t.printf("Cruce con fuentes de referencia no disponible: %v\n", s.CrossrefErr)
	case s.Crossref != nil:
		t.crossref(s)
	}
	if err := t.w.Flush(); t.err == nil {
		t.err = err
	}
	return t.err
}

func (t *Text) crossref(s Summary) {
	x := s.Crossref
	t.printf("----    CRUCE %s a %s:    ----\n", s.From.Format("2006-01-02"), s.To.Format("2006-01-02"))
	for _, ref := range x.References {
		if ref.Unavailable {
			t.printf("- %s: NO DISPONIBLE (tratada como vacía)\n", ref.Name)
			continue
		}
		t.printf("- %s: %d números prediales, %d explican cambios\n", ref.Name, ref.Size, ref.Explained)
	}
	if len(x.Intersections) > 0 {
		t.printf("Intersecciones:\n")
		for _, in := range x.Intersections {
			t.printf("- %s: %d\n", strings.Join(in.Sets, " ∩ "), in.Count)
		}
	}
	t.printf("\nPredios con cambios sin trámite ni resolución: %d\n", len(x.Unexplained))
	for _, g := range x.Groups {
		t.printf("%s (%d):\n", label(t.opts.Labels, g.Municipio), g.Count)
		for _, id := range g.IDs {
			t.printf("- %s\n", id)
		}
	}
}

func (t *Text) names(title string, names []string) {
	list := "Ninguno"
	if len(names) > 0 {
		list = strings.Join(names, ", ")
	}
	t.printf("%s: %d\n  Nombres: %s\n", title, len(names), list)
}

func (t *Text) Close() error {
	err := t.w.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
	}
	if t.err != nil {
		return t.err
	}
	return err
}
