package report

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/term"

	"catastro/internal/diff"
)

const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// Console prints a short progress line per municipality and the run summary.
type Console struct {
	w         io.Writer
	labels    Labeler
	color     bool
	maxDeltas int
}

// NewConsole writes to w. Colour is used only when w is a terminal.
func NewConsole(w io.Writer, labels Labeler, maxDeltas int) *Console {
	c := &Console{w: w, labels: labels, maxDeltas: maxDeltas}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if runtime.GOOS == "windows" {
			enableVT()
		}
		c.color = true
	}
	return c
}

func (c *Console) paint(color, s string) string {
	if !c.color {
		return s
	}
	return color + s + colorReset
}

func (c *Console) Municipality(r MunicipalityReport) error {
	d := r.Diff
	changed := fmt.Sprintf("%d con cambios", len(d.Changed))
	if len(d.Changed) > 0 {
		changed = c.paint(colorYellow, changed)
	}
	_, err := fmt.Fprintf(c.w, "%-28s %s: %d  %s: %d  %s  (+%d / -%d)  acumulado %d\n",
		label(c.labels, r.Municipio),
		r.A.Vigencia, r.A.Records,
		r.B.Vigencia, r.B.Records,
		changed, len(d.OnlyInB), len(d.OnlyInA), r.Accumulated)
	if err != nil {
		return err
	}
	if c.maxDeltas <= 0 {
		return nil
	}
	ids := d.Changed
	if len(ids) > c.maxDeltas {
		ids = ids[:c.maxDeltas]
	}
	for _, id := range ids {
		RenderDeltas(c.w, id, d.Deltas[id], c.color)
	}
	return nil
}

// RenderDeltas prints the changed fields of one record: the later value,
// then the earlier one in brackets.
func RenderDeltas(w io.Writer, id string, deltas []diff.Delta, color bool) {
	prev := func(s string) string {
		if color {
			return fmt.Sprintf(" %s[%s]%s", colorRed, s, colorReset)
		}
		return " [" + s + "]"
	}

	width := 18
	for _, d := range deltas {
		if len(d.Field) > width {
			width = len(d.Field)
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "%-*s : %s\n", width, "Número predial", id)
	for _, d := range deltas {
		fmt.Fprintf(w, "%-*s : %s%s\n", width, d.Field, d.B.String(), prev(d.A.String()))
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
}

func (c *Console) Summary(s Summary) error {
	fmt.Fprintln(c.w)
	fmt.Fprintf(c.w, "Municipios comparados : %d\n", len(s.Pairing.Pairs)-len(s.Failures))
	if len(s.Failures) > 0 {
		fmt.Fprintf(c.w, "Municipios fallidos   : %s\n", c.paint(colorRed, fmt.Sprint(len(s.Failures))))
	}
	fmt.Fprintf(c.w, "Predios con cambios   : %d\n", s.Accumulated)
	if s.CrossrefErr != nil {
		fmt.Fprintf(c.w, "Cruce de referencias  : %s\n", c.paint(colorRed, s.CrossrefErr.Error()))
	}
	if x := s.Crossref; x != nil {
		for _, ref := range x.References {
			status := fmt.Sprintf("%d (%d explican cambios)", ref.Size, ref.Explained)
			if ref.Unavailable {
				status = c.paint(colorRed, "no disponible")
			}
			fmt.Fprintf(c.w, "  %-20s: %s\n", ref.Name, status)
		}
		n := fmt.Sprint(len(x.Unexplained))
		if len(x.Unexplained) == 0 {
			n = c.paint(colorGreen, n)
		} else {
			n = c.paint(colorRed, n)
		}
		fmt.Fprintf(c.w, "Sin explicar          : %s\n", n)
	}
	_, err := fmt.Fprintf(c.w, "Finalizado en %v\n", s.Finished.Sub(s.Started).Truncate(time.Millisecond))
	return err
}

func (c *Console) Close() error { return nil }
