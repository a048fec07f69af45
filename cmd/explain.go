package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catastro/internal/diff"
	"catastro/internal/reconcile"
	"catastro/internal/report"
	"catastro/internal/types"
)

var (
	explainResults     string
	explainInteractive bool
	explainWorklist    bool
)

// explainCmd looks identifiers up in the reference sources and in the last run
var explainCmd = &cobra.Command{
	Use:   "explain [numero_predial...]",
	Short: "Show why predios changed and whether a reference source explains them",
	Long: `For each identifier, prints the field changes recorded in resultados.yaml
and whether each reference source lists it for the configured period.

With --interactive, browses the unexplained predios of the last run; Enter
shows the changes and offers to add the predio to seguimiento.txt.
With --worklist, browses seguimiento.txt instead.`,
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainResults, "results", "", "Results file of a previous run (default: <output>/resultados.yaml)")
	explainCmd.Flags().BoolVarP(&explainInteractive, "interactive", "i", false, "Browse the unexplained predios of the last run")
	explainCmd.Flags().BoolVar(&explainWorklist, "worklist", false, "Browse the predios marked for follow-up")
}

func runExplain(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path := explainResults
	if path == "" {
		path = filepath.Join(cfg.Paths.Output, cfg.Report.YAML)
	}
	doc, err := report.LoadDocument(path)
	if err != nil {
		if len(args) == 0 {
			return err
		}
		logger.Warn("no previous results, showing reference membership only", zap.Error(err))
		doc = &report.Document{}
	}

	switch {
	case explainWorklist:
		ids, err := loadWorklist()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(out, "No hay predios en seguimiento.")
			return nil
		}
		browse(doc, ids, false)
		return nil
	case explainInteractive:
		ids := doc.Unexplained()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No hay predios sin explicar en", path)
			return nil
		}
		browse(doc, ids, true)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("give at least one numero_predial, or use --interactive")
	}
	for _, id := range args {
		showChanges(out, doc, id)
	}
	return showMembership(cmd.Context(), out, args)
}

// browse lists ids with their municipality and lets the user open each one.
func browse(doc *report.Document, ids []string, askSave bool) {
	lines := make([]string, len(ids))
	for i, id := range ids {
		m, deltas, _ := doc.Changes(id)
		name := m.Nombre
		if name == "" {
			name = types.MunicipioOf(id)
		}
		lines[i] = fmt.Sprintf("%-32s | %-28s | %d campos", id, name, len(deltas))
	}
	interactiveSelect(lines, func(i int) {
		showChanges(os.Stdout, doc, ids[i])
		if askSave {
			askSaveToWorklist(ids[i])
		}
	})
}

func showChanges(out io.Writer, doc *report.Document, id string) {
	m, docs, ok := doc.Changes(id)
	if !ok {
		fmt.Fprintf(out, "%s: sin cambios registrados en %s / %s\n", id, doc.VigenciaA, doc.VigenciaB)
		return
	}
	deltas := make([]diff.Delta, len(docs))
	for i, d := range docs {
		deltas[i] = diff.Delta{Field: d.Campo, A: types.Text(d.A), B: types.Text(d.B)}
	}
	if m.Nombre != "" {
		fmt.Fprintf(out, "Municipio: %s\n", m.Nombre)
	}
	report.RenderDeltas(out, id, deltas, isTerminal(out))
}

// showMembership asks every reference source about ids.
func showMembership(ctx context.Context, out io.Writer, ids []string) error {
	if len(cfg.References) == 0 {
		return nil
	}
	sources, sqlRefs, closer := openReferences(ctx, cfg.References)
	defer closer.Close()

	lookups := make(map[string]bool, len(sqlRefs))
	found := make(map[string]types.IDSet, len(sources))
	for _, ref := range sqlRefs {
		set, err := ref.Lookup(ctx, ids)
		if err != nil {
			logger.Debug("lookup unavailable, falling back to period query", zap.String("reference", ref.Name()), zap.Error(err))
			continue
		}
		lookups[ref.Name()] = true
		found[ref.Name()] = set
	}

	runner := &reconcile.Runner{Logger: logger, Options: reconcile.Options{From: cfg.From(), To: cfg.To()}}
	for _, src := range sources {
		if lookups[src.Name()] {
			continue
		}
		runner.References = append(runner.References, src)
	}
	for _, ref := range runner.FetchReferences(ctx) {
		if ref.Err != nil {
			fmt.Fprintf(out, "%s: %v\n", ref.Name, ref.Err)
			continue
		}
		found[ref.Name] = ref.IDs
	}

	fmt.Fprintf(out, "\nFuentes de referencia (%s a %s):\n", cfg.From().Format("2006-01-02"), cfg.To().Format("2006-01-02"))
	for _, id := range ids {
		var parts []string
		for _, src := range sources {
			set, ok := found[src.Name()]
			mark := "?"
			if ok {
				mark = "no"
				if set.Has(id) {
					mark = "sí"
				}
			}
			parts = append(parts, src.Name()+": "+mark)
		}
		fmt.Fprintf(out, "%-32s | %s\n", id, strings.Join(parts, " | "))
	}
	return nil
}
