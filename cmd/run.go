package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catastro/internal/diff"
	"catastro/internal/extract"
	"catastro/internal/metrics"
	"catastro/internal/reconcile"
	"catastro/internal/report"
	"catastro/internal/source"
)

var (
	runAllowUnavailable bool
	runSkipReferences   bool
	runFetchTimeout     time.Duration
)

// runCmd performs the full reconciliation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compare both vigencias and cross-check the changes",
	Long: `Pairs the municipality files of both vigencia folders, reports the
completeness classifiers of every file, diffs each pair, accumulates the
changed predios and subtracts those explained by the reference sources.

Writes Reporte_Consolidado.txt and resultados.yaml to the output folder.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	runCmd.Flags().BoolVar(&runAllowUnavailable, "allow-unavailable", false, "Treat an unreachable reference source as empty instead of failing")
	runCmd.Flags().BoolVar(&runSkipReferences, "no-references", false, "Skip the cross-reference step")
	runCmd.Flags().DurationVar(&runFetchTimeout, "fetch-timeout", 2*time.Minute, "Timeout for each reference query")
}

// approvedCodes merges the configured list with the approval folder.
func approvedCodes() ([]string, error) {
	codes := append([]string(nil), cfg.Municipalities.Approved...)
	if cfg.Paths.Approved != "" {
		fromDir, err := source.ApprovedCodes(cfg.Paths.Approved)
		if err != nil {
			return nil, err
		}
		codes = append(codes, fromDir...)
	}
	sort.Strings(codes)
	return codes, nil
}

func pairFolders() (source.Pairing, error) {
	approved, err := approvedCodes()
	if err != nil {
		return source.Pairing{}, err
	}
	return source.PairFolders(cfg.Paths.VigenciaA, cfg.Paths.VigenciaB, cfg.Pattern(), approved)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	start := time.Now()

	pairing, err := pairFolders()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Folders scanned in %v (%d municipalities to compare)\n", time.Since(start).Truncate(time.Millisecond), len(pairing.Pairs))

	if err := os.MkdirAll(cfg.Paths.Output, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	names := loadMunicipios()

	text, err := report.CreateText(filepath.Join(cfg.Paths.Output, cfg.Report.Text), report.TextOptions{
		Labels:    names,
		MaxDeltas: cfg.Report.MaxDeltas,
	})
	if err != nil {
		return err
	}
	sinks := report.Multi{text}
	if cfg.Report.YAML != "" {
		y, err := report.CreateYAML(filepath.Join(cfg.Paths.Output, cfg.Report.YAML), names)
		if err != nil {
			text.Close()
			return err
		}
		sinks = append(sinks, y)
	}
	if cfg.Report.Console {
		sinks = append(sinks, report.NewConsole(out, names, 0))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Textfile != "" {
		m = metrics.New()
	}

	var refs []reconcile.ReferenceSource
	if !runSkipReferences && len(cfg.References) > 0 {
		sources, _, closer := openReferences(ctx, cfg.References)
		defer closer.Close()
		refs = sources
	}

	runner := &reconcile.Runner{
		Logger:      logger,
		Extractor:   extract.New(cfg.ExtractSchema()),
		Classifiers: cfg.EnabledClassifiers(),
		Differ:      diff.New(cfg.DiffPolicy()),
		Sink:        sinks,
		Metrics:     m,
		References:  refs,
		Options: reconcile.Options{
			VigenciaA:        cfg.Periods.A,
			VigenciaB:        cfg.Periods.B,
			From:             cfg.From(),
			To:               cfg.To(),
			AllowUnavailable: runAllowUnavailable || cfg.Crossref.AllowUnavailable,
			FetchTimeout:     runFetchTimeout,
		},
	}

	outcome, runErr := runner.Run(ctx, pairing)
	closeErr := sinks.Close()

	if m != nil {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("metrics not written", zap.Error(err))
		}
	}
	if outcome != nil {
		fmt.Fprintf(out, "Run %s: reports written to %s\n", outcome.RunID, cfg.Paths.Output)
	}
	return errors.Join(runErr, closeErr)
}
