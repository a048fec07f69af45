package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catastro/internal/extract"
	"catastro/internal/reconcile"
	"catastro/internal/report"
	"catastro/internal/source"
)

var (
	classifyVigencia string
	classifyOutput   string
	classifyOnly     []string
)

// classifyCmd reports incomplete records of one vigencia
var classifyCmd = &cobra.Command{
	Use:   "classify [folder]",
	Short: "Report incomplete predios of one vigencia folder",
	Long: `Runs the completeness classifiers (sin_interesados, sin_avaluo, avaluo_cero,
sin_documento_propietario) over every valid file of a folder. The folder
defaults to paths.vigencia_b.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyVigencia, "vigencia", "", "Vigencia label (default periods.b)")
	classifyCmd.Flags().StringVarP(&classifyOutput, "output", "o", "", "Write the report to this file instead of stdout")
	classifyCmd.Flags().StringSliceVar(&classifyOnly, "only", nil, "Classifiers to run (default: configured)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	dir, vigencia := cfg.Paths.VigenciaB, cfg.Periods.B
	if len(args) == 1 {
		dir = args[0]
	}
	if classifyVigencia != "" {
		vigencia = classifyVigencia
	}

	classifiers := cfg.EnabledClassifiers()
	if len(classifyOnly) > 0 {
		cfg.Classifiers.Enabled = classifyOnly
		if err := cfg.Validate(); err != nil {
			return err
		}
		classifiers = cfg.EnabledClassifiers()
	}

	folder, err := source.ScanFolder(dir, cfg.Pattern())
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if classifyOutput != "" {
		f, err := os.Create(classifyOutput)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	text := report.NewText(w, report.TextOptions{})

	extractor := extract.New(cfg.ExtractSchema())
	var failed []error
	for _, code := range folder.Codes() {
		path := filepath.Join(dir, folder.Valid[code])
		snap, err := reconcile.Load(extractor, path, code, vigencia)
		if err != nil {
			logger.Warn("file skipped", zap.String("file", path), zap.Error(err))
			failed = append(failed, err)
			continue
		}
		if err := text.Classification(report.FileReport{
			Vigencia:    vigencia,
			File:        folder.Valid[code],
			Records:     snap.Len(),
			Skipped:     snap.Skipped,
			Duplicates:  snap.Duplicates,
			Classifiers: reconcile.Classify(snap, classifiers),
		}); err != nil {
			return err
		}
	}
	if err := text.Close(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files could not be read: %w", len(failed), len(folder.Valid), errors.Join(failed...))
	}
	return nil
}
