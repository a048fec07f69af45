package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catastro/internal/purge"
)

var (
	purgeList   string
	purgeOutput string
	purgeZone   string
	purgeReport string
)

// purgeCmd drops excluded predios from one municipality file
var purgeCmd = &cobra.Command{
	Use:   "purge <Registro_catastral_XXXXX.xml>",
	Short: "Remove listed or rural predios from a municipality file",
	Long: `Writes a copy of the file without the predios whose codigo_predial_nacional
is in the --list file (one per line) or, for 30 character identifiers, whose
characters 6-7 equal --zone. A Reporte_Eliminacion_Predios_XXXXX.txt is
written next to the output.`,
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().StringVarP(&purgeList, "list", "l", "", "File with the identifiers to remove, one per line")
	purgeCmd.Flags().StringVarP(&purgeOutput, "output", "o", "", "Output file (default: Registro_catastral_modificado.xml next to the input)")
	purgeCmd.Flags().StringVar(&purgeZone, "zone", "01", "Zone code at positions 6-7 to remove; empty disables the rule")
	purgeCmd.Flags().StringVar(&purgeReport, "report-dir", "", "Folder for the report (default: output folder)")
}

func runPurge(cmd *cobra.Command, args []string) error {
	in := args[0]
	out := purgeOutput
	if out == "" {
		out = filepath.Join(filepath.Dir(in), "Registro_catastral_modificado.xml")
	}

	rep, err := purge.File(in, out, purgeList, purge.Options{
		Schema: cfg.ExtractSchema(),
		Zone:   purgeZone,
	})
	if err != nil {
		return err
	}

	dir := purgeReport
	if dir == "" {
		dir = filepath.Dir(out)
	}
	reportPath := filepath.Join(dir, rep.ReportName())
	f, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("create purge report: %w", err)
	}
	defer f.Close()
	if _, err := rep.WriteTo(f); err != nil {
		return fmt.Errorf("write purge report: %w", err)
	}

	logger.Info("purge finished",
		zap.String("input", in),
		zap.Int("initial", rep.Initial),
		zap.Int("removed_by_list", rep.RemovedByList),
		zap.Int("removed_by_zone", rep.RemovedByZone),
		zap.Int("remaining", rep.Remaining))
	if _, err := rep.WriteTo(cmd.OutOrStdout()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nArchivo XML modificado guardado en: %s\nReporte generado en: %s\n", out, reportPath)
	return f.Close()
}
