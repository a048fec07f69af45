package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"catastro/internal/source"
)

var filesCodesOnly string

// filesCmd validates the vigencia folders without reading any file
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Validate the vigencia folders and list municipality codes",
	Long: `Counts the files of both vigencia folders, lists the names that do not
match the expected pattern and the municipalities present in only one folder.

With --codes DIR, prints the last five characters of every file name in DIR
instead (the approved-municipality folder).`,
	Args: cobra.NoArgs,
	RunE: runFiles,
}

func init() {
	filesCmd.Flags().StringVar(&filesCodesOnly, "codes", "", "Only print the municipality codes of this folder")
}

func runFiles(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if filesCodesOnly != "" {
		codes, err := source.ApprovedCodes(filesCodesOnly)
		if err != nil {
			return err
		}
		for _, c := range codes {
			fmt.Fprintln(out, c)
		}
		return nil
	}

	p, err := pairFolders()
	if err != nil {
		return err
	}
	printPairing(out, p, cfg.Periods.A, cfg.Periods.B)
	return nil
}

func printPairing(out io.Writer, p source.Pairing, a, b string) {
	list := func(names []string) string {
		if len(names) == 0 {
			return "Ninguno"
		}
		return strings.Join(names, ", ")
	}

	fmt.Fprintln(out, "Conteo inicial de archivos:")
	fmt.Fprintf(out, "- %s: %d archivos encontrados\n", a, p.A.Total)
	fmt.Fprintf(out, "- %s: %d archivos encontrados\n", b, p.B.Total)
	fmt.Fprintln(out, "\nArchivos que cumplen con la estructura de nombre:")
	fmt.Fprintf(out, "- %s: %d archivos válidos\n", a, len(p.A.Valid))
	fmt.Fprintf(out, "- %s: %d archivos válidos\n", b, len(p.B.Valid))
	fmt.Fprintln(out, "\nArchivos que no cumplen con la estructura:")
	fmt.Fprintf(out, "- %s: %d archivos no válidos\n", a, len(p.A.Invalid))
	fmt.Fprintf(out, "  Nombres: %s\n", list(p.A.Invalid))
	fmt.Fprintf(out, "- %s: %d archivos no válidos\n", b, len(p.B.Invalid))
	fmt.Fprintf(out, "  Nombres: %s\n", list(p.B.Invalid))
	fmt.Fprintln(out, "\nDiferencias entre las carpetas:")
	fmt.Fprintf(out, "- Municipios faltantes en %s: %d\n", a, len(p.MissingInA))
	fmt.Fprintf(out, "  Códigos: %s\n", list(p.MissingInA))
	fmt.Fprintf(out, "- Municipios faltantes en %s: %d\n", b, len(p.MissingInB))
	fmt.Fprintf(out, "  Códigos: %s\n", list(p.MissingInB))
	if len(p.NotApproved) > 0 {
		fmt.Fprintf(out, "- Municipios sin aprobación: %d\n", len(p.NotApproved))
		fmt.Fprintf(out, "  Códigos: %s\n", list(p.NotApproved))
	}
	fmt.Fprintf(out, "\nMunicipios a comparar: %d\n", len(p.Pairs))
}
