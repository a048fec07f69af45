package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"catastro/internal/source"
)

// The follow-up worklist holds numeros prediales marked from explain, one per
// line, in the output folder next to the reports it was built from.
func worklistFile() string {
	return filepath.Join(cfg.Paths.Output, "seguimiento.txt")
}

// loadWorklist returns the marked identifiers in ascending order. Before
// anything is marked there is no file and the list is empty.
func loadWorklist() ([]string, error) {
	ids, _, err := source.LoadList(worklistFile(), "")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ids.Sorted(), nil
}

// saveToWorklist marks id. Marking an identifier twice keeps one line.
func saveToWorklist(id string) error {
	id = strings.TrimSpace(id)
	marked, err := loadWorklist()
	if err != nil {
		return err
	}
	if slices.Contains(marked, id) {
		return nil
	}

	if err := os.MkdirAll(cfg.Paths.Output, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	f, err := os.OpenFile(worklistFile(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open worklist: %w", err)
	}
	_, werr := fmt.Fprintln(f, id)
	return errors.Join(werr, f.Close())
}

// askSaveToWorklist offers to mark id for follow-up.
func askSaveToWorklist(id string) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Agregar a seguimiento? (s/N): ")
	resp, _ := reader.ReadString('\n')
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp != "s" && resp != "si" && resp != "sí" && resp != "y" {
		return
	}
	if err := saveToWorklist(id); err != nil {
		fmt.Printf("No se pudo guardar: %v\n", err)
		return
	}
	fmt.Println("Guardado.")
}
