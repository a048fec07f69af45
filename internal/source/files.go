// Package source lists the per-municipality files of each period and reads
// identifier lists exported from the administrative systems.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultPattern matches Registro_catastral_<code>.xml; the first submatch is
// the five digit municipality code.
const DefaultPattern = `^Registro_catastral_(\d{5})\.xml$`

// Folder is the scan of one period directory.
type Folder struct {
	Path  string
	Total int
	// Valid maps municipality code to file name.
	Valid   map[string]string
	Invalid []string
}

// Codes returns the municipality codes with a valid file, sorted.
func (f Folder) Codes() []string {
	codes := make([]string, 0, len(f.Valid))
	for c := range f.Valid {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// ScanFolder lists dir and splits its regular files into valid and invalid
// names. The pattern must have one submatch holding the municipality code.
func ScanFolder(dir string, pattern *regexp.Regexp) (Folder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Folder{}, fmt.Errorf("read folder %s: %w", dir, err)
	}
	f := Folder{Path: dir, Valid: make(map[string]string)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f.Total++
		m := pattern.FindStringSubmatch(e.Name())
		if len(m) < 2 {
			f.Invalid = append(f.Invalid, e.Name())
			continue
		}
		f.Valid[m[1]] = e.Name()
	}
	sort.Strings(f.Invalid)
	return f, nil
}

// Pair is one municipality present in both periods.
type Pair struct {
	Municipio string
	PathA     string
	PathB     string
}

// Pairing matches the files of two period folders by municipality code.
type Pairing struct {
	A, B  Folder
	Pairs []Pair
	// MissingInA lists codes with a file only in B; MissingInB the reverse.
	MissingInA []string
	MissingInB []string
	// NotApproved lists paired codes dropped by the approval filter.
	NotApproved []string
}

// PairFolders scans both folders and pairs them. When approved is non-empty
// only those municipality codes are kept.
func PairFolders(dirA, dirB string, pattern *regexp.Regexp, approved []string) (Pairing, error) {
	a, err := ScanFolder(dirA, pattern)
	if err != nil {
		return Pairing{}, err
	}
	b, err := ScanFolder(dirB, pattern)
	if err != nil {
		return Pairing{}, err
	}

	allow := make(map[string]bool, len(approved))
	for _, c := range approved {
		allow[c] = true
	}

	p := Pairing{A: a, B: b}
	for _, code := range a.Codes() {
		nameB, ok := b.Valid[code]
		if !ok {
			p.MissingInB = append(p.MissingInB, code)
			continue
		}
		if len(allow) > 0 && !allow[code] {
			p.NotApproved = append(p.NotApproved, code)
			continue
		}
		p.Pairs = append(p.Pairs, Pair{
			Municipio: code,
			PathA:     filepath.Join(dirA, a.Valid[code]),
			PathB:     filepath.Join(dirB, nameB),
		})
	}
	for _, code := range b.Codes() {
		if _, ok := a.Valid[code]; !ok {
			p.MissingInA = append(p.MissingInA, code)
		}
	}
	return p, nil
}

// ApprovedCodes returns the last five characters of every file name in dir,
// extension stripped. The folder holds one file per approved municipality.
func ApprovedCodes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read approved folder %s: %w", dir, err)
	}
	seen := make(map[string]bool)
	var codes []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if len(name) < 5 {
			continue
		}
		code := name[len(name)-5:]
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// Open opens one period file for extraction.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
