// Package purge removes predio records from a municipality file, either
// because they are listed for exclusion or because their identifier encodes
// a zone that must not be delivered.
package purge

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"

	"catastro/internal/extract"
	"catastro/internal/source"
	"catastro/internal/types"
)

// IdentifierLength is the length of a full national cadastral number.
const IdentifierLength = 30

// Options configure a purge.
type Options struct {
	Schema extract.Schema
	// Exclude lists identifiers to drop.
	Exclude types.IDSet
	// Zone drops every full-length identifier whose characters 6 and 7 equal
	// it. Empty disables the rule.
	Zone string
}

// Report summarises one purge.
type Report struct {
	Municipio     string
	Initial       int
	RemovedByList int
	RemovedByZone int
	// NoIdentifier counts records kept because they carry no identifier.
	NoIdentifier int
	Remaining    int
	List         source.ListStats
	// ListedMissing are listed identifiers that no record carries, sorted.
	ListedMissing []string
}

// ZoneOf returns characters 6 and 7 of a full-length identifier.
func ZoneOf(id string) (string, bool) {
	if len(id) != IdentifierLength {
		return "", false
	}
	return id[5:7], true
}

type decision int

const (
	keep decision = iota
	byList
	byZone
)

func (o Options) decide(id string) decision {
	if id == "" {
		return keep
	}
	if o.Exclude.Has(id) {
		return byList
	}
	if z, ok := ZoneOf(id); ok && o.Zone != "" && z == o.Zone {
		return byZone
	}
	return keep
}

// Purge copies the document in r to w without the dropped records. Records
// are buffered one at a time, so memory stays bounded by the largest record.
// The output is always UTF-8.
func Purge(r io.Reader, w io.Writer, opts Options) (Report, error) {
	def := extract.DefaultSchema()
	if opts.Schema.RecordElement == "" {
		opts.Schema.RecordElement = def.RecordElement
	}
	if opts.Schema.IdentifierField == "" {
		opts.Schema.IdentifierField = def.IdentifierField
	}

	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	enc := xml.NewEncoder(w)

	var (
		rep     Report
		seen    = types.NewIDSet()
		record  []xml.Token // tokens of the record being buffered
		depth   int         // depth inside the buffered record
		inID    bool
		idText  strings.Builder
		started bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Report{}, &extract.MalformedInputError{Source: "purge input", Err: err}
		}
		tok = xml.CopyToken(tok)

		if record == nil {
			if pi, ok := tok.(xml.ProcInst); ok && pi.Target == "xml" {
				if !started {
					tok = xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}
				}
			}
			started = true
			if se, ok := tok.(xml.StartElement); ok && se.Name.Local == opts.Schema.RecordElement {
				record = []xml.Token{tok}
				depth = 1
				idText.Reset()
				continue
			}
			if err := enc.EncodeToken(tok); err != nil {
				return Report{}, fmt.Errorf("write output: %w", err)
			}
			continue
		}

		record = append(record, tok)
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && t.Name.Local == opts.Schema.IdentifierField {
				inID = true
			}
		case xml.CharData:
			if inID {
				idText.Write(t)
			}
		case xml.EndElement:
			depth--
			inID = false
			if depth > 0 {
				continue
			}

			rep.Initial++
			id := strings.TrimSpace(idText.String())
			if id == "" {
				rep.NoIdentifier++
			} else {
				seen.Add(id)
				if rep.Municipio == "" {
					rep.Municipio = types.MunicipioOf(id)
				}
			}

			switch opts.decide(id) {
			case byList:
				rep.RemovedByList++
			case byZone:
				rep.RemovedByZone++
			default:
				rep.Remaining++
				for _, rt := range record {
					if err := enc.EncodeToken(rt); err != nil {
						return Report{}, fmt.Errorf("write output: %w", err)
					}
				}
			}
			record = nil
		}
	}
	if record != nil {
		return Report{}, &extract.MalformedInputError{Source: "purge input", Err: io.ErrUnexpectedEOF}
	}
	if err := enc.Flush(); err != nil {
		return Report{}, fmt.Errorf("write output: %w", err)
	}

	rep.ListedMissing = opts.Exclude.Minus(seen).Sorted()
	return rep, nil
}

// File purges the file at in into out. The exclusion list, if any, is read
// from listPath one identifier per line.
func File(in, out, listPath string, opts Options) (Report, error) {
	var stats source.ListStats
	if listPath != "" {
		ids, s, err := source.LoadList(listPath, "")
		if err != nil {
			return Report{}, err
		}
		opts.Exclude, stats = ids, s
	}
	if opts.Exclude == nil {
		opts.Exclude = types.NewIDSet()
	}

	src, err := os.Open(in)
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", in, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Report{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(out), filepath.Base(out)+".*.tmp")
	if err != nil {
		return Report{}, fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	bw := bufio.NewWriter(tmp)
	rep, err := Purge(src, bw, opts)
	if err != nil {
		var mie *extract.MalformedInputError
		if errors.As(err, &mie) {
			mie.Source = in
		}
		return Report{}, err
	}
	if err := bw.Flush(); err != nil {
		return Report{}, fmt.Errorf("write %s: %w", out, err)
	}
	if err := tmp.Close(); err != nil {
		return Report{}, fmt.Errorf("write %s: %w", out, err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return Report{}, fmt.Errorf("write %s: %w", out, err)
	}
	rep.List = stats
	return rep, nil
}

// ReportName is the file name of the purge report for a municipality.
func (r Report) ReportName() string {
	return "Reporte_Eliminacion_Predios_" + r.Municipio + ".txt"
}

// WriteTo writes the purge report.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString("### REPORTE DE ELIMINACIÓN DE PREDIOS ###\n")
	fmt.Fprintf(&b, "Total líneas en TXT: %d\n", r.List.Lines)
	fmt.Fprintf(&b, "Total identificadores únicos: %d\n", r.List.Unique)
	fmt.Fprintf(&b, "Duplicados encontrados: %d\n\n", r.List.Duplicates)
	fmt.Fprintf(&b, "Cantidad inicial de predios en XML: %d\n", r.Initial)
	fmt.Fprintf(&b, "Cantidad de números prediales identificados desde el TXT: %d\n", r.List.Unique)
	fmt.Fprintf(&b, "Cantidad de números prediales presentes en el TXT pero no en el XML: %d\n", len(r.ListedMissing))
	fmt.Fprintf(&b, "Cantidad de predios eliminados desde TXT: %d\n", r.RemovedByList)
	fmt.Fprintf(&b, "Cantidad de predios eliminados por regla de zona en posición 6-7: %d\n", r.RemovedByZone)
	if r.NoIdentifier > 0 {
		fmt.Fprintf(&b, "Predios sin número predial conservados: %d\n", r.NoIdentifier)
	}
	fmt.Fprintf(&b, "Cantidad final de predios en XML: %d\n\n", r.Remaining)
	if len(r.ListedMissing) == 0 {
		b.WriteString("No hay predios faltantes, todos están identificados correctamente.\n")
	} else {
		b.WriteString("Predios en TXT que no fueron identificados en el XML:\n")
		for _, id := range r.ListedMissing {
			fmt.Fprintf(&b, "'%s'\n", id)
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
