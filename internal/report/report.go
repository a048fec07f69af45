// Package report writes the outcome of a reconciliation run: a consolidated
// text report, a structured YAML document and a console view.
package report

import (
	"errors"
	"time"

	"catastro/internal/classify"
	"catastro/internal/crossref"
	"catastro/internal/diff"
	"catastro/internal/source"
)

// ClassifierCount is one classifier's result over one file.
type ClassifierCount struct {
	Name        string
	Description string
	classify.Result
}

// FileReport describes one period file of a municipality.
type FileReport struct {
	Vigencia    string
	File        string
	Records     int
	Skipped     int
	Duplicates  int
	Classifiers []ClassifierCount
}

// MunicipalityReport is emitted once per compared municipality.
type MunicipalityReport struct {
	Municipio string
	A, B      FileReport
	Diff      diff.Result
	// Accumulated is the size of the run-wide change set after this union.
	Accumulated int
}

// Failure is a municipality that could not be compared.
type Failure struct {
	Municipio string
	File      string
	Err       string
}

// Summary is emitted once at the end of a run.
type Summary struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	VigenciaA string
	VigenciaB string
	From, To  time.Time

	Pairing  source.Pairing
	Failures []Failure

	Accumulated int
	ByMunicipio map[string]int

	// Crossref is nil when no reference source was configured or the
	// resolution failed; CrossrefErr then holds the reason.
	Crossref    *crossref.Result
	CrossrefErr error
}

// Sink receives reports as a run progresses.
type Sink interface {
	Municipality(MunicipalityReport) error
	Summary(Summary) error
	Close() error
}

// Labeler names municipality codes. *municipio.Directory satisfies it.
type Labeler interface {
	Label(code string) string
}

func label(l Labeler, code string) string {
	if l == nil {
		return code
	}
	return l.Label(code)
}

// Multi fans every report out to all sinks.
type Multi []Sink

func (m Multi) Municipality(r MunicipalityReport) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Municipality(r))
	}
	return errors.Join(errs...)
}

func (m Multi) Summary(s Summary) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.Summary(s))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
