// Package reconcile runs a full comparison of two period folders: every
// municipality is extracted, classified and diffed, the changes are
// accumulated, and the result is checked against the reference sources.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"catastro/internal/accumulate"
	"catastro/internal/classify"
	"catastro/internal/crossref"
	"catastro/internal/diff"
	"catastro/internal/extract"
	"catastro/internal/metrics"
	"catastro/internal/report"
	"catastro/internal/source"
	"catastro/internal/types"
)

// ReferenceSource lists the identifiers an administrative system touched in
// a date range.
type ReferenceSource interface {
	Name() string
	ChangedIdentifiers(ctx context.Context, from, to time.Time) (types.IDSet, error)
}

// Options are the per-run settings.
type Options struct {
	VigenciaA string
	VigenciaB string
	// From and To bound the reference queries.
	From, To time.Time
	// AllowUnavailable degrades a failed reference to an empty set.
	AllowUnavailable bool
	// FetchTimeout bounds each reference fetch. Zero means no limit.
	FetchTimeout time.Duration
	// FetchConcurrency caps parallel reference fetches. Zero means no limit.
	FetchConcurrency int
}

// Runner holds what a run needs. Metrics may be nil.
type Runner struct {
	Logger      *zap.Logger
	Extractor   *extract.Extractor
	Classifiers []classify.Classifier
	Differ      *diff.Differ
	Sink        report.Sink
	Metrics     *metrics.Metrics
	References  []ReferenceSource
	Options     Options
}

// Outcome is what a run produced.
type Outcome struct {
	RunID    string
	Changes  *accumulate.ChangeSet
	Crossref *crossref.Result
	Failures []report.Failure
}

// Run processes every pair in order, then resolves the accumulated changes.
// A municipality that cannot be read is reported and skipped. The returned
// error is set when the reports could not be written, the context ended, or
// the cross-reference could not be resolved; the summary is emitted anyway
// in the last case.
func (r *Runner) Run(ctx context.Context, pairing source.Pairing) (*Outcome, error) {
	started := time.Now()
	out := &Outcome{RunID: uuid.NewString(), Changes: accumulate.New()}
	log := r.Logger.With(zap.String("run_id", out.RunID))

	log.Info("reconciliation started",
		zap.String("vigencia_a", r.Options.VigenciaA),
		zap.String("vigencia_b", r.Options.VigenciaB),
		zap.Int("municipalities", len(pairing.Pairs)),
		zap.Strings("missing_in_a", pairing.MissingInA),
		zap.Strings("missing_in_b", pairing.MissingInB))
	if r.Metrics != nil {
		r.Metrics.RunInfo.WithLabelValues(out.RunID, r.Options.VigenciaA, r.Options.VigenciaB).Set(1)
		r.Metrics.FilesSkipped.WithLabelValues("missing_pair").Add(float64(len(pairing.MissingInA) + len(pairing.MissingInB)))
		r.Metrics.FilesSkipped.WithLabelValues("not_approved").Add(float64(len(pairing.NotApproved)))
	}

	for _, pair := range pairing.Pairs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		mr, err := r.Compare(pair, out.Changes)
		if err != nil {
			log.Warn("municipality skipped", zap.String("municipio", pair.Municipio), zap.Error(err))
			out.Failures = append(out.Failures, failure(pair, err))
			if r.Metrics != nil {
				r.Metrics.FilesSkipped.WithLabelValues(reason(err)).Inc()
			}
			continue
		}
		log.Info("municipality compared",
			zap.String("municipio", pair.Municipio),
			zap.Int("changed", len(mr.Diff.Changed)),
			zap.Int("only_in_a", len(mr.Diff.OnlyInA)),
			zap.Int("only_in_b", len(mr.Diff.OnlyInB)),
			zap.Int("accumulated", mr.Accumulated))
		if err := r.Sink.Municipality(mr); err != nil {
			return out, fmt.Errorf("report municipality %s: %w", pair.Municipio, err)
		}
	}

	summary := report.Summary{
		RunID:       out.RunID,
		Started:     started,
		VigenciaA:   r.Options.VigenciaA,
		VigenciaB:   r.Options.VigenciaB,
		From:        r.Options.From,
		To:          r.Options.To,
		Pairing:     pairing,
		Failures:    out.Failures,
		Accumulated: out.Changes.Len(),
		ByMunicipio: out.Changes.ByMunicipio(),
	}

	var resolveErr error
	if len(r.References) > 0 {
		refs := r.FetchReferences(ctx)
		res, err := crossref.Resolve(out.Changes.IDs(), refs, crossref.Options{AllowUnavailable: r.Options.AllowUnavailable})
		if err != nil {
			log.Error("cross-reference aborted", zap.Error(err))
			summary.CrossrefErr = err
			resolveErr = err
		} else {
			out.Crossref = &res
			summary.Crossref = &res
			if degraded := res.Degraded(); len(degraded) > 0 {
				log.Warn("references treated as empty", zap.Strings("references", degraded))
			}
			log.Info("cross-reference resolved",
				zap.Int("changed", res.Changed),
				zap.Int("unexplained", len(res.Unexplained)))
			if r.Metrics != nil {
				r.Metrics.Unexplained.Set(float64(len(res.Unexplained)))
				for _, s := range res.References {
					r.Metrics.ReferenceSize.WithLabelValues(s.Name).Set(float64(s.Size))
				}
			}
		}
	}

	summary.Finished = time.Now()
	if err := r.Sink.Summary(summary); err != nil {
		return out, errors.Join(resolveErr, fmt.Errorf("report summary: %w", err))
	}
	log.Info("reconciliation finished",
		zap.Int("accumulated", out.Changes.Len()),
		zap.Int("failures", len(out.Failures)),
		zap.Duration("elapsed", summary.Finished.Sub(started)))
	return out, resolveErr
}

// Compare extracts both files of pair, classifies and diffs them, and unions
// the changes into cs. cs is untouched when an error is returned.
func (r *Runner) Compare(pair source.Pair, cs *accumulate.ChangeSet) (report.MunicipalityReport, error) {
	a, err := Load(r.Extractor, pair.PathA, pair.Municipio, r.Options.VigenciaA)
	if err != nil {
		return report.MunicipalityReport{}, err
	}
	b, err := Load(r.Extractor, pair.PathB, pair.Municipio, r.Options.VigenciaB)
	if err != nil {
		return report.MunicipalityReport{}, err
	}

	d := r.Differ.Diff(a, b)
	cs.Union(d)

	mr := report.MunicipalityReport{
		Municipio:   pair.Municipio,
		A:           r.fileReport(a, pair.PathA),
		B:           r.fileReport(b, pair.PathB),
		Diff:        d,
		Accumulated: cs.Len(),
	}
	if r.Metrics != nil {
		r.Metrics.FilesProcessed.Inc()
		r.Metrics.Changed.WithLabelValues(pair.Municipio).Set(float64(len(d.Changed)))
		r.Metrics.Accumulated.Set(float64(cs.Len()))
	}
	return mr, nil
}

func (r *Runner) fileReport(snap *types.Snapshot, path string) report.FileReport {
	fr := report.FileReport{
		Vigencia:    snap.Vigencia,
		File:        filepath.Base(path),
		Records:     snap.Len(),
		Skipped:     snap.Skipped,
		Duplicates:  snap.Duplicates,
		Classifiers: Classify(snap, r.Classifiers),
	}
	if m := r.Metrics; m != nil {
		m.RecordsExtracted.WithLabelValues(snap.Vigencia).Add(float64(snap.Len()))
		m.RecordsSkipped.WithLabelValues(snap.Vigencia, "sin_identificador").Add(float64(snap.Skipped))
		m.RecordsSkipped.WithLabelValues(snap.Vigencia, "duplicado").Add(float64(snap.Duplicates))
		for _, c := range fr.Classifiers {
			m.ClassifierHits.WithLabelValues(snap.Vigencia, c.Name).Add(float64(c.Count))
		}
	}
	return fr
}

// Load opens and extracts one period file.
func Load(e *extract.Extractor, path, municipio, vigencia string) (*types.Snapshot, error) {
	f, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return e.Read(f, path, municipio, vigencia)
}

// Classify applies every classifier to snap, in order.
func Classify(snap *types.Snapshot, classifiers []classify.Classifier) []report.ClassifierCount {
	out := make([]report.ClassifierCount, 0, len(classifiers))
	for _, c := range classifiers {
		out = append(out, report.ClassifierCount{
			Name:        c.Name,
			Description: c.Description,
			Result:      classify.Apply(c, snap),
		})
	}
	return out
}

// FetchReferences queries every source concurrently. A failure is recorded
// on its Reference and does not cancel the other fetches.
func (r *Runner) FetchReferences(ctx context.Context) []crossref.Reference {
	refs := make([]crossref.Reference, len(r.References))

	g, ctx := errgroup.WithContext(ctx)
	if r.Options.FetchConcurrency > 0 {
		g.SetLimit(r.Options.FetchConcurrency)
	}
	for i, src := range r.References {
		i, src := i, src
		g.Go(func() error {
			fetchCtx := ctx
			if r.Options.FetchTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, r.Options.FetchTimeout)
				defer cancel()
			}

			start := time.Now()
			ids, err := src.ChangedIdentifiers(fetchCtx, r.Options.From, r.Options.To)
			if r.Metrics != nil {
				r.Metrics.ObserveFetch(src.Name(), start)
			}

			refs[i] = crossref.Reference{Name: src.Name(), IDs: ids}
			if err != nil {
				r.Logger.Warn("reference unavailable", zap.String("reference", src.Name()), zap.Error(err))
				refs[i].IDs = nil
				refs[i].Err = crossref.Unavailable(src.Name(), err)
				return nil
			}
			r.Logger.Debug("reference fetched",
				zap.String("reference", src.Name()),
				zap.Int("identifiers", ids.Len()),
				zap.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	_ = g.Wait() // fetches never return an error
	return refs
}

func failure(pair source.Pair, err error) report.Failure {
	f := report.Failure{Municipio: pair.Municipio, Err: err.Error()}
	var mie *extract.MalformedInputError
	if errors.As(err, &mie) {
		f.File = filepath.Base(mie.Source)
	}
	return f
}

func reason(err error) string {
	if errors.Is(err, extract.ErrMalformedInput) {
		return "malformed"
	}
	return "unreadable"
}

// Failed is a reference source that always reports err, used when a source
// could not even be opened.
type Failed struct {
	Source string
	Err    error
}

func (f Failed) Name() string { return f.Source }

func (f Failed) ChangedIdentifiers(context.Context, time.Time, time.Time) (types.IDSet, error) {
	return nil, f.Err
}
