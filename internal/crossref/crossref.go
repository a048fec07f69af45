// Package crossref subtracts administrative reference sets (tramites,
// resoluciones) from the accumulated changes and reports what is left.
package crossref

import (
	"errors"
	"fmt"
	"sort"

	"catastro/internal/types"
)

// ErrReferenceUnavailable is matched by every ReferenceUnavailableError.
var ErrReferenceUnavailable = errors.New("reference set unavailable")

// ReferenceUnavailableError reports a reference source that could not be read.
type ReferenceUnavailableError struct {
	Source string
	Err    error
}

func (e *ReferenceUnavailableError) Error() string {
	return fmt.Sprintf("reference %q unavailable: %v", e.Source, e.Err)
}

func (e *ReferenceUnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrReferenceUnavailable) match.
func (e *ReferenceUnavailableError) Is(target error) bool { return target == ErrReferenceUnavailable }

// Unavailable wraps err for source unless it already is a ReferenceUnavailableError.
func Unavailable(source string, err error) error {
	var rue *ReferenceUnavailableError
	if errors.As(err, &rue) {
		return err
	}
	return &ReferenceUnavailableError{Source: source, Err: err}
}

// ChangedName labels the accumulated change set in intersection statistics.
const ChangedName = "cambios"

// Reference is one fetched reference set, or the error that prevented it.
type Reference struct {
	Name string
	IDs  types.IDSet
	Err  error
}

// Options tune the resolver.
type Options struct {
	// AllowUnavailable treats a failed reference as empty instead of aborting.
	AllowUnavailable bool
}

// ReferenceStat summarises one reference set.
type ReferenceStat struct {
	Name        string
	Size        int
	Explained   int
	Unavailable bool
}

// Intersection is the size of the intersection of the named sets.
type Intersection struct {
	Sets  []string
	Count int
}

// Group is the unexplained identifiers of one municipality.
type Group struct {
	Municipio string
	Count     int
	IDs       []string
}

// Result holds everything the report needs from a resolution.
type Result struct {
	Changed       int
	References    []ReferenceStat
	Unexplained   []string
	Intersections []Intersection
	Groups        []Group
}

// Degraded returns the names of references that were treated as empty.
func (r Result) Degraded() []string {
	var out []string
	for _, ref := range r.References {
		if ref.Unavailable {
			out = append(out, ref.Name)
		}
	}
	return out
}

// Resolve computes changed minus every reference, the intersection
// statistics and the per-municipality grouping of what remains.
func Resolve(changed types.IDSet, refs []Reference, opts Options) (Result, error) {
	var failures []error
	sets := make([]types.IDSet, len(refs))
	res := Result{Changed: changed.Len()}

	for i, ref := range refs {
		stat := ReferenceStat{Name: ref.Name}
		if ref.Err != nil {
			if !opts.AllowUnavailable {
				failures = append(failures, Unavailable(ref.Name, ref.Err))
				continue
			}
			stat.Unavailable = true
			sets[i] = types.IDSet{}
		} else {
			sets[i] = ref.IDs
			if sets[i] == nil {
				sets[i] = types.IDSet{}
			}
		}
		stat.Size = sets[i].Len()
		stat.Explained = changed.Intersect(sets[i]).Len()
		res.References = append(res.References, stat)
	}
	if len(failures) > 0 {
		return Result{}, errors.Join(failures...)
	}

	unexplained := changed
	for _, s := range sets {
		unexplained = unexplained.Minus(s)
	}
	res.Unexplained = unexplained.Sorted()
	res.Intersections = intersections(changed, refs, sets)
	res.Groups = GroupByMunicipio(res.Unexplained)
	return res, nil
}

func intersections(changed types.IDSet, refs []Reference, sets []types.IDSet) []Intersection {
	var out []Intersection
	for i := range sets {
		out = append(out, Intersection{
			Sets:  []string{ChangedName, refs[i].Name},
			Count: changed.Intersect(sets[i]).Len(),
		})
	}
	for i := range sets {
		for j := i + 1; j < len(sets); j++ {
			out = append(out, Intersection{
				Sets:  []string{refs[i].Name, refs[j].Name},
				Count: sets[i].Intersect(sets[j]).Len(),
			})
		}
	}
	if len(sets) > 1 {
		all := changed
		names := []string{ChangedName}
		for i, s := range sets {
			all = all.Intersect(s)
			names = append(names, refs[i].Name)
		}
		out = append(out, Intersection{Sets: names, Count: all.Len()})
	}
	return out
}

// GroupByMunicipio partitions ids by their first five characters. Groups are
// ordered by municipality code and each group's ids keep their input order.
func GroupByMunicipio(ids []string) []Group {
	byCode := make(map[string]*Group)
	for _, id := range ids {
		code := types.MunicipioOf(id)
		g, ok := byCode[code]
		if !ok {
			g = &Group{Municipio: code}
			byCode[code] = g
		}
		g.IDs = append(g.IDs, id)
		g.Count++
	}
	out := make([]Group, 0, len(byCode))
	for _, g := range byCode {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Municipio < out[j].Municipio })
	return out
}
