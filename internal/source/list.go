package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"catastro/internal/types"
)

// ListStats describes an identifier list as read.
type ListStats struct {
	Lines      int
	Unique     int
	Duplicates int
}

// ReadList reads identifiers from r. With an empty column every non-blank
// line is one identifier. Otherwise the input is |-delimited with a header
// row and the named column is used.
func ReadList(r io.Reader, column string) (types.IDSet, ListStats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024) // allow very long lines

	idx := -1
	if column != "" {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, ListStats{}, err
			}
			return nil, ListStats{}, fmt.Errorf("list is empty, expected header with column %q", column)
		}
		for i, h := range strings.Split(scanner.Text(), "|") {
			if strings.EqualFold(strings.TrimSpace(h), column) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ListStats{}, fmt.Errorf("column %q not found in header", column)
		}
	}

	ids := make(types.IDSet)
	var stats ListStats
	for scanner.Scan() {
		line := scanner.Text()
		if idx >= 0 {
			cols := strings.Split(line, "|")
			if idx >= len(cols) {
				continue
			}
			line = cols[idx]
		}
		id := strings.TrimSpace(line)
		if id == "" {
			continue
		}
		stats.Lines++
		ids.Add(id)
	}
	if err := scanner.Err(); err != nil {
		return nil, ListStats{}, err
	}
	stats.Unique = ids.Len()
	stats.Duplicates = stats.Lines - stats.Unique
	return ids, stats, nil
}

// LoadList reads an identifier list from a file.
func LoadList(path, column string) (types.IDSet, ListStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ListStats{}, fmt.Errorf("open list %s: %w", path, err)
	}
	defer f.Close()

	ids, stats, err := ReadList(f, column)
	if err != nil {
		return nil, ListStats{}, fmt.Errorf("read list %s: %w", path, err)
	}
	return ids, stats, nil
}

// ListReference serves a reference set from an exported list file. The file
// is expected to be scoped to the period already, so the date range is not
// applied.
type ListReference struct {
	name   string
	path   string
	column string
}

// NewListReference returns a reference source backed by a list file.
func NewListReference(name, path, column string) *ListReference {
	return &ListReference{name: name, path: path, column: column}
}

func (l *ListReference) Name() string { return l.name }

// ChangedIdentifiers loads the list.
func (l *ListReference) ChangedIdentifiers(ctx context.Context, _, _ time.Time) (types.IDSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, _, err := LoadList(l.path, l.column)
	return ids, err
}
