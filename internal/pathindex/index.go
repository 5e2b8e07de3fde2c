package pathindex

import (
	"slices"
	"strings"
)

// Options controls a property path query.
type Options struct {
	// EntityID requests single-entity mode. Empty means collection mode.
	EntityID string

	// Term keeps only paths containing it as a case-sensitive substring.
	// Only applied in single-entity mode; empty keeps everything.
	Term string
}

// Source supplies entity records to the indexer.
type Source interface {
	// State returns the record for one entity, or false if it is unknown.
	State(entityID string) (Value, bool)

	// States returns every known record keyed by entity id.
	States() map[string]Value
}

// MapSource is a Source backed by an in-memory map.
type MapSource map[string]Value

// State implements Source.
func (m MapSource) State(entityID string) (Value, bool) {
	v, ok := m[entityID]
	return v, ok
}

// States implements Source.
func (m MapSource) States() map[string]Value {
	return m
}

// Compute returns the sorted, deduplicated property paths for a query.
//
// When opts.EntityID resolves to a record, only that record is indexed and
// opts.Term filters the result. When it is empty or unknown, every record
// in src is indexed and the term is ignored.
func Compute(src Source, opts Options) []string {
	if opts.EntityID != "" {
		if record, ok := src.State(opts.EntityID); ok {
			return Single(record, opts.Term)
		}
	}
	return Collection(src.States())
}

// Single indexes one record, keeping paths that contain term.
func Single(record Value, term string) []string {
	paths := Flatten(record)
	kept := paths[:0]
	for _, p := range paths {
		if strings.Contains(p, term) {
			kept = append(kept, p)
		}
	}
	return order(kept)
}

// Collection indexes every record and merges the results.
func Collection(records map[string]Value) []string {
	var merged []string
	for _, record := range records {
		merged = append(merged, Flatten(record)...)
	}
	return order(merged)
}

// order sorts with ComparePaths and drops duplicates. The result is never
// nil so it always serialises as a JSON array.
func order(paths []string) []string {
	slices.SortFunc(paths, ComparePaths)
	paths = slices.Compact(paths)
	if paths == nil {
		return []string{}
	}
	return paths
}

// ComparePaths orders top-level paths (no separator) before nested ones,
// and otherwise compares byte-wise.
func ComparePaths(a, b string) int {
	aNested := strings.Contains(a, Separator)
	bNested := strings.Contains(b, Separator)
	switch {
	case !aNested && bNested:
		return -1
	case aNested && !bNested:
		return 1
	}
	return strings.Compare(a, b)
}
