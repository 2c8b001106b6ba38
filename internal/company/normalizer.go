// Package company maps free-text insurer names onto canonical names.
package company

import (
	"strings"
)

// Normalizer is immutable once built and safe for concurrent use.
type Normalizer struct {
	version string
	entries []Entry
}

// NewNormalizer copies the table so later edits to it have no effect.
func NewNormalizer(table Table) *Normalizer {
	entries := make([]Entry, 0, len(table.Entries))
	for _, e := range table.Entries {
		variations := make([]string, 0, len(e.Variations))
		for _, v := range e.Variations {
			if c := Clean(v); c != "" {
				variations = append(variations, c)
			}
		}
		entries = append(entries, Entry{Canonical: Clean(e.Canonical), Variations: variations})
	}
	return &Normalizer{version: table.Version, entries: entries}
}

func (n *Normalizer) Version() string {
	return n.version
}

// Normalize returns the canonical insurer name for raw. For each entry, in
// table order, it checks canonical equality, variation equality, substring
// containment with a variation in either direction, and finally the canonical
// name appearing inside the input. Unknown names come back cleaned; blank
// input comes back blank.
func (n *Normalizer) Normalize(raw string) string {
	name := Clean(raw)
	if name == "" {
		return ""
	}

	for _, e := range n.entries {
		if name == e.Canonical {
			return e.Canonical
		}
		for _, v := range e.Variations {
			if name == v {
				return e.Canonical
			}
		}
		for _, v := range e.Variations {
			if strings.Contains(name, v) || strings.Contains(v, name) {
				return e.Canonical
			}
		}
		if strings.Contains(name, e.Canonical) {
			return e.Canonical
		}
	}

	return name
}

// Clean uppercases, trims and collapses internal whitespace.
func Clean(raw string) string {
	return strings.Join(strings.Fields(strings.ToUpper(raw)), " ")
}
