package listview

import (
	"strings"

	"golang.org/x/text/cases"
)

// Match reports whether any field contains term, ignoring case. An empty term matches everything.
func Match(term string, fields ...string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	folder := cases.Fold()
	needle := folder.String(term)
	for _, f := range fields {
		if f == "" {
			continue
		}
		if strings.Contains(folder.String(f), needle) {
			return true
		}
	}
	return false
}

// Filter returns the indexes of items whose designated fields contain term.
func Filter[R any](items []R, term string, fields func(R) []string) []int {
	out := make([]int, 0, len(items))
	term = strings.TrimSpace(term)
	for i, it := range items {
		if term == "" || Match(term, fields(it)...) {
			out = append(out, i)
		}
	}
	return out
}
