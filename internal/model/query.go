package model

import (
	"slices"
	"strings"
)

// Sort fields accepted by Query.SortBy.
const (
	SortByName      = "name"
	SortByNIDN      = "nidn"
	SortByCreatedAt = "created_at"
)

// Query filters and orders a list of records the way the list view does.
// The zero value matches everything, newest first.
type Query struct {
	Search   string // case-insensitive substring of name or NIDN
	Position string // exact functional position
	Serdos   string // exact certification status
	SortBy   string // name, nidn or created_at (default)
	Desc     bool
}

// DefaultQuery returns a query ordered by creation time, newest first.
func DefaultQuery() Query {
	return Query{SortBy: SortByCreatedAt, Desc: true}
}

// Match reports whether r passes the query's search term and filters.
func (q Query) Match(r Record) bool {
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		if !strings.Contains(strings.ToLower(r.Name), term) &&
			!strings.Contains(strings.ToLower(r.NIDN), term) {
			return false
		}
	}
	if q.Position != "" && r.FunctionalPosition != q.Position {
		return false
	}
	if q.Serdos != "" && r.SerdosStatus != q.Serdos {
		return false
	}
	return true
}

// Apply returns the matching records in query order. The input is not modified.
func (q Query) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if q.Match(r) {
			out = append(out, r)
		}
	}

	slices.SortStableFunc(out, func(a, b Record) int {
		var c int
		switch q.SortBy {
		case SortByName:
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByNIDN:
			c = strings.Compare(a.NIDN, b.NIDN)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if q.Desc {
			return -c
		}
		return c
	})
	return out
}
