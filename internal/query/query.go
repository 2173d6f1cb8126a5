// Package query translates client list parameters (where, select, sort,
// skip, limit, count) into a typed Query, and evaluates that Query against
// in-process documents for stores that cannot execute it natively.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedQuery is returned when a where, select or sort parameter
// cannot be decoded.
var ErrMalformedQuery = errors.New("malformed query")

func malformed(param, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedQuery, param, fmt.Sprintf(format, args...))
}

// Query describes a list request against one collection.
type Query struct {
	Filter     Filter
	Projection Projection
	Sort       Sort
	// Skip is the number of matching documents to skip; 0 means none.
	Skip int64
	// Limit caps the number of documents returned; 0 means no limit.
	Limit int64
	// Count asks for the number of documents instead of the documents.
	Count bool
}

// Parse builds a Query from URL query parameters. Absent parameters mean no
// filter, all fields, no ordering, no skip and no limit.
func Parse(values url.Values) (Query, error) {
	var q Query
	var err error

	if raw, ok := param(values, "where"); ok {
		if q.Filter, err = ParseFilter(raw); err != nil {
			return Query{}, err
		}
	}
	if raw, ok := param(values, "select"); ok {
		if q.Projection, err = ParseProjection(raw); err != nil {
			return Query{}, err
		}
	}
	if raw, ok := param(values, "sort"); ok {
		if q.Sort, err = ParseSort(raw); err != nil {
			return Query{}, err
		}
	}

	q.Skip = parseCount(values.Get("skip"))
	q.Limit = parseCount(values.Get("limit"))
	q.Count = parseFlag(values, "count")
	return q, nil
}

// param returns a non-blank parameter value.
func param(values url.Values, name string) (string, bool) {
	raw := strings.TrimSpace(values.Get(name))
	return raw, raw != ""
}

// parseCount reads skip/limit. Anything that is not a non-negative integer
// means "not set".
func parseCount(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseFlag is true for any non-empty value, "0" and "false" included.
func parseFlag(values url.Values, name string) bool {
	return values.Get(name) != ""
}

// Window returns the [start, end) bounds of skip/limit applied to n items.
func (q Query) Window(n int) (start, end int) {
	start = n
	if q.Skip < int64(n) {
		start = int(q.Skip)
	}
	end = n
	if q.Limit > 0 && q.Limit < int64(n-start) {
		end = start + int(q.Limit)
	}
	return start, end
}

// Select filters, sorts and windows docs, which must be in store order.
// Projection is not applied.
func (q Query) Select(docs []map[string]any) []map[string]any {
	matched := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		if q.Filter.Match(d) {
			matched = append(matched, d)
		}
	}
	if len(q.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return q.Sort.Less(matched[i], matched[j])
		})
	}
	start, end := q.Window(len(matched))
	return matched[start:end]
}

// Apply evaluates the full query, projection included.
func (q Query) Apply(docs []map[string]any) []map[string]any {
	selected := q.Select(docs)
	out := make([]map[string]any, len(selected))
	for i, d := range selected {
		out[i] = q.Projection.Apply(d)
	}
	return out
}
