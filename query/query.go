// Package query builds store-neutral list queries from request
// parameters. A Query is a bag of explicit predicate terms plus an
// optional sort field and inclusion projection; translating it into a
// store's native filter language is the gateway's job, but a Query also
// knows how to apply itself to plain document maps for the in-memory
// backends.
package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Op identifies a predicate operator.
type Op int

const (
	// OpEq matches documents whose field equals the value exactly.
	OpEq Op = iota
	// OpGTE matches documents whose numeric field is >= the value.
	OpGTE
)

// Predicate is a single filter term.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Query is an immutable list query. The zero value matches every
// document with no ordering and full projection.
type Query struct {
	predicates []Predicate
	sortField  string
	projection []string
}

// Build translates list-endpoint query parameters into a Query.
//
// Recognized parameters:
//
//	category  exact string match
//	minPrice  numeric lower bound on price
//	sort      "price" for ascending price order; anything else is ignored
//	fields    comma-separated inclusion projection; id is always excluded
func Build(values url.Values) (Query, error) {
	var q Query

	if c := values.Get("category"); c != "" {
		q.predicates = append(q.predicates, Predicate{Field: "category", Op: OpEq, Value: c})
	}

	if raw := values.Get("minPrice"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(min) || math.IsInf(min, 0) {
			return Query{}, fmt.Errorf("minPrice must be a number, got %q", raw)
		}
		q.predicates = append(q.predicates, Predicate{Field: "price", Op: OpGTE, Value: min})
	}

	if values.Get("sort") == "price" {
		q.sortField = "price"
	}

	if raw := values.Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			f = strings.TrimSpace(f)
			if f == "" || f == "id" {
				continue
			}
			q.projection = append(q.projection, f)
		}
	}

	return q, nil
}

// Predicates returns the filter terms in the order they were built.
func (q Query) Predicates() []Predicate {
	return append([]Predicate(nil), q.predicates...)
}

// SortField returns the ascending sort field, or "" for natural order.
func (q Query) SortField() string {
	return q.sortField
}

// Projection returns the inclusion field list, or nil for full documents.
func (q Query) Projection() []string {
	return append([]string(nil), q.projection...)
}

// Matches reports whether doc satisfies every predicate.
func (q Query) Matches(doc map[string]any) bool {
	for _, p := range q.predicates {
		switch p.Op {
		case OpEq:
			if doc[p.Field] != p.Value {
				return false
			}
		case OpGTE:
			n, ok := doc[p.Field].(float64)
			if !ok || n < p.Value.(float64) {
				return false
			}
		}
	}
	return true
}

// Sort orders docs in place, leaving natural order untouched when no
// sort was requested. Missing or non-numeric sort values order as zero.
func (q Query) Sort(docs []map[string]any) {
	if q.sortField == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return numField(docs[i], q.sortField) < numField(docs[j], q.sortField)
	})
}

// Project reduces doc to the projection, or returns doc unchanged when
// no projection was requested.
func (q Query) Project(doc map[string]any) map[string]any {
	if len(q.projection) == 0 {
		return doc
	}
	out := make(map[string]any, len(q.projection))
	for _, f := range q.projection {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

func numField(doc map[string]any, field string) float64 {
	n, _ := doc[field].(float64)
	return n
}
