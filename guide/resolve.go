package guide

import (
	"fmt"
	"strings"
)

// AmbiguousMatchError reports a query that matched more than one candidate.
type AmbiguousMatchError struct {
	Query string
	Names []string
}

func (e *AmbiguousMatchError) Error() string {
	quoted := make([]string, 0, len(e.Names))
	for _, n := range e.Names {
		quoted = append(quoted, fmt.Sprintf("%q", n))
	}
	return fmt.Sprintf("multiple matches for %q: %s. Please be more specific", e.Query, strings.Join(quoted, ", "))
}

// NoMatchError reports a query with no matching candidate.
type NoMatchError struct {
	Query string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no match found for %q", e.Query)
}

// Resolve fuzzy-matches query against a list of named candidates. The cascade,
// first decision wins:
//
//  1. exact name match
//  2. case-insensitive exact match
//  3. candidate name contains query (unique, otherwise ambiguous)
//  4. query contains candidate name (unique)
//
// An ambiguity at rule 3 is terminal and does not fall through to rule 4.
func Resolve[T any](candidates []T, name func(T) string, query string) (T, error) {
	var zero T

	for _, c := range candidates {
		if name(c) == query {
			return c, nil
		}
	}

	lower := strings.ToLower(query)
	for _, c := range candidates {
		if strings.ToLower(name(c)) == lower {
			return c, nil
		}
	}

	var partial []T
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(name(c)), lower) {
			partial = append(partial, c)
		}
	}
	if len(partial) == 1 {
		return partial[0], nil
	}
	if len(partial) > 1 {
		names := make([]string, 0, len(partial))
		for _, c := range partial {
			names = append(names, name(c))
		}
		return zero, &AmbiguousMatchError{Query: query, Names: names}
	}

	var reverse []T
	for _, c := range candidates {
		if name(c) != "" && strings.Contains(lower, strings.ToLower(name(c))) {
			reverse = append(reverse, c)
		}
	}
	if len(reverse) == 1 {
		return reverse[0], nil
	}
	if len(reverse) > 1 {
		names := make([]string, 0, len(reverse))
		for _, c := range reverse {
			names = append(names, name(c))
		}
		return zero, &AmbiguousMatchError{Query: query, Names: names}
	}

	return zero, &NoMatchError{Query: query}
}
