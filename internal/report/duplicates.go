// Package report builds read-side aggregations over repository listings:
// duplicate detection for consolidation work and dashboard totals. Nothing
// here writes to storage.
package report

import "sort"

// Group is a set of rows sharing one key.
type Group[T any] struct {
	Key  string `json:"key"`
	Rows []T    `json:"rows"`
}

// GroupDuplicates groups rows by key and returns only groups with at least
// two members, sorted by key. Row order within a group follows input order.
func GroupDuplicates[T any](rows []T, key func(T) string) []Group[T] {
	byKey := make(map[string][]T)
	for _, row := range rows {
		k := key(row)
		byKey[k] = append(byKey[k], row)
	}

	var groups []Group[T]
	for k, members := range byKey {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, Group[T]{Key: k, Rows: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// Duplicates returns every row belonging to a group of size two or more,
// flattened in key order.
func Duplicates[T any](rows []T, key func(T) string) []T {
	var out []T
	for _, g := range GroupDuplicates(rows, key) {
		out = append(out, g.Rows...)
	}
	return out
}
