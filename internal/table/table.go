// Package table implements server-side processing for DataTables-style grids:
// predicates over an in-memory result set, then an offset/length slice.
package table

import (
	"strings"

	"github.com/cleberrangel/basecamp-dashboard/internal/model"
)

// Filter keeps the items for which it returns true
type Filter[T any] func(T) bool

// Column matches one item against a lowercased needle
type Column[T any] func(item T, needle string) bool

// Apply runs every filter in order; a nil filter matches everything
func Apply[T any](items []T, filters ...Filter[T]) []T {
	out := make([]T, 0, len(items))
next:
	for _, item := range items {
		for _, f := range filters {
			if f != nil && !f(item) {
				continue next
			}
		}
		out = append(out, item)
	}
	return out
}

// Contains is the case-insensitive substring test every column uses
func Contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Global matches when any field contains the needle. An empty needle matches everything.
func Global[T any](needle string, fields ...func(T) string) Filter[T] {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return nil
	}
	needle = strings.ToLower(needle)
	return func(item T) bool {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field(item)), needle) {
				return true
			}
		}
		return false
	}
}

// ByColumns ANDs per-column predicates by position. Empty values are ignored and
// positions without a column definition match.
func ByColumns[T any](columns []Column[T], values []string) Filter[T] {
	type active struct {
		col    Column[T]
		needle string
	}

	var checks []active
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || i >= len(columns) || columns[i] == nil {
			continue
		}
		checks = append(checks, active{col: columns[i], needle: strings.ToLower(v)})
	}
	if len(checks) == 0 {
		return nil
	}

	return func(item T) bool {
		for _, c := range checks {
			if !c.col(item, c.needle) {
				return false
			}
		}
		return true
	}
}

// Field adapts a string accessor into a substring column
func Field[T any](get func(T) string) Column[T] {
	return func(item T, needle string) bool {
		return strings.Contains(strings.ToLower(get(item)), needle)
	}
}

// Page returns items[start:start+length] clamped to bounds. length < 0 means
// "everything from start" as DataTables sends -1 for "All".
func Page[T any](items []T, start, length int) []T {
	if start < 0 {
		start = 0
	}
	if start >= len(items) || length == 0 {
		return []T{}
	}

	end := len(items)
	// comparado pela diferença para não estourar int com length enorme
	if length > 0 && length < end-start {
		end = start + length
	}

	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

// Respond builds the envelope. total is the count before search filters.
func Respond[T any](draw, total int, filtered []T, start, length int) model.TableResponse {
	return model.TableResponse{
		Draw:            draw,
		RecordsTotal:    total,
		RecordsFiltered: len(filtered),
		Data:            Page(filtered, start, length),
	}
}
