package table

import (
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

type row struct {
	ID   int
	Name string
	Desc string
}

var rowColumns = []Column[row]{
	func(r row, needle string) bool { return Contains(fmt.Sprint(r.ID), needle) },
	Field(func(r row) string { return r.Name }),
	Field(func(r row) string { return r.Desc }),
}

func fixtureRows(n int) []row {
	rows := make([]row, n)
	for i := range rows {
		name := fmt.Sprintf("Project %02d", i)
		if i%4 == 0 {
			name = fmt.Sprintf("ACME site %02d", i)
		}
		rows[i] = row{ID: 100 + i, Name: name, Desc: fmt.Sprintf("phase %d", i%3)}
	}
	return rows
}

func TestColumnSearchOnName(t *testing.T) {
	rows := fixtureRows(23)

	filtered := Apply(rows, ByColumns(rowColumns, []string{"", "acme", "", ""}))
	resp := Respond(3, len(rows), filtered, 0, 10)

	assert.Equal(t, 3, resp.Draw)
	assert.Equal(t, 23, resp.RecordsTotal)
	assert.Equal(t, 6, resp.RecordsFiltered) // 0,4,8,12,16,20
	data := resp.Data.([]row)
	assert.Len(t, data, 6)
	for _, r := range data {
		assert.Contains(t, r.Name, "ACME")
	}
}

func TestColumnsAreANDedAndUnknownIndicesMatch(t *testing.T) {
	rows := fixtureRows(23)

	filtered := Apply(rows, ByColumns(rowColumns, []string{"", "acme", "phase 1", "", "ignored"}))
	for _, r := range filtered {
		assert.Contains(t, r.Name, "ACME")
		assert.Equal(t, "phase 1", r.Desc)
	}
	assert.Len(t, filtered, 2) // 4 and 16
}

func TestGlobalSearch(t *testing.T) {
	rows := fixtureRows(10)
	name := func(r row) string { return r.Name }
	desc := func(r row) string { return r.Desc }

	assert.Len(t, Apply(rows, Global("", name, desc)), 10)
	assert.Len(t, Apply(rows, Global("PHASE 2", name, desc)), 3)
	assert.Len(t, Apply(rows, Global("acme", name, desc)), 3)
}

func TestPageBounds(t *testing.T) {
	items := make([]int, 12)
	for i := range items {
		items[i] = i
	}

	assert.Equal(t, []int{10, 11}, Page(items, 10, 5))
	assert.Equal(t, []int{}, Page(items, 12, 5))
	assert.Equal(t, []int{}, Page(items, 50, 5))
	assert.Equal(t, []int{0, 1, 2}, Page(items, -4, 3))
	assert.Len(t, Page(items, 2, -1), 10)
	assert.Equal(t, []int{}, Page(items, 0, 0))
	assert.Equal(t, []int{1, 2, 3}, Page([]int{0, 1, 2, 3}, 1, math.MaxInt))
	assert.Len(t, Page(items, math.MaxInt, math.MaxInt), 0)
}

func TestPageProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("page is a clamped contiguous window", prop.ForAll(
		func(n, start, length int) bool {
			items := make([]int, n)
			for i := range items {
				items[i] = i
			}
			page := Page(items, start, length)

			s := start
			if s < 0 {
				s = 0
			}
			want := 0
			if s < n && length != 0 {
				want = n - s
				if length > 0 && length < want {
					want = length
				}
			}
			if len(page) != want {
				return false
			}
			for i, v := range page {
				if v != s+i {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 60),
		gen.IntRange(-5, 80),
		gen.IntRange(-1, 30),
	))

	properties.Property("huge length returns the tail without overflow", prop.ForAll(
		func(n, start, length int) bool {
			items := make([]int, n)
			page := Page(items, start, length)
			if start >= n {
				return len(page) == 0
			}
			return len(page) == n-start
		},
		gen.IntRange(0, 40),
		gen.IntRange(0, 50),
		gen.IntRange(math.MaxInt-1000, math.MaxInt),
	))

	properties.Property("filtered count never exceeds total", prop.ForAll(
		func(n int, needle string) bool {
			rows := fixtureRows(n)
			resp := Respond(1, n, Apply(rows, ByColumns(rowColumns, []string{"", needle})), 0, 10)
			return resp.RecordsFiltered <= resp.RecordsTotal && len(resp.Data.([]row)) <= 10
		},
		gen.IntRange(0, 40),
		gen.OneConstOf("", "acme", "project", "zzz", "0"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
