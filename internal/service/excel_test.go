package service

import (
	"testing"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateLogs(t *testing.T) {
	buf, err := NewExcelGenerator().GenerateLogs(sampleLogs())
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(logsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, logHeaders, rows[0])
	assert.Equal(t, "Acme", rows[1][0])
	assert.Equal(t, "Ana", rows[1][1])
	assert.Equal(t, "2024-03-01", rows[1][2])
	assert.Equal(t, "checked off", rows[1][3])
	assert.Equal(t, "Site Install", rows[1][4])
}

func TestGenerateProjects(t *testing.T) {
	ok := model.EmptyDetails()
	ok.AllTodos = []model.Todo{{ID: 1}, {ID: 2}}
	ok.TodolistCompletionCounts = map[string]string{"Survey": "1/1", "Install": "0/1"}
	ok.FilteredTodos = []model.HandoverDates{{StartsOn: "2024-05-01", DueOn: "2024-05-10"}}

	failed := model.EmptyDetails()
	failed.Error = "status 500"

	created := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	buf, err := NewExcelGenerator().GenerateProjects([]model.ProjectWithDetails{
		{ID: 1, Name: "Acme", CreatedAt: created, ProjectDetails: ok},
		{ID: 2, Name: "Beta", CreatedAt: created, ProjectDetails: failed},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(projectsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Acme", rows[1][1])
	assert.Equal(t, "2024-02-10", rows[1][3])
	assert.Equal(t, "2", rows[1][4])
	assert.Equal(t, "Install: 0/1; Survey: 1/1", rows[1][5])

	require.Len(t, rows[2], len(projectHeaders))
	assert.Equal(t, "status 500", rows[2][8])
}
