package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProjectService(f *fakeBasecamp, batchSize int, n ProgressNotifier) *ProjectService {
	c := f.client()
	return NewProjectService(c, NewAggregator(c, metrics.New()), batchSize, n)
}

func TestMemberProjectsMatchesEmailCaseInsensitive(t *testing.T) {
	f := newFakeBasecamp(t)
	f.seedProject(dockedProject(1, "Acme", 0, 0), "Ana@Acme.com", "bruno@acme.com")
	f.seedProject(dockedProject(2, "Beta", 0, 0), "carla@beta.com")
	f.seedProject(dockedProject(3, "Gamma", 0, 0), "ana@acme.com")
	f.fail(http.MethodGet, "/projects/3/people.json", http.StatusInternalServerError)

	projects, err := newProjectService(f, 5, nil).MemberProjects(context.Background(), "  ana@ACME.com ")
	require.NoError(t, err)

	// o projeto 3 falhou na consulta de pessoas e fica de fora
	require.Len(t, projects, 1)
	assert.Equal(t, int64(1), projects[0].ID)
}

func TestMemberProjectsRequiresEmail(t *testing.T) {
	f := newFakeBasecamp(t)
	f.seedProject(dockedProject(1, "Acme", 0, 0), "ana@acme.com")

	_, err := newProjectService(f, 5, nil).MemberProjects(context.Background(), "   ")
	assert.ErrorIs(t, err, model.ErrEmailRequired)
	assert.Empty(t, f.callLog())
}

func TestProjectTableRequiresEmail(t *testing.T) {
	f := newFakeBasecamp(t)

	_, err := newProjectService(f, 5, nil).Table(context.Background(), model.ProjectTableRequest{Draw: 1})
	assert.True(t, errors.Is(err, model.ErrEmailRequired))
	assert.Empty(t, f.callLog())
}

func TestProjectTableFiltersThenAggregatesOnlyThePage(t *testing.T) {
	f := newFakeBasecamp(t)
	for i := int64(1); i <= 12; i++ {
		name := fmt.Sprintf("Acme %02d", i)
		if i > 7 {
			name = fmt.Sprintf("Beta %02d", i)
		}
		f.seedProject(dockedProject(i, name, 0, 0), "ana@acme.com")
	}
	f.seedProject(dockedProject(99, "Acme Secret", 0, 0), "boss@acme.com")

	notifier := &recordingNotifier{}
	length := 5
	resp, err := newProjectService(f, 5, notifier).Table(context.Background(), model.ProjectTableRequest{
		Draw:   3,
		Start:  5,
		Length: &length,
		Search: model.SearchValue{Value: "ACME"},
		Email:  "ana@acme.com",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Draw)
	assert.Equal(t, 12, resp.RecordsTotal)
	assert.Equal(t, 7, resp.RecordsFiltered)

	rows, ok := resp.Data.([]model.ProjectWithDetails)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme 06", rows[0].Name)
	assert.Equal(t, "Acme 07", rows[1].Name)
	assert.False(t, rows[0].Failed())

	// only the visible page was aggregated
	for i := int64(1); i <= 12; i++ {
		want := 0
		if i == 6 || i == 7 {
			want = 1
		}
		assert.Equal(t, want, f.called(fmt.Sprintf("GET /projects/%d.json", i)), "project %d", i)
	}

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "ana@acme.com", notifier.emails[0])
	assert.Equal(t, 2, notifier.events[0].Done)
	assert.Equal(t, 2, notifier.events[0].Total)
	assert.Equal(t, float64(100), notifier.events[0].Progress)
}

func TestProjectTableColumnSearch(t *testing.T) {
	f := newFakeBasecamp(t)
	p1 := dockedProject(1, "Acme North", 0, 0)
	p1.Description = "Datacenter"
	p1.CreatedAt = time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	p2 := dockedProject(2, "Acme South", 0, 0)
	p2.Description = "Datacenter"
	p2.CreatedAt = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	p3 := dockedProject(3, "Acme East", 0, 0)
	p3.Description = "Office"
	p3.CreatedAt = time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)
	f.seedProject(p1, "ana@acme.com")
	f.seedProject(p2, "ana@acme.com")
	f.seedProject(p3, "ana@acme.com")

	resp, err := newProjectService(f, 5, nil).Table(context.Background(), model.ProjectTableRequest{
		Email:        "ana@acme.com",
		ColumnSearch: []string{"", "acme", "datacenter", "2024-02"},
	})
	require.NoError(t, err)

	rows := resp.Data.([]model.ProjectWithDetails)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme North", rows[0].Name)
	assert.Equal(t, 3, resp.RecordsTotal)
	assert.Equal(t, 1, resp.RecordsFiltered)
}

func TestAllReportsProgressPerBatchAndTagsFailures(t *testing.T) {
	f := newFakeBasecamp(t)
	for i := int64(1); i <= 12; i++ {
		f.seedProject(dockedProject(i, fmt.Sprintf("Site %02d", i), 0, 0), "ana@acme.com")
	}
	f.fail(http.MethodGet, "/projects/3.json", http.StatusInternalServerError)

	notifier := &recordingNotifier{}
	rows, err := newProjectService(f, 5, notifier).All(context.Background(), "ana@acme.com")
	require.NoError(t, err)
	require.Len(t, rows, 12)

	// a failed project still has its row, tagged with the error
	for i, row := range rows {
		assert.Equal(t, int64(i+1), row.ID)
		if row.ID == 3 {
			assert.True(t, row.Failed())
			assert.Equal(t, "Site 03", row.Name)
			continue
		}
		assert.False(t, row.Failed(), "project %d", row.ID)
	}

	require.Len(t, notifier.events, 3)
	done := []int{notifier.events[0].Done, notifier.events[1].Done, notifier.events[2].Done}
	assert.Equal(t, []int{5, 10, 12}, done)
	for i, ev := range notifier.events {
		assert.Equal(t, "batch_progress", ev.Type)
		assert.Equal(t, i+1, ev.Batch)
		assert.Equal(t, 3, ev.Batches)
	}
}

func TestChartCombinesProjectsAndReportsFailures(t *testing.T) {
	f := newFakeBasecamp(t)
	f.seedProject(dockedProject(1, "Acme", 10, 20))
	f.seedTodoset(1, 10, fakeList{
		ID:        100,
		Title:     "Install",
		Completed: []model.Todo{{ID: 1, Content: "rack", Completed: true}},
		Pending:   []model.Todo{{ID: 2, Content: "cabling"}, {ID: 3, Content: "labels"}},
	})
	f.seedVault(1, model.Vault{ID: 20, Title: "Docs"}, nil, []model.Upload{{ID: 9, Title: "As built"}})
	f.fail(http.MethodGet, "/projects/2.json", http.StatusForbidden)

	data := newProjectService(f, 5, nil).Chart(context.Background(), []int64{1, 2})

	assert.Len(t, data.Todos, 3)
	assert.Len(t, data.CompletedTodos, 1)
	assert.Len(t, data.UncompletedTodos, 2)
	assert.Equal(t, map[string]string{"Install": "1/3"}, data.TodolistCompletionCounts)
	require.Len(t, data.Folders, 1)
	assert.Equal(t, "Docs", data.Folders[0].Title)

	require.Len(t, data.Errors, 1)
	assert.True(t, strings.HasPrefix(data.Errors[0], "project 2:"))
}

func TestParseProjectIDs(t *testing.T) {
	ids, err := ParseProjectIDs("1, 2,3,")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	for _, raw := range []string{"", " , ", "1,abc", "0", "-4"} {
		_, err := ParseProjectIDs(raw)
		assert.ErrorIs(t, err, model.ErrInvalidInput, "input %q", raw)
	}
}
