package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleberrangel/basecamp-dashboard/internal/client"
	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"golang.org/x/sync/errgroup"
)

var (
	handoverKeywords = []string{"commissioning,demo & handover", "demo & handover"}
	hardwareKeywords = []string{"installation", "hardware"}
)

// Aggregator monta a visão achatada de todos de um projeto
type Aggregator struct {
	client  *client.Client
	metrics *metrics.Metrics
}

// NewAggregator cria um novo agregador
func NewAggregator(c *client.Client, m *metrics.Metrics) *Aggregator {
	if m == nil {
		m = metrics.Get()
	}
	return &Aggregator{client: c, metrics: m}
}

// todolistTodos holds one todolist's todos, completed first
type todolistTodos struct {
	ID        int64
	Title     string
	Completed []model.Todo
	Pending   []model.Todo
}

// Aggregate never fails: upstream errors degrade to the empty shape with Error set
func (a *Aggregator) Aggregate(ctx context.Context, projectID int64) model.ProjectDetails {
	ctx = logger.WithProjectID(ctx, projectID)

	_, lists, err := a.collect(ctx, projectID)
	if err != nil {
		a.metrics.IncrementAggregation(false)
		logger.Get(ctx).Error().Err(err).Msg("Falha ao agregar projeto, retornando vazio")

		details := model.EmptyDetails()
		details.Error = err.Error()
		return details
	}

	a.metrics.IncrementAggregation(true)
	details := summarize(lists)

	logger.Get(ctx).Debug().
		Int("todolists", len(lists)).
		Int("todos", len(details.AllTodos)).
		Msg("Projeto agregado")
	return details
}

// collect fetches project → todosets → todolists → todos. Todosets and todolists
// are walked concurrently; each todolist fetches completed and pending in parallel.
func (a *Aggregator) collect(ctx context.Context, projectID int64) (model.Project, []todolistTodos, error) {
	project, err := a.client.GetProject(ctx, projectID)
	if err != nil {
		return model.Project{}, nil, err
	}

	todosets := project.DockByName(model.DockTodoset)
	if len(todosets) == 0 {
		return project, nil, nil
	}

	perSet := make([][]todolistTodos, len(todosets))
	g, gctx := errgroup.WithContext(ctx)

	for i, ts := range todosets {
		i, ts := i, ts
		g.Go(func() error {
			lists, err := a.collectTodoset(gctx, projectID, ts.ID)
			if err != nil {
				return err
			}
			perSet[i] = lists
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return project, nil, err
	}

	var all []todolistTodos
	for _, lists := range perSet {
		all = append(all, lists...)
	}
	return project, all, nil
}

func (a *Aggregator) collectTodoset(ctx context.Context, projectID, todosetID int64) ([]todolistTodos, error) {
	todolists, err := a.client.ListTodolists(ctx, projectID, todosetID)
	if err != nil {
		return nil, err
	}

	out := make([]todolistTodos, len(todolists))
	g, gctx := errgroup.WithContext(ctx)

	for i, tl := range todolists {
		i, tl := i, tl
		out[i].ID = tl.ID
		out[i].Title = tl.Title

		g.Go(func() error {
			todos, err := a.client.ListTodos(gctx, projectID, tl.ID, true)
			if err != nil {
				return err
			}
			out[i].Completed = todos
			return nil
		})
		g.Go(func() error {
			todos, err := a.client.ListTodos(gctx, projectID, tl.ID, false)
			if err != nil {
				return err
			}
			out[i].Pending = todos
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("todoset %d: %w", todosetID, err)
	}
	return out, nil
}

// completionKey usa o título da lista; títulos repetidos ganham o id para não se sobrescreverem
func completionKey(counts map[string]string, l todolistTodos) string {
	if _, taken := counts[l.Title]; !taken {
		return l.Title
	}
	return fmt.Sprintf("%s (%d)", l.Title, l.ID)
}

// summarize flattens todolists into the dashboard record
func summarize(lists []todolistTodos) model.ProjectDetails {
	details := model.EmptyDetails()

	for _, l := range lists {
		total := len(l.Completed) + len(l.Pending)
		details.TodolistCompletionCounts[completionKey(details.TodolistCompletionCounts, l)] = fmt.Sprintf("%d/%d", len(l.Completed), total)
		details.AllTodos = append(details.AllTodos, l.Completed...)
		details.AllTodos = append(details.AllTodos, l.Pending...)
	}

	for _, todo := range details.AllTodos {
		content := strings.ToLower(todo.Content)

		if containsAny(content, handoverKeywords) {
			details.FilteredTodos = append(details.FilteredTodos, model.HandoverDates{
				StartsOn: todo.StartsOn,
				DueOn:    todo.DueOn,
			})
		}

		if todo.Completed && containsAny(content, hardwareKeywords) {
			details.FilteredHardwareContent = append(details.FilteredHardwareContent, model.HardwareDates{
				StartsOn:  todo.StartsOn,
				DueOn:     todo.DueOn,
				UpdatedAt: todo.UpdatedAt.UTC().Format("2006-01-02"),
			})
		}
	}

	return details
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
