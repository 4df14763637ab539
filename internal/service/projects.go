package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/batch"
	"github.com/cleberrangel/basecamp-dashboard/internal/client"
	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/cleberrangel/basecamp-dashboard/internal/table"
	"golang.org/x/sync/errgroup"
)

// membershipConcurrency bounds the people.json fan-out; the client still applies its own in-flight cap
const membershipConcurrency = 10

// ProgressNotifier recebe o progresso de agregações longas
type ProgressNotifier interface {
	SendProgress(email string, progress model.BatchProgress)
}

// ProjectService orquestra listagem, filtros e agregação de projetos
type ProjectService struct {
	client     *client.Client
	aggregator *Aggregator
	batchSize  int
	notifier   ProgressNotifier
	metrics    *metrics.Metrics
}

// NewProjectService cria um novo serviço de projetos. notifier may be nil.
func NewProjectService(c *client.Client, aggregator *Aggregator, batchSize int, notifier ProgressNotifier) *ProjectService {
	if batchSize < 1 {
		batchSize = batch.DefaultSize
	}
	return &ProjectService{
		client:     c,
		aggregator: aggregator,
		batchSize:  batchSize,
		notifier:   notifier,
		metrics:    aggregator.metrics,
	}
}

// projectColumns are the table columns by position: id, name, description, created date
var projectColumns = []table.Column[model.Project]{
	func(p model.Project, needle string) bool {
		return strings.Contains(strconv.FormatInt(p.ID, 10), needle)
	},
	table.Field(func(p model.Project) string { return p.Name }),
	table.Field(func(p model.Project) string { return p.Description }),
	table.Field(func(p model.Project) string { return p.CreatedAt.Format("2006-01-02") }),
}

// MemberProjects returns the projects whose people include email (case-insensitive).
// A failed people lookup excludes that project and is logged.
func (s *ProjectService) MemberProjects(ctx context.Context, email string) ([]model.Project, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, model.ErrEmailRequired
	}

	projects, err := s.client.ListProjects(ctx)
	if err != nil {
		if len(projects) == 0 {
			return nil, err
		}
		logger.Get(ctx).Warn().
			Err(err).
			Int("collected", len(projects)).
			Msg("Listagem de projetos incompleta, seguindo com parcial")
	}

	member := make([]bool, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(membershipConcurrency)

	for i, p := range projects {
		i, p := i, p
		g.Go(func() error {
			people, err := s.client.ListPeople(gctx, p.ID)
			if err != nil {
				logger.Get(gctx).Warn().
					Int64("project_id", p.ID).
					Err(err).
					Msg("Falha ao buscar pessoas do projeto, ignorando")
				return nil
			}
			member[i] = hasMember(people, email)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("verificar membros: %w", model.ErrTimeout)
	}

	out := make([]model.Project, 0, len(projects))
	for i, p := range projects {
		if member[i] {
			out = append(out, p)
		}
	}

	logger.Get(ctx).Info().
		Int("projects", len(projects)).
		Int("member_of", len(out)).
		Msg("Projetos do usuário resolvidos")
	return out, nil
}

func hasMember(people []model.Person, email string) bool {
	for _, person := range people {
		if strings.EqualFold(strings.TrimSpace(person.EmailAddress), email) {
			return true
		}
	}
	return false
}

// Table filters the user's projects, slices the requested page and aggregates only that page
func (s *ProjectService) Table(ctx context.Context, req model.ProjectTableRequest) (model.TableResponse, error) {
	email := req.NormalizedEmail()
	if email == "" {
		return model.TableResponse{}, model.ErrEmailRequired
	}
	ctx = logger.WithEmail(ctx, email)

	projects, err := s.MemberProjects(ctx, email)
	if err != nil {
		return model.TableResponse{}, err
	}

	filtered := table.Apply(projects,
		table.Global(req.Search.Value,
			func(p model.Project) string { return p.Name },
			func(p model.Project) string { return p.Description },
		),
		table.ByColumns(projectColumns, req.ColumnSearch),
	)

	page := table.Page(filtered, req.Start, req.PageLength())
	rows := s.withDetails(ctx, email, page)

	return model.TableResponse{
		Draw:            req.Draw,
		RecordsTotal:    len(projects),
		RecordsFiltered: len(filtered),
		Data:            rows,
	}, nil
}

// All aggregates every project of the user, batch by batch
func (s *ProjectService) All(ctx context.Context, email string) ([]model.ProjectWithDetails, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, model.ErrEmailRequired
	}
	ctx = logger.WithEmail(ctx, email)

	projects, err := s.MemberProjects(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.withDetails(ctx, email, projects), nil
}

func (s *ProjectService) withDetails(ctx context.Context, email string, projects []model.Project) []model.ProjectWithDetails {
	started := time.Now()

	rows := batch.Run(ctx, projects, s.batchSize, func(ctx context.Context, p model.Project) model.ProjectWithDetails {
		return projectRow(p, s.aggregator.Aggregate(ctx, p.ID))
	}, func(done, total, b, batches int) {
		s.metrics.IncrementBatch()
		logger.Get(ctx).Debug().
			Int("batch", b).
			Int("batches", batches).
			Int("done", done).
			Int("total", total).
			Msg("Lote de projetos agregado")

		if s.notifier != nil {
			s.notifier.SendProgress(email, model.BatchProgress{
				Type:      "batch_progress",
				Done:      done,
				Total:     total,
				Batch:     b,
				Batches:   batches,
				Progress:  float64(done) / float64(total) * 100,
				Timestamp: time.Now(),
			})
		}
	})

	// Groups skipped after cancellation come back zero-valued
	for i := range rows {
		if rows[i].ID != 0 {
			continue
		}
		details := model.EmptyDetails()
		details.Error = "aggregation skipped"
		if err := ctx.Err(); err != nil {
			details.Error = err.Error()
		}
		rows[i] = projectRow(projects[i], details)
	}

	logger.Get(ctx).Info().
		Int("projects", len(rows)).
		Dur("elapsed", time.Since(started)).
		Msg("Agregação concluída")
	return rows
}

func projectRow(p model.Project, details model.ProjectDetails) model.ProjectWithDetails {
	return model.ProjectWithDetails{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		CreatedAt:      p.CreatedAt,
		ProjectDetails: details,
	}
}

// People lista as pessoas de um projeto
func (s *ProjectService) People(ctx context.Context, projectID int64) ([]model.Person, error) {
	people, err := s.client.ListPeople(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return people, nil
}

// Chart gathers todos and the primary vault tree of several projects.
// A failing project is reported in Errors and skipped; the others still render.
func (s *ProjectService) Chart(ctx context.Context, projectIDs []int64) model.ChartData {
	type projectChart struct {
		lists  []todolistTodos
		folder *model.VaultNode
		err    error
	}

	results := make([]projectChart, len(projectIDs))
	g, gctx := errgroup.WithContext(ctx)

	for i, id := range projectIDs {
		i, id := i, id
		g.Go(func() error {
			pctx := logger.WithProjectID(gctx, id)
			project, lists, err := s.aggregator.collect(pctx, id)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].lists = lists

			vaults := project.DockByName(model.DockVault)
			if len(vaults) == 0 {
				return nil
			}
			tree, err := s.aggregator.BuildVaultTree(pctx, id, vaults[0].ID)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].folder = &tree
			return nil
		})
	}
	_ = g.Wait()

	data := model.ChartData{
		Todos:                    []model.Todo{},
		CompletedTodos:           []model.Todo{},
		UncompletedTodos:         []model.Todo{},
		Folders:                  []model.VaultNode{},
		TodolistCompletionCounts: map[string]string{},
	}

	for i, r := range results {
		if r.err != nil {
			logger.Get(ctx).Error().Int64("project_id", projectIDs[i]).Err(r.err).Msg("Falha ao montar gráfico do projeto")
			data.Errors = append(data.Errors, fmt.Sprintf("project %d: %v", projectIDs[i], r.err))
		}
		for _, l := range r.lists {
			data.CompletedTodos = append(data.CompletedTodos, l.Completed...)
			data.UncompletedTodos = append(data.UncompletedTodos, l.Pending...)
			data.TodolistCompletionCounts[completionKey(data.TodolistCompletionCounts, l)] = fmt.Sprintf("%d/%d", len(l.Completed), len(l.Completed)+len(l.Pending))
		}
		if r.folder != nil {
			data.Folders = append(data.Folders, *r.folder)
		}
	}

	data.Todos = append(data.Todos, data.CompletedTodos...)
	data.Todos = append(data.Todos, data.UncompletedTodos...)
	return data
}

// ParseProjectIDs parses "1,2, 3" into ids
func ParseProjectIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: project id %q", model.ErrInvalidInput, part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: nenhum project id", model.ErrInvalidInput)
	}
	return ids, nil
}
