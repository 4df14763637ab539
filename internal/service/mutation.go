package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/client"
	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
)

const dateLayout = "2006-01-02"

// MutationService repassa edições de todos para o Basecamp, sem estado local
type MutationService struct {
	client  *client.Client
	metrics *metrics.Metrics
}

// NewMutationService cria um novo serviço de mutações
func NewMutationService(c *client.Client, m *metrics.Metrics) *MutationService {
	if m == nil {
		m = metrics.Get()
	}
	return &MutationService{client: c, metrics: m}
}

// Update forwards content, dates and assignees as one PUT. Basecamp clears fields
// omitted from a todo PUT, so when the caller leaves any of them out the current
// todo is read first and those fields are sent back unchanged.
func (s *MutationService) Update(ctx context.Context, projectID, todoID int64, update model.TodoUpdate) (model.Todo, error) {
	if strings.TrimSpace(update.Content) == "" {
		return model.Todo{}, fmt.Errorf("%w: content é obrigatório", model.ErrInvalidInput)
	}
	if err := validateDates(update.StartsOn, update.DueOn); err != nil {
		return model.Todo{}, err
	}

	if partial(update) {
		current, err := s.client.GetTodo(ctx, projectID, todoID)
		if err != nil {
			return model.Todo{}, err
		}
		update = mergeTodo(update, current)
	}
	return s.put(ctx, projectID, todoID, update)
}

// UpdateDueDate changes only the due date, keeping every other field of the todo
func (s *MutationService) UpdateDueDate(ctx context.Context, projectID, todoID int64, dueOn string) (model.Todo, error) {
	if err := validateDates(nil, &dueOn); err != nil {
		return model.Todo{}, err
	}

	current, err := s.client.GetTodo(ctx, projectID, todoID)
	if err != nil {
		return model.Todo{}, err
	}

	update := mergeTodo(model.TodoUpdate{Content: current.Content, DueOn: &dueOn}, current)
	return s.put(ctx, projectID, todoID, update)
}

func (s *MutationService) put(ctx context.Context, projectID, todoID int64, update model.TodoUpdate) (model.Todo, error) {
	var todo model.Todo
	err := s.track(ctx, logger.AuditActionTodoUpdate, projectID, todoID, func() error {
		var err error
		todo, err = s.client.UpdateTodo(ctx, projectID, todoID, update)
		return err
	})
	return todo, err
}

func partial(u model.TodoUpdate) bool {
	return u.Description == nil || u.AssigneeIDs == nil || u.StartsOn == nil || u.DueOn == nil
}

// mergeTodo preenche os campos nil de u com os valores atuais da tarefa
func mergeTodo(u model.TodoUpdate, current model.Todo) model.TodoUpdate {
	if u.Description == nil {
		desc := current.Description
		u.Description = &desc
	}
	if u.AssigneeIDs == nil {
		for _, a := range current.Assignees {
			u.AssigneeIDs = append(u.AssigneeIDs, a.ID)
		}
	}
	if u.StartsOn == nil && current.StartsOn != "" {
		starts := current.StartsOn
		u.StartsOn = &starts
	}
	if u.DueOn == nil && current.DueOn != "" {
		due := current.DueOn
		u.DueOn = &due
	}
	return u
}

// Complete marca como concluída; repetir a chamada não gera erro local
func (s *MutationService) Complete(ctx context.Context, projectID, todoID int64) error {
	return s.track(ctx, logger.AuditActionTodoComplete, projectID, todoID, func() error {
		return s.client.CompleteTodo(ctx, projectID, todoID)
	})
}

// Uncomplete reabre a tarefa
func (s *MutationService) Uncomplete(ctx context.Context, projectID, todoID int64) error {
	return s.track(ctx, logger.AuditActionTodoUncomplete, projectID, todoID, func() error {
		return s.client.UncompleteTodo(ctx, projectID, todoID)
	})
}

// Trash move a tarefa para a lixeira
func (s *MutationService) Trash(ctx context.Context, projectID, todoID int64) error {
	return s.track(ctx, logger.AuditActionTodoTrash, projectID, todoID, func() error {
		return s.client.TrashRecording(ctx, projectID, todoID)
	})
}

func (s *MutationService) track(ctx context.Context, action logger.AuditAction, projectID, todoID int64, write func() error) error {
	start := time.Now()
	err := write()
	elapsed := time.Since(start)

	s.metrics.IncrementMutation(err == nil, elapsed.Milliseconds())
	logger.AuditMutation(ctx, action, projectID, todoID, elapsed, err)

	if err != nil {
		logger.Get(ctx).Error().
			Str("action", string(action)).
			Int64("project_id", projectID).
			Int64("todo_id", todoID).
			Err(err).
			Msg("Falha ao repassar mutação")
	}
	return err
}

// validateDates accepts nil, empty (clears the date) or YYYY-MM-DD
func validateDates(dates ...*string) error {
	for _, d := range dates {
		if d == nil || *d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, *d); err != nil {
			return fmt.Errorf("%w: data %q fora do formato YYYY-MM-DD", model.ErrInvalidInput, *d)
		}
	}
	return nil
}
