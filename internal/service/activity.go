package service

import (
	"context"
	"strings"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/client"
	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/cleberrangel/basecamp-dashboard/internal/table"
	"golang.org/x/sync/errgroup"
)

const (
	// progressPages é quantas páginas do relatório de progresso são lidas
	progressPages = 10

	enrichConcurrency = 5

	parentMissing = "Parent URL Missing"
	parentError   = "Error fetching parent title"
	parentNoTitle = "No Title Available"
)

var (
	activityKeywords = []string{"critical", "pre-requisites", "installation", "handover", "commissioning"}

	// order matters: the first phrase found wins
	displayPhrases = []string{"added", "changed", "commented", "started", "checked off", "reposted", "moved", "replaced"}
)

// ActivityService lê o relatório de progresso e prepara os logs da tabela
type ActivityService struct {
	client *client.Client
}

// NewActivityService cria um novo serviço de atividades
func NewActivityService(c *client.Client) *ActivityService {
	return &ActivityService{client: c}
}

// FetchLogs reads up to ten progress pages, keeps todo events about the tracked
// phases and resolves each event's parent (todolist) title.
func (s *ActivityService) FetchLogs(ctx context.Context) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog

	for page := 1; page <= progressPages; page++ {
		events, err := s.client.ListProgress(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			logger.Get(ctx).Warn().Int("page", page).Err(err).Msg("Falha ao ler relatório de progresso, interrompendo")
			break
		}
		if len(events) == 0 {
			break
		}

		kept := make([]model.ActivityLog, 0, len(events))
		for _, ev := range events {
			if isTrackedEvent(ev) {
				kept = append(kept, model.ActivityLog{ProgressEvent: ev, DisplayTitle: DisplayTitle(ev.Title)})
			}
		}

		s.resolveParents(ctx, kept)
		logs = append(logs, kept...)

		logger.Get(ctx).Debug().
			Int("page", page).
			Int("events", len(events)).
			Int("kept", len(kept)).
			Msg("Página de progresso processada")
	}

	if logs == nil {
		logs = []model.ActivityLog{}
	}
	return logs, nil
}

func isTrackedEvent(ev model.ProgressEvent) bool {
	if !strings.Contains(ev.AppURL, "/todos/") {
		return false
	}
	return containsAny(strings.ToLower(ev.Target), activityKeywords)
}

// resolveParents fills ParentTitle in place; each goroutine owns one index
func (s *ActivityService) resolveParents(ctx context.Context, logs []model.ActivityLog) {
	var g errgroup.Group
	g.SetLimit(enrichConcurrency)

	for i := range logs {
		i := i
		g.Go(func() error {
			logs[i].ParentTitle = s.parentTitle(ctx, logs[i].ProgressEvent)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *ActivityService) parentTitle(ctx context.Context, ev model.ProgressEvent) string {
	todo, err := s.client.GetTodoAt(ctx, todoURL(ev))
	if err != nil {
		logger.Get(ctx).Warn().Int64("event_id", ev.ID).Err(err).Msg("Falha ao buscar todo do evento")
		return parentError
	}
	if todo.Parent == nil || todo.Parent.URL == "" {
		return parentMissing
	}

	title, err := s.client.GetRecordingTitle(ctx, todo.Parent.URL)
	if err != nil {
		logger.Get(ctx).Warn().Int64("event_id", ev.ID).Err(err).Msg("Falha ao buscar parent do todo")
		return parentError
	}
	if title == "" {
		return parentNoTitle
	}
	return title
}

// todoURL prefers the API url of the recording and falls back to app_url + ".json"
func todoURL(ev model.ProgressEvent) string {
	if ev.URL != "" {
		return ev.URL
	}
	return strings.TrimSuffix(ev.AppURL, "/") + ".json"
}

// DisplayTitle returns the first known action phrase found in title, else title
func DisplayTitle(title string) string {
	lower := strings.ToLower(title)
	for _, phrase := range displayPhrases {
		if strings.Contains(lower, phrase) {
			return phrase
		}
	}
	return title
}

// logColumns by position: bucket, creator, created date, display title, parent title, target, excerpt
var logColumns = []table.Column[model.ActivityLog]{
	table.Field(func(l model.ActivityLog) string { return l.Bucket.Name }),
	table.Field(func(l model.ActivityLog) string { return l.Creator.Name }),
	table.Field(func(l model.ActivityLog) string { return l.CreatedAt.Format(dateLayout) }),
	table.Field(func(l model.ActivityLog) string { return l.DisplayTitle }),
	table.Field(func(l model.ActivityLog) string { return l.ParentTitle }),
	table.Field(func(l model.ActivityLog) string { return l.Target }),
	table.Field(func(l model.ActivityLog) string { return l.SummaryExcerpt }),
}

// FilterLogs applies date range, filter type, column and global predicates
func FilterLogs(logs []model.ActivityLog, q model.LogTableQuery) []model.ActivityLog {
	return table.Apply(logs,
		dateRange(q.StartDate, q.EndDate),
		filterType(q.FilterType),
		table.ByColumns(logColumns, q.Columns),
		table.Global(q.Search,
			func(l model.ActivityLog) string { return l.Title },
			func(l model.ActivityLog) string { return l.Creator.Name },
			func(l model.ActivityLog) string { return l.Bucket.Name },
			func(l model.ActivityLog) string { return l.ParentTitle },
			func(l model.ActivityLog) string { return l.Target },
			func(l model.ActivityLog) string { return l.SummaryExcerpt },
			func(l model.ActivityLog) string { return l.DisplayTitle },
		),
	)
}

// LogTable builds the envelope; recordsTotal counts logs before any filter
func LogTable(logs []model.ActivityLog, q model.LogTableQuery) model.TableResponse {
	return table.Respond(q.Draw, len(logs), FilterLogs(logs, q), q.Start, q.Length)
}

// dateRange is inclusive on both ends; a date-only end covers the whole day
func dateRange(start, end string) table.Filter[model.ActivityLog] {
	from, okFrom := parseDay(start)
	to, okTo := parseDay(end)
	if !okFrom && !okTo {
		return nil
	}
	if okTo && len(strings.TrimSpace(end)) == len(dateLayout) {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	return func(l model.ActivityLog) bool {
		if okFrom && l.CreatedAt.Before(from) {
			return false
		}
		if okTo && l.CreatedAt.After(to) {
			return false
		}
		return true
	}
}

func parseDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func filterType(kind string) table.Filter[model.ActivityLog] {
	if kind != model.FilterCheckedOffHardware {
		return nil
	}
	return func(l model.ActivityLog) bool {
		title := strings.ToLower(l.Title)
		if !strings.Contains(title, "checked off") {
			return false
		}
		return strings.Contains(title, "hardware installation") ||
			strings.Contains(strings.ToLower(l.SummaryExcerpt), "hardware installation")
	}
}
