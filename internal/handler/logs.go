package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/middleware"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/cleberrangel/basecamp-dashboard/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	defaultLogLength = 10
	maxLogColumns    = 32
)

// LogHandler serves the activity log table and its export
type LogHandler struct {
	activity *service.ActivityService
	excel    *service.ExcelGenerator
	metrics  *metrics.Metrics
}

// NewLogHandler creates a new log handler
func NewLogHandler(activity *service.ActivityService, excel *service.ExcelGenerator, m *metrics.Metrics) *LogHandler {
	if m == nil {
		m = metrics.Get()
	}
	return &LogHandler{
		activity: activity,
		excel:    excel,
		metrics:  m,
	}
}

// parseLogQuery lê os parâmetros no formato do DataTables
func parseLogQuery(c *gin.Context) (model.LogTableQuery, error) {
	q := model.LogTableQuery{
		Length:     defaultLogLength,
		Search:     middleware.SanitizeSearch(c.Query("search[value]")),
		StartDate:  strings.TrimSpace(c.Query("startDate")),
		EndDate:    strings.TrimSpace(c.Query("endDate")),
		FilterType: strings.TrimSpace(c.Query("filterType")),
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"draw", &q.Draw},
		{"start", &q.Start},
		{"length", &q.Length},
	}
	for _, p := range ints {
		raw := strings.TrimSpace(c.Query(p.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("%w: %s=%q", model.ErrInvalidInput, p.key, raw)
		}
		*p.dst = n
	}

	for i := 0; i < maxLogColumns; i++ {
		v, ok := c.GetQuery(fmt.Sprintf("columns[%d][search][value]", i))
		if !ok {
			break
		}
		q.Columns = append(q.Columns, middleware.SanitizeSearch(v))
	}

	return q, nil
}

// List responde à tabela de logs de atividade
// @Router /logs [get]
func (h *LogHandler) List(c *gin.Context) {
	q, err := parseLogQuery(c)
	if err != nil {
		handleError(c, err)
		return
	}

	logs, err := h.activity.FetchLogs(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, service.LogTable(logs, q))
}

// Export gera a planilha com os logs filtrados, sem paginação
// @Router /logs/export [get]
func (h *LogHandler) Export(c *gin.Context) {
	q, err := parseLogQuery(c)
	if err != nil {
		handleError(c, err)
		return
	}

	logs, err := h.activity.FetchLogs(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	filtered := service.FilterLogs(logs, q)

	buf, err := h.excel.GenerateLogs(filtered)
	h.metrics.IncrementExport(err == nil)
	if err != nil {
		handleError(c, fmt.Errorf("gerar planilha de logs: %w", err))
		return
	}

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionExport,
		Resource: "logs",
		ClientIP: c.ClientIP(),
		Success:  true,
		Details:  map[string]interface{}{"rows": len(filtered)},
	})

	sendXLSX(c, "logs", buf, len(filtered))
}
