package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/middleware"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/cleberrangel/basecamp-dashboard/internal/service"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProjectHandler serves the projects table, the full listing, charts and people
type ProjectHandler struct {
	projects *service.ProjectService
	excel    *service.ExcelGenerator
	metrics  *metrics.Metrics
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects *service.ProjectService, excel *service.ExcelGenerator, m *metrics.Metrics) *ProjectHandler {
	if m == nil {
		m = metrics.Get()
	}
	return &ProjectHandler{
		projects: projects,
		excel:    excel,
		metrics:  m,
	}
}

// Table responde à tabela server-side de projetos
// @Router /projects [post]
func (h *ProjectHandler) Table(c *gin.Context) {
	var req model.ProjectTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "payload inválido", err.Error())
		return
	}

	req.Email = middleware.SanitizeEmail(req.Email)
	req.Search.Value = middleware.SanitizeSearch(req.Search.Value)
	for i, v := range req.ColumnSearch {
		req.ColumnSearch[i] = middleware.SanitizeSearch(v)
	}

	resp, err := h.projects.Table(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// All retorna todos os projetos do usuário com detalhes
// @Router /projects/all [get]
func (h *ProjectHandler) All(c *gin.Context) {
	rows, err := h.projects.All(c.Request.Context(), middleware.SanitizeEmail(c.Query("email")))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Export gera a planilha com todos os projetos do usuário
// @Router /projects/export [get]
func (h *ProjectHandler) Export(c *gin.Context) {
	email := middleware.SanitizeEmail(c.Query("email"))
	rows, err := h.projects.All(c.Request.Context(), email)
	if err != nil {
		handleError(c, err)
		return
	}

	buf, err := h.excel.GenerateProjects(rows)
	h.metrics.IncrementExport(err == nil)
	if err != nil {
		handleError(c, fmt.Errorf("gerar planilha de projetos: %w", err))
		return
	}

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionExport,
		Email:    email,
		Resource: "projects",
		ClientIP: c.ClientIP(),
		Success:  true,
		Details:  map[string]interface{}{"rows": len(rows)},
	})

	sendXLSX(c, "projetos", buf, len(rows))
}

// Chart combina todos e pastas de um ou mais projetos
// @Router /chart/{projectIds} [get]
func (h *ProjectHandler) Chart(c *gin.Context) {
	ids, err := service.ParseProjectIDs(c.Param("projectIds"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.projects.Chart(c.Request.Context(), ids))
}

// People lista as pessoas de um projeto
// @Router /people/{projectId} [get]
func (h *ProjectHandler) People(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	people, err := h.projects.People(c.Request.Context(), projectID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, people)
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "parâmetro inválido", fmt.Sprintf("%s deve ser um inteiro positivo", name))
		return 0, false
	}
	return id, true
}

func sendXLSX(c *gin.Context, prefix string, buf *bytes.Buffer, rows int) {
	filename := fmt.Sprintf("%s_%s.xlsx", prefix, time.Now().Format("2006-01-02_15-04-05"))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("X-Total-Rows", strconv.Itoa(rows))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
