package handler

import (
	"net/http"

	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/cleberrangel/basecamp-dashboard/internal/service"
	"github.com/gin-gonic/gin"
)

// TodoHandler relays todo edits to Basecamp
type TodoHandler struct {
	mutations *service.MutationService
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(mutations *service.MutationService) *TodoHandler {
	return &TodoHandler{mutations: mutations}
}

// handoverDateRequest is the body of the handover date route
type handoverDateRequest struct {
	Todo struct {
		DueOn string `json:"due_on" binding:"required"`
	} `json:"todo" binding:"required"`
}

func todoParams(c *gin.Context) (projectID, todoID int64, ok bool) {
	if projectID, ok = parseID(c, "projectId"); !ok {
		return 0, 0, false
	}
	if todoID, ok = parseID(c, "todoId"); !ok {
		return 0, 0, false
	}
	return projectID, todoID, true
}

// Update altera conteúdo, datas e responsáveis de uma tarefa
// @Router /buckets/{projectId}/todos/{todoId} [post]
func (h *TodoHandler) Update(c *gin.Context) {
	projectID, todoID, ok := todoParams(c)
	if !ok {
		return
	}

	var req model.TodoUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "payload inválido", err.Error())
		return
	}

	todo, err := h.mutations.Update(c.Request.Context(), projectID, todoID, req.Todo)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "Tarefa atualizada",
		Data:    todo,
	})
}

// HandoverDate altera apenas a data de entrega, preservando os demais campos
// @Router /handdate/{projectId}/todos/{todoId} [post]
func (h *TodoHandler) HandoverDate(c *gin.Context) {
	projectID, todoID, ok := todoParams(c)
	if !ok {
		return
	}

	var req handoverDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "payload inválido", err.Error())
		return
	}

	todo, err := h.mutations.UpdateDueDate(c.Request.Context(), projectID, todoID, req.Todo.DueOn)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "Data de entrega atualizada",
		Data:    todo,
	})
}

// Trash move a tarefa para a lixeira
// @Router /buckets/{projectId}/todos/{todoId} [put]
func (h *TodoHandler) Trash(c *gin.Context) {
	projectID, todoID, ok := todoParams(c)
	if !ok {
		return
	}

	if err := h.mutations.Trash(c.Request.Context(), projectID, todoID); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "Tarefa removida",
	})
}

// Complete marca a tarefa como concluída
// @Router /completeTodo/{projectId}/{todoId} [post]
func (h *TodoHandler) Complete(c *gin.Context) {
	projectID, todoID, ok := todoParams(c)
	if !ok {
		return
	}

	if err := h.mutations.Complete(c.Request.Context(), projectID, todoID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Uncomplete reabre a tarefa
// @Router /uncompleteTodo/{projectId}/{todoId} [delete]
func (h *TodoHandler) Uncomplete(c *gin.Context) {
	projectID, todoID, ok := todoParams(c)
	if !ok {
		return
	}

	if err := h.mutations.Uncomplete(c.Request.Context(), projectID, todoID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
