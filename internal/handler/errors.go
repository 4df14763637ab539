package handler

import (
	"errors"
	"net/http"

	"github.com/cleberrangel/basecamp-dashboard/internal/auth"
	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/cleberrangel/basecamp-dashboard/internal/service"
	"github.com/gin-gonic/gin"
)

// statusFor maps sentinel errors to HTTP status codes
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrEmailRequired):
		return http.StatusBadRequest, "email é obrigatório"
	case errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, auth.ErrInvalidState),
		errors.Is(err, auth.ErrMissingCode):
		return http.StatusBadRequest, "requisição inválida"
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "arquivo muito grande"
	case errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrNoToken):
		return http.StatusUnauthorized, "token do Basecamp inválido ou ausente"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "acesso negado pelo Basecamp"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "recurso não encontrado"
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limit excedido"
	case errors.Is(err, model.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout na requisição"
	default:
		return http.StatusBadGateway, "erro ao consultar o Basecamp"
	}
}

// handleError trata erros e retorna resposta apropriada
func handleError(c *gin.Context, err error) {
	status, message := statusFor(err)

	resp := model.ErrorResponse{
		Success: false,
		Error:   message,
		Details: err.Error(),
	}

	log := logger.FromGin(c)
	if status >= http.StatusInternalServerError {
		resp.Trace = logger.TraceContext(c.Request.Context())
		log.Error().Err(err).Int("status", status).Msg("Erro na requisição")
	} else {
		log.Warn().Err(err).Int("status", status).Msg("Requisição rejeitada")
	}

	c.JSON(status, resp)
}

func badRequest(c *gin.Context, message, details string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Error:   message,
		Details: details,
	})
}
