package handler

import (
	"net/http"

	"github.com/cleberrangel/basecamp-dashboard/internal/auth"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/gin-gonic/gin"
)

// AuthHandler conduz o fluxo OAuth2 do Launchpad
type AuthHandler struct {
	authenticator *auth.Authenticator
}

// NewAuthHandler creates a new auth handler. A nil authenticator means a static token is configured.
func NewAuthHandler(authenticator *auth.Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

func (h *AuthHandler) enabled(c *gin.Context) bool {
	if h.authenticator != nil {
		return true
	}
	c.JSON(http.StatusNotImplemented, model.ErrorResponse{
		Success: false,
		Error:   "OAuth não configurado",
		Details: "defina CLIENT_ID e CLIENT_SECRET",
	})
	return false
}

// Authorize redireciona para a tela de autorização do Launchpad
func (h *AuthHandler) Authorize(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	c.Redirect(http.StatusFound, h.authenticator.AuthCodeURL(c.Request.Context()))
}

// Callback troca o code pelo token e o persiste
func (h *AuthHandler) Callback(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	tok, err := h.authenticator.Exchange(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "Autorização concluída",
		Data: gin.H{
			"token_type": tok.TokenType,
			"expires_at": tok.Expiry,
		},
	})
}
