package middleware

import (
	"net/http"
	"strings"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig contém a configuração do middleware de autenticação
type AuthConfig struct {
	// TokenHash is the bcrypt hash of the API token. Empty disables the check.
	TokenHash string
}

// HashToken creates a bcrypt hash of an API token
func HashToken(token string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	return string(hashed), err
}

// CheckToken compares a token with its bcrypt hash
func CheckToken(token, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}

// BearerAuth retorna um middleware que valida o token Bearer
func BearerAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.TokenHash == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "header Authorization ausente",
			})
			return
		}

		// Extrai o token do formato "Bearer {token}"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "formato inválido, esperado: Bearer {token}",
			})
			return
		}

		if !CheckToken(SanitizeToken(parts[1]), cfg.TokenHash) {
			logger.FromGin(c).Warn().Str("client_ip", c.ClientIP()).Msg("Token de API inválido")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "token inválido",
			})
			return
		}

		c.Next()
	}
}
