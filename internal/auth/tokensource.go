package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"golang.org/x/oauth2"
)

// storeTokenSource serves the stored token and refreshes it through Launchpad
// when it expires. The refreshed token is written back to the store.
type storeTokenSource struct {
	conf    *oauth2.Config
	store   TokenStore
	client  *http.Client
	metrics *metrics.Metrics

	mu     sync.Mutex
	cached *oauth2.Token
}

func (s *storeTokenSource) set(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = tok
}

// Token implements oauth2.TokenSource
func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached.Valid() {
		return s.cached, nil
	}

	ctx := context.Background()
	tok, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if tok.Valid() {
		s.cached = tok
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("token expirado sem refresh token: %w", model.ErrUnauthorized)
	}

	fresh, err := s.conf.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, s.client), tok).Token()
	s.metrics.IncrementTokenRefresh(err == nil)
	if err != nil {
		logger.Audit(ctx, logger.AuditEvent{
			Action:  logger.AuditActionAuthFailed,
			Details: map[string]interface{}{"stage": "refresh"},
			Error:   err.Error(),
		})
		return nil, fmt.Errorf("renovar token: %w: %v", model.ErrUnauthorized, err)
	}

	if err := s.store.Save(ctx, fresh); err != nil {
		// o token novo ainda serve nesta instância
		logger.Get(ctx).Error().Err(err).Msg("Falha ao salvar token renovado")
	}
	logger.Audit(ctx, logger.AuditEvent{Action: logger.AuditActionTokenRefresh, Success: true})

	s.cached = fresh
	return fresh, nil
}
