package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/auth"
	"github.com/cleberrangel/basecamp-dashboard/internal/client"
	"github.com/cleberrangel/basecamp-dashboard/internal/config"
	"github.com/cleberrangel/basecamp-dashboard/internal/handler"
	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// app holds the collaborators shared by the commands
type app struct {
	cfg           *config.Config
	metrics       *metrics.Metrics
	client        *client.Client
	authenticator *auth.Authenticator
	redis         *redis.Client
	tokens        handler.TokenChecker
}

// newApp carrega a configuração e monta o cliente do Basecamp
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("carregar configurações: %w", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogJSON)

	a := &app{
		cfg:     cfg,
		metrics: metrics.New(),
	}

	var source oauth2.TokenSource
	if cfg.OAuthEnabled() {
		store, err := a.tokenStore(ctx)
		if err != nil {
			return nil, err
		}
		a.authenticator = auth.NewAuthenticator(auth.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURI:  cfg.RedirectURI,
			Metrics:      a.metrics,
		}, store)
		source = a.authenticator.TokenSource()
		a.tokens = a.authenticator
	} else {
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
		a.tokens = handler.TokenCheckerFunc(func(context.Context) (bool, error) { return true, nil })
	}

	a.client = client.NewClient(client.Config{
		BaseURL:           cfg.APIURL,
		UserAgent:         cfg.UserAgent,
		TokenSource:       source,
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxInFlight:       cfg.MaxInFlight,
		Timeout:           30 * time.Second,
		Metrics:           a.metrics,
	})

	return a, nil
}

func (a *app) tokenStore(ctx context.Context) (auth.TokenStore, error) {
	log := logger.Get(ctx)
	if a.cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL não configurado, token OAuth ficará apenas em memória")
		return auth.NewMemoryStore(), nil
	}

	rdb, err := auth.OpenRedis(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if a.cfg.TokenEncryptionKey == "" {
		log.Warn().Msg("TOKEN_ENCRYPTION_KEY vazio, usando chave padrão")
	}
	a.redis = rdb
	log.Info().Msg("Token OAuth armazenado no Redis")
	return auth.NewRedisStore(rdb, a.cfg.TokenEncryptionKey), nil
}

func (a *app) close() {
	if a.authenticator != nil {
		a.authenticator.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
