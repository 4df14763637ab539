package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/handler"
	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/service"
	"github.com/cleberrangel/basecamp-dashboard/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia o servidor HTTP",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("api_url", cfg.APIURL).
		Bool("oauth", cfg.OAuthEnabled()).
		Int("batch_size", cfg.BatchSize).
		Int("max_inflight", cfg.MaxInFlight).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Msg("Basecamp dashboard iniciando")

	var origins []string
	if cfg.CORSOrigin != "" && cfg.CORSOrigin != "*" {
		origins = strings.Split(cfg.CORSOrigin, ",")
	}
	hub := websocket.NewHub(a.metrics, websocket.WithAllowedOrigins(origins...))
	go hub.Run(ctx)

	excel := service.NewExcelGenerator()
	aggregator := service.NewAggregator(a.client, a.metrics)
	projects := service.NewProjectService(a.client, aggregator, cfg.BatchSize, hub)

	gin.SetMode(cfg.GinMode)

	router := handler.NewRouter(handler.Routes{
		Auth:     handler.NewAuthHandler(a.authenticator),
		Projects: handler.NewProjectHandler(projects, excel, a.metrics),
		Todos:    handler.NewTodoHandler(service.NewMutationService(a.client, a.metrics)),
		Logs:     handler.NewLogHandler(service.NewActivityService(a.client), excel, a.metrics),
		Uploads:  handler.NewUploadHandler(service.NewUploadService(a.client, int64(cfg.UploadMaxMB)<<20, a.metrics)),
		Health:   handler.NewHealthHandler(a.tokens, a.redis, hub, a.metrics, Version),
		Hub:      hub,

		Metrics:    a.metrics,
		TokenHash:  cfg.APITokenHash,
		CORSOrigin: cfg.CORSOrigin,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Erro ao iniciar servidor")
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Encerrando servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Erro no shutdown")
		return err
	}
	return nil
}
