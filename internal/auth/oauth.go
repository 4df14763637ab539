// Package auth implements the Basecamp (Launchpad) OAuth2 authorization-code flow
// and keeps the resulting token fresh for the upstream client.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/cache"
	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	LaunchpadAuthURL  = "https://launchpad.37signals.com/authorization/new"
	LaunchpadTokenURL = "https://launchpad.37signals.com/authorization/token"

	// stateTTL is how long a user has to finish the Launchpad consent screen
	stateTTL = 10 * time.Minute
)

var (
	ErrInvalidState = errors.New("state OAuth inválido ou expirado")
	ErrMissingCode  = errors.New("código de autorização ausente")
)

// Config configura o fluxo OAuth
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// AuthURL and TokenURL default to Launchpad
	AuthURL  string
	TokenURL string

	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Authenticator gera URLs de autorização, troca códigos e entrega um TokenSource persistente
type Authenticator struct {
	oauth      *oauth2.Config
	states     *cache.Cache[time.Time]
	store      TokenStore
	httpClient *http.Client
	source     *storeTokenSource
	metrics    *metrics.Metrics
}

// NewAuthenticator cria o autenticador sobre o store informado
func NewAuthenticator(cfg Config, store TokenStore) *Authenticator {
	if cfg.AuthURL == "" {
		cfg.AuthURL = LaunchpadAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = LaunchpadTokenURL
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Get()
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient := &http.Client{
		Timeout:   base.Timeout,
		Transport: launchpadTransport{base: transport},
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	a := &Authenticator{
		oauth:      conf,
		states:     cache.New[time.Time](stateTTL),
		store:      store,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
	}
	a.source = &storeTokenSource{
		conf:    conf,
		store:   store,
		client:  httpClient,
		metrics: cfg.Metrics,
	}
	return a
}

// AuthCodeURL registers a fresh single-use state and returns the Launchpad consent URL
func (a *Authenticator) AuthCodeURL(ctx context.Context) string {
	state := uuid.NewString()
	a.states.Set(state, time.Now())

	logger.Audit(ctx, logger.AuditEvent{
		Action:  logger.AuditActionAuthorize,
		Success: true,
	})
	return a.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("type", "web_server"))
}

// Exchange validates the state, trades the code for a token and stores it
func (a *Authenticator) Exchange(ctx context.Context, code, state string) (*oauth2.Token, error) {
	start := time.Now()

	tok, err := a.exchange(ctx, code, state)

	a.metrics.IncrementTokenExchange(err == nil)
	event := logger.AuditEvent{
		Action:   logger.AuditActionTokenGrant,
		Success:  err == nil,
		Duration: time.Since(start).Milliseconds(),
	}
	if err != nil {
		event.Action = logger.AuditActionAuthFailed
		event.Error = err.Error()
	}
	logger.Audit(ctx, event)

	return tok, err
}

func (a *Authenticator) exchange(ctx context.Context, code, state string) (*oauth2.Token, error) {
	if _, ok := a.states.Take(state); !ok || state == "" {
		return nil, ErrInvalidState
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}

	tok, err := a.oauth.Exchange(a.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("trocar código: %w", err)
	}

	if err := a.store.Save(ctx, tok); err != nil {
		return nil, fmt.Errorf("salvar token: %w", err)
	}
	a.source.set(tok)

	logger.Get(ctx).Info().
		Time("expiry", tok.Expiry).
		Bool("refreshable", tok.RefreshToken != "").
		Msg("Token do Basecamp obtido")
	return tok, nil
}

// TokenSource returns the persistent source used by the upstream client
func (a *Authenticator) TokenSource() oauth2.TokenSource {
	return a.source
}

// HasToken reports whether a token is stored
func (a *Authenticator) HasToken(ctx context.Context) (bool, error) {
	_, err := a.store.Load(ctx)
	if errors.Is(err, model.ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close stops the state cache sweeper
func (a *Authenticator) Close() {
	a.states.Stop()
}

func (a *Authenticator) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// launchpadTransport adds the "type" form field Launchpad expects next to grant_type
type launchpadTransport struct {
	base http.RoundTripper
}

func (t launchpadTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost || req.Body == nil {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}

	form, err := url.ParseQuery(string(body))
	if err == nil {
		switch form.Get("grant_type") {
		case "authorization_code":
			form.Set("type", "web_server")
		case "refresh_token":
			form.Set("type", "refresh")
		}
		body = []byte(form.Encode())
	}

	clone := req.Clone(req.Context())
	clone.Body = io.NopCloser(strings.NewReader(string(body)))
	clone.ContentLength = int64(len(body))
	clone.GetBody = nil
	return t.base.RoundTrip(clone)
}
