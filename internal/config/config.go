package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultAPIHost = "https://3.basecampapi.com"

// Config armazena as configurações da aplicação
type Config struct {
	// Basecamp
	AccountID   string
	APIURL      string
	UserAgent   string
	AccessToken string

	// OAuth2 (Launchpad)
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Token storage
	RedisURL           string
	TokenEncryptionKey string

	// Inbound
	APITokenHash string
	CORSOrigin   string
	Port         string
	GinMode      string

	// Upstream pacing
	BatchSize         int
	MaxInFlight       int
	RequestsPerMinute int
	UploadMaxMB       int

	LogLevel string
	LogJSON  bool
}

// ErrMissingAccount indica que BASECAMP_ACCOUNT_ID e BASECAMP_API_URL estão ambos vazios
var ErrMissingAccount = errors.New("BASECAMP_ACCOUNT_ID ou BASECAMP_API_URL não configurado")

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function, so tests do not touch the process env
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		AccountID:          getenv("BASECAMP_ACCOUNT_ID"),
		APIURL:             strings.TrimRight(getenv("BASECAMP_API_URL"), "/"),
		UserAgent:          getenv("BASECAMP_USER_AGENT"),
		AccessToken:        getenv("BASECAMP_ACCESS_TOKEN"),
		ClientID:           getenv("CLIENT_ID"),
		ClientSecret:       getenv("CLIENT_SECRET"),
		RedirectURI:        getenv("REDIRECT_URI"),
		RedisURL:           getenv("REDIS_URL"),
		TokenEncryptionKey: getenv("TOKEN_ENCRYPTION_KEY"),
		APITokenHash:       getenv("API_TOKEN_HASH"),
		CORSOrigin:         getenv("CORS_ORIGIN"),
		Port:               getenv("PORT"),
		GinMode:            getenv("GIN_MODE"),
		LogLevel:           getenv("LOG_LEVEL"),
	}

	var err error
	if cfg.BatchSize, err = intOr(getenv, "BATCH_SIZE", 5); err != nil {
		return nil, err
	}
	if cfg.MaxInFlight, err = intOr(getenv, "MAX_INFLIGHT", 8); err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute, err = intOr(getenv, "REQUESTS_PER_MINUTE", 2000); err != nil {
		return nil, err
	}
	if cfg.UploadMaxMB, err = intOr(getenv, "UPLOAD_MAX_MB", 25); err != nil {
		return nil, err
	}
	cfg.LogJSON = strings.EqualFold(getenv("LOG_JSON"), "true")

	// Validações obrigatórias
	if cfg.APIURL == "" {
		if cfg.AccountID == "" {
			return nil, ErrMissingAccount
		}
		cfg.APIURL = defaultAPIHost + "/" + cfg.AccountID
	}

	if cfg.AccessToken == "" && (cfg.ClientID == "" || cfg.ClientSecret == "") {
		return nil, errors.New("configure BASECAMP_ACCESS_TOKEN ou CLIENT_ID/CLIENT_SECRET")
	}

	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("BATCH_SIZE deve ser >= 1, recebido %d", cfg.BatchSize)
	}
	if cfg.MaxInFlight < 1 {
		return nil, fmt.Errorf("MAX_INFLIGHT deve ser >= 1, recebido %d", cfg.MaxInFlight)
	}

	// Defaults
	if cfg.UserAgent == "" {
		cfg.UserAgent = "basecamp-dashboard (ops@localhost)"
	}

	if cfg.Port == "" {
		cfg.Port = "3000"
	}

	if cfg.GinMode == "" {
		cfg.GinMode = "debug"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// OAuthEnabled reports whether the Launchpad flow is configured
func (c *Config) OAuthEnabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func intOr(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s inválido: %w", key, err)
	}
	return n, nil
}
