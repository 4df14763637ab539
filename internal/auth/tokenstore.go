package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// DefaultTokenKey is the Redis key holding the encrypted Basecamp token
const DefaultTokenKey = "basecamp:oauth:token"

// TokenStore persiste o token OAuth do Basecamp. Load returns model.ErrNoToken
// when nothing was stored yet.
type TokenStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, tok *oauth2.Token) error
	Delete(ctx context.Context) error
}

// MemoryStore keeps the token in process; it is lost on restart
type MemoryStore struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

// NewMemoryStore cria um store em memória
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored token
func (s *MemoryStore) Load(ctx context.Context) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tok == nil {
		return nil, model.ErrNoToken
	}
	cp := *s.tok
	return &cp, nil
}

// Save replaces the stored token
func (s *MemoryStore) Save(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("token nulo")
	}
	cp := *tok

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = &cp
	return nil
}

// Delete removes the stored token
func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = nil
	return nil
}

// storedToken is the JSON shape encrypted at rest
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// RedisStore keeps the token encrypted in Redis so it survives restarts and is shared across replicas
type RedisStore struct {
	client *redis.Client
	key    string
	cipher *tokenCipher
}

// OpenRedis parses the URL and checks the connection
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a store from an existing Redis client
func NewRedisStore(client *redis.Client, encryptionKey string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    DefaultTokenKey,
		cipher: newTokenCipher(encryptionKey),
	}
}

// Load reads and decrypts the token
func (s *RedisStore) Load(ctx context.Context) (*oauth2.Token, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	plain, err := s.cipher.decrypt(raw)
	if err != nil {
		return nil, err
	}

	var st storedToken
	if err := json.Unmarshal(plain, &st); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
		Expiry:       st.Expiry,
	}, nil
}

// Save encrypts and stores the token without expiration; the refresh token outlives the access token
func (s *RedisStore) Save(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("token nulo")
	}

	plain, err := json.Marshal(storedToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	sealed, err := s.cipher.encrypt(plain)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}

	if err := s.client.Set(ctx, s.key, sealed, 0).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Delete removes the token
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Client exposes the Redis client for health checks
func (s *RedisStore) Client() *redis.Client {
	return s.client
}
