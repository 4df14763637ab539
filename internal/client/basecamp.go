package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxInFlight limita requisições simultâneas ao Basecamp
	DefaultMaxInFlight = 8

	// DefaultRequestsPerMinute fica bem abaixo do limite do Basecamp (50 req / 10s por IP)
	DefaultRequestsPerMinute = 2000

	// DefaultTimeout timeout padrão para requisições
	DefaultTimeout = 60 * time.Second

	maxErrorBody = 512
)

// Config is everything the client needs; there are no package-level settings
type Config struct {
	BaseURL           string
	UserAgent         string
	TokenSource       oauth2.TokenSource
	RequestsPerMinute int
	MaxInFlight       int
	Timeout           time.Duration
	HTTPClient        *http.Client
	Metrics           *metrics.Metrics
}

// Client é o cliente HTTP para a API do Basecamp 3
type Client struct {
	baseURL    string
	userAgent  string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	inflight   *semaphore.Weighted
	metrics    *metrics.Metrics
}

// NewClient cria um novo cliente Basecamp
func NewClient(cfg Config) *Client {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Get()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.MaxInFlight * 2,
				MaxIdleConnsPerHost: cfg.MaxInFlight * 2,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		tokens:     cfg.TokenSource,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 50),
		inflight:   semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		metrics:    cfg.Metrics,
	}
}

// response is a fully read upstream reply. Reading inside the exchange keeps the
// in-flight slot bounded to a single HTTP round trip.
type response struct {
	status int
	header http.Header
	body   []byte
}

// resolve turns an API path into an absolute URL. Absolute URLs (Link headers,
// uploads_url, parent.url) are used as given.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

// exchange executa uma requisição HTTP para a API do Basecamp
func (c *Client) exchange(ctx context.Context, method, path string, body []byte, contentType string) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("aguardar slot: %w", err)
	}
	defer c.inflight.Release(1)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	target := c.resolve(path)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("criar request: %w", err)
	}

	if c.tokens == nil {
		return nil, model.ErrNoToken
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("obter token: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	c.metrics.UpstreamStarted()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.UpstreamFinished(false, false, time.Since(start).Milliseconds())
		if ctx.Err() != nil || isTimeout(err) {
			return nil, fmt.Errorf("%s %s: %w", method, target, model.ErrTimeout)
		}
		return nil, fmt.Errorf("executar request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	ok := err == nil && resp.StatusCode < 300
	c.metrics.UpstreamFinished(ok, resp.StatusCode == http.StatusTooManyRequests, time.Since(start).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("ler resposta: %w", err)
	}

	logger.Get(ctx).Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Basecamp request")

	if err := statusError(resp.StatusCode, data); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// statusError mapeia status HTTP para os erros sentinela
func statusError(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return model.ErrRateLimited
	case status == http.StatusUnauthorized:
		return model.ErrUnauthorized
	case status == http.StatusForbidden:
		return model.ErrForbidden
	case status == http.StatusNotFound:
		return model.ErrNotFound
	default:
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return fmt.Errorf("status %d: %s", status, string(body))
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// getJSON faz GET e decodifica o corpo em out
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.exchange(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode response: %w: %v", model.ErrInvalidResponse, err)
	}
	return nil
}

// sendJSON envia in como JSON e, se out não for nil, decodifica a resposta
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	contentType := ""
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		contentType = "application/json; charset=utf-8"
	}

	resp, err := c.exchange(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode response: %w: %v", model.ErrInvalidResponse, err)
	}
	return nil
}

// ListProjects busca todos os projetos visíveis para o token
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	projects, err := walk[model.Project](ctx, c, "/projects.json")
	if err != nil {
		return projects, fmt.Errorf("buscar projetos: %w", err)
	}
	return projects, nil
}

// GetProject busca um projeto com seu dock
func (c *Client) GetProject(ctx context.Context, projectID int64) (model.Project, error) {
	var project model.Project
	if err := c.getJSON(ctx, fmt.Sprintf("/projects/%d.json", projectID), &project); err != nil {
		return model.Project{}, fmt.Errorf("buscar projeto %d: %w", projectID, err)
	}
	return project, nil
}

// ListPeople busca as pessoas com acesso a um projeto
func (c *Client) ListPeople(ctx context.Context, projectID int64) ([]model.Person, error) {
	people, err := walk[model.Person](ctx, c, fmt.Sprintf("/projects/%d/people.json", projectID))
	if err != nil {
		return people, fmt.Errorf("buscar pessoas do projeto %d: %w", projectID, err)
	}
	return people, nil
}

// ListTodolists busca as listas de um todoset
func (c *Client) ListTodolists(ctx context.Context, projectID, todosetID int64) ([]model.Todolist, error) {
	path := fmt.Sprintf("/buckets/%d/todosets/%d/todolists.json", projectID, todosetID)
	lists, err := walk[model.Todolist](ctx, c, path)
	if err != nil {
		return lists, fmt.Errorf("buscar todolists do todoset %d: %w", todosetID, err)
	}
	return lists, nil
}

// ListTodos busca as tarefas de uma lista. Basecamp only lists pending todos unless completed=true.
func (c *Client) ListTodos(ctx context.Context, projectID, todolistID int64, completed bool) ([]model.Todo, error) {
	path := fmt.Sprintf("/buckets/%d/todolists/%d/todos.json", projectID, todolistID)
	if completed {
		path += "?completed=true"
	}
	todos, err := walk[model.Todo](ctx, c, path)
	if err != nil {
		return todos, fmt.Errorf("buscar todos da lista %d (completed=%t): %w", todolistID, completed, err)
	}
	return todos, nil
}

// GetTodo busca uma tarefa
func (c *Client) GetTodo(ctx context.Context, projectID, todoID int64) (model.Todo, error) {
	return c.GetTodoAt(ctx, fmt.Sprintf("/buckets/%d/todos/%d.json", projectID, todoID))
}

// GetTodoAt busca uma tarefa pela URL absoluta
func (c *Client) GetTodoAt(ctx context.Context, todoURL string) (model.Todo, error) {
	var todo model.Todo
	if err := c.getJSON(ctx, todoURL, &todo); err != nil {
		return model.Todo{}, fmt.Errorf("buscar todo: %w", err)
	}
	return todo, nil
}

// GetRecordingTitle reads only the title of any recording (todolist, vault, ...)
func (c *Client) GetRecordingTitle(ctx context.Context, recordingURL string) (string, error) {
	var rec struct {
		Title string `json:"title"`
	}
	if err := c.getJSON(ctx, recordingURL, &rec); err != nil {
		return "", fmt.Errorf("buscar recording: %w", err)
	}
	return rec.Title, nil
}

// GetVault busca um vault (pasta de documentos)
func (c *Client) GetVault(ctx context.Context, projectID, vaultID int64) (model.Vault, error) {
	var vault model.Vault
	if err := c.getJSON(ctx, fmt.Sprintf("/buckets/%d/vaults/%d.json", projectID, vaultID), &vault); err != nil {
		return model.Vault{}, fmt.Errorf("buscar vault %d: %w", vaultID, err)
	}
	return vault, nil
}

// ListVaults busca os vaults filhos de um vault
func (c *Client) ListVaults(ctx context.Context, projectID, vaultID int64) ([]model.Vault, error) {
	vaults, err := walk[model.Vault](ctx, c, fmt.Sprintf("/buckets/%d/vaults/%d/vaults.json", projectID, vaultID))
	if err != nil {
		return vaults, fmt.Errorf("buscar vaults filhos de %d: %w", vaultID, err)
	}
	return vaults, nil
}

// ListUploads busca os arquivos de um vault a partir do uploads_url
func (c *Client) ListUploads(ctx context.Context, uploadsURL string) ([]model.Upload, error) {
	uploads, err := walk[model.Upload](ctx, c, uploadsURL)
	if err != nil {
		return uploads, fmt.Errorf("buscar uploads: %w", err)
	}
	return uploads, nil
}

// ListProgress busca uma página do relatório de atividades
func (c *Client) ListProgress(ctx context.Context, page int) ([]model.ProgressEvent, error) {
	var events []model.ProgressEvent
	if err := c.getJSON(ctx, fmt.Sprintf("/reports/progress.json?page=%d", page), &events); err != nil {
		return nil, fmt.Errorf("buscar progresso página %d: %w", page, err)
	}
	return events, nil
}

// UpdateTodo substitui os campos editáveis de uma tarefa
func (c *Client) UpdateTodo(ctx context.Context, projectID, todoID int64, update model.TodoUpdate) (model.Todo, error) {
	var todo model.Todo
	path := fmt.Sprintf("/buckets/%d/todos/%d.json", projectID, todoID)
	if err := c.sendJSON(ctx, http.MethodPut, path, update, &todo); err != nil {
		return model.Todo{}, fmt.Errorf("atualizar todo %d: %w", todoID, err)
	}
	return todo, nil
}

// CompleteTodo marca uma tarefa como concluída
func (c *Client) CompleteTodo(ctx context.Context, projectID, todoID int64) error {
	path := fmt.Sprintf("/buckets/%d/todos/%d/completion.json", projectID, todoID)
	if err := c.sendJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("concluir todo %d: %w", todoID, err)
	}
	return nil
}

// UncompleteTodo reabre uma tarefa concluída
func (c *Client) UncompleteTodo(ctx context.Context, projectID, todoID int64) error {
	path := fmt.Sprintf("/buckets/%d/todos/%d/completion.json", projectID, todoID)
	if err := c.sendJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("reabrir todo %d: %w", todoID, err)
	}
	return nil
}

// TrashRecording move uma recording (todo) para a lixeira
func (c *Client) TrashRecording(ctx context.Context, projectID, recordingID int64) error {
	path := fmt.Sprintf("/buckets/%d/recordings/%d/status/trashed.json", projectID, recordingID)
	if err := c.sendJSON(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("mover recording %d para lixeira: %w", recordingID, err)
	}
	return nil
}

// CreateAttachment envia os bytes de um arquivo e devolve o attachable_sgid
func (c *Client) CreateAttachment(ctx context.Context, name, contentType string, data []byte) (model.Attachment, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := c.exchange(ctx, http.MethodPost, "/attachments.json?name="+url.QueryEscape(name), data, contentType)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("criar attachment: %w", err)
	}
	var att model.Attachment
	if err := json.Unmarshal(resp.body, &att); err != nil || att.AttachableSGID == "" {
		return model.Attachment{}, fmt.Errorf("criar attachment: %w", model.ErrInvalidResponse)
	}
	return att, nil
}

// NewUpload is the body of POST /buckets/:p/vaults/:v/uploads.json
type NewUpload struct {
	AttachableSGID string `json:"attachable_sgid"`
	Description    string `json:"description,omitempty"`
	BaseName       string `json:"base_name,omitempty"`
}

// CreateUpload cria um upload no vault a partir de um attachment
func (c *Client) CreateUpload(ctx context.Context, projectID, vaultID int64, upload NewUpload) (model.Upload, error) {
	var created model.Upload
	path := fmt.Sprintf("/buckets/%d/vaults/%d/uploads.json", projectID, vaultID)
	if err := c.sendJSON(ctx, http.MethodPost, path, upload, &created); err != nil {
		return model.Upload{}, fmt.Errorf("criar upload no vault %d: %w", vaultID, err)
	}
	return created, nil
}
