package model

import "time"

// Project representa um projeto do Basecamp (bucket)
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AppURL      string     `json:"app_url,omitempty"`
	URL         string     `json:"url,omitempty"`
	Dock        []DockItem `json:"dock,omitempty"`
}

// DockItem is one named sub-resource pointer attached to a project
type DockItem struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	AppURL  string `json:"app_url"`
	Enabled bool   `json:"enabled"`
}

// Dock names used by the aggregator
const (
	DockTodoset = "todoset"
	DockVault   = "vault"
)

// DockByName returns every dock entry with the given name
func (p Project) DockByName(name string) []DockItem {
	items := make([]DockItem, 0, 1)
	for _, d := range p.Dock {
		if d.Name == name {
			items = append(items, d)
		}
	}
	return items
}

// Person representa uma pessoa com acesso ao projeto
type Person struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	Title        string `json:"title,omitempty"`
	Admin        bool   `json:"admin,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
}

// Todolist representa uma lista de tarefas dentro de um todoset
type Todolist struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Name           string `json:"name,omitempty"`
	Completed      bool   `json:"completed"`
	CompletedRatio string `json:"completed_ratio,omitempty"`
	TodosURL       string `json:"todos_url"`
	URL            string `json:"url"`
	AppURL         string `json:"app_url"`
}

// Todo representa uma tarefa do Basecamp
type Todo struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status,omitempty"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	StartsOn    string    `json:"starts_on,omitempty"`
	DueOn       string    `json:"due_on,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Assignees   []Person  `json:"assignees,omitempty"`
	Creator     *Person   `json:"creator,omitempty"`
	Parent      *Parent   `json:"parent,omitempty"`
	Bucket      *Bucket   `json:"bucket,omitempty"`
	URL         string    `json:"url,omitempty"`
	AppURL      string    `json:"app_url,omitempty"`
}

// Parent is the weak back-reference a recording carries to its container
type Parent struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Type   string `json:"type"`
	URL    string `json:"url"`
	AppURL string `json:"app_url"`
}

// Bucket is the project reference embedded in recordings and events
type Bucket struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Vault representa uma pasta de documentos do Basecamp
type Vault struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	AppURL       string  `json:"app_url"`
	UploadsURL   string  `json:"uploads_url"`
	VaultsURL    string  `json:"vaults_url"`
	UploadsCount int     `json:"uploads_count"`
	VaultsCount  int     `json:"vaults_count"`
	DocumentsURL string  `json:"documents_url,omitempty"`
	Parent       *Parent `json:"parent,omitempty"`
}

// Upload representa um arquivo armazenado em um vault
type Upload struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ByteSize    int64  `json:"byte_size"`
	DownloadURL string `json:"download_url"`
	PreviewURL  string `json:"preview_url,omitempty"`
	AppURL      string `json:"app_url"`
}

// Attachment is the response of POST /attachments.json
type Attachment struct {
	AttachableSGID string `json:"attachable_sgid"`
}

// ProgressEvent is one entry of /reports/progress.json
type ProgressEvent struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Target         string    `json:"target"`
	SummaryExcerpt string    `json:"summary_excerpt"`
	Action         string    `json:"action,omitempty"`
	RecordingID    int64     `json:"recording_id,omitempty"`
	AppURL         string    `json:"app_url"`
	URL            string    `json:"url,omitempty"`
	Bucket         Bucket    `json:"bucket"`
	Creator        Person    `json:"creator"`
}
