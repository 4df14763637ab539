package model

import "time"

// ProjectDetails is the flattened todo aggregation of one project.
// Error is set when any upstream call failed; the collections are then empty.
type ProjectDetails struct {
	AllTodos                 []Todo            `json:"allTodos"`
	TodolistCompletionCounts map[string]string `json:"todolistCompletionCounts"`
	FilteredTodos            []HandoverDates   `json:"filteredTodos"`
	FilteredHardwareContent  []HardwareDates   `json:"filteredHardwareContent"`
	Error                    string            `json:"error,omitempty"`
}

// EmptyDetails returns the zero shape with non-nil collections
func EmptyDetails() ProjectDetails {
	return ProjectDetails{
		AllTodos:                 []Todo{},
		TodolistCompletionCounts: map[string]string{},
		FilteredTodos:            []HandoverDates{},
		FilteredHardwareContent:  []HardwareDates{},
	}
}

// Failed reports whether the aggregation degraded because of an upstream error
func (d ProjectDetails) Failed() bool {
	return d.Error != ""
}

// HandoverDates captures the schedule of a handover todo
type HandoverDates struct {
	StartsOn string `json:"starts_on"`
	DueOn    string `json:"due_on"`
}

// HardwareDates captures the schedule of a completed installation/hardware todo
type HardwareDates struct {
	StartsOn  string `json:"starts_on"`
	DueOn     string `json:"due_on"`
	UpdatedAt string `json:"updated_at"`
}

// ProjectWithDetails is one dashboard row
type ProjectWithDetails struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	ProjectDetails
}

// VaultFile is a file listed under a vault node
type VaultFile struct {
	Title             string `json:"title"`
	PublicDownloadURL string `json:"publicDownloadUrl"`
	PreviewURL        string `json:"previewUrl,omitempty"`
}

// VaultNode is one folder of the vault tree. Nodes are assembled bottom-up and not mutated afterwards.
type VaultNode struct {
	ID       int64       `json:"id"`
	Title    string      `json:"title"`
	AppURL   string      `json:"app_url,omitempty"`
	Files    []VaultFile `json:"files"`
	Children []VaultNode `json:"children"`
}

// FileCount counts files in the subtree
func (n VaultNode) FileCount() int {
	total := len(n.Files)
	for _, c := range n.Children {
		total += c.FileCount()
	}
	return total
}

// ChartData is the payload of GET /chart/:projectIds
type ChartData struct {
	Todos                    []Todo            `json:"todos"`
	CompletedTodos           []Todo            `json:"completedTodos"`
	UncompletedTodos         []Todo            `json:"uncompletedTodos"`
	Folders                  []VaultNode       `json:"folders"`
	TodolistCompletionCounts map[string]string `json:"todolistCompletionCounts"`
	Errors                   []string          `json:"errors,omitempty"`
}

// ActivityLog is a progress event enriched for the logs table
type ActivityLog struct {
	ProgressEvent
	ParentTitle  string `json:"parentTitle"`
	DisplayTitle string `json:"displayTitle"`
}

// BatchProgress is pushed to websocket subscribers after each aggregation batch
type BatchProgress struct {
	Type      string    `json:"type"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Batch     int       `json:"batch"`
	Batches   int       `json:"batches"`
	Progress  float64   `json:"progress"`
	Timestamp time.Time `json:"timestamp"`
}
