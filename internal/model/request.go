package model

import (
	"encoding/json"
	"strings"
)

// SearchValue is the DataTables search object. The dashboard sometimes posts a bare string.
type SearchValue struct {
	Value string `json:"value"`
	Regex bool   `json:"regex,omitempty"`
}

// UnmarshalJSON accepts either {"value": "..."} or "..."
func (s *SearchValue) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		s.Value = plain
		return nil
	}
	type alias SearchValue
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = SearchValue(obj)
	return nil
}

// ProjectTableRequest representa o payload de POST /projects
type ProjectTableRequest struct {
	Draw         int         `json:"draw"`
	Start        int         `json:"start"`
	Length       *int        `json:"length,omitempty"` // nil = 10
	Search       SearchValue `json:"search"`
	ColumnSearch []string    `json:"columnSearch"`
	Email        string      `json:"email"`
}

// PageLength returns the requested page size, defaulting to 10
func (r ProjectTableRequest) PageLength() int {
	if r.Length == nil {
		return 10
	}
	return *r.Length
}

// NormalizedEmail trims the requester email
func (r ProjectTableRequest) NormalizedEmail() string {
	return strings.TrimSpace(r.Email)
}

// TableResponse is the server-side-processing envelope
type TableResponse struct {
	Draw            int         `json:"draw"`
	RecordsTotal    int         `json:"recordsTotal"`
	RecordsFiltered int         `json:"recordsFiltered"`
	Data            interface{} `json:"data"`
}

// TodoUpdate is the editable part of a todo
type TodoUpdate struct {
	Content     string  `json:"content" binding:"required"`
	Description *string `json:"description,omitempty"`
	AssigneeIDs []int64 `json:"assignee_ids,omitempty"`
	StartsOn    *string `json:"starts_on,omitempty"`
	DueOn       *string `json:"due_on,omitempty"`
}

// TodoUpdateRequest representa o payload de atualização de uma tarefa
type TodoUpdateRequest struct {
	Todo TodoUpdate `json:"todo" binding:"required"`
}

// Response representa a resposta padrão da API
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	// Trace vai junto nas falhas 5xx para o usuário informar ao suporte
	Trace map[string]string `json:"trace,omitempty"`
}

// LogTableQuery is the decoded query string of GET /logs
type LogTableQuery struct {
	Draw       int
	Start      int
	Length     int
	Search     string
	Columns    []string
	StartDate  string
	EndDate    string
	FilterType string
}

// FilterCheckedOffHardware keeps "checked off" events about hardware installation
const FilterCheckedOffHardware = "checked_off_hardware"
