package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/client"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"golang.org/x/oauth2"
)

const testAccount = "/999"

// fakeBasecamp routes "METHOD /path[?query]" to handlers and records every call.
// Paths are registered without the account prefix.
type fakeBasecamp struct {
	srv *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	calls    []string
	bodies   map[string][]byte
	projects []model.Project
}

type fakeList struct {
	ID        int64
	Title     string
	Completed []model.Todo
	Pending   []model.Todo
}

func newFakeBasecamp(t *testing.T) *fakeBasecamp {
	t.Helper()
	f := &fakeBasecamp{
		routes: map[string]http.HandlerFunc{},
		bodies: map[string][]byte{},
	}
	f.srv = httptest.NewServer(f)
	t.Cleanup(f.srv.Close)

	f.on(http.MethodGet, "/projects.json", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		list := append([]model.Project{}, f.projects...)
		f.mu.Unlock()
		writeJSON(w, list)
	})
	return f
}

func (f *fakeBasecamp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, testAccount)
	full := key
	if r.URL.RawQuery != "" {
		full += "?" + r.URL.RawQuery
	}

	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls = append(f.calls, full)
	if len(body) > 0 {
		f.bodies[key] = body
	}
	h, ok := f.routes[full]
	if !ok {
		h, ok = f.routes[key]
	}
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeBasecamp) on(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

func (f *fakeBasecamp) json(path string, v interface{}) {
	f.on(http.MethodGet, path, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, v)
	})
}

func (f *fakeBasecamp) fail(method, path string, status int) {
	f.on(method, path, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream failure", status)
	})
}

func (f *fakeBasecamp) noContent(method, path string) {
	f.on(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// url returns the absolute upstream URL of an API path
func (f *fakeBasecamp) url(path string) string {
	return f.srv.URL + testAccount + path
}

func (f *fakeBasecamp) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fakeBasecamp) called(call string) int {
	n := 0
	for _, c := range f.callLog() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeBasecamp) body(method, path string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[method+" "+path]
}

func (f *fakeBasecamp) client() *client.Client {
	return client.NewClient(client.Config{
		BaseURL:           f.srv.URL + testAccount,
		UserAgent:         "dashboard-test (qa@example.com)",
		TokenSource:       oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret"}),
		RequestsPerMinute: 600000,
		MaxInFlight:       8,
		Timeout:           5 * time.Second,
		Metrics:           metrics.New(),
	})
}

// seedProject registers the project in /projects.json, its detail endpoint and its people
func (f *fakeBasecamp) seedProject(p model.Project, emails ...string) {
	f.mu.Lock()
	f.projects = append(f.projects, p)
	f.mu.Unlock()

	people := make([]model.Person, 0, len(emails))
	for i, e := range emails {
		people = append(people, model.Person{ID: int64(i + 1), Name: e, EmailAddress: e})
	}
	f.json(fmt.Sprintf("/projects/%d.json", p.ID), p)
	f.json(fmt.Sprintf("/projects/%d/people.json", p.ID), people)
}

// seedTodoset registers the todolists of a todoset and both todo listings of each list
func (f *fakeBasecamp) seedTodoset(projectID, todosetID int64, lists ...fakeList) {
	todolists := make([]model.Todolist, 0, len(lists))
	for _, l := range lists {
		todolists = append(todolists, model.Todolist{ID: l.ID, Title: l.Title})

		completed, pending := l.Completed, l.Pending
		if completed == nil {
			completed = []model.Todo{}
		}
		if pending == nil {
			pending = []model.Todo{}
		}
		base := fmt.Sprintf("/buckets/%d/todolists/%d/todos.json", projectID, l.ID)
		f.json(base+"?completed=true", completed)
		f.json(base, pending)
	}
	f.json(fmt.Sprintf("/buckets/%d/todosets/%d/todolists.json", projectID, todosetID), todolists)
}

// seedVault registers a vault, its sub-vault listing and its uploads
func (f *fakeBasecamp) seedVault(projectID int64, v model.Vault, children []model.Vault, uploads []model.Upload) {
	if children == nil {
		children = []model.Vault{}
	}
	if uploads == nil {
		uploads = []model.Upload{}
	}
	uploadsPath := fmt.Sprintf("/buckets/%d/vaults/%d/uploads.json", projectID, v.ID)
	f.json(fmt.Sprintf("/buckets/%d/vaults/%d.json", projectID, v.ID), v)
	f.json(fmt.Sprintf("/buckets/%d/vaults/%d/vaults.json", projectID, v.ID), children)
	f.json(uploadsPath, uploads)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func dockedProject(id int64, name string, todosetID, vaultID int64) model.Project {
	p := model.Project{
		ID:        id,
		Name:      name,
		CreatedAt: time.Date(2024, 1, int(id%28)+1, 9, 0, 0, 0, time.UTC),
	}
	if todosetID != 0 {
		p.Dock = append(p.Dock, model.DockItem{ID: todosetID, Name: model.DockTodoset, Enabled: true})
	}
	if vaultID != 0 {
		p.Dock = append(p.Dock, model.DockItem{ID: vaultID, Name: model.DockVault, Enabled: true})
	}
	return p
}

// recordingNotifier collects progress messages
type recordingNotifier struct {
	mu     sync.Mutex
	emails []string
	events []model.BatchProgress
}

func (n *recordingNotifier) SendProgress(email string, progress model.BatchProgress) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
	n.events = append(n.events, progress)
}
