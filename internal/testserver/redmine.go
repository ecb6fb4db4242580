package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ganot/dailylog/internal/tracking"
	"github.com/go-chi/chi/v5"
)

// FakeIssue is an issue created through the fake Redmine.
type FakeIssue struct {
	ID           int
	ProjectID    int
	Subject      string
	AssignedToID int
	StartDate    string
	DueDate      string
}

// FakeTimeEntry is a time entry created through the fake Redmine.
type FakeTimeEntry struct {
	ID         int
	IssueID    int
	UserID     int
	Hours      float64
	ActivityID int
	SpentOn    string
	Comments   string
}

// FakeRedmine is an in-memory Redmine REST API covering the endpoints the
// redmine client uses. Unknown API keys get 401.
type FakeRedmine struct {
	Server *httptest.Server

	mu          sync.Mutex
	users       map[string]tracking.User
	projects    []tracking.Project
	activities  []tracking.Activity
	issues      []FakeIssue
	timeEntries []FakeTimeEntry
	failIssues  bool
	nextID      int
}

// NewFakeRedmine starts a fake Redmine with a single "core" project (#7)
// and Design/Meeting activities. It is closed on test cleanup.
func NewFakeRedmine(t *testing.T) *FakeRedmine {
	t.Helper()
	f := &FakeRedmine{
		users:      make(map[string]tracking.User),
		projects:   []tracking.Project{{ID: 7, Identifier: "core", Name: "Core Platform"}},
		activities: []tracking.Activity{{ID: 8, Name: "Design"}, {ID: 9, Name: "Meeting"}},
		nextID:     500,
	}

	r := chi.NewRouter()
	r.Get("/users/current.json", f.handleCurrentUser)
	r.Get("/projects.json", f.handleProjects)
	r.Get("/projects/{file}", f.handleProject)
	r.Post("/issues.json", f.handleCreateIssue)
	r.Get("/enumerations/time_entry_activities.json", f.handleActivities)
	r.Post("/time_entries.json", f.handleCreateTimeEntry)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the fake's base URL.
func (f *FakeRedmine) URL() string {
	return f.Server.URL
}

// AddUser makes apiKey valid for a user with the given id and login.
func (f *FakeRedmine) AddUser(apiKey string, id int, login string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[apiKey] = tracking.User{ID: id, Login: login}
}

// FailIssues makes issue creation return 422.
func (f *FakeRedmine) FailIssues(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failIssues = fail
}

// Issues returns a copy of the created issues.
func (f *FakeRedmine) Issues() []FakeIssue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeIssue(nil), f.issues...)
}

// TimeEntries returns a copy of the created time entries.
func (f *FakeRedmine) TimeEntries() []FakeTimeEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeTimeEntry(nil), f.timeEntries...)
}

func (f *FakeRedmine) authenticate(w http.ResponseWriter, r *http.Request) (tracking.User, bool) {
	f.mu.Lock()
	user, ok := f.users[r.Header.Get("X-Redmine-API-Key")]
	f.mu.Unlock()
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return user, ok
}

func (f *FakeRedmine) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := f.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (f *FakeRedmine) handleProjects(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authenticate(w, r); !ok {
		return
	}
	f.mu.Lock()
	projects := append([]tracking.Project(nil), f.projects...)
	f.mu.Unlock()
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset > len(projects) {
		offset = len(projects)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects":    projects[offset:],
		"total_count": len(projects),
	})
}

func (f *FakeRedmine) handleProject(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authenticate(w, r); !ok {
		return
	}
	id, err := strconv.Atoi(strings.TrimSuffix(chi.URLParam(r, "file"), ".json"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"project": p})
			return
		}
	}
	http.NotFound(w, r)
}

func (f *FakeRedmine) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authenticate(w, r); !ok {
		return
	}
	var body struct {
		Issue struct {
			ProjectID    int    `json:"project_id"`
			Subject      string `json:"subject"`
			AssignedToID int    `json:"assigned_to_id"`
			StartDate    string `json:"start_date"`
			DueDate      string `json:"due_date"`
		} `json:"issue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIssues {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []string{"Subject cannot be blank"}})
		return
	}
	f.nextID++
	issue := FakeIssue{
		ID:           f.nextID,
		ProjectID:    body.Issue.ProjectID,
		Subject:      body.Issue.Subject,
		AssignedToID: body.Issue.AssignedToID,
		StartDate:    body.Issue.StartDate,
		DueDate:      body.Issue.DueDate,
	}
	f.issues = append(f.issues, issue)
	writeJSON(w, http.StatusCreated, map[string]any{"issue": map[string]any{"id": issue.ID, "subject": issue.Subject}})
}

func (f *FakeRedmine) handleActivities(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authenticate(w, r); !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"time_entry_activities": f.activities})
}

func (f *FakeRedmine) handleCreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := f.authenticate(w, r)
	if !ok {
		return
	}
	var body struct {
		TimeEntry struct {
			IssueID    int     `json:"issue_id"`
			SpentOn    string  `json:"spent_on"`
			Hours      float64 `json:"hours"`
			ActivityID int     `json:"activity_id"`
			Comments   string  `json:"comments"`
		} `json:"time_entry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	entry := FakeTimeEntry{
		ID:         f.nextID,
		IssueID:    body.TimeEntry.IssueID,
		UserID:     user.ID,
		Hours:      body.TimeEntry.Hours,
		ActivityID: body.TimeEntry.ActivityID,
		SpentOn:    body.TimeEntry.SpentOn,
		Comments:   body.TimeEntry.Comments,
	}
	f.timeEntries = append(f.timeEntries, entry)
	writeJSON(w, http.StatusCreated, map[string]any{"time_entry": map[string]any{"id": entry.ID, "hours": entry.Hours}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
