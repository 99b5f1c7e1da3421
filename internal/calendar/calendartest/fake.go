// Package calendartest provides an in-memory Google Calendar v3 server for tests.
package calendartest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Server fakes the events collection of a single calendar.
type Server struct {
	*httptest.Server

	calendarID string

	mu      sync.Mutex
	nextID  int
	events  map[string]*calendar.Event
	deleted map[string]bool
	calls   []Call

	delay    time.Duration
	failWith int
}

// Call is one request the server received.
type Call struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   map[string]any
}

// NewServer starts a fake for calendarID and stops it when the test ends.
func NewServer(t testing.TB, calendarID string) *Server {
	t.Helper()

	s := &Server{
		calendarID: calendarID,
		events:     make(map[string]*calendar.Event),
		deleted:    make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// ClientOptions point a Calendar service at the fake.
func (s *Server) ClientOptions() []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(s.URL + "/"),
		option.WithHTTPClient(s.Client()),
	}
}

// SetDelay makes every response wait for d, or for the client to give up.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// FailWith makes every call fail with the given HTTP status. Zero restores
// normal behavior.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = status
}

// Seed stores event as if it had been created earlier and returns its id.
func (s *Server) Seed(event *calendar.Event) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(event)
}

// Event returns the stored event with the given id, or nil.
func (s *Server) Event(id string) *calendar.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id]
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// LastCall returns the most recent request.
func (s *Server) LastCall() Call {
	calls := s.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

func (s *Server) store(event *calendar.Event) string {
	s.nextID++
	id := fmt.Sprintf("evt%03d", s.nextID)
	stored := *event
	stored.Id = id
	stored.Status = "confirmed"
	stored.HtmlLink = "https://calendar.example/event?eid=" + id
	s.events[id] = &stored
	return id
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	call := Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()}
	var body map[string]any
	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPatch) {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	call.Body = body

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)

	if s.failWith != 0 {
		writeError(w, s.failWith, http.StatusText(s.failWith))
		return
	}

	prefix := "/calendars/" + s.calendarID + "/events"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch {
	case id == "" && r.Method == http.MethodGet:
		s.list(w)
	case id == "" && r.Method == http.MethodPost:
		s.insert(w, body)
	case id != "" && r.Method == http.MethodPatch:
		s.patch(w, id, body)
	case id != "" && r.Method == http.MethodDelete:
		s.delete(w, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (s *Server) list(w http.ResponseWriter) {
	items := make([]*calendar.Event, 0, len(s.events))
	for _, event := range s.events {
		items = append(items, event)
	}
	sort.Slice(items, func(i, j int) bool {
		return startOf(items[i]) < startOf(items[j])
	})
	writeJSON(w, http.StatusOK, &calendar.Events{Kind: "calendar#events", Items: items})
}

func (s *Server) insert(w http.ResponseWriter, body map[string]any) {
	var event calendar.Event
	if err := remarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if event.Start == nil || event.End == nil {
		writeError(w, http.StatusBadRequest, "Missing end time.")
		return
	}
	id := s.store(&event)
	writeJSON(w, http.StatusOK, s.events[id])
}

func (s *Server) patch(w http.ResponseWriter, id string, body map[string]any) {
	if s.deleted[id] {
		writeError(w, http.StatusGone, "Resource has been deleted")
		return
	}
	stored, ok := s.events[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	// Merge by decoding the patch over the stored event.
	if err := remarshal(body, stored); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) delete(w http.ResponseWriter, id string) {
	if s.deleted[id] {
		writeError(w, http.StatusGone, "Resource has been deleted")
		return
	}
	if _, ok := s.events[id]; !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	delete(s.events, id)
	s.deleted[id] = true
	w.WriteHeader(http.StatusNoContent)
}

func startOf(event *calendar.Event) string {
	if event.Start == nil {
		return ""
	}
	if event.Start.DateTime != "" {
		return event.Start.DateTime
	}
	return event.Start.Date
}

func remarshal(in map[string]any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}
