// Package fakeapi is an in-process stand-in for the article service's
// GraphQL API. Tests and the demo server use it.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Item is a seeded library entry.
type Item struct {
	ID          string
	Slug        string
	Title       string
	URL         string
	Author      string
	SavedAt     time.Time
	Labels      []string
	ContentHTML string
}

// Label is a seeded label.
type Label struct {
	ID          string
	Name        string
	Color       string
	CreatedAt   *time.Time
	Description *string
}

// Server serves POST /api/graphql plus a few static pages.
type Server struct {
	mu       sync.Mutex
	token    string
	username string
	items    []Item
	labels   []Label
	calls    map[string]int
	failures map[string]int
	gates    map[string]chan struct{}
	rawLabel json.RawMessage
	saved    []string
	subs     []string

	router chi.Router
}

// New returns a server seeded with demo data. token may be empty to accept
// any request.
func New(token string) *Server {
	s := &Server{
		token:    token,
		username: "demo",
		calls:    map[string]int{},
		failures: map[string]int{},
		gates:    map[string]chan struct{}{},
	}
	s.seed()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/api/graphql", s.handleGraphQL)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	r.Get("/pages/{name}", s.handlePage)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Username returns the seeded viewer's username.
func (s *Server) Username() string { return s.username }

// Calls returns how many times op was requested.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// FailWith makes op answer with the given HTTP status. 0 clears it.
func (s *Server) FailWith(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, op)
		return
	}
	s.failures[op] = status
}

// Block holds every op request until release is called or the request is
// cancelled.
func (s *Server) Block(op string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[op] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, op)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// SetLabelsPayload replaces the labels array sent by the Labels operation.
func (s *Server) SetLabelsPayload(raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawLabel = raw
}

// AddItem appends an item to the library.
func (s *Server) AddItem(it Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, it)
}

// Items returns a copy of the library.
func (s *Server) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

// Saved returns the URLs saved through SaveUrl.
func (s *Server) Saved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

type request struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	op := req.OperationName

	s.mu.Lock()
	s.calls[op]++
	status := s.failures[op]
	gate := s.gates[op]
	token := s.token
	s.mu.Unlock()

	if token != "" && r.Header.Get("Authorization") != token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	var data map[string]any
	switch op {
	case "Viewer":
		data = map[string]any{"me": map[string]any{
			"id": "user-1", "name": "Demo Reader", "profile": map[string]any{"username": s.username},
		}}
	case "ArticleContent":
		data = map[string]any{"article": s.article(req.Variables)}
	case "Labels":
		data = map[string]any{"labels": s.labelsResult()}
	case "Search":
		data = map[string]any{"search": s.search(req.Variables)}
	case "SaveUrl":
		data = map[string]any{"saveUrl": s.save(req.Variables)}
	case "Subscribe":
		data = map[string]any{"subscribe": s.subscribe(req.Variables)}
	default:
		writeJSON(w, map[string]any{"data": nil, "errors": []map[string]any{{"message": fmt.Sprintf("unknown operation %q", op)}}})
		return
	}
	writeJSON(w, map[string]any{"data": data})
}

func (s *Server) article(vars map[string]any) map[string]any {
	username, _ := vars["username"].(string)
	slug, _ := vars["slug"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	if username == s.username {
		for _, it := range s.items {
			if it.Slug == slug {
				return map[string]any{
					"__typename": "ArticleSuccess",
					"article":    map[string]any{"content": it.ContentHTML},
				}
			}
		}
	}
	return map[string]any{"__typename": "ArticleError", "errorCodes": []string{"NOT_FOUND"}}
}

func (s *Server) labelsResult() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rawLabel != nil {
		return map[string]any{"__typename": "LabelsSuccess", "labels": s.rawLabel}
	}
	out := make([]map[string]any, 0, len(s.labels))
	for _, l := range s.labels {
		out = append(out, labelJSON(l))
	}
	return map[string]any{"__typename": "LabelsSuccess", "labels": out}
}

func labelJSON(l Label) map[string]any {
	m := map[string]any{"id": l.ID, "name": l.Name, "color": l.Color}
	if l.CreatedAt != nil {
		m["createdAt"] = l.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if l.Description != nil {
		m["description"] = *l.Description
	}
	return m
}

func (s *Server) search(vars map[string]any) map[string]any {
	first := 20
	if v, ok := vars["first"].(float64); ok && v > 0 {
		first = int(v)
	}
	start := 0
	if after, ok := vars["after"].(string); ok && after != "" {
		fmt.Sscanf(after, "%d", &start)
	}
	query, _ := vars["query"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Item
	for _, it := range s.items {
		if matches(it, query) {
			matched = append(matched, it)
		}
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+first, len(matched))

	edges := []map[string]any{}
	for i := start; i < end; i++ {
		it := matched[i]
		labels := []map[string]any{}
		for _, name := range it.Labels {
			for _, l := range s.labels {
				if l.Name == name {
					labels = append(labels, labelJSON(l))
				}
			}
		}
		node := map[string]any{
			"id":                     it.ID,
			"slug":                   it.Slug,
			"title":                  it.Title,
			"url":                    it.URL,
			"author":                 it.Author,
			"savedAt":                it.SavedAt.UTC().Format(time.RFC3339Nano),
			"readingProgressPercent": 0,
			"labels":                 labels,
		}
		edges = append(edges, map[string]any{"cursor": fmt.Sprintf("%d", i+1), "node": node})
	}
	var endCursor any
	if end > 0 {
		endCursor = fmt.Sprintf("%d", end)
	}
	return map[string]any{
		"__typename": "SearchSuccess",
		"edges":      edges,
		"pageInfo":   map[string]any{"hasNextPage": end < len(matched), "endCursor": endCursor},
	}
}

// matches understands the "label:<name>" filter; "in:..." and free text are ignored.
func matches(it Item, query string) bool {
	for _, term := range strings.Fields(query) {
		if name, ok := strings.CutPrefix(term, "label:"); ok {
			found := false
			for _, l := range it.Labels {
				if strings.EqualFold(l, name) {
					found = true
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func (s *Server) save(vars map[string]any) map[string]any {
	input, _ := vars["input"].(map[string]any)
	u, _ := input["url"].(string)
	reqID, _ := input["clientRequestId"].(string)
	if _, err := uuid.Parse(reqID); err != nil || !strings.HasPrefix(u, "http") {
		return map[string]any{"__typename": "SaveError", "errorCodes": []string{"BAD_REQUEST"}}
	}
	s.mu.Lock()
	s.saved = append(s.saved, u)
	s.mu.Unlock()
	return map[string]any{"__typename": "SaveSuccess", "url": u, "clientRequestId": reqID}
}

func (s *Server) subscribe(vars map[string]any) map[string]any {
	input, _ := vars["input"].(map[string]any)
	u, _ := input["url"].(string)
	if strings.TrimSpace(u) == "" {
		return map[string]any{"__typename": "SubscribeError", "errorCodes": []string{"BAD_REQUEST"}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs {
		if existing == u {
			return map[string]any{"__typename": "SubscribeError", "errorCodes": []string{"ALREADY_SUBSCRIBED"}}
		}
	}
	s.subs = append(s.subs, u)
	return map[string]any{
		"__typename":    "SubscribeSuccess",
		"subscriptions": []map[string]any{{"id": uuid.NewString(), "name": u, "url": u}},
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, ok := pages[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
