package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"omnitui/internal/dataservice"
	"omnitui/internal/fakeapi"
	"omnitui/internal/graphql"
	"omnitui/internal/httpclient"
	"omnitui/internal/omnidb"
)

func newTestServer(t *testing.T) (*Server, *fakeapi.Server) {
	t.Helper()
	api := fakeapi.New("")
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	db, err := omnidb.Open(filepath.Join(t.TempDir(), "mcp.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	gql := graphql.NewClient(ts.URL+"/api/graphql", httpclient.NewWithHTTPClient(ts.Client()))
	return New(dataservice.New(gql, db, nil), "test"), api
}

func TestMCPRegisters(t *testing.T) {
	s, _ := newTestServer(t)
	if s.MCP() == nil {
		t.Fatal("MCP() returned nil")
	}
}

func TestListLibrary(t *testing.T) {
	s, api := newTestServer(t)
	ctx := t.Context()

	limit := 2
	_, out, err := s.handleListLibrary(ctx, nil, ListLibraryParams{Limit: &limit})
	if err != nil {
		t.Fatal(err)
	}
	m := out.(map[string]any)
	if m["count"] != 2 || m["source"] != "network" {
		t.Fatalf("result = %v", m)
	}
	items := m["items"].([]item)
	if items[0].Slug != "no-autumn-or-spring-part-1" || len(items[0].Labels) != 1 {
		t.Errorf("first item = %+v", items[0])
	}

	// With the API down the cached copy is served.
	api.FailWith("Search", http.StatusServiceUnavailable)
	_, out, err = s.handleListLibrary(ctx, nil, ListLibraryParams{})
	if err != nil {
		t.Fatal(err)
	}
	m = out.(map[string]any)
	if m["source"] != "cache" || m["count"] != 2 {
		t.Errorf("offline result = %v", m)
	}

	query := "label:golang"
	api.FailWith("Search", 0)
	_, out, _ = s.handleListLibrary(ctx, nil, ListLibraryParams{Query: &query})
	if got := out.(map[string]any)["count"]; got != 2 {
		t.Errorf("label query count = %v", got)
	}
}

func TestGetArticle(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := t.Context()

	// Populate the item cache so metadata is available.
	if _, _, err := s.handleListLibrary(ctx, nil, ListLibraryParams{}); err != nil {
		t.Fatal(err)
	}
	_, out, err := s.handleGetArticle(ctx, nil, GetArticleParams{Slug: "no-autumn-or-spring-part-3"})
	if err != nil {
		t.Fatal(err)
	}
	m := out.(map[string]any)
	if m["ok"] != true || m["author"] != "Awesome blog" {
		t.Fatalf("result = %v", m)
	}
	content := m["content"].(string)
	if !strings.Contains(content, "# Breaking News") || !strings.Contains(content, "**summer**") {
		t.Errorf("content = %q", content)
	}

	maxChars := 10
	_, out, _ = s.handleGetArticle(ctx, nil, GetArticleParams{Slug: "no-autumn-or-spring-part-3", MaxChars: &maxChars})
	if m := out.(map[string]any); m["truncated"] != true || len(m["content"].(string)) != 13 {
		t.Errorf("truncated result = %v", m)
	}

	_, out, _ = s.handleGetArticle(ctx, nil, GetArticleParams{Slug: "nope"})
	if m := out.(map[string]any); m["ok"] != false || m["message"] != "Article not found" {
		t.Errorf("missing article result = %v", m)
	}

	_, out, _ = s.handleGetArticle(ctx, nil, GetArticleParams{})
	if m := out.(map[string]any); m["ok"] != false {
		t.Errorf("empty slug result = %v", m)
	}
}

func TestListLabels(t *testing.T) {
	s, _ := newTestServer(t)
	_, out, err := s.handleListLabels(t.Context(), nil, ListLabelsParams{})
	if err != nil {
		t.Fatal(err)
	}
	m := out.(map[string]any)
	labels := m["labels"].([]map[string]any)
	if m["count"] != 3 || labels[1]["description"] != "Things to read this weekend" {
		t.Errorf("result = %v", m)
	}
	if _, ok := labels[2]["description"]; ok {
		t.Error("absent description should be omitted")
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("a", previewLen+10)
	if got := preview(long); len(got) != previewLen+3 {
		t.Errorf("len(preview) = %d", len(got))
	}
	if preview("short") != "short" {
		t.Error("short text changed")
	}
}
