// Package server exposes the library to LLM tools over MCP on stdio.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"omnitui/internal/dataservice"
	"omnitui/internal/markdown"
	"omnitui/internal/models"
)

const previewLen = 400

// Library is the data service as used by the tools.
type Library interface {
	CurrentViewer(ctx context.Context) (*models.Viewer, error)
	Library(ctx context.Context, query string, first int, after string) (models.Page, error)
	CachedLibrary(ctx context.Context, limit int) ([]models.FeedItem, error)
	Item(ctx context.Context, slug string) (models.FeedItem, error)
	ArticleContent(ctx context.Context, username, slug string) (string, error)
	Labels(ctx context.Context) ([]models.FeedItemLabel, error)
}

type ListLibraryParams struct {
	Query   *string `json:"query,omitempty"`
	Limit   *int    `json:"limit,omitempty"`
	Offline bool    `json:"offline"`
}

type GetArticleParams struct {
	Slug     string `json:"slug"`
	MaxChars *int   `json:"max_chars,omitempty"`
}

type ListLabelsParams struct{}

type item struct {
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Author   string    `json:"author,omitempty"`
	Preview  string    `json:"description,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
	Labels   []string  `json:"labels,omitempty"`
	Progress float64   `json:"reading_progress"`
}

type Server struct {
	lib     Library
	version string
}

func New(lib Library, version string) *Server {
	return &Server{lib: lib, version: version}
}

// MCP returns an MCP server with the library tools registered.
func (s *Server) MCP() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "omnitui", Version: s.version}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "list_library", Description: "List saved articles, newest first. query uses the search syntax, e.g. in:inbox or label:golang"}, s.handleListLibrary)
	mcp.AddTool(server, &mcp.Tool{Name: "get_article", Description: "Get a saved article's content as markdown by slug"}, s.handleGetArticle)
	mcp.AddTool(server, &mcp.Tool{Name: "list_labels", Description: "List the labels used to organise the library"}, s.handleListLabels)
	return server
}

func (s *Server) Run(ctx context.Context) error {
	return s.MCP().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleListLibrary(ctx context.Context, req *mcp.CallToolRequest, p ListLibraryParams) (*mcp.CallToolResult, any, error) {
	lim := 20
	if p.Limit != nil && *p.Limit > 0 {
		lim = min(*p.Limit, 100)
	}
	query := "in:inbox"
	if p.Query != nil && strings.TrimSpace(*p.Query) != "" {
		query = strings.TrimSpace(*p.Query)
	}

	var items []models.FeedItem
	source := "network"
	if !p.Offline {
		page, err := s.lib.Library(ctx, query, lim, "")
		if err != nil {
			// Serve what was synced last.
			p.Offline = true
		}
		items = page.Items
	}
	if p.Offline {
		source = "cache"
		cached, err := s.lib.CachedLibrary(ctx, lim)
		if err != nil {
			return nil, map[string]any{"ok": false, "message": "Failed reading the local cache", "error": err.Error()}, nil
		}
		items = cached
	}

	out := make([]item, 0, len(items))
	for _, it := range items {
		out = append(out, item{
			Slug:     it.Slug,
			Title:    it.Title,
			URL:      it.URL,
			Author:   it.Author,
			Preview:  preview(it.Description),
			SavedAt:  it.SavedAt,
			Labels:   it.LabelNames(),
			Progress: it.ReadingProgress,
		})
	}
	return nil, map[string]any{"count": len(out), "source": source, "items": out}, nil
}

func (s *Server) handleGetArticle(ctx context.Context, req *mcp.CallToolRequest, p GetArticleParams) (*mcp.CallToolResult, any, error) {
	slug := strings.TrimSpace(p.Slug)
	if slug == "" {
		return nil, map[string]any{"ok": false, "message": "slug is required"}, nil
	}
	viewer, err := s.lib.CurrentViewer(ctx)
	if err != nil {
		return nil, map[string]any{
			"ok":      false,
			"message": "Not logged in",
			"hint":    "Run 'omnitui login' first.",
			"error":   err.Error(),
		}, nil
	}
	html, err := s.lib.ArticleContent(ctx, viewer.Username, slug)
	if err != nil {
		msg := "Failed loading the article"
		if errors.Is(err, dataservice.ErrNotFound) {
			msg = "Article not found"
		}
		return nil, map[string]any{"ok": false, "message": msg, "error": err.Error()}, nil
	}

	resp := map[string]any{"ok": true, "slug": slug}
	baseURL := ""
	if it, err := s.lib.Item(ctx, slug); err == nil {
		resp["title"], resp["url"], resp["author"] = it.Title, it.URL, it.Author
		baseURL = it.URL
	}
	content := markdown.FromHTML(html, baseURL)
	if p.MaxChars != nil && *p.MaxChars > 0 && len(content) > *p.MaxChars {
		content = content[:*p.MaxChars] + "..."
		resp["truncated"] = true
	}
	resp["content"] = content
	return nil, resp, nil
}

func (s *Server) handleListLabels(ctx context.Context, req *mcp.CallToolRequest, p ListLabelsParams) (*mcp.CallToolResult, any, error) {
	labels, err := s.lib.Labels(ctx)
	if err != nil {
		return nil, map[string]any{"ok": false, "message": "Failed loading labels", "error": err.Error()}, nil
	}
	out := make([]map[string]any, 0, len(labels))
	for _, l := range labels {
		m := map[string]any{"id": l.ID, "name": l.Name, "color": l.Color}
		if l.Description != nil {
			m["description"] = *l.Description
		}
		if l.CreatedAt != nil {
			m["created_at"] = *l.CreatedAt
		}
		out = append(out, m)
	}
	return nil, map[string]any{"count": len(out), "labels": out}, nil
}

func preview(s string) string {
	if len(s) > previewLen {
		return s[:previewLen] + "..."
	}
	return s
}
