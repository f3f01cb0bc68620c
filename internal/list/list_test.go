package list

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"omnitui/internal/models"
)

type stubLibrary struct {
	items  []models.FeedItem
	cached []models.FeedItem
	labels []models.FeedItemLabel
	err    error
}

func (s stubLibrary) Library(ctx context.Context, query string, first int, after string) (models.Page, error) {
	return models.Page{Items: s.items}, s.err
}

func (s stubLibrary) CachedLibrary(ctx context.Context, limit int) ([]models.FeedItem, error) {
	return s.cached, nil
}

func (s stubLibrary) Labels(ctx context.Context) ([]models.FeedItemLabel, error) {
	return s.labels, s.err
}

func TestRun(t *testing.T) {
	item := models.FeedItem{
		Slug:            "seasons",
		Title:           "No autumn",
		URL:             "https://blog.example.com/1",
		SavedAt:         time.Now().Add(-3 * time.Hour),
		ReadingProgress: 40,
		Labels:          []models.FeedItemLabel{{Name: "Newsletter"}, {Name: "Golang"}},
	}

	tests := []struct {
		name string
		lib  stubLibrary
		opts Options
		want []string
	}{
		{
			name: "network",
			lib:  stubLibrary{items: []models.FeedItem{item}},
			want: []string{"Found 1 items", "Slug: seasons", "Author: Unknown author", "Saved: 3 hours ago", "Labels: Newsletter, Golang", "Progress: 40%"},
		},
		{
			name: "offline",
			lib:  stubLibrary{cached: []models.FeedItem{item}},
			opts: Options{Offline: true},
			want: []string{"Title: No autumn"},
		},
		{
			name: "offline empty",
			opts: Options{Offline: true},
			want: []string{"Nothing cached yet."},
		},
		{
			name: "no match",
			opts: Options{Query: "label:none"},
			want: []string{`No items match "label:none"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := Run(t.Context(), tt.lib, tt.opts, &out); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, out.String())
				}
			}
		})
	}
}

func TestRunError(t *testing.T) {
	var out bytes.Buffer
	if err := Run(t.Context(), stubLibrary{err: errors.New("boom")}, Options{}, &out); err == nil {
		t.Error("expected error")
	}
}

func TestLabels(t *testing.T) {
	desc := "weekend reads"
	lib := stubLibrary{labels: []models.FeedItemLabel{
		{Name: "Golang", Color: "#00ADD8"},
		{Name: "Weekend", Color: "#7CFF7B", Description: &desc},
	}}
	var out bytes.Buffer
	if err := Labels(t.Context(), lib, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "#00ADD8") || !strings.Contains(out.String(), "weekend reads") {
		t.Errorf("output = %q", out.String())
	}
}
