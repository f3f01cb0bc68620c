package webpage

import (
	"net/http"
	"net/http/httptest"
	neturl "net/url"
	"strings"
	"testing"

	"omnitui/internal/fakeapi"
	"omnitui/internal/httpclient"
)

func TestFetch(t *testing.T) {
	api := fakeapi.New("")
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	f := New(httpclient.NewWithHTTPClient(server.Client()), nil)

	tests := []struct {
		path  string
		title string
		text  string
	}{
		{path: "/pages/docs", title: "Documentation", text: "Save articles from anywhere"},
		{path: "/pages/privacy", title: "Privacy Policy", text: "We never sell your data"},
		{path: "/pages/terms", title: "Terms and Conditions", text: "By using the service"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			page, err := f.Fetch(t.Context(), server.URL+tt.path)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if !strings.Contains(page.Title, tt.title) {
				t.Errorf("Title = %q, want %q", page.Title, tt.title)
			}
			if !strings.Contains(page.Text, tt.text) {
				t.Errorf("Text = %q, want it to contain %q", page.Text, tt.text)
			}
		})
	}
}

func TestFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	f := New(httpclient.NewWithHTTPClient(server.Client()), nil)

	if _, err := f.Fetch(t.Context(), server.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := f.Fetch(t.Context(), "not a url"); err == nil {
		t.Error("expected error for relative url")
	}
}

func TestExtractFallback(t *testing.T) {
	u, _ := neturl.Parse("https://example.com/tiny")
	page := New(nil, nil).Extract([]byte(`<html><head><title>Tiny</title><script>var x;</script></head><body><p>Short.</p></body></html>`), u)
	if page.Title != "Tiny" {
		t.Errorf("Title = %q", page.Title)
	}
	if !strings.Contains(page.Text, "Short.") || strings.Contains(page.Text, "var x") {
		t.Errorf("Text = %q", page.Text)
	}
}
