package feeds

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const rss = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<rss version="2.0">
	<channel>
		<title>Awesome blog</title>
		<link>/</link>
		<description>Recent content on the awesome blog</description>
		<item>
			<title>Breaking News, we have no autumn or spring anymore! Part 2</title>
			<link>https://blog.example.com/articles/2</link>
			<pubDate>Tue, 26 Aug 2025 07:42:16 +0100</pubDate>
		</item>
		<item>
			<title>Breaking News, we have no autumn or spring anymore! Part 1</title>
			<link>https://blog.example.com/articles/1</link>
			<pubDate>Mon, 25 Aug 2025 07:42:16 +0100</pubDate>
		</item>
		<item>
			<title>Undated</title>
			<link>https://blog.example.com/articles/0</link>
		</item>
	</channel>
</rss>`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(rss))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestPreview(t *testing.T) {
	server := feedServer(t)
	p := NewPreviewer(server.Client())

	pv, err := p.Preview(t.Context(), server.URL+"/rss", 0)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if pv.Title != "Awesome blog" || len(pv.Entries) != 3 {
		t.Fatalf("preview = %+v", pv)
	}
	if pv.Entries[0].Published == nil || pv.Entries[0].Published.Day() != 26 {
		t.Errorf("first entry = %+v", pv.Entries[0])
	}
	if pv.Entries[2].Published != nil {
		t.Errorf("undated entry has date %v", pv.Entries[2].Published)
	}

	out := pv.String()
	if !strings.Contains(out, "Awesome blog") || !strings.Contains(out, "2025-08-25") || !strings.Contains(out, "Undated") {
		t.Errorf("String() = %q", out)
	}

	limited, err := p.Preview(t.Context(), server.URL+"/rss", 1)
	if err != nil || len(limited.Entries) != 1 {
		t.Errorf("limited preview = %d entries, %v", len(limited.Entries), err)
	}
}

func TestPreviewErrors(t *testing.T) {
	server := feedServer(t)
	p := NewPreviewer(server.Client())
	if _, err := p.Preview(t.Context(), server.URL+"/missing", 5); err == nil {
		t.Error("expected error for 404 feed")
	}
}
