// Package webpage fetches a static web page and reduces it to readable text.
package webpage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	neturl "net/url"
	"strings"

	trafilatura "github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"omnitui/internal/httpclient"
)

const maxBody = 4 << 20

// Page is the readable form of a web page.
type Page struct {
	URL   string
	Title string
	Text  string
}

type Fetcher struct {
	http   *httpclient.Client
	logger *log.Logger
}

func New(hc *httpclient.Client, logger *log.Logger) *Fetcher {
	if hc == nil {
		hc = httpclient.New(0)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Fetcher{http: hc, logger: logger}
}

// Fetch downloads rawURL and extracts its main text. Pages trafilatura
// cannot handle fall back to the visible text of the body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := neturl.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() {
		return Page{}, fmt.Errorf("invalid url %q", rawURL)
	}
	resp, err := f.http.Get(ctx, u.String(), map[string]string{"Accept": "text/html"})
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Page{}, fmt.Errorf("fetch %s: HTTP %d", u, resp.StatusCode)
	}
	body, err := httpclient.ReadBody(resp, maxBody)
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", u, err)
	}
	return f.Extract(body, u), nil
}

// Extract turns raw HTML into a Page.
func (f *Fetcher) Extract(body []byte, u *neturl.URL) Page {
	page := Page{URL: u.String()}
	res, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL:    u,
		EnableFallback: true,
		Focus:          trafilatura.Balanced,
	})
	if err == nil && res != nil {
		page.Title = strings.TrimSpace(res.Metadata.Title)
		page.Text = strings.TrimSpace(res.ContentText)
	} else {
		f.logger.Printf("extract %s: %v", u, err)
	}

	if page.Text == "" || page.Title == "" {
		doc, err := html.Parse(bytes.NewReader(body))
		if err != nil {
			return page
		}
		if page.Title == "" {
			if t := findElement(doc, "title"); t != nil {
				page.Title = strings.TrimSpace(textOf(t))
			}
		}
		if page.Text == "" {
			root := doc
			if b := findElement(doc, "body"); b != nil {
				root = b
			}
			page.Text = textOf(root)
		}
	}
	return page
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// textOf concatenates visible text nodes, one block element per line.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteString(" ")
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "article", "section", "br", "tr":
		return true
	}
	return false
}
