// Package feeds previews an RSS or Atom feed before subscribing to it.
package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry is one recent post of a feed.
type Entry struct {
	Title     string
	Link      string
	Published *time.Time
}

// Preview summarises a feed.
type Preview struct {
	URL         string
	Title       string
	Description string
	Entries     []Entry
}

type Previewer struct {
	parser *gofeed.Parser
}

// NewPreviewer uses hc for requests; nil means http.DefaultClient.
func NewPreviewer(hc *http.Client) *Previewer {
	p := gofeed.NewParser()
	if hc != nil {
		p.Client = hc
	}
	p.UserAgent = "omnitui/Go-Client"
	return &Previewer{parser: p}
}

// Preview fetches feedURL and returns its title and up to limit entries,
// newest first as the feed lists them.
func (p *Previewer) Preview(ctx context.Context, feedURL string, limit int) (Preview, error) {
	feedURL = strings.TrimSpace(feedURL)
	f, err := p.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return Preview{}, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	pv := Preview{URL: feedURL, Title: strings.TrimSpace(f.Title), Description: strings.TrimSpace(f.Description)}
	for _, it := range f.Items {
		if it == nil {
			continue
		}
		if limit > 0 && len(pv.Entries) >= limit {
			break
		}
		e := Entry{Title: strings.TrimSpace(it.Title), Link: strings.TrimSpace(it.Link)}
		switch {
		case it.PublishedParsed != nil:
			e.Published = it.PublishedParsed
		case it.UpdatedParsed != nil:
			e.Published = it.UpdatedParsed
		}
		pv.Entries = append(pv.Entries, e)
	}
	return pv, nil
}

// String renders the preview for the terminal.
func (pv Preview) String() string {
	var b strings.Builder
	title := pv.Title
	if title == "" {
		title = pv.URL
	}
	fmt.Fprintf(&b, "%s\n", title)
	if pv.Description != "" {
		fmt.Fprintf(&b, "%s\n", pv.Description)
	}
	for _, e := range pv.Entries {
		date := "          "
		if e.Published != nil {
			date = e.Published.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "  %s  %s\n", date, e.Title)
	}
	return b.String()
}
