// Package models holds the client-side records decoded from the article service.
package models

import "time"

// FeedItem is a saved article. Slug is unique per viewer.
type FeedItem struct {
	ID              string
	Slug            string
	Title           string
	URL             string
	Author          string
	Description     string
	SavedAt         time.Time
	PublishedAt     *time.Time
	ReadingProgress float64
	Labels          []FeedItemLabel
}

// FeedItemLabel is a tag attached to an article.
type FeedItemLabel struct {
	ID          string
	Name        string
	Color       string
	CreatedAt   *time.Time
	Description *string
}

// Viewer is the logged-in account.
type Viewer struct {
	ID       string
	Name     string
	Username string
}

// Page is one page of a library listing.
type Page struct {
	Items       []FeedItem
	EndCursor   string
	HasNextPage bool
}

// LabelNames returns the label names of an item in order.
func (f FeedItem) LabelNames() []string {
	names := make([]string, 0, len(f.Labels))
	for _, l := range f.Labels {
		names = append(names, l.Name)
	}
	return names
}

// Subscription is a feed the viewer follows.
type Subscription struct {
	ID   string
	Name string
	URL  string
}
