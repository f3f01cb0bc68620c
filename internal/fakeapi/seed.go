package fakeapi

import (
	"fmt"
	"time"
)

func (s *Server) seed() {
	created := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	desc := "Things to read this weekend"
	s.labels = []Label{
		{ID: "label-1", Name: "Newsletter", Color: "#FFD234", CreatedAt: &created},
		{ID: "label-2", Name: "Golang", Color: "#00ADD8", Description: &desc},
		{ID: "label-3", Name: "Weekend", Color: "#7CFF7B"},
	}

	base := time.Date(2025, time.August, 25, 7, 42, 16, 0, time.UTC)
	for i := 1; i <= 4; i++ {
		labels := []string{"Newsletter"}
		if i%2 == 0 {
			labels = append(labels, "Golang")
		}
		s.items = append(s.items, Item{
			ID:      fmt.Sprintf("item-%d", i),
			Slug:    fmt.Sprintf("no-autumn-or-spring-part-%d", i),
			Title:   fmt.Sprintf("Breaking News, we have no autumn or spring anymore! Part %d", i),
			URL:     fmt.Sprintf("https://blog.example.com/articles/%d", i),
			Author:  "Awesome blog",
			SavedAt: base.Add(time.Duration(i) * 24 * time.Hour),
			Labels:  labels,
			ContentHTML: fmt.Sprintf(`<div class="article"><h1>Breaking News, we have no autumn or spring anymore! Part %d</h1>
<p>It occurred to me that we only have two seasons, <strong>summer</strong> and <em>winter</em>, and our weather abruptly switch between those.</p>
<ul><li>Summer</li><li>Winter</li></ul>
<p>Read more on <a href="https://blog.example.com">the blog</a>.</p></div>`, i),
		})
	}
}

var pages = map[string]string{
	"docs": `<html><head><title>Documentation</title></head><body><article>
<h1>Documentation: getting started</h1>
<p>Save articles from anywhere and read them later without distractions. Use labels to organise your library,
subscribe to newsletters and feeds, and keep everything available offline on every device you own.</p>
<p>The terminal client mirrors the mobile apps: browse your library, open an article to read it, and visit the settings screen to manage your account.</p>
</article></body></html>`,
	"privacy": `<html><head><title>Privacy Policy</title></head><body><article>
<h1>Privacy Policy</h1>
<p>We only store the articles you save, the labels you create and the minimum account information required to sync your library between devices.
We never sell your data and you can delete your account at any time from the settings screen.</p>
</article></body></html>`,
	"terms": `<html><head><title>Terms and Conditions</title></head><body><article>
<h1>Terms and Conditions</h1>
<p>By using the service you agree to save only content you are allowed to access, and to not use the API to overload the service.
These terms may change; we will notify you by email before any change takes effect.</p>
</article></body></html>`,
}
