package main

import (
	"context"
	"encoding/xml"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"omnitui/internal/fakeapi"
)

func main() {
	port := flag.Int("port", 8080, "Port to run the demo server on")
	host := flag.String("host", "localhost", "Host to bind the demo server to")
	token := flag.String("token", "", "API key the server accepts (empty accepts any)")
	flag.Parse()

	api := fakeapi.New(*token)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", *host, *port),
		Handler: createHandler(api),
	}

	go func() {
		base := fmt.Sprintf("http://%s:%d", *host, *port)
		log.Printf("Demo server starting on %s", base)
		log.Printf("Point omnitui at it with OMNIVORE_API_URL=%s/api/graphql OMNIVORE_WEB_URL=%s", base, base)
		log.Printf("RSS feed available at: %s/rss", base)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down demo server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Demo server stopped")
}

// createHandler serves the fake API plus the web pages settings links to.
func createHandler(api *fakeapi.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Get("/rss", rssHandler(api))
	for path, page := range map[string]string{
		"/privacy":          "privacy",
		"/terms":            "terms",
		"/help":             "docs",
		"/settings/account": "docs",
	} {
		r.Get(path, redirectTo("/pages/"+page))
	}
	r.Mount("/", api.Handler())
	return r
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	GUID    string `xml:"guid"`
}

// rssHandler publishes the seeded library as an RSS feed for 'omnitui subscribe'.
func rssHandler(api *fakeapi.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feed := rssFeed{
			Version: "2.0",
			Channel: rssChannel{
				Title:       "Awesome blog",
				Link:        "https://blog.example.com/",
				Description: "Thoughts on the changing seasons",
			},
		}
		for _, it := range api.Items() {
			feed.Channel.Items = append(feed.Channel.Items, rssItem{
				Title:   it.Title,
				Link:    it.URL,
				PubDate: it.SavedAt.Format(time.RFC1123Z),
				GUID:    it.Slug,
			})
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.Write([]byte(xml.Header))
		if err := xml.NewEncoder(w).Encode(feed); err != nil {
			log.Printf("rss: %v", err)
		}
	}
}
