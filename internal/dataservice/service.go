// Package dataservice is the facade the UI talks to: it issues GraphQL
// operations, decodes them with the selection mappers and keeps a local
// SQLite copy for offline use.
package dataservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"omnitui/internal/graphql"
	"omnitui/internal/models"
	"omnitui/internal/omnidb"
)

// Service is safe for concurrent use.
type Service struct {
	gql    *graphql.Client
	db     *sql.DB
	logger *log.Logger

	content singleflight.Group

	mu     sync.Mutex
	viewer *models.Viewer
}

// New returns a service. db may be nil, which disables caching.
func New(gql *graphql.Client, db *sql.DB, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{gql: gql, db: db, logger: logger}
}

// DB returns the cache handle, or nil.
func (s *Service) DB() *sql.DB { return s.db }

// CurrentViewer returns the logged-in account, loading it from the cache or
// the network the first time.
func (s *Service) CurrentViewer(ctx context.Context) (*models.Viewer, error) {
	s.mu.Lock()
	v := s.viewer
	s.mu.Unlock()
	if v != nil {
		return v, nil
	}

	if s.db != nil {
		cached, err := omnidb.GetViewer(ctx, s.db)
		if err != nil {
			s.logger.Printf("viewer cache read failed: %v", err)
		} else if cached != nil {
			s.setViewer(cached)
			return cached, nil
		}
	}
	return s.RefreshViewer(ctx)
}

// RefreshViewer always asks the server who the credentials belong to.
func (s *Service) RefreshViewer(ctx context.Context) (*models.Viewer, error) {
	v, err := s.fetchViewer(ctx, "")
	if err != nil {
		return nil, err
	}
	if s.db != nil {
		if err := omnidb.SaveViewer(ctx, s.db, *v); err != nil {
			s.logger.Printf("viewer cache write failed: %v", err)
		}
	}
	s.setViewer(v)
	return v, nil
}

// VerifyKey returns the account apiKey belongs to without storing anything.
func (s *Service) VerifyKey(ctx context.Context, apiKey string) (*models.Viewer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("viewer: %w", ErrUnauthorized)
	}
	return s.fetchViewer(ctx, apiKey)
}

// fetchViewer runs the viewer query, with token overriding the stored
// credentials when set.
func (s *Service) fetchViewer(ctx context.Context, token string) (*models.Viewer, error) {
	resp, err := s.gql.Do(ctx, graphql.Request{OperationName: "Viewer", Query: viewerQuery, Token: token})
	if err != nil {
		var he *graphql.HTTPError
		if errors.As(err, &he) && he.Unauthorized() {
			return nil, fmt.Errorf("viewer: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("viewer: %w", err)
	}
	v, err := graphql.Root(resp, "me", viewerSelection)
	if err != nil {
		if errors.Is(err, graphql.ErrNullObject) {
			return nil, ErrNoViewer
		}
		return nil, fmt.Errorf("viewer: %w", err)
	}
	return &v, nil
}

func (s *Service) setViewer(v *models.Viewer) {
	s.mu.Lock()
	s.viewer = v
	s.mu.Unlock()
}

// ForgetViewer drops the in-memory viewer.
func (s *Service) ForgetViewer() { s.setViewer(nil) }

// ArticleContent returns the article HTML for (username, slug). Concurrent
// calls for the same article share one request. When the server cannot be
// reached a cached copy is returned if one exists.
func (s *Service) ArticleContent(ctx context.Context, username, slug string) (string, error) {
	key := username + "\x00" + slug
	ch := s.content.DoChan(key, func() (any, error) {
		return s.fetchArticle(ctx, username, slug)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			// The shared call ran on another caller's context which has since
			// been cancelled; this caller is still interested.
			if (errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)) && ctx.Err() == nil {
				return s.fetchArticle(ctx, username, slug)
			}
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *Service) fetchArticle(ctx context.Context, username, slug string) (string, error) {
	resp, err := s.gql.Do(ctx, graphql.Request{
		OperationName: "ArticleContent",
		Query:         articleQuery,
		Variables:     map[string]any{"username": username, "slug": slug},
	})
	if err != nil {
		if unreachable(ctx, err) && s.db != nil {
			if html, ok, cerr := omnidb.GetContent(ctx, s.db, username, slug); cerr == nil && ok {
				s.logger.Printf("article %s: serving cached copy: %v", slug, err)
				return html, nil
			}
		}
		return "", fmt.Errorf("article %s: %w", slug, err)
	}
	res, err := graphql.Root(resp, "article", articleResultSelection)
	if err != nil {
		return "", fmt.Errorf("article %s: %w", slug, err)
	}
	html, err := res.value("article " + slug)
	if err != nil {
		return "", err
	}
	if s.db != nil {
		if err := omnidb.SaveContent(ctx, s.db, username, slug, html); err != nil {
			s.logger.Printf("article %s: cache write failed: %v", slug, err)
		}
	}
	return html, nil
}

// Labels returns the viewer's labels.
func (s *Service) Labels(ctx context.Context) ([]models.FeedItemLabel, error) {
	resp, err := s.gql.Do(ctx, graphql.Request{OperationName: "Labels", Query: labelsQuery})
	if err != nil {
		if unreachable(ctx, err) && s.db != nil {
			if cached, cerr := omnidb.GetLabels(ctx, s.db); cerr == nil && len(cached) > 0 {
				s.logger.Printf("labels: serving cached copy: %v", err)
				return cached, nil
			}
		}
		return nil, fmt.Errorf("labels: %w", err)
	}
	res, err := graphql.Root(resp, "labels", labelsResultSelection)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	labels, err := res.value("labels")
	if err != nil {
		return nil, err
	}
	if s.db != nil {
		if err := omnidb.ReplaceLabels(ctx, s.db, labels); err != nil {
			s.logger.Printf("labels: cache write failed: %v", err)
		}
	}
	return labels, nil
}

// Library returns one page of the viewer's library matching query.
func (s *Service) Library(ctx context.Context, query string, first int, after string) (models.Page, error) {
	if first <= 0 {
		first = 20
	}
	vars := map[string]any{"first": first, "query": query}
	if after != "" {
		vars["after"] = after
	}
	resp, err := s.gql.Do(ctx, graphql.Request{OperationName: "Search", Query: searchQuery, Variables: vars})
	if err != nil {
		return models.Page{}, fmt.Errorf("search: %w", err)
	}
	res, err := graphql.Root(resp, "search", searchResultSelection)
	if err != nil {
		return models.Page{}, fmt.Errorf("search: %w", err)
	}
	page, err := res.value("search")
	if err != nil {
		return models.Page{}, err
	}
	if s.db != nil && len(page.Items) > 0 {
		if err := omnidb.UpsertItems(ctx, s.db, page.Items); err != nil {
			s.logger.Printf("search: cache write failed: %v", err)
		}
	}
	return page, nil
}

// CachedLibrary returns items from the local cache, newest first.
func (s *Service) CachedLibrary(ctx context.Context, limit int) ([]models.FeedItem, error) {
	if s.db == nil {
		return nil, nil
	}
	return omnidb.GetItems(ctx, s.db, limit)
}

// Item looks up a cached item by slug.
func (s *Service) Item(ctx context.Context, slug string) (models.FeedItem, error) {
	if s.db != nil {
		it, err := omnidb.GetItemBySlug(ctx, s.db, slug)
		if err != nil {
			return models.FeedItem{}, err
		}
		if it != nil {
			return *it, nil
		}
	}
	return models.FeedItem{}, fmt.Errorf("item %s: %w", slug, ErrNotFound)
}

// SaveURL adds url to the library.
func (s *Service) SaveURL(ctx context.Context, rawURL string) (SaveResult, error) {
	input := map[string]any{
		"url":             rawURL,
		"source":          "api",
		"clientRequestId": uuid.NewString(),
	}
	resp, err := s.gql.Do(ctx, graphql.Request{
		OperationName: "SaveUrl",
		Query:         saveURLMutation,
		Variables:     map[string]any{"input": input},
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("save %s: %w", rawURL, err)
	}
	res, err := graphql.Root(resp, "saveUrl", saveResultSelection)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save %s: %w", rawURL, err)
	}
	return res.value("save " + rawURL)
}

// Subscribe follows an RSS feed.
func (s *Service) Subscribe(ctx context.Context, feedURL string) ([]models.Subscription, error) {
	resp, err := s.gql.Do(ctx, graphql.Request{
		OperationName: "Subscribe",
		Query:         subscribeMutation,
		Variables:     map[string]any{"input": map[string]any{"url": feedURL, "subscriptionType": "RSS"}},
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", feedURL, err)
	}
	res, err := graphql.Root(resp, "subscribe", subscribeResultSelection)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", feedURL, err)
	}
	return res.value("subscribe " + feedURL)
}

// ClearCache removes every cached row and the in-memory viewer.
func (s *Service) ClearCache(ctx context.Context) error {
	s.ForgetViewer()
	if s.db == nil {
		return nil
	}
	if err := omnidb.Purge(s.db); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Printf("local cache cleared")
	return nil
}
