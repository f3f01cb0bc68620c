package dataservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"omnitui/internal/fakeapi"
	"omnitui/internal/graphql"
	"omnitui/internal/httpclient"
	"omnitui/internal/omnidb"
)

func newTestService(t *testing.T, api *fakeapi.Server, cache bool) (*Service, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)

	gql := graphql.NewClient(ts.URL+"/api/graphql", httpclient.NewWithHTTPClient(ts.Client()))
	if !cache {
		return New(gql, nil, nil), ts
	}
	db, err := omnidb.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(gql, db, nil), ts
}

func TestCurrentViewer(t *testing.T) {
	api := fakeapi.New("")
	svc, _ := newTestService(t, api, true)

	v, err := svc.CurrentViewer(t.Context())
	if err != nil {
		t.Fatalf("CurrentViewer() error = %v", err)
	}
	if v.Username != "demo" || v.Name != "Demo Reader" {
		t.Errorf("viewer = %+v", v)
	}
	if _, err := svc.CurrentViewer(t.Context()); err != nil {
		t.Fatalf("second CurrentViewer() error = %v", err)
	}
	if got := api.Calls("Viewer"); got != 1 {
		t.Errorf("Viewer calls = %d, want 1", got)
	}

	// A fresh service over the same database finds the persisted viewer.
	svc2 := New(svc.gql, svc.DB(), nil)
	if _, err := svc2.CurrentViewer(t.Context()); err != nil {
		t.Fatalf("CurrentViewer() from cache error = %v", err)
	}
	if got := api.Calls("Viewer"); got != 1 {
		t.Errorf("Viewer calls after cache hit = %d, want 1", got)
	}
}

func TestCurrentViewerUnauthorized(t *testing.T) {
	api := fakeapi.New("good-key")
	svc, _ := newTestService(t, api, false)

	_, err := svc.CurrentViewer(t.Context())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("CurrentViewer() error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyKey(t *testing.T) {
	api := fakeapi.New("good-key")
	svc, _ := newTestService(t, api, true)

	if _, err := svc.VerifyKey(t.Context(), "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("VerifyKey(wrong) error = %v, want ErrUnauthorized", err)
	}
	v, err := svc.VerifyKey(t.Context(), "good-key")
	if err != nil {
		t.Fatalf("VerifyKey(good-key) error = %v", err)
	}
	if v.Username != "demo" {
		t.Errorf("viewer = %+v", v)
	}

	// Nothing is remembered: the service itself still has no credentials.
	if cached, err := omnidb.GetViewer(t.Context(), svc.DB()); err != nil || cached != nil {
		t.Errorf("cached viewer = %+v, %v, want none", cached, err)
	}
	if _, err := svc.CurrentViewer(t.Context()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("CurrentViewer() error = %v, want ErrUnauthorized", err)
	}
}

func TestLabels(t *testing.T) {
	api := fakeapi.New("")
	svc, _ := newTestService(t, api, true)

	labels, err := svc.Labels(t.Context())
	if err != nil {
		t.Fatalf("Labels() error = %v", err)
	}
	if len(labels) != 3 {
		t.Fatalf("len(labels) = %d, want 3", len(labels))
	}
	if labels[0].CreatedAt == nil || labels[0].Description != nil {
		t.Errorf("Newsletter optionals = %v, %v", labels[0].CreatedAt, labels[0].Description)
	}
	if labels[2].CreatedAt != nil || labels[2].Description != nil {
		t.Errorf("Weekend optionals should be nil, got %v, %v", labels[2].CreatedAt, labels[2].Description)
	}

	cached, err := omnidb.GetLabels(t.Context(), svc.DB())
	if err != nil || len(cached) != 3 {
		t.Errorf("cached labels = %d, %v", len(cached), err)
	}
}

func TestLabelsDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
		check   func(t *testing.T, svc *Service)
	}{
		{
			name:    "optional fields absent",
			payload: `[{"id":"1","name":"Later","color":"#fff"}]`,
		},
		{
			name:    "optional fields null",
			payload: `[{"id":"1","name":"Later","color":"#fff","createdAt":null,"description":null}]`,
		},
		{
			name:    "name missing",
			payload: `[{"id":"1","color":"#fff"}]`,
			wantErr: graphql.ErrMissingField,
		},
		{
			name:    "id null",
			payload: `[{"id":null,"name":"Later","color":"#fff"}]`,
			wantErr: graphql.ErrMissingField,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := fakeapi.New("")
			api.SetLabelsPayload(json.RawMessage(tt.payload))
			svc, _ := newTestService(t, api, false)

			labels, err := svc.Labels(t.Context())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Labels() error = %v, want %v", err, tt.wantErr)
				}
				if labels != nil {
					t.Errorf("labels = %v, want nil on failure", labels)
				}
				return
			}
			if err != nil {
				t.Fatalf("Labels() error = %v", err)
			}
			if len(labels) != 1 {
				t.Fatalf("len(labels) = %d", len(labels))
			}
			l := labels[0]
			if l.ID != "1" || l.Name != "Later" || l.Color != "#fff" {
				t.Errorf("label = %+v", l)
			}
			if l.CreatedAt != nil || l.Description != nil {
				t.Errorf("optionals = %v, %v, want nil", l.CreatedAt, l.Description)
			}
		})
	}
}

func TestArticleContent(t *testing.T) {
	api := fakeapi.New("")
	svc, _ := newTestService(t, api, true)
	ctx := t.Context()

	html, err := svc.ArticleContent(ctx, "demo", "no-autumn-or-spring-part-1")
	if err != nil {
		t.Fatalf("ArticleContent() error = %v", err)
	}
	if html == "" {
		t.Fatal("empty content")
	}
	cached, ok, err := omnidb.GetContent(ctx, svc.DB(), "demo", "no-autumn-or-spring-part-1")
	if err != nil || !ok || cached != html {
		t.Errorf("cached content = %q, %v, %v", cached, ok, err)
	}

	_, err = svc.ArticleContent(ctx, "demo", "does-not-exist")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, ErrNotFound) {
		t.Errorf("missing article error = %v", err)
	}

	_, err = svc.ArticleContent(ctx, "someone-else", "no-autumn-or-spring-part-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign username error = %v", err)
	}
}

func TestArticleContentFallsBackToCache(t *testing.T) {
	api := fakeapi.New("")
	svc, _ := newTestService(t, api, true)
	ctx := t.Context()
	slug := "no-autumn-or-spring-part-2"

	want, err := svc.ArticleContent(ctx, "demo", slug)
	if err != nil {
		t.Fatalf("ArticleContent() error = %v", err)
	}

	api.FailWith("ArticleContent", http.StatusBadGateway)
	got, err := svc.ArticleContent(ctx, "demo", slug)
	if err != nil {
		t.Fatalf("ArticleContent() with server down error = %v", err)
	}
	if got != want {
		t.Errorf("fallback content differs")
	}

	// Nothing cached for this one.
	if _, err := svc.ArticleContent(ctx, "demo", "no-autumn-or-spring-part-3"); err == nil {
		t.Error("expected error without cached copy")
	}

	// Client errors are not masked by the cache.
	api.FailWith("ArticleContent", http.StatusBadRequest)
	if _, err := svc.ArticleContent(ctx, "demo", slug); err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestArticleContentSharesInFlightRequest(t *testing.T) {
	api := fakeapi.New("")
	svc, _ := newTestService(t, api, false)
	release := api.Block("ArticleContent")

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ArticleContent(t.Context(), "demo", "no-autumn-or-spring-part-1")
			errs <- err
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for api.Calls("ArticleContent") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Let the other callers join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("ArticleContent() error = %v", err)
		}
	}
	if got := api.Calls("ArticleContent"); got != 1 {
		t.Errorf("ArticleContent calls = %d, want 1", got)
	}
}

func TestArticleContentCancelled(t *testing.T) {
	api := fakeapi.New("")
	svc, _ := newTestService(t, api, false)
	release := api.Block("ArticleContent")
	defer release()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		_, err := svc.ArticleContent(ctx, "demo", "no-autumn-or-spring-part-1")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ArticleContent did not return after cancel")
	}
}

func TestLibrary(t *testing.T) {
	api := fakeapi.New("")
	svc, _ := newTestService(t, api, true)
	ctx := t.Context()

	page, err := svc.Library(ctx, "in:inbox", 3, "")
	if err != nil {
		t.Fatalf("Library() error = %v", err)
	}
	if len(page.Items) != 3 || !page.HasNextPage || page.EndCursor != "3" {
		t.Fatalf("page = %d items, next=%v, cursor=%q", len(page.Items), page.HasNextPage, page.EndCursor)
	}
	if page.Items[0].Author != "Awesome blog" || len(page.Items[0].Labels) != 1 {
		t.Errorf("first item = %+v", page.Items[0])
	}

	next, err := svc.Library(ctx, "in:inbox", 3, page.EndCursor)
	if err != nil {
		t.Fatalf("Library(next) error = %v", err)
	}
	if len(next.Items) != 1 || next.HasNextPage {
		t.Errorf("next page = %d items, next=%v", len(next.Items), next.HasNextPage)
	}

	cached, err := svc.CachedLibrary(ctx, 10)
	if err != nil || len(cached) != 4 {
		t.Fatalf("CachedLibrary() = %d, %v", len(cached), err)
	}
	it, err := svc.Item(ctx, "no-autumn-or-spring-part-4")
	if err != nil || it.ID != "item-4" {
		t.Errorf("Item() = %+v, %v", it, err)
	}
	if _, err := svc.Item(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Item(nope) error = %v", err)
	}

	filtered, err := svc.Library(ctx, "label:golang", 10, "")
	if err != nil {
		t.Fatalf("Library(label) error = %v", err)
	}
	if len(filtered.Items) != 2 {
		t.Errorf("label filter = %d items, want 2", len(filtered.Items))
	}
}

func TestSaveURLAndSubscribe(t *testing.T) {
	api := fakeapi.New("")
	svc, _ := newTestService(t, api, false)
	ctx := t.Context()

	res, err := svc.SaveURL(ctx, "https://example.com/post")
	if err != nil {
		t.Fatalf("SaveURL() error = %v", err)
	}
	if res.URL != "https://example.com/post" || res.ClientRequestID == "" {
		t.Errorf("result = %+v", res)
	}
	if got := api.Saved(); len(got) != 1 {
		t.Errorf("saved = %v", got)
	}

	if _, err := svc.SaveURL(ctx, "not a url"); err == nil {
		t.Error("expected error for invalid url")
	}

	subs, err := svc.Subscribe(ctx, "https://example.com/feed.xml")
	if err != nil || len(subs) != 1 {
		t.Fatalf("Subscribe() = %v, %v", subs, err)
	}
	_, err = svc.Subscribe(ctx, "https://example.com/feed.xml")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Codes[0] != "ALREADY_SUBSCRIBED" {
		t.Errorf("second Subscribe() error = %v", err)
	}
}

func TestClearCache(t *testing.T) {
	api := fakeapi.New("")
	svc, _ := newTestService(t, api, true)
	ctx := t.Context()

	if _, err := svc.CurrentViewer(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Library(ctx, "", 10, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	items, _ := svc.CachedLibrary(ctx, 10)
	if len(items) != 0 {
		t.Errorf("items after clear = %d", len(items))
	}
	if _, err := svc.CurrentViewer(ctx); err != nil {
		t.Fatal(err)
	}
	if got := api.Calls("Viewer"); got != 2 {
		t.Errorf("Viewer calls = %d, want 2 after clearing cache", got)
	}
}
