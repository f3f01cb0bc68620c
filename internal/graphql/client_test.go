package graphql

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"omnitui/internal/httpclient"
)

func TestClientDo(t *testing.T) {
	var gotAuth string
	var gotReq Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"tag":{"id":"7","name":"later"}}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, httpclient.NewWithHTTPClient(server.Client()),
		WithTokenSource(TokenFunc(func() (string, error) { return "secret", nil })))

	resp, err := c.Do(t.Context(), Request{
		OperationName: "Tag",
		Query:         "query Tag { tag " + tagSelection.String() + " }",
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if gotAuth != "secret" {
		t.Errorf("Authorization = %q, want secret", gotAuth)
	}
	if gotReq.OperationName != "Tag" {
		t.Errorf("operationName = %q", gotReq.OperationName)
	}

	tg, err := Root(resp, "tag", tagSelection)
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	if tg.Name != "later" {
		t.Errorf("Name = %q", tg.Name)
	}

	if _, err := Root(resp, "missing", tagSelection); !errors.Is(err, ErrMissingField) {
		t.Errorf("Root(missing) error = %v", err)
	}
}

func TestClientDoRequestToken(t *testing.T) {
	var gotAuth string
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"data":{"tag":{"id":"7","name":"later"}}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, httpclient.NewWithHTTPClient(server.Client()),
		WithTokenSource(TokenFunc(func() (string, error) { return "stored", nil })))

	if _, err := c.Do(t.Context(), Request{Query: "{ tag { id } }", Token: "candidate"}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if gotAuth != "candidate" {
		t.Errorf("Authorization = %q, want candidate", gotAuth)
	}
	if _, ok := raw["Token"]; ok {
		t.Errorf("token leaked into the request body: %v", raw)
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "http error",
			status: http.StatusUnauthorized,
			body:   "nope",
			check: func(t *testing.T, err error) {
				var he *HTTPError
				if !errors.As(err, &he) || !he.Unauthorized() {
					t.Fatalf("expected unauthorized HTTPError, got %v", err)
				}
			},
		},
		{
			name:   "graphql errors",
			status: http.StatusOK,
			body:   `{"data":null,"errors":[{"message":"bad query"}]}`,
			check: func(t *testing.T, err error) {
				var ge Errors
				if !errors.As(err, &ge) || ge[0].Message != "bad query" {
					t.Fatalf("expected Errors, got %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, httpclient.NewWithHTTPClient(server.Client()))
			_, err := c.Do(t.Context(), Request{Query: "{ x }"})
			tt.check(t, err)
		})
	}
}
