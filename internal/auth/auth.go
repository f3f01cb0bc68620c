// Package auth stores the API key and manages the logged-in session.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"omnitui/internal/models"
)

// EnvAPIKey overrides the stored credentials when set.
const EnvAPIKey = "OMNIVORE_API_KEY"

const credFileName = "credentials.json"

var ErrNotLoggedIn = errors.New("not logged in")

// Credentials is the on-disk form of the API key.
type Credentials struct {
	APIKey    string    `json:"api_key"`
	Source    string    `json:"source"` // "env" | "file"
	CreatedAt time.Time `json:"created_at"`
}

// FileStore keeps credentials in a JSON file readable only by the owner.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the credentials file location.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, credFileName)
}

// Load returns the active credentials or ErrNotLoggedIn.
func (s *FileStore) Load() (*Credentials, error) {
	if env := strings.TrimSpace(os.Getenv(EnvAPIKey)); env != "" {
		return &Credentials{APIKey: stripBearer(env), Source: "env"}, nil
	}
	b, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	c.APIKey = stripBearer(c.APIKey)
	if c.APIKey == "" {
		return nil, ErrNotLoggedIn
	}
	return &c, nil
}

// Token returns the API key, or "" when logged out. It satisfies
// graphql.TokenSource.
func (s *FileStore) Token() (string, error) {
	c, err := s.Load()
	if errors.Is(err, ErrNotLoggedIn) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.APIKey, nil
}

func (s *FileStore) Save(apiKey string) error {
	apiKey = stripBearer(strings.TrimSpace(apiKey))
	if apiKey == "" {
		return fmt.Errorf("empty api key")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(Credentials{APIKey: apiKey, Source: "file", CreatedAt: time.Now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.Path(), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete removes the credentials file. A missing file is not an error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}

// Account is the part of the data service a session needs.
type Account interface {
	// VerifyKey checks apiKey against the server without storing it.
	VerifyKey(ctx context.Context, apiKey string) (*models.Viewer, error)
	RefreshViewer(ctx context.Context) (*models.Viewer, error)
	ClearCache(ctx context.Context) error
}

// Session ties the credential store to the account it unlocks.
type Session struct {
	store   *FileStore
	account Account
	logger  *log.Logger
}

func NewSession(store *FileStore, account Account, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{store: store, account: account, logger: logger}
}

// LoggedIn reports whether credentials are available.
func (s *Session) LoggedIn() bool {
	_, err := s.store.Load()
	return err == nil
}

// Login checks apiKey against the server and only then stores it and
// drops what was cached for the previous account. A rejected key changes
// nothing.
func (s *Session) Login(ctx context.Context, apiKey string) (*models.Viewer, error) {
	apiKey = stripBearer(strings.TrimSpace(apiKey))
	if apiKey == "" {
		return nil, fmt.Errorf("login: empty api key")
	}
	v, err := s.account.VerifyKey(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := s.store.Save(apiKey); err != nil {
		return nil, err
	}
	if os.Getenv(EnvAPIKey) != "" {
		// The environment key still wins, and so does its cache.
		s.logger.Printf("login: key saved for %s; %s still overrides it", v.Username, EnvAPIKey)
		return v, nil
	}
	if err := s.account.ClearCache(ctx); err != nil {
		s.logger.Printf("login: clearing previous account cache: %v", err)
	}
	if _, err := s.account.RefreshViewer(ctx); err != nil {
		s.logger.Printf("login: caching viewer: %v", err)
	}
	s.logger.Printf("logged in as %s", v.Username)
	return v, nil
}

// Logout deletes the stored credentials and everything cached for the
// account.
func (s *Session) Logout(ctx context.Context) error {
	err := errors.Join(s.store.Delete(), s.account.ClearCache(ctx))
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if os.Getenv(EnvAPIKey) != "" {
		s.logger.Printf("logged out; %s is still set in the environment", EnvAPIKey)
		return nil
	}
	s.logger.Printf("logged out")
	return nil
}
