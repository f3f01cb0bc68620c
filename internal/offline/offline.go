// Package offline copies the library and article content into the local
// cache so it can be read without a connection.
package offline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"omnitui/internal/config"
	"omnitui/internal/dataservice"
	"omnitui/internal/graphql"
	"omnitui/internal/httpclient"
	"omnitui/internal/models"
	"omnitui/internal/omnidb"
)

const (
	maxPageSize     = 50
	contentAttempts = 2
)

// Options allow overriding config values from CLI flags.
type Options struct {
	LogFile  string
	MaxItems int
}

// Source is the data service as seen by the syncer.
type Source interface {
	CurrentViewer(ctx context.Context) (*models.Viewer, error)
	Library(ctx context.Context, query string, first int, after string) (models.Page, error)
	ArticleContent(ctx context.Context, username, slug string) (string, error)
	DB() *sql.DB
}

// Result counts what one sync did.
type Result struct {
	Items   int
	Fetched int
	Failed  int
}

type Syncer struct {
	src        Source
	cfg        config.SyncConfig
	logger     *log.Logger
	retryDelay time.Duration
}

func NewSyncer(src Source, cfg config.SyncConfig, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = config.Defaults().Sync.MaxItems
	}
	return &Syncer{src: src, cfg: cfg, logger: logger, retryDelay: 500 * time.Millisecond}
}

// transient reports whether a content fetch is worth another attempt.
func transient(err error) bool {
	var he *graphql.HTTPError
	return errors.As(err, &he) && he.StatusCode >= 500
}

// Sync pages through the library, then downloads the content of every
// cached item that has none yet.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	var res Result
	db := s.src.DB()
	if db == nil {
		return res, fmt.Errorf("offline sync needs a local cache")
	}
	viewer, err := s.src.CurrentViewer(ctx)
	if err != nil {
		return res, fmt.Errorf("sync: %w", err)
	}

	after := ""
	for res.Items < s.cfg.MaxItems {
		first := min(maxPageSize, s.cfg.MaxItems-res.Items)
		page, err := s.src.Library(ctx, s.cfg.Query, first, after)
		if err != nil {
			return res, fmt.Errorf("sync library: %w", err)
		}
		res.Items += len(page.Items)
		s.logger.Printf("sync: page items=%d total=%d next=%v", len(page.Items), res.Items, page.HasNextPage)
		if !page.HasNextPage || page.EndCursor == "" || len(page.Items) == 0 {
			break
		}
		after = page.EndCursor
	}

	slugs, err := omnidb.SlugsWithoutContent(ctx, db, viewer.Username, s.cfg.MaxItems)
	if err != nil {
		return res, fmt.Errorf("sync: %w", err)
	}
	s.logger.Printf("sync: fetching content slugs=%d workers=%d", len(slugs), s.cfg.Workers)

	tasks := make(chan string)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for range min(s.cfg.Workers, max(len(slugs), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slug := range tasks {
				err := httpclient.RetryWithBackoff(ctx, contentAttempts, s.retryDelay, transient, func() error {
					_, err := s.src.ArticleContent(ctx, viewer.Username, slug)
					return err
				})
				mu.Lock()
				if err != nil {
					res.Failed++
				} else {
					res.Fetched++
				}
				mu.Unlock()
				if err != nil {
					s.logger.Printf("sync: content %s: %v", slug, err)
				}
			}
		}()
	}
feed:
	for _, slug := range slugs {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- slug:
		}
	}
	close(tasks)
	wg.Wait()

	s.logger.Printf("sync: done items=%d fetched=%d failed=%d", res.Items, res.Fetched, res.Failed)
	return res, ctx.Err()
}

// Run performs a single sync. Scheduling is delegated to launchd or cron.
func Run(ctx context.Context, opts Options, loader config.ConfigLoad, tokens graphql.TokenSource) (Result, error) {
	appCfg, err := loader()
	if err != nil {
		return Result{}, err
	}
	if opts.MaxItems > 0 {
		appCfg.Sync.MaxItems = opts.MaxItems
	}

	logFile := strings.TrimSpace(opts.LogFile)
	if logFile == "" {
		logFile = appCfg.LogFile
	}
	logger := log.New(os.Stdout, "[omnitui-sync] ", log.LstdFlags)
	if logFile = config.ExpandPath(logFile); logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
			if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				logger.SetOutput(f)
				defer f.Close()
			}
		}
	}

	svc, err := dataservice.Open(appCfg, tokens, logger)
	if err != nil {
		return Result{}, err
	}
	defer svc.Close()

	res, err := NewSyncer(svc, appCfg.Sync, logger).Sync(ctx)
	if err != nil {
		logger.Printf("sync error: %v", err)
	}
	return res, err
}
