package dataservice

import (
	"fmt"
	"log"
	"time"

	"omnitui/internal/config"
	"omnitui/internal/graphql"
	"omnitui/internal/httpclient"
	"omnitui/internal/omnidb"
)

// Open builds a service from the app config: an HTTP client with the
// configured timeout, the GraphQL endpoint and the SQLite cache.
func Open(cfg config.AppConfig, tokens graphql.TokenSource, logger *log.Logger) (*Service, error) {
	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	gql := graphql.NewClient(cfg.APIURL, httpclient.New(timeout),
		graphql.WithTokenSource(tokens),
		graphql.WithLogger(logger),
	)

	dbPath := config.ExpandPath(cfg.DatabasePath)
	if dbPath == "" {
		dbPath = config.FallbackDBPath()
	}
	db, err := omnidb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", dbPath, err)
	}
	return New(gql, db, logger), nil
}

// Close releases the cache.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
