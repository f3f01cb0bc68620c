package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"omnitui/internal/auth"
	"omnitui/internal/config"
	"omnitui/internal/dataservice"
)

// env is what every command needs: the loaded config, the credential store
// and a logger.
type env struct {
	cfg    config.AppConfig
	store  *auth.FileStore
	logger *log.Logger
	close  func()
}

func loadEnv(logToFile bool) (*env, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadAppConfig()
	if err != nil {
		return nil, err
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}

	e := &env{
		cfg:    cfg,
		store:  auth.NewFileStore(dir),
		logger: log.New(os.Stderr, "[omnitui] ", log.LstdFlags),
		close:  func() {},
	}
	if logToFile {
		e.logger.SetOutput(io.Discard)
		path := strings.TrimSpace(cfg.LogFile)
		if path == "" {
			path = config.DefaultLogFile()
		}
		path = config.ExpandPath(path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				e.logger.SetOutput(f)
				e.close = func() { _ = f.Close() }
			}
		}
	}
	return e, nil
}

// service opens the data service. Commands that need an account call
// requireLogin first.
func (e *env) service() (*dataservice.Service, error) {
	return dataservice.Open(e.cfg, e.store, e.logger)
}

func (e *env) requireLogin() error {
	if _, err := e.store.Load(); err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			return fmt.Errorf("not logged in: run 'omnitui login' or set %s", auth.EnvAPIKey)
		}
		return err
	}
	return nil
}
