package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// UserConfig is what the setup wizard collects.
type UserConfig struct {
	APIURL       string    `yaml:"api_url"`
	WebURL       string    `yaml:"web_url,omitempty"`
	DatabasePath string    `yaml:"database,omitempty"`
	SyncMaxItems int       `yaml:"sync_max_items,omitempty"`
	IntervalMin  int       `yaml:"interval_min,omitempty"`
	AI           *AIConfig `yaml:"ai,omitempty"`
}

// WriteConfig writes the user configuration to the config file
func WriteConfig(uc UserConfig) (string, error) {
	path, err := Path()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	return path, WriteConfigTo(path, uc)
}

// WriteConfigTo renders uc as YAML at path, keeping an existing database path.
func WriteConfigTo(path string, uc UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	prevDB := ""
	if prev, err := loadExistingConfig(path); err == nil {
		if db, ok := prev["database"].(map[string]any); ok {
			if v, ok := db["path"].(string); ok && strings.TrimSpace(v) != "" {
				prevDB = v
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("# omnitui configuration\n")

	sb.WriteString("api:\n")
	apiURL := strings.TrimSpace(uc.APIURL)
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	sb.WriteString(fmt.Sprintf("  url: %q\n", apiURL))

	if strings.TrimSpace(uc.WebURL) != "" {
		sb.WriteString("web:\n")
		sb.WriteString(fmt.Sprintf("  url: %q\n", strings.TrimSpace(uc.WebURL)))
	}

	dbPath := uc.DatabasePath
	if strings.TrimSpace(prevDB) != "" {
		dbPath = prevDB
	}
	if strings.TrimSpace(dbPath) != "" {
		sb.WriteString("database:\n")
		sb.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	}

	if uc.SyncMaxItems > 0 || uc.IntervalMin > 0 {
		sb.WriteString("sync:\n")
		if uc.SyncMaxItems > 0 {
			sb.WriteString(fmt.Sprintf("  max_items: %d\n", uc.SyncMaxItems))
		}
		if uc.IntervalMin > 0 {
			sb.WriteString(fmt.Sprintf("  interval_min: %d\n", uc.IntervalMin))
		}
	}

	if uc.AI != nil {
		sb.WriteString("ai:\n")
		if strings.TrimSpace(uc.AI.Model) != "" {
			sb.WriteString(fmt.Sprintf("  model: %q\n", uc.AI.Model))
		}
		if strings.TrimSpace(uc.AI.BaseUrl) != "" {
			sb.WriteString(fmt.Sprintf("  base_url: %q\n", uc.AI.BaseUrl))
		}
		if uc.AI.Stream {
			sb.WriteString("  stream: true\n")
		}
		if strings.TrimSpace(uc.AI.ArticlePrompt) != "" {
			sb.WriteString("  article_prompt: |\n")
			for _, line := range strings.Split(uc.AI.ArticlePrompt, "\n") {
				sb.WriteString("    " + line + "\n")
			}
		}
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// loadExistingConfig loads existing configuration from a file
func loadExistingConfig(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// BackupFile creates a backup of the specified file with a timestamp
func BackupFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ts := time.Now().Format("20060102-150405")
	bak := path + ".bak-" + ts
	return os.WriteFile(bak, b, 0o644)
}
