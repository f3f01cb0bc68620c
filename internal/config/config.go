package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL = "https://api-prod.omnivore.app/api/graphql"
	DefaultWebURL = "https://omnivore.app"

	// DefaultArticlePrompt is used by digest when ai.article_prompt is unset.
	DefaultArticlePrompt = `Summarise the following article in five bullet points.

Title: {{.Title}}
Author: {{.Author}}
URL: {{.URL}}

{{.Content}}`
)

type ConfigLoad func() (AppConfig, error)

func AppConfigLoader() ConfigLoad {
	return LoadAppConfig
}

type AIConfig struct {
	BaseUrl       string
	APIKey        string
	Model         string
	ArticlePrompt string
	Stream        bool
}

// SyncConfig drives the offline cache.
type SyncConfig struct {
	MaxItems    int
	Workers     int
	IntervalMin int
	Query       string
}

// AppConfig carries every setting the client reads from disk or env.
type AppConfig struct {
	APIURL            string
	WebURL            string
	RequestTimeoutSec int

	DatabasePath string
	LogFile      string

	Sync   SyncConfig
	AIConf AIConfig
}

// Defaults returns the configuration used when no file is present.
func Defaults() AppConfig {
	return AppConfig{
		APIURL:            DefaultAPIURL,
		WebURL:            DefaultWebURL,
		RequestTimeoutSec: 30,
		DatabasePath:      FallbackDBPath(),
		LogFile:           DefaultLogFile(),
		Sync: SyncConfig{
			MaxItems:    200,
			Workers:     4,
			IntervalMin: 30,
			Query:       "in:inbox",
		},
	}
}

// Dir returns the configuration directory, ~/.config/omnitui unless
// OMNITUI_CONFIG_DIR is set.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("OMNITUI_CONFIG_DIR")); v != "" {
		return ExpandPath(v), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "omnitui"), nil
}

// Path returns the config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func FallbackDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "omnitui.db"
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "omnitui", "omnitui.db")
	}
	return filepath.Join(home, ".local", "share", "omnitui", "omnitui.db")
}

// DefaultLogFile is where the TUI and the sync daemon write their logs.
func DefaultLogFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "omnitui.log"
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "omnitui", "omnitui.log")
	}
	return filepath.Join(home, ".local", "state", "omnitui", "omnitui.log")
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadAppConfig reads ~/.config/omnitui/config.yaml and applies env overrides.
func LoadAppConfig() (AppConfig, error) {
	cfgPath, err := Path()
	if err != nil {
		ac := Defaults()
		applyEnv(&ac)
		return ac, nil
	}
	return LoadAppConfigFrom(cfgPath)
}

// LoadAppConfigFrom reads the config at path. A missing file yields defaults.
func LoadAppConfigFrom(path string) (AppConfig, error) {
	ac := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&ac)
			return ac, nil
		}
		return ac, fmt.Errorf("read config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return ac, fmt.Errorf("parse config %s: %w", path, err)
	}

	if api, ok := raw["api"].(map[string]any); ok {
		if v, ok := api["url"].(string); ok && strings.TrimSpace(v) != "" {
			ac.APIURL = strings.TrimSpace(v)
		}
		if v, ok := intValue(api["timeout"]); ok && v > 0 {
			ac.RequestTimeoutSec = v
		}
	}
	if web, ok := raw["web"].(map[string]any); ok {
		if v, ok := web["url"].(string); ok && strings.TrimSpace(v) != "" {
			ac.WebURL = strings.TrimRight(strings.TrimSpace(v), "/")
		}
	}
	if db, ok := raw["database"].(map[string]any); ok {
		if p, ok := db["path"].(string); ok && strings.TrimSpace(p) != "" {
			ac.DatabasePath = ExpandPath(p)
		}
	}
	if lg, ok := raw["log"].(map[string]any); ok {
		if p, ok := lg["file"].(string); ok && strings.TrimSpace(p) != "" {
			ac.LogFile = ExpandPath(p)
		}
	}
	if s, ok := raw["sync"].(map[string]any); ok {
		if v, ok := intValue(s["max_items"]); ok && v > 0 {
			ac.Sync.MaxItems = v
		}
		if v, ok := intValue(s["workers"]); ok && v > 0 {
			ac.Sync.Workers = v
		}
		if v, ok := intValue(s["interval_min"]); ok && v > 0 {
			ac.Sync.IntervalMin = v
		}
		if v, ok := s["query"].(string); ok && strings.TrimSpace(v) != "" {
			ac.Sync.Query = strings.TrimSpace(v)
		}
	}
	if ai, ok := raw["ai"].(map[string]any); ok {
		if baseUrl, ok := ai["base_url"].(string); ok {
			ac.AIConf.BaseUrl = baseUrl
		}
		if key, ok := ai["api_key"].(string); ok {
			ac.AIConf.APIKey = key
		}
		if model, ok := ai["model"].(string); ok {
			ac.AIConf.Model = model
		}
		if articlePrompt, ok := ai["article_prompt"].(string); ok {
			ac.AIConf.ArticlePrompt = articlePrompt
		}
		if stream, ok := ai["stream"].(bool); ok {
			ac.AIConf.Stream = stream
		}
	}

	applyEnv(&ac)
	return ac, nil
}

func applyEnv(ac *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("OMNIVORE_API_URL")); v != "" {
		ac.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("OMNIVORE_WEB_URL")); v != "" {
		ac.WebURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("OMNITUI_DB")); v != "" {
		ac.DatabasePath = ExpandPath(v)
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" && ac.AIConf.APIKey == "" {
		ac.AIConf.APIKey = v
	}
}

// yaml.v3 decodes numbers as int, but hand-edited files sometimes carry floats.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// ExpandPath expands leading ~ and environment variables in a filesystem path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}
