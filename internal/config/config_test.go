package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppConfigFromMissingFile(t *testing.T) {
	t.Setenv("OMNIVORE_API_URL", "")
	t.Setenv("OMNITUI_DB", "")

	ac, err := LoadAppConfigFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadAppConfigFrom() error = %v", err)
	}
	def := Defaults()
	if ac.APIURL != def.APIURL || ac.Sync.Workers != def.Sync.Workers || ac.RequestTimeoutSec != 30 {
		t.Errorf("expected defaults, got %+v", ac)
	}
}

func TestLoadAppConfigFrom(t *testing.T) {
	t.Setenv("OMNIVORE_API_URL", "")
	t.Setenv("OMNITUI_DB", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  url: "http://localhost:4000/api/graphql"
  timeout: 5
web:
  url: "http://localhost:3000/"
database:
  path: "/tmp/omni.db"
sync:
  max_items: 50
  workers: 2.0
  query: "label:golang"
ai:
  model: "llama3"
  base_url: "http://localhost:11434/v1"
  stream: true
  article_prompt: |
    Summarise {{.Title}}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ac, err := LoadAppConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadAppConfigFrom() error = %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"api url", ac.APIURL, "http://localhost:4000/api/graphql"},
		{"timeout", ac.RequestTimeoutSec, 5},
		{"web url", ac.WebURL, "http://localhost:3000"},
		{"db", ac.DatabasePath, "/tmp/omni.db"},
		{"max items", ac.Sync.MaxItems, 50},
		{"workers", ac.Sync.Workers, 2},
		{"interval default", ac.Sync.IntervalMin, 30},
		{"query", ac.Sync.Query, "label:golang"},
		{"model", ac.AIConf.Model, "llama3"},
		{"stream", ac.AIConf.Stream, true},
		{"prompt", ac.AIConf.ArticlePrompt, "Summarise {{.Title}}\n"},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if c.got != c.want {
				t.Errorf("got %v, want %v", c.got, c.want)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OMNIVORE_API_URL", "http://env/api/graphql")
	t.Setenv("OMNITUI_DB", "/tmp/env.db")

	ac, err := LoadAppConfigFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if ac.APIURL != "http://env/api/graphql" || ac.DatabasePath != "/tmp/env.db" {
		t.Errorf("env overrides not applied: %+v", ac)
	}
}

func TestLoadAppConfigFromInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAppConfigFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	t.Setenv("OMNIVORE_API_URL", "")
	t.Setenv("OMNITUI_DB", "")

	path := filepath.Join(t.TempDir(), "omnitui", "config.yaml")
	uc := UserConfig{
		APIURL:       "http://localhost:4000/api/graphql",
		DatabasePath: "/tmp/first.db",
		SyncMaxItems: 25,
		AI:           &AIConfig{Model: "gpt-4o-mini", ArticlePrompt: "line one\nline two"},
	}
	if err := WriteConfigTo(path, uc); err != nil {
		t.Fatalf("WriteConfigTo() error = %v", err)
	}

	// A second write keeps the database path chosen the first time.
	uc.DatabasePath = "/tmp/second.db"
	if err := WriteConfigTo(path, uc); err != nil {
		t.Fatalf("WriteConfigTo() error = %v", err)
	}

	ac, err := LoadAppConfigFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if ac.DatabasePath != "/tmp/first.db" {
		t.Errorf("DatabasePath = %q, want /tmp/first.db", ac.DatabasePath)
	}
	if ac.Sync.MaxItems != 25 || ac.AIConf.Model != "gpt-4o-mini" {
		t.Errorf("unexpected config %+v", ac)
	}
	if ac.AIConf.ArticlePrompt != "line one\nline two\n" {
		t.Errorf("ArticlePrompt = %q", ac.AIConf.ArticlePrompt)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("OMNITUI_TEST_VALUE=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OMNITUI_TEST_VALUE", "")
	os.Unsetenv("OMNITUI_TEST_VALUE")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("OMNITUI_TEST_VALUE"); got != "from-dotenv" {
		t.Errorf("OMNITUI_TEST_VALUE = %q", got)
	}
}
