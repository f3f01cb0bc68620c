// Package digest summarises a saved article with an OpenAI-compatible model.
package digest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"omnitui/internal/config"
	"omnitui/internal/dataservice"
	"omnitui/internal/markdown"
	"omnitui/internal/models"
)

// Article is the data available to the prompt template.
type Article struct {
	Title   string
	Author  string
	URL     string
	Content string
}

// Source loads a saved article.
type Source interface {
	CurrentViewer(ctx context.Context) (*models.Viewer, error)
	Item(ctx context.Context, slug string) (models.FeedItem, error)
	ArticleContent(ctx context.Context, username, slug string) (string, error)
}

// LoadArticle resolves slug to its metadata and content as markdown. Items
// missing from the cache are still summarised, titled by their slug.
func LoadArticle(ctx context.Context, src Source, slug string) (Article, error) {
	a := Article{Title: slug}
	item, err := src.Item(ctx, slug)
	switch {
	case err == nil:
		a.Title, a.Author, a.URL = item.Title, item.Author, item.URL
	case !errors.Is(err, dataservice.ErrNotFound):
		return a, err
	}

	viewer, err := src.CurrentViewer(ctx)
	if err != nil {
		return a, err
	}
	html, err := src.ArticleContent(ctx, viewer.Username, slug)
	if err != nil {
		return a, err
	}
	a.Content = markdown.FromHTML(html, a.URL)
	if strings.TrimSpace(a.Content) == "" {
		return a, fmt.Errorf("article %s has no content", slug)
	}
	return a, nil
}

type Digester struct {
	client openai.Client
	cfg    config.AIConfig
	prompt *template.Template
}

func New(cfg config.AIConfig) (*Digester, error) {
	if cfg.BaseUrl == "" {
		return nil, fmt.Errorf("AI base URL is not configured")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("AI model is not configured")
	}
	if cfg.ArticlePrompt == "" {
		cfg.ArticlePrompt = config.DefaultArticlePrompt
	}
	tmpl, err := template.New("article").Parse(cfg.ArticlePrompt)
	if err != nil {
		return nil, fmt.Errorf("parse article prompt: %w", err)
	}
	opts := []option.RequestOption{option.WithBaseURL(cfg.BaseUrl), option.WithMaxRetries(1)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &Digester{client: openai.NewClient(opts...), cfg: cfg, prompt: tmpl}, nil
}

// Prompt renders the prompt for a.
func (d *Digester) Prompt(a Article) (string, error) {
	var buf bytes.Buffer
	if err := d.prompt.Execute(&buf, a); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Summarise asks the model for a summary and writes it to out, streaming
// when configured. The full text is also returned.
func (d *Digester) Summarise(ctx context.Context, a Article, out io.Writer) (string, error) {
	prompt, err := d.Prompt(a)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:    d.cfg.Model,
	}

	if d.cfg.Stream {
		stream := d.client.Chat.Completions.NewStreaming(ctx, params)
		var sb strings.Builder
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				sb.WriteString(chunk.Choices[0].Delta.Content)
				fmt.Fprint(out, chunk.Choices[0].Delta.Content)
			}
		}
		if err := stream.Err(); err != nil {
			return sb.String(), fmt.Errorf("stream error: %w", err)
		}
		fmt.Fprintln(out)
		return sb.String(), nil
	}

	completion, err := d.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to get AI completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices")
	}
	text := completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("AI returned empty content")
	}
	fmt.Fprintln(out, text)
	return text, nil
}

// Run summarises the article saved under slug.
func Run(ctx context.Context, slug string, cfg config.AIConfig, src Source, out io.Writer) error {
	d, err := New(cfg)
	if err != nil {
		return err
	}
	a, err := LoadArticle(ctx, src, slug)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Digesting %q (%d characters) with %s\n\n", a.Title, len(a.Content), cfg.Model)
	_, err = d.Summarise(ctx, a, out)
	return err
}
