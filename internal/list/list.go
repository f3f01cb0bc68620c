package list

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"omnitui/internal/models"
)

// Library is the part of the data service the listing reads.
type Library interface {
	Library(ctx context.Context, query string, first int, after string) (models.Page, error)
	CachedLibrary(ctx context.Context, limit int) ([]models.FeedItem, error)
	Labels(ctx context.Context) ([]models.FeedItemLabel, error)
}

type Options struct {
	Query   string
	Limit   int
	Offline bool
}

// Run prints the library to out, one block per item.
func Run(ctx context.Context, lib Library, opts Options, out io.Writer) error {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if strings.TrimSpace(opts.Query) == "" {
		opts.Query = "in:inbox"
	}

	var items []models.FeedItem
	if opts.Offline {
		cached, err := lib.CachedLibrary(ctx, opts.Limit)
		if err != nil {
			return fmt.Errorf("failed reading the local cache: %w", err)
		}
		items = cached
	} else {
		page, err := lib.Library(ctx, opts.Query, opts.Limit, "")
		if err != nil {
			return err
		}
		items = page.Items
	}

	if len(items) == 0 {
		if opts.Offline {
			fmt.Fprintln(out, "Nothing cached yet.")
			fmt.Fprintln(out, "Hint: Run 'omnitui sync' to download your library.")
			return nil
		}
		fmt.Fprintf(out, "No items match %q.\n", opts.Query)
		return nil
	}

	fmt.Fprintf(out, "Found %d items:\n\n", len(items))
	now := time.Now()
	for _, it := range items {
		author := it.Author
		if author == "" {
			author = "Unknown author"
		}
		fmt.Fprintf(out, "Slug: %s\n", it.Slug)
		fmt.Fprintf(out, "Title: %s\n", it.Title)
		fmt.Fprintf(out, "Author: %s\n", author)
		fmt.Fprintf(out, "URL: %s\n", it.URL)
		fmt.Fprintf(out, "Saved: %s\n", humanize.RelTime(it.SavedAt, now, "ago", "from now"))
		if names := it.LabelNames(); len(names) > 0 {
			fmt.Fprintf(out, "Labels: %s\n", strings.Join(names, ", "))
		}
		if it.ReadingProgress > 0 {
			fmt.Fprintf(out, "Progress: %.0f%%\n", it.ReadingProgress)
		}
		fmt.Fprintln(out, strings.Repeat("-", 80))
	}
	return nil
}

// Labels prints the viewer's labels.
func Labels(ctx context.Context, lib Library, out io.Writer) error {
	labels, err := lib.Labels(ctx)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		fmt.Fprintln(out, "No labels.")
		return nil
	}
	for _, l := range labels {
		line := fmt.Sprintf("%-24s %s", l.Name, l.Color)
		if l.Description != nil && *l.Description != "" {
			line += "  " + *l.Description
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
