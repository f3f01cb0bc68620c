package omnidb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"omnitui/internal/models"
)

// Open opens (creating if needed) the SQLite cache at dbPath and ensures the schema.
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// SaveViewer replaces the cached viewer.
func SaveViewer(ctx context.Context, db *sql.DB, v models.Viewer) error {
	if strings.TrimSpace(v.ID) == "" {
		return errors.New("missing viewer id")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM viewer`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO viewer (id, name, username, updated_at) VALUES (?, ?, ?, ?)`,
		v.ID, v.Name, v.Username, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// GetViewer returns the cached viewer, or nil when none is cached.
func GetViewer(ctx context.Context, db *sql.DB) (*models.Viewer, error) {
	var v models.Viewer
	err := db.QueryRowContext(ctx, `SELECT id, name, username FROM viewer LIMIT 1`).Scan(&v.ID, &v.Name, &v.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

type labelRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Color       string     `json:"color"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	Description *string    `json:"description,omitempty"`
}

func encodeLabels(ls []models.FeedItemLabel) (string, error) {
	recs := make([]labelRecord, 0, len(ls))
	for _, l := range ls {
		recs = append(recs, labelRecord(l))
	}
	b, err := json.Marshal(recs)
	return string(b), err
}

func decodeLabels(s sql.NullString) []models.FeedItemLabel {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return nil
	}
	var recs []labelRecord
	if err := json.Unmarshal([]byte(s.String), &recs); err != nil {
		return nil
	}
	out := make([]models.FeedItemLabel, 0, len(recs))
	for _, r := range recs {
		out = append(out, models.FeedItemLabel(r))
	}
	return out
}

// UpsertItems stores library items keyed by id.
func UpsertItems(ctx context.Context, db *sql.DB, items []models.FeedItem) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO feed_items
        (id, slug, title, url, author, description, saved_at, published_at, reading_progress, labels, fetched_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
           slug=excluded.slug,
           title=excluded.title,
           url=excluded.url,
           author=excluded.author,
           description=excluded.description,
           saved_at=excluded.saved_at,
           published_at=excluded.published_at,
           reading_progress=excluded.reading_progress,
           labels=excluded.labels,
           fetched_at=excluded.fetched_at
        `)
	if err != nil {
		return err
	}
	defer stmt.Close()
	now := time.Now().UTC()
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.Slug) == "" {
			return errors.New("missing id or slug")
		}
		labels, err := encodeLabels(it.Labels)
		if err != nil {
			return err
		}
		var published any
		if it.PublishedAt != nil {
			published = it.PublishedAt.UTC()
		}
		if _, err := stmt.ExecContext(ctx, it.ID, it.Slug, it.Title, it.URL, nullIfEmpty(it.Author), nullIfEmpty(it.Description),
			it.SavedAt.UTC(), published, it.ReadingProgress, labels, now); err != nil {
			return fmt.Errorf("upsert %s: %w", it.Slug, err)
		}
	}
	return tx.Commit()
}

const itemColumns = `id, slug, title, url, author, description, saved_at, published_at, reading_progress, labels`

func scanItem(sc interface{ Scan(...any) error }) (models.FeedItem, error) {
	var (
		it          models.FeedItem
		author      sql.NullString
		description sql.NullString
		published   sql.NullTime
		labels      sql.NullString
	)
	if err := sc.Scan(&it.ID, &it.Slug, &it.Title, &it.URL, &author, &description, &it.SavedAt, &published, &it.ReadingProgress, &labels); err != nil {
		return it, err
	}
	it.Author = author.String
	it.Description = description.String
	if published.Valid {
		t := published.Time
		it.PublishedAt = &t
	}
	it.Labels = decodeLabels(labels)
	return it, nil
}

// GetItems returns cached items, newest saved first. limit <= 0 means all.
func GetItems(ctx context.Context, db *sql.DB, limit int) ([]models.FeedItem, error) {
	q := `SELECT ` + itemColumns + ` FROM feed_items ORDER BY saved_at DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.FeedItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetItemBySlug returns the cached item or nil.
func GetItemBySlug(ctx context.Context, db *sql.DB, slug string) (*models.FeedItem, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM feed_items WHERE slug = ?`, slug)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

// ReplaceLabels swaps the cached label set for ls.
func ReplaceLabels(ctx context.Context, db *sql.DB, ls []models.FeedItemLabel) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM labels`); err != nil {
		return err
	}
	for _, l := range ls {
		var created any
		if l.CreatedAt != nil {
			created = l.CreatedAt.UTC()
		}
		var desc any
		if l.Description != nil {
			desc = *l.Description
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO labels (id, name, color, created_at, description) VALUES (?, ?, ?, ?, ?)`,
			l.ID, l.Name, l.Color, created, desc); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetLabels returns cached labels ordered by name.
func GetLabels(ctx context.Context, db *sql.DB) ([]models.FeedItemLabel, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, color, created_at, description FROM labels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.FeedItemLabel
	for rows.Next() {
		var (
			l       models.FeedItemLabel
			created sql.NullTime
			desc    sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &created, &desc); err != nil {
			return nil, err
		}
		if created.Valid {
			t := created.Time
			l.CreatedAt = &t
		}
		if desc.Valid {
			d := desc.String
			l.Description = &d
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SaveContent caches the article HTML for (username, slug).
func SaveContent(ctx context.Context, db *sql.DB, username, slug, html string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(slug) == "" {
		return errors.New("missing username or slug")
	}
	_, err := db.ExecContext(ctx, `INSERT INTO article_content (username, slug, html, fetched_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(username, slug) DO UPDATE SET html=excluded.html, fetched_at=excluded.fetched_at`,
		username, slug, html, time.Now().UTC())
	return err
}

// GetContent returns cached HTML and whether it was present.
func GetContent(ctx context.Context, db *sql.DB, username, slug string) (string, bool, error) {
	var html string
	err := db.QueryRowContext(ctx, `SELECT html FROM article_content WHERE username = ? AND slug = ?`, username, slug).Scan(&html)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return html, true, nil
}

// SlugsWithoutContent lists cached item slugs that have no cached HTML for username.
func SlugsWithoutContent(ctx context.Context, db *sql.DB, username string, limit int) ([]string, error) {
	q := `SELECT f.slug FROM feed_items f
        LEFT JOIN article_content c ON c.slug = f.slug AND c.username = ?
        WHERE c.slug IS NULL ORDER BY f.saved_at DESC`
	args := []any{username}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
