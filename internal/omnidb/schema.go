package omnidb

import "database/sql"

// InitSchema ensures the DB has the tables the client caches into.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS viewer (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            username TEXT NOT NULL,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS feed_items (
            id TEXT PRIMARY KEY,
            slug TEXT NOT NULL UNIQUE,
            title TEXT NOT NULL,
            url TEXT NOT NULL,
            author TEXT,
            description TEXT,
            saved_at TIMESTAMP NOT NULL,
            published_at TIMESTAMP,
            reading_progress REAL DEFAULT 0,
            labels TEXT,
            fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_feed_items_saved_at ON feed_items(saved_at)`,
		`CREATE TABLE IF NOT EXISTS labels (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            color TEXT NOT NULL,
            created_at TIMESTAMP,
            description TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS article_content (
            username TEXT NOT NULL,
            slug TEXT NOT NULL,
            html TEXT NOT NULL,
            fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (username, slug)
        )`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Purge deletes every cached row. Used on logout.
func Purge(db *sql.DB) error {
	for _, table := range []string{"viewer", "feed_items", "labels", "article_content"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return nil
}
