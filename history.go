package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// HistoryEntry is one spoken text record
type HistoryEntry struct {
	ID     int64
	Owner  string
	Text   string
	ReadAt time.Time
}

// HistoryManager persists spoken text to a local SQLite database so
// users can revisit what was read after the speech is gone
type HistoryManager struct {
	db         *sql.DB
	maxEntries int
}

// NewHistoryManager opens (or creates) the history database
func NewHistoryManager(path string, maxEntries int) (*HistoryManager, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %v", err)
	}

	hm := &HistoryManager{db: db, maxEntries: maxEntries}
	if err := hm.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return hm, nil
}

func (hm *HistoryManager) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS spoken_text (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		text TEXT NOT NULL,
		read_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_spoken_text_read_at ON spoken_text(read_at);
	`
	if _, err := hm.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create history schema: %v", err)
	}
	return nil
}

// Record stores one spoken text and prunes beyond the retention limit
func (hm *HistoryManager) Record(owner, text string) error {
	if text == "" {
		return nil
	}

	_, err := hm.db.Exec(
		"INSERT INTO spoken_text (owner, text) VALUES (?, ?)",
		owner, text,
	)
	if err != nil {
		return fmt.Errorf("failed to record spoken text: %v", err)
	}

	return hm.prune()
}

// prune deletes the oldest rows past the retention limit
func (hm *HistoryManager) prune() error {
	_, err := hm.db.Exec(`
		DELETE FROM spoken_text WHERE id NOT IN (
			SELECT id FROM spoken_text ORDER BY id DESC LIMIT ?
		)`, hm.maxEntries)
	return err
}

// Latest returns the most recent entries, newest first
func (hm *HistoryManager) Latest(limit int) ([]HistoryEntry, error) {
	rows, err := hm.db.Query(
		"SELECT id, owner, text, read_at FROM spoken_text ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %v", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.Owner, &entry.Text, &entry.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database
func (hm *HistoryManager) Close() error {
	return hm.db.Close()
}
