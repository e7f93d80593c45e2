package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Raj5489/Share-Me/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS transfers (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id      TEXT NOT NULL,
	room         TEXT NOT NULL,
	sender       TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	file_size    INTEGER NOT NULL,
	mime_type    TEXT NOT NULL DEFAULT '',
	completed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transfers_completed_at ON transfers(completed_at DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveTransfer appends one completed transfer to the history.
func (s *SQLiteStore) SaveTransfer(ctx context.Context, rec store.TransferRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transfers (file_id, room, sender, file_name, file_size, mime_type, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.FileID, rec.Room, rec.Sender, rec.FileName, rec.FileSize, rec.MimeType,
		rec.CompletedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// ListRecentTransfers returns up to limit records, newest first.
func (s *SQLiteStore) ListRecentTransfers(ctx context.Context, limit int) ([]store.TransferRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_id, room, sender, file_name, file_size, mime_type, completed_at
		 FROM transfers ORDER BY completed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var out []store.TransferRecord
	for rows.Next() {
		var rec store.TransferRecord
		var completedAt int64
		if err := rows.Scan(&rec.FileID, &rec.Room, &rec.Sender, &rec.FileName,
			&rec.FileSize, &rec.MimeType, &completedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		rec.CompletedAt = time.UnixMilli(completedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
