// Package applog is the relational bookkeeping store: the document registry
// and the chat interaction log. It owns Document rows; the vector index only
// references their ids.
package applog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/stackmint/docqa/internal/domain"
)

// Store is a SQLite-backed registry and chat log.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the database at path.
func NewStore(path string) (*Store, error) {
	// WAL mode so reads do not block the write path under concurrent requests.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database availability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func (s *Store) migrate() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS document_store (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			upload_timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS application_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_query TEXT NOT NULL,
			answer TEXT NOT NULL,
			model TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// InsertDocument records an uploaded document and returns its assigned id.
func (s *Store) InsertDocument(ctx context.Context, filename string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO document_store (filename) VALUES (?)`, filename)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("document id: %w", err)
	}
	return id, nil
}

// DeleteDocument removes a document record. Deleting an absent id is a no-op.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM document_store WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	return nil
}

// GetDocument fetches one registry row.
func (s *Store) GetDocument(ctx context.Context, id int64) (domain.DocumentInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, upload_timestamp FROM document_store WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return domain.DocumentInfo{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("get document %d: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns all uploaded documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, upload_timestamp FROM document_store
		 ORDER BY upload_timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.DocumentInfo
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// InsertChatLog records one chat interaction.
func (s *Store) InsertChatLog(ctx context.Context, sessionID, query, answer, model string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO application_logs (session_id, user_query, answer, model)
		 VALUES (?, ?, ?, ?)`,
		sessionID, query, answer, model); err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.DocumentInfo, error) {
	var (
		doc domain.DocumentInfo
		ts  string
	)
	if err := row.Scan(&doc.ID, &doc.Filename, &ts); err != nil {
		return domain.DocumentInfo{}, err
	}
	doc.UploadedAt = parseTimestamp(ts)
	return doc, nil
}

// parseTimestamp handles both SQLite's CURRENT_TIMESTAMP format and RFC 3339.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
