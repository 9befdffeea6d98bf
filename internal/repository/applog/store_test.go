package applog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stackmint/docqa/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.InsertDocument(ctx, "report.pdf")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id2, err := s.InsertDocument(ctx, "notes.txt")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("ids must be monotonic: %d then %d", id1, id2)
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	// Newest first; same-second uploads fall back to id ordering.
	if docs[0].ID != id2 || docs[0].Filename != "notes.txt" {
		t.Errorf("first row = %+v, want newest upload", docs[0])
	}
	if docs[0].UploadedAt.IsZero() {
		t.Error("upload timestamp was not recorded")
	}

	got, err := s.GetDocument(ctx, id1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Filename != "report.pdf" {
		t.Errorf("filename = %q, want report.pdf", got.Filename)
	}

	if err := s.DeleteDocument(ctx, id1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetDocument(ctx, id1); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound after delete, got %v", err)
	}

	// Deleting again is a no-op.
	if err := s.DeleteDocument(ctx, id1); err != nil {
		t.Errorf("repeat delete: %v", err)
	}

	docs, err = s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != id2 {
		t.Errorf("surviving rows = %+v, want only id %d", docs, id2)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetDocument(context.Background(), 12345)
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestInsertChatLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InsertChatLog(ctx, "session-1", "what is up?", "the sky", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("insert chat log: %v", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM application_logs WHERE session_id = ?`, "session-1").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d log rows, want 1", count)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
