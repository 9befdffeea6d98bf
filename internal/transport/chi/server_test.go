package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stackmint/docqa/internal/domain"
	"github.com/stackmint/docqa/internal/metrics"
	answeruc "github.com/stackmint/docqa/internal/usecase/answer"
	documentuc "github.com/stackmint/docqa/internal/usecase/document"
	healthuc "github.com/stackmint/docqa/internal/usecase/health"
	"github.com/stackmint/docqa/internal/usecase/rag"
)

func TestMain(m *testing.M) {
	metrics.RegisterRAGMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type memRegistry struct {
	nextID int64
	docs   map[int64]domain.DocumentInfo
	err    error
}

func newMemRegistry() *memRegistry {
	return &memRegistry{nextID: 1, docs: map[int64]domain.DocumentInfo{}}
}

func (m *memRegistry) InsertDocument(_ context.Context, filename string) (int64, error) {
	id := m.nextID
	m.nextID++
	m.docs[id] = domain.DocumentInfo{ID: id, Filename: filename, UploadedAt: time.Now()}
	return id, nil
}

func (m *memRegistry) GetDocument(_ context.Context, id int64) (domain.DocumentInfo, error) {
	doc, ok := m.docs[id]
	if !ok {
		return domain.DocumentInfo{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *memRegistry) DeleteDocument(_ context.Context, id int64) error {
	delete(m.docs, id)
	return nil
}

func (m *memRegistry) ListDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.DocumentInfo
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

type memIndex struct {
	records []domain.Chunk
}

func (m *memIndex) Add(_ context.Context, chunks []domain.Chunk) error {
	m.records = append(m.records, chunks...)
	return nil
}

func (m *memIndex) DeleteByDocument(_ context.Context, docID int64) (int, error) {
	kept := m.records[:0]
	removed := 0
	for _, c := range m.records {
		if c.DocumentID == docID {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	m.records = kept
	return removed, nil
}

func (m *memIndex) Len() int { return len(m.records) }

type unitSplitter struct{}

func (unitSplitter) SplitUnits(units []domain.Unit, docID int64) []domain.Chunk {
	var chunks []domain.Chunk
	for _, u := range units {
		chunks = append(chunks, domain.Chunk{Text: u.Text, DocumentID: docID})
	}
	return chunks
}

type fixedRetriever struct {
	hits []domain.ScoredChunk
}

func (m fixedRetriever) Retrieve(_ context.Context, _ string) ([]domain.ScoredChunk, error) {
	return m.hits, nil
}

type fixedCompleter struct {
	reply string
	err   error
}

func (m fixedCompleter) Complete(_ context.Context, _, _, _, _ string) (string, error) {
	return m.reply, m.err
}

func (m fixedCompleter) DefaultModel() string { return "test-model" }

type memChatLog struct {
	sessions []string
	answers  []string
}

func (m *memChatLog) InsertChatLog(_ context.Context, sessionID, _, answer, _ string) error {
	m.sessions = append(m.sessions, sessionID)
	m.answers = append(m.answers, answer)
	return nil
}

type stubStack struct {
	services *rag.Services
	err      error
}

func (m stubStack) Services(_ context.Context) (*rag.Services, error) {
	return m.services, m.err
}

type stubHealth struct {
	report healthuc.Report
}

func (m stubHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Harness ---

type fixture struct {
	registry *memRegistry
	index    *memIndex
	chatLog  *memChatLog
	router   *chirouter.Mux
}

func newFixture(t *testing.T, completer answeruc.Completer, stackErr error) *fixture {
	t.Helper()

	registry := newMemRegistry()
	index := &memIndex{}
	chatLog := &memChatLog{}

	loadText := func(path string) ([]domain.Unit, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []domain.Unit{{Text: string(data)}}, nil
	}

	docs := documentuc.New(registry, index, unitSplitter{}, loadText, zap.NewNop())
	answers := answeruc.New(
		fixedRetriever{hits: []domain.ScoredChunk{{Chunk: domain.Chunk{Text: "The sky is blue."}}}},
		completer, zap.NewNop())

	stack := stubStack{services: &rag.Services{Documents: docs, Answers: answers}, err: stackErr}
	health := stubHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}}

	server := NewServer(stack, registry, chatLog, health, t.TempDir(), zap.NewNop())
	router := chirouter.NewRouter()
	server.Routes(router)

	return &fixture{registry: registry, index: index, chatLog: chatLog, router: router}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func uploadFile(t *testing.T, router http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-doc", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestChat_AnswersAndLogs(t *testing.T) {
	f := newFixture(t, fixedCompleter{reply: "It is blue."}, nil)

	rec := f.do(t, http.MethodPost, "/chat", QueryInput{Question: "What color is the sky?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "It is blue." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.SessionID == "" {
		t.Error("missing session id must be generated")
	}
	if resp.Model != "test-model" {
		t.Errorf("model = %q, want the default", resp.Model)
	}

	if len(f.chatLog.sessions) != 1 || f.chatLog.sessions[0] != resp.SessionID {
		t.Errorf("chat log sessions = %v, want [%s]", f.chatLog.sessions, resp.SessionID)
	}
}

func TestChat_KeepsProvidedSessionID(t *testing.T) {
	f := newFixture(t, fixedCompleter{reply: "ok"}, nil)

	rec := f.do(t, http.MethodPost, "/chat", QueryInput{Question: "q", SessionID: "session-42"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp QueryResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.SessionID != "session-42" {
		t.Errorf("session id = %q, want session-42", resp.SessionID)
	}
}

func TestChat_EmptyQuestionRejected(t *testing.T) {
	f := newFixture(t, fixedCompleter{reply: "ok"}, nil)

	rec := f.do(t, http.MethodPost, "/chat", QueryInput{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChat_StackFailureIs503(t *testing.T) {
	f := newFixture(t, fixedCompleter{reply: "ok"},
		fmt.Errorf("stack initialization failed: %w", domain.ErrNotReady))

	rec := f.do(t, http.MethodPost, "/chat", QueryInput{Question: "q"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestChat_GenerationFailureIs502(t *testing.T) {
	f := newFixture(t, fixedCompleter{err: domain.ErrModelProviderError}, nil)

	rec := f.do(t, http.MethodPost, "/chat", QueryInput{Question: "q"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestUploadThenListThenDelete(t *testing.T) {
	f := newFixture(t, fixedCompleter{reply: "ok"}, nil)

	rec := uploadFile(t, f.router, "notes.txt", "Some document content.")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var up UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &up); err != nil {
		t.Fatal(err)
	}
	if up.FileID == 0 || up.Chunks == 0 {
		t.Errorf("upload response = %+v", up)
	}
	if f.index.Len() != up.Chunks {
		t.Errorf("index has %d records, response says %d", f.index.Len(), up.Chunks)
	}

	rec = f.do(t, http.MethodGet, "/list-docs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var docs []DocumentInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Filename != "notes.txt" {
		t.Errorf("list = %+v", docs)
	}

	rec = f.do(t, http.MethodPost, "/delete-doc", DeleteFileRequest{FileID: up.FileID})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var del DeleteFileResponse
	json.Unmarshal(rec.Body.Bytes(), &del)
	if del.ChunksRemoved != up.Chunks {
		t.Errorf("chunks removed = %d, want %d", del.ChunksRemoved, up.Chunks)
	}
	if f.index.Len() != 0 {
		t.Errorf("index has %d records after delete", f.index.Len())
	}
}

func TestUpload_MissingFileRejected(t *testing.T) {
	f := newFixture(t, fixedCompleter{reply: "ok"}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("unrelated", "value")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-doc", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_UnsupportedExtensionRejected(t *testing.T) {
	f := newFixture(t, fixedCompleter{reply: "ok"}, nil)

	rec := uploadFile(t, f.router, "payload.xyz", "binary junk")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "unsupported_format" {
		t.Errorf("code = %q, want unsupported_format", resp.Code)
	}
	if len(f.registry.docs) != 0 {
		t.Error("registry row created for a rejected upload")
	}
	if f.index.Len() != 0 {
		t.Error("index mutated by a rejected upload")
	}
}

func TestDeleteDoc_InvalidIDRejected(t *testing.T) {
	f := newFixture(t, fixedCompleter{reply: "ok"}, nil)

	rec := f.do(t, http.MethodPost, "/delete-doc", DeleteFileRequest{FileID: 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth_OK(t *testing.T) {
	f := newFixture(t, fixedCompleter{reply: "ok"}, nil)

	rec := f.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v", resp["status"])
	}
}

func TestHealth_Degraded(t *testing.T) {
	server := NewServer(
		stubStack{}, newMemRegistry(), &memChatLog{},
		stubHealth{report: healthuc.Report{
			Status: healthuc.Degraded,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckError},
		}},
		t.TempDir(), zap.NewNop())
	router := chirouter.NewRouter()
	server.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
