package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-chi/chi/v5"

	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/task"
)

// documentRouter mounts the handler behind a chi router so URL
// parameters resolve the way they do in production.
func documentRouter(handler *DocumentHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/api/documents", handler.Create)
	r.Get("/api/documents", handler.List)
	r.Get("/api/documents/{id}", handler.Get)
	return r
}

func TestCreateDocumentAccepted(t *testing.T) {
	t.Parallel()

	docs := newMockDocumentStore()
	emitter := &mockEmitter{}
	handler := NewDocumentHandler(docs, emitter, nil)
	userID := uuid.New()

	w := httptest.NewRecorder()
	r := authenticatedRequest(t, "POST", "/api/documents",
		`{"title":"runbook","text":"Restart the worker before the API.","tags":["ops"]}`, userID)
	documentRouter(handler).ServeHTTP(w, r)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp DocumentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "runbook", resp.Title)
	assert.Equal(t, domain.DocumentStatusPending, resp.Status)
	assert.Equal(t, []string{"ops"}, resp.Tags)
	assert.NotContains(t, w.Body.String(), "Restart the worker")

	// The stored document and the emitted event must agree on the ID.
	stored, err := docs.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, stored.OwnerID)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, task.TaskTypeDocumentIngestion, emitter.events[0].Type)

	var payload struct {
		DocumentID string `json:"document_id"`
	}
	require.NoError(t, emitter.events[0].UnmarshalPayload(&payload))
	assert.Equal(t, resp.ID.String(), payload.DocumentID)
}

func TestCreateDocumentValidation(t *testing.T) {
	t.Parallel()

	handler := NewDocumentHandler(newMockDocumentStore(), &mockEmitter{}, nil)

	cases := map[string]string{
		"malformed JSON": `{"title":`,
		"missing title":  `{"text":"some text"}`,
		"missing text":   `{"title":"a title"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := authenticatedRequest(t, "POST", "/api/documents", body, uuid.New())
			documentRouter(handler).ServeHTTP(w, r)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateDocumentEmitFailure(t *testing.T) {
	t.Parallel()

	handler := NewDocumentHandler(newMockDocumentStore(), &mockEmitter{emitErr: assert.AnError}, nil)

	w := httptest.NewRecorder()
	r := authenticatedRequest(t, "POST", "/api/documents",
		`{"title":"runbook","text":"some text"}`, uuid.New())
	documentRouter(handler).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestGetDocument(t *testing.T) {
	t.Parallel()

	docs := newMockDocumentStore()
	docs.chunkCount = 7
	handler := NewDocumentHandler(docs, &mockEmitter{}, nil)
	userID := uuid.New()

	doc, err := domain.NewDocument(userID, "runbook", "some text", nil)
	require.NoError(t, err)
	doc.Status = domain.DocumentStatusCompleted
	require.NoError(t, docs.Create(context.Background(), doc))

	w := httptest.NewRecorder()
	r := authenticatedRequest(t, "GET", "/api/documents/"+doc.ID.String(), "", userID)
	documentRouter(handler).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp DocumentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, doc.ID, resp.ID)
	assert.Equal(t, domain.DocumentStatusCompleted, resp.Status)
	assert.Equal(t, 7, resp.ChunkCount)
}

func TestGetDocumentOfAnotherUserReportsNotFound(t *testing.T) {
	t.Parallel()

	docs := newMockDocumentStore()
	handler := NewDocumentHandler(docs, &mockEmitter{}, nil)

	doc, err := domain.NewDocument(uuid.New(), "private", "some text", nil)
	require.NoError(t, err)
	require.NoError(t, docs.Create(context.Background(), doc))

	w := httptest.NewRecorder()
	r := authenticatedRequest(t, "GET", "/api/documents/"+doc.ID.String(), "", uuid.New())
	documentRouter(handler).ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDocumentInvalidID(t *testing.T) {
	t.Parallel()

	handler := NewDocumentHandler(newMockDocumentStore(), &mockEmitter{}, nil)

	w := httptest.NewRecorder()
	r := authenticatedRequest(t, "GET", "/api/documents/not-a-uuid", "", uuid.New())
	documentRouter(handler).ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDocumentMissing(t *testing.T) {
	t.Parallel()

	handler := NewDocumentHandler(newMockDocumentStore(), &mockEmitter{}, nil)

	w := httptest.NewRecorder()
	r := authenticatedRequest(t, "GET", "/api/documents/"+uuid.NewString(), "", uuid.New())
	documentRouter(handler).ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Document not found")
}

func TestListDocuments(t *testing.T) {
	t.Parallel()

	docs := newMockDocumentStore()
	handler := NewDocumentHandler(docs, &mockEmitter{}, nil)
	userID := uuid.New()

	mine, err := domain.NewDocument(userID, "mine", "some text", nil)
	require.NoError(t, err)
	require.NoError(t, docs.Create(context.Background(), mine))
	other, err := domain.NewDocument(uuid.New(), "other", "some text", nil)
	require.NoError(t, err)
	require.NoError(t, docs.Create(context.Background(), other))

	w := httptest.NewRecorder()
	r := authenticatedRequest(t, "GET", "/api/documents", "", userID)
	documentRouter(handler).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ListDocumentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, mine.ID, resp.Documents[0].ID)
}

func TestDocumentEndpointsRequireAuthentication(t *testing.T) {
	t.Parallel()

	handler := NewDocumentHandler(newMockDocumentStore(), &mockEmitter{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/documents", nil)
	documentRouter(handler).ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
