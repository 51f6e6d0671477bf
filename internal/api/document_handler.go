package api

import (
	"log/slog"
	"net/http"

	"github.com/loomkit/loom-api/internal/api/shared"
	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/events"
	"github.com/loomkit/loom-api/internal/platform/logger"
	"github.com/loomkit/loom-api/internal/store"
	"github.com/loomkit/loom-api/internal/task"
)

// DocumentHandler handles document submission and status queries.
// Submission persists the document and emits an ingestion event; the
// heavy lifting (chunking, embedding) happens in the background.
type DocumentHandler struct {
	docStore store.DocumentStore
	emitter  events.EventEmitter
	logger   *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler with the given
// dependencies.
func NewDocumentHandler(
	docStore store.DocumentStore,
	emitter events.EventEmitter,
	log *slog.Logger,
) *DocumentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DocumentHandler{
		docStore: docStore,
		emitter:  emitter,
		logger:   log.With(slog.String("component", "document_handler")),
	}
}

// Create handles POST /api/documents. The document is stored in pending
// status and queued for ingestion; the response is 202 Accepted.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User not authenticated")
		return
	}

	var req CreateDocumentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	doc, err := domain.NewDocument(userID, req.Title, req.Text, req.Tags)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid document data")
		return
	}

	if err := h.docStore.Create(r.Context(), doc); err != nil {
		log.Error("failed to create document", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "Failed to create document")
		return
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeDocumentIngestion, map[string]string{
		"document_id": doc.ID.String(),
	})
	if err != nil {
		log.Error("failed to create ingestion event",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		HandleAPIError(w, r, err, "Failed to queue document for ingestion")
		return
	}

	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		// The document is stored; ingestion can be retried via cmd/ingest
		// or a re-submission, so report the queueing failure honestly.
		log.Error("failed to emit ingestion event",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		HandleAPIError(w, r, err, "Failed to queue document for ingestion")
		return
	}

	log.Info("document accepted for ingestion",
		slog.String("document_id", doc.ID.String()),
		slog.Int("text_length", len(req.Text)))

	shared.RespondWithJSON(w, r, http.StatusAccepted, newDocumentResponse(doc, 0))
}

// Get handles GET /api/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User not authenticated")
		return
	}

	docID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid document ID")
		return
	}

	doc, err := h.docStore.GetByID(r.Context(), docID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Other users' documents are reported as missing, not forbidden, so
	// the endpoint doesn't confirm which IDs exist.
	if doc.OwnerID != userID {
		HandleAPIError(w, r, store.ErrDocumentNotFound, "")
		return
	}

	chunkCount, err := h.docStore.CountChunks(r.Context(), docID)
	if err != nil {
		log.Error("failed to count chunks",
			slog.String("error", err.Error()),
			slog.String("document_id", docID.String()))
		HandleAPIError(w, r, err, "Failed to load document")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newDocumentResponse(doc, chunkCount))
}

// List handles GET /api/documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User not authenticated")
		return
	}

	docs, err := h.docStore.ListByOwner(r.Context(), userID, listLimit(r), listOffset(r))
	if err != nil {
		log.Error("failed to list documents", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "Failed to list documents")
		return
	}

	resp := ListDocumentsResponse{Documents: make([]DocumentResponse, 0, len(docs))}
	for i := range docs {
		resp.Documents = append(resp.Documents, newDocumentResponse(&docs[i], 0))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
