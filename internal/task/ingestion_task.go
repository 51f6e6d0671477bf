package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilIngestor     = errors.New("ingestor cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrEmptyDocumentID = errors.New("document ID cannot be empty")
)

// DocumentIngestor defines the interface for the ingestion pipeline that
// chunks a document, embeds the chunks, and stores them for retrieval.
type DocumentIngestor interface {
	// IngestDocument runs the full ingestion pipeline for the given
	// document, updating its status along the way.
	IngestDocument(ctx context.Context, documentID uuid.UUID) error
}

// ingestionPayload represents the serialized data stored in the task
type ingestionPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// DocumentIngestionTask implements the Task interface for chunking and
// embedding an uploaded document.
type DocumentIngestionTask struct {
	id         uuid.UUID
	documentID uuid.UUID
	ingestor   DocumentIngestor
	logger     *slog.Logger
	status     TaskStatus
}

// NewDocumentIngestionTask creates a new document ingestion task.
func NewDocumentIngestionTask(
	documentID uuid.UUID,
	ingestor DocumentIngestor,
	logger *slog.Logger,
) (*DocumentIngestionTask, error) {
	if ingestor == nil {
		return nil, ErrNilIngestor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if documentID == uuid.Nil {
		return nil, ErrEmptyDocumentID
	}

	return &DocumentIngestionTask{
		id:         uuid.New(),
		documentID: documentID,
		ingestor:   ingestor,
		logger:     logger.With("task_type", TaskTypeDocumentIngestion, "document_id", documentID),
		status:     TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *DocumentIngestionTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *DocumentIngestionTask) Type() string {
	return TaskTypeDocumentIngestion
}

// Payload returns the task data as a byte slice
func (t *DocumentIngestionTask) Payload() []byte {
	data, err := json.Marshal(ingestionPayload{DocumentID: t.documentID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *DocumentIngestionTask) Status() TaskStatus {
	return t.status
}

// Execute runs the ingestion pipeline for the document. The ingestor owns
// the document status transitions; the task only tracks its own lifecycle.
func (t *DocumentIngestionTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting document ingestion task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.ingestor.IngestDocument(ctx, t.documentID); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("document ingestion failed", "error", err)
		return fmt.Errorf("document ingestion failed: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("document ingestion task completed")
	return nil
}

// IngestionTaskFactory creates document ingestion tasks bound to the
// ingestion pipeline. It also serves as the Reconstructor for ingestion
// tasks recovered from storage.
type IngestionTaskFactory struct {
	ingestor DocumentIngestor
	logger   *slog.Logger
}

// NewIngestionTaskFactory creates a new IngestionTaskFactory.
func NewIngestionTaskFactory(ingestor DocumentIngestor, logger *slog.Logger) (*IngestionTaskFactory, error) {
	if ingestor == nil {
		return nil, ErrNilIngestor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &IngestionTaskFactory{
		ingestor: ingestor,
		logger:   logger,
	}, nil
}

// CreateTask builds a new ingestion task for the given document.
func (f *IngestionTaskFactory) CreateTask(documentID uuid.UUID) (Task, error) {
	return NewDocumentIngestionTask(documentID, f.ingestor, f.logger)
}

var _ Reconstructor = (*IngestionTaskFactory)(nil)

// Reconstruct implements Reconstructor. It rebuilds an executable
// ingestion task from its persisted form, preserving the original task ID
// so status updates target the stored row.
func (f *IngestionTaskFactory) Reconstruct(rec RecoveredTask) (Task, error) {
	if rec.Type != TaskTypeDocumentIngestion {
		return nil, fmt.Errorf("unsupported task type: %s", rec.Type)
	}

	var payload ingestionPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingestion payload: %w", err)
	}
	if payload.DocumentID == uuid.Nil {
		return nil, ErrEmptyDocumentID
	}

	return &DocumentIngestionTask{
		id:         rec.ID,
		documentID: payload.DocumentID,
		ingestor:   f.ingestor,
		logger:     f.logger.With("task_type", TaskTypeDocumentIngestion, "document_id", payload.DocumentID),
		status:     rec.Status,
	}, nil
}
