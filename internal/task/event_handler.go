package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/loomkit/loom-api/internal/events"
)

// TaskFactory creates executable tasks for a document.
type TaskFactory interface {
	CreateTask(documentID uuid.UUID) (Task, error)
}

// TaskSubmitter accepts tasks for background execution.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// IngestionEventHandler implements the events.EventHandler interface,
// turning document ingestion events into persisted background tasks.
type IngestionEventHandler struct {
	factory   TaskFactory
	submitter TaskSubmitter
	logger    *slog.Logger
}

// NewIngestionEventHandler creates an event handler that uses the given
// factory to create ingestion tasks and submits them to the runner.
func NewIngestionEventHandler(
	factory TaskFactory,
	submitter TaskSubmitter,
	logger *slog.Logger,
) *IngestionEventHandler {
	return &IngestionEventHandler{
		factory:   factory,
		submitter: submitter,
		logger:    logger.With("component", "ingestion_event_handler"),
	}
}

var _ events.EventHandler = (*IngestionEventHandler)(nil)

// HandleEvent processes document ingestion events by creating and
// submitting tasks. Events of other types are ignored.
func (h *IngestionEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeDocumentIngestion {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload struct {
		DocumentID string `json:"document_id"`
	}
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	documentID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		h.logger.Error("invalid document ID",
			"error", err,
			"document_id", payload.DocumentID,
			"event_id", event.ID)
		return fmt.Errorf("invalid document ID: %w", err)
	}

	t, err := h.factory.CreateTask(documentID)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"document_id", documentID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.submitter.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", t.ID(),
			"document_id", documentID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("ingestion task created and submitted",
		"task_id", t.ID(),
		"document_id", documentID,
		"event_id", event.ID)
	return nil
}
