package events

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	events []*TaskRequestEvent
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *TaskRequestEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestNewTaskRequestEvent(t *testing.T) {
	t.Parallel()

	event, err := NewTaskRequestEvent("document_ingestion", map[string]string{
		"document_id": "doc-1",
	})
	require.NoError(t, err)

	assert.NotEqual(t, event.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, "document_ingestion", event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var payload struct {
		DocumentID string `json:"document_id"`
	}
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "doc-1", payload.DocumentID)
}

func TestEmitEventDispatchesToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(slog.Default())
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler(first)
	emitter.RegisterHandler(second)

	event, err := NewTaskRequestEvent("document_ingestion", nil)
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(context.Background(), event))
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestEmitEventReturnsFirstErrorButContinues(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(slog.Default())
	boom := errors.New("boom")
	failing := &recordingHandler{err: boom}
	ok := &recordingHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(ok)

	event, err := NewTaskRequestEvent("document_ingestion", nil)
	require.NoError(t, err)

	err = emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.events, 1, "remaining handlers still receive the event")
}

func TestEmitEventWithNoHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(slog.Default())
	event, err := NewTaskRequestEvent("document_ingestion", nil)
	require.NoError(t, err)

	assert.NoError(t, emitter.EmitEvent(context.Background(), event))
}
