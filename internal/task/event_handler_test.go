package task

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom-api/internal/events"
)

type mockFactory struct {
	created []uuid.UUID
	err     error
}

func (f *mockFactory) CreateTask(documentID uuid.UUID) (Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, documentID)
	return newMockTask(nil), nil
}

type mockSubmitter struct {
	submitted []Task
	err       error
}

func (s *mockSubmitter) Submit(_ context.Context, t Task) error {
	if s.err != nil {
		return s.err
	}
	s.submitted = append(s.submitted, t)
	return nil
}

func ingestionEvent(t *testing.T, documentID string) *events.TaskRequestEvent {
	t.Helper()
	event, err := events.NewTaskRequestEvent(TaskTypeDocumentIngestion, map[string]string{
		"document_id": documentID,
	})
	require.NoError(t, err)
	return event
}

func TestHandleEventCreatesAndSubmitsTask(t *testing.T) {
	t.Parallel()

	factory := &mockFactory{}
	submitter := &mockSubmitter{}
	handler := NewIngestionEventHandler(factory, submitter, slog.Default())

	documentID := uuid.New()
	err := handler.HandleEvent(context.Background(), ingestionEvent(t, documentID.String()))
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{documentID}, factory.created)
	assert.Len(t, submitter.submitted, 1)
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	t.Parallel()

	factory := &mockFactory{}
	submitter := &mockSubmitter{}
	handler := NewIngestionEventHandler(factory, submitter, slog.Default())

	event, err := events.NewTaskRequestEvent("unrelated", nil)
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Empty(t, factory.created)
	assert.Empty(t, submitter.submitted)
}

func TestHandleEventRejectsInvalidDocumentID(t *testing.T) {
	t.Parallel()

	handler := NewIngestionEventHandler(&mockFactory{}, &mockSubmitter{}, slog.Default())

	err := handler.HandleEvent(context.Background(), ingestionEvent(t, "not-a-uuid"))
	assert.ErrorContains(t, err, "invalid document ID")
}

func TestHandleEventPropagatesFactoryAndSubmitErrors(t *testing.T) {
	t.Parallel()

	factoryErr := errors.New("no ingestor")
	handler := NewIngestionEventHandler(&mockFactory{err: factoryErr}, &mockSubmitter{}, slog.Default())
	err := handler.HandleEvent(context.Background(), ingestionEvent(t, uuid.New().String()))
	assert.ErrorIs(t, err, factoryErr)

	submitErr := errors.New("queue full")
	handler = NewIngestionEventHandler(&mockFactory{}, &mockSubmitter{err: submitErr}, slog.Default())
	err = handler.HandleEvent(context.Background(), ingestionEvent(t, uuid.New().String()))
	assert.ErrorIs(t, err, submitErr)
}
