package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// mockTaskStore is an in-memory TaskStore for tests.
type mockTaskStore struct {
	mu       sync.Mutex
	saved    []Task
	statuses map[uuid.UUID]TaskStatus
	errorMsg map[uuid.UUID]string

	pending    []Task
	processing []Task

	saveErr error
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{
		statuses: make(map[uuid.UUID]TaskStatus),
		errorMsg: make(map[uuid.UUID]string),
	}
}

func (s *mockTaskStore) SaveTask(_ context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, t)
	s.statuses[t.ID()] = t.Status()
	return nil
}

func (s *mockTaskStore) UpdateTaskStatus(_ context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[taskID] = status
	s.errorMsg[taskID] = errorMsg
	return nil
}

func (s *mockTaskStore) GetPendingTasks(_ context.Context) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.pending...), nil
}

func (s *mockTaskStore) GetProcessingTasks(_ context.Context, _ time.Duration) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.processing...), nil
}

func (s *mockTaskStore) WithTx(_ pgx.Tx) TaskStore {
	return s
}

func (s *mockTaskStore) statusOf(taskID uuid.UUID) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[taskID]
}

// mockTask is a controllable Task for runner tests.
type mockTask struct {
	id      uuid.UUID
	execErr error
	done    chan struct{}
}

func newMockTask(execErr error) *mockTask {
	return &mockTask{
		id:      uuid.New(),
		execErr: execErr,
		done:    make(chan struct{}),
	}
}

func (t *mockTask) ID() uuid.UUID     { return t.id }
func (t *mockTask) Type() string      { return "mock" }
func (t *mockTask) Payload() []byte   { return []byte(`{}`) }
func (t *mockTask) Status() TaskStatus { return TaskStatusPending }

func (t *mockTask) Execute(_ context.Context) error {
	defer close(t.done)
	return t.execErr
}
