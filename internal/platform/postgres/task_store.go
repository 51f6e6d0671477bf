package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loomkit/loom-api/internal/platform/logger"
	"github.com/loomkit/loom-api/internal/store"
	"github.com/loomkit/loom-api/internal/task"
)

// TaskStore implements the task.TaskStore interface using PostgreSQL.
// Recovered rows are turned back into executable tasks through the
// provided reconstructor.
type TaskStore struct {
	db            store.DBTX
	logger        *slog.Logger
	reconstructor task.Reconstructor
}

// NewTaskStore creates a new PostgreSQL-backed task store.
func NewTaskStore(db store.DBTX, logger *slog.Logger, reconstructor task.Reconstructor) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskStore{
		db:            db,
		logger:        logger.With(slog.String("component", "task_store")),
		reconstructor: reconstructor,
	}
}

var _ task.TaskStore = (*TaskStore)(nil)

// SaveTask implements task.TaskStore.SaveTask
func (s *TaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, query,
		t.ID(),
		t.Type(),
		t.Payload(),
		t.Status(),
		now,
		now,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
		return fmt.Errorf("failed to save task to database: %w", MapError(err))
	}

	return nil
}

// UpdateTaskStatus implements task.TaskStore.UpdateTaskStatus
// A missing task is treated as a no-op so recovery paths don't fail on
// rows deleted out of band.
func (s *TaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	tag, err := s.db.Exec(ctx, query,
		status,
		errorMsg,
		time.Now().UTC(),
		taskID,
	)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", taskID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update task status: %w", MapError(err))
	}

	if tag.RowsAffected() == 0 {
		log.Warn("no task found with ID to update status",
			"task_id", taskID)
	}

	return nil
}

// GetPendingTasks implements task.TaskStore.GetPendingTasks
func (s *TaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks implements task.TaskStore.GetProcessingTasks
func (s *TaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

// getTasksByStatus loads tasks by status, oldest first, with an optional
// age filter, and reconstructs them into executable tasks.
func (s *TaskStore) getTasksByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, type, payload, status, COALESCE(error_message, ''), created_at, updated_at
		FROM tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []any{status}

	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, COALESCE(error_message, ''), created_at, updated_at
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query tasks by status: %w", MapError(err))
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var rec task.RecoveredTask
		if err := rows.Scan(
			&rec.ID,
			&rec.Type,
			&rec.Payload,
			&rec.Status,
			&rec.ErrorMessage,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}

		if s.reconstructor == nil {
			log.Warn("no reconstructor configured, skipping recovered task",
				"task_id", rec.ID,
				"task_type", rec.Type)
			continue
		}

		t, err := s.reconstructor.Reconstruct(rec)
		if err != nil {
			// A task we cannot rebuild would fail forever if requeued.
			log.Error("failed to reconstruct recovered task, marking failed",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			if updateErr := s.UpdateTaskStatus(ctx, rec.ID, task.TaskStatusFailed, err.Error()); updateErr != nil {
				log.Error("failed to mark unreconstructable task as failed",
					"task_id", rec.ID,
					"error", updateErr)
			}
			continue
		}

		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// WithTx implements task.TaskStore.WithTx
func (s *TaskStore) WithTx(tx pgx.Tx) task.TaskStore {
	return &TaskStore{
		db:            tx,
		logger:        s.logger,
		reconstructor: s.reconstructor,
	}
}
