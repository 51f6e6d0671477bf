package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/platform/logger"
	"github.com/loomkit/loom-api/internal/store"
)

// ConversationStore implements the store.ConversationStore interface using
// a PostgreSQL database as the storage backend.
type ConversationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewConversationStore creates a new PostgreSQL implementation of the
// ConversationStore interface.
func NewConversationStore(db store.DBTX, logger *slog.Logger) *ConversationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ConversationStore{
		db:     db,
		logger: logger.With(slog.String("component", "conversation_store")),
	}
}

var _ store.ConversationStore = (*ConversationStore)(nil)

// CreateConversation implements store.ConversationStore.CreateConversation
func (s *ConversationStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := conv.Validate(); err != nil {
		log.Warn("conversation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("conversation_id", conv.ID.String()))
		return err
	}

	query := `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(
		ctx,
		query,
		conv.ID,
		conv.UserID,
		conv.Title,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, conv.UserID)
		}
		log.Error("failed to create conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", conv.ID.String()))
		return MapError(err)
	}

	log.Info("conversation created",
		slog.String("conversation_id", conv.ID.String()),
		slog.String("user_id", conv.UserID.String()))
	return nil
}

// GetConversation implements store.ConversationStore.GetConversation
// Returns store.ErrConversationNotFound if the conversation does not exist.
func (s *ConversationStore) GetConversation(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var conv domain.Conversation
	err := s.db.QueryRow(ctx, query, id).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrConversationNotFound
		}
		log.Error("failed to get conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", id.String()))
		return nil, MapError(err)
	}

	return &conv, nil
}

// ListByUser implements store.ConversationStore.ListByUser
func (s *ConversationStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]domain.Conversation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to list conversations",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.Title,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return convs, nil
}

// AddMessage implements store.ConversationStore.AddMessage
// Returns store.ErrConversationNotFound if the conversation does not exist.
func (s *ConversationStore) AddMessage(ctx context.Context, msg *domain.Message) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := msg.Validate(); err != nil {
		log.Warn("message validation failed",
			slog.String("error", err.Error()),
			slog.String("message_id", msg.ID.String()))
		return err
	}

	query := `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(
		ctx,
		query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrConversationNotFound, err)
		}
		log.Error("failed to add message",
			slog.String("error", err.Error()),
			slog.String("message_id", msg.ID.String()),
			slog.String("conversation_id", msg.ConversationID.String()))
		return MapError(err)
	}

	// Keep the conversation's updated_at in step so ListByUser orders by
	// recent activity.
	_, err = s.db.Exec(ctx,
		`UPDATE conversations SET updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), msg.ConversationID)
	if err != nil {
		log.Error("failed to touch conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", msg.ConversationID.String()))
		return MapError(err)
	}

	return nil
}

// RecentMessages implements store.ConversationStore.RecentMessages
// It selects the newest messages, then reverses them so the caller gets
// chronological order suitable for a prompt.
func (s *ConversationStore) RecentMessages(
	ctx context.Context,
	conversationID uuid.UUID,
	limit int,
) ([]domain.Message, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		log.Error("failed to query messages",
			slog.String("error", err.Error()),
			slog.String("conversation_id", conversationID.String()))
		return nil, MapError(err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}

// WithTx implements store.ConversationStore.WithTx
func (s *ConversationStore) WithTx(tx pgx.Tx) store.ConversationStore {
	return &ConversationStore{
		db:     tx,
		logger: s.logger,
	}
}
