package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loomkit/loom-api/internal/domain"
)

// ConversationStore defines the interface for conversation and message
// persistence.
type ConversationStore interface {
	// CreateConversation saves a new conversation to the store.
	CreateConversation(ctx context.Context, conv *domain.Conversation) error

	// GetConversation retrieves a conversation by its unique ID.
	// Returns ErrConversationNotFound if the conversation does not exist.
	GetConversation(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)

	// ListByUser retrieves conversations belonging to the given user,
	// most recently updated first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Conversation, error)

	// AddMessage appends a message to its conversation and touches the
	// conversation's updated_at timestamp.
	// Returns ErrConversationNotFound if the conversation does not exist.
	AddMessage(ctx context.Context, msg *domain.Message) error

	// RecentMessages returns up to limit most recent messages of a
	// conversation in chronological order.
	RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error)

	// WithTx returns a new ConversationStore instance that uses the provided
	// transaction.
	WithTx(tx pgx.Tx) ConversationStore
}
