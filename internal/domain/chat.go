package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

// Standardized roles for conversation history.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Common validation errors for conversations and messages.
var (
	ErrEmptyConversationID     = errors.New("conversation ID cannot be empty")
	ErrEmptyConversationUserID = errors.New("conversation user ID cannot be empty")
	ErrEmptyMessageContent     = errors.New("message content cannot be empty")
)

// IsValidRole reports whether the given role is one of the standardized roles.
func IsValidRole(role Role) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Conversation groups an ordered exchange of messages owned by a user.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates a new Conversation owned by the given user.
// It generates a new UUID for the conversation ID and sets the
// creation/update timestamps. Returns an error if validation fails.
func NewConversation(userID uuid.UUID, title string) (*Conversation, error) {
	conv := &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := conv.Validate(); err != nil {
		return nil, err
	}

	return conv, nil
}

// Validate checks if the Conversation has valid data.
// Returns an error if any field fails validation.
func (c *Conversation) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyConversationID
	}

	if c.UserID == uuid.Nil {
		return ErrEmptyConversationUserID
	}

	return nil
}

// Touch updates the conversation's UpdatedAt timestamp.
// Called whenever a message is appended.
func (c *Conversation) Touch() {
	c.UpdatedAt = time.Now().UTC()
}

// Message is a single entry in a conversation. Messages are immutable
// once created; corrections are expressed as new messages.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessage creates a new Message in the given conversation.
// Returns an error if the role is unknown or the content is empty.
func NewMessage(conversationID uuid.UUID, role Role, content string) (*Message, error) {
	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return msg, nil
}

// Validate checks if the Message has valid data.
// Returns an error if any field fails validation.
func (m *Message) Validate() error {
	if m.ID == uuid.Nil {
		return ErrInvalidID
	}

	if m.ConversationID == uuid.Nil {
		return ErrEmptyConversationID
	}

	if !IsValidRole(m.Role) {
		return ErrInvalidRole
	}

	if m.Content == "" {
		return ErrEmptyMessageContent
	}

	return nil
}

// TokenUsage records per-call token accounting reported by an LLM provider.
// Useful for cost tracking; zero values mean the provider did not report usage.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Add accumulates another usage report into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.Input += other.Input
	u.Output += other.Output
	u.Total += other.Total
}
