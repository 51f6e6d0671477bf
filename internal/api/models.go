package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/rag"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication
// endpoints: a JWT access/refresh token pair.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`

	// ExpiresAt is the RFC 3339 timestamp when the access token expires.
	ExpiresAt string `json:"expires_at"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChatRequest defines the payload for the chat endpoint. When
// ConversationID is omitted a new conversation is started.
type ChatRequest struct {
	ConversationID *uuid.UUID                  `json:"conversation_id,omitempty"`
	Message        string                      `json:"message"            validate:"required"`
	TopK           int                         `json:"top_k,omitempty"    validate:"omitempty,min=1,max=20"`
	Settings       *domain.GenerationOverrides `json:"settings,omitempty"`
}

// ChatResponse defines the successful response for the chat endpoint.
type ChatResponse struct {
	ConversationID uuid.UUID         `json:"conversation_id"`
	Answer         string            `json:"answer"`
	Sources        []rag.SourceRef   `json:"sources"`
	TokenUsage     domain.TokenUsage `json:"token_usage"`
	Cached         bool              `json:"cached,omitempty"`
}

// CreateDocumentRequest defines the payload for submitting a document
// for ingestion.
type CreateDocumentRequest struct {
	Title string   `json:"title" validate:"required,max=200"`
	Text  string   `json:"text"  validate:"required"`
	Tags  []string `json:"tags,omitempty" validate:"omitempty,max=16,dive,min=1,max=64"`
}

// DocumentResponse describes a document and its ingestion progress.
// The raw text is deliberately not echoed back. ChunkCount is only
// populated on single-document reads; listings omit it.
type DocumentResponse struct {
	ID         uuid.UUID             `json:"id"`
	Title      string                `json:"title"`
	Tags       []string              `json:"tags,omitempty"`
	Status     domain.DocumentStatus `json:"status"`
	ChunkCount int                   `json:"chunk_count,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// ListDocumentsResponse defines the response for the document listing
// endpoint.
type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// ConversationResponse describes a conversation in listing responses.
type ConversationResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListConversationsResponse defines the response for the conversation
// listing endpoint.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

// newDocumentResponse converts a domain document to its API shape.
func newDocumentResponse(doc *domain.Document, chunkCount int) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID,
		Title:      doc.Title,
		Tags:       doc.Tags,
		Status:     doc.Status,
		ChunkCount: chunkCount,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}
