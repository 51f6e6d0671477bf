package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loomkit/loom-api/internal/domain"
)

// ChunkMatch is a chunk returned from a similarity search, together with
// the title of its parent document and its distance from the query vector.
// Smaller distances mean closer matches.
type ChunkMatch struct {
	Chunk         domain.Chunk
	DocumentTitle string
	Distance      float64
}

// DocumentStore defines the interface for document and chunk persistence,
// including vector similarity search over stored chunk embeddings.
type DocumentStore interface {
	// Create saves a new document to the store.
	// Returns validation errors from the domain Document if data is invalid.
	Create(ctx context.Context, doc *domain.Document) error

	// GetByID retrieves a document by its unique ID.
	// Returns ErrDocumentNotFound if the document does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)

	// ListByOwner retrieves documents belonging to the given user, newest
	// first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.Document, error)

	// UpdateStatus transitions a document's ingestion status.
	// Returns ErrDocumentNotFound if the document does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DocumentStatus) error

	// ReplaceChunks atomically replaces all chunks for a document with the
	// given chunks and their embeddings. Chunks and embeddings are
	// index-aligned. Re-ingesting a document never leaves a mix of old and
	// new chunks behind.
	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []domain.Chunk, embeddings [][]float32) error

	// CountChunks returns the number of stored chunks for a document.
	CountChunks(ctx context.Context, documentID uuid.UUID) (int, error)

	// SearchChunks returns the topK chunks owned by the given user that are
	// nearest to the query embedding, ordered by ascending distance. Only
	// chunks of completed documents are searched.
	SearchChunks(ctx context.Context, ownerID uuid.UUID, embedding []float32, topK int) ([]ChunkMatch, error)

	// Delete removes a document and its chunks from the store.
	// Returns ErrDocumentNotFound if the document does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new DocumentStore instance that uses the provided
	// transaction.
	WithTx(tx pgx.Tx) DocumentStore
}
