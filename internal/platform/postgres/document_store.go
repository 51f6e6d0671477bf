package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/platform/logger"
	"github.com/loomkit/loom-api/internal/store"
)

// DocumentStore implements the store.DocumentStore interface using a
// PostgreSQL database with the pgvector extension as the storage backend.
type DocumentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewDocumentStore creates a new PostgreSQL implementation of the
// DocumentStore interface. It accepts a connection pool or transaction that
// should be initialized and managed by the caller.
func NewDocumentStore(db store.DBTX, logger *slog.Logger) *DocumentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DocumentStore{
		db:     db,
		logger: logger.With(slog.String("component", "document_store")),
	}
}

var _ store.DocumentStore = (*DocumentStore)(nil)

// Create implements store.DocumentStore.Create
// Returns store.ErrInvalidEntity if the owner does not exist.
func (s *DocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := doc.Validate(); err != nil {
		log.Warn("document validation failed during create",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		return err
	}

	query := `
		INSERT INTO documents (id, owner_id, title, text, tags, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		doc.Text,
		doc.Tags,
		doc.Status,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during document creation",
				slog.String("document_id", doc.ID.String()),
				slog.String("owner_id", doc.OwnerID.String()))
			return fmt.Errorf("%w: owner with ID %s not found",
				store.ErrInvalidEntity, doc.OwnerID)
		}

		log.Error("failed to create document",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		return MapError(err)
	}

	log.Info("document created",
		slog.String("document_id", doc.ID.String()),
		slog.String("owner_id", doc.OwnerID.String()),
		slog.String("status", string(doc.Status)))
	return nil
}

// GetByID implements store.DocumentStore.GetByID
// Returns store.ErrDocumentNotFound if the document does not exist.
func (s *DocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, title, text, tags, status, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	var doc domain.Document
	err := s.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&doc.Text,
		&doc.Tags,
		&doc.Status,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrDocumentNotFound
		}
		log.Error("failed to get document by ID",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()))
		return nil, MapError(err)
	}

	return &doc, nil
}

// CountChunks implements store.DocumentStore.CountChunks
func (s *DocumentStore) CountChunks(ctx context.Context, documentID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`

	var count int
	if err := s.db.QueryRow(ctx, query, documentID).Scan(&count); err != nil {
		log.Error("failed to count document chunks",
			slog.String("error", err.Error()),
			slog.String("document_id", documentID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

// ListByOwner implements store.DocumentStore.ListByOwner
func (s *DocumentStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit, offset int,
) ([]domain.Document, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, title, text, tags, status, created_at, updated_at
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		log.Error("failed to list documents",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, MapError(err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.OwnerID,
			&doc.Title,
			&doc.Text,
			&doc.Tags,
			&doc.Status,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}

// UpdateStatus implements store.DocumentStore.UpdateStatus
// Returns store.ErrDocumentNotFound if the document does not exist.
func (s *DocumentStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.DocumentStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !status.IsValid() {
		return domain.ErrInvalidDocumentStatus
	}

	query := `
		UPDATE documents
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	tag, err := s.db.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update document status",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	if tag.RowsAffected() == 0 {
		return store.ErrDocumentNotFound
	}

	log.Debug("document status updated",
		slog.String("document_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// ReplaceChunks implements store.DocumentStore.ReplaceChunks
// The delete and inserts run as single statements; callers that need the
// swap to be atomic should invoke this through store.RunInTransaction
// via WithTx.
func (s *DocumentStore) ReplaceChunks(
	ctx context.Context,
	documentID uuid.UUID,
	chunks []domain.Chunk,
	embeddings [][]float32,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks with %d embeddings",
			store.ErrInvalidEntity, len(chunks), len(embeddings))
	}
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return err
		}
		if chunks[i].DocumentID != documentID {
			return fmt.Errorf("%w: chunk %d belongs to a different document",
				store.ErrInvalidEntity, i)
		}
	}

	if _, err := s.db.Exec(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		log.Error("failed to delete existing chunks",
			slog.String("error", err.Error()),
			slog.String("document_id", documentID.String()))
		return MapError(err)
	}

	query := `
		INSERT INTO document_chunks (id, document_id, chunk_index, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, chunk := range chunks {
		_, err := s.db.Exec(
			ctx,
			query,
			chunk.ID,
			chunk.DocumentID,
			chunk.Index,
			chunk.Content,
			pgvector.NewVector(embeddings[i]),
			chunk.CreatedAt,
		)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: document with ID %s not found",
					store.ErrInvalidEntity, documentID)
			}
			log.Error("failed to insert chunk",
				slog.String("error", err.Error()),
				slog.String("document_id", documentID.String()),
				slog.Int("chunk_index", chunk.Index))
			return MapError(err)
		}
	}

	log.Info("document chunks replaced",
		slog.String("document_id", documentID.String()),
		slog.Int("chunk_count", len(chunks)))
	return nil
}

// SearchChunks implements store.DocumentStore.SearchChunks
// Chunks are ranked by L2 distance between the stored embedding and the
// query vector. Only chunks of completed documents owned by the given user
// are considered.
func (s *DocumentStore) SearchChunks(
	ctx context.Context,
	ownerID uuid.UUID,
	embedding []float32,
	topK int,
) ([]store.ChunkMatch, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", store.ErrInvalidEntity)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", store.ErrInvalidEntity)
	}

	query := `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.created_at,
		       d.title,
		       c.embedding <-> $2 AS distance
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.owner_id = $1 AND d.status = $3
		ORDER BY c.embedding <-> $2
		LIMIT $4
	`

	rows, err := s.db.Query(ctx, query,
		ownerID,
		pgvector.NewVector(embedding),
		domain.DocumentStatusCompleted,
		topK,
	)
	if err != nil {
		log.Error("failed to search chunks",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, MapError(err)
	}
	defer rows.Close()

	var matches []store.ChunkMatch
	for rows.Next() {
		var m store.ChunkMatch
		if err := rows.Scan(
			&m.Chunk.ID,
			&m.Chunk.DocumentID,
			&m.Chunk.Index,
			&m.Chunk.Content,
			&m.Chunk.CreatedAt,
			&m.DocumentTitle,
			&m.Distance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk matches: %w", err)
	}

	log.Debug("chunk search completed",
		slog.String("owner_id", ownerID.String()),
		slog.Int("match_count", len(matches)))
	return matches, nil
}

// Delete implements store.DocumentStore.Delete
// Chunks are removed by the ON DELETE CASCADE constraint.
// Returns store.ErrDocumentNotFound if the document does not exist.
func (s *DocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete document",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()))
		return MapError(err)
	}

	if tag.RowsAffected() == 0 {
		return store.ErrDocumentNotFound
	}

	log.Info("document deleted",
		slog.String("document_id", id.String()))
	return nil
}

// WithTx implements store.DocumentStore.WithTx
func (s *DocumentStore) WithTx(tx pgx.Tx) store.DocumentStore {
	return &DocumentStore{
		db:     tx,
		logger: s.logger,
	}
}
