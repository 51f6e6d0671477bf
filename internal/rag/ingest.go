package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/llm"
	"github.com/loomkit/loom-api/internal/platform/logger"
	"github.com/loomkit/loom-api/internal/store"
)

// ErrNoChunks is returned when a document yields no chunks to embed.
var ErrNoChunks = errors.New("document produced no chunks")

// TxRunner executes the given function inside a database transaction.
// It exists so the ingestor can be tested without a live pool.
type TxRunner func(ctx context.Context, fn store.TxFn) error

// Ingestor runs the document ingestion pipeline: chunk, embed, store.
// Document status moves pending -> processing -> completed, or failed if
// any step errors.
type Ingestor struct {
	docs    store.DocumentStore
	client  llm.Client
	chunker *Chunker
	inTx    TxRunner
	logger  *slog.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(
	docs store.DocumentStore,
	client llm.Client,
	chunker *Chunker,
	inTx TxRunner,
	logger *slog.Logger,
) (*Ingestor, error) {
	if docs == nil {
		return nil, errors.New("document store cannot be nil")
	}
	if client == nil {
		return nil, errors.New("llm client cannot be nil")
	}
	if chunker == nil {
		chunker = NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	}
	if inTx == nil {
		return nil, errors.New("transaction runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingestor{
		docs:    docs,
		client:  client,
		chunker: chunker,
		inTx:    inTx,
		logger:  logger.With(slog.String("component", "ingestor")),
	}, nil
}

// IngestDocument chunks the document text, embeds every chunk, and
// atomically replaces the document's stored chunks. The document ends in
// completed status on success and failed status on any error.
func (ing *Ingestor) IngestDocument(ctx context.Context, documentID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, ing.logger).With(
		slog.String("document_id", documentID.String()))

	doc, err := ing.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	if err := ing.docs.UpdateStatus(ctx, documentID, domain.DocumentStatusProcessing); err != nil {
		return fmt.Errorf("failed to mark document processing: %w", err)
	}

	if err := ing.ingest(ctx, doc, log); err != nil {
		if statusErr := ing.docs.UpdateStatus(ctx, documentID, domain.DocumentStatusFailed); statusErr != nil {
			log.Error("failed to mark document failed",
				slog.String("error", statusErr.Error()))
		}
		return err
	}

	if err := ing.docs.UpdateStatus(ctx, documentID, domain.DocumentStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}

	log.Info("document ingested")
	return nil
}

func (ing *Ingestor) ingest(ctx context.Context, doc *domain.Document, log *slog.Logger) error {
	pieces := ing.chunker.Split(doc.Text)
	if len(pieces) == 0 {
		return ErrNoChunks
	}

	log.Debug("document chunked", slog.Int("chunk_count", len(pieces)))

	embeddings, err := ing.client.Embed(ctx, pieces)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(pieces) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors",
			len(pieces), len(embeddings))
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, content := range pieces {
		chunk, err := domain.NewChunk(doc.ID, i, content)
		if err != nil {
			return fmt.Errorf("failed to build chunk %d: %w", i, err)
		}
		chunks = append(chunks, *chunk)
	}

	// The delete-and-insert swap runs in one transaction so a re-ingest
	// never leaves a mix of old and new chunks behind.
	return ing.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return ing.docs.WithTx(tx).ReplaceChunks(ctx, doc.ID, chunks, embeddings)
	})
}
