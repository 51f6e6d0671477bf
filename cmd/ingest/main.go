// Package main implements a one-shot CLI that ingests a local text or
// markdown file into the document store using the same pipeline as the
// API server. Useful for seeding a store without driving the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/loomkit/loom-api/internal/config"
	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/llm/factory"
	"github.com/loomkit/loom-api/internal/platform/logger"
	"github.com/loomkit/loom-api/internal/platform/postgres"
	"github.com/loomkit/loom-api/internal/rag"
	"github.com/loomkit/loom-api/internal/store"
)

func main() {
	filePath := flag.String("file", "", "path to the text or markdown file to ingest (required)")
	title := flag.String("title", "", "document title (defaults to the file name)")
	ownerEmail := flag.String("owner", "", "email of the user who will own the document (required)")
	tags := flag.String("tags", "", "comma-separated tags for the document")
	flag.Parse()

	if err := run(*filePath, *title, *ownerEmail, *tags); err != nil {
		fmt.Fprintf(os.Stderr, "loom-ingest: %v\n", err)
		os.Exit(1)
	}
}

func run(filePath, title, ownerEmail, rawTags string) error {
	if filePath == "" {
		return fmt.Errorf("-file is required")
	}
	if ownerEmail == "" {
		return fmt.Errorf("-owner is required")
	}

	text, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if title == "" {
		title = filepath.Base(filePath)
	}

	var tags []string
	for _, tag := range strings.Split(rawTags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	users := postgres.NewUserStore(pool, log, bcrypt.DefaultCost)
	owner, err := users.GetByEmail(ctx, ownerEmail)
	if err != nil {
		return fmt.Errorf("failed to look up owner %s: %w", ownerEmail, err)
	}

	client, err := factory.New(ctx, log, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	docs := postgres.NewDocumentStore(pool, log)
	inTx := func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, pool, fn)
	}
	ingestor, err := rag.NewIngestor(
		docs,
		client,
		rag.NewChunker(rag.DefaultChunkSize, rag.DefaultChunkOverlap),
		inTx,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestor: %w", err)
	}

	doc, err := domain.NewDocument(owner.ID, title, string(text), tags)
	if err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	if err := docs.Create(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	log.Info("ingesting document",
		slog.String("document_id", doc.ID.String()),
		slog.String("title", title),
		slog.Int("text_length", len(text)))

	if err := ingestor.IngestDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	chunkCount, err := docs.CountChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	fmt.Printf("ingested %s as document %s (%d chunks)\n", filePath, doc.ID, chunkCount)
	return nil
}
