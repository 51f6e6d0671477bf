package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DocumentStatus represents the ingestion state of a document.
type DocumentStatus string

// Possible document status values.
const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Common validation errors for documents and chunks.
var (
	ErrEmptyDocumentID      = errors.New("document ID cannot be empty")
	ErrEmptyDocumentOwnerID = errors.New("document owner ID cannot be empty")
	ErrEmptyDocumentTitle   = errors.New("document title cannot be empty")
	ErrEmptyDocumentText    = errors.New("document text cannot be empty")
	ErrEmptyChunkContent    = errors.New("chunk content cannot be empty")
	ErrNegativeChunkIndex   = errors.New("chunk index cannot be negative")
)

// Document is a piece of source material submitted for retrieval.
// The raw text is kept alongside the ingestion status so failed
// ingestions can be retried without re-uploading.
type Document struct {
	ID        uuid.UUID      `json:"id"`
	OwnerID   uuid.UUID      `json:"owner_id"`
	Title     string         `json:"title"`
	Text      string         `json:"text"`
	Tags      []string       `json:"tags,omitempty"`
	Status    DocumentStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewDocument creates a new Document with the given owner, title and text.
// It generates a new UUID for the document ID, sets the status to pending,
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewDocument(ownerID uuid.UUID, title, text string, tags []string) (*Document, error) {
	doc := &Document{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Text:      text,
		Tags:      tags,
		Status:    DocumentStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Validate checks if the Document has valid data.
// Returns an error if any field fails validation.
func (d *Document) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDocumentID
	}

	if d.OwnerID == uuid.Nil {
		return ErrEmptyDocumentOwnerID
	}

	if d.Title == "" {
		return ErrEmptyDocumentTitle
	}

	if d.Text == "" {
		return ErrEmptyDocumentText
	}

	if !d.Status.IsValid() {
		return ErrInvalidDocumentStatus
	}

	return nil
}

// UpdateStatus updates the document's status and the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (d *Document) UpdateStatus(status DocumentStatus) error {
	if !status.IsValid() {
		return ErrInvalidDocumentStatus
	}

	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// IsValid reports whether the status is one of the known values.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing,
		DocumentStatusCompleted, DocumentStatusFailed:
		return true
	default:
		return false
	}
}

// Chunk is a retrieval unit cut from a document. Chunks carry their
// position within the source document so answers can cite them in order.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewChunk creates a new Chunk belonging to the given document.
// Returns an error if validation fails.
func NewChunk(documentID uuid.UUID, index int, content string) (*Chunk, error) {
	chunk := &Chunk{
		ID:         uuid.New(),
		DocumentID: documentID,
		Index:      index,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	if err := chunk.Validate(); err != nil {
		return nil, err
	}

	return chunk, nil
}

// Validate checks if the Chunk has valid data.
func (c *Chunk) Validate() error {
	if c.ID == uuid.Nil {
		return ErrInvalidID
	}

	if c.DocumentID == uuid.Nil {
		return ErrEmptyDocumentID
	}

	if c.Index < 0 {
		return ErrNegativeChunkIndex
	}

	if c.Content == "" {
		return ErrEmptyChunkContent
	}

	return nil
}
