package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	doc, err := NewDocument(ownerID, "Payment API guide", "Authorize then capture.", []string{"payments"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, ownerID, doc.OwnerID)
	assert.Equal(t, DocumentStatusPending, doc.Status)
	assert.Equal(t, []string{"payments"}, doc.Tags)

	tests := []struct {
		name    string
		ownerID uuid.UUID
		title   string
		text    string
		wantErr error
	}{
		{"missing owner", uuid.Nil, "t", "x", ErrEmptyDocumentOwnerID},
		{"missing title", ownerID, "", "x", ErrEmptyDocumentTitle},
		{"missing text", ownerID, "t", "", ErrEmptyDocumentText},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDocument(tc.ownerID, tc.title, tc.text, nil)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestDocumentUpdateStatus(t *testing.T) {
	t.Parallel()

	doc, err := NewDocument(uuid.New(), "title", "text", nil)
	require.NoError(t, err)

	before := doc.UpdatedAt
	require.NoError(t, doc.UpdateStatus(DocumentStatusProcessing))
	assert.Equal(t, DocumentStatusProcessing, doc.Status)
	assert.False(t, doc.UpdatedAt.Before(before))

	err = doc.UpdateStatus(DocumentStatus("archived"))
	assert.ErrorIs(t, err, ErrInvalidDocumentStatus)
	assert.Equal(t, DocumentStatusProcessing, doc.Status)
}

func TestNewChunk(t *testing.T) {
	t.Parallel()

	docID := uuid.New()

	chunk, err := NewChunk(docID, 0, "first paragraph")
	require.NoError(t, err)
	assert.Equal(t, docID, chunk.DocumentID)
	assert.Equal(t, 0, chunk.Index)

	_, err = NewChunk(docID, -1, "x")
	assert.ErrorIs(t, err, ErrNegativeChunkIndex)

	_, err = NewChunk(docID, 1, "")
	assert.ErrorIs(t, err, ErrEmptyChunkContent)

	_, err = NewChunk(uuid.Nil, 0, "x")
	assert.ErrorIs(t, err, ErrEmptyDocumentID)
}
