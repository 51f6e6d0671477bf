package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/llm"
	"github.com/loomkit/loom-api/internal/store"
)

// mockLLM is a scriptable llm.Client.
type mockLLM struct {
	chatResp  *llm.ChatResponse
	chatErr   error
	chatCalls []llm.ChatRequest

	embedErr   error
	embedCalls [][]string
	embedDim   int
}

func (m *mockLLM) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.chatCalls = append(m.chatCalls, req)
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	return m.chatResp, nil
}

func (m *mockLLM) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.embedCalls = append(m.embedCalls, texts)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	dim := m.embedDim
	if dim == 0 {
		dim = 3
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, dim)
		vec[0] = float32(i + 1)
		out[i] = vec
	}
	return out, nil
}

func (m *mockLLM) ModelName() string { return "mock-model" }

// mockDocStore is an in-memory store.DocumentStore.
type mockDocStore struct {
	docs     map[uuid.UUID]*domain.Document
	statuses []domain.DocumentStatus

	replacedChunks     []domain.Chunk
	replacedEmbeddings [][]float32
	replaceErr         error

	searchMatches []store.ChunkMatch
	searchErr     error
	searchCalls   int
	lastTopK      int
}

func newMockDocStore() *mockDocStore {
	return &mockDocStore{docs: make(map[uuid.UUID]*domain.Document)}
}

func (m *mockDocStore) Create(_ context.Context, doc *domain.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockDocStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *mockDocStore) ListByOwner(_ context.Context, ownerID uuid.UUID, _, _ int) ([]domain.Document, error) {
	var out []domain.Document
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (m *mockDocStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.DocumentStatus) error {
	doc, ok := m.docs[id]
	if !ok {
		return store.ErrDocumentNotFound
	}
	doc.Status = status
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockDocStore) ReplaceChunks(_ context.Context, documentID uuid.UUID, chunks []domain.Chunk, embeddings [][]float32) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("misaligned chunks and embeddings")
	}
	m.replacedChunks = chunks
	m.replacedEmbeddings = embeddings
	_ = documentID
	return nil
}

func (m *mockDocStore) CountChunks(_ context.Context, _ uuid.UUID) (int, error) {
	return len(m.replacedChunks), nil
}

func (m *mockDocStore) SearchChunks(_ context.Context, _ uuid.UUID, _ []float32, topK int) ([]store.ChunkMatch, error) {
	m.searchCalls++
	m.lastTopK = topK
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchMatches, nil
}

func (m *mockDocStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.docs, id)
	return nil
}

func (m *mockDocStore) WithTx(_ pgx.Tx) store.DocumentStore { return m }

// mockConvStore is an in-memory store.ConversationStore.
type mockConvStore struct {
	convs    map[uuid.UUID]*domain.Conversation
	messages map[uuid.UUID][]domain.Message

	addMessageErr error
}

func newMockConvStore() *mockConvStore {
	return &mockConvStore{
		convs:    make(map[uuid.UUID]*domain.Conversation),
		messages: make(map[uuid.UUID][]domain.Message),
	}
}

func (m *mockConvStore) CreateConversation(_ context.Context, conv *domain.Conversation) error {
	m.convs[conv.ID] = conv
	return nil
}

func (m *mockConvStore) GetConversation(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	conv, ok := m.convs[id]
	if !ok {
		return nil, store.ErrConversationNotFound
	}
	return conv, nil
}

func (m *mockConvStore) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	for _, conv := range m.convs {
		if conv.UserID == userID {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (m *mockConvStore) AddMessage(_ context.Context, msg *domain.Message) error {
	if m.addMessageErr != nil {
		return m.addMessageErr
	}
	if _, ok := m.convs[msg.ConversationID]; !ok {
		return store.ErrConversationNotFound
	}
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

func (m *mockConvStore) RecentMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	msgs := m.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (m *mockConvStore) WithTx(_ pgx.Tx) store.ConversationStore { return m }

// mockCache is an in-memory answer cache.
type mockCache struct {
	entries map[string]string
	getErr  error
	setErr  error
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]string)}
}

func (m *mockCache) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	value, ok := m.entries[key]
	return value, ok, nil
}

func (m *mockCache) Set(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = value
	return nil
}
