package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/loomkit/loom-api/internal/api/shared"
	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/events"
	"github.com/loomkit/loom-api/internal/rag"
	"github.com/loomkit/loom-api/internal/store"
)

// authenticatedRequest builds a request whose context carries the given
// user ID, as the auth middleware would after validating a token.
func authenticatedRequest(t *testing.T, method, target, body string, userID uuid.UUID) *http.Request {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
	return r.WithContext(ctx)
}

// mockUserStore is an in-memory store.UserStore that hashes passwords
// the way the real store does.
type mockUserStore struct {
	users     map[uuid.UUID]*domain.User
	createErr error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (m *mockUserStore) Create(_ context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	user.HashedPassword = string(hashed)
	user.Password = ""
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) Update(_ context.Context, user *domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserStore) WithTx(_ pgx.Tx) store.UserStore { return m }

// mockDocumentStore is an in-memory store.DocumentStore.
type mockDocumentStore struct {
	docs       map[uuid.UUID]*domain.Document
	chunkCount int
	createErr  error
	listErr    error
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{docs: make(map[uuid.UUID]*domain.Document)}
}

func (m *mockDocumentStore) Create(_ context.Context, doc *domain.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockDocumentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *mockDocumentStore) ListByOwner(
	_ context.Context,
	ownerID uuid.UUID,
	limit, _ int,
) ([]domain.Document, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var docs []domain.Document
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID && len(docs) < limit {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (m *mockDocumentStore) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	status domain.DocumentStatus,
) error {
	doc, ok := m.docs[id]
	if !ok {
		return store.ErrDocumentNotFound
	}
	doc.Status = status
	return nil
}

func (m *mockDocumentStore) ReplaceChunks(
	_ context.Context,
	_ uuid.UUID,
	_ []domain.Chunk,
	_ [][]float32,
) error {
	return nil
}

func (m *mockDocumentStore) CountChunks(_ context.Context, _ uuid.UUID) (int, error) {
	return m.chunkCount, nil
}

func (m *mockDocumentStore) SearchChunks(
	_ context.Context,
	_ uuid.UUID,
	_ []float32,
	_ int,
) ([]store.ChunkMatch, error) {
	return nil, nil
}

func (m *mockDocumentStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.docs, id)
	return nil
}

func (m *mockDocumentStore) WithTx(_ pgx.Tx) store.DocumentStore { return m }

// mockConversationStore is an in-memory store.ConversationStore.
type mockConversationStore struct {
	convs   []domain.Conversation
	listErr error
}

func (m *mockConversationStore) CreateConversation(_ context.Context, conv *domain.Conversation) error {
	m.convs = append(m.convs, *conv)
	return nil
}

func (m *mockConversationStore) GetConversation(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	for i := range m.convs {
		if m.convs[i].ID == id {
			return &m.convs[i], nil
		}
	}
	return nil, store.ErrConversationNotFound
}

func (m *mockConversationStore) ListByUser(
	_ context.Context,
	userID uuid.UUID,
	limit, _ int,
) ([]domain.Conversation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var convs []domain.Conversation
	for _, conv := range m.convs {
		if conv.UserID == userID && len(convs) < limit {
			convs = append(convs, conv)
		}
	}
	return convs, nil
}

func (m *mockConversationStore) AddMessage(_ context.Context, _ *domain.Message) error {
	return nil
}

func (m *mockConversationStore) RecentMessages(
	_ context.Context,
	_ uuid.UUID,
	_ int,
) ([]domain.Message, error) {
	return nil, nil
}

func (m *mockConversationStore) WithTx(_ pgx.Tx) store.ConversationStore { return m }

// mockAnswerService records the last rag request and returns a canned
// answer or error.
type mockAnswerService struct {
	lastReq rag.AskRequest
	answer  *rag.Answer
	err     error
}

func (m *mockAnswerService) Ask(_ context.Context, req rag.AskRequest) (*rag.Answer, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

// mockEmitter records emitted events.
type mockEmitter struct {
	events  []*events.TaskRequestEvent
	emitErr error
}

func (m *mockEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	if m.emitErr != nil {
		return m.emitErr
	}
	m.events = append(m.events, event)
	return nil
}
