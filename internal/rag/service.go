package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/loomkit/loom-api/internal/config"
	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/llm"
	"github.com/loomkit/loom-api/internal/platform/logger"
	"github.com/loomkit/loom-api/internal/store"
)

// answerPromptName is the prompt the service renders for every question.
const answerPromptName = "rag_answer"

// maxTopK caps per-request retrieval depth so a single question cannot
// drag an unbounded number of chunks into the prompt.
const maxTopK = 20

// ErrEmptyQuestion is returned when a question is blank.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// Cache stores rendered answers keyed by a content hash. A miss is
// reported as found == false, not as an error.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// AskRequest is a question posed by a user, optionally continuing an
// existing conversation.
type AskRequest struct {
	UserID         uuid.UUID
	ConversationID *uuid.UUID
	Question       string
	// TopK overrides the configured retrieval depth when positive.
	TopK      int
	Overrides *domain.GenerationOverrides
}

// SourceRef identifies a chunk that grounded an answer.
type SourceRef struct {
	DocumentID    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	ChunkIndex    int       `json:"chunk_index"`
	Distance      float64   `json:"distance"`
}

// Answer is the service's reply to a question.
type Answer struct {
	ConversationID uuid.UUID         `json:"conversation_id"`
	Reply          string            `json:"reply"`
	Sources        []SourceRef       `json:"sources"`
	Usage          domain.TokenUsage `json:"usage"`
	Cached         bool              `json:"cached"`
}

// promptData is the data rendered into the answer prompt template.
type promptData struct {
	Question string
	Context  string
}

// Service answers questions over a user's documents.
type Service struct {
	client   llm.Client
	docs     store.DocumentStore
	convs    store.ConversationStore
	prompts  *PromptRegistry
	cache    Cache
	defaults domain.GenerationSettings
	cfg      config.RAGConfig
	logger   *slog.Logger
}

// NewService creates a RAG service. cache may be nil, in which case
// answers are never cached.
func NewService(
	client llm.Client,
	docs store.DocumentStore,
	convs store.ConversationStore,
	prompts *PromptRegistry,
	cache Cache,
	defaults domain.GenerationSettings,
	cfg config.RAGConfig,
	logger *slog.Logger,
) (*Service, error) {
	if client == nil {
		return nil, errors.New("llm client cannot be nil")
	}
	if docs == nil {
		return nil, errors.New("document store cannot be nil")
	}
	if convs == nil {
		return nil, errors.New("conversation store cannot be nil")
	}
	if prompts == nil {
		return nil, errors.New("prompt registry cannot be nil")
	}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default settings: %w", err)
	}
	if _, err := prompts.Get(answerPromptName); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		client:   client,
		docs:     docs,
		convs:    convs,
		prompts:  prompts,
		cache:    cache,
		defaults: defaults,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "rag_service")),
	}, nil
}

// Ask answers a question using the caller's documents as context. When
// ConversationID is set, the conversation's recent history is included in
// the prompt and the exchange is appended to it; otherwise a new
// conversation is started. Returns domain.ErrUnauthorized if the
// conversation belongs to another user.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	settings, err := s.defaults.Merge(req.Overrides)
	if err != nil {
		return nil, err
	}

	conv, history, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	// Cached answers are only served for fresh conversations; with history
	// in play the same question can deserve a different reply.
	cacheKey := s.cacheKey(req.UserID, question, settings)
	if s.cache != nil && len(history) == 0 {
		if cached, found, err := s.cache.Get(ctx, cacheKey); err != nil {
			log.Warn("answer cache lookup failed", slog.String("error", err.Error()))
		} else if found {
			log.Debug("answer served from cache")
			answer, err := s.persistExchange(ctx, conv, question, cached)
			if err != nil {
				return nil, err
			}
			answer.Cached = true
			return answer, nil
		}
	}

	matches, err := s.retrieve(ctx, req.UserID, question, req.TopK)
	if err != nil {
		return nil, err
	}

	messages, err := s.buildMessages(history, question, matches)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Chat(ctx, llm.ChatRequest{
		Messages: messages,
		Settings: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	answer, err := s.persistExchange(ctx, conv, question, resp.Content)
	if err != nil {
		return nil, err
	}
	answer.Usage = resp.Usage
	answer.Sources = sourceRefs(matches)

	if s.cache != nil && len(history) == 0 {
		if err := s.cache.Set(ctx, cacheKey, resp.Content); err != nil {
			log.Warn("failed to cache answer", slog.String("error", err.Error()))
		}
	}

	log.Info("question answered",
		slog.String("conversation_id", conv.ID.String()),
		slog.Int("source_count", len(answer.Sources)),
		slog.Int("total_tokens", resp.Usage.Total))
	return answer, nil
}

// resolveConversation loads or creates the conversation for a request and
// returns its recent history.
func (s *Service) resolveConversation(
	ctx context.Context,
	req AskRequest,
) (*domain.Conversation, []domain.Message, error) {
	if req.ConversationID == nil {
		conv, err := domain.NewConversation(req.UserID, conversationTitle(req.Question))
		if err != nil {
			return nil, nil, err
		}
		if err := s.convs.CreateConversation(ctx, conv); err != nil {
			return nil, nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		return conv, nil, nil
	}

	conv, err := s.convs.GetConversation(ctx, *req.ConversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv.UserID != req.UserID {
		return nil, nil, domain.ErrUnauthorized
	}

	limit := s.cfg.HistoryLimit
	if limit <= 0 {
		limit = 20
	}
	history, err := s.convs.RecentMessages(ctx, conv.ID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	return conv, history, nil
}

// retrieve embeds the question and finds the nearest chunks.
func (s *Service) retrieve(
	ctx context.Context,
	userID uuid.UUID,
	question string,
	requestedTopK int,
) ([]store.ChunkMatch, error) {
	vectors, err := s.client.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one embedding for question, got %d", len(vectors))
	}

	topK := requestedTopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if topK <= 0 {
		topK = 5
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	matches, err := s.docs.SearchChunks(ctx, userID, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	return matches, nil
}

// buildMessages renders the answer prompt and assembles the chat request:
// system instruction, prior conversation turns, then the rendered question.
func (s *Service) buildMessages(
	history []domain.Message,
	question string,
	matches []store.ChunkMatch,
) ([]llm.Message, error) {
	prompt, err := s.prompts.Get(answerPromptName)
	if err != nil {
		return nil, err
	}

	rendered, err := prompt.Render(promptData{
		Question: question,
		Context:  s.contextBlock(matches),
	})
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(history)+2)
	if prompt.System != "" {
		messages = append(messages, llm.Message{
			Role:    domain.RoleSystem,
			Content: prompt.System,
		})
	}
	for _, msg := range history {
		messages = append(messages, llm.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	messages = append(messages, llm.Message{
		Role:    domain.RoleUser,
		Content: rendered,
	})

	return messages, nil
}

// contextBlock concatenates retrieved chunks into the prompt's context
// section, respecting the configured character budget.
func (s *Service) contextBlock(matches []store.ChunkMatch) string {
	if len(matches) == 0 {
		return "(no relevant documents found)"
	}

	budget := s.cfg.MaxContextChars
	if budget <= 0 {
		budget = 6000
	}

	var sb strings.Builder
	for _, m := range matches {
		entry := fmt.Sprintf("[%s #%d]\n%s\n\n", m.DocumentTitle, m.Chunk.Index, m.Chunk.Content)
		if sb.Len()+len(entry) > budget {
			break
		}
		sb.WriteString(entry)
	}

	if sb.Len() == 0 {
		// Even one oversized chunk beats an empty context.
		first := matches[0]
		content := first.Chunk.Content
		if len(content) > budget {
			content = content[:budget]
		}
		return fmt.Sprintf("[%s #%d]\n%s", first.DocumentTitle, first.Chunk.Index, content)
	}

	return strings.TrimSpace(sb.String())
}

// persistExchange appends the user question and assistant reply to the
// conversation and returns the answer skeleton.
func (s *Service) persistExchange(
	ctx context.Context,
	conv *domain.Conversation,
	question, reply string,
) (*Answer, error) {
	userMsg, err := domain.NewMessage(conv.ID, domain.RoleUser, question)
	if err != nil {
		return nil, err
	}
	if err := s.convs.AddMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist question: %w", err)
	}

	assistantMsg, err := domain.NewMessage(conv.ID, domain.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}
	if err := s.convs.AddMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to persist answer: %w", err)
	}

	return &Answer{
		ConversationID: conv.ID,
		Reply:          reply,
	}, nil
}

// cacheKey derives a stable key from everything that shapes a fresh
// answer: the user's corpus, the question, and the generation settings.
func (s *Service) cacheKey(userID uuid.UUID, question string, settings domain.GenerationSettings) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%.4f|%.4f|%d",
		s.client.ModelName(),
		userID,
		question,
		settings.Temperature,
		settings.TopP,
		settings.MaxTokens,
	)
	return "answer:" + hex.EncodeToString(h.Sum(nil))
}

// sourceRefs converts chunk matches into answer citations.
func sourceRefs(matches []store.ChunkMatch) []SourceRef {
	refs := make([]SourceRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, SourceRef{
			DocumentID:    m.Chunk.DocumentID,
			DocumentTitle: m.DocumentTitle,
			ChunkIndex:    m.Chunk.Index,
			Distance:      m.Distance,
		})
	}
	return refs
}

// conversationTitle derives a short title from the first question.
func conversationTitle(question string) string {
	title := strings.TrimSpace(question)
	const maxTitle = 80
	if len(title) > maxTitle {
		title = strings.TrimSpace(title[:maxTitle]) + "..."
	}
	return title
}
