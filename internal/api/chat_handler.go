package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/loomkit/loom-api/internal/api/shared"
	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/platform/logger"
	"github.com/loomkit/loom-api/internal/rag"
	"github.com/loomkit/loom-api/internal/store"
)

// AnswerService answers questions against a user's documents.
// Implemented by rag.Service.
type AnswerService interface {
	Ask(ctx context.Context, req rag.AskRequest) (*rag.Answer, error)
}

// ChatHandler handles question answering and conversation listing.
type ChatHandler struct {
	ragService AnswerService
	convStore  store.ConversationStore
	logger     *slog.Logger
}

// NewChatHandler creates a new ChatHandler with the given dependencies.
func NewChatHandler(
	ragService AnswerService,
	convStore store.ConversationStore,
	log *slog.Logger,
) *ChatHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ChatHandler{
		ragService: ragService,
		convStore:  convStore,
		logger:     log.With(slog.String("component", "chat_handler")),
	}
}

// Ask handles POST /api/chat.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User not authenticated")
		return
	}

	var req ChatRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	answer, err := h.ragService.Ask(r.Context(), rag.AskRequest{
		UserID:         userID,
		ConversationID: req.ConversationID,
		Question:       req.Message,
		TopK:           req.TopK,
		Overrides:      req.Settings,
	})
	if err != nil {
		log.Debug("chat request failed", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "")
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []rag.SourceRef{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ChatResponse{
		ConversationID: answer.ConversationID,
		Answer:         answer.Reply,
		Sources:        sources,
		TokenUsage:     answer.Usage,
		Cached:         answer.Cached,
	})
}

// ListConversations handles GET /api/conversations.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User not authenticated")
		return
	}

	convs, err := h.convStore.ListByUser(r.Context(), userID, listLimit(r), listOffset(r))
	if err != nil {
		log.Error("failed to list conversations", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "Failed to list conversations")
		return
	}

	resp := ListConversationsResponse{Conversations: make([]ConversationResponse, 0, len(convs))}
	for _, conv := range convs {
		resp.Conversations = append(resp.Conversations, ConversationResponse{
			ID:        conv.ID,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
