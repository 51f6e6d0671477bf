package llm

import (
	"testing"

	"github.com/loomkit/loom-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestChatRequestValidate(t *testing.T) {
	t.Parallel()

	valid := ChatRequest{
		Messages: []Message{
			{Role: domain.RoleSystem, Content: "answer briefly"},
			{Role: domain.RoleUser, Content: "what is a vector store?"},
		},
		Settings: domain.DefaultGenerationSettings(),
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(r *ChatRequest)
		wantErr error
	}{
		{
			"no messages",
			func(r *ChatRequest) { r.Messages = nil },
			ErrEmptyInput,
		},
		{
			"empty content",
			func(r *ChatRequest) { r.Messages[1].Content = "" },
			ErrEmptyInput,
		},
		{
			"bad role",
			func(r *ChatRequest) { r.Messages[0].Role = domain.Role("narrator") },
			domain.ErrInvalidRole,
		},
		{
			"bad settings",
			func(r *ChatRequest) { r.Settings.MaxTokens = 0 },
			domain.ErrMaxTokensNotPositive,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := ChatRequest{
				Messages: []Message{
					{Role: domain.RoleSystem, Content: "answer briefly"},
					{Role: domain.RoleUser, Content: "what is a vector store?"},
				},
				Settings: domain.DefaultGenerationSettings(),
			}
			tc.mutate(&req)
			assert.ErrorIs(t, req.Validate(), tc.wantErr)
		})
	}
}
