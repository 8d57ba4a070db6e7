package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repochat-backend/internal/llm"
	api_models "repochat-backend/internal/models"
)

func newChatFixture() (*ChatService, *fakeStore, *fakeCompleter) {
	st := newFakeStore()
	completer := &fakeCompleter{}
	promptSvc := NewPromptService(st)
	return NewChatService(st, completer, promptSvc), st, completer
}

func userMessage(content string) api_models.ChatMessageInput {
	return api_models.ChatMessageInput{Role: "user", Content: content}
}

func TestProcessChat_RejectsEmptyMessages(t *testing.T) {
	svc, _, _ := newChatFixture()

	_, err := svc.ProcessChat(context.Background(), uuid.New(), api_models.ChatRequest{})
	assert.ErrorIs(t, err, ErrChatValidation)
}

func TestProcessChat_RejectsInvalidRole(t *testing.T) {
	svc, _, _ := newChatFixture()

	req := api_models.ChatRequest{Messages: []api_models.ChatMessageInput{{Role: "robot", Content: "hi"}}}
	_, err := svc.ProcessChat(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, ErrChatValidation)
}

func TestProcessChat_UnknownSession(t *testing.T) {
	svc, _, _ := newChatFixture()
	missing := uuid.New()

	req := api_models.ChatRequest{
		SessionID: &missing,
		Messages:  []api_models.ChatMessageInput{userMessage("hi")},
	}
	_, err := svc.ProcessChat(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProcessChat_StatelessReturnsCompletion(t *testing.T) {
	svc, st, completer := newChatFixture()
	completer.completeFunc = func(ctx context.Context, messages []llm.Message) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{
			Content: "the answer",
			Model:   "fake-model",
			Usage:   llm.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
		}, nil
	}

	resp, err := svc.ProcessChat(context.Background(), uuid.New(), api_models.ChatRequest{
		Messages: []api_models.ChatMessageInput{userMessage("question")},
	})
	require.NoError(t, err)

	assert.Nil(t, resp.SessionID)
	assert.Equal(t, "assistant", resp.Role)
	assert.Equal(t, "the answer", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.Empty(t, st.messages) // nothing persisted without a session
}

func TestProcessChat_PersistsExchangeWithSession(t *testing.T) {
	svc, st, completer := newChatFixture()
	orgID := uuid.New()
	sess, err := st.CreateChatSession(context.Background(), storeSessionParams(orgID))
	require.NoError(t, err)

	completer.completeFunc = func(ctx context.Context, messages []llm.Message) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{
			Content: "reply",
			Model:   "fake-model",
			Usage:   llm.Usage{PromptTokens: 11, CompletionTokens: 4, TotalTokens: 15},
		}, nil
	}

	resp, err := svc.ProcessChat(context.Background(), orgID, api_models.ChatRequest{
		SessionID: &sess.ID,
		Messages: []api_models.ChatMessageInput{
			userMessage("earlier question"),
			{Role: "assistant", Content: "earlier answer"},
			userMessage("new question"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, &sess.ID, resp.SessionID)

	// Only the newest user message plus the assistant reply are stored.
	require.Len(t, st.messages, 2)
	assert.Equal(t, "user", st.messages[0].Role)
	assert.Equal(t, "new question", st.messages[0].Content)
	assert.Equal(t, 11, st.messages[0].TokenCount)
	assert.Equal(t, "assistant", st.messages[1].Role)
	assert.Equal(t, "reply", st.messages[1].Content)
	assert.Equal(t, 4, st.messages[1].TokenCount)
}

func TestProcessChat_PersistenceFailureDoesNotFailResponse(t *testing.T) {
	svc, st, _ := newChatFixture()
	orgID := uuid.New()
	sess, err := st.CreateChatSession(context.Background(), storeSessionParams(orgID))
	require.NoError(t, err)
	st.errCreateMessage = errors.New("db down")

	resp, err := svc.ProcessChat(context.Background(), orgID, api_models.ChatRequest{
		SessionID: &sess.ID,
		Messages:  []api_models.ChatMessageInput{userMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestProcessChat_UsesExplicitSystemPrompt(t *testing.T) {
	svc, st, completer := newChatFixture()
	orgID := uuid.New()
	prompt, err := st.CreateSystemPrompt(context.Background(), storePromptParams(orgID, "Pirate", "Talk like a pirate.", false))
	require.NoError(t, err)

	_, err = svc.ProcessChat(context.Background(), orgID, api_models.ChatRequest{
		Messages:       []api_models.ChatMessageInput{userMessage("hi")},
		SystemPromptID: &prompt.ID,
	})
	require.NoError(t, err)

	require.Len(t, completer.gotMessages, 1)
	sent := completer.gotMessages[0]
	require.Len(t, sent, 2)
	assert.Equal(t, "system", sent[0].Role)
	assert.Equal(t, "Talk like a pirate.", sent[0].Content)
}

func TestProcessChat_FallsBackToDefaultPrompt(t *testing.T) {
	svc, st, completer := newChatFixture()
	orgID := uuid.New()
	_, err := st.CreateSystemPrompt(context.Background(), storePromptParams(orgID, "Default", "Be concise.", true))
	require.NoError(t, err)

	_, err = svc.ProcessChat(context.Background(), orgID, api_models.ChatRequest{
		Messages: []api_models.ChatMessageInput{userMessage("hi")},
	})
	require.NoError(t, err)

	sent := completer.gotMessages[0]
	require.Len(t, sent, 2)
	assert.Equal(t, "system", sent[0].Role)
	assert.Equal(t, "Be concise.", sent[0].Content)
}

func TestProcessChat_NoPromptWhenNoDefault(t *testing.T) {
	svc, _, completer := newChatFixture()

	_, err := svc.ProcessChat(context.Background(), uuid.New(), api_models.ChatRequest{
		Messages: []api_models.ChatMessageInput{userMessage("hi")},
	})
	require.NoError(t, err)

	sent := completer.gotMessages[0]
	require.Len(t, sent, 1)
	assert.Equal(t, "user", sent[0].Role)
}

func TestProcessChat_UnknownExplicitPrompt(t *testing.T) {
	svc, _, _ := newChatFixture()
	missing := uuid.New()

	_, err := svc.ProcessChat(context.Background(), uuid.New(), api_models.ChatRequest{
		Messages:       []api_models.ChatMessageInput{userMessage("hi")},
		SystemPromptID: &missing,
	})
	assert.ErrorIs(t, err, ErrPromptNotFound)
}

func TestProcessChat_VendorErrorPassesThrough(t *testing.T) {
	svc, _, completer := newChatFixture()
	completer.completeFunc = func(ctx context.Context, messages []llm.Message) (*llm.CompletionResult, error) {
		return nil, &llm.APIError{StatusCode: http.StatusTooManyRequests, Message: "rate limited"}
	}

	_, err := svc.ProcessChat(context.Background(), uuid.New(), api_models.ChatRequest{
		Messages: []api_models.ChatMessageInput{userMessage("hi")},
	})
	var apiErr *llm.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}
