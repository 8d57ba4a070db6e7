package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"repochat-backend/internal/llm"
	api_models "repochat-backend/internal/models"
	"repochat-backend/internal/store"
)

// Custom errors for chat service
var (
	ErrChatValidation = errors.New("chat validation failed")
)

var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// ChatService proxies chat requests to the LLM and persists the exchange
// when a session is attached.
type ChatService struct {
	store         store.Store
	completer     llm.Completer
	promptService *PromptService
}

// NewChatService creates a new ChatService.
func NewChatService(s store.Store, completer llm.Completer, promptService *PromptService) *ChatService {
	return &ChatService{
		store:         s,
		completer:     completer,
		promptService: promptService,
	}
}

// ProcessChat validates the request, resolves the system prompt, calls the
// LLM, and (when a session is attached) persists the final user message and
// the assistant reply with their token counts.
func (s *ChatService) ProcessChat(ctx context.Context, orgID uuid.UUID, req api_models.ChatRequest) (*api_models.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages cannot be empty", ErrChatValidation)
	}
	for i, m := range req.Messages {
		if !validRoles[m.Role] {
			return nil, fmt.Errorf("%w: message %d has invalid role %q", ErrChatValidation, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil, fmt.Errorf("%w: message %d has empty content", ErrChatValidation, i)
		}
	}

	// Verify the session up front so we don't call the vendor for a 404.
	if req.SessionID != nil {
		if _, err := s.store.GetChatSessionByID(ctx, *req.SessionID, orgID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrSessionNotFound
			}
			return nil, fmt.Errorf("failed to verify session: %w", err)
		}
	}

	systemPrompt, err := s.promptService.ResolveSystemPrompt(ctx, orgID, req.SystemPromptID)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	result, err := s.completer.Complete(ctx, messages)
	if err != nil {
		log.Printf("ERROR [ChatService] ProcessChat: LLM call failed for OrgID %s: %v", orgID, err)
		return nil, err // preserve llm.APIError for status mapping in the handler
	}

	if req.SessionID != nil {
		s.persistExchange(ctx, *req.SessionID, req.Messages, result)
	}

	return &api_models.ChatResponse{
		SessionID: req.SessionID,
		Role:      "assistant",
		Content:   result.Content,
		Model:     result.Model,
		Usage: api_models.ChatUsage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
	}, nil
}

// persistExchange stores the final user message and the assistant reply.
// Persistence failures are logged but do not fail the chat response; the
// completion already happened and the client has paid for it.
func (s *ChatService) persistExchange(ctx context.Context, sessionID uuid.UUID, inputs []api_models.ChatMessageInput, result *llm.CompletionResult) {
	// Only the newest user message is stored; earlier messages in the
	// request are history the client replayed from this same session.
	last := inputs[len(inputs)-1]
	if last.Role == "user" {
		_, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
			ID:         uuid.New(),
			SessionID:  sessionID,
			Role:       "user",
			Content:    last.Content,
			TokenCount: result.Usage.PromptTokens,
		})
		if err != nil {
			log.Printf("WARN [ChatService] persistExchange: Failed to store user message for session %s: %v", sessionID, err)
		}
	}

	_, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Role:       "assistant",
		Content:    result.Content,
		TokenCount: result.Usage.CompletionTokens,
	})
	if err != nil {
		log.Printf("WARN [ChatService] persistExchange: Failed to store assistant message for session %s: %v", sessionID, err)
	}
}
