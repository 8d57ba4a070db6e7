package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"repochat-backend/internal/auth"
	api_models "repochat-backend/internal/models"
	"repochat-backend/internal/services"
	"repochat-backend/pkg/httputil"
)

// ChatService defines the interface expected from the chat service.
type ChatService interface {
	ProcessChat(ctx context.Context, orgID uuid.UUID, req api_models.ChatRequest) (*api_models.ChatResponse, error)
}

type ChatHandler struct {
	chatService ChatService
}

func NewChatHandler(chatSvc ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatSvc,
	}
}

// HandleChat handles POST /v1/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	var req api_models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.chatService.ProcessChat(r.Context(), orgID, req)
	if err != nil {
		log.Printf("ERROR [ChatHandler] HandleChat for OrgID %s: %v", orgID, err)
		switch {
		case errors.Is(err, services.ErrChatValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrSessionNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrPromptNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case isVendorError(err):
			respondVendorError(w, err)
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Chat request failed")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
