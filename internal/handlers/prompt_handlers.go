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

// PromptService defines the interface expected from the prompt service.
type PromptService interface {
	CreatePrompt(ctx context.Context, orgID uuid.UUID, req api_models.CreatePromptRequest) (*api_models.PromptResponse, error)
	GetPrompt(ctx context.Context, id, orgID uuid.UUID) (*api_models.PromptResponse, error)
	ListPrompts(ctx context.Context, orgID uuid.UUID) ([]api_models.PromptResponse, error)
	UpdatePrompt(ctx context.Context, id, orgID uuid.UUID, req api_models.UpdatePromptRequest) (*api_models.PromptResponse, error)
	DeletePrompt(ctx context.Context, id, orgID uuid.UUID) error
}

type PromptHandler struct {
	promptService PromptService
}

func NewPromptHandler(promptSvc PromptService) *PromptHandler {
	return &PromptHandler{
		promptService: promptSvc,
	}
}

// HandleCreatePrompt handles POST /v1/prompts
func (h *PromptHandler) HandleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	var req api_models.CreatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.promptService.CreatePrompt(r.Context(), orgID, req)
	if err != nil {
		log.Printf("ERROR [PromptHandler] HandleCreatePrompt for OrgID %s: %v", orgID, err)
		if errors.Is(err, services.ErrPromptValidation) {
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to create prompt")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleListPrompts handles GET /v1/prompts
func (h *PromptHandler) HandleListPrompts(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	prompts, err := h.promptService.ListPrompts(r.Context(), orgID)
	if err != nil {
		log.Printf("ERROR [PromptHandler] HandleListPrompts for OrgID %s: %v", orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list prompts")
		return
	}

	if prompts == nil {
		prompts = []api_models.PromptResponse{}
	}
	httputil.RespondJSON(w, http.StatusOK, api_models.ListPromptsResponse{Prompts: prompts})
}

// HandleGetPrompt handles GET /v1/prompts/{promptID}
func (h *PromptHandler) HandleGetPrompt(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	promptID, ok := parseUUIDParam(r, "promptID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid prompt ID format")
		return
	}

	resp, err := h.promptService.GetPrompt(r.Context(), promptID, orgID)
	if err != nil {
		log.Printf("ERROR [PromptHandler] HandleGetPrompt for ID %s, OrgID %s: %v", promptID, orgID, err)
		if errors.Is(err, services.ErrPromptNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to get prompt")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleUpdatePrompt handles PATCH /v1/prompts/{promptID}
func (h *PromptHandler) HandleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	promptID, ok := parseUUIDParam(r, "promptID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid prompt ID format")
		return
	}

	var req api_models.UpdatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.Name == nil && req.Content == nil && req.IsDefault == nil {
		httputil.RespondError(w, http.StatusBadRequest, "No fields provided for update")
		return
	}

	resp, err := h.promptService.UpdatePrompt(r.Context(), promptID, orgID, req)
	if err != nil {
		log.Printf("ERROR [PromptHandler] HandleUpdatePrompt for ID %s, OrgID %s: %v", promptID, orgID, err)
		switch {
		case errors.Is(err, services.ErrPromptNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrPromptValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to update prompt")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDeletePrompt handles DELETE /v1/prompts/{promptID}
func (h *PromptHandler) HandleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	promptID, ok := parseUUIDParam(r, "promptID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid prompt ID format")
		return
	}

	err := h.promptService.DeletePrompt(r.Context(), promptID, orgID)
	if err != nil {
		log.Printf("ERROR [PromptHandler] HandleDeletePrompt for ID %s, OrgID %s: %v", promptID, orgID, err)
		if errors.Is(err, services.ErrPromptNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete prompt")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
