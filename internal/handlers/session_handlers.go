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

// SessionService defines the interface expected from the session service.
type SessionService interface {
	CreateSession(ctx context.Context, orgID uuid.UUID, req api_models.CreateSessionRequest) (*api_models.SessionResponse, error)
	GetSession(ctx context.Context, id, orgID uuid.UUID) (*api_models.SessionResponse, error)
	ListSessions(ctx context.Context, orgID uuid.UUID) ([]api_models.SessionResponse, error)
	RenameSession(ctx context.Context, id, orgID uuid.UUID, req api_models.UpdateSessionRequest) (*api_models.SessionResponse, error)
	DeleteSession(ctx context.Context, id, orgID uuid.UUID) error
}

type SessionHandler struct {
	sessionService SessionService
}

func NewSessionHandler(sessionSvc SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionSvc,
	}
}

// HandleCreateSession handles POST /v1/sessions
func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	var req api_models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.sessionService.CreateSession(r.Context(), orgID, req)
	if err != nil {
		log.Printf("ERROR [SessionHandler] HandleCreateSession for OrgID %s: %v", orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleListSessions handles GET /v1/sessions
func (h *SessionHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	sessions, err := h.sessionService.ListSessions(r.Context(), orgID)
	if err != nil {
		log.Printf("ERROR [SessionHandler] HandleListSessions for OrgID %s: %v", orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	if sessions == nil {
		sessions = []api_models.SessionResponse{}
	}
	httputil.RespondJSON(w, http.StatusOK, api_models.ListSessionsResponse{Sessions: sessions})
}

// HandleGetSession handles GET /v1/sessions/{sessionID}
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	sessionID, ok := parseUUIDParam(r, "sessionID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	resp, err := h.sessionService.GetSession(r.Context(), sessionID, orgID)
	if err != nil {
		log.Printf("ERROR [SessionHandler] HandleGetSession for ID %s, OrgID %s: %v", sessionID, orgID, err)
		if errors.Is(err, services.ErrSessionNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to get session")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleRenameSession handles PATCH /v1/sessions/{sessionID}
func (h *SessionHandler) HandleRenameSession(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	sessionID, ok := parseUUIDParam(r, "sessionID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	var req api_models.UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.sessionService.RenameSession(r.Context(), sessionID, orgID, req)
	if err != nil {
		log.Printf("ERROR [SessionHandler] HandleRenameSession for ID %s, OrgID %s: %v", sessionID, orgID, err)
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrSessionValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to rename session")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDeleteSession handles DELETE /v1/sessions/{sessionID}
func (h *SessionHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	sessionID, ok := parseUUIDParam(r, "sessionID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	err := h.sessionService.DeleteSession(r.Context(), sessionID, orgID)
	if err != nil {
		log.Printf("ERROR [SessionHandler] HandleDeleteSession for ID %s, OrgID %s: %v", sessionID, orgID, err)
		if errors.Is(err, services.ErrSessionNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete session")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
