package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"repochat-backend/internal/auth"
	api_models "repochat-backend/internal/models"
	"repochat-backend/internal/services"
	"repochat-backend/pkg/httputil"
)

type CredentialsHandler struct {
	credService services.CredentialsService
}

func NewCredentialsHandler(credSvc services.CredentialsService) *CredentialsHandler {
	return &CredentialsHandler{
		credService: credSvc,
	}
}

// HandleCreateCredential handles POST /v1/github/credentials
func (h *CredentialsHandler) HandleCreateCredential(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	var req api_models.CreateGithubCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.credService.CreateCredential(r.Context(), req, orgID)
	if err != nil {
		log.Printf("ERROR [CredHandler] HandleCreateCredential for OrgID %s: %v", orgID, err)
		switch {
		case errors.Is(err, services.ErrCredentialValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrCredentialTestFailed):
			// The token did not authenticate against GitHub.
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrCredentialEncryption):
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to secure credential")
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to create credential")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleListCredentials handles GET /v1/github/credentials
func (h *CredentialsHandler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	creds, err := h.credService.ListCredentials(r.Context(), orgID)
	if err != nil {
		log.Printf("ERROR [CredHandler] HandleListCredentials for OrgID %s: %v", orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list credentials")
		return
	}

	if creds == nil {
		creds = []api_models.GithubCredentialResponse{}
	}
	httputil.RespondJSON(w, http.StatusOK, creds)
}

// HandleGetCredential handles GET /v1/github/credentials/{credentialID}
func (h *CredentialsHandler) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	credID, ok := parseUUIDParam(r, "credentialID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid credential ID format")
		return
	}

	resp, err := h.credService.GetCredential(r.Context(), credID, orgID)
	if err != nil {
		log.Printf("ERROR [CredHandler] HandleGetCredential for ID %s, OrgID %s: %v", credID, orgID, err)
		if errors.Is(err, services.ErrCredentialNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to get credential")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDeleteCredential handles DELETE /v1/github/credentials/{credentialID}
func (h *CredentialsHandler) HandleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	credID, ok := parseUUIDParam(r, "credentialID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid credential ID format")
		return
	}

	err := h.credService.DeleteCredential(r.Context(), credID, orgID)
	if err != nil {
		log.Printf("ERROR [CredHandler] HandleDeleteCredential for ID %s, OrgID %s: %v", credID, orgID, err)
		if errors.Is(err, services.ErrCredentialNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete credential")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleTestCredential handles POST /v1/github/credentials/{credentialID}/test
func (h *CredentialsHandler) HandleTestCredential(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	credID, ok := parseUUIDParam(r, "credentialID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid credential ID format")
		return
	}

	resp, err := h.credService.TestCredential(r.Context(), credID, orgID)
	if err != nil {
		log.Printf("ERROR [CredHandler] HandleTestCredential for ID %s, OrgID %s: %v", credID, orgID, err)
		if errors.Is(err, services.ErrCredentialNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to test credential")
		}
		return
	}

	// A failed test is still a 200; the payload carries the outcome.
	httputil.RespondJSON(w, http.StatusOK, resp)
}
