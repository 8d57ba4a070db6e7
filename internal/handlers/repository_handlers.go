package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"repochat-backend/internal/analysis"
	"repochat-backend/internal/auth"
	api_models "repochat-backend/internal/models"
	"repochat-backend/internal/services"
	"repochat-backend/pkg/httputil"
)

type RepositoryHandler struct {
	repoService *services.RepositoryService
}

func NewRepositoryHandler(repoSvc *services.RepositoryService) *RepositoryHandler {
	return &RepositoryHandler{
		repoService: repoSvc,
	}
}

// HandleCreateRepository handles POST /v1/github/repositories
func (h *RepositoryHandler) HandleCreateRepository(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	var req api_models.CreateRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.repoService.CreateRepository(r.Context(), orgID, req)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleCreateRepository for OrgID %s: %v", orgID, err)
		switch {
		case errors.Is(err, services.ErrRepositoryValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrRepositoryUnreachable):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrCredentialNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case isVendorError(err):
			respondVendorError(w, err)
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to create repository")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleListRepositories handles GET /v1/github/repositories
func (h *RepositoryHandler) HandleListRepositories(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	repos, err := h.repoService.ListRepositories(r.Context(), orgID)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleListRepositories for OrgID %s: %v", orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list repositories")
		return
	}

	if repos == nil {
		repos = []api_models.RepositoryResponse{}
	}
	httputil.RespondJSON(w, http.StatusOK, api_models.ListRepositoriesResponse{Repositories: repos})
}

// HandleGetRepository handles GET /v1/github/repositories/{repositoryID}
func (h *RepositoryHandler) HandleGetRepository(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	repoID, ok := parseUUIDParam(r, "repositoryID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid repository ID format")
		return
	}

	resp, err := h.repoService.GetRepository(r.Context(), repoID, orgID)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleGetRepository for ID %s, OrgID %s: %v", repoID, orgID, err)
		if errors.Is(err, services.ErrRepositoryNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to get repository")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDeleteRepository handles DELETE /v1/github/repositories/{repositoryID}
func (h *RepositoryHandler) HandleDeleteRepository(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	repoID, ok := parseUUIDParam(r, "repositoryID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid repository ID format")
		return
	}

	err := h.repoService.DeleteRepository(r.Context(), repoID, orgID)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleDeleteRepository for ID %s, OrgID %s: %v", repoID, orgID, err)
		if errors.Is(err, services.ErrRepositoryNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete repository")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAnalyzeRepository handles POST /v1/github/repositories/{repositoryID}/analyze
func (h *RepositoryHandler) HandleAnalyzeRepository(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	repoID, ok := parseUUIDParam(r, "repositoryID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid repository ID format")
		return
	}

	resp, err := h.repoService.AnalyzeRepository(r.Context(), repoID, orgID)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleAnalyzeRepository for ID %s, OrgID %s: %v", repoID, orgID, err)
		switch {
		case errors.Is(err, services.ErrRepositoryNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrCredentialNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, analysis.ErrMalformedResponse):
			httputil.RespondError(w, http.StatusBadGateway, "LLM returned an unusable analysis")
		case isVendorError(err):
			respondVendorError(w, err)
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to analyze repository")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGenerateFileChanges handles POST /v1/github/repositories/{repositoryID}/files
func (h *RepositoryHandler) HandleGenerateFileChanges(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	repoID, ok := parseUUIDParam(r, "repositoryID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid repository ID format")
		return
	}

	var req api_models.GenerateFileChangesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	changes, err := h.repoService.GenerateFileChanges(r.Context(), repoID, orgID, req)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleGenerateFileChanges for ID %s, OrgID %s: %v", repoID, orgID, err)
		switch {
		case errors.Is(err, services.ErrRepositoryValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrRepositoryNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, analysis.ErrMalformedResponse):
			httputil.RespondError(w, http.StatusBadGateway, "LLM returned unusable file changes")
		case isVendorError(err):
			respondVendorError(w, err)
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to generate file changes")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, api_models.ListFileChangesResponse{FileChanges: changes})
}

// HandleListFileChanges handles GET /v1/github/repositories/{repositoryID}/files
func (h *RepositoryHandler) HandleListFileChanges(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	repoID, ok := parseUUIDParam(r, "repositoryID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid repository ID format")
		return
	}

	changes, err := h.repoService.ListFileChanges(r.Context(), repoID, orgID)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleListFileChanges for ID %s, OrgID %s: %v", repoID, orgID, err)
		if errors.Is(err, services.ErrRepositoryNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to list file changes")
		}
		return
	}

	if changes == nil {
		changes = []api_models.FileChangeResponse{}
	}
	httputil.RespondJSON(w, http.StatusOK, api_models.ListFileChangesResponse{FileChanges: changes})
}

// HandleGetFileChange handles GET /v1/github/files/{fileChangeID}
func (h *RepositoryHandler) HandleGetFileChange(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	fileChangeID, ok := parseUUIDParam(r, "fileChangeID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid file change ID format")
		return
	}

	resp, err := h.repoService.GetFileChange(r.Context(), fileChangeID, orgID)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleGetFileChange for ID %s, OrgID %s: %v", fileChangeID, orgID, err)
		if errors.Is(err, services.ErrFileChangeNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to get file change")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleCommitFileChange handles POST /v1/github/files/{fileChangeID}/commit
func (h *RepositoryHandler) HandleCommitFileChange(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	fileChangeID, ok := parseUUIDParam(r, "fileChangeID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid file change ID format")
		return
	}

	resp, err := h.repoService.CommitFileChange(r.Context(), fileChangeID, orgID)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleCommitFileChange for ID %s, OrgID %s: %v", fileChangeID, orgID, err)
		switch {
		case errors.Is(err, services.ErrFileChangeNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrFileChangeNotPending):
			httputil.RespondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, services.ErrRepositoryNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case isVendorError(err):
			respondVendorError(w, err)
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to commit file change")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDeleteFileChange handles DELETE /v1/github/files/{fileChangeID}
func (h *RepositoryHandler) HandleDeleteFileChange(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	fileChangeID, ok := parseUUIDParam(r, "fileChangeID")
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid file change ID format")
		return
	}

	err := h.repoService.DeleteFileChange(r.Context(), fileChangeID, orgID)
	if err != nil {
		log.Printf("ERROR [RepoHandler] HandleDeleteFileChange for ID %s, OrgID %s: %v", fileChangeID, orgID, err)
		switch {
		case errors.Is(err, services.ErrFileChangeNotFound):
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrFileChangeNotPending):
			httputil.RespondError(w, http.StatusConflict, err.Error())
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete file change")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
