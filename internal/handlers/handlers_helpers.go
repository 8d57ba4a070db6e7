package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	githubapi "repochat-backend/internal/github"
	"repochat-backend/internal/llm"
	"repochat-backend/pkg/httputil"
)

// parseUUIDParam parses a chi URL parameter as a UUID.
func parseUUIDParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// respondVendorError maps upstream vendor failures (LLM API, GitHub API) to
// a response. 401 and 429 from the vendor pass through so the client can fix
// its credential or back off; everything else becomes a 502.
func respondVendorError(w http.ResponseWriter, err error) {
	var llmErr *llm.APIError
	if errors.As(err, &llmErr) {
		switch llmErr.StatusCode {
		case http.StatusUnauthorized, http.StatusTooManyRequests:
			httputil.RespondError(w, llmErr.StatusCode, llmErr.Message)
		default:
			httputil.RespondError(w, http.StatusBadGateway, "LLM provider error: "+llmErr.Message)
		}
		return
	}

	var ghErr *githubapi.APIError
	if errors.As(err, &ghErr) {
		switch ghErr.StatusCode {
		case http.StatusUnauthorized, http.StatusTooManyRequests:
			httputil.RespondError(w, ghErr.StatusCode, ghErr.Message)
		default:
			httputil.RespondError(w, http.StatusBadGateway, "GitHub API error: "+ghErr.Message)
		}
		return
	}

	httputil.RespondError(w, http.StatusBadGateway, "Upstream service error")
}

// isVendorError reports whether err originated from an upstream vendor call.
func isVendorError(err error) bool {
	var llmErr *llm.APIError
	var ghErr *githubapi.APIError
	return errors.As(err, &llmErr) || errors.As(err, &ghErr)
}
