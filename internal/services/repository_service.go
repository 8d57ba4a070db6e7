package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"repochat-backend/internal/analysis"
	githubapi "repochat-backend/internal/github"
	"repochat-backend/internal/llm"
	api_models "repochat-backend/internal/models"
	db_models "repochat-backend/internal/models"
	"repochat-backend/internal/store"
)

// Custom errors for repository service
var (
	ErrRepositoryNotFound    = errors.New("github repository not found")
	ErrRepositoryValidation  = errors.New("repository validation failed")
	ErrFileChangeNotFound    = errors.New("file change not found")
	ErrFileChangeNotPending  = errors.New("file change is not pending")
	ErrRepositoryUnreachable = errors.New("repository is not accessible with the given credential")
)

// RepositoryService handles tracked repositories, AI analysis, and the file
// change lifecycle (generate -> pending -> committed/failed).
type RepositoryService struct {
	store       store.Store
	credentials CredentialsService
	factory     githubapi.Factory
	completer   llm.Completer
}

// NewRepositoryService creates a new RepositoryService.
func NewRepositoryService(s store.Store, creds CredentialsService, factory githubapi.Factory, completer llm.Completer) *RepositoryService {
	return &RepositoryService{
		store:       s,
		credentials: creds,
		factory:     factory,
		completer:   completer,
	}
}

// --- Helper Functions ---

func mapRepositoryToResponse(repo *db_models.GithubRepository) *api_models.RepositoryResponse {
	return &api_models.RepositoryResponse{
		ID:             repo.ID,
		OrganizationID: repo.OrganizationID,
		CredentialID:   repo.CredentialID,
		Owner:          repo.Owner,
		Repo:           repo.Repo,
		DefaultBranch:  repo.DefaultBranch,
		LastAnalyzed:   repo.LastAnalyzed,
		Summary:        repo.Summary,
		CreatedAt:      repo.CreatedAt,
		UpdatedAt:      repo.UpdatedAt,
	}
}

func mapFileChangeToResponse(fc *db_models.GithubFileChange) *api_models.FileChangeResponse {
	return &api_models.FileChangeResponse{
		ID:            fc.ID,
		RepositoryID:  fc.RepositoryID,
		Path:          fc.Path,
		Content:       fc.Content,
		CommitMessage: fc.CommitMessage,
		Status:        fc.Status,
		CommitURL:     fc.CommitURL,
		CreatedAt:     fc.CreatedAt,
		UpdatedAt:     fc.UpdatedAt,
	}
}

// clientFor decrypts the repository's credential and builds a GitHub client.
func (s *RepositoryService) clientFor(ctx context.Context, credentialID, orgID uuid.UUID) (githubapi.API, error) {
	cred, err := s.store.GetGithubCredentialByID(ctx, credentialID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to retrieve credential: %w", err)
	}
	token, err := s.credentials.DecryptToken(cred)
	if err != nil {
		log.Printf("ERROR [RepoService] clientFor: Decryption failed for CredID %s: %v", credentialID, err)
		return nil, err
	}
	return s.factory(token), nil
}

// getRepository fetches an org-scoped repository row or ErrRepositoryNotFound.
func (s *RepositoryService) getRepository(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubRepository, error) {
	repo, err := s.store.GetGithubRepositoryByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRepositoryNotFound
		}
		return nil, fmt.Errorf("failed to retrieve repository: %w", err)
	}
	return repo, nil
}

// --- Repository CRUD ---

// CreateRepository verifies the repository is reachable with the given
// credential, records its default branch, and tracks it.
func (s *RepositoryService) CreateRepository(ctx context.Context, orgID uuid.UUID, req api_models.CreateRepositoryRequest) (*api_models.RepositoryResponse, error) {
	owner := strings.TrimSpace(req.Owner)
	name := strings.TrimSpace(req.Repo)
	if owner == "" || name == "" {
		return nil, fmt.Errorf("%w: owner and repo cannot be empty", ErrRepositoryValidation)
	}
	if req.CredentialID == uuid.Nil {
		return nil, fmt.Errorf("%w: credential_id is required", ErrRepositoryValidation)
	}

	client, err := s.clientFor(ctx, req.CredentialID, orgID)
	if err != nil {
		return nil, err
	}

	info, err := client.GetRepository(ctx, owner, name)
	if err != nil {
		var apiErr *githubapi.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			log.Printf("WARN [RepoService] CreateRepository: %s/%s not reachable for OrgID %s: %v", owner, name, orgID, err)
			return nil, fmt.Errorf("%w: %s/%s", ErrRepositoryUnreachable, owner, name)
		}
		log.Printf("ERROR [RepoService] CreateRepository: GitHub lookup failed for %s/%s: %v", owner, name, err)
		return nil, err
	}

	repo, err := s.store.CreateGithubRepository(ctx, store.CreateGithubRepositoryParams{
		ID:             uuid.New(),
		OrganizationID: orgID,
		CredentialID:   req.CredentialID,
		Owner:          owner,
		Repo:           name,
		DefaultBranch:  info.DefaultBranch,
	})
	if err != nil {
		log.Printf("ERROR [RepoService] CreateRepository: Store call failed for %s/%s, OrgID %s: %v", owner, name, orgID, err)
		return nil, fmt.Errorf("failed to save repository: %w", err)
	}

	log.Printf("[RepoService] CreateRepository: Tracking %s/%s (branch %s) as RepoID %s for OrgID %s", owner, name, info.DefaultBranch, repo.ID, orgID)
	return mapRepositoryToResponse(repo), nil
}

// GetRepository retrieves a tracked repository by ID.
func (s *RepositoryService) GetRepository(ctx context.Context, id, orgID uuid.UUID) (*api_models.RepositoryResponse, error) {
	repo, err := s.getRepository(ctx, id, orgID)
	if err != nil {
		return nil, err
	}
	return mapRepositoryToResponse(repo), nil
}

// ListRepositories retrieves all tracked repositories for the organization.
func (s *RepositoryService) ListRepositories(ctx context.Context, orgID uuid.UUID) ([]api_models.RepositoryResponse, error) {
	repos, err := s.store.ListGithubRepositories(ctx, orgID)
	if err != nil {
		log.Printf("ERROR [RepoService] ListRepositories: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	resp := make([]api_models.RepositoryResponse, len(repos))
	for i := range repos {
		resp[i] = *mapRepositoryToResponse(&repos[i])
	}
	return resp, nil
}

// DeleteRepository stops tracking a repository; its file changes are removed
// by the database cascade. Nothing on GitHub is touched.
func (s *RepositoryService) DeleteRepository(ctx context.Context, id, orgID uuid.UUID) error {
	err := s.store.DeleteGithubRepository(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRepositoryNotFound
		}
		log.Printf("ERROR [RepoService] DeleteRepository: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("failed to delete repository: %w", err)
	}
	log.Printf("[RepoService] DeleteRepository: Deleted RepoID %s for OrgID %s", id, orgID)
	return nil
}

// --- Analysis ---

// AnalyzeRepository reads the repository's metadata, tree, and key files,
// asks the LLM for a structured summary, and stores it on the row.
func (s *RepositoryService) AnalyzeRepository(ctx context.Context, id, orgID uuid.UUID) (*api_models.RepositoryResponse, error) {
	repo, err := s.getRepository(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	client, err := s.clientFor(ctx, repo.CredentialID, orgID)
	if err != nil {
		return nil, err
	}

	info, err := client.GetRepository(ctx, repo.Owner, repo.Repo)
	if err != nil {
		log.Printf("ERROR [RepoService] AnalyzeRepository: Metadata fetch failed for %s/%s: %v", repo.Owner, repo.Repo, err)
		return nil, err
	}

	entries, err := client.ListTree(ctx, repo.Owner, repo.Repo, info.DefaultBranch)
	if err != nil {
		log.Printf("ERROR [RepoService] AnalyzeRepository: Tree fetch failed for %s/%s: %v", repo.Owner, repo.Repo, err)
		return nil, err
	}

	files := make(map[string]string)
	for _, path := range analysis.SelectKeyPaths(entries, analysis.MaxKeyFiles) {
		content, err := client.GetFileContent(ctx, repo.Owner, repo.Repo, path, info.DefaultBranch)
		if err != nil {
			// A single unreadable file should not sink the whole analysis.
			log.Printf("WARN [RepoService] AnalyzeRepository: Skipping unreadable file %s in %s/%s: %v", path, repo.Owner, repo.Repo, err)
			continue
		}
		files[path] = content
	}

	messages := []llm.Message{
		{Role: "system", Content: analysis.AnalysisSystemPrompt()},
		{Role: "user", Content: analysis.BuildAnalysisPrompt(info, entries, files)},
	}
	result, err := s.completer.Complete(ctx, messages)
	if err != nil {
		log.Printf("ERROR [RepoService] AnalyzeRepository: LLM call failed for %s/%s: %v", repo.Owner, repo.Repo, err)
		return nil, err
	}

	summary, err := analysis.ParseSummary(result.Content)
	if err != nil {
		log.Printf("ERROR [RepoService] AnalyzeRepository: Unparseable LLM output for %s/%s: %v", repo.Owner, repo.Repo, err)
		return nil, err
	}

	updated, err := s.store.UpdateRepositoryAnalysis(ctx, id, orgID, summary, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRepositoryNotFound
		}
		log.Printf("ERROR [RepoService] AnalyzeRepository: Store update failed for RepoID %s: %v", id, err)
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	log.Printf("[RepoService] AnalyzeRepository: Stored analysis for %s/%s (RepoID %s, %d files inlined)", repo.Owner, repo.Repo, id, len(files))
	return mapRepositoryToResponse(updated), nil
}

// --- File changes ---

// GenerateFileChanges asks the LLM to propose file changes for the given
// instruction and stores each as a pending row. Nothing is pushed to GitHub
// until the caller commits a change explicitly.
func (s *RepositoryService) GenerateFileChanges(ctx context.Context, repoID, orgID uuid.UUID, req api_models.GenerateFileChangesRequest) ([]api_models.FileChangeResponse, error) {
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		return nil, fmt.Errorf("%w: instruction cannot be empty", ErrRepositoryValidation)
	}

	repo, err := s.getRepository(ctx, repoID, orgID)
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{
		{Role: "system", Content: analysis.ChangeSystemPrompt()},
		{Role: "user", Content: analysis.BuildChangePrompt(repo.Owner, repo.Repo, repo.DefaultBranch, repo.Summary, instruction)},
	}
	result, err := s.completer.Complete(ctx, messages)
	if err != nil {
		log.Printf("ERROR [RepoService] GenerateFileChanges: LLM call failed for RepoID %s: %v", repoID, err)
		return nil, err
	}

	proposed, err := analysis.ParseFileChanges(result.Content)
	if err != nil {
		log.Printf("ERROR [RepoService] GenerateFileChanges: Unparseable LLM output for RepoID %s: %v", repoID, err)
		return nil, err
	}

	resp := make([]api_models.FileChangeResponse, 0, len(proposed))
	for _, p := range proposed {
		fc, err := s.store.CreateGithubFileChange(ctx, store.CreateGithubFileChangeParams{
			ID:            uuid.New(),
			RepositoryID:  repo.ID,
			Path:          p.Path,
			Content:       p.Content,
			CommitMessage: p.CommitMessage,
		})
		if err != nil {
			log.Printf("ERROR [RepoService] GenerateFileChanges: Store call failed for path %s, RepoID %s: %v", p.Path, repoID, err)
			return nil, fmt.Errorf("failed to save file change: %w", err)
		}
		resp = append(resp, *mapFileChangeToResponse(fc))
	}

	log.Printf("[RepoService] GenerateFileChanges: Created %d pending change(s) for RepoID %s", len(resp), repoID)
	return resp, nil
}

// GetFileChange retrieves a file change by ID, scoped to the organization
// through its repository.
func (s *RepositoryService) GetFileChange(ctx context.Context, id, orgID uuid.UUID) (*api_models.FileChangeResponse, error) {
	fc, err := s.store.GetGithubFileChangeByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFileChangeNotFound
		}
		log.Printf("ERROR [RepoService] GetFileChange: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to retrieve file change: %w", err)
	}
	return mapFileChangeToResponse(fc), nil
}

// ListFileChanges retrieves all file changes for a repository.
func (s *RepositoryService) ListFileChanges(ctx context.Context, repoID, orgID uuid.UUID) ([]api_models.FileChangeResponse, error) {
	if _, err := s.getRepository(ctx, repoID, orgID); err != nil {
		return nil, err
	}

	changes, err := s.store.ListGithubFileChangesByRepo(ctx, repoID, orgID)
	if err != nil {
		log.Printf("ERROR [RepoService] ListFileChanges: Store call failed for RepoID %s: %v", repoID, err)
		return nil, fmt.Errorf("failed to list file changes: %w", err)
	}

	resp := make([]api_models.FileChangeResponse, len(changes))
	for i := range changes {
		resp[i] = *mapFileChangeToResponse(&changes[i])
	}
	return resp, nil
}

// CommitFileChange pushes a pending file change to GitHub via the contents
// API. On success the change becomes committed and records the commit URL;
// on a vendor failure it becomes failed and the error is returned.
func (s *RepositoryService) CommitFileChange(ctx context.Context, id, orgID uuid.UUID) (*api_models.FileChangeResponse, error) {
	fc, err := s.store.GetGithubFileChangeByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFileChangeNotFound
		}
		log.Printf("ERROR [RepoService] CommitFileChange: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to retrieve file change: %w", err)
	}
	if fc.Status != db_models.FileChangeStatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrFileChangeNotPending, fc.Status)
	}

	repo, err := s.getRepository(ctx, fc.RepositoryID, orgID)
	if err != nil {
		return nil, err
	}

	client, err := s.clientFor(ctx, repo.CredentialID, orgID)
	if err != nil {
		return nil, err
	}

	commitURL, err := client.CommitFile(ctx, repo.Owner, repo.Repo, repo.DefaultBranch, fc.Path, fc.CommitMessage, fc.Content)
	if err != nil {
		log.Printf("ERROR [RepoService] CommitFileChange: Commit failed for change %s (%s in %s/%s): %v", id, fc.Path, repo.Owner, repo.Repo, err)
		if updErr := s.store.UpdateGithubFileChangeStatus(ctx, id, db_models.FileChangeStatusFailed, nil); updErr != nil {
			log.Printf("ERROR [RepoService] CommitFileChange: Failed to mark change %s as failed: %v", id, updErr)
		}
		return nil, err
	}

	if err := s.store.UpdateGithubFileChangeStatus(ctx, id, db_models.FileChangeStatusCommitted, &commitURL); err != nil {
		// The commit landed; surface the row as committed anyway and log loudly.
		log.Printf("ERROR [RepoService] CommitFileChange: Commit %s landed but status update failed for change %s: %v", commitURL, id, err)
	}

	fc.Status = db_models.FileChangeStatusCommitted
	fc.CommitURL = &commitURL
	log.Printf("[RepoService] CommitFileChange: Committed change %s (%s in %s/%s): %s", id, fc.Path, repo.Owner, repo.Repo, commitURL)
	return mapFileChangeToResponse(fc), nil
}

// DeleteFileChange deletes a file change. Only pending changes may be
// deleted; committed and failed rows are kept as history.
func (s *RepositoryService) DeleteFileChange(ctx context.Context, id, orgID uuid.UUID) error {
	fc, err := s.store.GetGithubFileChangeByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrFileChangeNotFound
		}
		log.Printf("ERROR [RepoService] DeleteFileChange: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("failed to retrieve file change: %w", err)
	}
	if fc.Status != db_models.FileChangeStatusPending {
		return fmt.Errorf("%w: status is %s", ErrFileChangeNotPending, fc.Status)
	}

	if err := s.store.DeleteGithubFileChange(ctx, id, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrFileChangeNotFound
		}
		log.Printf("ERROR [RepoService] DeleteFileChange: Delete failed for ID %s: %v", id, err)
		return fmt.Errorf("failed to delete file change: %w", err)
	}
	log.Printf("[RepoService] DeleteFileChange: Deleted pending change %s for OrgID %s", id, orgID)
	return nil
}
