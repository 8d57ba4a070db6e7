package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	api_models "repochat-backend/internal/models"
	db_models "repochat-backend/internal/models"
	"repochat-backend/internal/store"
)

// Custom errors for prompt service
var (
	ErrPromptNotFound   = errors.New("system prompt not found")
	ErrPromptValidation = errors.New("prompt validation failed")
)

// PromptService handles system prompt business logic, including the
// single-default-per-organization rule.
type PromptService struct {
	store store.Store
}

// NewPromptService creates a new PromptService.
func NewPromptService(s store.Store) *PromptService {
	return &PromptService{store: s}
}

func mapPromptToResponse(p *db_models.SystemPrompt) *api_models.PromptResponse {
	return &api_models.PromptResponse{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Content:        p.Content,
		IsDefault:      p.IsDefault,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// CreatePrompt creates a system prompt. When is_default is set, the store
// clears every other default in the same transaction.
func (s *PromptService) CreatePrompt(ctx context.Context, orgID uuid.UUID, req api_models.CreatePromptRequest) (*api_models.PromptResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrPromptValidation)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrPromptValidation)
	}

	prompt, err := s.store.CreateSystemPrompt(ctx, store.CreateSystemPromptParams{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           req.Name,
		Content:        req.Content,
		IsDefault:      req.IsDefault,
	})
	if err != nil {
		log.Printf("ERROR [PromptService] CreatePrompt: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to create prompt: %w", err)
	}

	log.Printf("[PromptService] CreatePrompt: Created prompt %s (default=%v) for OrgID %s", prompt.ID, prompt.IsDefault, orgID)
	return mapPromptToResponse(prompt), nil
}

// GetPrompt retrieves a prompt by ID.
func (s *PromptService) GetPrompt(ctx context.Context, id, orgID uuid.UUID) (*api_models.PromptResponse, error) {
	prompt, err := s.store.GetSystemPromptByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		log.Printf("ERROR [PromptService] GetPrompt: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to retrieve prompt: %w", err)
	}
	return mapPromptToResponse(prompt), nil
}

// ListPrompts retrieves all prompts for the organization.
func (s *PromptService) ListPrompts(ctx context.Context, orgID uuid.UUID) ([]api_models.PromptResponse, error) {
	prompts, err := s.store.ListSystemPrompts(ctx, orgID)
	if err != nil {
		log.Printf("ERROR [PromptService] ListPrompts: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	resp := make([]api_models.PromptResponse, len(prompts))
	for i := range prompts {
		resp[i] = *mapPromptToResponse(&prompts[i])
	}
	return resp, nil
}

// UpdatePrompt updates the provided fields of a prompt. Setting is_default
// true clears every other default in the same transaction.
func (s *PromptService) UpdatePrompt(ctx context.Context, id, orgID uuid.UUID, req api_models.UpdatePromptRequest) (*api_models.PromptResponse, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrPromptValidation)
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrPromptValidation)
	}

	prompt, err := s.store.UpdateSystemPrompt(ctx, store.UpdateSystemPromptParams{
		ID:             id,
		OrganizationID: orgID,
		Name:           req.Name,
		Content:        req.Content,
		IsDefault:      req.IsDefault,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		log.Printf("ERROR [PromptService] UpdatePrompt: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}
	return mapPromptToResponse(prompt), nil
}

// DeletePrompt deletes a prompt by ID.
func (s *PromptService) DeletePrompt(ctx context.Context, id, orgID uuid.UUID) error {
	err := s.store.DeleteSystemPrompt(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPromptNotFound
		}
		log.Printf("ERROR [PromptService] DeletePrompt: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	log.Printf("[PromptService] DeletePrompt: Deleted prompt %s for OrgID %s", id, orgID)
	return nil
}

// ResolveSystemPrompt returns the prompt content to use for a chat request:
// the explicitly requested prompt when an ID is given, otherwise the
// organization default when one exists, otherwise empty.
func (s *PromptService) ResolveSystemPrompt(ctx context.Context, orgID uuid.UUID, promptID *uuid.UUID) (string, error) {
	if promptID != nil {
		prompt, err := s.store.GetSystemPromptByID(ctx, *promptID, orgID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", ErrPromptNotFound
			}
			return "", fmt.Errorf("failed to resolve prompt: %w", err)
		}
		return prompt.Content, nil
	}

	prompt, err := s.store.GetDefaultSystemPrompt(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil // no default configured, chat proceeds without one
		}
		return "", fmt.Errorf("failed to resolve default prompt: %w", err)
	}
	return prompt.Content, nil
}
