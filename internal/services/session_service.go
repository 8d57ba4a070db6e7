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

// Custom errors for session service
var (
	ErrSessionNotFound   = errors.New("chat session not found")
	ErrSessionValidation = errors.New("session validation failed")
)

// SessionService handles chat session and message persistence logic.
type SessionService struct {
	store store.Store
}

// NewSessionService creates a new SessionService.
func NewSessionService(s store.Store) *SessionService {
	return &SessionService{store: s}
}

// --- Helper Functions ---

func mapSessionToResponse(sess *db_models.ChatSession) *api_models.SessionResponse {
	return &api_models.SessionResponse{
		ID:             sess.ID,
		OrganizationID: sess.OrganizationID,
		Name:           sess.Name,
		CreatedAt:      sess.CreatedAt,
		UpdatedAt:      sess.UpdatedAt,
	}
}

func mapMessageToResponse(msg *db_models.Message) api_models.MessageResponse {
	return api_models.MessageResponse{
		ID:         msg.ID,
		SessionID:  msg.SessionID,
		Role:       msg.Role,
		Content:    msg.Content,
		TokenCount: msg.TokenCount,
		CreatedAt:  msg.CreatedAt,
	}
}

// CreateSession creates a new chat session.
func (s *SessionService) CreateSession(ctx context.Context, orgID uuid.UUID, req api_models.CreateSessionRequest) (*api_models.SessionResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "New Chat"
	}

	sess, err := s.store.CreateChatSession(ctx, store.CreateChatSessionParams{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
	})
	if err != nil {
		log.Printf("ERROR [SessionService] CreateSession: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Printf("[SessionService] CreateSession: Created session %s for OrgID %s", sess.ID, orgID)
	return mapSessionToResponse(sess), nil
}

// GetSession retrieves a session with its messages.
func (s *SessionService) GetSession(ctx context.Context, id, orgID uuid.UUID) (*api_models.SessionResponse, error) {
	sess, err := s.store.GetChatSessionByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		log.Printf("ERROR [SessionService] GetSession: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}

	messages, err := s.store.ListMessagesBySession(ctx, sess.ID)
	if err != nil {
		log.Printf("ERROR [SessionService] GetSession: Failed listing messages for session %s: %v", sess.ID, err)
		return nil, fmt.Errorf("failed to list session messages: %w", err)
	}

	resp := mapSessionToResponse(sess)
	resp.Messages = make([]api_models.MessageResponse, len(messages))
	for i := range messages {
		resp.Messages[i] = mapMessageToResponse(&messages[i])
	}
	return resp, nil
}

// ListSessions retrieves all sessions for the organization, most recent first.
func (s *SessionService) ListSessions(ctx context.Context, orgID uuid.UUID) ([]api_models.SessionResponse, error) {
	sessions, err := s.store.ListChatSessions(ctx, orgID)
	if err != nil {
		log.Printf("ERROR [SessionService] ListSessions: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	resp := make([]api_models.SessionResponse, len(sessions))
	for i := range sessions {
		resp[i] = *mapSessionToResponse(&sessions[i])
	}
	return resp, nil
}

// RenameSession updates a session's name.
func (s *SessionService) RenameSession(ctx context.Context, id, orgID uuid.UUID, req api_models.UpdateSessionRequest) (*api_models.SessionResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrSessionValidation)
	}

	sess, err := s.store.RenameChatSession(ctx, id, orgID, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		log.Printf("ERROR [SessionService] RenameSession: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to rename session: %w", err)
	}
	return mapSessionToResponse(sess), nil
}

// DeleteSession deletes a session and, via cascade, its messages.
func (s *SessionService) DeleteSession(ctx context.Context, id, orgID uuid.UUID) error {
	err := s.store.DeleteChatSession(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		log.Printf("ERROR [SessionService] DeleteSession: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	log.Printf("[SessionService] DeleteSession: Deleted session %s for OrgID %s", id, orgID)
	return nil
}
