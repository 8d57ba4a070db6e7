package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	githubapi "repochat-backend/internal/github"
	"repochat-backend/internal/llm"
	db_models "repochat-backend/internal/models"
	"repochat-backend/internal/store"
)

// fakeStore is an in-memory store.Store for service tests. Optional err*
// fields inject failures for specific operations.
type fakeStore struct {
	users    map[string]*db_models.User
	orgs     map[uuid.UUID]*db_models.Organization
	sessions map[uuid.UUID]*db_models.ChatSession
	messages []db_models.Message
	prompts  map[uuid.UUID]*db_models.SystemPrompt
	creds    map[uuid.UUID]*db_models.GithubCredential
	repos    map[uuid.UUID]*db_models.GithubRepository
	changes  map[uuid.UUID]*db_models.GithubFileChange

	errCreateMessage error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*db_models.User),
		orgs:     make(map[uuid.UUID]*db_models.Organization),
		sessions: make(map[uuid.UUID]*db_models.ChatSession),
		prompts:  make(map[uuid.UUID]*db_models.SystemPrompt),
		creds:    make(map[uuid.UUID]*db_models.GithubCredential),
		repos:    make(map[uuid.UUID]*db_models.GithubRepository),
		changes:  make(map[uuid.UUID]*db_models.GithubFileChange),
	}
}

var _ store.Store = (*fakeStore)(nil)

// --- Users & organizations ---

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*db_models.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateUser(ctx context.Context, user *db_models.User) error {
	f.users[user.Email] = user
	return nil
}

func (f *fakeStore) CreateOrganization(ctx context.Context, org *db_models.Organization) error {
	f.orgs[org.ID] = org
	return nil
}

// --- Chat sessions & messages ---

func (f *fakeStore) CreateChatSession(ctx context.Context, arg store.CreateChatSessionParams) (*db_models.ChatSession, error) {
	now := time.Now()
	sess := &db_models.ChatSession{
		ID:             arg.ID,
		OrganizationID: arg.OrganizationID,
		Name:           arg.Name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.sessions[sess.ID] = sess
	return sess, nil
}

func (f *fakeStore) GetChatSessionByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.ChatSession, error) {
	if s, ok := f.sessions[id]; ok && s.OrganizationID == orgID {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListChatSessions(ctx context.Context, orgID uuid.UUID) ([]db_models.ChatSession, error) {
	var out []db_models.ChatSession
	for _, s := range f.sessions {
		if s.OrganizationID == orgID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) RenameChatSession(ctx context.Context, id, orgID uuid.UUID, name string) (*db_models.ChatSession, error) {
	s, err := f.GetChatSessionByID(ctx, id, orgID)
	if err != nil {
		return nil, err
	}
	s.Name = name
	s.UpdatedAt = time.Now()
	return s, nil
}

func (f *fakeStore) DeleteChatSession(ctx context.Context, id, orgID uuid.UUID) error {
	if _, err := f.GetChatSessionByID(ctx, id, orgID); err != nil {
		return err
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*db_models.Message, error) {
	if f.errCreateMessage != nil {
		return nil, f.errCreateMessage
	}
	msg := db_models.Message{
		ID:         arg.ID,
		SessionID:  arg.SessionID,
		Role:       arg.Role,
		Content:    arg.Content,
		TokenCount: arg.TokenCount,
		CreatedAt:  time.Now(),
	}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeStore) ListMessagesBySession(ctx context.Context, sessionID uuid.UUID) ([]db_models.Message, error) {
	var out []db_models.Message
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

// --- System prompts ---

func (f *fakeStore) CreateSystemPrompt(ctx context.Context, arg store.CreateSystemPromptParams) (*db_models.SystemPrompt, error) {
	if arg.IsDefault {
		f.clearDefaults(arg.OrganizationID)
	}
	now := time.Now()
	p := &db_models.SystemPrompt{
		ID:             arg.ID,
		OrganizationID: arg.OrganizationID,
		Name:           arg.Name,
		Content:        arg.Content,
		IsDefault:      arg.IsDefault,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.prompts[p.ID] = p
	return p, nil
}

func (f *fakeStore) clearDefaults(orgID uuid.UUID) {
	for _, p := range f.prompts {
		if p.OrganizationID == orgID {
			p.IsDefault = false
		}
	}
}

func (f *fakeStore) GetSystemPromptByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.SystemPrompt, error) {
	if p, ok := f.prompts[id]; ok && p.OrganizationID == orgID {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetDefaultSystemPrompt(ctx context.Context, orgID uuid.UUID) (*db_models.SystemPrompt, error) {
	for _, p := range f.prompts {
		if p.OrganizationID == orgID && p.IsDefault {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListSystemPrompts(ctx context.Context, orgID uuid.UUID) ([]db_models.SystemPrompt, error) {
	var out []db_models.SystemPrompt
	for _, p := range f.prompts {
		if p.OrganizationID == orgID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateSystemPrompt(ctx context.Context, arg store.UpdateSystemPromptParams) (*db_models.SystemPrompt, error) {
	p, err := f.GetSystemPromptByID(ctx, arg.ID, arg.OrganizationID)
	if err != nil {
		return nil, err
	}
	if arg.IsDefault != nil && *arg.IsDefault {
		f.clearDefaults(arg.OrganizationID)
	}
	if arg.Name != nil {
		p.Name = *arg.Name
	}
	if arg.Content != nil {
		p.Content = *arg.Content
	}
	if arg.IsDefault != nil {
		p.IsDefault = *arg.IsDefault
	}
	p.UpdatedAt = time.Now()
	return p, nil
}

func (f *fakeStore) DeleteSystemPrompt(ctx context.Context, id, orgID uuid.UUID) error {
	if _, err := f.GetSystemPromptByID(ctx, id, orgID); err != nil {
		return err
	}
	delete(f.prompts, id)
	return nil
}

// --- GitHub credentials ---

func (f *fakeStore) CreateGithubCredential(ctx context.Context, arg store.CreateGithubCredentialParams) (*db_models.GithubCredential, error) {
	now := time.Now()
	c := &db_models.GithubCredential{
		ID:             arg.ID,
		OrganizationID: arg.OrganizationID,
		Username:       arg.Username,
		EncryptedToken: arg.EncryptedToken,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.creds[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetGithubCredentialByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubCredential, error) {
	if c, ok := f.creds[id]; ok && c.OrganizationID == orgID {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListGithubCredentials(ctx context.Context, orgID uuid.UUID) ([]db_models.GithubCredential, error) {
	var out []db_models.GithubCredential
	for _, c := range f.creds {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteGithubCredential(ctx context.Context, id, orgID uuid.UUID) error {
	if _, err := f.GetGithubCredentialByID(ctx, id, orgID); err != nil {
		return err
	}
	delete(f.creds, id)
	// ON DELETE CASCADE: credential → repositories → file changes.
	for repoID, r := range f.repos {
		if r.CredentialID == id {
			f.deleteRepoCascade(repoID)
		}
	}
	return nil
}

func (f *fakeStore) deleteRepoCascade(repoID uuid.UUID) {
	delete(f.repos, repoID)
	for changeID, fc := range f.changes {
		if fc.RepositoryID == repoID {
			delete(f.changes, changeID)
		}
	}
}

// --- GitHub repositories ---

func (f *fakeStore) CreateGithubRepository(ctx context.Context, arg store.CreateGithubRepositoryParams) (*db_models.GithubRepository, error) {
	now := time.Now()
	r := &db_models.GithubRepository{
		ID:             arg.ID,
		OrganizationID: arg.OrganizationID,
		CredentialID:   arg.CredentialID,
		Owner:          arg.Owner,
		Repo:           arg.Repo,
		DefaultBranch:  arg.DefaultBranch,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.repos[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetGithubRepositoryByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubRepository, error) {
	if r, ok := f.repos[id]; ok && r.OrganizationID == orgID {
		return r, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListGithubRepositories(ctx context.Context, orgID uuid.UUID) ([]db_models.GithubRepository, error) {
	var out []db_models.GithubRepository
	for _, r := range f.repos {
		if r.OrganizationID == orgID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteGithubRepository(ctx context.Context, id, orgID uuid.UUID) error {
	if _, err := f.GetGithubRepositoryByID(ctx, id, orgID); err != nil {
		return err
	}
	f.deleteRepoCascade(id)
	return nil
}

func (f *fakeStore) UpdateRepositoryAnalysis(ctx context.Context, id, orgID uuid.UUID, summary json.RawMessage, analyzedAt time.Time) (*db_models.GithubRepository, error) {
	r, err := f.GetGithubRepositoryByID(ctx, id, orgID)
	if err != nil {
		return nil, err
	}
	r.Summary = summary
	r.LastAnalyzed = &analyzedAt
	r.UpdatedAt = time.Now()
	return r, nil
}

// --- GitHub file changes ---

func (f *fakeStore) CreateGithubFileChange(ctx context.Context, arg store.CreateGithubFileChangeParams) (*db_models.GithubFileChange, error) {
	now := time.Now()
	fc := &db_models.GithubFileChange{
		ID:            arg.ID,
		RepositoryID:  arg.RepositoryID,
		Path:          arg.Path,
		Content:       arg.Content,
		CommitMessage: arg.CommitMessage,
		Status:        db_models.FileChangeStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.changes[fc.ID] = fc
	return fc, nil
}

func (f *fakeStore) GetGithubFileChangeByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubFileChange, error) {
	fc, ok := f.changes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, err := f.GetGithubRepositoryByID(ctx, fc.RepositoryID, orgID); err != nil {
		return nil, store.ErrNotFound
	}
	return fc, nil
}

func (f *fakeStore) ListGithubFileChangesByRepo(ctx context.Context, repositoryID, orgID uuid.UUID) ([]db_models.GithubFileChange, error) {
	if _, err := f.GetGithubRepositoryByID(ctx, repositoryID, orgID); err != nil {
		return nil, err
	}
	var out []db_models.GithubFileChange
	for _, fc := range f.changes {
		if fc.RepositoryID == repositoryID {
			out = append(out, *fc)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateGithubFileChangeStatus(ctx context.Context, id uuid.UUID, status db_models.FileChangeStatus, commitURL *string) error {
	fc, ok := f.changes[id]
	if !ok {
		return store.ErrNotFound
	}
	fc.Status = status
	fc.CommitURL = commitURL
	fc.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) DeleteGithubFileChange(ctx context.Context, id, orgID uuid.UUID) error {
	if _, err := f.GetGithubFileChangeByID(ctx, id, orgID); err != nil {
		return err
	}
	delete(f.changes, id)
	return nil
}

// --- Param helpers ---

func storeSessionParams(orgID uuid.UUID) store.CreateChatSessionParams {
	return store.CreateChatSessionParams{ID: uuid.New(), OrganizationID: orgID, Name: "Test Chat"}
}

func storePromptParams(orgID uuid.UUID, name, content string, isDefault bool) store.CreateSystemPromptParams {
	return store.CreateSystemPromptParams{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Content:        content,
		IsDefault:      isDefault,
	}
}

// --- LLM fake ---

type fakeCompleter struct {
	completeFunc func(ctx context.Context, messages []llm.Message) (*llm.CompletionResult, error)
	gotMessages  [][]llm.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.Message) (*llm.CompletionResult, error) {
	f.gotMessages = append(f.gotMessages, messages)
	if f.completeFunc != nil {
		return f.completeFunc(ctx, messages)
	}
	return &llm.CompletionResult{Content: "ok", Model: "fake-model"}, nil
}

// --- GitHub API fake ---

type fakeGithubAPI struct {
	token string

	authenticatedUserFunc func(ctx context.Context) (string, error)
	getRepositoryFunc     func(ctx context.Context, owner, repo string) (*githubapi.RepositoryInfo, error)
	listTreeFunc          func(ctx context.Context, owner, repo, ref string) ([]githubapi.TreeEntry, error)
	getFileContentFunc    func(ctx context.Context, owner, repo, path, ref string) (string, error)
	commitFileFunc        func(ctx context.Context, owner, repo, branch, path, message, content string) (string, error)
}

var _ githubapi.API = (*fakeGithubAPI)(nil)

func (f *fakeGithubAPI) AuthenticatedUser(ctx context.Context) (string, error) {
	if f.authenticatedUserFunc != nil {
		return f.authenticatedUserFunc(ctx)
	}
	return "octocat", nil
}

func (f *fakeGithubAPI) GetRepository(ctx context.Context, owner, repo string) (*githubapi.RepositoryInfo, error) {
	if f.getRepositoryFunc != nil {
		return f.getRepositoryFunc(ctx, owner, repo)
	}
	return &githubapi.RepositoryInfo{Owner: owner, Name: repo, DefaultBranch: "main"}, nil
}

func (f *fakeGithubAPI) ListTree(ctx context.Context, owner, repo, ref string) ([]githubapi.TreeEntry, error) {
	if f.listTreeFunc != nil {
		return f.listTreeFunc(ctx, owner, repo, ref)
	}
	return nil, nil
}

func (f *fakeGithubAPI) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	if f.getFileContentFunc != nil {
		return f.getFileContentFunc(ctx, owner, repo, path, ref)
	}
	return "", store.ErrNotFound
}

func (f *fakeGithubAPI) CommitFile(ctx context.Context, owner, repo, branch, path, message, content string) (string, error) {
	if f.commitFileFunc != nil {
		return f.commitFileFunc(ctx, owner, repo, branch, path, message, content)
	}
	return "https://github.com/" + owner + "/" + repo + "/commit/abc123", nil
}

// fakeFactory returns the same fake client for every token and records the
// last token it was handed.
func fakeFactory(client *fakeGithubAPI) githubapi.Factory {
	return func(token string) githubapi.API {
		client.token = token
		return client
	}
}
