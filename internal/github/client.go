// Package githubapi wraps the GitHub REST API operations this backend needs:
// repository metadata, file trees, file contents, and contents-API commits.
// A client is built per request from a decrypted stored token; no client is
// shared across requests.
package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v60/github"
)

// RepositoryInfo is the subset of repository metadata this backend uses.
type RepositoryInfo struct {
	Owner         string
	Name          string
	Description   string
	DefaultBranch string
	Language      string
	Stars         int
	Forks         int
	OpenIssues    int
}

// TreeEntry is a single entry of a recursive git tree listing.
type TreeEntry struct {
	Path string
	Type string // "blob" or "tree"
	Size int
}

// APIError is returned when the GitHub API responds with a non-2xx status.
// The status code is preserved so callers can pass 401/429 through.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error (status %d): %s", e.StatusCode, e.Message)
}

// API is the interface consumed by services. Implemented by *Client.
type API interface {
	AuthenticatedUser(ctx context.Context) (string, error)
	GetRepository(ctx context.Context, owner, repo string) (*RepositoryInfo, error)
	ListTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error)
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
	CommitFile(ctx context.Context, owner, repo, branch, path, message, content string) (string, error)
}

// Factory builds an API client from a raw token. Services hold a Factory
// rather than a client because tokens live in the database per credential.
type Factory func(token string) API

// Client implements API on top of the go-github SDK.
type Client struct {
	gh *github.Client
}

var _ API = (*Client)(nil)

// NewClient creates a GitHub client authenticated with the given token.
func NewClient(token string) *Client {
	return &Client{gh: github.NewClient(nil).WithAuthToken(token)}
}

// DefaultFactory is the production Factory.
func DefaultFactory(token string) API {
	return NewClient(token)
}

// AuthenticatedUser returns the login of the token's user. Used to verify a
// credential and capture its username on creation.
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", wrapErr(err)
	}
	return user.GetLogin(), nil
}

// GetRepository fetches repository metadata.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*RepositoryInfo, error) {
	r, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &RepositoryInfo{
		Owner:         owner,
		Name:          r.GetName(),
		Description:   r.GetDescription(),
		DefaultBranch: r.GetDefaultBranch(),
		Language:      r.GetLanguage(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
	}, nil
}

// ListTree fetches the recursive file tree at the given ref.
func (c *Client) ListTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error) {
	tree, _, err := c.gh.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, wrapErr(err)
	}
	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, TreeEntry{
			Path: e.GetPath(),
			Type: e.GetType(),
			Size: e.GetSize(),
		})
	}
	return entries, nil
}

// GetFileContent fetches and decodes a single file's content at the given ref.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", wrapErr(err)
	}
	if file == nil {
		return "", &APIError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("%s is not a file", path)}
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding content of %s: %w", path, err)
	}
	return content, nil
}

// CommitFile creates or updates a single file on the given branch via the
// contents API and returns the HTML URL of the resulting commit.
func (c *Client) CommitFile(ctx context.Context, owner, repo, branch, path, message, content string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}

	// The contents API requires the current blob SHA to update an existing file.
	existing, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		var apiErr *APIError
		if wrapped := wrapErr(err); !errors.As(wrapped, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			return "", wrapped
		}
		// 404: new file, create without SHA.
	} else if existing != nil {
		opts.SHA = github.String(existing.GetSHA())
	}

	var resp *github.RepositoryContentResponse
	if opts.SHA != nil {
		resp, _, err = c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	} else {
		resp, _, err = c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
	}
	if err != nil {
		return "", wrapErr(err)
	}
	return resp.Commit.GetHTMLURL(), nil
}

// wrapErr converts go-github error responses into *APIError, preserving the
// HTTP status; other errors (network, context) pass through unchanged.
func wrapErr(err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &APIError{StatusCode: ghErr.Response.StatusCode, Message: ghErr.Message}
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{StatusCode: http.StatusTooManyRequests, Message: rateErr.Message}
	}
	return err
}
