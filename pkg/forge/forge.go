package forge

import (
	"context"
	"fmt"
	"os"
)

// Forge is the interface for interacting with git forges.
type Forge interface {
	// ListClosedPRs returns one page of closed pull requests, most recently
	// updated first. nextPage is 0 when there are no further pages.
	ListClosedPRs(ctx context.Context, owner, repo string, opts ListOptions) (prs []*PRInfo, nextPage int, err error)

	// GetPR retrieves a single pull request by number, merged or not.
	GetPR(ctx context.Context, owner, repo string, number int) (*PRInfo, error)

	// ListLabels returns the label names of a pull request.
	ListLabels(ctx context.Context, owner, repo string, number int) ([]string, error)

	// ListCommits returns the SHAs of a pull request's commits, oldest first.
	ListCommits(ctx context.Context, owner, repo string, number int) ([]string, error)

	// Name returns the name of the forge.
	Name() string
}

// NewOptions holds options for creating a forge client.
type NewOptions struct {
	// BaseURL is the API root for GitHub Enterprise, or the instance URL for Forgejo.
	BaseURL     string
	Credentials Credentials
}

// New creates a new forge client based on the forge type.
func New(forgeType string, creds Credentials) (Forge, error) {
	return NewWithOptions(forgeType, NewOptions{Credentials: creds})
}

// NewWithOptions creates a new forge client with additional options.
func NewWithOptions(forgeType string, opts NewOptions) (Forge, error) {
	switch forgeType {
	case "", "github":
		return NewGitHub(opts.Credentials, opts.BaseURL)
	case "forgejo":
		// Forgejo requires a base URL - check options first, then environment.
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = os.Getenv("FORGEJO_URL")
		}
		if baseURL == "" {
			return nil, fmt.Errorf("FORGEJO_URL not configured (set forge_url in config file or FORGEJO_URL environment variable)")
		}
		return NewForgejo(baseURL, opts.Credentials), nil
	default:
		return nil, fmt.Errorf("unknown forge type: %s", forgeType)
	}
}
