// Package forge provides abstraction over different git forges (GitHub, Forgejo, etc.).
package forge

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PRInfo contains information about a pull request.
type PRInfo struct {
	Number     int
	Title      string
	URL        string
	HeadSHA    string
	BaseBranch string
	Author     string
	Merged     bool
	MergedAt   time.Time
	CommitsURL string

	labels        []string
	labelsFetched bool
}

// NewPRInfo builds a PRInfo. A nil mergedAt means the pull request was closed
// without being merged.
func NewPRInfo(number int, title, url, headSHA string, mergedAt *time.Time) *PRInfo {
	info := &PRInfo{
		Number:  number,
		Title:   title,
		URL:     url,
		HeadSHA: headSHA,
	}
	if mergedAt != nil {
		info.Merged = true
		info.MergedAt = *mergedAt
	}
	return info
}

// SetLabels records labels already known from the API payload, so that
// Labels does not need another request.
func (p *PRInfo) SetLabels(labels []string) {
	p.labels = labels
	p.labelsFetched = true
}

// Labels returns the labels of the pull request, fetching them from the forge on
// first access only.
func (p *PRInfo) Labels(ctx context.Context, f Forge, owner, repo string) ([]string, error) {
	if p.labelsFetched {
		return p.labels, nil
	}

	labels, err := f.ListLabels(ctx, owner, repo, p.Number)
	if err != nil {
		return nil, err
	}

	p.SetLabels(labels)
	return labels, nil
}

// String returns a short description used in logs.
func (p *PRInfo) String() string {
	return fmt.Sprintf("#%d %s", p.Number, p.Title)
}

// ListOptions selects a page of closed pull requests.
type ListOptions struct {
	// Base restricts the listing to pull requests targeting this branch.
	Base string
	// Page is 1-based.
	Page int
}

// Credentials authenticate forge API calls. Both fields are optional; without
// them calls are anonymous and subject to the host's rate limit.
type Credentials struct {
	User  string
	Token string
}

// IsZero reports whether no credentials were provided.
func (c Credentials) IsZero() bool {
	return c.User == "" && c.Token == ""
}

// ParseRepository splits an "owner/name" repository identifier.
func ParseRepository(id string) (owner, repo string, err error) {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" { //nolint:mnd
		return "", "", fmt.Errorf("invalid repository %q (expected owner/name)", id)
	}
	return parts[0], parts[1], nil
}
