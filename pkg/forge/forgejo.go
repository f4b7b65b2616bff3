package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const forgejoPageSize = 50

// Forgejo implements the Forge interface for Forgejo/Gitea.
type Forgejo struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// NewForgejo creates a new Forgejo forge client.
func NewForgejo(baseURL string, creds Credentials) *Forgejo {
	return &Forgejo{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: 30 * time.Second}, //nolint:mnd
	}
}

// Name returns the name of the forge.
func (f *Forgejo) Name() string {
	return "forgejo"
}

// forgejoLabel is the API response for a label.
type forgejoLabel struct {
	Name string `json:"name"`
}

// forgejoPR is the API response for a pull request.
type forgejoPR struct {
	Number   int            `json:"number"`
	Title    string         `json:"title"`
	HTMLURL  string         `json:"html_url"`
	Merged   bool           `json:"merged"`
	MergedAt *time.Time     `json:"merged_at"`
	Labels   []forgejoLabel `json:"labels"`
	User     struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

// forgejoCommit is the API response for a commit.
type forgejoCommit struct {
	SHA string `json:"sha"`
}

// forgejoError is the API error response.
type forgejoError struct {
	Message string `json:"message"`
}

// parseForgejoError extracts a clean error message from API response.
func parseForgejoError(body []byte) string {
	var errResp forgejoError
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return errResp.Message
	}
	// Fallback to raw body, but clean it up
	return strings.TrimSpace(string(body))
}

// get performs an authenticated GET on an API path and decodes the JSON answer.
func (f *Forgejo) get(ctx context.Context, path string, out any) error {
	url := f.baseURL + "/api/v1" + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	switch {
	case f.creds.User != "" && f.creds.Token != "":
		req.SetBasicAuth(f.creds.User, f.creds.Token)
	case f.creds.Token != "":
		req.Header.Set("Authorization", "token "+f.creds.Token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s (%s)", resp.Status, parseForgejoError(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// ListClosedPRs returns one page of closed PRs, most recently updated first.
// The Forgejo API cannot filter on the base branch, so it is done here.
func (f *Forgejo) ListClosedPRs(ctx context.Context, owner, repo string, opts ListOptions) ([]*PRInfo, int, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}

	var prs []forgejoPR
	path := fmt.Sprintf("/repos/%s/%s/pulls?state=closed&sort=recentupdate&page=%d&limit=%d", owner, repo, page, forgejoPageSize)
	if err := f.get(ctx, path, &prs); err != nil {
		return nil, 0, fmt.Errorf("failed to list closed PRs (page %d): %w", page, err)
	}

	result := make([]*PRInfo, 0, len(prs))
	for _, pr := range prs {
		if opts.Base != "" && pr.Base.Ref != opts.Base {
			continue
		}
		result = append(result, pr.toPRInfo())
	}

	nextPage := 0
	if len(prs) == forgejoPageSize {
		nextPage = page + 1
	}

	return result, nextPage, nil
}

// GetPR retrieves information about a pull request by number.
func (f *Forgejo) GetPR(ctx context.Context, owner, repo string, number int) (*PRInfo, error) {
	var pr forgejoPR
	if err := f.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), &pr); err != nil {
		return nil, fmt.Errorf("failed to get PR #%d: %w", number, err)
	}

	return pr.toPRInfo(), nil
}

// ListLabels returns the label names of a pull request.
func (f *Forgejo) ListLabels(ctx context.Context, owner, repo string, number int) ([]string, error) {
	var labels []forgejoLabel
	if err := f.get(ctx, fmt.Sprintf("/repos/%s/%s/issues/%d/labels", owner, repo, number), &labels); err != nil {
		return nil, fmt.Errorf("failed to list labels of PR #%d: %w", number, err)
	}

	names := make([]string, len(labels))
	for i, label := range labels {
		names[i] = label.Name
	}
	return names, nil
}

// ListCommits returns the SHAs of a pull request's commits, oldest first.
func (f *Forgejo) ListCommits(ctx context.Context, owner, repo string, number int) ([]string, error) {
	var commits []forgejoCommit
	if err := f.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d/commits", owner, repo, number), &commits); err != nil {
		return nil, fmt.Errorf("failed to list commits of PR #%d: %w", number, err)
	}

	shas := make([]string, len(commits))
	for i, commit := range commits {
		shas[i] = commit.SHA
	}
	return shas, nil
}

func (pr forgejoPR) toPRInfo() *PRInfo {
	var mergedAt *time.Time
	if pr.Merged {
		mergedAt = pr.MergedAt
		if mergedAt == nil {
			mergedAt = &time.Time{}
		}
	}

	info := NewPRInfo(pr.Number, pr.Title, pr.HTMLURL, pr.Head.SHA, mergedAt)
	info.BaseBranch = pr.Base.Ref
	info.Author = pr.User.Login

	// Forgejo embeds labels in the pull request payload.
	labels := make([]string, len(pr.Labels))
	for i, label := range pr.Labels {
		labels[i] = label.Name
	}
	info.SetLabels(labels)

	return info
}
