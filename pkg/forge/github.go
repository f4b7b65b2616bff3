package forge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v80/github"
)

const githubPageSize = 100

// GitHub implements the Forge interface for GitHub.
type GitHub struct {
	client *github.Client
}

// NewGitHub creates a new GitHub forge client. A user together with a token
// authenticates with basic auth, a token alone as a bearer token. baseURL is
// only needed for GitHub Enterprise (e.g. https://github.example.com/api/v3/).
func NewGitHub(creds Credentials, baseURL string) (*GitHub, error) {
	var httpClient *http.Client
	if creds.User != "" && creds.Token != "" {
		tp := &github.BasicAuthTransport{
			Username: creds.User,
			Password: creds.Token,
		}
		httpClient = tp.Client()
	}

	client := github.NewClient(httpClient)
	if creds.User == "" && creds.Token != "" {
		client = client.WithAuthToken(creds.Token)
	}

	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %s: %w", baseURL, err)
		}
		client.BaseURL = u
	}

	return &GitHub{client: client}, nil
}

// Name returns the name of the forge.
func (g *GitHub) Name() string {
	return "github"
}

// ListClosedPRs returns one page of closed PRs, most recently updated first.
func (g *GitHub) ListClosedPRs(ctx context.Context, owner, repo string, opts ListOptions) ([]*PRInfo, int, error) {
	listOpts := &github.PullRequestListOptions{
		State:     "closed",
		Base:      opts.Base,
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			Page: opts.Page,
		},
	}

	prs, resp, err := g.client.PullRequests.List(ctx, owner, repo, listOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list closed PRs (page %d): %w", opts.Page, err)
	}

	result := make([]*PRInfo, 0, len(prs))
	for _, pr := range prs {
		result = append(result, githubPRInfo(pr))
	}

	return result, resp.NextPage, nil
}

// GetPR retrieves information about a pull request by number.
func (g *GitHub) GetPR(ctx context.Context, owner, repo string, number int) (*PRInfo, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get PR #%d: %w", number, err)
	}

	return githubPRInfo(pr), nil
}

// ListLabels returns the label names of a pull request.
func (g *GitHub) ListLabels(ctx context.Context, owner, repo string, number int) ([]string, error) {
	var labels []string

	opts := &github.ListOptions{PerPage: githubPageSize}
	for {
		page, resp, err := g.client.Issues.ListLabelsByIssue(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list labels of PR #%d: %w", number, err)
		}

		for _, label := range page {
			labels = append(labels, label.GetName())
		}

		if resp.NextPage == 0 {
			return labels, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListCommits returns the SHAs of a pull request's commits, oldest first.
func (g *GitHub) ListCommits(ctx context.Context, owner, repo string, number int) ([]string, error) {
	var shas []string

	opts := &github.ListOptions{PerPage: githubPageSize}
	for {
		page, resp, err := g.client.PullRequests.ListCommits(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list commits of PR #%d: %w", number, err)
		}

		for _, commit := range page {
			shas = append(shas, commit.GetSHA())
		}

		if resp.NextPage == 0 {
			return shas, nil
		}
		opts.Page = resp.NextPage
	}
}

func githubPRInfo(pr *github.PullRequest) *PRInfo {
	var mergedAt *time.Time
	if pr.MergedAt != nil {
		t := pr.GetMergedAt().Time
		mergedAt = &t
	}

	info := NewPRInfo(pr.GetNumber(), pr.GetTitle(), pr.GetHTMLURL(), pr.GetHead().GetSHA(), mergedAt)
	info.BaseBranch = pr.GetBase().GetRef()
	info.Author = pr.GetUser().GetLogin()
	info.CommitsURL = pr.GetCommitsURL()

	return info
}
