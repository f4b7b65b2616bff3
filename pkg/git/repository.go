// Package git provides git operations using go-git and the git binary.
package git

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repository wraps go-git repository operations.
type Repository struct {
	repo *gogit.Repository
	path string
}

// Open opens an existing git repository.
func Open(path string) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	return &Repository{repo: repo, path: worktree.Filesystem.Root()}, nil
}

// Path returns the root of the working tree.
func (r *Repository) Path() string {
	return r.path
}

// RemoteURL returns the URL of the specified remote.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", fmt.Errorf("failed to get remote %s: %w", name, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URLs", name)
	}

	return urls[0], nil
}

var httpsRemotePattern = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/]+?)(?:\.git)?$`)

// ParseRemoteURL parses a git remote URL and extracts owner and repo.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	// Handle SSH URLs: git@github.com:owner/repo.git
	if strings.HasPrefix(url, "git@") {
		parts := strings.Split(url, ":")
		if len(parts) != 2 { //nolint:mnd
			return "", "", fmt.Errorf("invalid SSH URL format: %s", url)
		}
		path := strings.TrimSuffix(parts[1], ".git")
		pathParts := strings.Split(path, "/")
		if len(pathParts) != 2 { //nolint:mnd
			return "", "", fmt.Errorf("invalid SSH URL path: %s", url)
		}
		return pathParts[0], pathParts[1], nil
	}

	// Handle HTTPS URLs: https://github.com/owner/repo.git
	matches := httpsRemotePattern.FindStringSubmatch(url)
	if len(matches) != 3 { //nolint:mnd
		return "", "", fmt.Errorf("invalid HTTPS URL format: %s", url)
	}

	return matches[1], matches[2], nil
}

// CurrentBranch returns the name of the current branch.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not pointing to a branch")
	}

	return head.Name().Short(), nil
}

// HasUncommittedChanges checks if there are uncommitted changes.
// This only checks for modified or staged files, not untracked files.
func (r *Repository) HasUncommittedChanges() (bool, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}

	for _, fileStatus := range status {
		if fileStatus.Worktree == gogit.Untracked && fileStatus.Staging == gogit.Untracked {
			continue
		}
		return true, nil
	}

	return false, nil
}

// BranchExists checks if a local branch exists.
func (r *Repository) BranchExists(name string) (bool, error) {
	return r.referenceExists(plumbing.NewBranchReferenceName(name))
}

// RemoteBranchExists checks if a remote-tracking branch exists, e.g. origin/release.
func (r *Repository) RemoteBranchExists(remote, name string) (bool, error) {
	return r.referenceExists(plumbing.NewRemoteReferenceName(remote, name))
}

// TagExists checks if a tag exists.
func (r *Repository) TagExists(name string) (bool, error) {
	return r.referenceExists(plumbing.NewTagReferenceName(name))
}

func (r *Repository) referenceExists(name plumbing.ReferenceName) (bool, error) {
	_, err := r.repo.Reference(name, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
