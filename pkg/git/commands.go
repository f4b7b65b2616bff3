package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrCommitNotFound is returned when a commit is not part of the local history,
// typically after a force-push or a squash merge rewrote it.
var ErrCommitNotFound = errors.New("commit not found")

// Outcome represents the result of an operation that may stop on conflicts.
type Outcome struct {
	Success     bool
	HasConflict bool
	// Empty is set when a cherry-picked change is already on the branch. The
	// cherry-pick is left in progress, like a conflict.
	Empty   bool
	Message string
}

// run executes git in the repository and returns its combined output.
// Note: go-git doesn't support merge, cherry-pick or describe, so we use the git command.
func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.path
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// runConflicting executes a git command that may stop on conflicts.
func (r *Repository) runConflicting(ctx context.Context, op string, args ...string) (*Outcome, error) {
	output, err := r.run(ctx, args...)
	if err != nil {
		if isEmptyPick(output) {
			return &Outcome{
				Success: false,
				Empty:   true,
				Message: output,
			}, nil
		}
		if isConflict(output) {
			return &Outcome{
				Success:     false,
				HasConflict: true,
				Message:     output,
			}, nil
		}

		return nil, fmt.Errorf("%s failed: %s - %w", op, output, err)
	}

	return &Outcome{
		Success:     true,
		HasConflict: false,
		Message:     output,
	}, nil
}

func isConflict(output string) bool {
	return strings.Contains(output, "CONFLICT") ||
		strings.Contains(output, "after resolving the conflicts") ||
		strings.Contains(output, "fix conflicts and then commit")
}

func isEmptyPick(output string) bool {
	return strings.Contains(output, "cherry-pick is now empty")
}

// Fetch fetches branches and tags from the specified remote.
func (r *Repository) Fetch(ctx context.Context, remote string) error {
	output, err := r.run(ctx, "fetch", "--tags", remote)
	if err != nil {
		return fmt.Errorf("failed to fetch from %s: %s - %w", remote, output, err)
	}
	return nil
}

// LatestTag returns the most recent tag reachable from ref (HEAD when empty).
func (r *Repository) LatestTag(ctx context.Context, ref string) (string, error) {
	args := []string{"describe", "--tags", "--abbrev=0"}
	if ref != "" {
		args = append(args, ref)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.path
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("failed to describe %s: %s - %w", ref, strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return "", fmt.Errorf("failed to describe %s: %w", ref, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// BranchContains reports whether the remote branch <remote>/<branch> contains sha.
// ErrCommitNotFound is returned when sha is unknown to the repository.
func (r *Repository) BranchContains(ctx context.Context, remote, branch, sha string) (bool, error) {
	output, err := r.run(ctx, "branch", "-r", "--contains", sha)
	if err != nil {
		if strings.Contains(output, "malformed object name") || strings.Contains(output, "no such commit") {
			return false, fmt.Errorf("%w: %s", ErrCommitNotFound, sha)
		}
		return false, fmt.Errorf("failed to list branches containing %s: %s - %w", sha, output, err)
	}

	want := remote + "/" + branch
	for _, line := range strings.Split(output, "\n") {
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		// Skip symbolic refs such as "origin/HEAD -> origin/main".
		if strings.Contains(name, " -> ") {
			continue
		}
		if name == want {
			return true, nil
		}
	}

	return false, nil
}

// CherryPick performs a git cherry-pick operation. A conflict is reported in the
// outcome and the cherry-pick is left in progress.
func (r *Repository) CherryPick(ctx context.Context, sha string) (*Outcome, error) {
	return r.runConflicting(ctx, "cherry-pick", "cherry-pick", sha)
}

// Merge merges branch into the current branch, always creating a merge commit.
// A conflict is reported in the outcome and the merge is left in progress.
func (r *Repository) Merge(ctx context.Context, branch, message string) (*Outcome, error) {
	return r.runConflicting(ctx, "merge", "merge", "--no-ff", "-m", message, branch)
}

// FastForward moves the current branch to ref, refusing to create a merge.
func (r *Repository) FastForward(ctx context.Context, ref string) error {
	output, err := r.run(ctx, "merge", "--ff-only", ref)
	if err != nil {
		return fmt.Errorf("failed to fast-forward to %s: %s - %w", ref, output, err)
	}
	return nil
}

// Checkout switches to the specified branch.
// Note: We don't use "--" separator here because it would treat the branch as a file path.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	output, err := r.run(ctx, "checkout", branch)
	if err != nil {
		return fmt.Errorf("failed to checkout %s: %s - %w", branch, output, err)
	}
	return nil
}

// CreateBranch creates a new branch from a specific ref, or from HEAD when ref is empty.
func (r *Repository) CreateBranch(ctx context.Context, name, ref string) error {
	args := []string{"branch", "--no-track", "--", name}
	if ref != "" {
		args = append(args, ref)
	}

	output, err := r.run(ctx, args...)
	if err != nil {
		return fmt.Errorf("failed to create branch %s from %s: %s - %w", name, ref, output, err)
	}
	return nil
}

// DeleteBranch deletes a branch.
func (r *Repository) DeleteBranch(ctx context.Context, name string) error {
	output, err := r.run(ctx, "branch", "-D", "--", name)
	if err != nil {
		return fmt.Errorf("failed to delete branch %s: %s - %w", name, output, err)
	}
	return nil
}

// Commit stages the given paths and commits them.
func (r *Repository) Commit(ctx context.Context, message string, paths ...string) error {
	if len(paths) > 0 {
		output, err := r.run(ctx, append([]string{"add", "--"}, paths...)...)
		if err != nil {
			return fmt.Errorf("failed to stage %s: %s - %w", strings.Join(paths, ", "), output, err)
		}
	}

	output, err := r.run(ctx, "commit", "-m", message)
	if err != nil {
		return fmt.Errorf("failed to commit: %s - %w", output, err)
	}
	return nil
}

// CreateTag creates an annotated tag on ref carrying message.
func (r *Repository) CreateTag(ctx context.Context, name, ref, message string) error {
	output, err := r.run(ctx, "tag", "-a", name, "-m", message, ref)
	if err != nil {
		return fmt.Errorf("failed to create tag %s: %s - %w", name, output, err)
	}
	return nil
}

// Push pushes the given branches and all tags to the remote.
func (r *Repository) Push(ctx context.Context, remote string, branches ...string) error {
	args := append([]string{"push", remote}, branches...)
	args = append(args, "--tags")

	output, err := r.run(ctx, args...)
	if err != nil {
		return fmt.Errorf("failed to push to %s: %s - %w", remote, output, err)
	}
	return nil
}
