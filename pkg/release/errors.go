package release

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyRun is returned when Run is called a second time on an Orchestrator.
var ErrAlreadyRun = errors.New("release already run")

// ConflictError is returned when a merge or cherry-pick stops on conflicts.
// The repository is left as git left it.
type ConflictError struct {
	// Step is the operation that conflicted, e.g. "merge release_1.2.0_ab12cd34 into release".
	Step string
	// Branch is the branch checked out when the conflict occurred.
	Branch string
	// TempBranch is the temporary release branch, kept for inspection.
	TempBranch string
	// Empty is set when a cherry-picked change was already on the branch.
	Empty bool
	// Output is git's output.
	Output string
}

func (e *ConflictError) Error() string {
	if e.Empty {
		return fmt.Sprintf("%s on %s is empty, the change is already there", e.Step, e.Branch)
	}
	return fmt.Sprintf("conflict during %s on %s", e.Step, e.Branch)
}

// Remediation describes how to finish or abandon the release by hand.
func (e *ConflictError) Remediation() string {
	var sb strings.Builder
	if e.Empty {
		fmt.Fprintf(&sb, "The release stopped because the %s changes nothing on %s.\n\n", e.Step, e.Branch)
		sb.WriteString("To continue without it:\n")
		sb.WriteString("  1. git cherry-pick --skip\n")
		sb.WriteString("  2. Finish the remaining release steps by hand\n\n")
		sb.WriteString("To abandon:\n")
		sb.WriteString("  git cherry-pick --abort\n")
		if e.TempBranch != "" {
			fmt.Fprintf(&sb, "  git branch -D %s (once another branch is checked out)\n", e.TempBranch)
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "The release stopped on a conflict during %s.\n", e.Step)
	fmt.Fprintf(&sb, "Branch %s has unresolved conflicts.\n\n", e.Branch)
	sb.WriteString("To continue:\n")
	sb.WriteString("  1. Resolve the conflicts\n")
	sb.WriteString("  2. git add <files>\n")
	if strings.HasPrefix(e.Step, "cherry-pick") {
		sb.WriteString("  3. git cherry-pick --continue\n")
	} else {
		sb.WriteString("  3. git commit\n")
	}
	sb.WriteString("  4. Finish the remaining release steps by hand\n\n")
	sb.WriteString("To abandon:\n")
	if strings.HasPrefix(e.Step, "cherry-pick") {
		sb.WriteString("  git cherry-pick --abort\n")
	} else {
		sb.WriteString("  git merge --abort\n")
	}
	if e.TempBranch != "" {
		fmt.Fprintf(&sb, "  git branch -D %s (once another branch is checked out)\n", e.TempBranch)
	}
	return sb.String()
}
