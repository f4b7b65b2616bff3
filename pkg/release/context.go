// Package release drives a GitHub-flow release: version, changelog, release
// branch, tag and merge back to the base branch.
package release

import (
	"fmt"

	"codefloe.com/pat-s/githubflow-release/pkg/changelog"
	"codefloe.com/pat-s/githubflow-release/pkg/forge"
	"codefloe.com/pat-s/githubflow-release/pkg/versioning"
)

// Context holds everything a release run needs. It is built once by the caller
// and never modified during the run.
type Context struct {
	Remote        string
	Kind          versioning.Kind
	BaseBranch    string
	ReleaseBranch string

	// Owner and Repo identify the repository on the forge.
	Owner string
	Repo  string

	Credentials    forge.Credentials
	ExcludedLabels []string
	// HotfixPRs lists the pull requests shipped by a hotfix, in cherry-pick order.
	HotfixPRs []int

	DryRun   bool
	AutoPush bool

	// TagPrefix is prepended to the version to form the tag name.
	TagPrefix string
	Template  changelog.Template
	Renderers []changelog.FileRenderer
}

// Validate checks the context before any git or API call.
func (c Context) Validate() error {
	if _, err := versioning.ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if c.Remote == "" {
		return fmt.Errorf("remote is required")
	}
	if c.BaseBranch == "" || c.ReleaseBranch == "" {
		return fmt.Errorf("base and release branches are required")
	}
	if c.BaseBranch == c.ReleaseBranch {
		return fmt.Errorf("base and release branches must differ (both are %q)", c.BaseBranch)
	}
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("repository owner and name are required")
	}
	if c.Kind == versioning.Hotfix && len(c.HotfixPRs) == 0 {
		return fmt.Errorf("a hotfix release needs at least one pull request id")
	}
	if c.Template.Header == nil || c.Template.Line == nil || c.Template.Footer == nil {
		return fmt.Errorf("changelog template is incomplete")
	}
	return nil
}

// TagName returns the tag for the given version string.
func (c Context) TagName(version string) string {
	return c.TagPrefix + version
}

// remoteRef returns the remote-tracking ref of a branch.
func (c Context) remoteRef(branch string) string {
	return c.Remote + "/" + branch
}

// State is a step of the release state machine.
type State string

// Release states, in order.
const (
	StateInit             State = "init"
	StateSynced           State = "synced"
	StateVersioned        State = "versioned"
	StateChangelogBuilt   State = "changelog_built"
	StateNothingToRelease State = "nothing_to_release"
	StateAbortedDryRun    State = "aborted_dry_run"
	StateBranched         State = "branched"
	StateTagged           State = "tagged"
	StateMergedBack       State = "merged_back"
	StatePublished        State = "published"
)

// Done reports whether the state ends a run successfully.
func (s State) Done() bool {
	return s == StateNothingToRelease || s == StateAbortedDryRun || s == StatePublished
}
