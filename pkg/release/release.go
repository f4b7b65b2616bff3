package release

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"codefloe.com/pat-s/githubflow-release/pkg/changelog"
	"codefloe.com/pat-s/githubflow-release/pkg/forge"
	"codefloe.com/pat-s/githubflow-release/pkg/git"
	"codefloe.com/pat-s/githubflow-release/pkg/pulls"
	"codefloe.com/pat-s/githubflow-release/pkg/versioning"
	"codefloe.com/pat-s/githubflow-release/shared/version"
)

// Git is the subset of git.Repository the release needs.
type Git interface {
	Path() string
	Fetch(ctx context.Context, remote string) error
	LatestTag(ctx context.Context, ref string) (string, error)
	BranchExists(name string) (bool, error)
	RemoteBranchExists(remote, name string) (bool, error)
	TagExists(name string) (bool, error)
	HasUncommittedChanges() (bool, error)
	Checkout(ctx context.Context, branch string) error
	CreateBranch(ctx context.Context, name, ref string) error
	DeleteBranch(ctx context.Context, name string) error
	CherryPick(ctx context.Context, sha string) (*git.Outcome, error)
	Merge(ctx context.Context, branch, message string) (*git.Outcome, error)
	FastForward(ctx context.Context, ref string) error
	Commit(ctx context.Context, message string, paths ...string) error
	CreateTag(ctx context.Context, name, ref, message string) error
	Push(ctx context.Context, remote string, branches ...string) error
}

// PullRequests selects the pull requests of a release.
type PullRequests interface {
	ListMergedSince(ctx context.Context, q pulls.Query) ([]*forge.PRInfo, error)
	FetchByIDs(ctx context.Context, owner, repo string, ids []int) ([]*forge.PRInfo, error)
	Commits(ctx context.Context, owner, repo string, prs []*forge.PRInfo) ([][]string, error)
}

// Result describes how far a run went.
type Result struct {
	State       State
	PreviousTag string
	Version     *semver.Version
	Tag         string
	Changelog   changelog.Changelog
	// Text is the rendered changelog, also used as the tag message.
	Text       string
	TempBranch string
	Pushed     bool
}

// Orchestrator runs a single release. It is not reusable.
type Orchestrator struct {
	rc    Context
	git   Git
	prs   PullRequests
	out   io.Writer
	newID func() string

	state State
	ran   bool
}

// NewOrchestrator creates an Orchestrator writing user-facing output to out.
func NewOrchestrator(rc Context, g Git, prs PullRequests, out io.Writer) *Orchestrator {
	return &Orchestrator{
		rc:    rc,
		git:   g,
		prs:   prs,
		out:   out,
		newID: func() string { return uuid.New().String()[:8] },
		state: StateInit,
	}
}

// State returns the state reached so far.
func (o *Orchestrator) State() State {
	return o.state
}

// Run performs the release. It returns a Result for every successful outcome,
// including nothing to release and dry runs. On error the repository is left as
// it was when the failing step started; a *ConflictError leaves the conflict in place.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if o.ran {
		return nil, ErrAlreadyRun
	}
	o.ran = true

	if err := o.rc.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}
	defer func() { result.State = o.state }()

	log.Info().Str("remote", o.rc.Remote).Msg("fetching changes")
	if err := o.git.Fetch(ctx, o.rc.Remote); err != nil {
		return nil, err
	}
	o.state = StateSynced

	remoteRelease, err := o.git.RemoteBranchExists(o.rc.Remote, o.rc.ReleaseBranch)
	if err != nil {
		return nil, fmt.Errorf("failed to check remote release branch: %w", err)
	}

	localRelease, err := o.git.BranchExists(o.rc.ReleaseBranch)
	if err != nil {
		return nil, fmt.Errorf("failed to check local release branch: %w", err)
	}

	tagRef := "HEAD"
	switch {
	case remoteRelease:
		tagRef = o.rc.remoteRef(o.rc.ReleaseBranch)
	case localRelease:
		tagRef = o.rc.ReleaseBranch
	}
	log.Debug().Str("ref", tagRef).Msg("looking up latest tag")
	previous, next, err := versioning.LatestVersion(ctx, versioning.WithPrefix(o.git, o.rc.TagPrefix), tagRef, o.rc.Kind)
	if err != nil {
		return nil, err
	}
	if previous != "" {
		result.PreviousTag = o.rc.TagName(previous)
	}
	result.Version = next
	result.Tag = o.rc.TagName(next.String())
	o.state = StateVersioned
	log.Info().Str("previous", previous).Str("version", next.String()).Msg("next version resolved")

	prs, err := o.selectPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	if len(prs) == 0 {
		o.state = StateNothingToRelease
		fmt.Fprintln(o.out, "No new pull request found, nothing to release.")
		return result, nil
	}

	result.Changelog = changelog.Changelog{Version: next, PullRequests: prs}
	result.Text = result.Changelog.Text(o.rc.Template)
	o.state = StateChangelogBuilt
	fmt.Fprintf(o.out, "%s\n", result.Text)

	if o.rc.DryRun {
		o.state = StateAbortedDryRun
		fmt.Fprintln(o.out, "Dry run, stopping before any change to the repository.")
		return result, nil
	}

	if err := o.checkRepository(result.Tag); err != nil {
		return nil, err
	}

	var commits [][]string
	if o.rc.Kind == versioning.Hotfix {
		commits, err = o.prs.Commits(ctx, o.rc.Owner, o.rc.Repo, prs)
		if err != nil {
			return nil, err
		}
	}

	result.TempBranch = fmt.Sprintf("release_%s_%s", next, o.newID())
	if err := o.branch(ctx, result, remoteRelease, commits); err != nil {
		return nil, err
	}
	o.state = StateBranched

	if err := o.tag(ctx, result, remoteRelease); err != nil {
		return nil, err
	}
	o.state = StateTagged

	if err := o.mergeBack(ctx, result); err != nil {
		return nil, err
	}
	o.state = StateMergedBack

	if err := o.publish(ctx, result); err != nil {
		return nil, err
	}

	log.Debug().Str("branch", result.TempBranch).Msg("deleting temporary branch")
	if err := o.git.DeleteBranch(ctx, result.TempBranch); err != nil {
		log.Warn().Err(err).Str("branch", result.TempBranch).Msg("failed to delete temporary branch")
	}
	o.state = StatePublished

	return result, nil
}

func (o *Orchestrator) selectPullRequests(ctx context.Context) ([]*forge.PRInfo, error) {
	if o.rc.Kind == versioning.Hotfix {
		log.Info().Ints("prs", o.rc.HotfixPRs).Msg("fetching hotfix pull requests")
		return o.prs.FetchByIDs(ctx, o.rc.Owner, o.rc.Repo, o.rc.HotfixPRs)
	}

	log.Info().Str("base", o.rc.BaseBranch).Msg("listing merged pull requests")
	prs, err := o.prs.ListMergedSince(ctx, pulls.Query{
		Owner:          o.rc.Owner,
		Repo:           o.rc.Repo,
		BaseBranch:     o.rc.BaseBranch,
		ExcludedLabels: o.rc.ExcludedLabels,
		Remote:         o.rc.Remote,
		ReleaseBranch:  o.rc.ReleaseBranch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}
	return prs, nil
}

// checkRepository runs the last checks before the first change to the repository.
func (o *Orchestrator) checkRepository(tag string) error {
	dirty, err := o.git.HasUncommittedChanges()
	if err != nil {
		return fmt.Errorf("failed to check for uncommitted changes: %w", err)
	}
	if dirty {
		return fmt.Errorf("repository has uncommitted changes, please commit or stash them first")
	}

	exists, err := o.git.TagExists(tag)
	if err != nil {
		return fmt.Errorf("failed to check tag %s: %w", tag, err)
	}
	if exists {
		return fmt.Errorf("tag %s already exists", tag)
	}
	return nil
}

// branch creates the temporary branch, applies hotfix commits and commits the
// rendered release files.
func (o *Orchestrator) branch(ctx context.Context, result *Result, remoteRelease bool, commits [][]string) error {
	start, err := o.startRef(remoteRelease)
	if err != nil {
		return err
	}

	log.Info().Str("branch", result.TempBranch).Str("from", start).Msg("creating temporary release branch")
	if err := o.git.CreateBranch(ctx, result.TempBranch, start); err != nil {
		return err
	}
	if err := o.git.Checkout(ctx, result.TempBranch); err != nil {
		return err
	}

	for i, shas := range commits {
		pr := result.Changelog.PullRequests[i]
		for _, sha := range shas {
			log.Debug().Int("pr", pr.Number).Str("sha", sha).Msg("cherry-picking commit")
			outcome, err := o.git.CherryPick(ctx, sha)
			if err != nil {
				return err
			}
			if outcome.HasConflict || outcome.Empty {
				return &ConflictError{
					Step:       fmt.Sprintf("cherry-pick of %s from #%d", shortSHA(sha), pr.Number),
					Branch:     result.TempBranch,
					TempBranch: result.TempBranch,
					Empty:      outcome.Empty,
					Output:     outcome.Message,
				}
			}
		}
	}

	var files []string
	for _, r := range o.rc.Renderers {
		paths, err := r.Render(o.git.Path(), result.Changelog)
		if err != nil {
			return fmt.Errorf("%s renderer failed: %w", r.Name(), err)
		}
		log.Debug().Str("renderer", r.Name()).Strs("files", paths).Msg("release files rendered")
		files = append(files, paths...)
	}
	if len(files) > 0 {
		if err := o.git.Commit(ctx, version.CommitMessage(result.Version.String()), files...); err != nil {
			return err
		}
	}

	return nil
}

// startRef is where the temporary branch starts: the base branch for major and
// minor releases, the release branch for hotfixes.
func (o *Orchestrator) startRef(remoteRelease bool) (string, error) {
	if o.rc.Kind == versioning.Hotfix {
		if remoteRelease {
			return o.rc.remoteRef(o.rc.ReleaseBranch), nil
		}
		exists, err := o.git.BranchExists(o.rc.ReleaseBranch)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", fmt.Errorf("release branch %s does not exist, a hotfix needs a previous release", o.rc.ReleaseBranch)
		}
		return o.rc.ReleaseBranch, nil
	}

	remoteBase, err := o.git.RemoteBranchExists(o.rc.Remote, o.rc.BaseBranch)
	if err != nil {
		return "", err
	}
	if remoteBase {
		return o.rc.remoteRef(o.rc.BaseBranch), nil
	}
	return o.rc.BaseBranch, nil
}

// tag brings the temporary branch into the release branch and tags it.
func (o *Orchestrator) tag(ctx context.Context, result *Result, remoteRelease bool) error {
	localRelease, err := o.git.BranchExists(o.rc.ReleaseBranch)
	if err != nil {
		return err
	}

	switch {
	case !localRelease && !remoteRelease:
		log.Info().Str("branch", o.rc.ReleaseBranch).Msg("release branch does not exist, creating it")
		if err := o.git.CreateBranch(ctx, o.rc.ReleaseBranch, result.TempBranch); err != nil {
			return err
		}
		if err := o.git.Checkout(ctx, o.rc.ReleaseBranch); err != nil {
			return err
		}
	default:
		if !localRelease {
			if err := o.git.CreateBranch(ctx, o.rc.ReleaseBranch, o.rc.remoteRef(o.rc.ReleaseBranch)); err != nil {
				return err
			}
		}
		if err := o.git.Checkout(ctx, o.rc.ReleaseBranch); err != nil {
			return err
		}
		if remoteRelease {
			if err := o.git.FastForward(ctx, o.rc.remoteRef(o.rc.ReleaseBranch)); err != nil {
				return err
			}
		}
		if err := o.merge(ctx, result.TempBranch, o.rc.ReleaseBranch, result.TempBranch); err != nil {
			return err
		}
	}

	log.Info().Str("tag", result.Tag).Msg("tagging release")
	return o.git.CreateTag(ctx, result.Tag, o.rc.ReleaseBranch, result.Text)
}

// mergeBack merges the release branch into the base branch.
func (o *Orchestrator) mergeBack(ctx context.Context, result *Result) error {
	localBase, err := o.git.BranchExists(o.rc.BaseBranch)
	if err != nil {
		return err
	}
	remoteBase, err := o.git.RemoteBranchExists(o.rc.Remote, o.rc.BaseBranch)
	if err != nil {
		return err
	}

	if !localBase {
		if !remoteBase {
			return fmt.Errorf("base branch %s does not exist", o.rc.BaseBranch)
		}
		if err := o.git.CreateBranch(ctx, o.rc.BaseBranch, o.rc.remoteRef(o.rc.BaseBranch)); err != nil {
			return err
		}
	}
	if err := o.git.Checkout(ctx, o.rc.BaseBranch); err != nil {
		return err
	}
	if remoteBase {
		if err := o.git.FastForward(ctx, o.rc.remoteRef(o.rc.BaseBranch)); err != nil {
			return err
		}
	}

	log.Info().Str("from", o.rc.ReleaseBranch).Str("into", o.rc.BaseBranch).Msg("merging release back")
	return o.merge(ctx, o.rc.ReleaseBranch, o.rc.BaseBranch, result.TempBranch)
}

func (o *Orchestrator) merge(ctx context.Context, from, into, tempBranch string) error {
	outcome, err := o.git.Merge(ctx, from, fmt.Sprintf("Merge branch '%s' into %s", from, into))
	if err != nil {
		return err
	}
	if outcome.HasConflict {
		return &ConflictError{
			Step:       fmt.Sprintf("merge of %s into %s", from, into),
			Branch:     into,
			TempBranch: tempBranch,
			Output:     outcome.Message,
		}
	}
	return nil
}

// PushCommand is the command publishing a release.
func (c Context) PushCommand() string {
	return fmt.Sprintf("git push %s %s %s --tags", c.Remote, c.BaseBranch, c.ReleaseBranch)
}

func (o *Orchestrator) publish(ctx context.Context, result *Result) error {
	if o.rc.AutoPush {
		log.Info().Str("remote", o.rc.Remote).Msg("pushing release")
		if err := o.git.Push(ctx, o.rc.Remote, o.rc.BaseBranch, o.rc.ReleaseBranch); err != nil {
			return err
		}
		result.Pushed = true
		fmt.Fprintf(o.out, "Release %s pushed to %s.\n", result.Tag, o.rc.Remote)
		return nil
	}

	fmt.Fprintln(o.out, strings.Repeat("=", 44))
	fmt.Fprintln(o.out, "Check the release, and when you're happy do:")
	fmt.Fprintf(o.out, "  %s\n", o.rc.PushCommand())
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
