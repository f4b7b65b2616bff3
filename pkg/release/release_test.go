package release

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefloe.com/pat-s/githubflow-release/pkg/changelog"
	"codefloe.com/pat-s/githubflow-release/pkg/forge"
	"codefloe.com/pat-s/githubflow-release/pkg/git"
	"codefloe.com/pat-s/githubflow-release/pkg/pulls"
	"codefloe.com/pat-s/githubflow-release/pkg/versioning"
)

// fakeGit records every mutating call as a single line.
type fakeGit struct {
	path           string
	tag            string
	tagErr         error
	localBranches  map[string]bool
	remoteBranches map[string]bool
	tags           map[string]bool
	dirty          bool
	conflictOn     map[string]bool
	emptyOn        map[string]bool

	tagRefs []string
	calls   []string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		tag:            "v1.2.3",
		localBranches:  map[string]bool{"master": true, "release": true},
		remoteBranches: map[string]bool{"master": true, "release": true},
		tags:           map[string]bool{},
		conflictOn:     map[string]bool{},
		emptyOn:        map[string]bool{},
	}
}

func (g *fakeGit) record(format string, args ...any) {
	g.calls = append(g.calls, fmt.Sprintf(format, args...))
}

func (g *fakeGit) Path() string { return g.path }

func (g *fakeGit) Fetch(context.Context, string) error { return nil }

func (g *fakeGit) LatestTag(_ context.Context, ref string) (string, error) {
	g.tagRefs = append(g.tagRefs, ref)
	return g.tag, g.tagErr
}

func (g *fakeGit) BranchExists(name string) (bool, error) { return g.localBranches[name], nil }

func (g *fakeGit) RemoteBranchExists(_, name string) (bool, error) {
	return g.remoteBranches[name], nil
}

func (g *fakeGit) TagExists(name string) (bool, error) { return g.tags[name], nil }

func (g *fakeGit) HasUncommittedChanges() (bool, error) { return g.dirty, nil }

func (g *fakeGit) Checkout(_ context.Context, branch string) error {
	g.record("checkout %s", branch)
	return nil
}

func (g *fakeGit) CreateBranch(_ context.Context, name, ref string) error {
	g.record("branch %s %s", name, ref)
	g.localBranches[name] = true
	return nil
}

func (g *fakeGit) DeleteBranch(_ context.Context, name string) error {
	g.record("delete %s", name)
	delete(g.localBranches, name)
	return nil
}

func (g *fakeGit) CherryPick(_ context.Context, sha string) (*git.Outcome, error) {
	g.record("cherry-pick %s", sha)
	if g.conflictOn[sha] {
		return &git.Outcome{HasConflict: true, Message: "CONFLICT (content)"}, nil
	}
	if g.emptyOn[sha] {
		return &git.Outcome{Empty: true, Message: "The previous cherry-pick is now empty"}, nil
	}
	return &git.Outcome{Success: true}, nil
}

func (g *fakeGit) Merge(_ context.Context, branch, _ string) (*git.Outcome, error) {
	g.record("merge %s", branch)
	if g.conflictOn[branch] {
		return &git.Outcome{HasConflict: true, Message: "CONFLICT (content)"}, nil
	}
	return &git.Outcome{Success: true}, nil
}

func (g *fakeGit) FastForward(_ context.Context, ref string) error {
	g.record("ff %s", ref)
	return nil
}

func (g *fakeGit) Commit(_ context.Context, message string, paths ...string) error {
	g.record("commit %q %s", message, strings.Join(paths, ","))
	return nil
}

func (g *fakeGit) CreateTag(_ context.Context, name, ref, _ string) error {
	g.record("tag %s %s", name, ref)
	g.tags[name] = true
	return nil
}

func (g *fakeGit) Push(_ context.Context, remote string, branches ...string) error {
	g.record("push %s %s", remote, strings.Join(branches, " "))
	return nil
}

type fakePulls struct {
	merged   []*forge.PRInfo
	listErr  error
	byID     map[int]*forge.PRInfo
	fetchErr error
	commits  map[int][]string
	queries  []pulls.Query
	fetched  [][]int
	listings int
}

func (p *fakePulls) ListMergedSince(_ context.Context, q pulls.Query) ([]*forge.PRInfo, error) {
	p.listings++
	p.queries = append(p.queries, q)
	return p.merged, p.listErr
}

func (p *fakePulls) FetchByIDs(_ context.Context, _, _ string, ids []int) ([]*forge.PRInfo, error) {
	p.fetched = append(p.fetched, ids)
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	var prs []*forge.PRInfo
	for _, id := range ids {
		if pr, ok := p.byID[id]; ok {
			prs = append(prs, pr)
		}
	}
	return prs, nil
}

func (p *fakePulls) Commits(_ context.Context, _, _ string, prs []*forge.PRInfo) ([][]string, error) {
	out := make([][]string, len(prs))
	for i, pr := range prs {
		out[i] = p.commits[pr.Number]
	}
	return out, nil
}

func mergedPR(number int) *forge.PRInfo {
	now := time.Now()
	return forge.NewPRInfo(number, fmt.Sprintf("Change %d", number), fmt.Sprintf("https://github.com/owner/repo/pull/%d", number), "sha", &now)
}

func testContext(kind versioning.Kind) Context {
	return Context{
		Remote:         "origin",
		Kind:           kind,
		BaseBranch:     "master",
		ReleaseBranch:  "release",
		Owner:          "owner",
		Repo:           "repo",
		ExcludedLabels: []string{"hotfix", "not_in_changelog"},
		TagPrefix:      "v",
		Template:       changelog.DefaultTemplate,
	}
}

func newTestOrchestrator(rc Context, g *fakeGit, p *fakePulls) (*Orchestrator, *bytes.Buffer) {
	var out bytes.Buffer
	o := NewOrchestrator(rc, g, p, &out)
	o.newID = func() string { return "abcd1234" }
	return o, &out
}

func TestRunMinor(t *testing.T) {
	g := newFakeGit()
	p := &fakePulls{merged: []*forge.PRInfo{mergedPR(2), mergedPR(1)}}
	o, out := newTestOrchestrator(testContext(versioning.Minor), g, p)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatePublished, result.State)
	assert.Equal(t, "1.3.0", result.Version.String())
	assert.Equal(t, "v1.3.0", result.Tag)
	assert.Equal(t, "v1.2.3", result.PreviousTag)
	assert.Equal(t, []string{
		"branch release_1.3.0_abcd1234 origin/master",
		"checkout release_1.3.0_abcd1234",
		"checkout release",
		"ff origin/release",
		"merge release_1.3.0_abcd1234",
		"tag v1.3.0 release",
		"checkout master",
		"ff origin/master",
		"merge release",
		"delete release_1.3.0_abcd1234",
	}, g.calls)

	assert.Contains(t, out.String(), "Version 1.3.0\n\n * Change 2 <https://github.com/owner/repo/pull/2>\n * Change 1")
	assert.Contains(t, out.String(), "git push origin master release --tags")
	assert.False(t, result.Pushed)

	require.Len(t, p.queries, 1)
	assert.Equal(t, "master", p.queries[0].BaseBranch)
	assert.Equal(t, "release", p.queries[0].ReleaseBranch)
}

func TestRunMajorWithPush(t *testing.T) {
	g := newFakeGit()
	p := &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}}
	rc := testContext(versioning.Major)
	rc.AutoPush = true
	o, _ := newTestOrchestrator(rc, g, p)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", result.Version.String())
	assert.True(t, result.Pushed)

	n := len(g.calls)
	assert.Equal(t, "push origin master release", g.calls[n-2])
	assert.Equal(t, "delete release_2.0.0_abcd1234", g.calls[n-1])
}

func TestRunDryRunMakesNoChanges(t *testing.T) {
	g := newFakeGit()
	p := &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}}
	rc := testContext(versioning.Minor)
	rc.DryRun = true
	o, out := newTestOrchestrator(rc, g, p)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAbortedDryRun, result.State)
	assert.Empty(t, g.calls)
	assert.Contains(t, out.String(), "Version 1.3.0")
}

func TestRunNothingToRelease(t *testing.T) {
	g := newFakeGit()
	o, out := newTestOrchestrator(testContext(versioning.Minor), g, &fakePulls{})

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNothingToRelease, result.State)
	assert.Empty(t, g.calls)
	assert.Contains(t, out.String(), "nothing to release")
}

func TestRunListingError(t *testing.T) {
	g := newFakeGit()
	o, _ := newTestOrchestrator(testContext(versioning.Minor), g, &fakePulls{listErr: errors.New("unreachable")})

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateVersioned, o.State())
	assert.Empty(t, g.calls)
}

func TestRunNoPreviousTag(t *testing.T) {
	g := newFakeGit()
	g.tagErr = errors.New("fatal: No names found")
	o, _ := newTestOrchestrator(testContext(versioning.Minor), g, &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}})

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", result.Version.String())
}

func TestRunInvalidTag(t *testing.T) {
	g := newFakeGit()
	g.tag = "not-a-version"
	o, _ := newTestOrchestrator(testContext(versioning.Minor), g, &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}})

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, g.calls)
}

func TestRunUnknownKind(t *testing.T) {
	g := newFakeGit()
	o, _ := newTestOrchestrator(testContext("patch"), g, &fakePulls{})

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, versioning.ErrUnknownReleaseKind)
	assert.Equal(t, StateInit, o.State())
}

func TestRunHotfix(t *testing.T) {
	g := newFakeGit()
	p := &fakePulls{
		byID: map[int]*forge.PRInfo{7: mergedPR(7), 5: mergedPR(5)},
		commits: map[int][]string{
			7: {"c71", "c72"},
			5: {"c51"},
		},
	}
	rc := testContext(versioning.Hotfix)
	rc.HotfixPRs = []int{7, 9, 5}
	o, _ := newTestOrchestrator(rc, g, p)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", result.Version.String())
	assert.Equal(t, [][]int{{7, 9, 5}}, p.fetched)
	assert.Zero(t, p.listings)
	assert.Equal(t, []string{
		"branch release_1.2.4_abcd1234 origin/release",
		"checkout release_1.2.4_abcd1234",
		"cherry-pick c71",
		"cherry-pick c72",
		"cherry-pick c51",
		"checkout release",
		"ff origin/release",
		"merge release_1.2.4_abcd1234",
		"tag v1.2.4 release",
		"checkout master",
		"ff origin/master",
		"merge release",
		"delete release_1.2.4_abcd1234",
	}, g.calls)
}

func TestRunHotfixConflictKeepsState(t *testing.T) {
	g := newFakeGit()
	g.conflictOn["c72"] = true
	p := &fakePulls{
		byID:    map[int]*forge.PRInfo{7: mergedPR(7)},
		commits: map[int][]string{7: {"c71", "c72", "c73"}},
	}
	rc := testContext(versioning.Hotfix)
	rc.HotfixPRs = []int{7}
	o, _ := newTestOrchestrator(rc, g, p)

	_, err := o.Run(context.Background())

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "release_1.2.4_abcd1234", conflict.Branch)
	assert.Contains(t, conflict.Remediation(), "git cherry-pick --continue")
	assert.Equal(t, "cherry-pick c72", g.calls[len(g.calls)-1])
	assert.NotContains(t, g.calls, "cherry-pick c73")
}

func TestRunHotfixEmptyCherryPick(t *testing.T) {
	g := newFakeGit()
	g.emptyOn["c71"] = true
	p := &fakePulls{
		byID:    map[int]*forge.PRInfo{7: mergedPR(7)},
		commits: map[int][]string{7: {"c71", "c72"}},
	}
	rc := testContext(versioning.Hotfix)
	rc.HotfixPRs = []int{7}
	o, _ := newTestOrchestrator(rc, g, p)

	_, err := o.Run(context.Background())

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.True(t, conflict.Empty)
	assert.Equal(t, "release_1.2.4_abcd1234", conflict.TempBranch)
	assert.Contains(t, conflict.Error(), "cherry-pick of c71")
	assert.Contains(t, conflict.Remediation(), "git cherry-pick --skip")
	assert.NotContains(t, conflict.Remediation(), "git cherry-pick --continue")
	assert.Equal(t, "cherry-pick c71", g.calls[len(g.calls)-1])
	assert.NotContains(t, g.tags, "v1.2.4")
}

func TestRunHotfixAllPullRequestsMissing(t *testing.T) {
	g := newFakeGit()
	p := &fakePulls{fetchErr: fmt.Errorf("%w [7 9]", pulls.ErrNoPullRequests)}
	rc := testContext(versioning.Hotfix)
	rc.HotfixPRs = []int{7, 9}
	o, _ := newTestOrchestrator(rc, g, p)

	result, err := o.Run(context.Background())
	require.ErrorIs(t, err, pulls.ErrNoPullRequests)
	assert.Nil(t, result)
	assert.NotEqual(t, StateNothingToRelease, o.State())
	assert.Empty(t, g.calls)
}

func TestRunMergeConflictKeepsTempBranch(t *testing.T) {
	g := newFakeGit()
	g.conflictOn["release"] = true
	o, _ := newTestOrchestrator(testContext(versioning.Minor), g, &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}})

	_, err := o.Run(context.Background())

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "master", conflict.Branch)
	assert.Equal(t, "release_1.3.0_abcd1234", conflict.TempBranch)
	assert.Contains(t, conflict.Remediation(), "git merge --abort")
	assert.Equal(t, StateTagged, o.State())
	assert.True(t, g.localBranches["release_1.3.0_abcd1234"])
	for _, call := range g.calls {
		assert.False(t, strings.HasPrefix(call, "delete"), call)
		assert.False(t, strings.HasPrefix(call, "push"), call)
	}
}

func TestRunBootstrapsReleaseBranch(t *testing.T) {
	g := newFakeGit()
	g.tagErr = errors.New("no tags")
	delete(g.localBranches, "release")
	delete(g.remoteBranches, "release")
	o, _ := newTestOrchestrator(testContext(versioning.Minor), g, &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}})

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", result.Version.String())
	assert.Equal(t, []string{
		"branch release_0.1.0_abcd1234 origin/master",
		"checkout release_0.1.0_abcd1234",
		"branch release release_0.1.0_abcd1234",
		"checkout release",
		"tag v0.1.0 release",
		"checkout master",
		"ff origin/master",
		"merge release",
		"delete release_0.1.0_abcd1234",
	}, g.calls)
}

func TestRunLatestTagRef(t *testing.T) {
	tests := []struct {
		name   string
		remote bool
		local  bool
		want   string
	}{
		{name: "remote release branch", remote: true, local: true, want: "origin/release"},
		{name: "local release branch only", local: true, want: "release"},
		{name: "no release branch", want: "HEAD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGit()
			g.remoteBranches["release"] = tt.remote
			g.localBranches["release"] = tt.local
			rc := testContext(versioning.Minor)
			rc.DryRun = true
			o, _ := newTestOrchestrator(rc, g, &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}})

			_, err := o.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, g.tagRefs)
		})
	}
}

func TestStateDone(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateInit, false},
		{StateSynced, false},
		{StateVersioned, false},
		{StateChangelogBuilt, false},
		{StateBranched, false},
		{StateTagged, false},
		{StateMergedBack, false},
		{StateNothingToRelease, true},
		{StateAbortedDryRun, true},
		{StatePublished, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.Done(), string(tt.state))
	}
}

func TestRunExistingTagAborts(t *testing.T) {
	g := newFakeGit()
	g.tags["v1.3.0"] = true
	o, _ := newTestOrchestrator(testContext(versioning.Minor), g, &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}})

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v1.3.0 already exists")
	assert.Empty(t, g.calls)
}

func TestRunDirtyRepositoryAborts(t *testing.T) {
	g := newFakeGit()
	g.dirty = true
	o, _ := newTestOrchestrator(testContext(versioning.Minor), g, &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}})

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, g.calls)
}

func TestRunTwice(t *testing.T) {
	g := newFakeGit()
	o, _ := newTestOrchestrator(testContext(versioning.Minor), g, &fakePulls{})

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestRunCommitsRenderedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "debian"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, changelog.DebianChangelogPath),
		[]byte("pkg (1.2.3) unstable; urgency=low\n\n  * Old\n\n -- Bot <bot@example.com>  Mon, 01 Jan 2024 10:00:00 +0000\n"), 0o644))

	g := newFakeGit()
	g.path = root
	rc := testContext(versioning.Minor)
	rc.Renderers = []changelog.FileRenderer{changelog.Debian{}}
	o, _ := newTestOrchestrator(rc, g, &fakePulls{merged: []*forge.PRInfo{mergedPR(1)}})

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `commit "Version 1.3.0" debian/changelog`, g.calls[2])

	content, err := os.ReadFile(filepath.Join(root, changelog.DebianChangelogPath))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "pkg (1.3.0) unstable; urgency=low"))
}

func TestRunCustomTagPrefix(t *testing.T) {
	g := newFakeGit()
	g.tag = "release-2.0.1"
	rc := testContext(versioning.Hotfix)
	rc.TagPrefix = "release-"
	rc.HotfixPRs = []int{1}
	p := &fakePulls{byID: map[int]*forge.PRInfo{1: mergedPR(1)}, commits: map[int][]string{1: {"a"}}}
	o, _ := newTestOrchestrator(rc, g, p)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "release-2.0.2", result.Tag)
}

func TestContextValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Context)
		wantErr string
	}{
		{name: "valid", modify: func(*Context) {}},
		{name: "same branches", modify: func(c *Context) { c.ReleaseBranch = "master" }, wantErr: "must differ"},
		{name: "no remote", modify: func(c *Context) { c.Remote = "" }, wantErr: "remote"},
		{name: "no repo", modify: func(c *Context) { c.Repo = "" }, wantErr: "owner and name"},
		{name: "hotfix without ids", modify: func(c *Context) { c.Kind = versioning.Hotfix }, wantErr: "at least one"},
		{name: "no template", modify: func(c *Context) { c.Template = changelog.Template{} }, wantErr: "template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := testContext(versioning.Minor)
			tt.modify(&rc)
			err := rc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPushCommand(t *testing.T) {
	rc := testContext(versioning.Minor)
	assert.Equal(t, "git push origin master release --tags", rc.PushCommand())
}
