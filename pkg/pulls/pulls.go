// Package pulls selects the pull requests that go into a release.
package pulls

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"

	"codefloe.com/pat-s/githubflow-release/pkg/forge"
	"codefloe.com/pat-s/githubflow-release/pkg/git"
)

// ErrNoPullRequests is returned when none of the requested pull requests could be retrieved.
var ErrNoPullRequests = errors.New("none of the pull requests could be retrieved")

// MaxSuccessiveReleased is the number of consecutive already-released pull
// requests after which the scan assumes everything older was released too.
const MaxSuccessiveReleased = 10

// commitFetchLimit bounds concurrent commit-list requests.
const commitFetchLimit = 4

// BranchContainer answers whether a commit is on a remote branch.
type BranchContainer interface {
	BranchContains(ctx context.Context, remote, branch, sha string) (bool, error)
}

// Query describes which pull requests to scan.
type Query struct {
	Owner      string
	Repo       string
	BaseBranch string
	// ExcludedLabels drops pull requests carrying any of these labels.
	ExcludedLabels []string
	// Remote and ReleaseBranch locate the released history.
	Remote        string
	ReleaseBranch string
}

// Source retrieves pull requests from a forge and checks them against the
// local repository.
type Source struct {
	forge    forge.Forge
	contains BranchContainer
}

// NewSource creates a Source.
func NewSource(f forge.Forge, contains BranchContainer) *Source {
	return &Source{forge: f, contains: contains}
}

// closedPRs yields closed pull requests page by page, requesting the next page
// only once the previous one is consumed. An error is yielded once and ends the
// sequence. Each call starts over from the first page.
func (s *Source) closedPRs(ctx context.Context, owner, repo, base string, pages *int) iter.Seq2[*forge.PRInfo, error] {
	return func(yield func(*forge.PRInfo, error) bool) {
		page := 1
		for page != 0 {
			prs, next, err := s.forge.ListClosedPRs(ctx, owner, repo, forge.ListOptions{Base: base, Page: page})
			*pages++
			if err != nil {
				yield(nil, err)
				return
			}

			for _, pr := range prs {
				if !yield(pr, nil) {
					return
				}
			}
			page = next
		}
	}
}

// ListMergedSince returns the merged pull requests targeting the base branch
// that are not yet on the release branch, most recently updated first.
//
// The scan stops after MaxSuccessiveReleased consecutive pull requests already
// on the release branch. An API error ends the scan early and the pull requests
// gathered so far are returned; the error is only returned when not a single
// page could be read.
func (s *Source) ListMergedSince(ctx context.Context, q Query) ([]*forge.PRInfo, error) {
	excluded := sets.New(q.ExcludedLabels...)
	successive := 0
	pages := 0

	var selected []*forge.PRInfo
	for pr, err := range s.closedPRs(ctx, q.Owner, q.Repo, q.BaseBranch, &pages) {
		if err != nil {
			if pages == 1 {
				return nil, err
			}
			log.Error().Err(err).Int("page", pages).Msg("failed to list pull requests, keeping what was retrieved so far")
			break
		}

		if !pr.Merged {
			log.Debug().Int("pr", pr.Number).Msg("pull request closed without merge, skipping")
			continue
		}

		released, err := s.contains.BranchContains(ctx, q.Remote, q.ReleaseBranch, pr.HeadSHA)
		if err != nil {
			if errors.Is(err, git.ErrCommitNotFound) {
				log.Warn().Int("pr", pr.Number).Str("sha", pr.HeadSHA).
					Msg("head commit not found locally, skipping pull request")
				continue
			}
			return nil, err
		}

		if released {
			successive++
			log.Debug().Int("pr", pr.Number).Int("successive", successive).Msg("pull request already released")
			if successive >= MaxSuccessiveReleased {
				log.Debug().Msg("reached the released history, stopping the scan")
				break
			}
			continue
		}
		successive = 0

		labels, err := pr.Labels(ctx, s.forge, q.Owner, q.Repo)
		if err != nil {
			log.Error().Err(err).Int("pr", pr.Number).Msg("failed to fetch labels, keeping what was retrieved so far")
			break
		}
		if excluded.HasAny(labels...) {
			log.Info().Int("pr", pr.Number).Strs("labels", labels).Msg("pull request excluded by label")
			continue
		}

		log.Debug().Int("pr", pr.Number).Str("title", pr.Title).Msg("adding pull request")
		selected = append(selected, pr)
	}

	return selected, nil
}

// FetchByIDs retrieves the given pull requests in order. Pull requests that
// cannot be retrieved are logged and left out. No merge or label filtering applies.
// It fails with ErrNoPullRequests when ids is not empty and none could be retrieved.
func (s *Source) FetchByIDs(ctx context.Context, owner, repo string, ids []int) ([]*forge.PRInfo, error) {
	prs := make([]*forge.PRInfo, 0, len(ids))
	var errs []error
	for _, id := range ids {
		pr, err := s.forge.GetPR(ctx, owner, repo, id)
		if err != nil {
			log.Error().Err(err).Int("pr", id).Msg("failed to retrieve pull request, skipping")
			errs = append(errs, fmt.Errorf("#%d: %w", id, err))
			continue
		}
		prs = append(prs, pr)
	}
	if len(ids) > 0 && len(prs) == 0 {
		return nil, fmt.Errorf("%w %v: %w", ErrNoPullRequests, ids, errors.Join(errs...))
	}
	return prs, nil
}

// Commits returns the commit SHAs of each pull request, in the order of prs.
func (s *Source) Commits(ctx context.Context, owner, repo string, prs []*forge.PRInfo) ([][]string, error) {
	commits := make([][]string, len(prs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(commitFetchLimit)
	for i, pr := range prs {
		g.Go(func() error {
			shas, err := s.forge.ListCommits(ctx, owner, repo, pr.Number)
			if err != nil {
				return fmt.Errorf("failed to list commits of #%d: %w", pr.Number, err)
			}
			commits[i] = shas
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return commits, nil
}
