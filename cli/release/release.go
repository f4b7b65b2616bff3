// Package release provides the release command.
package release

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"codefloe.com/pat-s/githubflow-release/cli/internal"
	"codefloe.com/pat-s/githubflow-release/pkg/pulls"
	"codefloe.com/pat-s/githubflow-release/pkg/release"
	"codefloe.com/pat-s/githubflow-release/shared/logger"
)

// Command is the release command.
var Command = &cli.Command{
	Name:   "release",
	Usage:  "compute the next version, tag the release branch and merge it back",
	Action: runRelease,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Sources: cli.EnvVars("GITHUBFLOW_RELEASE_TYPE"),
			Name:    "release-type",
			Aliases: []string{"t"},
			Usage:   "kind of release: major, minor or hotfix",
		},
		&cli.StringFlag{
			Sources: cli.EnvVars("GITHUBFLOW_RELEASE_GITHUB_REPO"),
			Name:    "github-repo",
			Usage:   "repository as owner/name (default: parsed from the remote URL)",
		},
		&cli.StringFlag{
			Name:  "base-branch",
			Usage: "branch pull requests are merged into (default: master)",
		},
		&cli.StringFlag{
			Name:  "release-branch",
			Usage: "branch holding released versions (default: release)",
		},
		&cli.StringSliceFlag{
			Name:  "excluded-pr-tag",
			Usage: "leave out pull requests with this label, repeatable (default: hotfix, not_in_changelog)",
		},
		&cli.StringSliceFlag{
			Name:  "hotfix-pr-id",
			Usage: "pull request to ship in a hotfix, repeatable, applied in the given order",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "show the changelog without changing the repository",
		},
		&cli.BoolFlag{
			Sources: cli.EnvVars("GITHUBFLOW_RELEASE_PUSH"),
			Name:    "push",
			Usage:   "push branches and tags when done",
		},
		&cli.StringFlag{
			Name:  "tag-prefix",
			Usage: "prefix of release tags (default: v)",
		},
		&cli.BoolFlag{
			Name:  "debian-changelog",
			Usage: "prepend the release to debian/changelog",
		},
	},
}

func runRelease(ctx context.Context, c *cli.Command) error {
	env, err := internal.NewEnv(c)
	if err != nil {
		return err
	}

	kind, err := env.ReleaseKind(c)
	if err != nil {
		return err
	}

	rc, err := env.ReleaseContext(c, kind)
	if err != nil {
		return err
	}

	f, err := env.Forge(c)
	if err != nil {
		return err
	}

	if branch, err := env.Repo.CurrentBranch(); err == nil {
		log.Debug().Str("branch", branch).Msg("current branch")
	}

	log.Info().
		Str("kind", string(kind)).
		Str("repo", env.Owner+"/"+env.Name).
		Str("base", rc.BaseBranch).
		Str("release", rc.ReleaseBranch).
		Bool("dry-run", rc.DryRun).
		Msg("starting release")

	orchestrator := release.NewOrchestrator(rc, env.Repo, pulls.NewSource(f, env.Repo), os.Stdout)
	result, err := orchestrator.Run(ctx)
	if err != nil {
		return handleError(err, orchestrator.State())
	}
	if err := checkFinished(result); err != nil {
		return err
	}

	printResult(result, rc)
	return nil
}

// checkFinished rejects a result whose run stopped before a final state.
func checkFinished(result *release.Result) error {
	if result == nil {
		return errors.New("release returned no result")
	}
	if !result.State.Done() {
		return fmt.Errorf("release stopped unfinished in state %q", result.State)
	}
	return nil
}

func handleError(err error, state release.State) error {
	var conflict *release.ConflictError
	if !errors.As(err, &conflict) {
		log.Debug().Str("state", string(state)).Msg("release failed")
		return err
	}

	log.Debug().Str("state", string(state)).Str("step", conflict.Step).Msg("release stopped on conflict")

	if logger.IsCI() {
		return fmt.Errorf("%w (conflicts cannot be resolved in CI)", err)
	}

	fmt.Println()
	fmt.Println(styles.failure.Render("✗ " + conflict.Error()))
	fmt.Println()
	fmt.Println(conflict.Remediation())
	fmt.Println(styles.muted.Render("Conflict details:"))
	fmt.Println(conflict.Output)

	return fmt.Errorf("release conflicts need resolution")
}
