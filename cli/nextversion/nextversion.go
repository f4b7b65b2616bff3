// Package nextversion provides the next-version command.
package nextversion

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"codefloe.com/pat-s/githubflow-release/cli/internal"
	cliconfig "codefloe.com/pat-s/githubflow-release/cli/internal/config"
	"codefloe.com/pat-s/githubflow-release/pkg/git"
	"codefloe.com/pat-s/githubflow-release/pkg/versioning"
)

// Command is the next-version command.
var Command = &cli.Command{
	Name:   "next-version",
	Usage:  "print the version the next release would get",
	Action: nextVersion,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Sources: cli.EnvVars("GITHUBFLOW_RELEASE_TYPE"),
			Name:    "release-type",
			Aliases: []string{"t"},
			Usage:   "kind of release: major, minor or hotfix",
		},
		&cli.StringFlag{
			Name:  "release-branch",
			Usage: "branch holding released versions (default: release)",
		},
		&cli.BoolFlag{
			Name:  "offline",
			Usage: "do not fetch tags from the remote first",
		},
	},
}

func nextVersion(ctx context.Context, c *cli.Command) error {
	cfg, err := cliconfig.Load(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	env := &internal.Env{Config: cfg}
	kind, err := env.ReleaseKind(c)
	if err != nil {
		return err
	}

	repo, err := git.Open(c.String("project-path"))
	if err != nil {
		return fmt.Errorf("failed to open git repository: %w", err)
	}

	remote := c.String("remote")
	if !c.Bool("offline") {
		if err := repo.Fetch(ctx, remote); err != nil {
			return err
		}
	}

	ref, err := releaseRef(repo, remote, cliconfig.String(c, "release-branch", cfg.ReleaseBranch))
	if err != nil {
		return err
	}

	_, next, err := versioning.LatestVersion(ctx, versioning.WithPrefix(repo, cfg.TagPrefix), ref, kind)
	if err != nil {
		return err
	}

	fmt.Println(next.String())
	return nil
}

type branchLookup interface {
	BranchExists(name string) (bool, error)
	RemoteBranchExists(remote, name string) (bool, error)
}

// releaseRef picks where to look for the latest tag: the remote release
// branch, else the local one, else HEAD.
func releaseRef(repo branchLookup, remote, branch string) (string, error) {
	exists, err := repo.RemoteBranchExists(remote, branch)
	if err != nil {
		return "", err
	}
	if exists {
		return remote + "/" + branch, nil
	}
	exists, err = repo.BranchExists(branch)
	if err != nil {
		return "", err
	}
	if exists {
		return branch, nil
	}
	return "HEAD", nil
}
