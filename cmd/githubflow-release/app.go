package main

import (
	"github.com/urfave/cli/v3"

	"codefloe.com/pat-s/githubflow-release/cli/common"
	"codefloe.com/pat-s/githubflow-release/cli/nextversion"
	"codefloe.com/pat-s/githubflow-release/cli/release"
	"codefloe.com/pat-s/githubflow-release/cli/setup"
	"codefloe.com/pat-s/githubflow-release/shared/version"
)

func newApp() *cli.Command {
	app := &cli.Command{}
	app.Name = "githubflow-release"
	app.Description = "A tool for GitHub flow releases: next version, changelog from merged pull requests, release branch and tag"
	app.Version = version.String()
	app.Usage = "release a repository following the GitHub flow"
	app.Flags = common.GlobalFlags
	app.Before = common.Before
	app.Suggest = true
	app.Commands = []*cli.Command{
		release.Command,
		nextversion.Command,
		setup.Command,
	}

	return app
}
