// Package common provides shared CLI flags and utilities.
package common

import (
	"github.com/urfave/cli/v3"

	"codefloe.com/pat-s/githubflow-release/shared/logger"
)

// GlobalFlags are flags available to all commands.
var GlobalFlags = append([]cli.Flag{
	&cli.StringFlag{
		Sources: cli.EnvVars("GITHUBFLOW_RELEASE_CONFIG"),
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to config file",
	},
	&cli.StringFlag{
		Sources: cli.EnvVars("GITHUBFLOW_RELEASE_PROJECT_PATH"),
		Name:    "project-path",
		Usage:   "path to the git repository to release",
		Value:   ".",
	},
	&cli.StringFlag{
		Sources: cli.EnvVars("GITHUBFLOW_RELEASE_REMOTE"),
		Name:    "remote",
		Usage:   "git remote name",
		Value:   "origin",
	},
	&cli.StringFlag{
		Sources: cli.EnvVars("GITHUBFLOW_RELEASE_GITHUB_USER", "GITHUB_USER"),
		Name:    "github-user",
		Usage:   "user for basic authentication against the forge API",
	},
	&cli.StringFlag{
		Sources: cli.EnvVars("GITHUBFLOW_RELEASE_GITHUB_TOKEN", "GITHUB_TOKEN"),
		Name:    "github-token",
		Usage:   "token for the forge API",
	},
}, logger.GlobalLoggerFlags...)
