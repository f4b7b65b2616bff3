// Package logger provides logging setup for the application.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// GlobalLoggerFlags returns the global logger flags.
var GlobalLoggerFlags = []cli.Flag{
	&cli.StringFlag{
		Sources: cli.EnvVars("GITHUBFLOW_RELEASE_LOG_LEVEL", "LOGLEVEL"),
		Name:    "log-level",
		Usage:   "set logging level",
		Value:   "info",
	},
	&cli.BoolFlag{
		Sources: cli.EnvVars("GITHUBFLOW_RELEASE_PRETTY"),
		Name:    "pretty",
		Usage:   "enable pretty-printed output",
		Value:   IsInteractive(),
	},
	&cli.BoolFlag{
		Sources: cli.EnvVars("GITHUBFLOW_RELEASE_NOCOLOR", "NO_COLOR"),
		Name:    "nocolor",
		Usage:   "disable colored output",
		Value:   !IsInteractive(),
	},
}

// SetupGlobalLogger configures the global logger based on CLI flags.
func SetupGlobalLogger(_ context.Context, c *cli.Command) error {
	return setup(os.Stderr, c.String("log-level"), c.Bool("pretty"), c.Bool("nocolor"))
}

func setup(out io.Writer, logLevel string, pretty, noColor bool) error {
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	if pretty {
		log.Logger = log.Output(
			zerolog.ConsoleWriter{
				Out:     out,
				NoColor: noColor,
			},
		)
	}

	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("unknown logging level: %s", logLevel)
	}
	zerolog.SetGlobalLevel(lvl)

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		log.Logger = log.With().Caller().Logger()
	}

	return nil
}

// IsInteractive returns true if stdout is an interactive terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsCI returns true if running in CI environment.
func IsCI() bool {
	return os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
}
