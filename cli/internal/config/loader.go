// Package config provides CLI-specific configuration loading.
package config

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"codefloe.com/pat-s/githubflow-release/pkg/config"
)

// RepoConfigPath returns the repo-local config path for the --project-path flag.
func RepoConfigPath(c *cli.Command) string {
	return filepath.Join(c.String("project-path"), config.RepoConfigPath())
}

// Load loads configuration from global and repo-local config files.
func Load(c *cli.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	// Load global config first.
	globalPath := config.GlobalConfigPath()
	if globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			globalCfg, err := config.LoadFromFile(globalPath)
			if err != nil {
				log.Debug().Err(err).Str("path", globalPath).Msg("failed to load global config")
			} else {
				log.Debug().Str("path", globalPath).Msg("loaded global config")
				cfg.Merge(globalCfg)
			}
		}
	}

	// Load repo-local config (overrides global).
	repoPath := RepoConfigPath(c)
	if _, err := os.Stat(repoPath); err == nil {
		repoCfg, err := config.LoadFromFile(repoPath)
		if err != nil {
			log.Debug().Err(err).Str("path", repoPath).Msg("failed to load repo config")
		} else {
			log.Debug().Str("path", repoPath).Msg("loaded repo config")
			cfg.Merge(repoCfg)
		}
	}

	// Override with explicit config file if provided.
	if configPath := c.String("config"); configPath != "" {
		explicitCfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", configPath).Msg("loaded explicit config")
		cfg.Merge(explicitCfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyToFlags applies config values to global CLI flags if they haven't been explicitly set.
func ApplyToFlags(c *cli.Command, cfg *config.Config) error {
	if !c.IsSet("remote") && cfg.Remote != "" {
		if err := c.Set("remote", cfg.Remote); err != nil {
			return err
		}
	}

	return nil
}

// String returns the flag value when set on the command line or in the
// environment, and fallback otherwise.
func String(c *cli.Command, name, fallback string) string {
	if c.IsSet(name) || fallback == "" {
		return c.String(name)
	}
	return fallback
}

// StringSlice returns the flag values when set, and fallback otherwise.
func StringSlice(c *cli.Command, name string, fallback []string) []string {
	if c.IsSet(name) {
		return c.StringSlice(name)
	}
	return fallback
}

// Bool returns the flag value when set, and fallback otherwise.
func Bool(c *cli.Command, name string, fallback bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fallback
}
