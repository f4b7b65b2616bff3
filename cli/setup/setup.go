// Package setup provides interactive configuration setup.
package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"codefloe.com/pat-s/githubflow-release/pkg/config"
)

// Command is the init command.
var Command = &cli.Command{
	Name:  "init",
	Usage: "create a configuration file interactively",
	Action: func(_ context.Context, c *cli.Command) error {
		return CreateConfigInteractive(c.String("project-path"))
	},
}

// PromptForConfigCreation prompts user to create a config file.
func PromptForConfigCreation(projectPath string) error {
	fmt.Println("No configuration file found, built-in defaults will be used.")

	var createConfig bool
	err := huh.NewConfirm().
		Title("Would you like to create a configuration file now?").
		Affirmative("Yes").
		Negative("No").
		Value(&createConfig).
		Run()
	if err != nil {
		return err
	}

	if !createConfig {
		log.Debug().Msg("continuing without configuration file")
		return nil
	}

	return CreateConfigInteractive(projectPath)
}

// CreateConfigInteractive creates a config file interactively.
func CreateConfigInteractive(projectPath string) error {
	cfg := config.DefaultConfig()

	// Select forge type.
	var forgeType string
	err := huh.NewSelect[string]().
		Title("Select your forge type:").
		Options(
			huh.NewOption("GitHub", "github"),
			huh.NewOption("Forgejo/Gitea", "forgejo"),
		).
		Value(&forgeType).
		Run()
	if err != nil {
		return err
	}

	cfg.ForgeType = forgeType

	switch forgeType {
	case "forgejo":
		var forgeURL string
		err = huh.NewInput().
			Title("Forgejo instance URL (e.g., https://codeberg.org):").
			Value(&forgeURL).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("URL is required for Forgejo")
				}
				return nil
			}).
			Run()
		if err != nil {
			return err
		}

		cfg.ForgeURL = forgeURL

		fmt.Println("\nNote: Set FORGEJO_TOKEN environment variable:")
		fmt.Println("  export FORGEJO_TOKEN=<your-token>")
		fmt.Println("\nRequired token scopes for Forgejo/Gitea:")
		fmt.Println("  - repository:read (to list pull requests and labels)")
	case "github":
		fmt.Println("\nNote: Set GITHUB_TOKEN environment variable:")
		fmt.Println("  export GITHUB_TOKEN=<your-token>")
		fmt.Println("\nRequired token scopes for GitHub:")
		fmt.Println("  - repo (for private repositories)")
		fmt.Println("  - none for public repositories, the token only raises the rate limit")
	}

	var baseBranch, releaseBranch, remote string
	var autoPush bool
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Base branch (where pull requests are merged):").
				Placeholder(cfg.BaseBranch).
				Value(&baseBranch),
			huh.NewInput().
				Title("Release branch:").
				Placeholder(cfg.ReleaseBranch).
				Value(&releaseBranch),
			huh.NewInput().
				Title("Git remote name:").
				Placeholder(cfg.Remote).
				Value(&remote),
			huh.NewConfirm().
				Title("Push releases automatically?").
				Affirmative("Yes").
				Negative("No").
				Value(&autoPush),
		),
	).Run()
	if err != nil {
		return err
	}

	if baseBranch != "" {
		cfg.BaseBranch = baseBranch
	}
	if releaseBranch != "" {
		cfg.ReleaseBranch = releaseBranch
	}
	if remote != "" {
		cfg.Remote = remote
	}
	cfg.AutoPush = &autoPush

	var excluded string
	err = huh.NewInput().
		Title("Labels excluding a pull request from the changelog (comma separated):").
		Placeholder(strings.Join(cfg.ExcludedPRTags, ",")).
		Value(&excluded).
		Run()
	if err != nil {
		return err
	}
	if excluded != "" {
		cfg.ExcludedPRTags = splitList(excluded)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Select config file location.
	var configLocation string
	err = huh.NewSelect[string]().
		Title("Where should the config file be saved?").
		Options(
			huh.NewOption("Repository ("+config.RepoConfigPath()+")", "repo"),
			huh.NewOption("Global (~/.config/githubflow-release/config.yaml)", "global"),
		).
		Value(&configLocation).
		Run()
	if err != nil {
		return err
	}

	var configPath string
	if configLocation == "global" {
		configPath = config.GlobalConfigPath()
	} else {
		configPath = filepath.Join(projectPath, config.RepoConfigPath())
	}

	if err := cfg.SaveToFile(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to: %s\n", configPath)

	return nil
}

// ShouldPromptForConfig checks if we should prompt user to create config.
func ShouldPromptForConfig(projectPath string) bool {
	globalPath := config.GlobalConfigPath()
	repoPath := filepath.Join(projectPath, config.RepoConfigPath())

	_, errGlobal := os.Stat(globalPath)
	_, errRepo := os.Stat(repoPath)

	// If no config files exist at all, prompt.
	return os.IsNotExist(errGlobal) && os.IsNotExist(errRepo)
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
