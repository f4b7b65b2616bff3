// Package internal provides CLI internal utilities.
package internal

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	cliconfig "codefloe.com/pat-s/githubflow-release/cli/internal/config"
	"codefloe.com/pat-s/githubflow-release/pkg/changelog"
	"codefloe.com/pat-s/githubflow-release/pkg/config"
	"codefloe.com/pat-s/githubflow-release/pkg/forge"
	"codefloe.com/pat-s/githubflow-release/pkg/git"
	"codefloe.com/pat-s/githubflow-release/pkg/release"
	"codefloe.com/pat-s/githubflow-release/pkg/versioning"
)

// Env is what every command working on a repository needs.
type Env struct {
	Config *config.Config
	Repo   *git.Repository
	Owner  string
	Name   string
}

// NewEnv loads the configuration, opens the repository at --project-path and
// resolves its owner/name from --github-repo, the config or the remote URL.
func NewEnv(c *cli.Command) (*Env, error) {
	cfg, err := cliconfig.Load(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	repo, err := git.Open(c.String("project-path"))
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	owner, name, err := resolveRepository(c, cfg, repo)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("owner", owner).Str("repo", name).Msg("resolved repository")

	return &Env{Config: cfg, Repo: repo, Owner: owner, Name: name}, nil
}

func resolveRepository(c *cli.Command, cfg *config.Config, repo *git.Repository) (owner, name string, err error) {
	if id := cliconfig.String(c, "github-repo", cfg.GitHubRepo); id != "" {
		return forge.ParseRepository(id)
	}

	remote := c.String("remote")
	remoteURL, err := repo.RemoteURL(remote)
	if err != nil {
		return "", "", fmt.Errorf("failed to get remote URL (set --github-repo): %w", err)
	}

	owner, name, err = git.ParseRemoteURL(remoteURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse remote URL (set --github-repo): %w", err)
	}
	return owner, name, nil
}

// Credentials returns the forge credentials from flags and environment.
func (e *Env) Credentials(c *cli.Command) forge.Credentials {
	creds := forge.Credentials{
		User:  c.String("github-user"),
		Token: c.String("github-token"),
	}
	if creds.Token == "" && e.Config.ForgeType == "forgejo" {
		creds.Token = os.Getenv("FORGEJO_TOKEN")
	}
	if creds.IsZero() {
		log.Debug().Msg("no forge credentials, API calls are anonymous")
	}
	return creds
}

// Forge creates the forge client for the configured forge type.
func (e *Env) Forge(c *cli.Command) (forge.Forge, error) {
	f, err := forge.NewWithOptions(e.Config.ForgeType, forge.NewOptions{
		BaseURL:     e.Config.ForgeURL,
		Credentials: e.Credentials(c),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create forge client: %w", err)
	}
	log.Debug().Str("forge", f.Name()).Msg("forge client created")
	return f, nil
}

// ReleaseContext builds the release context from flags, falling back to the config.
func (e *Env) ReleaseContext(c *cli.Command, kind versioning.Kind) (release.Context, error) {
	cfg := e.Config

	hotfixPRs, err := parseIDs(c.StringSlice("hotfix-pr-id"))
	if err != nil {
		return release.Context{}, err
	}

	tmpl, err := changelog.TemplateFromFormats(cfg.Changelog.Header, cfg.Changelog.Line, cfg.Changelog.Footer)
	if err != nil {
		return release.Context{}, err
	}

	tagPrefix := cfg.TagPrefix
	if c.IsSet("tag-prefix") {
		tagPrefix = c.String("tag-prefix")
	}

	var renderers []changelog.FileRenderer
	if cliconfig.Bool(c, "debian-changelog", cfg.DebianEnabled()) {
		renderers = append(renderers, changelog.Debian{
			Maintainer:   cfg.Debian.Maintainer,
			Distribution: cfg.Debian.Distribution,
			Urgency:      cfg.Debian.Urgency,
		})
	}

	rc := release.Context{
		Remote:         c.String("remote"),
		Kind:           kind,
		BaseBranch:     cliconfig.String(c, "base-branch", cfg.BaseBranch),
		ReleaseBranch:  cliconfig.String(c, "release-branch", cfg.ReleaseBranch),
		Owner:          e.Owner,
		Repo:           e.Name,
		Credentials:    e.Credentials(c),
		ExcludedLabels: cliconfig.StringSlice(c, "excluded-pr-tag", cfg.ExcludedPRTags),
		HotfixPRs:      hotfixPRs,
		DryRun:         c.Bool("dry-run"),
		AutoPush:       cliconfig.Bool(c, "push", cfg.AutoPushEnabled()),
		TagPrefix:      tagPrefix,
		Template:       tmpl,
		Renderers:      renderers,
	}

	return rc, rc.Validate()
}

// ReleaseKind returns the release kind from --release-type, or the config default.
func (e *Env) ReleaseKind(c *cli.Command) (versioning.Kind, error) {
	raw := cliconfig.String(c, "release-type", e.Config.ReleaseType)
	if raw == "" {
		return "", fmt.Errorf("--release-type is required (major, minor or hotfix)")
	}
	return versioning.ParseKind(raw)
}

func parseIDs(values []string) ([]int, error) {
	ids := make([]int, 0, len(values))
	for _, v := range values {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid pull request id: %s", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
