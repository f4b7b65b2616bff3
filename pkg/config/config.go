// Package config provides configuration management for githubflow-release.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"codefloe.com/pat-s/githubflow-release/pkg/versioning"
)

// Config represents the githubflow-release defaults file.
type Config struct {
	// Forge type: "github" or "forgejo".
	ForgeType string `yaml:"forge_type"`

	// API base URL: GitHub Enterprise API root, or the Forgejo/Gitea instance URL.
	ForgeURL string `yaml:"forge_url,omitempty"`

	// Repository as owner/name. Derived from the remote URL when empty.
	GitHubRepo string `yaml:"github_repo,omitempty"`

	// Remote name.
	Remote string `yaml:"remote"`

	// Branch pull requests are merged into.
	BaseBranch string `yaml:"base_branch"`

	// Branch holding released versions.
	ReleaseBranch string `yaml:"release_branch"`

	// Default release type when --release-type is not given.
	ReleaseType string `yaml:"release_type,omitempty"`

	// Prefix of release tags.
	TagPrefix string `yaml:"tag_prefix"`

	// Pull requests carrying one of these labels are left out of the changelog.
	ExcludedPRTags []string `yaml:"excluded_pr_tags"`

	// Push the release when done instead of printing the push command.
	AutoPush *bool `yaml:"auto_push,omitempty"`

	// Changelog formats.
	Changelog ChangelogConfig `yaml:"changelog"`

	// Debian changelog settings.
	Debian DebianConfig `yaml:"debian"`
}

// ChangelogConfig holds text/template formats for the changelog. Empty formats
// use the built-in ones.
type ChangelogConfig struct {
	// Header format, e.g. "Version {{.Version}}\n\n".
	Header string `yaml:"header,omitempty"`

	// Line format for each pull request, e.g. " * {{.Title}} <{{.URL}}>\n".
	Line string `yaml:"line,omitempty"`

	// Footer format.
	Footer string `yaml:"footer,omitempty"`
}

// DebianConfig holds debian/changelog settings.
type DebianConfig struct {
	// Update debian/changelog on release.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Maintainer as "Name <email>". Defaults to the maintainer of the latest entry.
	Maintainer string `yaml:"maintainer,omitempty"`

	// Distribution. Default: "unstable"
	Distribution string `yaml:"distribution,omitempty"`

	// Urgency. Default: "low"
	Urgency string `yaml:"urgency,omitempty"`
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ForgeType:      "",
		Remote:         "origin",
		BaseBranch:     "master",
		ReleaseBranch:  "release",
		TagPrefix:      "v",
		ExcludedPRTags: []string{"hotfix", "not_in_changelog"},
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Merge merges another config into this one. Values from other take precedence if set.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.ForgeType != "" {
		c.ForgeType = other.ForgeType
	}
	if other.ForgeURL != "" {
		c.ForgeURL = other.ForgeURL
	}
	if other.GitHubRepo != "" {
		c.GitHubRepo = other.GitHubRepo
	}
	if other.Remote != "" {
		c.Remote = other.Remote
	}
	if other.BaseBranch != "" {
		c.BaseBranch = other.BaseBranch
	}
	if other.ReleaseBranch != "" {
		c.ReleaseBranch = other.ReleaseBranch
	}
	if other.ReleaseType != "" {
		c.ReleaseType = other.ReleaseType
	}
	if other.TagPrefix != "" {
		c.TagPrefix = other.TagPrefix
	}
	// An explicit empty list clears the exclusions.
	if other.ExcludedPRTags != nil {
		c.ExcludedPRTags = other.ExcludedPRTags
	}
	if other.AutoPush != nil {
		c.AutoPush = other.AutoPush
	}

	if other.Changelog.Header != "" {
		c.Changelog.Header = other.Changelog.Header
	}
	if other.Changelog.Line != "" {
		c.Changelog.Line = other.Changelog.Line
	}
	if other.Changelog.Footer != "" {
		c.Changelog.Footer = other.Changelog.Footer
	}

	if other.Debian.Enabled != nil {
		c.Debian.Enabled = other.Debian.Enabled
	}
	if other.Debian.Maintainer != "" {
		c.Debian.Maintainer = other.Debian.Maintainer
	}
	if other.Debian.Distribution != "" {
		c.Debian.Distribution = other.Debian.Distribution
	}
	if other.Debian.Urgency != "" {
		c.Debian.Urgency = other.Debian.Urgency
	}
}

// AutoPushEnabled reports whether auto_push is set to true.
func (c *Config) AutoPushEnabled() bool {
	return c.AutoPush != nil && *c.AutoPush
}

// DebianEnabled reports whether debian.enabled is set to true.
func (c *Config) DebianEnabled() bool {
	return c.Debian.Enabled != nil && *c.Debian.Enabled
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "githubflow-release", "config.yaml")
}

// RepoConfigPath returns the path to the repo-local config file.
func RepoConfigPath() string {
	return "gitflow_release.yml"
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ForgeType != "" && c.ForgeType != "github" && c.ForgeType != "forgejo" {
		return fmt.Errorf("invalid forge_type: %s (must be 'github' or 'forgejo')", c.ForgeType)
	}
	if c.ReleaseType != "" {
		if _, err := versioning.ParseKind(c.ReleaseType); err != nil {
			return fmt.Errorf("invalid release_type: %w", err)
		}
	}
	if c.BaseBranch != "" && c.BaseBranch == c.ReleaseBranch {
		return fmt.Errorf("base_branch and release_branch must differ (both are %q)", c.BaseBranch)
	}
	return nil
}

// SaveToFile saves the configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
