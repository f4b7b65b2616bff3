package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewApp(t *testing.T) {
	app := newApp()

	assert.Equal(t, "githubflow-release", app.Name)

	names := make([]string, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"release", "next-version", "init"}, names)
}

func TestReleaseFlags(t *testing.T) {
	app := newApp()

	var flags []string
	for _, cmd := range app.Commands {
		if cmd.Name != "release" {
			continue
		}
		for _, f := range cmd.Flags {
			flags = append(flags, f.Names()[0])
		}
	}

	for _, want := range []string{
		"release-type", "github-repo", "base-branch", "release-branch",
		"excluded-pr-tag", "hotfix-pr-id", "dry-run", "push",
	} {
		assert.Contains(t, flags, want)
	}
}
