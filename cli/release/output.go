package release

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"codefloe.com/pat-s/githubflow-release/pkg/release"
)

var styles = struct {
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	command lipgloss.Style
}{
	success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
	failure: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	muted:   lipgloss.NewStyle().Faint(true),
	command: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
}

// printResult summarizes a successful run.
func printResult(result *release.Result, rc release.Context) {
	fmt.Println()

	switch result.State {
	case release.StateNothingToRelease:
		fmt.Println(styles.muted.Render("Nothing to release since " + previous(result)))
	case release.StateAbortedDryRun:
		fmt.Println(styles.muted.Render(fmt.Sprintf("Dry run: %s would follow %s with %d pull request(s)",
			result.Tag, previous(result), len(result.Changelog.PullRequests))))
	case release.StatePublished:
		fmt.Println(styles.success.Render(fmt.Sprintf("✓ Released %s", result.Tag)))
		fmt.Printf("  %d pull request(s), previous release %s\n", len(result.Changelog.PullRequests), previous(result))
		if !result.Pushed {
			fmt.Printf("  Not pushed yet: %s\n", styles.command.Render(rc.PushCommand()))
		}
	}

	fmt.Println()
}

func previous(result *release.Result) string {
	if result.PreviousTag == "" {
		return "the beginning"
	}
	return result.PreviousTag
}
