package changelog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// FileRenderer writes release files into the working tree before they are
// committed on the release branch.
type FileRenderer interface {
	// Name identifies the renderer in logs.
	Name() string

	// Render updates files under root and returns their paths relative to root.
	Render(root string, cl Changelog) ([]string, error)
}

// DebianChangelogPath is the path of the Debian changelog relative to the repository root.
const DebianChangelogPath = "debian/changelog"

var (
	debianHeaderPattern  = regexp.MustCompile(`^([a-z0-9][a-z0-9+.-]+) \(`)
	debianTrailerPattern = regexp.MustCompile(`^ -- (.+?)  `)
)

// Debian prepends an entry for the new version to debian/changelog.
type Debian struct {
	// Maintainer is "Name <email>". Empty reuses the maintainer of the latest entry.
	Maintainer string
	// Distribution defaults to "unstable".
	Distribution string
	// Urgency defaults to "low".
	Urgency string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Name returns the name of the renderer.
func (d Debian) Name() string {
	return "debian"
}

// Render prepends the new entry to debian/changelog.
func (d Debian) Render(root string, cl Changelog) ([]string, error) {
	path := filepath.Join(root, DebianChangelogPath)

	previous, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DebianChangelogPath, err)
	}

	pkg, maintainer := parseDebianChangelog(previous)
	if pkg == "" {
		return nil, fmt.Errorf("cannot find the package name in %s", DebianChangelogPath)
	}
	if d.Maintainer != "" {
		maintainer = d.Maintainer
	}
	if maintainer == "" {
		return nil, fmt.Errorf("no maintainer configured and none found in %s", DebianChangelogPath)
	}

	entry := d.entry(pkg, maintainer, cl)
	if err := os.WriteFile(path, append([]byte(entry), previous...), 0o644); err != nil { //nolint:gosec
		return nil, fmt.Errorf("failed to write %s: %w", DebianChangelogPath, err)
	}

	return []string{DebianChangelogPath}, nil
}

func (d Debian) entry(pkg, maintainer string, cl Changelog) string {
	distribution := d.Distribution
	if distribution == "" {
		distribution = "unstable"
	}
	urgency := d.Urgency
	if urgency == "" {
		urgency = "low"
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s) %s; urgency=%s\n\n", pkg, cl.Version, distribution, urgency)
	for _, pr := range cl.PullRequests {
		fmt.Fprintf(&sb, "  * %s <%s>\n", pr.Title, pr.URL)
	}
	fmt.Fprintf(&sb, "\n -- %s  %s\n\n", maintainer, now().Format(time.RFC1123Z))

	return sb.String()
}

// parseDebianChangelog returns the package name of the first entry and the
// maintainer of its trailer line.
func parseDebianChangelog(content []byte) (pkg, maintainer string) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if pkg == "" {
			if m := debianHeaderPattern.FindStringSubmatch(line); m != nil {
				pkg = m[1]
			}
			continue
		}
		if m := debianTrailerPattern.FindStringSubmatch(line); m != nil {
			return pkg, m[1]
		}
	}
	return pkg, ""
}
