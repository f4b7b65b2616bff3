// Package changelog renders release notes from merged pull requests.
package changelog

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/semver/v3"

	"codefloe.com/pat-s/githubflow-release/pkg/forge"
)

// Changelog is the set of pull requests shipped by a version, newest first.
type Changelog struct {
	Version      *semver.Version
	PullRequests []*forge.PRInfo
}

// Template formats the three parts of a changelog. Each function must be pure.
type Template struct {
	Header func(v *semver.Version) string
	Line   func(pr *forge.PRInfo) string
	Footer func(v *semver.Version) string
}

// DefaultTemplate renders:
//
//	Version 1.3.0
//
//	 * Fix crash on startup <https://github.com/owner/repo/pull/42>
var DefaultTemplate = Template{
	Header: func(v *semver.Version) string {
		return fmt.Sprintf("Version %s\n\n", v)
	},
	Line: func(pr *forge.PRInfo) string {
		return fmt.Sprintf(" * %s <%s>\n", pr.Title, pr.URL)
	},
	Footer: func(*semver.Version) string {
		return ""
	},
}

// Render renders the changelog with tmpl. Zero pull requests yield the header and
// footer only.
func Render(tmpl Template, version *semver.Version, prs []*forge.PRInfo) string {
	var sb strings.Builder

	sb.WriteString(tmpl.Header(version))
	for _, pr := range prs {
		sb.WriteString(tmpl.Line(pr))
	}
	sb.WriteString(tmpl.Footer(version))

	return sb.String()
}

// Text renders the changelog with tmpl.
func (c Changelog) Text(tmpl Template) string {
	return Render(tmpl, c.Version, c.PullRequests)
}

// versionData is what header and footer formats can reference as {{.Version}}.
type versionData struct {
	Version string
}

// TemplateFromFormats builds a Template from text/template formats. Header and
// footer see {{.Version}}, lines see the pull request ({{.Title}}, {{.URL}},
// {{.Number}}, {{.Author}}). An empty format keeps the default for that part.
func TemplateFromFormats(header, line, footer string) (Template, error) {
	tmpl := DefaultTemplate
	sample := forge.NewPRInfo(1, "title", "https://example.com/1", "", nil)

	if header != "" {
		t, err := parse("header", header, versionData{Version: "1.0.0"})
		if err != nil {
			return Template{}, err
		}
		tmpl.Header = func(v *semver.Version) string {
			return execute(t, versionData{Version: v.String()})
		}
	}

	if line != "" {
		t, err := parse("line", line, sample)
		if err != nil {
			return Template{}, err
		}
		tmpl.Line = func(pr *forge.PRInfo) string {
			return execute(t, pr)
		}
	}

	if footer != "" {
		t, err := parse("footer", footer, versionData{Version: "1.0.0"})
		if err != nil {
			return Template{}, err
		}
		tmpl.Footer = func(v *semver.Version) string {
			return execute(t, versionData{Version: v.String()})
		}
	}

	return tmpl, nil
}

// parse parses a format and checks it executes against sample data, so that
// rendering can no longer fail later on.
func parse(name, format string, sample any) (*template.Template, error) {
	t, err := template.New(name).Parse(format)
	if err != nil {
		return nil, fmt.Errorf("invalid changelog %s format: %w", name, err)
	}

	if err := t.Execute(&bytes.Buffer{}, sample); err != nil {
		return nil, fmt.Errorf("invalid changelog %s format: %w", name, err)
	}

	return t, nil
}

func execute(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}
