package changelog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefloe.com/pat-s/githubflow-release/pkg/forge"
)

func pr(number int, title string) *forge.PRInfo {
	return forge.NewPRInfo(number, title, "https://github.com/owner/repo/pull/"+strconv.Itoa(number), "sha", &time.Time{})
}

func TestRenderDefault(t *testing.T) {
	v := semver.MustParse("1.3.0")
	text := Render(DefaultTemplate, v, []*forge.PRInfo{pr(2, "Add feature"), pr(1, "Fix crash")})

	expected := "Version 1.3.0\n\n" +
		" * Add feature <https://github.com/owner/repo/pull/2>\n" +
		" * Fix crash <https://github.com/owner/repo/pull/1>\n"
	assert.Equal(t, expected, text)
}

func TestRenderEmpty(t *testing.T) {
	tmpl := DefaultTemplate
	tmpl.Footer = func(v *semver.Version) string { return "-- end of " + v.String() }

	text := Render(tmpl, semver.MustParse("0.1.0"), nil)
	assert.Equal(t, "Version 0.1.0\n\n-- end of 0.1.0", text)
}

func TestRenderOrderOnlyAffectsBody(t *testing.T) {
	tmpl := DefaultTemplate
	tmpl.Footer = func(*semver.Version) string { return "footer\n" }
	v := semver.MustParse("2.0.0")

	a, b, c := pr(1, "one"), pr(2, "two"), pr(3, "three")
	forward := Render(tmpl, v, []*forge.PRInfo{a, b, c})
	reversed := Render(tmpl, v, []*forge.PRInfo{c, b, a})

	assert.NotEqual(t, forward, reversed)

	header := tmpl.Header(v)
	assert.True(t, strings.HasPrefix(forward, header))
	assert.True(t, strings.HasPrefix(reversed, header))
	assert.True(t, strings.HasSuffix(forward, "footer\n"))
	assert.True(t, strings.HasSuffix(reversed, "footer\n"))

	body := func(s string) []string {
		return strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, header), "footer\n"), "\n")
	}
	fwd, rev := body(forward), body(reversed)
	assert.ElementsMatch(t, fwd, rev)
	assert.Equal(t, fwd[0], rev[2])
}

func TestChangelogText(t *testing.T) {
	cl := Changelog{Version: semver.MustParse("1.0.0"), PullRequests: []*forge.PRInfo{pr(4, "Four")}}
	assert.Equal(t, Render(DefaultTemplate, cl.Version, cl.PullRequests), cl.Text(DefaultTemplate))
}

func TestTemplateFromFormats(t *testing.T) {
	tmpl, err := TemplateFromFormats(
		"## {{.Version}}\n",
		"- #{{.Number}} {{.Title}} ({{.URL}})\n",
		"\nReleased {{.Version}}\n",
	)
	require.NoError(t, err)

	text := Render(tmpl, semver.MustParse("1.2.0"), []*forge.PRInfo{pr(7, "Seven")})
	assert.Equal(t, "## 1.2.0\n- #7 Seven (https://github.com/owner/repo/pull/7)\n\nReleased 1.2.0\n", text)
}

func TestTemplateFromFormatsKeepsDefaults(t *testing.T) {
	tmpl, err := TemplateFromFormats("", "", "")
	require.NoError(t, err)

	v := semver.MustParse("1.0.0")
	prs := []*forge.PRInfo{pr(1, "One")}
	assert.Equal(t, Render(DefaultTemplate, v, prs), Render(tmpl, v, prs))
}

func TestTemplateFromFormatsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		header string
		line   string
	}{
		{name: "unparsable", header: "{{.Version"},
		{name: "unknown field", line: "{{.Nope}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TemplateFromFormats(tt.header, tt.line, "")
			assert.Error(t, err)
		})
	}
}

func TestDebianRender(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "debian"), 0o755))
	previous := "navitia (1.2.0) unstable; urgency=low\n\n  * Old <https://example.com/0>\n\n" +
		" -- Jane Doe <jane@example.com>  Mon, 01 Jan 2024 10:00:00 +0000\n\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, DebianChangelogPath), []byte(previous), 0o644))

	d := Debian{Now: func() time.Time { return time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC) }}
	cl := Changelog{Version: semver.MustParse("1.3.0"), PullRequests: []*forge.PRInfo{pr(5, "New thing")}}

	paths, err := d.Render(root, cl)
	require.NoError(t, err)
	assert.Equal(t, []string{DebianChangelogPath}, paths)

	content, err := os.ReadFile(filepath.Join(root, DebianChangelogPath))
	require.NoError(t, err)

	expected := "navitia (1.3.0) unstable; urgency=low\n\n" +
		"  * New thing <https://github.com/owner/repo/pull/5>\n\n" +
		" -- Jane Doe <jane@example.com>  Mon, 03 Jun 2024 12:00:00 +0000\n\n" + previous
	assert.Equal(t, expected, string(content))
	assert.Equal(t, "debian", d.Name())
}

func TestDebianRenderMissingFile(t *testing.T) {
	_, err := Debian{}.Render(t.TempDir(), Changelog{Version: semver.MustParse("1.0.0")})
	assert.Error(t, err)
}

func TestDebianRenderNeedsMaintainer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "debian"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, DebianChangelogPath), []byte("pkg (0.1.0) unstable; urgency=low\n"), 0o644))

	_, err := Debian{}.Render(root, Changelog{Version: semver.MustParse("0.2.0")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maintainer")

	_, err = Debian{Maintainer: "Bot <bot@example.com>"}.Render(root, Changelog{Version: semver.MustParse("0.2.0")})
	assert.NoError(t, err)
}
