package forge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForgejoName(t *testing.T) {
	fg := NewForgejo("https://codeberg.org", Credentials{Token: "test-token"})
	assert.Equal(t, "forgejo", fg.Name())
}

func newForgejoTestServer(t *testing.T, creds Credentials) (*Forgejo, *http.ServeMux) {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewForgejo(server.URL+"/", creds), mux
}

func TestForgejoListClosedPRs(t *testing.T) {
	fg, mux := newForgejoTestServer(t, Credentials{Token: "secret"})

	mux.HandleFunc("/api/v1/repos/owner/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token secret", r.Header.Get("Authorization"))
		assert.Equal(t, "closed", r.URL.Query().Get("state"))
		assert.Equal(t, "recentupdate", r.URL.Query().Get("sort"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))

		fmt.Fprint(w, `[
			{"number": 3, "title": "To dev", "html_url": "https://codeberg.org/owner/repo/pulls/3",
			 "merged": true, "merged_at": "2024-05-01T10:00:00Z", "head": {"sha": "ddd"},
			 "base": {"ref": "dev"}, "labels": [{"name": "feature"}]},
			{"number": 2, "title": "To other", "merged": true, "base": {"ref": "other"}},
			{"number": 1, "title": "Closed", "merged": false, "base": {"ref": "dev"}}
		]`)
	})

	prs, next, err := fg.ListClosedPRs(context.Background(), "owner", "repo", ListOptions{Base: "dev"})
	require.NoError(t, err)
	assert.Zero(t, next)
	require.Len(t, prs, 2)

	assert.Equal(t, 3, prs[0].Number)
	assert.True(t, prs[0].Merged)
	assert.Equal(t, "ddd", prs[0].HeadSHA)

	labels, err := prs[0].Labels(context.Background(), fg, "owner", "repo")
	require.NoError(t, err)
	assert.Equal(t, []string{"feature"}, labels)

	assert.Equal(t, 1, prs[1].Number)
	assert.False(t, prs[1].Merged)
}

func TestForgejoListClosedPRsFullPage(t *testing.T) {
	fg, mux := newForgejoTestServer(t, Credentials{})

	mux.HandleFunc("/api/v1/repos/owner/repo/pulls", func(w http.ResponseWriter, _ *http.Request) {
		items := make([]string, forgejoPageSize)
		for i := range items {
			items[i] = fmt.Sprintf(`{"number": %d, "merged": false}`, i+1)
		}
		fmt.Fprint(w, "["+strings.Join(items, ",")+"]")
	})

	_, next, err := fg.ListClosedPRs(context.Background(), "owner", "repo", ListOptions{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func TestForgejoGetPRError(t *testing.T) {
	fg, mux := newForgejoTestServer(t, Credentials{})

	mux.HandleFunc("/api/v1/repos/owner/repo/pulls/9", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "pull request does not exist"}`)
	})

	_, err := fg.GetPR(context.Background(), "owner", "repo", 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get PR #9")
	assert.Contains(t, err.Error(), "pull request does not exist")
}

func TestForgejoListLabelsAndCommits(t *testing.T) {
	fg, mux := newForgejoTestServer(t, Credentials{User: "bot", Token: "secret"})

	mux.HandleFunc("/api/v1/repos/owner/repo/issues/5/labels", func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot", user)
		fmt.Fprint(w, `[{"name": "hotfix"}]`)
	})
	mux.HandleFunc("/api/v1/repos/owner/repo/pulls/5/commits", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"sha": "e1"}, {"sha": "e2"}]`)
	})

	labels, err := fg.ListLabels(context.Background(), "owner", "repo", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"hotfix"}, labels)

	shas, err := fg.ListCommits(context.Background(), "owner", "repo", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, shas)
}

func TestParseForgejoError(t *testing.T) {
	assert.Equal(t, "not found", parseForgejoError([]byte(`{"message": "not found"}`)))
	assert.Equal(t, "plain text", parseForgejoError([]byte("  plain text \n")))
}
