package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/mastofeed/internal/settings"
)

const statusesFixture = `[{
	"id": "1",
	"url": "https://mastodon.social/@alice/1",
	"created_at": "2025-01-01T12:00:00.000Z",
	"account": {"id": "42", "username": "alice", "acct": "alice", "display_name": "Alice", "url": "https://mastodon.social/@alice"},
	"content": "<p>hello from the terminal</p>",
	"sensitive": false,
	"spoiler_text": "",
	"media_attachments": [],
	"emojis": []
}]`

type rewriteTransport struct {
	target *url.URL
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	out.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

// testCLI returns a cli with its own config file and database, sending
// every Mastodon request to handler.
func testCLI(t *testing.T, handler http.HandlerFunc) (*cli, string) {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[database]\npath = %q\n\n[log]\nlevel = \"OFF\"\n", filepath.Join(dir, "feeds.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	c := &cli{}
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		target, err := url.Parse(srv.URL)
		require.NoError(t, err)
		c.httpClient = &http.Client{Transport: &rewriteTransport{target: target}}
	}
	return c, cfgPath
}

func run(t *testing.T, c *cli, args ...string) (string, error) {
	t.Helper()
	cmd := c.rootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	// Failed commands skip the post-run hook.
	require.NoError(t, c.close())
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, &cli{}, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "mastofeed dev")
	assert.Contains(t, out, "Mastodon feed renderer")
	assert.Contains(t, out, "github.com/pders01/mastofeed")
}

func TestGenerateConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := run(t, &cli{}, "generate-config", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[server]")
	assert.Contains(t, string(data), "default_instance")
}

func TestFetchCommand(t *testing.T) {
	var hits atomic.Int32
	var lastQuery url.Values
	c, cfg := testCLI(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		lastQuery = r.URL.Query()
		assert.Equal(t, "/api/v1/accounts/42/statuses", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, statusesFixture)
	})

	out, err := run(t, c, "--config", cfg, "fetch", "--account", "42", "--limit", "3", "--exclude-replies")
	require.NoError(t, err)
	assert.Contains(t, out, `class="mastodon-feed"`)
	assert.Contains(t, out, "hello from the terminal")
	assert.Equal(t, "3", lastQuery.Get("limit"))
	assert.Equal(t, "true", lastQuery.Get("exclude_replies"))

	// Same query again is served from the cache.
	_, err = run(t, c, "--config", cfg, "fetch", "--account", "42", "--limit", "3", "--exclude-replies")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	out, err = run(t, c, "--config", cfg, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 cached feed(s)")

	_, err = run(t, c, "--config", cfg, "fetch", "--account", "42", "--limit", "3", "--exclude-replies")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchCommand_Head(t *testing.T) {
	c, cfg := testCLI(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statusesFixture)
	})

	out, err := run(t, c, "--config", cfg, "fetch", "--tag", "#golang", "--head")
	require.NoError(t, err)
	assert.Contains(t, out, "<style")
	assert.Contains(t, out, "<script")
	assert.Contains(t, out, "hello from the terminal")
}

func TestFetchCommand_Preview(t *testing.T) {
	c, cfg := testCLI(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statusesFixture)
	})

	out, err := run(t, c, "--config", cfg, "fetch", "--account", "42", "--preview", "--width", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "terminal")
	assert.NotContains(t, out, "<p>")
}

func TestFetchCommand_Errors(t *testing.T) {
	c, cfg := testCLI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := run(t, c, "--config", cfg, "fetch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--account or --tag")

	_, err = run(t, c, "--config", cfg, "fetch", "--account", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP status 404")
}

func TestLookupCommand(t *testing.T) {
	c, cfg := testCLI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/accounts/lookup", r.URL.Path)
		assert.Equal(t, "alice@mastodon.social", r.URL.Query().Get("acct"))
		fmt.Fprint(w, `{"id": "109", "username": "alice", "acct": "alice", "display_name": "Alice", "url": "https://mastodon.social/@alice"}`)
	})

	out, err := run(t, c, "--config", cfg, "lookup", "@alice@mastodon.social")
	require.NoError(t, err)
	assert.Contains(t, out, "109")
	assert.Contains(t, out, `[mastodon-feed instance="mastodon.social" account="109"]`)

	out, err = run(t, c, "--config", cfg, "lookup", "--json", "alice@mastodon.social")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "109", info["account_id"])
	assert.Equal(t, "mastodon.social", info["instance"])
}

func TestLookupCommand_InvalidHandle(t *testing.T) {
	c, cfg := testCLI(t, nil)

	_, err := run(t, c, "--config", cfg, "lookup", "not-a-handle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_handle")
}

func TestSettingsCommands(t *testing.T) {
	c, cfg := testCLI(t, nil)

	out, err := run(t, c, "--config", cfg, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "default_instance = 'mastodon.social'")
	assert.Contains(t, out, "limit = 10")

	_, err = run(t, c, "--config", cfg, "settings", "set", `{"limit": 4}`)
	require.NoError(t, err)

	out, err = run(t, c, "--config", cfg, "settings", "show", "--json")
	require.NoError(t, err)
	var s settings.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 4, s.Limit)

	_, err = run(t, c, "--config", cfg, "settings", "set", `{"limit":`)
	assert.Error(t, err)

	out, err = run(t, c, "--config", cfg, "settings", "reset")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "reset"))

	out, err = run(t, c, "--config", cfg, "settings", "show", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 10, s.Limit)
}

func TestCachePurge(t *testing.T) {
	c, cfg := testCLI(t, nil)

	out, err := run(t, c, "--config", cfg, "cache", "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 0 expired entries")
}

func TestDBFlagOverridesConfig(t *testing.T) {
	c, cfg := testCLI(t, nil)
	dbPath := filepath.Join(t.TempDir(), "override", "other.db")

	_, err := run(t, c, "--config", cfg, "--db", dbPath, "cache", "clear")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}
