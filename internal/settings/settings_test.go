package settings

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/mastofeed/internal/storage"
)

func setupTestManager(t *testing.T) (*Manager, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewManager(store, Defaults()), store
}

func TestDefaults(t *testing.T) {
	d := Defaults()

	assert.Equal(t, "mastodon.social", d.DefaultInstance)
	assert.Equal(t, 10, d.Limit)
	assert.Equal(t, time.Hour, d.CacheTTL())
	assert.Equal(t, 5*time.Second, d.Timeout())
	assert.Equal(t, "_blank", d.LinkTarget)
	assert.True(t, d.ShowPreviewCards)
	assert.True(t, d.ShowPostAuthor)
	assert.True(t, d.ShowDateTime)
	assert.Equal(t, "Y-m-d h:i a", d.DateTimeFormat)
	assert.Equal(t, "rgba(219,219,219,0.8)", d.Style.BackgroundColor)
	assert.Equal(t, "#6364FF", d.Style.AccentColor)
	assert.Equal(t, "boosted 🚀", d.Text.Boosted)
	assert.Equal(t, "(edited)", d.Text.Edited)

	assert.Equal(t, d, d.Sanitize(), "defaults must survive sanitizing unchanged")
}

func TestSanitize(t *testing.T) {
	s := Defaults()
	s.DefaultInstance = "https://fosstodon.org/about"
	s.Limit = -4
	s.CacheInterval = 0
	s.HTTPTimeout = -1
	s.Tagged = "##photography"
	s.LinkTarget = "_new"
	s.Timezone = "Mars/Olympus"
	s.Style.BackgroundColor = "red; background: url(evil)"
	s.Style.FontColor = "TRANSPARENT"
	s.Style.AccentColor = "#abc"
	s.Style.BorderRadius = "1px solid"
	s.Text.NoPosts = "  <b>Nothing</b>\n here  "

	out := s.Sanitize()

	assert.Equal(t, "fosstodon.org", out.DefaultInstance)
	assert.Equal(t, 0, out.Limit)
	assert.Equal(t, DefaultCacheInterval, out.CacheInterval)
	assert.Equal(t, DefaultHTTPTimeout, out.HTTPTimeout)
	assert.Equal(t, "photography", out.Tagged)
	assert.Equal(t, "_blank", out.LinkTarget)
	assert.Equal(t, "UTC", out.Timezone)
	assert.Equal(t, "", out.Style.BackgroundColor)
	assert.Equal(t, "transparent", out.Style.FontColor)
	assert.Equal(t, "#abc", out.Style.AccentColor)
	assert.Equal(t, "0.25rem", out.Style.BorderRadius)
	assert.Equal(t, "Nothing here", out.Text.NoPosts)
}

func TestLocation(t *testing.T) {
	s := Defaults()
	assert.Equal(t, time.UTC, s.Location())

	s.Timezone = "Europe/Berlin"
	assert.Equal(t, "Europe/Berlin", s.Location().String())
}

func TestManager_GetReturnsDefaults(t *testing.T) {
	m, _ := setupTestManager(t)

	got, err := m.Get()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestManager_UpdatePartial(t *testing.T) {
	m, _ := setupTestManager(t)

	updated, err := m.Update([]byte(`{"limit": 3, "style": {"accent_color": "#123456"}, "text": {"boosted": "reposted"}}`))
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Limit)
	assert.Equal(t, "#123456", updated.Style.AccentColor)
	assert.Equal(t, "#000000", updated.Style.FontColor, "untouched nested fields keep their values")
	assert.Equal(t, "reposted", updated.Text.Boosted)
	assert.Equal(t, "Show content", updated.Text.ShowContent)

	got, err := m.Get()
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestManager_UpdateInvalidJSON(t *testing.T) {
	m, _ := setupTestManager(t)

	_, err := m.Update([]byte(`{"limit": `))
	assert.ErrorIs(t, err, ErrInvalidPatch)

	got, err := m.Get()
	require.NoError(t, err)
	assert.Equal(t, 10, got.Limit)
}

func TestManager_Reset(t *testing.T) {
	m, _ := setupTestManager(t)

	_, err := m.Update([]byte(`{"show_preview_cards": false, "link_target": "_self"}`))
	require.NoError(t, err)

	reset, err := m.Reset()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), reset)

	got, err := m.Get()
	require.NoError(t, err)
	assert.True(t, got.ShowPreviewCards)
	assert.Equal(t, "_blank", got.LinkTarget)
}

func TestManager_CorruptStoredSettings(t *testing.T) {
	m, store := setupTestManager(t)
	require.NoError(t, store.PutOption(OptionKey, []byte("not json")))

	got, err := m.Get()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestManager_CustomDefaults(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer store.Close()

	defaults := Defaults()
	defaults.DefaultInstance = "hachyderm.io"
	m := NewManager(store, defaults)

	got, err := m.Get()
	require.NoError(t, err)
	assert.Equal(t, "hachyderm.io", got.DefaultInstance)
}
