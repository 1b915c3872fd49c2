package feed

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/mastofeed/internal/mastodon"
	"github.com/pders01/mastofeed/internal/metrics"
	"github.com/pders01/mastofeed/internal/storage"
)

const twoPosts = `[{"id":"1","content":"<p>one</p>"},{"id":"2","content":"<p>two</p>"}]`

type fakeFetcher struct {
	calls int
	body  string
	err   error
}

func (f *fakeFetcher) Statuses(_ context.Context, q mastodon.FeedQuery) ([]byte, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func setupTestService(t *testing.T, fetcher *fakeFetcher) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(store, fetcher, metrics.New(prometheus.NewRegistry())), store
}

func TestGetPosts_CachesResult(t *testing.T) {
	fetcher := &fakeFetcher{body: twoPosts}
	svc, _ := setupTestService(t, fetcher)
	q := mastodon.FeedQuery{Instance: "mastodon.social", Account: "123", Limit: 5}

	posts, err := svc.GetPosts(context.Background(), q, time.Hour)
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	again, err := svc.GetPosts(context.Background(), q, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, posts, again)
	assert.Equal(t, 1, fetcher.calls, "second call should be served from cache")
}

func TestGetPosts_ExpiredEntryRefetches(t *testing.T) {
	fetcher := &fakeFetcher{body: twoPosts}
	svc, store := setupTestService(t, fetcher)
	q := mastodon.FeedQuery{Instance: "mastodon.social", Tag: "go"}

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	_, err := svc.GetPosts(context.Background(), q, time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.GetPosts(context.Background(), q, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestGetPosts_EmptyCachedArrayIsMiss(t *testing.T) {
	fetcher := &fakeFetcher{body: `[]`}
	svc, _ := setupTestService(t, fetcher)
	q := mastodon.FeedQuery{Instance: "mastodon.social", Account: "1"}

	for i := 0; i < 2; i++ {
		posts, err := svc.GetPosts(context.Background(), q, time.Hour)
		require.NoError(t, err)
		assert.Empty(t, posts)
	}
	assert.Equal(t, 2, fetcher.calls)
}

func TestGetPosts_ErrorIsNotCached(t *testing.T) {
	fetcher := &fakeFetcher{err: &mastodon.FetchError{Kind: mastodon.KindHTTPStatus, StatusCode: 404}}
	svc, store := setupTestService(t, fetcher)
	q := mastodon.FeedQuery{Instance: "mastodon.social", Account: "missing"}

	_, err := svc.GetPosts(context.Background(), q, time.Hour)
	var fetchErr *mastodon.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 404, fetchErr.StatusCode)

	_, ok, err := store.GetTransient(CacheKey(q))
	require.NoError(t, err)
	assert.False(t, ok, "failed fetch must not write a cache entry")
}

func TestGetPosts_MissingSourceMakesNoRequest(t *testing.T) {
	fetcher := &fakeFetcher{body: twoPosts}
	svc, _ := setupTestService(t, fetcher)

	_, err := svc.GetPosts(context.Background(), mastodon.FeedQuery{Instance: "mastodon.social", Limit: 5}, time.Hour)
	assert.ErrorIs(t, err, mastodon.ErrMissingSource)
	assert.Zero(t, fetcher.calls)
}

func TestCacheKey(t *testing.T) {
	base := mastodon.FeedQuery{Instance: "mastodon.social", Account: "1", Limit: 10}

	key := CacheKey(base)
	assert.Equal(t, key, CacheKey(base), "key must be deterministic")
	assert.Regexp(t, `^mastodon_feed_[0-9a-f]{32}$`, key)

	variants := []func(q *mastodon.FeedQuery){
		func(q *mastodon.FeedQuery) { q.Instance = "fosstodon.org" },
		func(q *mastodon.FeedQuery) { q.Account = "2" },
		func(q *mastodon.FeedQuery) { q.Tag = "go" },
		func(q *mastodon.FeedQuery) { q.Limit = 11 },
		func(q *mastodon.FeedQuery) { q.ExcludeBoosts = true },
		func(q *mastodon.FeedQuery) { q.ExcludeReplies = true },
		func(q *mastodon.FeedQuery) { q.OnlyPinned = true },
		func(q *mastodon.FeedQuery) { q.OnlyMedia = true },
		func(q *mastodon.FeedQuery) { q.Tagged = "go" },
	}

	seen := map[string]bool{key: true}
	for i, mutate := range variants {
		q := base
		mutate(&q)
		k := CacheKey(q)
		assert.False(t, seen[k], "variant %d collides", i)
		seen[k] = true
	}
}

func TestClearAndPurge(t *testing.T) {
	fetcher := &fakeFetcher{body: twoPosts}
	svc, store := setupTestService(t, fetcher)

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	_, err := svc.GetPosts(context.Background(), mastodon.FeedQuery{Instance: "a.social", Account: "1"}, time.Minute)
	require.NoError(t, err)
	_, err = svc.GetPosts(context.Background(), mastodon.FeedQuery{Instance: "a.social", Account: "2"}, time.Hour)
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	purged, err := svc.Purge()
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	cleared, err := svc.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
}
