package feed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pders01/mastofeed/internal/debuglog"
	"github.com/pders01/mastofeed/internal/mastodon"
	"github.com/pders01/mastofeed/internal/metrics"
)

// KeyPrefix is shared by every cached feed entry.
const KeyPrefix = "mastodon_feed_"

// DefaultTTL applies when a non-positive TTL is requested.
const DefaultTTL = time.Hour

// Cache stores raw status payloads with an expiry.
type Cache interface {
	GetTransient(key string) ([]byte, bool, error)
	SetTransient(key string, payload []byte, ttl time.Duration) error
	ClearTransients(prefix string) (int, error)
	PurgeExpired() (int, error)
}

// Fetcher retrieves the raw, validated statuses payload for a query.
type Fetcher interface {
	Statuses(ctx context.Context, q mastodon.FeedQuery) ([]byte, error)
}

// Service fetches feeds through the cache.
type Service struct {
	cache   Cache
	fetcher Fetcher
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(cache Cache, fetcher Fetcher, m *metrics.Metrics) *Service {
	return &Service{
		cache:   cache,
		fetcher: fetcher,
		metrics: m,
		now:     time.Now,
	}
}

// CacheKey derives the cache key from the ordered query parameters. The
// values are taken as given, before any sanitising.
func CacheKey(q mastodon.FeedQuery) string {
	tuple := []any{
		q.Instance,
		q.Account,
		q.Tag,
		q.Limit,
		q.ExcludeBoosts,
		q.ExcludeReplies,
		q.OnlyPinned,
		q.OnlyMedia,
		q.Tagged,
	}
	// marshalling strings, ints and bools cannot fail
	data, _ := json.Marshal(tuple)
	sum := md5.Sum(data)
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// GetPosts returns the statuses for q, served from the cache while a
// non-empty entry is live. Fresh results are cached for ttl.
func (s *Service) GetPosts(ctx context.Context, q mastodon.FeedQuery, ttl time.Duration) ([]mastodon.Status, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	key := CacheKey(q)
	log := debuglog.WithFields(map[string]any{
		"key":      key,
		"instance": q.Instance,
		"account":  q.Account,
		"tag":      q.Tag,
	})

	if posts, ok := s.cached(key); ok {
		s.metrics.CacheHit()
		log.Debugf("serving %d posts from cache", len(posts))
		return posts, nil
	}
	s.metrics.CacheMiss()

	start := s.now()
	body, err := s.fetcher.Statuses(ctx, q)
	if err != nil {
		var fetchErr *mastodon.FetchError
		if errors.As(err, &fetchErr) {
			s.metrics.FetchError(string(fetchErr.Kind))
		}
		log.Warnf("fetching statuses: %v", err)
		return nil, err
	}
	s.metrics.ObserveFetch(s.now().Sub(start))

	posts, err := mastodon.ParseStatuses(body)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetTransient(key, body, ttl); err != nil {
		log.Errorf("caching statuses: %v", err)
	}

	log.Debugf("fetched %d posts", len(posts))
	return posts, nil
}

// cached reports a hit only for a live entry holding at least one status.
func (s *Service) cached(key string) ([]mastodon.Status, bool) {
	payload, ok, err := s.cache.GetTransient(key)
	if err != nil {
		debuglog.Warnf("reading cache entry %s: %v", key, err)
		return nil, false
	}
	if !ok || len(payload) == 0 {
		return nil, false
	}

	posts, err := mastodon.ParseStatuses(payload)
	if err != nil || len(posts) == 0 {
		return nil, false
	}
	return posts, true
}

// Clear removes every cached feed and returns how many entries were dropped.
func (s *Service) Clear() (int, error) {
	n, err := s.cache.ClearTransients(KeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("clearing feed cache: %w", err)
	}
	return n, nil
}

// Purge removes expired entries only.
func (s *Service) Purge() (int, error) {
	n, err := s.cache.PurgeExpired()
	if err != nil {
		return 0, fmt.Errorf("purging feed cache: %w", err)
	}
	return n, nil
}
