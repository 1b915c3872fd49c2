package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	transientsBucket = []byte("transients")
	optionsBucket    = []byte("options")
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

type Store struct {
	db  *bolt.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{transientsBucket, optionsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock replaces the time source used for expiry checks.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// GetTransient returns the payload stored under key. Missing and expired
// entries both report ok=false; expired entries are left for PurgeExpired.
func (s *Store) GetTransient(key string) ([]byte, bool, error) {
	var payload []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(transientsBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		var entry CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("decoding transient %s: %w", key, err)
		}
		if entry.Expired(s.now()) {
			return nil
		}
		payload = entry.Payload
		found = true
		return nil
	})
	return payload, found, err
}

// SetTransient stores payload under key for ttl. A ttl of zero never expires.
func (s *Store) SetTransient(key string, payload []byte, ttl time.Duration) error {
	now := s.now()
	entry := CacheEntry{
		Key:       key,
		Payload:   payload,
		CreatedAt: now,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return tx.Bucket(transientsBucket).Put([]byte(key), data)
	})
}

func (s *Store) DeleteTransient(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(transientsBucket).Delete([]byte(key))
	})
}

// ClearTransients deletes every transient whose key starts with prefix and
// returns how many were removed. An empty prefix clears the bucket.
func (s *Store) ClearTransients(prefix string) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(transientsBucket)
		c := b.Cursor()
		p := []byte(prefix)
		var keys [][]byte
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		return deleteKeys(b, keys, &removed)
	})
	return removed, err
}

// PurgeExpired removes transients that have expired.
func (s *Store) PurgeExpired() (int, error) {
	removed := 0
	now := s.now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(transientsBucket)
		var keys [][]byte
		err := b.ForEach(func(k []byte, v []byte) error {
			var entry CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil || entry.Expired(now) {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		return deleteKeys(b, keys, &removed)
	})
	return removed, err
}

// Keys are collected before deleting; bbolt cursors skip entries when
// the bucket is modified mid-iteration.
func deleteKeys(b *bolt.Bucket, keys [][]byte, removed *int) error {
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
		*removed++
	}
	return nil
}

// CountTransients returns the number of live (unexpired) transients.
func (s *Store) CountTransients() (int, error) {
	count := 0
	now := s.now()
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(transientsBucket).ForEach(func(_ []byte, v []byte) error {
			var entry CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return nil
			}
			if !entry.Expired(now) {
				count++
			}
			return nil
		})
	})
	return count, err
}

func (s *Store) GetOption(name string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(optionsBucket).Get([]byte(name))
		if data == nil {
			return ErrNotFound
		}
		value = append([]byte(nil), data...)
		return nil
	})
	return value, err
}

func (s *Store) PutOption(name string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(optionsBucket).Put([]byte(name), value)
	})
}

func (s *Store) DeleteOption(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(optionsBucket).Delete([]byte(name))
	})
}
