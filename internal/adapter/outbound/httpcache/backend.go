package httpcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	bolt "go.etcd.io/bbolt"
)

const (
	// BackendMemory keeps responses in process memory.
	BackendMemory = "memory"
	// BackendBolt keeps responses in a bbolt file that survives restarts.
	BackendBolt = "bolt"

	boltBucket = "responses"
)

// Entry is one stored upstream response.
type Entry struct {
	// StoredAt is when the response was received.
	StoredAt time.Time `json:"stored_at"`
	// Response is the wire dump of the response (status line, headers, body).
	Response []byte `json:"response"`
}

// Backend stores cached responses by key.
type Backend interface {
	// Get returns the entry for key and whether it was found.
	Get(key string) (Entry, bool, error)
	// Set stores the entry under key.
	Set(key string, e Entry) error
	// Delete removes key. Removing a missing key is not an error.
	Delete(key string) error
	// Close releases the backend resources.
	Close() error
}

// OpenBackend opens the backend named kind. path is only used by the bolt
// backend, whose entries older than ttl are purged at open; ttl bounds how
// long the memory backend keeps entries.
func OpenBackend(kind, path string, ttl time.Duration) (Backend, error) {
	switch strings.ToLower(kind) {
	case BackendMemory, "":
		return NewMemoryBackend(ttl), nil
	case BackendBolt:
		b, err := NewBoltBackend(path)
		if err != nil {
			return nil, err
		}
		if _, err := b.Purge(time.Now().Add(-ttl)); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to purge cache DB %s: %w", path, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", kind)
	}
}

// MemoryBackend is a Backend over go-cache. Entries expire by themselves
// after the TTL given at construction.
type MemoryBackend struct {
	cache *gocache.Cache
}

// NewMemoryBackend creates a MemoryBackend whose entries live for ttl.
func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{cache: gocache.New(ttl, 2*ttl)}
}

// Get implements Backend
func (m *MemoryBackend) Get(key string) (Entry, bool, error) {
	v, found := m.cache.Get(key)
	if !found {
		return Entry{}, false, nil
	}
	return v.(Entry), true, nil
}

// Set implements Backend
func (m *MemoryBackend) Set(key string, e Entry) error {
	m.cache.SetDefault(key, e)
	return nil
}

// Delete implements Backend
func (m *MemoryBackend) Delete(key string) error {
	m.cache.Delete(key)
	return nil
}

// Close implements Backend
func (m *MemoryBackend) Close() error {
	m.cache.Flush()
	return nil
}

// BoltBackend is a Backend over a bbolt database file. bbolt takes an
// exclusive lock on the file, so one process opens it once and shares the
// backend between transports.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens (or creates) the database at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	if path == "" {
		return nil, errors.New("bolt cache backend needs a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open cache DB %s: %w", path, err)
	}

	if err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(boltBucket)); err != nil {
			return fmt.Errorf("unable to create %s bucket: %w", boltBucket, err)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltBackend{db: db}, nil
}

// Get implements Backend
func (b *BoltBackend) Get(key string) (Entry, bool, error) {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", boltBucket)
		}
		// bbolt values are only valid inside the transaction.
		if v := bucket.Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return Entry{}, false, err
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return e, true, nil
}

// Set implements Backend
func (b *BoltBackend) Set(key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), raw)
	})
}

// Delete implements Backend
func (b *BoltBackend) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Purge removes the entries stored before cutoff, and any entry that no
// longer decodes. It returns how many were removed.
func (b *BoltBackend) Purge(cutoff time.Time) (int, error) {
	var removed int
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		if bucket == nil {
			return nil
		}
		// Deleting through the cursor while iterating skips keys.
		var stale [][]byte
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil || e.StoredAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Close implements Backend
func (b *BoltBackend) Close() error {
	return b.db.Close()
}
