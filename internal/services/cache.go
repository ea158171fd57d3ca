package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/models"

	bolt "go.etcd.io/bbolt"
)

// Cache key is path plus instance URL. Credentials are deliberately not part
// of the key: clients with different credentials against the same instance
// share entries, a known staleness/information-leak tradeoff on
// multi-credential deployments.
func cacheKey(path, instanceURL string) string {
	return fmt.Sprintf("unfuddle:%s:%s", path, instanceURL)
}

// MemoryCache is the in-process TTL cache. Get/Set are atomic per key; there
// is no stampede protection, so concurrent misses may duplicate idempotent
// GETs.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	resp    *models.TrackerResponse
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(key string) (*models.TrackerResponse, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.resp, true
}

func (c *MemoryCache) Set(key string, resp *models.TrackerResponse, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = memoryEntry{resp: resp, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

const responsesBucket = "responses"

// cachedResponse is the bbolt serialization of a tracker response. The body
// is re-decoded on load so the JSON/XML invariant holds for cached reads too.
type cachedResponse struct {
	Body       string      `json:"body"`
	Header     http.Header `json:"header"`
	StatusCode int         `json:"status_code"`
	Expires    time.Time   `json:"expires"`
}

// BoltCache persists cached reads across restarts. Entries carry their own
// expiry and read as misses once stale.
type BoltCache struct {
	db  *bolt.DB
	now func() time.Time
}

func NewBoltCache(path string) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(responsesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &BoltCache{db: db, now: time.Now}, nil
}

func (c *BoltCache) Get(key string) (*models.TrackerResponse, bool) {
	var cached cachedResponse
	found := false

	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(responsesBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &cached); err != nil {
			return nil
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, false
	}

	if c.now().After(cached.Expires) {
		_ = c.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(responsesBucket)).Delete([]byte(key))
		})
		return nil, false
	}

	return models.NewTrackerResponse(cached.Body, cached.Header, cached.StatusCode), true
}

func (c *BoltCache) Set(key string, resp *models.TrackerResponse, ttl time.Duration) {
	data, err := json.Marshal(cachedResponse{
		Body:       resp.Body,
		Header:     resp.Header,
		StatusCode: resp.StatusCode,
		Expires:    c.now().Add(ttl),
	})
	if err != nil {
		return
	}

	_ = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(responsesBucket)).Put([]byte(key), data)
	})
}

func (c *BoltCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

var _ interfaces.Cache = (*MemoryCache)(nil)
var _ interfaces.Cache = (*BoltCache)(nil)
