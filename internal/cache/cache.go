// Package cache keeps rendered frames on disk. Layouts are seeded, so the
// same dataset, config, view and format always encode to the same bytes and
// a later render can skip the warm-up entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/recera/dualgraph/internal/logging"
)

const indexVersion = "2"

// Cache stores encoded frames under a directory
type Cache struct {
	mu       sync.RWMutex
	dir      string
	index    *Index
	maxSize  int64
	maxAge   time.Duration
	strategy EvictionStrategy
	stats    Stats
	log      logging.Logger
}

// Index tracks all cached entries
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry is one cached frame
type Entry struct {
	Key         string    `json:"key"`
	File        string    `json:"file"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
	LastAccess  time.Time `json:"last_access"`
	AccessCount int       `json:"access_count"`
}

// Stats tracks cache performance
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	TotalSize  int64 `json:"total_size"`
	EntryCount int   `json:"entry_count"`
}

// EvictionStrategy defines how cache entries are removed
type EvictionStrategy int

const (
	// LRU removes least recently used entries
	LRU EvictionStrategy = iota
	// LFU removes least frequently used entries
	LFU
	// FIFO removes oldest entries first
	FIFO
)

// Config holds cache configuration
type Config struct {
	Dir      string           // default: $HOME/.cache/dualgraph
	MaxSize  int64            // bytes, 0 for no limit
	MaxAge   time.Duration    // 0 keeps entries forever
	Strategy EvictionStrategy // default: LRU
	Logger   logging.Logger
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		Dir:      filepath.Join(dir, "dualgraph"),
		MaxSize:  256 << 20,
		MaxAge:   7 * 24 * time.Hour,
		Strategy: LRU,
	}
}

// New opens the cache in cfg.Dir, dropping expired entries. A corrupt
// index starts the cache empty.
func New(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		d := DefaultConfig()
		d.Logger = cfg.Logger
		cfg = d
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, "frames"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		dir:      cfg.Dir,
		maxSize:  cfg.MaxSize,
		maxAge:   cfg.MaxAge,
		strategy: cfg.Strategy,
		log:      cfg.Logger.With(logging.String("component", "cache")),
		index:    emptyIndex(),
	}
	if err := c.loadIndex(); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("cache index unreadable, starting empty", logging.Err(err))
		c.index = emptyIndex()
	}
	if n := c.Prune(); n > 0 {
		c.log.Debug("pruned expired frames", logging.Count(n))
	}
	return c, nil
}

func emptyIndex() *Index {
	return &Index{Version: indexVersion, Entries: make(map[string]*Entry), Updated: time.Now()}
}

// Get returns a cached frame
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.expired(e) {
		c.remove(key, e)
		c.stats.Misses++
		return nil, false
	}
	data, err := os.ReadFile(c.path(e))
	if err != nil {
		c.log.Debug("cached frame missing", logging.String("key", key), logging.Err(err))
		c.remove(key, e)
		c.stats.Misses++
		return nil, false
	}

	e.LastAccess = time.Now()
	e.AccessCount++
	c.stats.Hits++
	if err := c.saveIndex(); err != nil {
		c.log.Warn("failed to save cache index", logging.Err(err))
	}
	return data, true
}

// Put stores a frame, evicting others when the cache is over its size
func (c *Cache) Put(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.index.Entries[key]; ok {
		c.remove(key, old)
	}
	size := int64(len(data))
	c.makeRoom(size)

	file := key
	if len(file) > 64 {
		file = file[:64]
	}
	e := &Entry{
		Key:        key,
		File:       file,
		Size:       size,
		Created:    time.Now(),
		LastAccess: time.Now(),
	}
	if err := os.WriteFile(c.path(e), data, 0644); err != nil {
		return fmt.Errorf("failed to write cached frame: %w", err)
	}
	c.index.Entries[key] = e
	c.stats.TotalSize += size
	c.stats.EntryCount = len(c.index.Entries)
	return c.saveIndex()
}

// Delete removes an entry from the cache
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.index.Entries[key]
	if !ok {
		return nil
	}
	c.remove(key, e)
	return c.saveIndex()
}

// Clear removes all cached entries
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	frames := filepath.Join(c.dir, "frames")
	if err := os.RemoveAll(frames); err != nil {
		return fmt.Errorf("failed to clear frames: %w", err)
	}
	if err := os.MkdirAll(frames, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	c.index = emptyIndex()
	c.stats = Stats{}
	return c.saveIndex()
}

// Prune drops expired entries and returns how many went
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, e := range c.index.Entries {
		if c.expired(e) {
			c.remove(key, e)
			n++
		}
	}
	if n > 0 {
		if err := c.saveIndex(); err != nil {
			c.log.Warn("failed to save cache index", logging.Err(err))
		}
	}
	return n
}

// GetStats returns cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Key hashes its parts into a cache key. Parts are length-prefixed so
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:", len(p))
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FrameKey is the key of one encoded view. settings is anything that
// changes the picture (layout, style, flags, size); it is hashed through
// its YAML form.
func FrameKey(dataset []byte, settings any, view, format string) (string, error) {
	s, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("failed to hash settings: %w", err)
	}
	return Key(dataset, s, []byte(view), []byte(format)), nil
}

func (c *Cache) path(e *Entry) string {
	return filepath.Join(c.dir, "frames", e.File)
}

func (c *Cache) expired(e *Entry) bool {
	return c.maxAge > 0 && time.Since(e.Created) > c.maxAge
}

// remove drops an entry and its file. Caller holds c.mu.
func (c *Cache) remove(key string, e *Entry) {
	if err := os.Remove(c.path(e)); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("failed to remove cached frame", logging.Path(c.path(e)), logging.Err(err))
	}
	delete(c.index.Entries, key)
	c.stats.TotalSize -= e.Size
	c.stats.EntryCount = len(c.index.Entries)
}

// makeRoom evicts until needed more bytes fit. Caller holds c.mu.
func (c *Cache) makeRoom(needed int64) {
	if c.maxSize <= 0 {
		return
	}
	for c.stats.TotalSize+needed > c.maxSize && len(c.index.Entries) > 0 {
		key, e := c.victim()
		if e == nil {
			return
		}
		c.remove(key, e)
		c.stats.Evictions++
	}
}

func (c *Cache) victim() (string, *Entry) {
	var key string
	var victim *Entry
	for k, e := range c.index.Entries {
		if victim == nil {
			key, victim = k, e
			continue
		}
		var better bool
		switch c.strategy {
		case LFU:
			better = e.AccessCount < victim.AccessCount
		case FIFO:
			better = e.Created.Before(victim.Created)
		default:
			better = e.LastAccess.Before(victim.LastAccess)
		}
		if better {
			key, victim = k, e
		}
	}
	return key, victim
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	if index.Version != indexVersion || index.Entries == nil {
		return fmt.Errorf("index version %q", index.Version)
	}
	c.index = &index
	for _, e := range index.Entries {
		c.stats.TotalSize += e.Size
	}
	c.stats.EntryCount = len(index.Entries)
	return nil
}

// saveIndex writes the index. Caller holds c.mu.
func (c *Cache) saveIndex() error {
	c.index.Updated = time.Now()
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, "index.json"), data, 0644)
}
