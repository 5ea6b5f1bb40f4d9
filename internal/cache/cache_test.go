package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	return c
}

func TestCache_GetPut(t *testing.T) {
	c := newCache(t, Config{MaxSize: 1 << 20, MaxAge: time.Hour})

	key := Key([]byte("graph"), []byte("svg"))
	data := []byte("<svg></svg>")
	if err := c.Put(key, data); err != nil {
		t.Fatalf("Failed to put data: %v", err)
	}

	got, found := c.Get(key)
	if !found {
		t.Fatal("Data not found in cache")
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Retrieved data doesn't match: got %s, want %s", got, data)
	}

	if _, found := c.Get("non-existent"); found {
		t.Error("Found non-existent key")
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %+v", stats)
	}
	if stats.TotalSize != int64(len(data)) || stats.EntryCount != 1 {
		t.Errorf("Unexpected size accounting: %+v", stats)
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := newCache(t, Config{})
	if err := c.Put("k", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("k", []byte("second!")); err != nil {
		t.Fatal(err)
	}
	got, _ := c.Get("k")
	if string(got) != "second!" {
		t.Errorf("got %q", got)
	}
	if s := c.GetStats(); s.TotalSize != 7 || s.EntryCount != 1 {
		t.Errorf("Unexpected size accounting after overwrite: %+v", s)
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := newCache(t, Config{})
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Put(k, []byte(k)); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.Delete("a"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, found := c.Get("a"); found {
		t.Error("Deleted entry still present")
	}
	if err := c.Delete("a"); err != nil {
		t.Errorf("Deleting twice should be a no-op: %v", err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}
	if _, found := c.Get("b"); found {
		t.Error("Entry survived Clear")
	}
	if err := c.Put("d", []byte("d")); err != nil {
		t.Fatalf("Put after Clear failed: %v", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := newCache(t, Config{Dir: dir, MaxAge: time.Hour})
	if err := c.Put("old", []byte("x")); err != nil {
		t.Fatal(err)
	}
	c.index.Entries["old"].Created = time.Now().Add(-2 * time.Hour)

	if _, found := c.Get("old"); found {
		t.Error("Expired entry returned")
	}

	if err := c.Put("older", []byte("y")); err != nil {
		t.Fatal(err)
	}
	c.index.Entries["older"].Created = time.Now().Add(-2 * time.Hour)
	if n := c.Prune(); n != 1 {
		t.Errorf("Prune removed %d entries, want 1", n)
	}
}

func TestCache_Eviction(t *testing.T) {
	tests := []struct {
		name     string
		strategy EvictionStrategy
		touch    string
		evicted  string
	}{
		{"LRU", LRU, "a", "b"},
		{"LFU", LFU, "a", "b"},
		{"FIFO", FIFO, "a", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCache(t, Config{MaxSize: 20, Strategy: tt.strategy})
			if err := c.Put("a", make([]byte, 8)); err != nil {
				t.Fatal(err)
			}
			time.Sleep(2 * time.Millisecond)
			if err := c.Put("b", make([]byte, 8)); err != nil {
				t.Fatal(err)
			}
			time.Sleep(2 * time.Millisecond)
			if _, ok := c.Get(tt.touch); !ok {
				t.Fatalf("%s missing before eviction", tt.touch)
			}

			if err := c.Put("c", make([]byte, 8)); err != nil {
				t.Fatal(err)
			}
			if _, ok := c.index.Entries[tt.evicted]; ok {
				t.Errorf("%s should have been evicted", tt.evicted)
			}
			if s := c.GetStats(); s.Evictions != 1 || s.TotalSize != 16 {
				t.Errorf("Unexpected stats: %+v", s)
			}
		})
	}
}

func TestCache_Persistence(t *testing.T) {
	dir := t.TempDir()
	c := newCache(t, Config{Dir: dir})
	if err := c.Put("k", []byte("frame")); err != nil {
		t.Fatal(err)
	}

	reopened := newCache(t, Config{Dir: dir})
	got, found := reopened.Get("k")
	if !found || string(got) != "frame" {
		t.Fatalf("Entry did not survive reopening: %q %v", got, found)
	}
	if s := reopened.GetStats(); s.TotalSize != 5 {
		t.Errorf("Size not restored: %+v", s)
	}
}

func TestCache_CorruptIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	c := newCache(t, Config{Dir: dir})
	if s := c.GetStats(); s.EntryCount != 0 {
		t.Errorf("Expected empty cache, got %+v", s)
	}
	if err := c.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put on recovered cache failed: %v", err)
	}
}

func TestCache_MissingFile(t *testing.T) {
	c := newCache(t, Config{})
	if err := c.Put("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(c.path(c.index.Entries["k"])); err != nil {
		t.Fatal(err)
	}
	if _, found := c.Get("k"); found {
		t.Error("Entry with missing file returned")
	}
	if s := c.GetStats(); s.EntryCount != 0 {
		t.Errorf("Broken entry not dropped: %+v", s)
	}
}

func TestFrameKey(t *testing.T) {
	type settings struct {
		Width int
		Bidir bool
	}
	ds := []byte(`{"nodes":[]}`)

	k1, err := FrameKey(ds, settings{Width: 100}, "2d", "svg")
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := FrameKey(ds, settings{Width: 100}, "2d", "svg")
	if k1 != k2 {
		t.Error("Same inputs gave different keys")
	}

	for name, other := range map[string]func() (string, error){
		"settings": func() (string, error) { return FrameKey(ds, settings{Width: 100, Bidir: true}, "2d", "svg") },
		"view":     func() (string, error) { return FrameKey(ds, settings{Width: 100}, "3d", "svg") },
		"format":   func() (string, error) { return FrameKey(ds, settings{Width: 100}, "2d", "png") },
		"dataset":  func() (string, error) { return FrameKey([]byte(`{}`), settings{Width: 100}, "2d", "svg") },
	} {
		k, err := other()
		if err != nil {
			t.Fatal(err)
		}
		if k == k1 {
			t.Errorf("changing %s did not change the key", name)
		}
	}

	if Key([]byte("ab"), []byte("c")) == Key([]byte("a"), []byte("bc")) {
		t.Error("Key parts are not separated")
	}
}
