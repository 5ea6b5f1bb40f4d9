package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/pkg/graph"
)

const pair = `{
	"nodes": [{"id": "a", "type": "system"}, {"id": "b", "type": "environment"}],
	"links": [{"source": "a", "target": "b", "weight": 1}]
}`

const triple = `{
	"nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}],
	"links": []
}`

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.json")
	write(t, path, pair)

	ds, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, ds.Nodes, 2)
	assert.Len(t, ds.Links, 1)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(context.Background(), filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	write(t, bad, `{"nodes": 3}`)
	_, err = Load(context.Background(), bad)
	assert.ErrorIs(t, err, graph.ErrMalformed)

	dup := filepath.Join(dir, "dup.json")
	write(t, dup, `{"nodes": [{"id": "a"}, {"id": "a"}], "links": []}`)
	_, err = Load(context.Background(), dup)
	assert.ErrorIs(t, err, graph.ErrDuplicateNode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Load(ctx, bad)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadOrEmpty(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewJSONLogger(&buf, logging.DebugLevel)

	ds := LoadOrEmpty(context.Background(), filepath.Join(t.TempDir(), "none.json"), log)
	assert.Empty(t, ds.Nodes)
	assert.NotNil(t, ds.Links)
	assert.Contains(t, buf.String(), "using empty graph")

	buf.Reset()
	ds = LoadOrEmpty(context.Background(), "", log)
	assert.Empty(t, ds.Nodes)
	assert.Zero(t, buf.Len())
}

type reload struct {
	ds  graph.Dataset
	err error
}

func startWatcher(t *testing.T, path string) <-chan reload {
	t.Helper()
	got := make(chan reload, 8)
	w, err := NewWatcher(path, logging.NewNopLogger(), func(ds graph.Dataset, err error) {
		got <- reload{ds, err}
	})
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return got
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.json")
	write(t, path, pair)
	got := startWatcher(t, path)

	write(t, path, triple)
	select {
	case r := <-got:
		require.NoError(t, r.err)
		assert.Len(t, r.ds.Nodes, 3)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	write(t, path, `not json`)
	select {
	case r := <-got:
		assert.ErrorIs(t, r.err, graph.ErrMalformed)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after bad write")
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.json")
	write(t, path, pair)
	got := startWatcher(t, path)

	write(t, filepath.Join(dir, "other.json"), triple)
	select {
	case r := <-got:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}
