// Package dataset reads graph files from disk and watches them for edits.
package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/pkg/graph"
)

// Load reads, decodes and validates the dataset at path
func Load(ctx context.Context, path string) (graph.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return graph.Dataset{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return graph.Dataset{}, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return graph.Dataset{}, err
	}

	ds, err := graph.Decode(bytes.NewReader(data))
	if err != nil {
		return graph.Dataset{}, fmt.Errorf("dataset: %s: %w", path, err)
	}
	if err := ds.Validate(); err != nil {
		return graph.Dataset{}, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return ds, nil
}

// LoadOrEmpty is Load that never fails: any error is logged and an empty
// graph returned in its place. An empty path yields the empty graph
// silently.
func LoadOrEmpty(ctx context.Context, path string, log logging.Logger) graph.Dataset {
	if path == "" {
		return graph.Empty()
	}
	ds, err := Load(ctx, path)
	if err != nil {
		log.Warn("using empty graph", logging.Path(path), logging.Err(err))
		return graph.Empty()
	}
	log.Info("dataset loaded", logging.Path(path),
		logging.Int("nodes", len(ds.Nodes)), logging.Int("links", len(ds.Links)))
	return ds
}
