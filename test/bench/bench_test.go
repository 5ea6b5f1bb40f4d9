package bench

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/golang/snappy"

	"github.com/recera/dualgraph/pkg/bidir"
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/layout"
	"github.com/recera/dualgraph/pkg/live"
	"github.com/recera/dualgraph/pkg/render"
	"github.com/recera/dualgraph/pkg/shell"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var nodeTypes = []graph.NodeType{graph.Environment, graph.Boundary, graph.System}

// generateGraph builds n nodes with about two links each
func generateGraph(n int) graph.Dataset {
	rng := rand.New(rand.NewSource(int64(n)))
	ds := graph.Dataset{
		Nodes: make([]graph.Node, n),
		Links: make([]graph.Link, 0, 2*n),
	}
	for i := range ds.Nodes {
		ds.Nodes[i] = graph.Node{
			ID:    fmt.Sprintf("n%d", i),
			Type:  nodeTypes[i%len(nodeTypes)],
			Label: fmt.Sprintf("Node %d", i),
		}
	}
	for i := 1; i < n; i++ {
		ds.Links = append(ds.Links, graph.Link{
			Source: ds.Nodes[rng.Intn(i)].ID,
			Target: ds.Nodes[i].ID,
			Weight: float64(rng.Intn(10) + 1),
		})
		if rng.Intn(2) == 0 {
			ds.Links = append(ds.Links, graph.Link{
				Source: ds.Nodes[i].ID,
				Target: ds.Nodes[rng.Intn(n)].ID,
				Weight: float64(rng.Intn(10) + 1),
			})
		}
	}
	return ds
}

func settledShell(tb testing.TB, n int) *shell.Shell {
	tb.Helper()
	flags := shell.Flags{Flags: render.Flags{ShowMainValues: true, LinkMode: render.LinkCurved}}
	s := shell.New(generateGraph(n), 1600, 900, flags, shell.Options{}, shell.Hooks{})
	tb.Cleanup(s.Close)
	s.Step(t0)
	s.Refresh()
	return s
}

func benchmarkTick(b *testing.B, cfg layout.Config, n int) {
	sim := layout.New(cfg, graph.Prepare(generateGraph(n), false))
	sim.Tick()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sim.Tick()
	}
}

func BenchmarkTick2D1kNodes(b *testing.B) { benchmarkTick(b, layout.Default2D(), 1000) }
func BenchmarkTick3D1kNodes(b *testing.B) { benchmarkTick(b, layout.Default3D(), 1000) }

func BenchmarkBidirExpand(b *testing.B) {
	links := generateGraph(1000).Links
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bidir.Expand(links)
	}
}

// BenchmarkRefresh measures projecting and building both frames
func BenchmarkRefresh(b *testing.B) {
	s := settledShell(b, 1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Refresh()
	}
}

func BenchmarkPaintSVG2D(b *testing.B) {
	f := settledShell(b, 1000).Frame2D()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		surf := render.NewSVGSurface(f.Width, f.Height)
		render.Paint2D(surf, f)
		_ = surf.Bytes()
	}
}

func BenchmarkPaintSVG3D(b *testing.B) {
	f := settledShell(b, 1000).Frame3D()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		surf := render.NewSVGSurface(f.Width, f.Height)
		render.Paint3D(surf, f)
		_ = surf.Bytes()
	}
}

func framePayload(tb testing.TB, s *shell.Shell) []byte {
	tb.Helper()
	svg2 := render.NewSVGSurface(s.Frame2D().Width, s.Frame2D().Height)
	render.Paint2D(svg2, s.Frame2D())
	svg3 := render.NewSVGSurface(s.Frame3D().Width, s.Frame3D().Height)
	render.Paint3D(svg3, s.Frame3D())
	payload, err := json.Marshal(live.ServerMessage{
		Type:   live.MsgFrame,
		View2D: string(svg2.Bytes()),
		View3D: string(svg3.Bytes()),
	})
	if err != nil {
		tb.Fatalf("Failed to marshal frame: %v", err)
	}
	return payload
}

func BenchmarkBinaryFrame(b *testing.B) {
	payload := framePayload(b, settledShell(b, 500))
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = live.EncodeBinary(live.FrameState, uint64(i), payload)
	}
}

// TestRefresh1kNodesBudget keeps a full refresh of both views well inside
// one broadcast interval
func TestRefresh1kNodesBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	s := settledShell(t, 1000)

	iterations := 10
	start := time.Now()
	for i := 0; i < iterations; i++ {
		s.Refresh()
	}
	avg := time.Since(start) / time.Duration(iterations)

	if avg > 250*time.Millisecond {
		t.Errorf("Refresh of 1k nodes took %v (average), expected <250ms", avg)
	} else {
		t.Logf("✓ Refresh 1k nodes: %v (average)", avg)
	}
}

// TestSnappyFrameSize reports how much the snappy encoding saves on a
// painted frame
func TestSnappyFrameSize(t *testing.T) {
	payload := framePayload(t, settledShell(t, 200))
	compressed := snappy.Encode(nil, payload)

	t.Logf("Frame: %.2f KB raw, %.2f KB snappy", float64(len(payload))/1024, float64(len(compressed))/1024)
	if len(compressed) >= len(payload) {
		t.Errorf("snappy frame %d bytes is not smaller than raw %d bytes", len(compressed), len(payload))
	}
}
