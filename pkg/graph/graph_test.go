package graph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func sample() Dataset {
	return Dataset{
		Nodes: []Node{
			{ID: "n1", Type: Environment, Label: "Rain"},
			{ID: "n2", Type: Boundary, Label: "Levee"},
			{ID: "n3", Type: System, Label: "Grid"},
		},
		Links: []Link{
			{Source: "n1", Target: "n2", Weight: 2},
			{Source: "n3", Target: "n1", Weight: 1},
		},
	}
}

func TestCalculateNodeValues(t *testing.T) {
	ds := sample()
	nodes := CalculateNodeValues(ds.Nodes, ds.Links)

	n1 := nodes[0]
	assert.Equal(t, 1.0, n1.IncomingValue)
	assert.Equal(t, 2.0, n1.OutgoingValue)
	assert.Equal(t, 3.0, n1.MainValue)
	assert.True(t, n1.HasValues)

	// inputs untouched
	assert.False(t, ds.Nodes[0].HasValues)
	assert.Zero(t, ds.Nodes[0].MainValue)
}

func TestCalculateNodeValuesFallsBackToStress(t *testing.T) {
	nodes := CalculateNodeValues([]Node{{ID: "lonely", StressLevel: Float(4.5)}}, nil)
	assert.Equal(t, 4.5, nodes[0].MainValue)
	require.NotNil(t, nodes[0].OriginalStressLevel)
	assert.Equal(t, 4.5, *nodes[0].OriginalStressLevel)
}

func TestCalculateNodeValuesStressFallbackIsRounded(t *testing.T) {
	nodes := CalculateNodeValues([]Node{{ID: "lonely", StressLevel: Float(1.234)}}, nil)
	assert.Equal(t, 1.23, nodes[0].MainValue)
	require.NotNil(t, nodes[0].OriginalStressLevel)
	assert.Equal(t, 1.23, *nodes[0].OriginalStressLevel)
}

func TestCalculateNodeValuesNonPositiveSum(t *testing.T) {
	links := []Link{{Source: "neg", Target: "other", Weight: -0.5}}

	nodes := CalculateNodeValues([]Node{{ID: "neg"}}, links)
	assert.Equal(t, 0.0, nodes[0].MainValue)
	assert.Equal(t, -0.5, nodes[0].OutgoingValue)
	assert.Nil(t, nodes[0].OriginalStressLevel)

	nodes = CalculateNodeValues([]Node{{ID: "neg", StressLevel: Float(2)}}, links)
	assert.Equal(t, 2.0, nodes[0].MainValue)
}

func TestCalculateNodeValuesRounds(t *testing.T) {
	nodes := CalculateNodeValues(
		[]Node{{ID: "a"}, {ID: "b"}},
		[]Link{{Source: "a", Target: "b", Weight: 0.333}, {Source: "a", Target: "b", Weight: 0.333}},
	)
	assert.Equal(t, 0.67, nodes[0].OutgoingValue)
	assert.Equal(t, 0.67, nodes[1].IncomingValue)
}

func TestCentrality(t *testing.T) {
	links := []Link{
		{Source: "x", Target: "y", Weight: 1},
		{Source: "z", Target: "x", Weight: 1},
	}
	assert.Equal(t, 2.0, Centrality("x", links))
	assert.Equal(t, 0.0, Centrality("nobody", links))
}

func TestNodeSize(t *testing.T) {
	assert.Equal(t, NodeSizeMin, NodeSize(Node{}))
	assert.Equal(t, 8.0, NodeSize(Node{Metadata: Metadata{Confidence: Float(1)}}))
	assert.Equal(t, NodeSizeMin, NodeSize(Node{Metadata: Metadata{Confidence: Float(0.1)}}))
	assert.Equal(t, NodeSizeMax, NodeSize(Node{Metadata: Metadata{Confidence: Float(10)}}))
}

func TestNodeColor(t *testing.T) {
	assert.Equal(t, ColorEnvironment, NodeColor(Environment, false))
	assert.Equal(t, ColorBoundary, NodeColor(Boundary, false))
	assert.Equal(t, ColorSystem, NodeColor(System, false))
	assert.Equal(t, ColorFallback, NodeColor("weather", false))
	assert.Equal(t, AltColorEnvironment, NodeColor(Environment, true))
	assert.Equal(t, AltColorOther, NodeColor(System, true))
}

func TestDisplayValuePriority(t *testing.T) {
	all := DisplayOptions{ShowMain: true, ShowInOut: true}

	assert.Equal(t, []string{"2.5"}, DisplayValue(Node{StressLevel: Float(2.5)}, all))
	assert.Equal(t, []string{"70%"}, DisplayValue(Node{Metadata: Metadata{Confidence: Float(0.7)}}, all))
	assert.Equal(t, []string{"3"}, DisplayValue(Node{Metadata: Metadata{SourceCount: Int(3)}}, all))
	assert.Empty(t, DisplayValue(Node{}, all))

	computed := Node{HasValues: true, MainValue: 3, IncomingValue: 1, OutgoingValue: 2, StressLevel: Float(9)}
	assert.Equal(t, []string{"3.0", "↓1.0 ↑2.0"}, DisplayValue(computed, all))
	assert.Equal(t, []string{"↓1.0 ↑2.0"}, DisplayValue(computed, DisplayOptions{ShowInOut: true}))
	assert.Empty(t, DisplayValue(computed, DisplayOptions{}))
}

func TestStatistics(t *testing.T) {
	ds := Prepare(sample(), false)
	s := Statistics(ds.Nodes)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 3.0, s.TotalIncoming)
	assert.Equal(t, 3.0, s.TotalOutgoing)
	assert.Equal(t, 3.0, s.MaxMain)
	assert.Equal(t, "n1", s.MaxMainNodeID)
	assert.Equal(t, 2.0, s.AverageMain)
	assert.Empty(t, s.IsolatedNodeIDs)

	assert.Equal(t, Stats{}, Statistics(nil))
}

func TestPrepare(t *testing.T) {
	ds := Prepare(sample(), false)
	require.Len(t, ds.Nodes, 3)
	assert.Equal(t, ColorEnvironment, ds.Nodes[0].Color)
	assert.Equal(t, 2.5, ds.Nodes[0].Centrality)
	assert.Equal(t, NodeSizeMin, ds.Nodes[0].Size)
	assert.Equal(t, Environment, ds.Nodes[0].Group)

	alt := Prepare(sample(), true)
	assert.Equal(t, AltColorOther, alt.Nodes[1].Color)
}

func TestCloneIsolation(t *testing.T) {
	ds := sample()
	ds.Nodes[0].StressLevel = Float(1)
	ds.Nodes[0].Pos = &r3.Vec{X: 1}

	a := ds.Clone()
	b := ds.Clone()
	a.Nodes[0].Pos.X = 99
	*a.Nodes[0].StressLevel = 7
	a.Links[0].Weight = 42

	assert.Equal(t, 1.0, b.Nodes[0].Pos.X)
	assert.Equal(t, 1.0, *b.Nodes[0].StressLevel)
	assert.Equal(t, 2.0, b.Links[0].Weight)
	assert.Equal(t, 1.0, ds.Nodes[0].Pos.X)
}

func TestDecodeNormalizesEndpoints(t *testing.T) {
	in := `{
		"nodes": [{"id": "a", "type": "system"}, {"id": "b", "type": "boundary", "metadata": {"confidence": 0.9}}],
		"links": [
			{"source": "a", "target": {"id": "b", "label": "B"}, "weight": 1.5, "influenceType": "drives"},
			{"source": {"id": 7}, "target": "a", "weight": 0.5}
		]
	}`
	ds, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ds.Links, 2)
	assert.Equal(t, "a", ds.Links[0].Source)
	assert.Equal(t, "b", ds.Links[0].Target)
	assert.Equal(t, "drives", ds.Links[0].InfluenceType)
	assert.Equal(t, "7", ds.Links[1].Source)
	require.NotNil(t, ds.Nodes[1].Metadata.Confidence)
	assert.Equal(t, 0.9, *ds.Nodes[1].Metadata.Confidence)
	assert.NoError(t, ds.Validate())
}

func TestDecodeNumericIDs(t *testing.T) {
	in := `{
		"nodes": [{"id": 1, "type": "system", "stressLevel": 0.5}, {"id": 2.5}, {"id": "3"}],
		"links": [{"source": 1, "target": {"id": 2.5}, "weight": 1}, {"source": "3", "target": 1, "weight": 2}]
	}`
	ds, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ds.Nodes, 3)
	assert.Equal(t, "1", ds.Nodes[0].ID)
	assert.Equal(t, System, ds.Nodes[0].Type)
	require.NotNil(t, ds.Nodes[0].StressLevel)
	assert.Equal(t, 0.5, *ds.Nodes[0].StressLevel)
	assert.Equal(t, "2.5", ds.Nodes[1].ID)
	assert.Equal(t, "3", ds.Nodes[2].ID)
	assert.Equal(t, "1", ds.Links[0].Source)
	assert.Equal(t, "2.5", ds.Links[0].Target)
	require.NoError(t, ds.Validate())

	nodes := CalculateNodeValues(ds.Nodes, ds.Links)
	assert.Equal(t, 2.0, nodes[0].IncomingValue)
	assert.Equal(t, 1.0, nodes[0].OutgoingValue)

	_, err = Decode(strings.NewReader(`{"nodes": [{"id": {"id": "a"}}], "links": []}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `nope`,
		"array":           `[]`,
		"missing links":   `{"nodes": []}`,
		"nodes not array": `{"nodes": {}, "links": []}`,
		"links null":      `{"nodes": [], "links": null}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestValidate(t *testing.T) {
	dup := Dataset{Nodes: []Node{{ID: "a"}, {ID: "a"}}}
	assert.ErrorIs(t, dup.Validate(), ErrDuplicateNode)

	missing := Dataset{Nodes: []Node{{ID: ""}}}
	assert.ErrorIs(t, missing.Validate(), ErrMalformed)

	badConf := Dataset{Nodes: []Node{{ID: "a", Metadata: Metadata{Confidence: Float(2)}}}}
	assert.ErrorIs(t, badConf.Validate(), ErrMalformed)

	dangling := Dataset{Nodes: []Node{{ID: "a"}}, Links: []Link{{Source: "a", Target: "ghost"}}}
	assert.NoError(t, dangling.Validate())
}

func TestConfigureArrows(t *testing.T) {
	links := []Link{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "a"},
		{Source: "c", Target: "d"},
		{Source: "e", Target: "f", ShowArrow: true},
	}
	out := ConfigureArrows(links, []ArrowConfig{
		{Source: "a", Target: "b", ShowArrow: true, Color: "#fff"},
		{Source: "f", Target: "e"},
	})

	assert.True(t, out[0].ShowArrow)
	assert.True(t, out[1].ShowArrow)
	assert.False(t, out[2].ShowArrow)
	assert.False(t, out[3].ShowArrow, "a matching config without showArrow turns the arrow off")
	assert.Equal(t, ArrowAtTarget, out[3].ArrowPosition)
	assert.Equal(t, ArrowAtTarget, out[0].ArrowPosition)
	assert.Equal(t, "#fff", out[0].ArrowColor)
	assert.Equal(t, DefaultArrowLength, out[1].ArrowLength)
	assert.False(t, links[0].ShowArrow)
}

func TestDerivedValuesArePure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("recomputing derived values is idempotent", prop.ForAll(
		func(weights []float64, n int) bool {
			nodes := make([]Node, n)
			for i := range nodes {
				nodes[i] = Node{ID: fmt.Sprintf("n%d", i)}
			}
			links := make([]Link, len(weights))
			for i, w := range weights {
				links[i] = Link{Source: nodes[i%n].ID, Target: nodes[(i*7+1)%n].ID, Weight: w}
			}
			ds := Dataset{Nodes: nodes, Links: links}

			first := Prepare(ds, false)
			second := Prepare(first, false)
			for i := range first.Nodes {
				a, b := first.Nodes[i], second.Nodes[i]
				if a.MainValue != b.MainValue || a.IncomingValue != b.IncomingValue ||
					a.OutgoingValue != b.OutgoingValue || a.Centrality != b.Centrality || a.Size != b.Size {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 10)),
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}
