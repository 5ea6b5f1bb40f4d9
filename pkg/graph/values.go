package graph

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

const (
	NodeSizeMin          = 4.0
	NodeSizeMax          = 32.0
	ConfidenceMultiplier = 8.0
	DefaultConfidence    = 0.5
)

// CalculateNodeValues returns copies of nodes with incoming, outgoing and main
// values derived from links. The inputs are not modified.
func CalculateNodeValues(nodes []Node, links []Link) []Node {
	in := make(map[string]float64, len(nodes))
	out := make(map[string]float64, len(nodes))
	for _, l := range links {
		out[l.Source] += l.Weight
		in[l.Target] += l.Weight
	}

	res := CloneNodes(nodes)
	for i := range res {
		n := &res[i]
		n.IncomingValue = Round2(in[n.ID])
		n.OutgoingValue = Round2(out[n.ID])
		main := in[n.ID] + out[n.ID]
		if main <= 0 {
			main = 0
			if n.StressLevel != nil {
				main = *n.StressLevel
			}
		}
		n.MainValue = Round2(main)
		n.OriginalStressLevel = nil
		if n.StressLevel != nil {
			stress := Round2(*n.StressLevel)
			n.OriginalStressLevel = &stress
		}
		n.HasValues = true
	}
	return res
}

// Stats summarizes derived node values
type Stats struct {
	Count           int      `json:"count"`
	TotalIncoming   float64  `json:"totalIncoming"`
	TotalOutgoing   float64  `json:"totalOutgoing"`
	AverageIncoming float64  `json:"averageIncoming"`
	AverageOutgoing float64  `json:"averageOutgoing"`
	AverageMain     float64  `json:"averageMain"`
	MaxIncoming     float64  `json:"maxIncoming"`
	MaxOutgoing     float64  `json:"maxOutgoing"`
	MaxMain         float64  `json:"maxMain"`
	MaxMainNodeID   string   `json:"maxMainNodeId,omitempty"`
	IsolatedNodeIDs []string `json:"isolatedNodeIds,omitempty"`
}

// Statistics aggregates values previously produced by CalculateNodeValues
func Statistics(nodes []Node) Stats {
	s := Stats{Count: len(nodes)}
	if len(nodes) == 0 {
		return s
	}
	var totalMain float64
	for _, n := range nodes {
		s.TotalIncoming += n.IncomingValue
		s.TotalOutgoing += n.OutgoingValue
		totalMain += n.MainValue
		s.MaxIncoming = math.Max(s.MaxIncoming, n.IncomingValue)
		s.MaxOutgoing = math.Max(s.MaxOutgoing, n.OutgoingValue)
		if n.MainValue > s.MaxMain || s.MaxMainNodeID == "" {
			s.MaxMain = n.MainValue
			s.MaxMainNodeID = n.ID
		}
		if n.IncomingValue == 0 && n.OutgoingValue == 0 {
			s.IsolatedNodeIDs = append(s.IsolatedNodeIDs, n.ID)
		}
	}
	c := float64(len(nodes))
	s.TotalIncoming = Round2(s.TotalIncoming)
	s.TotalOutgoing = Round2(s.TotalOutgoing)
	s.AverageIncoming = Round2(s.TotalIncoming / c)
	s.AverageOutgoing = Round2(s.TotalOutgoing / c)
	s.AverageMain = Round2(totalMain / c)
	return s
}

// Centrality is half the degree plus half the summed weight of adjacent links
func Centrality(id string, links []Link) float64 {
	var degree, weight float64
	for _, l := range links {
		if l.Source == id || l.Target == id {
			degree++
			weight += l.Weight
		}
	}
	return degree*0.5 + weight*0.5
}

// NodeSize maps confidence onto the node size range
func NodeSize(n Node) float64 {
	conf := DefaultConfidence
	if n.Metadata.Confidence != nil {
		conf = *n.Metadata.Confidence
	}
	return Clamp(conf*ConfidenceMultiplier, NodeSizeMin, NodeSizeMax)
}

// DisplayOptions selects which value lines DisplayValue produces
type DisplayOptions struct {
	ShowMain  bool
	ShowInOut bool
}

// DisplayValue formats the value lines rendered under a node
func DisplayValue(n Node, opts DisplayOptions) []string {
	var lines []string
	if opts.ShowMain {
		if v, ok := mainText(n); ok {
			lines = append(lines, v)
		}
	}
	if opts.ShowInOut && n.HasValues {
		lines = append(lines, fmt.Sprintf("↓%.1f ↑%.1f", n.IncomingValue, n.OutgoingValue))
	}
	return lines
}

func mainText(n Node) (string, bool) {
	switch {
	case n.HasValues:
		return fmt.Sprintf("%.1f", n.MainValue), true
	case n.StressLevel != nil:
		return fmt.Sprintf("%.1f", *n.StressLevel), true
	case n.Metadata.Confidence != nil:
		return fmt.Sprintf("%.0f%%", *n.Metadata.Confidence*100), true
	case n.Metadata.SourceCount != nil:
		return fmt.Sprintf("%d", *n.Metadata.SourceCount), true
	}
	return "", false
}

// Prepare derives every computed node field from the dataset's links. The
// result shares nothing with ds.
func Prepare(ds Dataset, alt bool) Dataset {
	out := Dataset{
		Nodes: CalculateNodeValues(ds.Nodes, ds.Links),
		Links: make([]Link, len(ds.Links)),
	}
	copy(out.Links, ds.Links)
	for i := range out.Nodes {
		n := &out.Nodes[i]
		n.Color = NodeColor(n.Type, alt)
		n.Centrality = Centrality(n.ID, out.Links)
		n.Size = NodeSize(*n)
		n.Group = n.Type
	}
	return out
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp limits v to [lo, hi]
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
