package graph

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// NodeType classifies a node. Unknown types are allowed and fall back to
// neutral styling.
type NodeType string

const (
	Environment NodeType = "environment"
	Boundary    NodeType = "boundary"
	System      NodeType = "system"
)

// Metadata holds optional provenance about a node
type Metadata struct {
	Confidence  *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	SourceCount *int     `json:"sourceCount,omitempty" yaml:"sourceCount,omitempty" validate:"omitempty,gte=0"`
}

// Node represents a graph node.
//
// The fields below the blank line are derived by Prepare and must not be
// edited by hand. Pos is owned by the layout engine holding this copy.
type Node struct {
	ID          string   `json:"id" validate:"required"`
	Type        NodeType `json:"type"`
	Label       string   `json:"label"`
	StressLevel *float64 `json:"stressLevel,omitempty" validate:"omitempty,gte=0"`
	Metadata    Metadata `json:"metadata"`

	MainValue           float64  `json:"mainValue"`
	IncomingValue       float64  `json:"incomingValue"`
	OutgoingValue       float64  `json:"outgoingValue"`
	OriginalStressLevel *float64 `json:"originalStressLevel,omitempty"`
	HasValues           bool     `json:"-"`
	Size                float64  `json:"size"`
	Centrality          float64  `json:"centrality"`
	Color               string   `json:"color,omitempty"`
	Group               NodeType `json:"group,omitempty"`

	Pos *r3.Vec `json:"-"`
}

// Link is a directed, weighted edge between two node ids
type Link struct {
	ID            string  `json:"id,omitempty"`
	Source        string  `json:"source" validate:"required"`
	Target        string  `json:"target" validate:"required"`
	Weight        float64 `json:"weight"`
	InfluenceType string  `json:"influenceType,omitempty"`

	// Set by the bidirectional expander
	IsReverse    bool `json:"isReverse,omitempty"`
	ParallelSign int  `json:"parallelSign,omitempty"`

	ShowArrow     bool          `json:"showArrow,omitempty"`
	ArrowPosition ArrowPosition `json:"arrowPosition,omitempty"`
	ArrowColor    string        `json:"arrowColor,omitempty"`
	ArrowLength   float64       `json:"arrowLength,omitempty"`
}

// Dataset is the logical graph shared by both views before cloning
type Dataset struct {
	Nodes []Node `json:"nodes" validate:"dive"`
	Links []Link `json:"links" validate:"dive"`
}

// Empty returns a dataset with no nodes and no links
func Empty() Dataset {
	return Dataset{Nodes: []Node{}, Links: []Link{}}
}

// Index maps node ids to their position in Nodes
func (d Dataset) Index() map[string]int {
	idx := make(map[string]int, len(d.Nodes))
	for i, n := range d.Nodes {
		idx[n.ID] = i
	}
	return idx
}

// Clone returns a deep copy. No pointer or slice is shared with the receiver,
// so two clones can be laid out independently.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Nodes: make([]Node, len(d.Nodes)),
		Links: make([]Link, len(d.Links)),
	}
	for i, n := range d.Nodes {
		out.Nodes[i] = n.Clone()
	}
	copy(out.Links, d.Links)
	return out
}

// Clone returns a deep copy of the node
func (n Node) Clone() Node {
	c := n
	c.StressLevel = clonePtr(n.StressLevel)
	c.OriginalStressLevel = clonePtr(n.OriginalStressLevel)
	c.Metadata.Confidence = clonePtr(n.Metadata.Confidence)
	c.Metadata.SourceCount = clonePtr(n.Metadata.SourceCount)
	c.Pos = clonePtr(n.Pos)
	return c
}

// CloneNodes deep-copies a node slice
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v. Handy for building datasets in code.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }
