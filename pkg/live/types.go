package live

import (
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/shell"
)

// MessageType is the first byte of a binary frame
type MessageType uint8

const (
	// Frame types
	FrameState   MessageType = 0x00
	FrameEvent   MessageType = 0x01
	FrameControl MessageType = 0x02
)

// Session encodings
const (
	EncodingJSON   = "json"
	EncodingSnappy = "snappy"
)

// Client message types
const (
	MsgClick      = "click"
	MsgFlags      = "flags"
	MsgResize     = "resize"
	MsgZoom       = "zoom"
	MsgPan        = "pan"
	MsgDrag       = "drag"
	MsgRelease    = "release"
	MsgDivider    = "divider"
	MsgFullscreen = "fullscreen"
)

// Server message types
const (
	MsgHello = "hello"
	MsgFrame = "frame"
	MsgNode  = "node"
	MsgError = "error"
)

// ClientMessage is what the browser sends. Only the fields its Type uses
// are read.
type ClientMessage struct {
	Type   string         `json:"type"`
	X      float64        `json:"x,omitempty"`
	Y      float64        `json:"y,omitempty"`
	DX     float64        `json:"dx,omitempty"`
	DY     float64        `json:"dy,omitempty"`
	Factor float64        `json:"factor,omitempty"`
	Width  float64        `json:"width,omitempty"`
	Height float64        `json:"height,omitempty"`
	View   shell.ViewKind `json:"view,omitempty"`
	ID     string         `json:"id,omitempty"`
	Flags  *shell.Flags   `json:"flags,omitempty"`
}

// ServerMessage is pushed to clients. Frames carry both views painted as
// SVG documents.
type ServerMessage struct {
	Type     string         `json:"type"`
	Session  string         `json:"session,omitempty"`
	Seq      uint64         `json:"seq,omitempty"`
	Split    *shell.Split   `json:"split,omitempty"`
	Flags    *shell.Flags   `json:"flags,omitempty"`
	View2D   string         `json:"view2d,omitempty"`
	View3D   string         `json:"view3d,omitempty"`
	Degraded bool           `json:"degraded,omitempty"`
	View     shell.ViewKind `json:"view,omitempty"`
	Node     *graph.Node    `json:"node,omitempty"`
	Error    string         `json:"error,omitempty"`
}
