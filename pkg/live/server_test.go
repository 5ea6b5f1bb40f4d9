package live

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/dualgraph/internal/metrics"
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/render"
	"github.com/recera/dualgraph/pkg/shell"
)

type fakeViewer struct {
	mu       sync.Mutex
	flags    shell.Flags
	resized  [2]float64
	zoom3d   float64
	divider  float64
	released string
	calls    chan string
}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{calls: make(chan string, 16)}
}

func (f *fakeViewer) note(call string) { f.calls <- call }

func (f *fakeViewer) Frame2D() render.Frame2D {
	return render.Frame2D{Width: 100, Height: 80, Background: "#000000"}
}

func (f *fakeViewer) Frame3D() render.Frame3D {
	return render.DegradedFrame3D(100, 80, render.Default3DStyle())
}

func (f *fakeViewer) Split() shell.Split { return shell.NewSplit(200, 80, 20) }

func (f *fakeViewer) Flags() shell.Flags {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags
}

func (f *fakeViewer) SetFlags(fl shell.Flags) {
	f.mu.Lock()
	f.flags = fl
	f.mu.Unlock()
	f.note(MsgFlags)
}

func (f *fakeViewer) Click(x, y float64) (graph.Node, shell.ViewKind, bool) {
	if x < 10 && y < 10 {
		return graph.Node{ID: "a", Label: "Alpha"}, shell.View2D, true
	}
	return graph.Node{}, "", false
}

func (f *fakeViewer) Drag(kind shell.ViewKind, id string, x, y float64) bool { return id == "a" }

func (f *fakeViewer) Release(kind shell.ViewKind, id string) {
	f.mu.Lock()
	f.released = id
	f.mu.Unlock()
	f.note(MsgRelease)
}

func (f *fakeViewer) Zoom2D(x, y, factor float64) {}

func (f *fakeViewer) Zoom3D(factor float64) bool {
	f.mu.Lock()
	f.zoom3d = factor
	f.mu.Unlock()
	f.note(MsgZoom)
	return true
}

func (f *fakeViewer) Pan2D(dx, dy float64) {}

func (f *fakeViewer) RequestResize(w, h float64) {
	f.mu.Lock()
	f.resized = [2]float64{w, h}
	f.mu.Unlock()
	f.note(MsgResize)
}

func (f *fakeViewer) RequestDivider(x float64) {
	f.mu.Lock()
	f.divider = x
	f.mu.Unlock()
	f.note(MsgDivider)
}

func (f *fakeViewer) ToggleFullscreen(kind shell.ViewKind) {}

func newTestServer(t *testing.T, opts Options) (*Server, *fakeViewer, *httptest.Server) {
	t.Helper()
	v := newFakeViewer()
	s := NewServer(v, opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, v, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	var msg ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func readSnappy(t *testing.T, conn *websocket.Conn) (MessageType, ServerMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, kind)
	typ, _, payload, err := DecodeBinary(data)
	require.NoError(t, err)
	var msg ServerMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	return typ, msg
}

func waitCall(t *testing.T, v *fakeViewer, want string) {
	t.Helper()
	select {
	case got := <-v.calls:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("viewer never received %s", want)
	}
}

func TestHelloAndFrame(t *testing.T) {
	s, _, ts := newTestServer(t, Options{})
	conn := dial(t, ts, "")

	hello := readJSON(t, conn)
	assert.Equal(t, MsgHello, hello.Type)
	_, err := uuid.Parse(hello.Session)
	assert.NoError(t, err)
	assert.Equal(t, 1, s.SessionCount())

	s.Broadcast()
	frame := readJSON(t, conn)
	assert.Equal(t, MsgFrame, frame.Type)
	assert.Equal(t, uint64(1), frame.Seq)
	assert.True(t, strings.HasPrefix(frame.View2D, "<svg"))
	assert.Contains(t, frame.View3D, render.DegradedNotice)
	assert.True(t, frame.Degraded)
	require.NotNil(t, frame.Split)
	assert.Equal(t, 200.0, frame.Split.Width)
}

func TestSnappySession(t *testing.T) {
	s, _, ts := newTestServer(t, Options{})
	conn := dial(t, ts, "?encoding=snappy")

	typ, hello := readSnappy(t, conn)
	assert.Equal(t, FrameControl, typ)
	assert.Equal(t, MsgHello, hello.Type)

	s.Broadcast()
	typ, frame := readSnappy(t, conn)
	assert.Equal(t, FrameState, typ)
	assert.Equal(t, MsgFrame, frame.Type)

	// binary client messages are accepted too
	payload, _ := json.Marshal(ClientMessage{Type: MsgClick, X: 1, Y: 1})
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, EncodeBinary(FrameEvent, 0, payload)))
	typ, node := readSnappy(t, conn)
	assert.Equal(t, FrameEvent, typ)
	assert.Equal(t, "a", node.Node.ID)
}

func TestUnknownEncodingRejected(t *testing.T) {
	_, _, ts := newTestServer(t, Options{})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live?encoding=gzip"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClientMessages(t *testing.T) {
	reg := metrics.NewRegistry()
	_, v, ts := newTestServer(t, Options{Metrics: reg})
	conn := dial(t, ts, "")
	readJSON(t, conn)

	send := func(m ClientMessage) {
		require.NoError(t, conn.WriteJSON(m))
	}

	send(ClientMessage{Type: MsgClick, X: 2, Y: 3})
	node := readJSON(t, conn)
	assert.Equal(t, MsgNode, node.Type)
	assert.Equal(t, shell.View2D, node.View)
	assert.Equal(t, "Alpha", node.Node.Label)

	flags := shell.Flags{Rotating: true}
	flags.Bidirectional = true
	send(ClientMessage{Type: MsgFlags, Flags: &flags})
	waitCall(t, v, MsgFlags)
	assert.Equal(t, flags, v.Flags())

	send(ClientMessage{Type: MsgResize, Width: 640, Height: 480})
	waitCall(t, v, MsgResize)

	send(ClientMessage{Type: MsgZoom, View: shell.View3D, Factor: 1.5})
	waitCall(t, v, MsgZoom)

	send(ClientMessage{Type: MsgDivider, X: 90})
	waitCall(t, v, MsgDivider)

	send(ClientMessage{Type: MsgRelease, View: shell.View2D, ID: "a"})
	waitCall(t, v, MsgRelease)

	v.mu.Lock()
	assert.Equal(t, [2]float64{640, 480}, v.resized)
	assert.Equal(t, 1.5, v.zoom3d)
	assert.Equal(t, 90.0, v.divider)
	assert.Equal(t, "a", v.released)
	v.mu.Unlock()
}

func TestBadMessagesGetErrors(t *testing.T) {
	_, _, ts := newTestServer(t, Options{})
	conn := dial(t, ts, "")
	readJSON(t, conn)

	for _, raw := range []string{
		`{"type": "explode"}`,
		`{"type": "resize", "width": 0}`,
		`{"type": "flags"}`,
		`{"type": "drag", "view": "2d", "id": "zzz"}`,
		`{"type": "fullscreen", "view": "4d"}`,
		`not json`,
	} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
		msg := readJSON(t, conn)
		assert.Equal(t, MsgError, msg.Type, raw)
		assert.NotEmpty(t, msg.Error, raw)
	}
}

func TestRunClosesSessionsOnCancel(t *testing.T) {
	s, _, ts := newTestServer(t, Options{Interval: 10 * time.Millisecond})
	conn := dial(t, ts, "")
	readJSON(t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// the loop pushes frames on its own
	frame := readJSON(t, conn)
	assert.Equal(t, MsgFrame, frame.Type)

	cancel()
	require.NoError(t, <-done)
	assert.Eventually(t, func() bool { return s.SessionCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestSnapshots(t *testing.T) {
	_, _, ts := newTestServer(t, Options{Metrics: metrics.NewRegistry()})

	tests := []struct {
		path        string
		status      int
		contentType string
		prefix      []byte
	}{
		{"/snapshot/2d.svg", http.StatusOK, "image/svg+xml", []byte("<svg")},
		{"/snapshot/3d.svg", http.StatusOK, "image/svg+xml", []byte("<svg")},
		{"/snapshot/2d.png", http.StatusOK, "image/png", []byte("\x89PNG")},
		{"/snapshot/3d.json", http.StatusOK, "application/json", []byte("{")},
		{"/snapshot/2d.gif", http.StatusNotFound, "", nil},
		{"/snapshot/4d.svg", http.StatusNotFound, "", nil},
		{"/", http.StatusOK, "text/html; charset=utf-8", []byte("<!DOCTYPE html>")},
		{"/metrics", http.StatusOK, "", []byte("# HELP")},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := ts.Client().Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
			}
			if tt.prefix != nil {
				assert.True(t, bytes.HasPrefix(body, tt.prefix), "body starts %q", body[:min(len(body), 16)])
			}
		})
	}
}

func TestCodecStrings(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteString("HELLO"))
	require.NoError(t, enc.WriteUvarint(300))

	dec := NewDecoder(buf.Bytes())
	s, err := dec.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "HELLO", s)
	n, err := dec.ReadUvarint()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), n)

	_, err = NewDecoder([]byte{0x09, 'a'}).ReadString()
	assert.Error(t, err)

	_, _, _, err = DecodeBinary([]byte{0x00})
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestBinaryFrameRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("decode inverts encode", prop.ForAll(
		func(t uint8, seq uint64, payload string) bool {
			typ, gotSeq, got, err := DecodeBinary(EncodeBinary(MessageType(t%3), seq, []byte(payload)))
			return err == nil && typ == MessageType(t%3) && gotSeq == seq && string(got) == payload
		},
		gen.UInt8(),
		gen.UInt64(),
		gen.AnyString(),
	))
	properties.TestingRun(t)
}
