//go:build !wasm

package live

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/internal/metrics"
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/render"
	"github.com/recera/dualgraph/pkg/shell"
)

//go:embed index.html
var assets embed.FS

// Viewer is the part of the shell the server drives
type Viewer interface {
	Frame2D() render.Frame2D
	Frame3D() render.Frame3D
	Split() shell.Split
	Flags() shell.Flags
	SetFlags(shell.Flags)
	Click(x, y float64) (graph.Node, shell.ViewKind, bool)
	Drag(kind shell.ViewKind, id string, x, y float64) bool
	Release(kind shell.ViewKind, id string)
	Zoom2D(x, y, factor float64)
	Zoom3D(factor float64) bool
	Pan2D(dx, dy float64)
	RequestResize(width, height float64)
	RequestDivider(x float64)
	ToggleFullscreen(kind shell.ViewKind)
}

// Options configures a Server
type Options struct {
	// Interval between broadcast frames
	Interval time.Duration
	// Encoding used when a client does not ask for one
	Encoding string
	Logger   logging.Logger
	Metrics  *metrics.Registry
}

const (
	sendBuffer   = 16
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
	readWait     = 5 * time.Minute
)

// Server pushes frames of one viewer to any number of websocket clients
type Server struct {
	viewer   Viewer
	opts     Options
	log      logging.Logger
	upgrader websocket.Upgrader
	sessions map[string]*Session
	mu       sync.RWMutex
	seq      atomic.Uint64
}

// Session represents a live connection session
type Session struct {
	ID        string
	encoding  string
	conn      *websocket.Conn
	server    *Server
	send      chan outgoing
	closeChan chan struct{}
	closeOnce sync.Once
	log       logging.Logger
}

type outgoing struct {
	kind int
	data []byte
}

// NewServer creates a new live protocol server
func NewServer(v Viewer, opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 30
	}
	if opts.Encoding != EncodingSnappy {
		opts.Encoding = EncodingJSON
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Server{
		viewer: v,
		opts:   opts,
		log:    opts.Logger.With(logging.String("component", "live")),
		upgrader: websocket.Upgrader{
			// the preview is a local development tool
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
		sessions: make(map[string]*Session),
	}
}

// Handler returns the preview mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /live", s.HandleWebSocket)
	mux.HandleFunc("GET /snapshot/{file}", s.handleSnapshot)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := assets.ReadFile("index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// handleSnapshot serves /snapshot/{2d,3d}.{svg,png,json}
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	view, format, ok := strings.Cut(r.PathValue("file"), ".")
	if !ok || (view != string(shell.View2D) && view != string(shell.View3D)) {
		http.NotFound(w, r)
		return
	}
	enc, err := render.EncoderFor(format)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if view == string(shell.View2D) {
		err = enc.Encode2D(&buf, s.viewer.Frame2D())
	} else {
		err = enc.Encode3D(&buf, s.viewer.Frame3D())
	}
	if err != nil {
		s.log.Error("snapshot failed", logging.View(view), logging.Err(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", enc.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// HandleWebSocket upgrades the request and serves the session until the
// client goes away. ?encoding=snappy selects compressed binary frames.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	encoding := s.opts.Encoding
	if e := r.URL.Query().Get("encoding"); e != "" {
		if e != EncodingJSON && e != EncodingSnappy {
			http.Error(w, fmt.Sprintf("unknown encoding %q", e), http.StatusBadRequest)
			return
		}
		encoding = e
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("failed to upgrade connection", logging.Err(err))
		return
	}

	id := uuid.NewString()
	session := &Session{
		ID:        id,
		encoding:  encoding,
		conn:      conn,
		server:    s,
		send:      make(chan outgoing, sendBuffer),
		closeChan: make(chan struct{}),
		log:       s.log.With(logging.Session(id)),
	}
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()
	if s.opts.Metrics != nil {
		s.opts.Metrics.LiveClients.Inc()
	}
	session.log.Info("client connected", logging.String("encoding", encoding))

	session.handleConnection()
}

// SessionCount returns the number of connected clients
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok && s.opts.Metrics != nil {
		s.opts.Metrics.LiveClients.Dec()
	}
}

// Run broadcasts a frame every interval until ctx is done, then closes
// every session
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		case <-ticker.C:
			if s.SessionCount() > 0 {
				s.Broadcast()
			}
		}
	}
}

func (s *Server) closeAll() {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()
	for _, sess := range sessions {
		sess.close()
	}
}

// Broadcast paints the current frame once and queues it on every session
func (s *Server) Broadcast() {
	msg, err := s.frameMessage()
	if err != nil {
		s.log.Error("frame paint failed", logging.Err(err))
		return
	}
	seq := msg.Seq
	text, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("frame marshal failed", logging.Err(err))
		return
	}
	var compressed []byte

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.encoding == EncodingSnappy {
			if compressed == nil {
				compressed = EncodeBinary(FrameState, seq, text)
			}
			sess.queue(outgoing{websocket.BinaryMessage, compressed}, true)
			continue
		}
		sess.queue(outgoing{websocket.TextMessage, text}, true)
	}
}

func (s *Server) frameMessage() (ServerMessage, error) {
	svg, err := render.EncoderFor("svg")
	if err != nil {
		return ServerMessage{}, err
	}
	split := s.viewer.Split()
	flags := s.viewer.Flags()
	f3 := s.viewer.Frame3D()

	var b2, b3 bytes.Buffer
	if err := svg.Encode2D(&b2, s.viewer.Frame2D()); err != nil {
		return ServerMessage{}, err
	}
	if err := svg.Encode3D(&b3, f3); err != nil {
		return ServerMessage{}, err
	}
	return ServerMessage{
		Type:     MsgFrame,
		Seq:      s.seq.Add(1),
		Split:    &split,
		Flags:    &flags,
		View2D:   b2.String(),
		View3D:   b3.String(),
		Degraded: f3.Degraded,
	}, nil
}

// handleConnection manages the WebSocket connection for a session
func (s *Session) handleConnection() {
	defer func() {
		s.close()
		s.server.removeSession(s.ID)
		s.log.Info("client disconnected")
	}()

	go s.writer()
	s.reply(ServerMessage{Type: MsgHello, Session: s.ID})

	s.conn.SetReadDeadline(time.Now().Add(readWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("unexpected close", logging.Err(err))
			}
			return
		}

		if messageType == websocket.BinaryMessage {
			t, _, payload, err := DecodeBinary(data)
			if err != nil || t != FrameEvent {
				s.replyError(fmt.Errorf("bad binary frame: %v", err))
				continue
			}
			data = payload
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.record("invalid", false)
			s.replyError(fmt.Errorf("bad message: %w", err))
			continue
		}
		if err := s.dispatch(msg); err != nil {
			s.record(msg.Type, false)
			s.replyError(err)
			continue
		}
		s.record(msg.Type, true)
	}
}

func (s *Session) record(kind string, ok bool) {
	if m := s.server.opts.Metrics; m != nil {
		m.RecordClientMessage(kind, ok)
	}
}

// dispatch applies one client message to the viewer
func (s *Session) dispatch(msg ClientMessage) error {
	v := s.server.viewer
	switch msg.Type {
	case MsgClick:
		n, kind, ok := v.Click(msg.X, msg.Y)
		if ok {
			s.reply(ServerMessage{Type: MsgNode, View: kind, Node: &n})
		}
	case MsgFlags:
		if msg.Flags == nil {
			return fmt.Errorf("flags message without flags")
		}
		v.SetFlags(*msg.Flags)
	case MsgResize:
		if msg.Width <= 0 || msg.Height <= 0 {
			return fmt.Errorf("resize to %vx%v", msg.Width, msg.Height)
		}
		v.RequestResize(msg.Width, msg.Height)
	case MsgZoom:
		if msg.Factor <= 0 {
			return fmt.Errorf("zoom factor %v", msg.Factor)
		}
		if msg.View == shell.View3D {
			v.Zoom3D(msg.Factor)
		} else {
			v.Zoom2D(msg.X, msg.Y, msg.Factor)
		}
	case MsgPan:
		v.Pan2D(msg.DX, msg.DY)
	case MsgDrag:
		if !v.Drag(msg.View, msg.ID, msg.X, msg.Y) {
			return fmt.Errorf("no node %q in %s view", msg.ID, msg.View)
		}
	case MsgRelease:
		v.Release(msg.View, msg.ID)
	case MsgDivider:
		v.RequestDivider(msg.X)
	case MsgFullscreen:
		if msg.View != shell.View2D && msg.View != shell.View3D {
			return fmt.Errorf("unknown view %q", msg.View)
		}
		v.ToggleFullscreen(msg.View)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (s *Session) reply(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("reply marshal failed", logging.Err(err))
		return
	}
	if s.encoding == EncodingSnappy {
		t := FrameEvent
		if msg.Type == MsgHello {
			t = FrameControl
		}
		s.queue(outgoing{websocket.BinaryMessage, EncodeBinary(t, msg.Seq, data)}, false)
		return
	}
	s.queue(outgoing{websocket.TextMessage, data}, false)
}

func (s *Session) replyError(err error) {
	s.log.Debug("client message rejected", logging.Err(err))
	s.reply(ServerMessage{Type: MsgError, Error: err.Error()})
}

// queue hands a message to the writer. Frames are dropped when the client
// is behind; replies wait for room.
func (s *Session) queue(m outgoing, droppable bool) {
	if droppable {
		select {
		case s.send <- m:
		case <-s.closeChan:
		default:
			s.log.Debug("frame dropped for slow client")
		}
		return
	}
	select {
	case s.send <- m:
	case <-s.closeChan:
	}
}

// writer handles writing messages to the WebSocket
func (s *Session) writer() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case m := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(m.kind, m.data); err != nil {
				s.log.Debug("write failed", logging.Err(err))
				s.close()
				return
			}
			if met := s.server.opts.Metrics; met != nil {
				met.RecordFrameSent(s.encoding, len(m.data))
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}

		case <-s.closeChan:
			return
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closeChan)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.conn.Close()
	})
}
