package gateway

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxmail/internal/assistant"
	"voxmail/internal/speech"
	"voxmail/pkg/protocol"
)

const (
	sendBuffer   = 64
	turnBuffer   = 8
	writeTimeout = 10 * time.Second
	maxFrameSize = 16 << 20
)

// Assistant is the controller surface the gateway drives.
type Assistant interface {
	ProcessUtterance(ctx context.Context, text string)
	Stop()
	SetMuted(on bool)
	Transcript() []assistant.Entry
	Language() string
}

type ClipTranscriber interface {
	Transcribe(ctx context.Context, data []byte, format, lang string) (string, error)
}

type Server struct {
	asst     Assistant
	clips    ClipTranscriber
	origins  map[string]bool
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New builds the gateway. clips may be nil when no recogniser is configured;
// audio frames are then answered with an error frame.
func New(asst Assistant, clips ClipTranscriber, allowedOrigins []string) *Server {
	s := &Server{
		asst:    asst,
		clips:   clips,
		origins: make(map[string]bool),
		clients: make(map[*client]struct{}),
	}
	for _, o := range allowedOrigins {
		s.origins[o] = true
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients
		return true
	}
	return s.origins[origin]
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

type client struct {
	id   string
	send chan protocol.Frame
	once sync.Once
	done chan struct{}

	// ids already delivered in the connected history, guarded by Server.mu
	inHistory map[string]struct{}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// push queues f without blocking. A client that cannot keep up loses frames.
func (c *client) push(f protocol.Frame) bool {
	select {
	case <-c.done:
		return false
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	c := &client{
		id:   uuid.NewString(),
		send: make(chan protocol.Frame, sendBuffer),
		done: make(chan struct{}),
	}
	l := log.With("session", c.id)
	l.Info("Client connected", "remote", r.RemoteAddr)

	s.register(c)
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		c.close()
		l.Info("Client disconnected")
	}()

	go s.writeLoop(conn, c, l)

	// turns outlive the connection so a disconnect never leaves a half-applied
	// step behind
	turnCtx := context.WithoutCancel(r.Context())
	turns := make(chan protocol.Frame, turnBuffer)
	defer close(turns)
	go s.turnLoop(turnCtx, c, turns, l)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warn("WebSocket closed unexpectedly", "err", err)
			}
			return
		}

		f, err := protocol.Decode(data)
		if err != nil {
			l.Debug("Invalid frame", "err", err)
			c.push(protocol.Error("Invalid frame: " + err.Error()))
			continue
		}

		switch f.Type {
		case protocol.TypeUtterance, protocol.TypeAudio:
			select {
			case turns <- f:
			default:
				c.push(protocol.Error("Too many pending turns, please wait."))
			}
		case protocol.TypeStop:
			s.asst.Stop()
		case protocol.TypeMute:
			s.asst.SetMuted(f.On)
		default:
			c.push(protocol.Error("Unexpected frame type " + string(f.Type)))
		}
	}
}

func (s *Server) turnLoop(ctx context.Context, c *client, turns <-chan protocol.Frame, l *log.Logger) {
	for f := range turns {
		text := f.Text
		if f.Type == protocol.TypeAudio {
			var err error
			text, err = s.transcribe(ctx, f)
			if err != nil {
				l.Warn("Failed to transcribe clip", "err", err)
				if errors.Is(err, speech.ErrUnsupported) {
					c.push(protocol.Error("Voice recognition is not supported on this device."))
				} else {
					c.push(protocol.Error("Sorry, there was a recognition error."))
				}
				continue
			}
		}
		s.asst.ProcessUtterance(ctx, text)
	}
}

func (s *Server) transcribe(ctx context.Context, f protocol.Frame) (string, error) {
	if s.clips == nil {
		return "", speech.ErrUnsupported
	}
	return s.clips.Transcribe(ctx, f.Data, f.Format, s.asst.Language())
}

func (s *Server) writeLoop(conn *websocket.Conn, c *client, l *log.Logger) {
	for {
		select {
		case <-c.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case f := <-c.send:
			data, err := protocol.Encode(f)
			if err != nil {
				l.Error("Failed to encode frame", "err", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				l.Warn("Failed to write to WebSocket", "err", err)
				c.close()
				conn.Close()
				return
			}
		}
	}
}

// register queues the connected frame and adds c to the broadcast set in one
// critical section, so every entry reaches c either in its history or as a
// broadcast. Entries appended before the snapshot but published after it are
// skipped by Publish.
func (s *Server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.asst.Transcript()
	history := make([]protocol.Entry, 0, len(entries))
	c.inHistory = make(map[string]struct{}, len(entries))
	for _, e := range entries {
		history = append(history, toWire(e))
		c.inHistory[e.ID] = struct{}{}
	}
	c.push(protocol.Frame{Type: protocol.TypeConnected, Session: c.id, History: history})
	s.clients[c] = struct{}{}
}

// Publish implements assistant.Sink by broadcasting the entry to every
// connected client.
func (s *Server) Publish(_ context.Context, e assistant.Entry) {
	w := toWire(e)
	f := protocol.Frame{Type: protocol.TypeEntry, Entry: &w}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if _, seen := c.inHistory[e.ID]; seen {
			delete(c.inHistory, e.ID)
			continue
		}
		if !c.push(f) {
			log.Warn("Dropping entry for slow client", "session", c.id, "entry", e.ID)
		}
	}
}

func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func toWire(e assistant.Entry) protocol.Entry {
	w := protocol.Entry{
		ID:            e.ID,
		Text:          e.Text,
		FromAssistant: e.FromAssistant,
		Timestamp:     e.Timestamp,
	}
	if e.Preview != nil {
		w.Preview = &protocol.Preview{To: e.Preview.Recipient, Subject: e.Preview.Subject, Body: e.Preview.Body}
	}
	return w
}
