package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"voxmail/internal/assistant"
	"voxmail/internal/compose"
	"voxmail/pkg/protocol"
)

type fakeAssistant struct {
	mu         sync.Mutex
	utterances []string
	stops      int
	muted      bool
	history    []assistant.Entry
	sink       assistant.Sink

	onTranscript func()
}

func (f *fakeAssistant) ProcessUtterance(ctx context.Context, text string) {
	f.mu.Lock()
	f.utterances = append(f.utterances, text)
	sink := f.sink
	f.mu.Unlock()

	sink.Publish(ctx, assistant.Entry{ID: "u", Text: text})
	sink.Publish(ctx, assistant.Entry{ID: "a", Text: "echo: " + text, FromAssistant: true})
}

func (f *fakeAssistant) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeAssistant) SetMuted(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = on
}

func (f *fakeAssistant) Transcript() []assistant.Entry {
	if f.onTranscript != nil {
		f.onTranscript()
	}
	return f.history
}

func (f *fakeAssistant) Language() string { return "en-US" }

type fakeClips struct {
	text string
	err  error

	mu  sync.Mutex
	got string
}

func (f *fakeClips) Transcribe(_ context.Context, data []byte, format, lang string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = format + ":" + lang + ":" + string(data)
	return f.text, f.err
}

func (f *fakeClips) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got
}

func startServer(t *testing.T, asst *fakeAssistant, clips ClipTranscriber, origins []string) (*Server, string) {
	t.Helper()
	srv := New(asst, clips, origins)
	asst.sink = srv

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string, hdr http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, hdr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	f, err := protocol.Decode(data)
	require.NoError(t, err)
	return f
}

func send(t *testing.T, conn *websocket.Conn, f protocol.Frame) {
	t.Helper()
	data, err := protocol.Encode(f)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestConnectedCarriesHistory(t *testing.T) {
	asst := &fakeAssistant{history: []assistant.Entry{
		{ID: "1", Text: "Welcome", FromAssistant: true},
		{ID: "2", Text: "preview", FromAssistant: true, Preview: &compose.Draft{Recipient: "bob", Subject: "s", Body: "b"}},
	}}
	_, url := startServer(t, asst, nil, nil)

	f := readFrame(t, dial(t, url, nil))
	require.Equal(t, protocol.TypeConnected, f.Type)
	require.NotEmpty(t, f.Session)
	require.Len(t, f.History, 2)
	require.Equal(t, &protocol.Preview{To: "bob", Subject: "s", Body: "b"}, f.History[1].Preview)
}

func newTestClient() *client {
	return &client{id: "c", send: make(chan protocol.Frame, sendBuffer), done: make(chan struct{})}
}

func TestRegister_HistoryAndBroadcastDoNotOverlap(t *testing.T) {
	asst := &fakeAssistant{history: []assistant.Entry{{ID: "1", Text: "Welcome", FromAssistant: true}}}
	srv := New(asst, nil, nil)
	c := newTestClient()

	srv.register(c)
	require.Equal(t, 1, srv.Clients())

	connected := <-c.send
	require.Equal(t, protocol.TypeConnected, connected.Type)
	require.Len(t, connected.History, 1)

	// "1" was appended before the snapshot but its broadcast arrives late
	srv.Publish(context.Background(), assistant.Entry{ID: "1", Text: "Welcome", FromAssistant: true})
	srv.Publish(context.Background(), assistant.Entry{ID: "2", Text: "open my inbox"})

	f := <-c.send
	require.Equal(t, "2", f.Entry.ID)
	require.Empty(t, c.send)
}

func TestRegister_EntryDuringSnapshotIsBroadcast(t *testing.T) {
	asst := &fakeAssistant{}
	srv := New(asst, nil, nil)
	c := newTestClient()

	published := make(chan struct{})
	asst.onTranscript = func() {
		go func() {
			srv.Publish(context.Background(), assistant.Entry{ID: "late", Text: "hello"})
			close(published)
		}()
	}

	srv.register(c)
	<-published

	require.Equal(t, protocol.TypeConnected, (<-c.send).Type)
	f := <-c.send
	require.Equal(t, protocol.TypeEntry, f.Type)
	require.Equal(t, "late", f.Entry.ID)
}

func TestUtteranceRoundTrip(t *testing.T) {
	asst := &fakeAssistant{}
	_, url := startServer(t, asst, nil, nil)
	conn := dial(t, url, nil)
	readFrame(t, conn)

	send(t, conn, protocol.Utterance("open my inbox"))

	f := readFrame(t, conn)
	require.Equal(t, protocol.TypeEntry, f.Type)
	require.Equal(t, "open my inbox", f.Entry.Text)
	require.False(t, f.Entry.FromAssistant)

	f = readFrame(t, conn)
	require.Equal(t, "echo: open my inbox", f.Entry.Text)
	require.True(t, f.Entry.FromAssistant)
}

func TestBroadcastToAllClients(t *testing.T) {
	asst := &fakeAssistant{}
	srv, url := startServer(t, asst, nil, nil)
	a := dial(t, url, nil)
	b := dial(t, url, nil)
	readFrame(t, a)
	readFrame(t, b)
	require.Eventually(t, func() bool { return srv.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	send(t, a, protocol.Utterance("hello"))
	require.Equal(t, "hello", readFrame(t, b).Entry.Text)
}

func TestStopAndMute(t *testing.T) {
	asst := &fakeAssistant{}
	_, url := startServer(t, asst, nil, nil)
	conn := dial(t, url, nil)
	readFrame(t, conn)

	send(t, conn, protocol.Stop())
	send(t, conn, protocol.Mute(true))

	require.Eventually(t, func() bool {
		asst.mu.Lock()
		defer asst.mu.Unlock()
		return asst.stops == 1 && asst.muted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInvalidFrame(t *testing.T) {
	_, url := startServer(t, &fakeAssistant{}, nil, nil)
	conn := dial(t, url, nil)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"shout"}`)))
	f := readFrame(t, conn)
	require.Equal(t, protocol.TypeError, f.Type)
	require.Contains(t, f.Text, "unknown frame type")
}

func TestAudioClip(t *testing.T) {
	asst := &fakeAssistant{}
	clips := &fakeClips{text: "read my first email"}
	_, url := startServer(t, asst, clips, nil)
	conn := dial(t, url, nil)
	readFrame(t, conn)

	send(t, conn, protocol.Audio("wav", []byte("RIFF")))
	require.Equal(t, "read my first email", readFrame(t, conn).Entry.Text)
	require.Equal(t, "wav:en-US:RIFF", clips.last())
}

func TestAudioClip_Unsupported(t *testing.T) {
	_, url := startServer(t, &fakeAssistant{}, nil, nil)
	conn := dial(t, url, nil)
	readFrame(t, conn)

	send(t, conn, protocol.Audio("wav", []byte("RIFF")))
	f := readFrame(t, conn)
	require.Equal(t, protocol.TypeError, f.Type)
	require.Equal(t, "Voice recognition is not supported on this device.", f.Text)
}

func TestAudioClip_Failure(t *testing.T) {
	clips := &fakeClips{err: errors.New("bad header")}
	_, url := startServer(t, &fakeAssistant{}, clips, nil)
	conn := dial(t, url, nil)
	readFrame(t, conn)

	send(t, conn, protocol.Audio("wav", []byte("junk")))
	require.Equal(t, "Sorry, there was a recognition error.", readFrame(t, conn).Text)
}

func TestOriginAllowList(t *testing.T) {
	_, url := startServer(t, &fakeAssistant{}, nil, []string{"https://mail.example.com"})

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, url, http.Header{"Origin": {"https://mail.example.com"}})
	require.Equal(t, protocol.TypeConnected, readFrame(t, conn).Type)

	// no Origin header: non-browser client
	conn = dial(t, url, nil)
	require.Equal(t, protocol.TypeConnected, readFrame(t, conn).Type)
}

func TestHealthz(t *testing.T) {
	srv := New(&fakeAssistant{}, nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
