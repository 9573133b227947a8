package transcriber

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/tsunagin/internal/transcriber"
	"github.com/gorilla/websocket"
)

type capturedDial struct {
	mu    sync.Mutex
	query map[string]string
	auth  string
}

func (d *capturedDial) get(key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query[key]
}

func (d *capturedDial) authorization() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.auth
}

func newSTTServer(t *testing.T) (*httptest.Server, chan *websocket.Conn, *capturedDial) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	dial := &capturedDial{}
	conns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dial.mu.Lock()
		dial.query = make(map[string]string)
		for key, values := range r.URL.Query() {
			dial.query[key] = values[0]
		}
		dial.auth = r.Header.Get("Authorization")
		dial.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		conns <- conn
	}))
	t.Cleanup(server.Close)
	return server, conns, dial
}

type testHandler struct {
	ready   chan struct{}
	results chan transcriber.Result
	errs    chan error
	once    sync.Once
}

func newTestHandler() *testHandler {
	return &testHandler{
		ready:   make(chan struct{}),
		results: make(chan transcriber.Result, 16),
		errs:    make(chan error, 16),
	}
}

func (h *testHandler) OnReady() {
	h.once.Do(func() { close(h.ready) })
}

func (h *testHandler) OnTranscript(result transcriber.Result) {
	h.results <- result
}

func (h *testHandler) OnError(err error) {
	h.errs <- err
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func openTestStream(t *testing.T, server *httptest.Server, conns chan *websocket.Conn, handler *testHandler) (transcriber.Stream, *websocket.Conn) {
	t.Helper()
	provider := NewLiveSocketProvider(LiveSocketConfig{URL: wsURL(server), APIKey: "test-key"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := provider.OpenStream(ctx, transcriber.StreamInfo{CallID: "c1", Source: "mic", Language: "en-US"}, handler)
	if err != nil {
		t.Fatalf("open stream failed: %v", err)
	}
	select {
	case remote := <-conns:
		return stream, remote
	case <-time.After(5 * time.Second):
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func TestOpenStreamDialParametersAndReadiness(t *testing.T) {
	server, conns, dial := newSTTServer(t)
	handler := newTestHandler()
	stream, _ := openTestStream(t, server, conns, handler)
	defer func() { _ = stream.Close() }()

	select {
	case <-handler.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("OnReady never fired")
	}

	if got := dial.get("encoding"); got != "linear16" {
		t.Fatalf("unexpected encoding: %s", got)
	}
	if got := dial.get("sample_rate"); got != "16000" {
		t.Fatalf("unexpected sample rate: %s", got)
	}
	if got := dial.get("channels"); got != "1" {
		t.Fatalf("unexpected channels: %s", got)
	}
	if got := dial.get("language"); got != "en-US" {
		t.Fatalf("unexpected language: %s", got)
	}
	if got := dial.get("tag"); got != "c1:mic" {
		t.Fatalf("unexpected tag: %s", got)
	}
	if got := dial.authorization(); got != "Token test-key" {
		t.Fatalf("unexpected authorization header: %s", got)
	}
}

func TestStreamForwardsFramesInOrder(t *testing.T) {
	server, conns, _ := newSTTServer(t)
	handler := newTestHandler()
	stream, remote := openTestStream(t, server, conns, handler)
	defer func() { _ = stream.Close() }()

	if err := stream.Send([]byte("frame-1")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := stream.Send([]byte("frame-2")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	for i, want := range []string{"frame-1", "frame-2"} {
		messageType, data, err := remote.ReadMessage()
		if err != nil {
			t.Fatalf("server read %d failed: %v", i, err)
		}
		if messageType != websocket.BinaryMessage {
			t.Fatalf("expected binary frame, got type %d", messageType)
		}
		if string(data) != want {
			t.Fatalf("frame %d: got %q, want %q", i, data, want)
		}
	}
}

func TestStreamParsesTranscriptionEvents(t *testing.T) {
	server, conns, _ := newSTTServer(t)
	handler := newTestHandler()
	stream, remote := openTestStream(t, server, conns, handler)
	defer func() { _ = stream.Close() }()

	events := []string{
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello there"}]}}`,
		`{"type":"Metadata"}`,
		`not json at all`,
	}
	for _, event := range events {
		if err := remote.WriteMessage(websocket.TextMessage, []byte(event)); err != nil {
			t.Fatalf("server write failed: %v", err)
		}
	}

	want := []transcriber.Result{
		{Text: "hel", Final: false},
		{Text: "hello there", Final: true},
	}
	for i, expected := range want {
		select {
		case got := <-handler.results:
			if got != expected {
				t.Fatalf("result %d: got %+v, want %+v", i, got, expected)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("result %d never arrived", i)
		}
	}
	select {
	case got := <-handler.results:
		t.Fatalf("unexpected extra result: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendAfterCloseIsRejected(t *testing.T) {
	server, conns, _ := newSTTServer(t)
	handler := newTestHandler()
	stream, _ := openTestStream(t, server, conns, handler)

	if err := stream.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if err := stream.Send([]byte("late")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected io.ErrClosedPipe, got %v", err)
	}

	// A locally closed stream must not surface a read error.
	select {
	case err := <-handler.errs:
		t.Fatalf("unexpected error after local close: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestAbruptRemoteCloseReportsError(t *testing.T) {
	server, conns, _ := newSTTServer(t)
	handler := newTestHandler()
	stream, remote := openTestStream(t, server, conns, handler)
	defer func() { _ = stream.Close() }()

	// Kill the TCP connection without a close handshake.
	_ = remote.UnderlyingConn().Close()

	select {
	case err := <-handler.errs:
		if err == nil {
			t.Fatal("expected non-nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError never fired after abrupt close")
	}

	// The read loop released the connection, so the stream is done.
	if err := stream.Send([]byte("late")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected io.ErrClosedPipe after remote failure, got %v", err)
	}
}

func TestDialFailureReturnsError(t *testing.T) {
	server, _, _ := newSTTServer(t)
	server.Close()

	provider := NewLiveSocketProvider(LiveSocketConfig{URL: wsURL(server)})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := provider.OpenStream(ctx, transcriber.StreamInfo{CallID: "c1", Source: "mic"}, newTestHandler())
	if err == nil {
		t.Fatal("expected dial error")
	}
}
