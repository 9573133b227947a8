package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/foxseedlab/tsunagin/internal/transcriber"
	"github.com/gorilla/websocket"
)

// Connection parameters for the provider socket. Fixed, not negotiated per
// call: clients send 16-bit linear PCM at 16kHz mono.
const (
	audioEncoding   = "linear16"
	audioSampleRate = 16000
	audioChannels   = 1
)

type LiveSocketConfig struct {
	URL    string
	APIKey string
}

// LiveSocketProvider streams raw audio to a speech-to-text service over a
// websocket and parses its JSON transcription events.
type LiveSocketProvider struct {
	baseURL string
	apiKey  string
}

func NewLiveSocketProvider(cfg LiveSocketConfig) transcriber.Provider {
	return &LiveSocketProvider{
		baseURL: strings.TrimSpace(cfg.URL),
		apiKey:  strings.TrimSpace(cfg.APIKey),
	}
}

func (p *LiveSocketProvider) OpenStream(ctx context.Context, info transcriber.StreamInfo, handler transcriber.Handler) (transcriber.Stream, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	q := u.Query()
	q.Set("encoding", audioEncoding)
	q.Set("sample_rate", fmt.Sprintf("%d", audioSampleRate))
	q.Set("channels", fmt.Sprintf("%d", audioChannels))
	if info.Language != "" {
		q.Set("language", info.Language)
	}
	// Tags the stream so provider-side logs can be tied back to a call.
	q.Set("tag", info.CallID+":"+info.Source)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if p.apiKey != "" {
		header.Set("Authorization", "Token "+p.apiKey)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial provider socket: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial provider socket: %w", err)
	}
	slog.Info("transcription socket opened", "call_id", info.CallID, "source", info.Source)

	s := &liveSocketStream{
		conn:    conn,
		info:    info,
		handler: handler,
	}
	// The socket accepts audio as soon as the handshake completes.
	handler.OnReady()
	go s.readLoop()
	return s, nil
}

type liveSocketStream struct {
	info    transcriber.StreamInfo
	handler transcriber.Handler

	mu     sync.Mutex
	closed bool
	conn   *websocket.Conn
}

func (s *liveSocketStream) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (s *liveSocketStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

// liveSocketEvent is the provider's transcription event. Only the first
// alternative is consumed.
type liveSocketEvent struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (s *liveSocketStream) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.closed = true
			if !closed {
				_ = s.conn.Close()
			}
			s.mu.Unlock()
			if closed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Info("transcription socket closed", "call_id", s.info.CallID, "source", s.info.Source)
				return
			}
			s.handler.OnError(err)
			return
		}

		var event liveSocketEvent
		if err := json.Unmarshal(data, &event); err != nil {
			slog.Warn("unparseable provider event", "error", err, "call_id", s.info.CallID, "source", s.info.Source)
			continue
		}
		if len(event.Channel.Alternatives) == 0 {
			continue
		}
		s.handler.OnTranscript(transcriber.Result{
			Text:  event.Channel.Alternatives[0].Transcript,
			Final: event.IsFinal,
		})
	}
}
