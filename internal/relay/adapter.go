package relay

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/foxseedlab/tsunagin/internal/hub"
	"github.com/foxseedlab/tsunagin/internal/transcriber"
)

// ChannelAdapter bridges one audio source of one call to its downstream
// transcription stream. Frames sent before the stream signals readiness are
// buffered and flushed once, in receipt order; after readiness every frame
// is forwarded immediately. It doubles as the transcriber.Handler for its
// stream.
type ChannelAdapter struct {
	callID string
	source string
	call   *Call
	events hub.Broadcaster
	scope  hub.Scope
	limit  int

	mu       sync.Mutex
	stream   transcriber.Stream
	ready    bool
	flushed  bool
	closed   bool
	pending  [][]byte
	sent     int64
	buffered int64
	dropped  int64
}

func NewChannelAdapter(call *Call, source string, events hub.Broadcaster, scope hub.Scope, pendingLimit int) *ChannelAdapter {
	return &ChannelAdapter{
		callID: call.ID,
		source: source,
		call:   call,
		events: events,
		scope:  scope,
		limit:  pendingLimit,
	}
}

// Bind attaches the downstream stream once the provider has opened it.
func (a *ChannelAdapter) Bind(stream transcriber.Stream) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		// A remote error already stopped this adapter before the bind
		// landed; release the stream instead of holding it open.
		_ = stream.Close()
		return
	}
	a.stream = stream
	a.flushLocked()
}

// Fail marks the adapter permanently closed without a stream, used when the
// provider could not open one. Sends become no-ops.
func (a *ChannelAdapter) Fail() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.pending = nil
}

// Send forwards one binary frame, buffering it while the stream is not yet
// ready. Errors never propagate: a failed downstream stops this adapter and
// nothing else.
func (a *ChannelAdapter) Send(frame []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if !a.flushed {
		if len(a.pending) >= a.limit {
			a.pending = a.pending[1:]
			a.dropped++
			if a.dropped == 1 {
				slog.Warn("pending frame buffer full, dropping oldest frames", "call_id", a.callID, "source", a.source, "limit", a.limit)
			}
		}
		buf := make([]byte, len(frame))
		copy(buf, frame)
		a.pending = append(a.pending, buf)
		a.buffered++
		return
	}
	a.sendLocked(frame)
}

func (a *ChannelAdapter) sendLocked(frame []byte) {
	if err := a.stream.Send(frame); err != nil {
		slog.Error("downstream send failed, stopping adapter", "error", err, "call_id", a.callID, "source", a.source)
		a.abortLocked()
		return
	}
	a.sent++
}

// abortLocked permanently stops the adapter and releases its downstream
// stream, so the eventual teardown Close has nothing left to leak.
func (a *ChannelAdapter) abortLocked() {
	a.closed = true
	a.pending = nil
	if a.stream == nil {
		return
	}
	if err := a.stream.Close(); err != nil {
		slog.Warn("downstream close failed", "error", err, "call_id", a.callID, "source", a.source)
	}
	a.stream = nil
}

// flushLocked drains the pending buffer in receipt order exactly once, after
// which the buffer is never used again. Requires both readiness and a bound
// stream, whichever arrives last triggers it.
func (a *ChannelAdapter) flushLocked() {
	if a.flushed || a.closed || !a.ready || a.stream == nil {
		return
	}
	a.flushed = true
	for _, frame := range a.pending {
		if a.closed {
			break
		}
		a.sendLocked(frame)
	}
	a.pending = nil
}

// Close shuts the downstream stream. Idempotent and safe on a failed adapter.
func (a *ChannelAdapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.pending = nil
	stream := a.stream
	sent, buffered, dropped := a.sent, a.buffered, a.dropped
	a.mu.Unlock()

	slog.Info("channel adapter closed", "call_id", a.callID, "source", a.source, "sent_frames", sent, "buffered_frames", buffered, "dropped_frames", dropped)
	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		slog.Warn("downstream close failed", "error", err, "call_id", a.callID, "source", a.source)
	}
}

// OnReady implements transcriber.Handler.
func (a *ChannelAdapter) OnReady() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ready = true
	a.flushLocked()
}

// OnTranscript implements transcriber.Handler. Final utterances are appended
// to the call transcript and broadcast; interim ones are broadcast only.
func (a *ChannelAdapter) OnTranscript(result transcriber.Result) {
	if strings.TrimSpace(result.Text) == "" {
		return
	}
	if result.Final {
		if !a.call.Append(a.source, result.Text) {
			// Late result after the call ended; the transcript is frozen.
			return
		}
	}
	a.events.Broadcast(newTranscriptEvent(a.callID, a.source, result.Text, result.Final), a.scope)
}

// OnError implements transcriber.Handler.
func (a *ChannelAdapter) OnError(err error) {
	slog.Error("downstream transcription error", "error", err, "call_id", a.callID, "source", a.source)
	a.mu.Lock()
	a.abortLocked()
	a.mu.Unlock()
}
