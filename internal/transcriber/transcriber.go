package transcriber

import "context"

// StreamInfo identifies one audio source of one call for logging and
// provider-side tagging.
type StreamInfo struct {
	CallID   string
	Source   string
	Language string
}

// Result is one transcription alternative reported by the provider.
type Result struct {
	Text  string
	Final bool
}

// Handler receives provider callbacks for one stream. OnReady fires at most
// once, before the first OnTranscript. After OnError no further callbacks
// are delivered.
type Handler interface {
	OnReady()
	OnTranscript(result Result)
	OnError(err error)
}

// Stream is one open audio stream to the provider.
type Stream interface {
	Send(frame []byte) error
	Close() error
}

type Provider interface {
	OpenStream(ctx context.Context, info StreamInfo, handler Handler) (Stream, error)
}
