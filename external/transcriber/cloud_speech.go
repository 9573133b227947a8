package transcriber

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/tsunagin/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
}

// CloudSpeechProvider is the Cloud Speech v2 implementation of the
// transcription port, for deployments that prefer it over the JSON socket
// provider.
type CloudSpeechProvider struct {
	projectID       string
	credentialsJSON string
	location        string
	model           string
}

func NewCloudSpeechProvider(cfg CloudSpeechConfig) transcriber.Provider {
	return &CloudSpeechProvider{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (p *CloudSpeechProvider) OpenStream(ctx context.Context, info transcriber.StreamInfo, handler transcriber.Handler) (transcriber.Stream, error) {
	slog.Info("starting cloud speech streaming", "call_id", info.CallID, "source", info.Source, "location", p.location, "language", info.Language)

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(p.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if p.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", p.location, speechAPIEndpointPort)))
	}

	// The stream outlives the dial context; it is closed via Stream.Close.
	streamCtx := context.Background()
	client, err := speech.NewClient(streamCtx, opts...)
	if err != nil {
		return nil, err
	}
	grpcStream, err := client.StreamingRecognize(streamCtx)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	recognizer := fmt.Sprintf("projects/%s/locations/%s/recognizers/_", p.projectID, p.location)
	sendConfig := func(stream speechpb.Speech_StreamingRecognizeClient) error {
		return stream.Send(&speechpb.StreamingRecognizeRequest{
			Recognizer: recognizer,
			StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
				StreamingConfig: &speechpb.StreamingRecognitionConfig{
					Config: &speechpb.RecognitionConfig{
						Model:         p.model,
						LanguageCodes: []string{info.Language},
						DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
							ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
								Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
								SampleRateHertz:   audioSampleRate,
								AudioChannelCount: audioChannels,
							},
						},
						Features: &speechpb.RecognitionFeatures{},
					},
					StreamingFeatures: &speechpb.StreamingRecognitionFeatures{InterimResults: true},
				},
			},
		})
	}
	if err := sendConfig(grpcStream); err != nil {
		_ = grpcStream.CloseSend()
		_ = client.Close()
		return nil, err
	}

	s := &cloudSpeechStream{
		info:    info,
		handler: handler,
		stream:  grpcStream,
		newStreamFn: func() (speechpb.Speech_StreamingRecognizeClient, error) {
			next, err := client.StreamingRecognize(streamCtx)
			if err != nil {
				return nil, err
			}
			if err := sendConfig(next); err != nil {
				_ = next.CloseSend()
				return nil, err
			}
			return next, nil
		},
		closeFn: client.Close,
	}
	handler.OnReady()
	s.startReceiver(grpcStream)
	return s, nil
}

type cloudSpeechStream struct {
	info        transcriber.StreamInfo
	handler     transcriber.Handler
	newStreamFn func() (speechpb.Speech_StreamingRecognizeClient, error)
	closeFn     func() error

	mu     sync.Mutex
	closed bool
	stream speechpb.Speech_StreamingRecognizeClient
}

// Send forwards one audio frame. The API aborts streams after its documented
// max duration and on idle timeouts; those aborts are survived by opening a
// fresh stream, re-sending the config, and retrying the frame.
func (s *cloudSpeechStream) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{
			Audio: frame,
		},
	}
	if err := s.stream.Send(req); err != nil {
		if !isReconnectableStreamError(err) {
			return err
		}
		slog.Warn("cloud speech send failed with reconnectable error; reconnecting", "error", err, "call_id", s.info.CallID, "source", s.info.Source)
		if err := s.reconnectLocked(); err != nil {
			return fmt.Errorf("reconnect stream: %w", err)
		}
		return s.stream.Send(req)
	}
	return nil
}

func (s *cloudSpeechStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.stream.CloseSend(); err != nil {
		_ = s.closeFn()
		return err
	}
	return s.closeFn()
}

func (s *cloudSpeechStream) reconnectLocked() error {
	_ = s.stream.CloseSend()
	next, err := s.newStreamFn()
	if err != nil {
		slog.Error("failed to reconnect cloud speech stream", "error", err, "call_id", s.info.CallID, "source", s.info.Source)
		return err
	}
	s.stream = next
	s.startReceiver(next)
	slog.Info("cloud speech stream reconnected", "call_id", s.info.CallID, "source", s.info.Source)
	return nil
}

// startReceiver drains one stream's responses. Each reconnect gets its own
// receiver; a loop whose stream was aborted reconnectably just ends, the
// Send path drives the replacement.
func (s *cloudSpeechStream) startReceiver(stream speechpb.Speech_StreamingRecognizeClient) {
	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				s.mu.Lock()
				closed := s.closed
				s.mu.Unlock()
				if closed || err == io.EOF || strings.Contains(err.Error(), "context canceled") {
					slog.Info("cloud speech receive loop stopped", "call_id", s.info.CallID, "source", s.info.Source)
					return
				}
				if isReconnectableStreamError(err) {
					slog.Warn("cloud speech receive loop ended with reconnectable abort", "error", err, "call_id", s.info.CallID, "source", s.info.Source)
					return
				}
				s.handler.OnError(err)
				return
			}
			for _, result := range resp.GetResults() {
				if len(result.GetAlternatives()) == 0 {
					continue
				}
				s.handler.OnTranscript(transcriber.Result{
					Text:  result.GetAlternatives()[0].GetTranscript(),
					Final: result.GetIsFinal(),
				})
			}
		}
	}()
}

func isReconnectableStreamError(err error) bool {
	if err == io.EOF || strings.Contains(strings.ToLower(err.Error()), "eof") {
		return true
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
