package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/foxseedlab/tsunagin/internal/auth"
	"github.com/foxseedlab/tsunagin/internal/config"
	"github.com/foxseedlab/tsunagin/internal/hub"
	"github.com/foxseedlab/tsunagin/internal/summarizer"
	"github.com/foxseedlab/tsunagin/internal/transcriber"
	"github.com/foxseedlab/tsunagin/internal/webhook"
	"github.com/google/uuid"
)

type state int

const (
	stateUnauthenticated state = iota
	stateIdle
	stateInCall
	stateClosed
)

const summarizeTimeout = 30 * time.Second

// Client is the relay's view of its own connection: direct replies and the
// identity the hub filters broadcasts on. *hub.Client implements it.
type Client interface {
	Deliver(event any)
	SetIdentity(username string, role auth.Role)
}

// Relay is the per-connection state machine. It owns at most one active call
// and that call's channel adapters; no other component mutates them. All
// Handle methods are invoked from the connection's single read loop.
type Relay struct {
	cfg        *config.Config
	creds      *auth.Store
	events     hub.Broadcaster
	client     Client
	provider   transcriber.Provider
	summarizer summarizer.Summarizer
	webhook    webhook.Sender

	st            state
	username      string
	role          auth.Role
	call          *Call
	adapters      map[string]*ChannelAdapter
	currentSource string
}

// Factory builds one Relay per accepted connection.
type Factory func(client *hub.Client) *Relay

func New(cfg *config.Config, creds *auth.Store, events hub.Broadcaster, client Client, provider transcriber.Provider, sm summarizer.Summarizer, wh webhook.Sender) *Relay {
	st := stateUnauthenticated
	if !cfg.AuthRequired {
		st = stateIdle
	}
	return &Relay{
		cfg:        cfg,
		creds:      creds,
		events:     events,
		client:     client,
		provider:   provider,
		summarizer: sm,
		webhook:    wh,
		st:         st,
		adapters:   make(map[string]*ChannelAdapter),
	}
}

func (r *Relay) scope() hub.Scope {
	if r.cfg.BroadcastScope == config.BroadcastScopeAll {
		return hub.ScopeAll
	}
	return hub.ScopeManagers
}

// HandleControl processes one inbound text frame. Malformed or unknown
// payloads are ignored and never terminate the connection.
func (r *Relay) HandleControl(data []byte) {
	msg, err := DecodeMessage(data)
	if err != nil {
		if errors.Is(err, ErrUnknownMessage) {
			slog.Debug("ignoring unknown client message", "error", err)
			return
		}
		return
	}

	switch m := msg.(type) {
	case AuthMessage:
		r.handleAuth(m)
	case StartMessage:
		r.handleStart(m)
	case SourceMessage:
		r.currentSource = m.Source
	case StopMessage:
		r.handleStop()
	}
}

func (r *Relay) handleAuth(m AuthMessage) {
	if !r.cfg.AuthRequired {
		slog.Debug("auth message received while authentication is disabled")
		return
	}
	if r.st != stateUnauthenticated {
		return
	}
	role, ok := r.creds.Lookup(m.Username, m.Password)
	if !ok {
		slog.Info("authentication failed", "username", m.Username)
		r.client.Deliver(newAuthFailedEvent("invalid credentials"))
		return
	}
	r.st = stateIdle
	r.username = m.Username
	r.role = role
	r.client.SetIdentity(m.Username, role)
	r.client.Deliver(newAuthSuccessEvent(string(role)))
	slog.Info("client authenticated", "username", m.Username, "role", role)
	if role == auth.RoleAgent {
		r.events.Broadcast(newAgentOnlineEvent(m.Username), r.scope())
	}
}

func (r *Relay) handleStart(m StartMessage) {
	if r.st != stateIdle {
		return
	}
	agent := r.username
	if agent == "" {
		agent = m.Agent
	}

	call := NewCall(uuid.NewString(), agent, time.Now())
	r.call = call
	r.st = stateInCall

	for _, source := range CallSources {
		adapter := NewChannelAdapter(call, source, r.events, r.scope(), r.cfg.PendingFrameLimit)
		r.adapters[source] = adapter

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.ProviderDialTimeoutSec)*time.Second)
		stream, err := r.provider.OpenStream(ctx, transcriber.StreamInfo{
			CallID:   call.ID,
			Source:   source,
			Language: r.cfg.TranscribeLanguage,
		}, adapter)
		cancel()
		if err != nil {
			// This source stays silent for the call; the other one and the
			// client connection are unaffected.
			slog.Error("failed to open transcription stream", "error", err, "call_id", call.ID, "source", source)
			adapter.Fail()
			continue
		}
		adapter.Bind(stream)
	}

	slog.Info("call started", "call_id", call.ID, "agent", agent)
	r.events.Broadcast(newAgentJoinEvent(agent, call.ID, call.StartedAt.UnixMilli()), r.scope())
}

// HandleBinary routes one audio frame to the adapter for the currently
// tagged source. Frames outside a call or before any tag are dropped.
func (r *Relay) HandleBinary(frame []byte) {
	if r.st != stateInCall {
		return
	}
	adapter, ok := r.adapters[r.currentSource]
	if !ok {
		return
	}
	adapter.Send(frame)
}

func (r *Relay) handleStop() {
	if r.st != stateInCall {
		return
	}
	r.finishCall()
	r.st = stateIdle
}

// HandleDisconnect runs when the client socket goes away. A disconnect
// mid-call triggers the same teardown as an explicit stop, so the summary is
// never skipped.
func (r *Relay) HandleDisconnect() {
	if r.st == stateClosed {
		return
	}
	if r.st == stateInCall {
		r.finishCall()
	}
	if r.username != "" && r.role == auth.RoleAgent {
		r.events.Broadcast(newAgentOfflineEvent(r.username), r.scope())
	}
	r.st = stateClosed
}

// finishCall tears the call down: adapters closed first so the transcript is
// frozen, then exactly one summary is produced and broadcast. Runs
// synchronously inside the stop/disconnect handling step, so connection
// close joins the summary task.
func (r *Relay) finishCall() {
	call := r.call
	r.call = nil

	for _, source := range CallSources {
		if adapter, ok := r.adapters[source]; ok {
			adapter.Close()
		}
	}
	r.adapters = make(map[string]*ChannelAdapter)
	r.currentSource = ""

	call.End()
	transcript := call.TranscriptText()

	ctx, cancel := context.WithTimeout(context.Background(), summarizeTimeout)
	defer cancel()
	summary := r.summarizer.Summarize(ctx, transcript)

	slog.Info("call finished", "call_id", call.ID, "agent", call.Agent, "duration", time.Since(call.StartedAt).Round(time.Second))
	r.events.Broadcast(newSummaryEvent(call.ID, call.Agent, summary), r.scope())

	endedAt := time.Now()
	if err := r.webhook.SendCallSummary(ctx, webhook.CallSummaryPayload{
		SchemaVersion:   webhook.CallSummarySchemaVersion,
		CallID:          call.ID,
		Agent:           call.Agent,
		StartAt:         call.StartedAt.Format(time.RFC3339),
		EndAt:           endedAt.Format(time.RFC3339),
		DurationSeconds: int64(endedAt.Sub(call.StartedAt).Seconds()),
		Transcript:      transcript,
		Summary:         summary,
	}); err != nil {
		slog.Error("failed to send call summary webhook", "error", err, "call_id", call.ID)
	}
}
