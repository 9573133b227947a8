package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownMessage marks inbound payloads the relay silently ignores:
// invalid JSON, a missing type, or a type it does not speak.
var ErrUnknownMessage = errors.New("unknown client message")

// Message is the tagged union over inbound control messages. Handling is an
// exhaustive type switch in the relay, so a new kind fails loudly at review
// time instead of falling through a string comparison chain.
type Message interface {
	isMessage()
}

type AuthMessage struct {
	Username string
	Password string
}

type StartMessage struct {
	// Agent carries the caller-declared identity used when credential
	// authentication is disabled. Ignored otherwise.
	Agent string
}

type StopMessage struct{}

type SourceMessage struct {
	Source string
}

func (AuthMessage) isMessage()   {}
func (StartMessage) isMessage()  {}
func (StopMessage) isMessage()   {}
func (SourceMessage) isMessage() {}

type rawMessage struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
	Agent    string `json:"agent"`
	Source   string `json:"source"`
}

// DecodeMessage parses one inbound text frame into its message kind.
func DecodeMessage(data []byte) (Message, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, "invalid json")
	}
	switch raw.Type {
	case "auth":
		return AuthMessage{Username: raw.Username, Password: raw.Password}, nil
	case "agent_start", "agent_join":
		return StartMessage{Agent: raw.Agent}, nil
	case "agent_stop":
		return StopMessage{}, nil
	case "audio_mic":
		return SourceMessage{Source: SourceMic}, nil
	case "audio_tab":
		return SourceMessage{Source: SourceTab}, nil
	case "audio_source":
		return SourceMessage{Source: raw.Source}, nil
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnknownMessage, raw.Type)
	}
}

// Server-to-client events.

type AuthSuccessEvent struct {
	Type string `json:"type"`
	Role string `json:"role"`
}

type AuthFailedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type AgentOnlineEvent struct {
	Type  string `json:"type"`
	Agent string `json:"agent"`
}

type AgentOfflineEvent struct {
	Type  string `json:"type"`
	Agent string `json:"agent"`
}

type AgentJoinEvent struct {
	Type      string `json:"type"`
	Agent     string `json:"agent"`
	CallID    string `json:"callId"`
	StartTime int64  `json:"startTime"`
}

type TranscriptEvent struct {
	Type   string `json:"type"`
	CallID string `json:"callId"`
	Source string `json:"source"`
	Text   string `json:"text"`
	Final  bool   `json:"final"`
}

type SummaryEvent struct {
	Type    string `json:"type"`
	CallID  string `json:"callId"`
	Agent   string `json:"agent,omitempty"`
	Summary string `json:"summary"`
}

func newAuthSuccessEvent(role string) AuthSuccessEvent {
	return AuthSuccessEvent{Type: "auth_success", Role: role}
}

func newAuthFailedEvent(reason string) AuthFailedEvent {
	return AuthFailedEvent{Type: "auth_failed", Reason: reason}
}

func newAgentOnlineEvent(agent string) AgentOnlineEvent {
	return AgentOnlineEvent{Type: "agent_online", Agent: agent}
}

func newAgentOfflineEvent(agent string) AgentOfflineEvent {
	return AgentOfflineEvent{Type: "agent_offline", Agent: agent}
}

func newAgentJoinEvent(agent, callID string, startTime int64) AgentJoinEvent {
	return AgentJoinEvent{Type: "agent_join", Agent: agent, CallID: callID, StartTime: startTime}
}

func newTranscriptEvent(callID, source, text string, final bool) TranscriptEvent {
	return TranscriptEvent{Type: "transcript", CallID: callID, Source: source, Text: text, Final: final}
}

func newSummaryEvent(callID, agent, summary string) SummaryEvent {
	return SummaryEvent{Type: "summary", CallID: callID, Agent: agent, Summary: summary}
}
