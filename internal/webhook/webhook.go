package webhook

import "context"

type CallSummaryPayload struct {
	SchemaVersion   int    `json:"schemaVersion"`
	CallID          string `json:"callId"`
	Agent           string `json:"agent,omitempty"`
	StartAt         string `json:"startAt"`
	EndAt           string `json:"endAt"`
	DurationSeconds int64  `json:"durationSeconds"`
	Transcript      string `json:"transcript"`
	Summary         string `json:"summary"`
}

const CallSummarySchemaVersion = 1

type Sender interface {
	SendCallSummary(ctx context.Context, payload CallSummaryPayload) error
}
