package relay

import (
	"strings"
	"sync"
	"time"
)

const (
	SourceMic = "mic"
	SourceTab = "tab"
)

// CallSources are the audio channels opened for every call.
var CallSources = []string{SourceMic, SourceTab}

// Call is the unit of state for one active call. Utterances are appended in
// finalization order per source and never mutated; once Ended the call
// rejects further writes.
type Call struct {
	ID        string
	Agent     string
	StartedAt time.Time

	mu          sync.Mutex
	ended       bool
	utterances  map[string][]string
	sourceOrder []string
}

func NewCall(id, agent string, startedAt time.Time) *Call {
	return &Call{
		ID:         id,
		Agent:      agent,
		StartedAt:  startedAt,
		utterances: make(map[string][]string),
	}
}

// Append records one finalized utterance for a source. It reports false once
// the call has ended.
func (c *Call) Append(source, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return false
	}
	if _, seen := c.utterances[source]; !seen {
		c.sourceOrder = append(c.sourceOrder, source)
	}
	c.utterances[source] = append(c.utterances[source], text)
	return true
}

// End freezes the call. Idempotent.
func (c *Call) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = true
}

func (c *Call) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// Utterances returns a copy of the finalized utterances for one source.
func (c *Call) Utterances(source string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.utterances[source]))
	copy(out, c.utterances[source])
	return out
}

// TranscriptText joins both source transcripts into one text block, each
// section headed by its source tag. An empty string means nothing was ever
// finalized.
func (c *Call) TranscriptText() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	sections := make([]string, 0, len(c.sourceOrder))
	for _, source := range c.sourceOrder {
		lines := c.utterances[source]
		if len(lines) == 0 {
			continue
		}
		sections = append(sections, "["+source+"]\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n\n")
}
