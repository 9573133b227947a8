package summarizer

import "context"

// Summarizer turns a call transcript into displayable prose. Implementations
// never return an error: failures degrade to a fallback string.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) string
}
