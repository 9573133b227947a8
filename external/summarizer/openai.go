package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/tsunagin/internal/summarizer"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// Returned without calling the service when nothing was transcribed.
	noConversationSummary   = "No conversation was detected during this call."
	transportFailureSummary = "Summary unavailable: the summarization service could not be reached."

	summaryMaxTokens = 400
)

const promptTemplate = `You summarize customer service calls. The transcript below has two sections: [mic] is the agent's microphone and [tab] is the remote party's audio. Write the summary in %s as 3-5 short bullet points covering what was discussed and any follow-ups, then one line noting the overall tone of the call. Be factual; do not invent details.`

type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

type OpenAISummarizer struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAISummarizer(cfg OpenAIConfig) summarizer.Summarizer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAISummarizer{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		language: cfg.Language,
	}
}

// Summarize always returns displayable prose; provider and transport
// failures degrade to fallback strings.
func (s *OpenAISummarizer) Summarize(ctx context.Context, transcript string) string {
	if strings.TrimSpace(transcript) == "" {
		return noConversationSummary
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		MaxTokens:   summaryMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(promptTemplate, s.language)},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			slog.Error("summarization service reported an error", "error", apiErr.Message, "status", apiErr.HTTPStatusCode)
			return fmt.Sprintf("Summary unavailable: the summarization service reported an error (%s).", apiErr.Message)
		}
		slog.Error("summarization request failed", "error", err)
		return transportFailureSummary
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		slog.Error("summarization service returned no content")
		return transportFailureSummary
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
