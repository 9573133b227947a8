package config

import "fmt"

const (
	BroadcastScopeManagers = "managers"
	BroadcastScopeAll      = "all"

	TranscribeProviderLiveSocket  = "live_socket"
	TranscribeProviderCloudSpeech = "cloud_speech"
)

type Config struct {
	Env        string
	ListenAddr string

	AuthRequired   bool
	Credentials    string
	BroadcastScope string

	TranscribeProvider     string
	TranscribeSocketURL    string
	TranscribeAPIKey       string
	TranscribeLanguage     string
	PendingFrameLimit      int
	ProviderDialTimeoutSec int

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	SummaryLanguage string

	SummaryWebhookURL string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.AuthRequired && c.Credentials == "" {
		return fmt.Errorf("AGENT_CREDENTIALS is required when AUTH_REQUIRED=true")
	}
	switch c.BroadcastScope {
	case BroadcastScopeManagers, BroadcastScopeAll:
	default:
		return fmt.Errorf("BROADCAST_SCOPE must be %q or %q, got %q", BroadcastScopeManagers, BroadcastScopeAll, c.BroadcastScope)
	}
	if !c.AuthRequired && c.BroadcastScope == BroadcastScopeManagers {
		// Roles come from authentication; without it no client can ever be a
		// manager and manager-scoped broadcasts would reach nobody.
		return fmt.Errorf("BROADCAST_SCOPE=%s requires AUTH_REQUIRED=true", BroadcastScopeManagers)
	}
	switch c.TranscribeProvider {
	case TranscribeProviderLiveSocket:
		if c.TranscribeSocketURL == "" {
			return fmt.Errorf("TRANSCRIBE_SOCKET_URL is required when TRANSCRIBE_PROVIDER=%s", TranscribeProviderLiveSocket)
		}
	case TranscribeProviderCloudSpeech:
		if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when TRANSCRIBE_PROVIDER=%s", TranscribeProviderCloudSpeech)
		}
	default:
		return fmt.Errorf("TRANSCRIBE_PROVIDER must be %q or %q, got %q", TranscribeProviderLiveSocket, TranscribeProviderCloudSpeech, c.TranscribeProvider)
	}
	if c.PendingFrameLimit <= 0 {
		return fmt.Errorf("PENDING_FRAME_LIMIT must be positive, got %d", c.PendingFrameLimit)
	}
	if c.ProviderDialTimeoutSec <= 0 {
		return fmt.Errorf("PROVIDER_DIAL_TIMEOUT_SEC must be positive, got %d", c.ProviderDialTimeoutSec)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "TRANSCRIBE_LANGUAGE", value: c.TranscribeLanguage},
		{name: "OPENAI_API_KEY", value: c.OpenAIAPIKey},
		{name: "OPENAI_MODEL", value: c.OpenAIModel},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
