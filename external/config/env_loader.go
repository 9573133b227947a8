package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/tsunagin/internal/config"
)

type envConfig struct {
	Env        string `env:"ENV" envDefault:"production"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	AuthRequired   bool   `env:"AUTH_REQUIRED" envDefault:"true"`
	Credentials    string `env:"AGENT_CREDENTIALS"`
	BroadcastScope string `env:"BROADCAST_SCOPE" envDefault:"managers"`

	TranscribeProvider     string `env:"TRANSCRIBE_PROVIDER" envDefault:"live_socket"`
	TranscribeSocketURL    string `env:"TRANSCRIBE_SOCKET_URL"`
	TranscribeAPIKey       string `env:"TRANSCRIBE_API_KEY"`
	TranscribeLanguage     string `env:"TRANSCRIBE_LANGUAGE" envDefault:"en-US"`
	PendingFrameLimit      int    `env:"PENDING_FRAME_LIMIT" envDefault:"512"`
	ProviderDialTimeoutSec int    `env:"PROVIDER_DIAL_TIMEOUT_SEC" envDefault:"15"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`

	OpenAIAPIKey    string `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	SummaryLanguage string `env:"SUMMARY_LANGUAGE" envDefault:"English"`

	SummaryWebhookURL string `env:"SUMMARY_WEBHOOK_URL"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		ListenAddr:                 raw.ListenAddr,
		AuthRequired:               raw.AuthRequired,
		Credentials:                raw.Credentials,
		BroadcastScope:             raw.BroadcastScope,
		TranscribeProvider:         raw.TranscribeProvider,
		TranscribeSocketURL:        raw.TranscribeSocketURL,
		TranscribeAPIKey:           raw.TranscribeAPIKey,
		TranscribeLanguage:         raw.TranscribeLanguage,
		PendingFrameLimit:          raw.PendingFrameLimit,
		ProviderDialTimeoutSec:     raw.ProviderDialTimeoutSec,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		OpenAIAPIKey:               raw.OpenAIAPIKey,
		OpenAIBaseURL:              raw.OpenAIBaseURL,
		OpenAIModel:                raw.OpenAIModel,
		SummaryLanguage:            raw.SummaryLanguage,
		SummaryWebhookURL:          raw.SummaryWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
