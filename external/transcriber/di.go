package transcriber

import (
	"github.com/foxseedlab/tsunagin/internal/config"
	"github.com/foxseedlab/tsunagin/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Provider, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.TranscribeProvider == config.TranscribeProviderCloudSpeech {
			return NewCloudSpeechProvider(CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			}), nil
		}
		return NewLiveSocketProvider(LiveSocketConfig{
			URL:    c.TranscribeSocketURL,
			APIKey: c.TranscribeAPIKey,
		}), nil
	})
}
