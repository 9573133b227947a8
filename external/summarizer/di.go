package summarizer

import (
	"github.com/foxseedlab/tsunagin/internal/config"
	"github.com/foxseedlab/tsunagin/internal/summarizer"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (summarizer.Summarizer, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewOpenAISummarizer(OpenAIConfig{
			APIKey:   c.OpenAIAPIKey,
			BaseURL:  c.OpenAIBaseURL,
			Model:    c.OpenAIModel,
			Language: c.SummaryLanguage,
		}), nil
	})
}
