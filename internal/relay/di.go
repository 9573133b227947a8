package relay

import (
	"github.com/foxseedlab/tsunagin/internal/auth"
	"github.com/foxseedlab/tsunagin/internal/config"
	"github.com/foxseedlab/tsunagin/internal/hub"
	"github.com/foxseedlab/tsunagin/internal/summarizer"
	"github.com/foxseedlab/tsunagin/internal/transcriber"
	"github.com/foxseedlab/tsunagin/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Factory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		creds := do.MustInvoke[*auth.Store](i)
		events := do.MustInvoke[hub.Broadcaster](i)
		provider := do.MustInvoke[transcriber.Provider](i)
		sm := do.MustInvoke[summarizer.Summarizer](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return func(client *hub.Client) *Relay {
			return New(cfg, creds, events, client, provider, sm, wh)
		}, nil
	})
}
