package gateway

import (
	"github.com/foxseedlab/tsunagin/internal/config"
	"github.com/foxseedlab/tsunagin/internal/hub"
	"github.com/foxseedlab/tsunagin/internal/relay"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		registry := do.MustInvoke[*hub.Hub](i)
		factory := do.MustInvoke[relay.Factory](i)
		return NewServer(cfg, registry, factory), nil
	})
}
