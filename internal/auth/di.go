package auth

import (
	"github.com/foxseedlab/tsunagin/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return ParseStore(cfg.Credentials)
	})
}
