package hub

import "github.com/samber/do/v2"

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Hub, error) {
		return New(), nil
	})
	do.Provide(injector, func(i do.Injector) (Broadcaster, error) {
		return do.MustInvoke[*Hub](i), nil
	})
}
