package heartbeat

import "go.uber.org/fx"

var Module = fx.Module("heartbeat",
	fx.Provide(
		fx.Annotate(NewHTTPProber, fx.As(new(Prober))),
		New,
	),
)
