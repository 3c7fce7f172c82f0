package replenishment

import "go.uber.org/fx"

var Module = fx.Module("replenishment",
	fx.Provide(New),
)
