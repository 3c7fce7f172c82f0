package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts the current time so jobs and services can be tested.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return RealClock{} }),
)
