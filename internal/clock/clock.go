// Package clock supplies the wall clock used to stamp invoices.
package clock

import (
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(NewSystem),
)

type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now in UTC.
type SystemClock struct{}

func NewSystem() Clock { return SystemClock{} }

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
