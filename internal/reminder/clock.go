package reminder

import (
	"time"
)

// Clock resolves "now" in the clinic's civil timezone. The scheduler and
// sweeper never call time.Now directly so tests can pin the clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystemClock returns a Clock reading the wall clock in loc.
func NewSystemClock(loc *time.Location) Clock {
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// LoadLocation resolves the configured timezone name. The clinic runs on
// America/Sao_Paulo, a fixed UTC-3 offset with no DST; when tzdata is not
// available the fixed offset is used directly.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}
