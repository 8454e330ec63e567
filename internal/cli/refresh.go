package cli

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	// refetchDelay is how long after local midnight the new day is fetched.
	refetchDelay = time.Minute
	// retryDelay spaces out attempts after a failed fetch.
	retryDelay = 5 * time.Minute
)

// zoneClock reports the system time in the observer's timezone, which is
// only known once the first fetch or a restored snapshot supplies it.
type zoneClock struct {
	loc atomic.Pointer[time.Location]
}

func newZoneClock(loc *time.Location) *zoneClock {
	z := &zoneClock{}
	z.loc.Store(loc)
	return z
}

// Now implements driver.Clock.
func (z *zoneClock) Now() time.Time {
	return time.Now().In(z.loc.Load())
}

// Set switches the clock to loc.
func (z *zoneClock) Set(loc *time.Location) {
	z.loc.Store(loc)
}

// nextRefetch returns when the day after now's date should be fetched.
func nextRefetch(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Add(refetchDelay)
}

// fetchFunc receives each daily fetch. day is now in the observer's
// timezone; res is nil when err is set.
type fetchFunc func(day time.Time, res *fetchResult, err error)

// dailyFetch fetches today's timings and hands them to apply, then repeats
// shortly after every local midnight until ctx is cancelled. Failed attempts
// are retried after retryDelay.
func (s *session) dailyFetch(ctx context.Context, apply fetchFunc) {
	for {
		res, day, err := s.today(ctx, time.Now())
		if ctx.Err() != nil {
			return
		}
		if err == nil && s.loc.Timezone == "" {
			// Later dates are computed in the observer's zone, not the machine's.
			s.loc.Timezone = day.Location().String()
		}
		apply(day, res, err)

		wait := retryDelay
		if err == nil {
			wait = time.Until(nextRefetch(day))
		}
		logger.Debug().Dur("wait", wait).Msg("next boundary fetch scheduled")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
