package machine

import (
	"context"
	"runtime"
	"time"
)

// spinWindow is how close to the target WaitUntil stops sleeping and
// starts polling.
const spinWindow = 2 * time.Millisecond

// Clock paces execution against wall time. Readings are nanoseconds from
// the monotonic clock.
type Clock struct {
	start time.Time
}

func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Now returns the nanoseconds elapsed since the clock was created.
func (c *Clock) Now() int64 {
	return int64(time.Since(c.start))
}

// WaitUntil blocks until Now() reaches target or ctx is done.
func (c *Clock) WaitUntil(ctx context.Context, target int64) {
	for {
		remaining := time.Duration(target - c.Now())
		if remaining <= 0 || ctx.Err() != nil {
			return
		}
		if remaining > spinWindow {
			timer := time.NewTimer(remaining - spinWindow)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}
		runtime.Gosched()
	}
}
