package outbox

import (
	"math"
	"time"
)

// RetryPolicy decides when a failed record is attempted again and when it is
// parked for an operator. The zero value retries on every cycle forever.
type RetryPolicy struct {
	// Backoff is the delay after the first failure; it doubles per attempt.
	// Zero means the record is due again on the next cycle.
	Backoff time.Duration
	// MaxBackoff caps the delay. Zero means uncapped.
	MaxBackoff time.Duration
	// MaxAttempts parks a record once it has failed this many times.
	// Zero means never park.
	MaxAttempts int
}

// Next returns the delay before the next attempt after attempts failures, and
// whether the record should be parked instead.
func (p RetryPolicy) Next(attempts int) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
		return 0, true
	}
	return p.delay(attempts), false
}

func (p RetryPolicy) delay(attempts int) time.Duration {
	if p.Backoff <= 0 || attempts <= 0 {
		return 0
	}
	shift := attempts - 1
	// Guard the shift so base<<shift cannot overflow int64.
	maxShift := 62 - int(math.Floor(math.Log2(float64(p.Backoff))))
	if maxShift < 0 {
		maxShift = 0
	}
	d := p.Backoff
	if shift >= maxShift {
		d = time.Duration(math.MaxInt64)
	} else {
		d = p.Backoff << uint(shift)
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}
