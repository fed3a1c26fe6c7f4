package outbox

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyZeroValueRetriesNextCycle(t *testing.T) {
	var p RetryPolicy
	for _, attempts := range []int{1, 5, 1000} {
		d, park := p.Next(attempts)
		assert.Zero(t, d)
		assert.False(t, park)
	}
}

func TestRetryPolicyExponentialWithCap(t *testing.T) {
	p := RetryPolicy{Backoff: time.Second, MaxBackoff: 30 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, w := range want {
		d, park := p.Next(i + 1)
		assert.Equal(t, w, d, "attempt %d", i+1)
		assert.False(t, park)
	}
}

func TestRetryPolicyDoesNotOverflow(t *testing.T) {
	p := RetryPolicy{Backoff: time.Hour}
	d, _ := p.Next(200)
	assert.Equal(t, time.Duration(math.MaxInt64), d)

	d, _ = p.Next(3)
	assert.Equal(t, 4*time.Hour, d)
}

func TestRetryPolicyParksAtMaxAttempts(t *testing.T) {
	p := RetryPolicy{Backoff: time.Second, MaxAttempts: 3}
	_, park := p.Next(2)
	assert.False(t, park)
	_, park = p.Next(3)
	assert.True(t, park)
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "NetworkCreated-out-0", ChannelFor("NetworkCreated"))
}

func TestTruncateError(t *testing.T) {
	long := make([]byte, maxLastErrorLen+10)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, truncateError(string(long)), maxLastErrorLen)
	assert.Equal(t, "short", truncateError("short"))
}
