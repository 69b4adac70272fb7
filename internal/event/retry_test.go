package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Delay_ExponentialWithoutJitter(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, BackoffMultiplier: 2.0}

	assert.Equal(t, 1*time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
}

func TestRetryPolicy_Delay_NonPositiveAttempt(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Duration(0), p.Delay(-1))
}

func TestRetryPolicy_Delay_JitterBounds(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, BackoffMultiplier: 2.0, Jitter: true}

	for i := 0; i < 200; i++ {
		d := p.Delay(2)
		assert.GreaterOrEqual(t, d, 1600*time.Millisecond)
		assert.LessOrEqual(t, d, 2400*time.Millisecond)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 2.0, p.BackoffMultiplier)
	assert.True(t, p.Jitter)
}
