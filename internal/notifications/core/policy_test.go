package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_BackoffDoubles(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute}

	assert.Equal(t, time.Minute, policy.Backoff(0))
	assert.Equal(t, 2*time.Minute, policy.Backoff(1))
	assert.Equal(t, 4*time.Minute, policy.Backoff(2))
	assert.Equal(t, 8*time.Minute, policy.Backoff(3))
}

func TestRetryPolicy_BackoffMonotonic(t *testing.T) {
	policy := DefaultRetryPolicy()

	prev := time.Duration(0)
	for attempt := 0; attempt < 10; attempt++ {
		delay := policy.Backoff(attempt)
		assert.Greater(t, delay, prev, "attempt %d", attempt)
		prev = delay
	}
}

func TestRetryPolicy_BackoffNegativeAttempt(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
	assert.Equal(t, time.Second, policy.Backoff(-5))
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute}

	assert.False(t, policy.Exhausted(0))
	assert.False(t, policy.Exhausted(2))
	assert.True(t, policy.Exhausted(3))
	assert.True(t, policy.Exhausted(4))
}
