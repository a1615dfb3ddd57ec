package backoff

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func TestRetrySucceedsImmediately(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := &Policy{Clock: clock}
	calls := 0
	err := p.Retry(func() error { calls++; return nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.sleeps)
}

func TestRetrySleepsOneSecondBetweenFailures(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := &Policy{Clock: clock}
	calls := 0
	err := p.Retry(func() error {
		calls++
		if calls < 3 {
			return errors.New("not found")
		}
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, clock.sleeps, 2)
	for _, d := range clock.sleeps {
		assert.Equal(t, Interval, d, "back-off must be flat 1s, not exponential")
	}
}

func TestRetryHonorsStop(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := &Policy{Clock: clock}
	stopped := false
	err := p.Retry(func() error { return errors.New("never") }, func() bool { return stopped })
	require.NoError(t, err)

	calls := 0
	stopAfterOne := func() bool { calls++; return calls > 1 }
	err = p.Retry(func() error { return errors.New("never") }, stopAfterOne)
	require.NoError(t, err)
}

func TestLivenessStaleBeforeFirstSample(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := NewLivenessWithClock(clock)
	assert.True(t, l.Stale())
}

func TestLivenessStaleAfterTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := NewLivenessWithClock(clock)
	l.MarkGood()
	assert.False(t, l.Stale())

	clock.now = clock.now.Add(LivenessTimeout + time.Millisecond)
	assert.True(t, l.Stale())
}
