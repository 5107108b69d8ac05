package pacemaker

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialTimeIntervalSequence(t *testing.T) {
	base := 100 * time.Millisecond
	interval := NewExponentialTimeInterval(base, 1.5)

	assert.Equal(t, base, interval.Timeout(0))
	assert.Equal(t, time.Duration(float64(base)*1.5), interval.Timeout(1))
	assert.Equal(t, time.Duration(float64(base)*1.5*1.5), interval.Timeout(2))

	capped := interval.Timeout(maxExponent)
	beyondCap := interval.Timeout(maxExponent + 5)
	assert.Equal(t, capped, beyondCap)
}

func TestPacemakerFiresExponentialTimeouts(t *testing.T) {
	mock := clock.NewMock()
	interval := NewExponentialTimeInterval(10*time.Millisecond, 1.5)
	timeouts := make(chan uint64, 8)
	pm := New(interval, mock, timeouts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pm.Start(ctx)
	defer pm.Stop()

	mock.Add(10 * time.Millisecond)
	first := <-timeouts
	assert.Equal(t, uint64(0), first)

	mock.Add(15 * time.Millisecond)
	second := <-timeouts
	assert.Equal(t, uint64(0), second)
}

func TestPacemakerAdvanceRoundResetsStreak(t *testing.T) {
	mock := clock.NewMock()
	interval := NewExponentialTimeInterval(10*time.Millisecond, 1.5)
	timeouts := make(chan uint64, 8)
	pm := New(interval, mock, timeouts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pm.Start(ctx)
	defer pm.Stop()

	mock.Add(10 * time.Millisecond)
	require.Equal(t, uint64(0), <-timeouts)

	pm.AdvanceRound(ctx, 1)
	mock.Add(10 * time.Millisecond)
	assert.Equal(t, uint64(1), <-timeouts)
}
