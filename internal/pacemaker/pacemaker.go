// Package pacemaker drives round-timeout events for the event processor.
// Grounded in epoch_manager.rs's ExponentialTimeInterval(initial, 1.5, 6)
// and the teacher's ticker-driven loop idiom (internal/consensus/
// consensus_engine.go's time.NewTicker + select/ctx.Done()).
package pacemaker

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// maxExponent caps the exponential backoff at base * 1.5^6 (~11x base),
// per spec §4.6 step 5.
const maxExponent = 6

// ExponentialTimeInterval computes the i-th consecutive round timeout as
// base * multiplier^min(i, maxExponent).
type ExponentialTimeInterval struct {
	base       time.Duration
	multiplier float64
}

// NewExponentialTimeInterval constructs an interval with the given base
// duration and multiplier; exponent is capped at maxExponent internally.
func NewExponentialTimeInterval(base time.Duration, multiplier float64) ExponentialTimeInterval {
	return ExponentialTimeInterval{base: base, multiplier: multiplier}
}

// Timeout returns the timeout duration for the i-th consecutive timeout
// (0-indexed) since the last successful round advance.
func (e ExponentialTimeInterval) Timeout(i int) time.Duration {
	if i > maxExponent {
		i = maxExponent
	}
	factor := math.Pow(e.multiplier, float64(i))
	return time.Duration(float64(e.base) * factor)
}

// Pacemaker drives round timeouts onto a shared channel, reading a monotonic
// clock so tests can advance time deterministically via clock.NewMock().
type Pacemaker struct {
	interval ExponentialTimeInterval
	clock    clock.Clock
	timeouts chan<- uint64

	mu      sync.Mutex
	round   uint64
	streak  int
	timer   *clock.Timer
	running bool
	cancel  context.CancelFunc
}

// New constructs a Pacemaker that will send the current round number onto
// timeouts each time no progress is observed before the interval elapses.
func New(interval ExponentialTimeInterval, c clock.Clock, timeouts chan<- uint64) *Pacemaker {
	return &Pacemaker{interval: interval, clock: c, timeouts: timeouts}
}

// Start begins driving round 0's timeout.
func (p *Pacemaker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()
	p.arm(ctx)
}

// Stop halts the pacemaker; safe to call multiple times.
func (p *Pacemaker) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	if p.cancel != nil {
		p.cancel()
	}
	if p.timer != nil {
		p.timer.Stop()
	}
}

// AdvanceRound signals that round advanced to newRound, resetting the
// consecutive-timeout streak and rearming the timer for the new round.
func (p *Pacemaker) AdvanceRound(ctx context.Context, newRound uint64) {
	p.mu.Lock()
	p.round = newRound
	p.streak = 0
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	p.arm(ctx)
}

func (p *Pacemaker) arm(ctx context.Context) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	d := p.interval.Timeout(p.streak)
	round := p.round
	timer := p.clock.Timer(d)
	p.timer = timer
	p.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
			p.mu.Lock()
			if !p.running || p.round != round {
				p.mu.Unlock()
				return
			}
			p.streak++
			p.mu.Unlock()
			// Rearm before signaling so a caller that immediately advances
			// mocked time after receiving never races the next timer's
			// registration.
			p.arm(ctx)
			select {
			case p.timeouts <- round:
			case <-ctx.Done():
			}
		}
	}()
}
