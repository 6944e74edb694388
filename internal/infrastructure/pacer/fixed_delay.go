// Package pacer spaces consecutive outbound calls.
package pacer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"PublishGate/internal/ports"
)

var _ ports.Pacer = (*FixedDelay)(nil)

// FixedDelay keeps at least delay between the end of one dispatch and the start of the next.
// The first release never waits. A caller that never calls Done is spaced from its release instead.
type FixedDelay struct {
	clock clockwork.Clock
	delay time.Duration

	mu       sync.Mutex
	released bool
	last     time.Time
}

// New returns a pacer on the given clock. A nil clock uses the real one.
func New(clock clockwork.Clock, delay time.Duration) *FixedDelay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FixedDelay{clock: clock, delay: delay}
}

// Wait blocks until the next release slot or until ctx is done.
func (p *FixedDelay) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if p.released {
		if remaining := p.delay - p.clock.Since(p.last); remaining > 0 {
			timer := p.clock.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.Chan():
			}
		}
	}

	p.released = true
	p.last = p.clock.Now()
	return nil
}

// Done restarts the delay from now, once the released dispatch has finished.
func (p *FixedDelay) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = p.clock.Now()
}
