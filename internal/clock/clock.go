// Package clock abstracts delayed callbacks so owners of single-writer state
// can schedule timers whose callbacks run on their own event loop, and tests
// can drive time by hand.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer (false if it already fired or was stopped).
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Poster delivers a function to the goroutine that owns the state f touches.
type Poster interface {
	Post(f func())
}

// Real schedules with the runtime timer and hands the callback to post, so it
// runs on the poster's goroutine instead of the timer goroutine.
type Real struct {
	post Poster
}

// NewReal returns a Scheduler that delivers callbacks through p.
func NewReal(p Poster) *Real {
	return &Real{post: p}
}

// AfterFunc implements Scheduler.
func (r *Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { r.post.Post(f) })
}

// Fake is a manually advanced Scheduler. Callbacks run synchronously inside
// Advance on the caller's goroutine, in deadline order.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*fakeTimer
}

type fakeTimer struct {
	fake    *Fake
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewFake returns a Fake at time zero.
func NewFake() *Fake {
	return &Fake{}
}

// AfterFunc implements Scheduler.
func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{fake: c, at: c.now + d, seq: c.seq, f: f}
	c.pending = append(c.pending, t)
	return t
}

// Stop implements Timer.
func (t *fakeTimer) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, firing every timer that comes due.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

// Pending reports how many timers are armed and not yet fired.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *Fake) nextDueLocked(target time.Duration) *fakeTimer {
	live := c.pending[:0]
	for _, t := range c.pending {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.pending = live
	sort.SliceStable(c.pending, func(i, j int) bool {
		if c.pending[i].at != c.pending[j].at {
			return c.pending[i].at < c.pending[j].at
		}
		return c.pending[i].seq < c.pending[j].seq
	})
	if len(c.pending) == 0 || c.pending[0].at > target {
		return nil
	}
	return c.pending[0]
}
