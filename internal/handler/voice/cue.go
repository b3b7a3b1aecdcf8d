package voice

import (
	"sync"
	"time"
)

// cueTimer owns the single pending delayed cue of a session. Scheduling a new
// cue or cancelling supersedes the previous one.
type cueTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// Schedule runs fn after delay unless superseded first.
func (c *cueTimer) Schedule(delay time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopLocked()
	c.seq++
	seq := c.seq
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		current := !c.stopped && c.seq == seq
		if current {
			c.timer = nil
		}
		c.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops the pending cue, if any.
func (c *cueTimer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.seq++
}

// Stop cancels the pending cue and refuses any further scheduling.
func (c *cueTimer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.stopped = true
}

// Pending reports whether a cue is waiting to fire.
func (c *cueTimer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *cueTimer) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
