package session

import "time"

// Phase of a practice session
type Phase string

const (
	PhaseLoading  Phase = "loading"
	PhaseIntro    Phase = "intro"
	PhaseQuestion Phase = "question"
	PhaseFeedback Phase = "feedback"
	PhaseComplete Phase = "complete"
)

// Terminal reports whether no further transition can happen
func (p Phase) Terminal() bool {
	return p == PhaseComplete
}

// schedule runs fn under the lock after d unless the timer is cancelled
// or superseded first. Callers hold mu.
func (c *Controller) schedule(d time.Duration, fn func()) {
	c.cancelTimer()
	gen := c.generation
	c.timer = time.AfterFunc(d, func() {
		c.fire(gen, fn)
	})
}

// cancelTimer stops the pending timer and invalidates any callback
// that already started waiting for the lock. Callers hold mu.
func (c *Controller) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
}

func (c *Controller) fire(gen uint64, fn func()) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	fn()
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
}
