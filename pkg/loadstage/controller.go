// Package loadstage simulates staged progress for a single outstanding
// request. The advancing timer is cosmetic: it walks a fixed label list
// on a fixed interval regardless of real progress and is cancelled the
// instant the request settles.
package loadstage

import (
	"sync"
	"time"
)

// Stages is the ordered label list shown while the dashboard request is
// in flight.
var Stages = []string{
	"Detecting your IP address...",
	"Fetching geolocation data...",
	"Loading weather & air quality...",
	"Gathering country information...",
	"Building your dashboard...",
}

// DefaultInterval is how often the displayed stage advances.
const DefaultInterval = 600 * time.Millisecond

// State is the controller's lifecycle position.
type State int

const (
	// Idle means no request has been started yet.
	Idle State = iota
	// Loading means the timer is advancing through the stages.
	Loading
	// Succeeded means the request completed; the stage is pinned to
	// the last label.
	Succeeded
	// Failed means the request errored; the message is retained.
	Failed
)

// Controller drives the cosmetic progress sequence. Begin may be called
// again after a terminal state to model a manual retry.
type Controller struct {
	mu       sync.Mutex
	interval time.Duration
	onStage  func(stage string)
	state    State
	idx      int
	errMsg   string
	stop     chan struct{}
}

// NewController builds a controller. The callback fires on every stage
// change, including the forced jump to the last stage on success.
// A non-positive interval falls back to DefaultInterval.
func NewController(interval time.Duration, onStage func(stage string)) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if onStage == nil {
		onStage = func(string) {}
	}
	return &Controller{interval: interval, onStage: onStage}
}

// Begin (re)enters the first stage and starts the advancing timer.
func (c *Controller) Begin() {
	c.mu.Lock()
	c.stopLocked()
	c.state = Loading
	c.idx = 0
	c.errMsg = ""
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	c.onStage(Stages[0])

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if stage, ok := c.advance(); ok {
					c.onStage(stage)
				}
			}
		}
	}()
}

// Succeed cancels the timer and pins the display to the final stage.
func (c *Controller) Succeed() {
	c.mu.Lock()
	if c.state != Loading {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.state = Succeeded
	c.idx = len(Stages) - 1
	c.mu.Unlock()

	c.onStage(Stages[len(Stages)-1])
}

// Fail cancels the timer and records the error message.
func (c *Controller) Fail(message string) {
	c.mu.Lock()
	if c.state != Loading {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.state = Failed
	c.errMsg = message
	c.mu.Unlock()
}

// Stage returns the currently displayed label.
func (c *Controller) Stage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stages[c.idx]
}

// State returns the lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure message recorded by Fail.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Controller) advance() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Loading {
		return "", false
	}
	if c.idx < len(Stages)-1 {
		c.idx++
	}
	return Stages[c.idx], true
}

func (c *Controller) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}
