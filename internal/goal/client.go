// internal/goal/client.go
package goal

import (
	"context"
	"time"

	"cp1-controllers/internal/common/idgen"
	"cp1-controllers/internal/interfaces"
)

// Client submits goals and blocks until a terminal status or the timeout.
type Client struct {
	executor        Executor
	ids             *idgen.Generator
	logger          interfaces.Logger
	cancelOnTimeout bool
}

// NewClient returns a client sending goals through executor.
func NewClient(executor Executor, logger interfaces.Logger) *Client {
	return &Client{
		executor: executor,
		ids:      idgen.NewGenerator(),
		logger:   logger,
	}
}

// WithCancelOnTimeout makes Submit send a cancel to the executor when the wait times out.
func (c *Client) WithCancelOnTimeout(enabled bool) *Client {
	c.cancelOnTimeout = enabled
	return c
}

// Submit sends g and waits up to timeout for a terminal status. Callbacks are
// invoked in executor order on a separate goroutine, feedback always before done.
// A timeout is reported as a failed outcome; the remote goal is not cancelled
// unless WithCancelOnTimeout is set.
func (c *Client) Submit(ctx context.Context, g Goal, cb Callbacks, timeout time.Duration) Outcome {
	goalID := c.ids.OrderID()
	started := time.Now()
	outcome := Outcome{GoalID: goalID, Goal: g, Status: StatusPending}

	goalCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()

	events, err := c.executor.Send(goalCtx, goalID, g)
	if err != nil {
		c.logger.Errorf("❌ Failed to send goal %s (%s): %v", goalID, g, err)
		outcome.Status = StatusLost
		outcome.Err = err
		outcome.Elapsed = time.Since(started)
		return outcome
	}
	c.logger.Infof("🚀 Goal %s sent: %s", goalID, g)

	tr := newTracker(goalID, c.logger)
	done := make(chan Status, 1)
	go c.dispatch(goalCtx, tr, events, cb, done)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case status := <-done:
		outcome.Status = status
	case <-timer.C:
		outcome.Status = tr.status()
		outcome.TimedOut = true
		c.logger.Warnf("⏰ Goal %s did not finish within %s (last %s)", goalID, timeout, Translate(outcome.Status))
		if c.cancelOnTimeout {
			if err := c.Cancel(ctx, goalID); err != nil {
				c.logger.Errorf("Failed to cancel timed out goal %s: %v", goalID, err)
			}
		}
	case <-ctx.Done():
		outcome.Status = tr.status()
		outcome.Err = ctx.Err()
	}

	outcome.Elapsed = time.Since(started)
	return outcome
}

// Cancel asks the executor to stop goalID.
func (c *Client) Cancel(ctx context.Context, goalID string) error {
	c.logger.Warnf("Cancelling goal %s", goalID)
	return c.executor.Cancel(ctx, goalID)
}

// dispatch drains the executor stream, driving the tracker and the callbacks.
// Once ctx is done nothing more is delivered to the caller.
func (c *Client) dispatch(ctx context.Context, tr *tracker, events <-chan Event, cb Callbacks, done chan<- Status) {
	for ev := range events {
		if ctx.Err() != nil {
			continue
		}
		if !tr.apply(ev) {
			continue
		}

		switch ev.Kind {
		case EventActive:
			if cb.OnActive != nil {
				cb.OnActive()
			}
		case EventFeedback:
			if cb.OnFeedback != nil {
				ev.Feedback.GoalID = tr.goalID
				cb.OnFeedback(ev.Feedback)
			}
		case EventDone:
			if cb.OnDone != nil {
				cb.OnDone(ev.Status)
			}
			done <- ev.Status
		}
	}

	// stream ended without a terminal status
	if ctx.Err() == nil && !tr.status().IsTerminal() {
		tr.apply(DoneEvent(StatusLost))
		c.logger.Warnf("Goal %s stream closed before a terminal status", tr.goalID)
		if cb.OnDone != nil {
			cb.OnDone(StatusLost)
		}
		done <- StatusLost
	}
}
