// Package goaltest provides a scripted goal executor for tests.
package goaltest

import (
	"context"
	"sync"
	"time"

	"cp1-controllers/internal/goal"
)

// Script is what the executor replays for one Send.
type Script struct {
	Events  []goal.Event
	Delay   time.Duration // before each event
	SendErr error
	Hang    bool // keep the stream open after the events until the listener leaves
}

// Succeed goes active, emits n feedback ticks and succeeds.
func Succeed(feedback int) Script {
	return finishWith(goal.StatusSucceeded, feedback)
}

// Finish goes active, emits n feedback ticks and ends with status.
func Finish(status goal.Status, feedback int) Script {
	return finishWith(status, feedback)
}

// Stall goes active and never finishes.
func Stall() Script {
	return Script{Events: []goal.Event{goal.ActiveEvent()}, Hang: true}
}

func finishWith(status goal.Status, feedback int) Script {
	events := []goal.Event{goal.ActiveEvent()}
	for i := 0; i < feedback; i++ {
		events = append(events, goal.FeedbackEvent(goal.Feedback{Remaining: feedback - i}))
	}
	return Script{Events: append(events, goal.DoneEvent(status))}
}

// Executor replays scripts in order; the last script repeats once exhausted.
type Executor struct {
	mu        sync.Mutex
	scripts   []Script
	sent      []goal.Goal
	cancelled []string
	wg        sync.WaitGroup
}

func NewExecutor(scripts ...Script) *Executor {
	return &Executor{scripts: scripts}
}

func (e *Executor) Send(ctx context.Context, _ string, g goal.Goal) (<-chan goal.Event, error) {
	e.mu.Lock()
	script := Succeed(0)
	if n := len(e.sent); len(e.scripts) > 0 {
		if n >= len(e.scripts) {
			n = len(e.scripts) - 1
		}
		script = e.scripts[n]
	}
	e.sent = append(e.sent, g)
	e.mu.Unlock()

	if script.SendErr != nil {
		return nil, script.SendErr
	}

	ch := make(chan goal.Event)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(ch)
		for _, ev := range script.Events {
			if script.Delay > 0 {
				select {
				case <-time.After(script.Delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		if script.Hang {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

func (e *Executor) Cancel(_ context.Context, goalID string) error {
	e.mu.Lock()
	e.cancelled = append(e.cancelled, goalID)
	e.mu.Unlock()
	return nil
}

// Sent returns every goal received so far.
func (e *Executor) Sent() []goal.Goal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]goal.Goal(nil), e.sent...)
}

// Cancelled returns the goal ids passed to Cancel.
func (e *Executor) Cancelled() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.cancelled...)
}

// Wait blocks until every replay goroutine has exited.
func (e *Executor) Wait() {
	e.wg.Wait()
}
