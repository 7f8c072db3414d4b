// Package goal submits navigation and instruction-graph goals to a remote
// executor and waits, bounded by a timeout, for their terminal status.
package goal

import (
	"context"
	"fmt"
	"time"

	"cp1-controllers/internal/common/apperror"
)

// Kind tells point goals from instruction graph goals.
type Kind int

const (
	KindPoint Kind = iota
	KindInstructionGraph
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindInstructionGraph:
		return "instruction-graph"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Goal is either a point destination or an opaque instruction-graph program.
type Goal struct {
	Kind    Kind
	X       float64
	Y       float64
	Program string
}

func PointGoal(x, y float64) Goal {
	return Goal{Kind: KindPoint, X: x, Y: y}
}

func InstructionGraphGoal(program string) Goal {
	return Goal{Kind: KindInstructionGraph, Program: program}
}

func (g Goal) String() string {
	if g.Kind == KindPoint {
		return fmt.Sprintf("point(%.2f, %.2f)", g.X, g.Y)
	}
	return fmt.Sprintf("instruction-graph(%d bytes)", len(g.Program))
}

// Feedback is one progress tick from an active goal.
type Feedback struct {
	GoalID    string
	X         float64
	Y         float64
	Remaining int
	Message   string
	At        time.Time
}

// EventKind identifies what an executor Event carries.
type EventKind int

const (
	EventActive EventKind = iota
	EventFeedback
	EventDone
)

// Event is what an executor streams back for one goal.
type Event struct {
	Kind     EventKind
	Feedback Feedback
	Status   Status
}

func ActiveEvent() Event { return Event{Kind: EventActive, Status: StatusActive} }
func FeedbackEvent(fb Feedback) Event { return Event{Kind: EventFeedback, Feedback: fb, Status: StatusActive} }
func DoneEvent(s Status) Event { return Event{Kind: EventDone, Status: s} }

// Executor runs goals remotely.
//
// Send returns a channel carrying at most one EventActive, any number of
// EventFeedback and at most one EventDone, in production order. The executor
// must close the channel once the goal is terminal or ctx is done; ctx ending
// means the caller stopped listening, not that the remote goal was cancelled.
type Executor interface {
	Send(ctx context.Context, goalID string, g Goal) (<-chan Event, error)
	Cancel(ctx context.Context, goalID string) error
}

// Callbacks run on the client's per-goal dispatch goroutine, never on the caller's.
type Callbacks struct {
	OnActive   func()
	OnFeedback func(Feedback)
	OnDone     func(Status)
}

// Outcome is the result of one Submit.
type Outcome struct {
	GoalID   string
	Goal     Goal
	Status   Status
	TimedOut bool
	Err      error
	Elapsed  time.Duration
}

// Succeeded reports whether the goal reached SUCCEEDED within the timeout.
func (o Outcome) Succeeded() bool {
	return !o.TimedOut && o.Err == nil && o.Status == StatusSucceeded
}

// Error returns a *apperror.GoalError for anything but success.
func (o Outcome) Error() error {
	if o.Succeeded() {
		return nil
	}
	return &apperror.GoalError{
		GoalID:   o.GoalID,
		Status:   Translate(o.Status),
		TimedOut: o.TimedOut,
		Cause:    o.Err,
	}
}
