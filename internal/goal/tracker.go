// internal/goal/tracker.go
package goal

import (
	"context"
	"strings"

	"cp1-controllers/internal/interfaces"

	"github.com/looplab/fsm"
)

const eventActivate = "activate"

// tracker is the state machine of one goal: PENDING, then ACTIVE, then a
// terminal status that admits no further transitions.
type tracker struct {
	goalID string
	fsm    *fsm.FSM
	logger interfaces.Logger
}

func newTracker(goalID string, logger interfaces.Logger) *tracker {
	t := &tracker{goalID: goalID, logger: logger}

	live := []string{StatusPending.String(), StatusActive.String()}
	events := fsm.Events{
		{Name: eventActivate, Src: []string{StatusPending.String()}, Dst: StatusActive.String()},
	}
	for s := StatusPreempted; s <= StatusLost; s++ {
		events = append(events, fsm.EventDesc{Name: terminalEvent(s), Src: live, Dst: s.String()})
	}

	t.fsm = fsm.NewFSM(
		StatusPending.String(),
		events,
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				t.logger.Debugf("GOAL %s: state changed from %s -> %s", t.goalID, e.Src, e.Dst)
			},
		},
	)
	return t
}

func terminalEvent(s Status) string {
	return "finish_" + strings.ToLower(s.String())
}

// apply moves the tracker along ev and reports whether ev was accepted.
func (t *tracker) apply(ev Event) bool {
	switch ev.Kind {
	case EventActive:
		return t.fire(eventActivate)
	case EventFeedback:
		return !t.status().IsTerminal()
	case EventDone:
		if !ev.Status.IsTerminal() {
			t.logger.Warnf("GOAL %s: ignoring non-terminal done status %s", t.goalID, Translate(ev.Status))
			return false
		}
		return t.fire(terminalEvent(ev.Status))
	default:
		return false
	}
}

func (t *tracker) fire(name string) bool {
	if err := t.fsm.Event(context.Background(), name); err != nil {
		t.logger.Debugf("GOAL %s: %s rejected in %s: %v", t.goalID, name, t.fsm.Current(), err)
		return false
	}
	return true
}

func (t *tracker) status() Status {
	return parseStatus(t.fsm.Current())
}
