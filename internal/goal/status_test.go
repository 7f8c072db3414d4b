package goal

import (
	"testing"

	"cp1-controllers/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestTranslateKnownCodes(t *testing.T) {
	cases := []struct {
		status Status
		want   string
	}{
		{StatusPending, "Status(0 - PENDING)"},
		{StatusActive, "Status(1 - ACTIVE)"},
		{StatusPreempted, "Status(2 - PREEMPTED)"},
		{StatusSucceeded, "Status(3 - SUCCEEDED)"},
		{StatusAborted, "Status(4 - ABORTED)"},
		{StatusRejected, "Status(5 - REJECTED)"},
		{StatusPreempting, "Status(6 - PREEMPTING)"},
		{StatusRecalling, "Status(7 - RECALLING)"},
		{StatusRecalled, "Status(8 - RECALLED)"},
		{StatusLost, "Status(9 - LOST)"},
	}

	seen := make(map[string]bool)
	for _, tc := range cases {
		got := Translate(tc.status)
		assert.Equal(t, tc.want, got)
		assert.False(t, seen[got], "label %s reused", got)
		seen[got] = true
	}
}

func TestTranslateUnknownCodeFallsBack(t *testing.T) {
	assert.Equal(t, "Status(42 - UNKNOWN)", Translate(Status(42)))
	assert.Equal(t, "Status(-1 - UNKNOWN)", Translate(Status(-1)))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	for s := StatusPreempted; s <= StatusLost; s++ {
		assert.True(t, s.IsTerminal(), s.String())
	}
	assert.False(t, Status(10).IsTerminal())
}

func TestTrackerAcceptsOneTerminalStatus(t *testing.T) {
	tr := newTracker("g1", testutil.NewLogger())

	assert.False(t, tr.apply(DoneEvent(StatusActive)))
	assert.True(t, tr.apply(ActiveEvent()))
	assert.False(t, tr.apply(ActiveEvent()))
	assert.True(t, tr.apply(FeedbackEvent(Feedback{})))
	assert.True(t, tr.apply(DoneEvent(StatusAborted)))
	assert.Equal(t, StatusAborted, tr.status())

	assert.False(t, tr.apply(DoneEvent(StatusSucceeded)))
	assert.False(t, tr.apply(FeedbackEvent(Feedback{})))
	assert.Equal(t, StatusAborted, tr.status())
}

func TestTrackerAllowsRejectFromPending(t *testing.T) {
	tr := newTracker("g2", testutil.NewLogger())
	assert.True(t, tr.apply(DoneEvent(StatusRejected)))
	assert.Equal(t, StatusRejected, tr.status())
}
