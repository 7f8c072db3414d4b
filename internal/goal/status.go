// internal/goal/status.go
package goal

import "fmt"

// Status is a remote goal state, numbered like the actionlib GoalStatus codes.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusPreempted
	StatusSucceeded
	StatusAborted
	StatusRejected
	StatusPreempting
	StatusRecalling
	StatusRecalled
	StatusLost
)

var statusNames = [...]string{
	StatusPending:    "PENDING",
	StatusActive:     "ACTIVE",
	StatusPreempted:  "PREEMPTED",
	StatusSucceeded:  "SUCCEEDED",
	StatusAborted:    "ABORTED",
	StatusRejected:   "REJECTED",
	StatusPreempting: "PREEMPTING",
	StatusRecalling:  "RECALLING",
	StatusRecalled:   "RECALLED",
	StatusLost:       "LOST",
}

// String returns the status name, or UNKNOWN for codes outside the table.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "UNKNOWN"
	}
	return statusNames[s]
}

// IsTerminal reports whether s is a known status other than PENDING and ACTIVE.
func (s Status) IsTerminal() bool {
	return s > StatusActive && s <= StatusLost
}

// Translate formats s for logs, e.g. "Status(3 - SUCCEEDED)".
func Translate(s Status) string {
	return fmt.Sprintf("Status(%d - %s)", int(s), s)
}

func parseStatus(name string) Status {
	for i, n := range statusNames {
		if n == name {
			return Status(i)
		}
	}
	return StatusLost
}
