package scenario

import (
	"math"
	"time"

	"cp1-controllers/internal/environment"
	"cp1-controllers/internal/mission"
	"cp1-controllers/internal/models"
	"cp1-controllers/internal/waypoint"
)

// Attempt is the outcome of one target.
type Attempt struct {
	Sequence       int     `json:"sequence"`
	Waypoint       string  `json:"waypoint"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	GoalID         string  `json:"goal_id"`
	Status         string  `json:"status"`
	TimedOut       bool    `json:"timed_out"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Summary is what a mission reports when it ends. Final pose fields are nil
// when the pose could not be read.
type Summary struct {
	MissionID        string    `json:"mission_id"`
	Scenario         string    `json:"scenario"`
	Mode             string    `json:"mode"`
	ConfigurationID  int       `json:"configuration_id"`
	Targets          []string  `json:"targets"`
	TasksTotal       int       `json:"tasks_total"`
	TasksCompleted   int       `json:"tasks_completed"`
	Attempts         []Attempt `json:"attempts"`
	PredictedSeconds float64   `json:"predicted_seconds"`
	ActualSeconds    float64   `json:"actual_seconds"`
	FinalCharge      float64   `json:"final_charge"`
	BatteryLow       bool      `json:"battery_low"`
	FinalX           *float64  `json:"final_x,omitempty"`
	FinalY           *float64  `json:"final_y,omitempty"`
	DistanceToTarget *float64  `json:"distance_to_target,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// attempts pairs outcomes with targets. A program run has one outcome shared by every target.
func attempts(res mission.Result) []Attempt {
	out := make([]Attempt, 0, len(res.Attempted))
	for i, w := range res.Attempted {
		if len(res.Outcomes) == 0 {
			break
		}
		o := res.Outcomes[0]
		if len(res.Outcomes) == len(res.Attempted) {
			o = res.Outcomes[i]
		}
		out = append(out, Attempt{
			Sequence:       i,
			Waypoint:       w.Name,
			X:              w.X,
			Y:              w.Y,
			GoalID:         o.GoalID,
			Status:         o.Status.String(),
			TimedOut:       o.TimedOut,
			ElapsedSeconds: o.Elapsed.Seconds(),
		})
	}
	return out
}

func (s *Summary) setFinalPose(pose environment.Pose, last waypoint.Waypoint) {
	if !pose.Valid || math.IsNaN(pose.X) || math.IsNaN(pose.Y) {
		return
	}
	x, y := pose.X, pose.Y
	d := math.Hypot(last.X-x, last.Y-y)
	s.FinalX, s.FinalY, s.DistanceToTarget = &x, &y, &d
}

// Record converts the summary to its persisted form.
func (s Summary) Record() *models.MissionRecord {
	rec := &models.MissionRecord{
		MissionID:        s.MissionID,
		Scenario:         s.Scenario,
		ConfigurationID:  s.ConfigurationID,
		TasksTotal:       s.TasksTotal,
		TasksCompleted:   s.TasksCompleted,
		PredictedSeconds: s.PredictedSeconds,
		ActualSeconds:    s.ActualSeconds,
		FinalCharge:      s.FinalCharge,
		BatteryLow:       s.BatteryLow,
		FinalX:           s.FinalX,
		FinalY:           s.FinalY,
		DistanceToTarget: s.DistanceToTarget,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
	}
	for _, a := range s.Attempts {
		rec.Attempts = append(rec.Attempts, models.WaypointAttempt{
			Sequence:       a.Sequence,
			Waypoint:       a.Waypoint,
			X:              a.X,
			Y:              a.Y,
			GoalID:         a.GoalID,
			Status:         a.Status,
			TimedOut:       a.TimedOut,
			ElapsedSeconds: a.ElapsedSeconds,
		})
	}
	return rec
}
