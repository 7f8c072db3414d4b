// Package mission drives a robot through a sequence of waypoints while
// watching the battery on every feedback tick.
package mission

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"cp1-controllers/internal/battery"
	"cp1-controllers/internal/goal"
	"cp1-controllers/internal/interfaces"
	"cp1-controllers/internal/waypoint"
)

// BatteryReader is the read side of the battery monitor.
type BatteryReader interface {
	Snapshot() battery.Snapshot
}

// GoalSubmitter is the goal client as the coordinator uses it.
type GoalSubmitter interface {
	Submit(ctx context.Context, g goal.Goal, cb goal.Callbacks, timeout time.Duration) goal.Outcome
	Cancel(ctx context.Context, goalID string) error
}

// Options tune the coordinator.
type Options struct {
	GoalTimeout        time.Duration
	Speed              float64
	CancelOnLowBattery bool
}

// Result reports how far a mission got.
type Result struct {
	TasksCompleted int
	Attempted      []waypoint.Waypoint
	Outcomes       []goal.Outcome
	BatteryLow     bool
}

// Coordinator sequences goals through the goal client.
type Coordinator struct {
	goals   GoalSubmitter
	battery BatteryReader
	logger  interfaces.Logger
	opts    Options

	batteryLow atomic.Bool

	cancelMu  sync.Mutex
	cancelled map[string]bool
}

// NewCoordinator 새 미션 코디네이터 생성
func NewCoordinator(goals GoalSubmitter, reader BatteryReader, logger interfaces.Logger, opts Options) *Coordinator {
	return &Coordinator{
		goals:     goals,
		battery:   reader,
		logger:    logger,
		opts:      opts,
		cancelled: make(map[string]bool),
	}
}

// Options returns the settings the coordinator was built with.
func (c *Coordinator) Options() Options {
	return c.opts
}

// BatteryLow reports what the last feedback tick decided.
func (c *Coordinator) BatteryLow() bool {
	return c.batteryLow.Load()
}

// RunWaypoints sends one point goal per target, in order. A failed target is
// logged and the mission moves on to the next one.
func (c *Coordinator) RunWaypoints(ctx context.Context, targets []waypoint.Waypoint) Result {
	var res Result
	c.logger.Infof("🚀 A mission with %d tasks has been launched", len(targets))

	for i, target := range targets {
		if ctx.Err() != nil {
			c.logger.Warnf("Mission stopped before task %d/%d: %v", i+1, len(targets), ctx.Err())
			break
		}

		c.logger.Infof("Task %d/%d: heading to %s (%.2f, %.2f)", i+1, len(targets), target.Name, target.X, target.Y)
		out := c.goals.Submit(ctx, goal.PointGoal(target.X, target.Y), c.callbacks(), c.opts.GoalTimeout)

		res.Attempted = append(res.Attempted, target)
		res.Outcomes = append(res.Outcomes, out)
		if out.Succeeded() {
			res.TasksCompleted++
			c.logger.Infof("✅ Reached %s", target.Name)
			continue
		}
		c.logFailure(target.Name, out)
	}

	res.BatteryLow = c.BatteryLow()
	c.logger.Infof("Mission finished %d of %d tasks", res.TasksCompleted, len(targets))
	return res
}

// RunProgram folds all targets into one instruction-graph goal. The program
// either finishes every task or none of them.
func (c *Coordinator) RunProgram(ctx context.Context, targets []waypoint.Waypoint) Result {
	var res Result
	if len(targets) == 0 {
		return res
	}

	program := goal.BuildInstructionGraph(waypoint.Points(targets), c.opts.Speed)
	c.logger.Infof("🚀 A mission with %d tasks has been launched as one instruction graph", len(targets))
	c.logger.Debugf("instruction graph: %s", program)

	out := c.goals.Submit(ctx, goal.InstructionGraphGoal(program), c.callbacks(), c.opts.GoalTimeout)
	res.Attempted = append(res.Attempted, targets...)
	res.Outcomes = append(res.Outcomes, out)

	if out.Succeeded() {
		res.TasksCompleted = len(targets)
		c.logger.Infof("✅ Successfully executed the instructions and reached the destination")
	} else {
		c.logFailure("instruction graph", out)
	}

	res.BatteryLow = c.BatteryLow()
	return res
}

func (c *Coordinator) callbacks() goal.Callbacks {
	return goal.Callbacks{
		OnActive:   func() { c.logger.Infof("Plan is active!") },
		OnFeedback: c.evaluateBatteryPolicy,
		OnDone: func(s goal.Status) {
			if s == goal.StatusSucceeded {
				c.logger.Infof("Task succeeded!")
				return
			}
			c.logger.Warnf("Unhandled action response: %s", goal.Translate(s))
		},
	}
}

// evaluateBatteryPolicy runs on every feedback tick against the live charge.
func (c *Coordinator) evaluateBatteryPolicy(fb goal.Feedback) {
	snap := c.battery.Snapshot()

	if snap.IsLow {
		c.batteryLow.Store(true)
		if c.opts.CancelOnLowBattery {
			c.logger.Warnf("🔋 Battery level is low (%.4fAh < %.4fAh), cancelling goal %s",
				snap.Charge, snap.LowChargeLevel(), fb.GoalID)
			c.cancelOnce(fb.GoalID)
			return
		}
		c.logger.Warnf("🔋 Battery level is low (%.4fAh < %.4fAh)", snap.Charge, snap.LowChargeLevel())
		return
	}

	if c.batteryLow.Swap(false) {
		c.logger.Infof("🔋 Battery level is OK again (%.4fAh)", snap.Charge)
		return
	}
	c.logger.Infof("Battery level is OK (%.4fAh)", snap.Charge)
}

func (c *Coordinator) cancelOnce(goalID string) {
	if goalID == "" {
		return
	}
	c.cancelMu.Lock()
	if c.cancelled[goalID] {
		c.cancelMu.Unlock()
		return
	}
	c.cancelled[goalID] = true
	c.cancelMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.goals.Cancel(ctx, goalID); err != nil {
		c.logger.Errorf("Failed to cancel goal %s: %v", goalID, err)
	}
}

func (c *Coordinator) logFailure(target string, out goal.Outcome) {
	switch {
	case out.TimedOut:
		c.logger.Warnf("❌ Could not reach %s: timed out after %s in %s", target, out.Elapsed.Round(time.Millisecond), goal.Translate(out.Status))
	case out.Err != nil:
		c.logger.Errorf("❌ Could not reach %s: %v", target, out.Err)
	default:
		c.logger.Warnf("❌ Could not reach %s: %s", target, goal.Translate(out.Status))
	}
}
