package scenario

import (
	"context"
	"time"

	"cp1-controllers/internal/common/constants"
	"cp1-controllers/internal/common/idgen"
	"cp1-controllers/internal/environment"
	"cp1-controllers/internal/events"
	"cp1-controllers/internal/mission"
	"cp1-controllers/internal/waypoint"

	"golang.org/x/sync/errgroup"
)

type plan struct {
	start     waypoint.Waypoint
	targets   []waypoint.Waypoint
	predicted float64
}

type missionStarted struct {
	MissionID        string   `json:"mission_id"`
	Scenario         string   `json:"scenario"`
	Targets          []string `json:"targets"`
	PredictedSeconds float64  `json:"predicted_seconds"`
}

// BaselineA places the robot at the start and runs the mission undisturbed.
func (r *Runner) BaselineA(ctx context.Context) (Summary, error) {
	p, err := r.prepare(ctx)
	if err != nil {
		return Summary{}, err
	}
	return r.execute(ctx, NameBaselineA, p), nil
}

// BaselineB blocks one waypoint with an obstacle before the mission starts.
func (r *Runner) BaselineB(ctx context.Context) (Summary, error) {
	p, err := r.prepare(ctx)
	if err != nil {
		return Summary{}, err
	}

	blocked, err := r.Map.Coords(r.opts.ObstacleAt)
	if err != nil {
		return Summary{}, err
	}
	// A failed placement is logged by the registry; the mission still runs.
	if name, err := r.Registry.Place(ctx, blocked.X, blocked.Y); err == nil {
		r.Logger.Infof("Obstacle %s placed at %s before start", name, blocked.Name)
	}

	return r.execute(ctx, NameBaselineB, p), nil
}

// BaselineC runs the mission while a fault injector drops an obstacle near
// the robot after FaultDelay and takes it away again after another FaultDelay.
func (r *Runner) BaselineC(ctx context.Context) (Summary, error) {
	p, err := r.prepare(ctx)
	if err != nil {
		return Summary{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	missionDone := make(chan struct{})
	var summary Summary

	g.Go(func() error {
		defer close(missionDone)
		summary = r.execute(gctx, NameBaselineC, p)
		return nil
	})
	g.Go(func() error {
		r.injectFault(gctx, missionDone)
		return nil
	})

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Runner) injectFault(ctx context.Context, missionDone <-chan struct{}) {
	if !r.wait(ctx, missionDone, r.opts.FaultDelay) {
		r.Logger.Infof("Mission ended before the fault was injected")
		return
	}

	pose, err := r.Env.GetPose(ctx)
	if err != nil {
		r.Logger.Warnf("Fault injection skipped, robot pose unavailable: %v", err)
		return
	}
	_, next, err := r.Map.TwoClosest(pose.X, pose.Y)
	if err != nil {
		r.Logger.Warnf("Fault injection skipped: %v", err)
		return
	}
	name, err := r.Registry.Place(ctx, next.X, next.Y)
	if err != nil {
		return
	}
	r.Logger.Warnf("⚠️ Fault injected: %s placed at %s", name, next.Name)

	r.wait(ctx, missionDone, r.opts.FaultDelay)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.Registry.Remove(cleanupCtx, name); err == nil {
		r.Logger.Infof("Fault cleared: %s removed", name)
	}
}

// wait sleeps for d and reports whether it ran to completion.
func (r *Runner) wait(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}

// prepare applies the configuration, moves the robot to the start and predicts the mission time.
func (r *Runner) prepare(ctx context.Context) (plan, error) {
	start, err := r.Map.Coords(r.opts.Start)
	if err != nil {
		return plan{}, err
	}
	targets, err := r.Map.Resolve(r.opts.Targets)
	if err != nil {
		return plan{}, err
	}

	if err := r.applyConfiguration(ctx); err != nil {
		return plan{}, err
	}

	if r.opts.StartupDelay > 0 {
		r.Logger.Infof("Waiting %s for the simulator to come up", r.opts.StartupDelay)
		if !r.wait(ctx, nil, r.opts.StartupDelay) {
			return plan{}, ctx.Err()
		}
	}

	environment.Acknowledge(r.Logger, "setPose", r.Env.SetPose(ctx, start.X, start.Y, 0))

	route := append([]waypoint.Waypoint{start}, targets...)
	predicted := r.Predictor.Predict(waypoint.Points(route))
	r.Logger.Infof("Predicted mission time %.1f seconds at %.2fm/s", predicted, r.Predictor.Speed())

	return plan{start: start, targets: targets, predicted: predicted}, nil
}

func (r *Runner) applyConfiguration(ctx context.Context) error {
	entry, err := r.Conf.Get(r.opts.ConfigurationID)
	if err != nil {
		return err
	}
	r.Logger.Infof("Using configuration %d (power load %.2f, speed %.2fm/s)", entry.ConfigID, entry.PowerLoad, entry.Speed)

	environment.Acknowledge(r.Logger, "getConfiguration", r.Env.GetConfiguration(ctx, entry.ConfigID))
	environment.Acknowledge(r.Logger, "setPowerLoad", r.Env.SetPowerLoad(ctx, entry.PowerLoad))
	if r.opts.InitialCharge > 0 {
		environment.Acknowledge(r.Logger, "setCharge", r.Env.SetCharge(ctx, r.opts.InitialCharge))
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, scenario string, p plan) Summary {
	summary := Summary{
		MissionID:        idgen.MissionID(),
		Scenario:         scenario,
		Mode:             r.opts.Mode,
		ConfigurationID:  r.opts.ConfigurationID,
		Targets:          waypoint.Names(p.targets),
		TasksTotal:       len(p.targets),
		PredictedSeconds: p.predicted,
	}
	r.publish(ctx, constants.EventMissionStarted, missionStarted{
		MissionID:        summary.MissionID,
		Scenario:         scenario,
		Targets:          summary.Targets,
		PredictedSeconds: p.predicted,
	})

	summary.StartedAt = time.Now()
	var res mission.Result
	if r.opts.Mode == ModeProgram {
		res = r.Missions.RunProgram(ctx, p.targets)
	} else {
		res = r.Missions.RunWaypoints(ctx, p.targets)
	}
	summary.FinishedAt = time.Now()

	summary.ActualSeconds = summary.FinishedAt.Sub(summary.StartedAt).Seconds()
	summary.TasksCompleted = res.TasksCompleted
	summary.Attempts = attempts(res)
	summary.BatteryLow = res.BatteryLow

	after := context.WithoutCancel(ctx)
	snap := r.Battery.Snapshot()
	summary.FinalCharge = snap.Charge
	if len(p.targets) > 0 {
		summary.setFinalPose(environment.PoseOrUnknown(after, r.Env, r.Logger), p.targets[len(p.targets)-1])
	}

	r.report(summary)
	r.persist(after, summary)
	r.publish(after, constants.EventMissionCompleted, summary)
	return summary
}

func (r *Runner) report(s Summary) {
	r.Logger.Infof("The bot finished %d of %d tasks in the mission and the current battery level is %.4fAh",
		s.TasksCompleted, s.TasksTotal, s.FinalCharge)
	if s.FinalX != nil {
		r.Logger.Infof("The robot currently positioned at: x=%.2f, y=%.2f (%.2fm from %s)",
			*s.FinalX, *s.FinalY, *s.DistanceToTarget, s.Targets[len(s.Targets)-1])
	} else {
		r.Logger.Warnf("The robot position is unknown")
	}
	r.Logger.Infof("The mission was finished in %.1f seconds, while it was predicted to finish in %.1f seconds",
		s.ActualSeconds, s.PredictedSeconds)
}

func (r *Runner) persist(ctx context.Context, s Summary) {
	if r.Repository == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Repository.Save(ctx, s.Record()); err != nil {
		r.Logger.Errorf("❌ Failed to store mission %s: %v", s.MissionID, err)
		return
	}
	r.Logger.Debugf("Mission %s stored", s.MissionID)
}

func (r *Runner) publish(ctx context.Context, eventType string, data interface{}) {
	ev, err := events.NewEvent(eventType, r.opts.Source, data)
	if err != nil {
		r.Logger.Errorf("Failed to build %s event: %v", eventType, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Events.Publish(ctx, ev); err != nil {
		r.Logger.Warnf("Failed to publish %s event: %v", eventType, err)
	}
}
