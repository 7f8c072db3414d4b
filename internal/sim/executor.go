package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/goal"
)

// run is one goal being driven by the world. Only one run is active at a
// time; a new Send preempts the previous one.
type run struct {
	id       string
	targets  []goal.Point
	speed    float64
	next     int
	events   chan goal.Event
	stopped  chan struct{}
	stopOnce sync.Once
}

func (r *run) stop() {
	r.stopOnce.Do(func() { close(r.stopped) })
}

func (r *run) send(ctx context.Context, ev goal.Event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}

func (r *run) feedback(fb goal.Feedback) {
	select {
	case r.events <- goal.FeedbackEvent(fb):
	default:
	}
}

// Send starts driving towards the goal's targets. Unparseable programs are REJECTED.
func (w *World) Send(ctx context.Context, goalID string, g goal.Goal) (<-chan goal.Event, error) {
	w.mu.Lock()
	if err := w.failure("Send"); err != nil {
		w.mu.Unlock()
		return nil, err
	}

	r := &run{
		id:      goalID,
		speed:   w.speed,
		events:  make(chan goal.Event, 32),
		stopped: make(chan struct{}),
	}
	var rejectReason error
	switch g.Kind {
	case goal.KindPoint:
		r.targets = []goal.Point{{X: g.X, Y: g.Y}}
	case goal.KindInstructionGraph:
		points, speed, err := goal.ParseInstructionGraph(g.Program)
		if err != nil {
			rejectReason = err
		}
		r.targets, r.speed = points, speed
	default:
		rejectReason = fmt.Errorf("unsupported goal kind %s", g.Kind)
	}
	if rejectReason == nil && r.speed <= 0 {
		rejectReason = fmt.Errorf("speed %v is not positive", r.speed)
	}

	prev := w.active
	if rejectReason == nil {
		w.active = r
	}
	w.mu.Unlock()

	if rejectReason != nil {
		w.logger.Warnf("sim: rejecting goal %s: %v", goalID, rejectReason)
		go func() {
			defer close(r.events)
			r.send(ctx, goal.DoneEvent(goal.StatusRejected))
		}()
		return r.events, nil
	}

	if prev != nil {
		prev.stop()
	}
	go w.execute(ctx, r)
	return r.events, nil
}

// Cancel preempts goalID if it is the active goal.
func (w *World) Cancel(_ context.Context, goalID string) error {
	w.mu.Lock()
	r := w.active
	w.mu.Unlock()
	if r == nil || r.id != goalID {
		return fmt.Errorf("goal %s is not active: %w", goalID, apperror.ErrNotFound)
	}
	r.stop()
	return nil
}

func (w *World) execute(ctx context.Context, r *run) {
	defer close(r.events)
	defer w.release(r)

	r.send(ctx, goal.ActiveEvent())

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	dt := w.tick.Seconds() * w.timeScale

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopped:
			r.send(ctx, goal.DoneEvent(goal.StatusPreempted))
			return
		case <-ticker.C:
			fb, status, finished := w.advance(r, dt)
			if finished {
				r.send(ctx, goal.DoneEvent(status))
				return
			}
			r.feedback(fb)
		}
	}
}

func (w *World) release(r *run) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == r {
		w.active = nil
		w.pose.LinearVelocity = 0
	}
}

// advance moves the robot one tick along the route.
func (w *World) advance(r *run, dt float64) (goal.Feedback, goal.Status, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active != r {
		return goal.Feedback{}, goal.StatusPreempted, true
	}
	if w.charge <= 0 {
		w.logger.Warnf("sim: battery depleted, aborting goal %s", r.id)
		return goal.Feedback{}, goal.StatusAborted, true
	}

	target := r.targets[r.next]
	pos := goal.Point{X: w.pose.X, Y: w.pose.Y}
	step := r.speed * dt
	dist := math.Hypot(target.X-pos.X, target.Y-pos.Y)

	nextPos := target
	arrived := dist <= step
	if !arrived {
		nextPos = goal.Point{
			X: pos.X + (target.X-pos.X)*step/dist,
			Y: pos.Y + (target.Y-pos.Y)*step/dist,
		}
	}
	if name, blocked := w.blockedAt(nextPos); blocked {
		w.logger.Warnf("sim: path to (%.2f, %.2f) blocked by %s", target.X, target.Y, name)
		w.pose.LinearVelocity = 0
		return goal.Feedback{}, goal.StatusAborted, true
	}

	if dist > 0 {
		w.pose.Yaw = math.Atan2(target.Y-pos.Y, target.X-pos.X)
	}
	w.pose.X, w.pose.Y = nextPos.X, nextPos.Y
	w.pose.LinearVelocity = r.speed

	if arrived {
		r.next++
		if r.next == len(r.targets) {
			w.pose.LinearVelocity = 0
			return goal.Feedback{}, goal.StatusSucceeded, true
		}
	}

	remaining := len(r.targets) - r.next
	return goal.Feedback{
		X:         nextPos.X,
		Y:         nextPos.Y,
		Remaining: remaining,
		Message:   fmt.Sprintf("%d targets remaining", remaining),
		At:        time.Now(),
	}, goal.StatusActive, false
}
