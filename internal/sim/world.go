// Package sim is an in-process stand-in for the robot simulator: it tracks
// pose, obstacles and battery, and executes goals at constant speed.
package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"cp1-controllers/internal/battery"
	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/environment"
	"cp1-controllers/internal/goal"
	"cp1-controllers/internal/interfaces"
)

const (
	serviceName = "sim"

	// BlockRadius is how close the robot may get to an obstacle centre.
	BlockRadius = 0.5

	idleDrainPerLoad = 0.00005 // Ah/s per unit of power load
	motionDrain      = 0.0003  // Ah/s while driving
)

// Options configure a world.
type Options struct {
	Capacity  float64
	Charge    float64
	Speed     float64
	PowerLoad float64
	Tick      time.Duration
	TimeScale float64
}

// World is the simulated environment. It implements environment.Environment
// and goal.Executor.
type World struct {
	mu         sync.Mutex
	pose       environment.Pose
	obstacles  map[string]goal.Point
	capacity   float64
	charge     float64
	chargeRate float64
	powerLoad  float64
	charging   bool
	speed      float64
	configID   int
	failures   map[string]error
	active     *run

	tick      time.Duration
	timeScale float64
	readings  chan float64
	logger    interfaces.Logger
}

// NewWorld creates a world with the robot at the origin.
func NewWorld(opts Options, logger interfaces.Logger) *World {
	if opts.Tick <= 0 {
		opts.Tick = 100 * time.Millisecond
	}
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}
	return &World{
		pose:      environment.Pose{Valid: true},
		obstacles: make(map[string]goal.Point),
		capacity:  opts.Capacity,
		charge:    opts.Charge,
		powerLoad: opts.PowerLoad,
		speed:     opts.Speed,
		failures:  make(map[string]error),
		tick:      opts.Tick,
		timeScale: opts.TimeScale,
		readings:  make(chan float64, 1),
		logger:    logger,
	}
}

// FailOn makes operation op fail with err until cleared with a nil err.
// Operation names match the environment method names, e.g. "Spawn".
func (w *World) FailOn(op string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == nil {
		delete(w.failures, op)
		return
	}
	w.failures[op] = err
}

func (w *World) failure(op string) error {
	if err, ok := w.failures[op]; ok {
		return apperror.NewServiceError(serviceName, op, err)
	}
	return nil
}

// Readings is the charge-reading stream, one reading per tick, last write wins.
func (w *World) Readings() <-chan float64 {
	return w.readings
}

// Run advances the battery model every tick until ctx is done.
func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	dt := w.tick.Seconds() * w.timeScale

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			battery.Offer(w.readings, w.stepBattery(dt))
		}
	}
}

func (w *World) stepBattery(dt float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	drain := w.powerLoad * idleDrainPerLoad
	if w.pose.LinearVelocity > 0 {
		drain += motionDrain
	}
	delta := -drain * dt
	if w.charging {
		delta += w.chargeRate * dt
	}
	w.charge = math.Max(0, math.Min(w.capacity, w.charge+delta))
	return w.charge
}

// Charge returns the current simulated charge.
func (w *World) Charge() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.charge
}

// SetSpeed changes the speed used for point goals.
func (w *World) SetSpeed(v float64) {
	w.mu.Lock()
	w.speed = v
	w.mu.Unlock()
}

// Obstacles returns the obstacles currently in the world.
func (w *World) Obstacles() map[string]goal.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]goal.Point, len(w.obstacles))
	for k, v := range w.obstacles {
		out[k] = v
	}
	return out
}

func (w *World) GetPose(context.Context) (environment.Pose, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.failure("GetPose"); err != nil {
		return environment.UnknownPose(), err
	}
	return w.pose, nil
}

func (w *World) SetPose(_ context.Context, x, y, yaw float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.failure("SetPose"); err != nil {
		return err
	}
	w.pose = environment.Pose{X: x, Y: y, Yaw: yaw, Valid: true}
	w.logger.Infof("The bot is positioned in the new place at (%.2f, %.2f)", x, y)
	return nil
}

func (w *World) Spawn(_ context.Context, name, _ string, x, y float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.failure("Spawn"); err != nil {
		return err
	}
	if _, exists := w.obstacles[name]; exists {
		return apperror.NewServiceError(serviceName, "Spawn", fmt.Errorf("entity %s already exists", name))
	}
	w.obstacles[name] = goal.Point{X: x, Y: y}
	return nil
}

func (w *World) Delete(_ context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.failure("Delete"); err != nil {
		return err
	}
	if _, exists := w.obstacles[name]; !exists {
		return apperror.NewServiceError(serviceName, "Delete", fmt.Errorf("entity %s does not exist", name))
	}
	delete(w.obstacles, name)
	return nil
}

func (w *World) SetCharge(_ context.Context, value float64) error {
	return w.set("SetCharge", func() { w.charge = math.Max(0, math.Min(w.capacity, value)) })
}

func (w *World) SetChargeRate(_ context.Context, value float64) error {
	return w.set("SetChargeRate", func() { w.chargeRate = value })
}

func (w *World) SetPowerLoad(_ context.Context, value float64) error {
	return w.set("SetPowerLoad", func() { w.powerLoad = value })
}

func (w *World) SetCharging(_ context.Context, charging bool) error {
	return w.set("SetCharging", func() { w.charging = charging })
}

func (w *World) GetConfiguration(_ context.Context, configID int) error {
	return w.set("GetConfiguration", func() { w.configID = configID })
}

func (w *World) set(op string, apply func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.failure(op); err != nil {
		return err
	}
	apply()
	return nil
}

// blockedAt reports the obstacle closest to p within BlockRadius. Caller holds mu.
func (w *World) blockedAt(p goal.Point) (string, bool) {
	for name, o := range w.obstacles {
		if math.Hypot(o.X-p.X, o.Y-p.Y) < BlockRadius {
			return name, true
		}
	}
	return "", false
}
