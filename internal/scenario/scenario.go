// Package scenario runs the operator commands: the baseline missions and the
// obstacle fault-injection helpers.
package scenario

import (
	"context"
	"fmt"
	"time"

	"cp1-controllers/internal/confstore"
	"cp1-controllers/internal/environment"
	"cp1-controllers/internal/events"
	"cp1-controllers/internal/interfaces"
	"cp1-controllers/internal/mission"
	"cp1-controllers/internal/obstacle"
	"cp1-controllers/internal/repository"
	"cp1-controllers/internal/waypoint"
)

// Scenario names, also used as CLI command names and persisted on mission records.
const (
	NameBaselineA      = "baseline_a"
	NameBaselineB      = "baseline_b"
	NameBaselineC      = "baseline_c"
	NamePlaceObstacle  = "place_obstacle"
	NameRemoveObstacle = "remove_obstacle"
)

// Mission modes.
const (
	ModeWaypoints = "waypoints"
	ModeProgram   = "program"
)

// Defaults used by the baselines.
var (
	DefaultStart   = "l1"
	DefaultTargets = []string{"l2", "l4", "l2", "l5", "l8"}
	DefaultBlocked = "l3"
)

// Missions is the part of the coordinator the runner drives.
type Missions interface {
	RunWaypoints(ctx context.Context, targets []waypoint.Waypoint) mission.Result
	RunProgram(ctx context.Context, targets []waypoint.Waypoint) mission.Result
}

// Options describe one run.
type Options struct {
	Start           string
	Targets         []string
	ObstacleAt      string
	ConfigurationID int
	InitialCharge   float64
	Mode            string
	StartupDelay    time.Duration
	FaultDelay      time.Duration
	Source          string
}

// DefaultOptions returns the stock mission from l1 through l2,l4,l2,l5,l8.
func DefaultOptions() Options {
	return Options{
		Start:         DefaultStart,
		Targets:       append([]string(nil), DefaultTargets...),
		ObstacleAt:    DefaultBlocked,
		InitialCharge: 1,
		Mode:          ModeWaypoints,
		FaultDelay:    10 * time.Second,
	}
}

// Deps are the collaborators a runner needs. Repository and Events may be nil.
type Deps struct {
	Env        environment.Environment
	Registry   *obstacle.Registry
	Battery    mission.BatteryReader
	Missions   Missions
	Predictor  *mission.Predictor
	Map        *waypoint.Map
	Conf       *confstore.Store
	Repository repository.MissionRepository
	Events     events.Publisher
	Logger     interfaces.Logger
}

// Runner executes scenarios against one environment.
type Runner struct {
	Deps
	opts Options
}

// NewRunner validates the waypoint names up front.
func NewRunner(deps Deps, opts Options) (*Runner, error) {
	if opts.Mode == "" {
		opts.Mode = ModeWaypoints
	}
	if opts.Mode != ModeWaypoints && opts.Mode != ModeProgram {
		return nil, fmt.Errorf("unknown mission mode %q", opts.Mode)
	}
	if _, err := deps.Map.Coords(opts.Start); err != nil {
		return nil, fmt.Errorf("start waypoint: %w", err)
	}
	if _, err := deps.Map.Resolve(opts.Targets); err != nil {
		return nil, fmt.Errorf("target waypoints: %w", err)
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	return &Runner{Deps: deps, opts: opts}, nil
}

// Options returns the run options.
func (r *Runner) Options() Options {
	return r.opts
}

// Run dispatches a scenario by command name.
func (r *Runner) Run(ctx context.Context, name string) error {
	switch name {
	case NameBaselineA:
		_, err := r.BaselineA(ctx)
		return err
	case NameBaselineB:
		_, err := r.BaselineB(ctx)
		return err
	case NameBaselineC:
		_, err := r.BaselineC(ctx)
		return err
	case NamePlaceObstacle:
		_, err := r.PlaceObstacle(ctx)
		return err
	case NameRemoveObstacle:
		_, err := r.RemoveObstacles(ctx)
		return err
	default:
		return fmt.Errorf("unknown scenario %q", name)
	}
}
