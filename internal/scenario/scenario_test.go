package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cp1-controllers/internal/battery"
	"cp1-controllers/internal/common/constants"
	"cp1-controllers/internal/confstore"
	"cp1-controllers/internal/events"
	"cp1-controllers/internal/goal"
	"cp1-controllers/internal/mission"
	"cp1-controllers/internal/models"
	"cp1-controllers/internal/obstacle"
	"cp1-controllers/internal/repository"
	"cp1-controllers/internal/sim"
	"cp1-controllers/internal/testutil"
	"cp1-controllers/internal/waypoint"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// l3 sits between l2 and l4, so an obstacle there blocks the l2 -> l4 leg.
var testWaypoints = []waypoint.Waypoint{
	{Name: "l1", X: 0, Y: 0},
	{Name: "l2", X: 4, Y: 0},
	{Name: "l3", X: 6, Y: 0},
	{Name: "l4", X: 8, Y: 0},
	{Name: "l5", X: 4, Y: 4},
	{Name: "l8", X: 0, Y: 4},
}

type memoryRepo struct {
	mu      sync.Mutex
	records []*models.MissionRecord
	err     error
}

func (m *memoryRepo) Save(_ context.Context, rec *models.MissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryRepo) FindByMissionID(context.Context, string) (*models.MissionRecord, error) {
	return nil, errors.New("not implemented")
}

func (m *memoryRepo) ListRecent(context.Context, string, int) ([]models.MissionRecord, error) {
	return nil, nil
}

var _ repository.MissionRepository = (*memoryRepo)(nil)

type fixture struct {
	world    *sim.World
	registry *obstacle.Registry
	monitor  *battery.Monitor
	repo     *memoryRepo
	pub      *testutil.Publisher
	log      *testutil.Logger
	runner   *Runner
	stop     func()
}

func writeConf(t *testing.T) *confstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"configurations": [
		{"config_id": 0, "power_load": 10, "speed": 2}
	]}`), 0o644))
	conf, err := confstore.Load(path)
	require.NoError(t, err)
	return conf
}

func newFixture(t *testing.T, tweak func(*Options)) *fixture {
	t.Helper()
	log := testutil.NewLogger()
	world := sim.NewWorld(sim.Options{
		Capacity:  1.2009,
		Charge:    1.2,
		Speed:     2,
		PowerLoad: 10,
		Tick:      time.Millisecond,
		TimeScale: 100,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		_ = world.Run(ctx)
	}()
	monitor := battery.NewMonitor(1.2009, 0.9, log)
	monitor.Start(ctx, world.Readings())

	m, err := waypoint.New("test-map", testWaypoints)
	require.NoError(t, err)

	registry := obstacle.NewRegistry(world, "<sdf/>", log)
	coordinator := mission.NewCoordinator(goal.NewClient(world, log), monitor, log, mission.Options{
		GoalTimeout: 5 * time.Second,
		Speed:       2,
	})
	pub := testutil.NewPublisher()
	repo := &memoryRepo{}

	opts := DefaultOptions()
	opts.InitialCharge = 1.2
	opts.FaultDelay = 20 * time.Millisecond
	opts.Source = "turtlebot-01"
	if tweak != nil {
		tweak(&opts)
	}

	runner, err := NewRunner(Deps{
		Env:        world,
		Registry:   registry,
		Battery:    monitor,
		Missions:   coordinator,
		Predictor:  mission.NewPredictor(2),
		Map:        m,
		Conf:       writeConf(t),
		Repository: repo,
		Events:     events.NewMQTTPublisher(pub, "cp1/events", log),
		Logger:     log,
	}, opts)
	require.NoError(t, err)

	return &fixture{
		world:    world,
		registry: registry,
		monitor:  monitor,
		repo:     repo,
		pub:      pub,
		log:      log,
		runner:   runner,
		stop: func() {
			cancel()
			<-worldDone
			<-monitor.Done()
		},
	}
}

func TestBaselineACompletesEveryTask(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	defer f.stop()

	s, err := f.runner.BaselineA(context.Background())
	require.NoError(t, err)

	assert.Equal(t, NameBaselineA, s.Scenario)
	assert.Equal(t, 5, s.TasksTotal)
	assert.Equal(t, 5, s.TasksCompleted)
	assert.Equal(t, []string{"l2", "l4", "l2", "l5", "l8"}, s.Targets)
	assert.InDelta(t, 10.0, s.PredictedSeconds, 1e-9)
	assert.False(t, s.BatteryLow)
	assert.Greater(t, s.FinalCharge, 1.08)

	require.NotNil(t, s.FinalX)
	assert.InDelta(t, 0, *s.FinalX, 1e-9)
	assert.InDelta(t, 4, *s.FinalY, 1e-9)
	assert.InDelta(t, 0, *s.DistanceToTarget, 1e-9)

	require.Len(t, s.Attempts, 5)
	for _, a := range s.Attempts {
		assert.Equal(t, "SUCCEEDED", a.Status)
	}
	assert.Equal(t, 1, f.log.Count("info", "The bot finished 5 of 5 tasks"))
}

func TestBaselineAPersistsAndPublishes(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	defer f.stop()

	s, err := f.runner.BaselineA(context.Background())
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	rec := f.repo.records[0]
	assert.Equal(t, s.MissionID, rec.MissionID)
	assert.Equal(t, 5, rec.TasksCompleted)
	assert.Len(t, rec.Attempts, 5)

	require.Len(t, f.pub.Messages("/"+constants.EventMissionStarted), 1)
	completed := f.pub.Messages("/" + constants.EventMissionCompleted)
	require.Len(t, completed, 1)

	var ev events.Event
	require.NoError(t, json.Unmarshal(completed[0].Payload, &ev))
	assert.Equal(t, "turtlebot-01", ev.Source)
	var published Summary
	require.NoError(t, json.Unmarshal(ev.Data, &published))
	assert.Equal(t, s.MissionID, published.MissionID)
	assert.Equal(t, 5, published.TasksCompleted)
}

func TestBaselineBLosesTheBlockedLeg(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	defer f.stop()

	s, err := f.runner.BaselineB(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, s.TasksCompleted)
	assert.Equal(t, "ABORTED", s.Attempts[1].Status)
	assert.Equal(t, "l4", s.Attempts[1].Waypoint)
	assert.Equal(t, 1, f.registry.Len())
	assert.Contains(t, f.world.Obstacles(), "Obstacle_0")
	assert.Equal(t, 1, f.log.Count("warn", "Could not reach l4"))
}

func TestBaselineCInjectsAndClearsFault(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	defer f.stop()

	s, err := f.runner.BaselineC(context.Background())
	require.NoError(t, err)

	assert.Equal(t, NameBaselineC, s.Scenario)
	assert.Len(t, s.Attempts, 5)
	assert.Equal(t, 1, f.log.Count("warn", "Fault injected"))
	assert.Zero(t, f.registry.Len())
	assert.Empty(t, f.world.Obstacles())
}

func TestBaselineCSkipsFaultWhenMissionIsShort(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, func(o *Options) {
		o.Targets = []string{"l1"}
		o.FaultDelay = time.Minute
	})
	defer f.stop()

	s, err := f.runner.BaselineC(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.TasksCompleted)
	assert.Equal(t, 1, f.log.Count("info", "Mission ended before the fault was injected"))
}

func TestProgramModeSharesOneGoal(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, func(o *Options) { o.Mode = ModeProgram })
	defer f.stop()

	s, err := f.runner.BaselineA(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, s.TasksCompleted)
	require.Len(t, s.Attempts, 5)
	assert.Equal(t, s.Attempts[0].GoalID, s.Attempts[4].GoalID)
}

func TestUnknownConfigurationStopsBaseline(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, func(o *Options) { o.ConfigurationID = 9 })
	defer f.stop()

	_, err := f.runner.BaselineA(context.Background())
	assert.ErrorIs(t, err, confstore.ErrUnknownConfiguration)
	assert.Empty(t, f.repo.records)
}

func TestCollaboratorFailuresDoNotStopMission(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	defer f.stop()
	f.world.FailOn("SetPowerLoad", errors.New("service timeout"))
	f.repo.err = errors.New("db down")
	f.pub.FailWith = errors.New("broker down")

	s, err := f.runner.BaselineA(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, s.TasksCompleted)
	assert.Equal(t, 1, f.log.Count("error", "Failed to store mission"))
	assert.Equal(t, 2, f.log.Count("warn", "Failed to publish"))
}

func TestPlaceAndRemoveObstacles(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	defer f.stop()
	ctx := context.Background()

	names, err := f.runner.PlaceObstacle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Obstacle_0", "Obstacle_1"}, names)
	obstacles := f.world.Obstacles()
	assert.Equal(t, goal.Point{X: 0, Y: 0}, obstacles["Obstacle_0"])
	assert.Equal(t, goal.Point{X: 4, Y: 0}, obstacles["Obstacle_1"])

	removed, err := f.runner.RemoveObstacles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, names, removed)
	assert.Empty(t, f.world.Obstacles())

	removed, err = f.runner.RemoveObstacles(ctx)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestPlaceObstacleFailures(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	defer f.stop()
	ctx := context.Background()

	f.world.FailOn("GetPose", errors.New("gazebo down"))
	_, err := f.runner.PlaceObstacle(ctx)
	assert.Error(t, err)
	f.world.FailOn("GetPose", nil)

	f.world.FailOn("Spawn", errors.New("gazebo down"))
	names, err := f.runner.PlaceObstacle(ctx)
	assert.Empty(t, names)
	assert.ErrorContains(t, err, "place obstacle at l1")
	assert.ErrorContains(t, err, "place obstacle at l2")
}

func TestRunDispatchesByName(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	defer f.stop()

	assert.Error(t, f.runner.Run(context.Background(), "baseline_z"))
	require.NoError(t, f.runner.Run(context.Background(), NamePlaceObstacle))
	assert.Equal(t, 2, f.registry.Len())
	require.NoError(t, f.runner.Run(context.Background(), NameRemoveObstacle))
	assert.Zero(t, f.registry.Len())
}

func TestNewRunnerValidatesRoute(t *testing.T) {
	m, err := waypoint.New("test-map", testWaypoints)
	require.NoError(t, err)
	deps := Deps{Map: m, Logger: testutil.NewLogger()}

	opts := DefaultOptions()
	opts.Targets = []string{"l2", "l99"}
	_, err = NewRunner(deps, opts)
	assert.ErrorIs(t, err, waypoint.ErrUnknownWaypoint)

	opts = DefaultOptions()
	opts.Mode = "teleport"
	_, err = NewRunner(deps, opts)
	assert.Error(t, err)
}
