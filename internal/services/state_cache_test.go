package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cp1-controllers/internal/battery"
	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stateTopic = "uagv/v2/cp1/turtlebot-01/state"

func newStateCache() (*StateCache, *testutil.Cache, *testutil.Publisher, *testutil.Logger) {
	cache := testutil.NewCache()
	pub := testutil.NewPublisher()
	log := testutil.NewLogger()
	return NewStateCache(cache, pub, testutil.NewConfig(), log), cache, pub, log
}

func TestStateMessageUpdatesCachedPose(t *testing.T) {
	sc, _, pub, _ := newStateCache()
	require.NoError(t, sc.Start())

	_, err := sc.GetPose(context.Background())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	n := pub.Deliver(stateTopic, []byte(`{
		"orderId": "abc",
		"agvPosition": {"x": 1.5, "y": -2, "theta": 0.7, "mapId": "cp1-map", "positionInitialized": true},
		"velocity": {"vx": 0.3, "vy": 0.4, "omega": 0}
	}`))
	require.Equal(t, 1, n)

	pose, err := sc.GetPose(context.Background())
	require.NoError(t, err)
	assert.True(t, pose.Valid)
	assert.Equal(t, 1.5, pose.X)
	assert.Equal(t, -2.0, pose.Y)
	assert.Equal(t, 0.7, pose.Yaw)
	assert.InDelta(t, 0.5, pose.LinearVelocity, 1e-9)
}

func TestStateWithoutPositionIsIgnored(t *testing.T) {
	sc, _, pub, log := newStateCache()
	require.NoError(t, sc.Start())

	pub.Deliver(stateTopic, []byte(`{"orderId": "abc"}`))
	pub.Deliver(stateTopic, []byte(`not json`))

	_, err := sc.GetPose(context.Background())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 1, log.Count("error", "Failed to unmarshal state message"))
}

func TestStopUnsubscribes(t *testing.T) {
	sc, _, pub, _ := newStateCache()
	require.NoError(t, sc.Start())
	sc.Stop()
	assert.Zero(t, pub.Deliver(stateTopic, []byte(`{}`)))
}

func TestCacheFailureIsReported(t *testing.T) {
	sc, cache, _, _ := newStateCache()
	cache.Err = errors.New("redis down")

	_, err := sc.GetPose(context.Background())
	assert.ErrorContains(t, err, "redis down")
	assert.Error(t, sc.SaveBattery(context.Background(), battery.Snapshot{}))
}

func TestBatterySnapshotRoundTrip(t *testing.T) {
	sc, _, _, _ := newStateCache()
	ctx := context.Background()

	_, err := sc.LoadBattery(ctx)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, sc.SaveBattery(ctx, battery.Snapshot{
		Charge:    1.05,
		Capacity:  1.2009,
		IsLow:     true,
		Known:     true,
		UpdatedAt: at,
	}))

	got, err := sc.LoadBattery(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.05, got.Charge)
	assert.Equal(t, 1.2009, got.Capacity)
	assert.True(t, got.IsLow)
	assert.True(t, got.UpdatedAt.Equal(at))
}

func TestMonitorMirrorsIntoStateCache(t *testing.T) {
	sc, _, _, _ := newStateCache()
	m := battery.NewMonitor(1.2009, 0.9, testutil.NewLogger()).WithStore(sc)

	m.OnChargeUpdate(1.0)

	got, err := sc.LoadBattery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Charge)
	assert.True(t, got.IsLow)
}
