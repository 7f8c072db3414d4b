package environment

import (
	"context"
	"errors"
	"math"
	"testing"

	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/common/constants"
	"cp1-controllers/internal/models"
	"cp1-controllers/internal/testutil"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPoses struct {
	pose Pose
	err  error
}

func (s stubPoses) GetPose(context.Context) (Pose, error) { return s.pose, s.err }

func newTestEnv(poses PoseReader) (*MQTTEnvironment, *testutil.Publisher) {
	pub := testutil.NewPublisher()
	env := NewMQTTEnvironment(pub, testutil.NewConfig(), &testutil.Headers{}, poses, testutil.NewLogger())
	return env, pub
}

func decodeAction(t *testing.T, pub *testutil.Publisher) models.Action {
	t.Helper()
	msgs := pub.Messages(constants.TopicSuffixInstantActions)
	require.Len(t, msgs, 1)
	assert.Equal(t, "uagv/v2/cp1/turtlebot-01/instantActions", msgs[0].Topic)

	var msg models.InstantActionsMessage
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &msg))
	assert.Equal(t, constants.ProtocolVersion, msg.Version)
	require.Len(t, msg.Actions, 1)
	return msg.Actions[0]
}

func param(a models.Action, key string) interface{} {
	for _, p := range a.ActionParameters {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

func TestSpawnSendsSpawnModel(t *testing.T) {
	env, pub := newTestEnv(stubPoses{})

	require.NoError(t, env.Spawn(context.Background(), "Obstacle_0", "<sdf/>", 1.5, -2))

	action := decodeAction(t, pub)
	assert.Equal(t, constants.ActionTypeSpawnModel, action.ActionType)
	assert.Equal(t, "Obstacle_0", param(action, "modelName"))
	assert.Equal(t, 1.5, param(action, "x"))
	assert.Equal(t, -2.0, param(action, "y"))
	assert.Len(t, action.ActionID, 32)
}

func TestSettersSendTheirActionType(t *testing.T) {
	cases := []struct {
		name   string
		call   func(*MQTTEnvironment) error
		action string
		key    string
		value  interface{}
	}{
		{"set pose", func(e *MQTTEnvironment) error { return e.SetPose(context.Background(), 1, 2, 0.5) }, constants.ActionTypeInitPosition, "theta", 0.5},
		{"delete", func(e *MQTTEnvironment) error { return e.Delete(context.Background(), "Obstacle_3") }, constants.ActionTypeDeleteModel, "modelName", "Obstacle_3"},
		{"charge", func(e *MQTTEnvironment) error { return e.SetCharge(context.Background(), 1.2) }, constants.ActionTypeSetCharge, "charge", 1.2},
		{"charge rate", func(e *MQTTEnvironment) error { return e.SetChargeRate(context.Background(), 0.1) }, constants.ActionTypeSetChargeRate, "chargeRate", 0.1},
		{"power load", func(e *MQTTEnvironment) error { return e.SetPowerLoad(context.Background(), 5) }, constants.ActionTypeSetPowerLoad, "powerLoad", 5.0},
		{"charging", func(e *MQTTEnvironment) error { return e.SetCharging(context.Background(), true) }, constants.ActionTypeSetCharging, "charging", true},
		{"configuration", func(e *MQTTEnvironment) error { return e.GetConfiguration(context.Background(), 7) }, constants.ActionTypeGetConfiguration, "configId", 7.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, pub := newTestEnv(stubPoses{})
			require.NoError(t, tc.call(env))

			action := decodeAction(t, pub)
			assert.Equal(t, tc.action, action.ActionType)
			assert.Equal(t, tc.value, param(action, tc.key))
		})
	}
}

func TestPublishFailureIsServiceError(t *testing.T) {
	env, pub := newTestEnv(stubPoses{})
	pub.FailWith = errors.New("broker gone")

	err := env.SetCharging(context.Background(), false)
	require.Error(t, err)
	assert.True(t, apperror.IsServiceError(err))
	assert.False(t, Acknowledge(testutil.NewLogger(), "setCharging", err))
}

func TestDisconnectedPublisherIsUnavailable(t *testing.T) {
	env, pub := newTestEnv(stubPoses{})
	pub.Disconnect(0)

	err := env.SetCharge(context.Background(), 1)
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
}

func TestGetPoseFallsBackToUnknown(t *testing.T) {
	log := testutil.NewLogger()
	env, _ := newTestEnv(stubPoses{err: errors.New("no state yet")})

	pose := PoseOrUnknown(context.Background(), env, log)
	assert.False(t, pose.Valid)
	assert.True(t, math.IsNaN(pose.X))
	assert.Equal(t, 1, log.Count("error", "Failed to read robot pose"))

	env, _ = newTestEnv(stubPoses{pose: Pose{X: 1, Y: 2, Valid: true}})
	pose = PoseOrUnknown(context.Background(), env, log)
	assert.Equal(t, 1.0, pose.X)
	assert.True(t, pose.Valid)
}
