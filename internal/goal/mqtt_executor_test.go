package goal

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cp1-controllers/internal/common/constants"
	"cp1-controllers/internal/models"
	"cp1-controllers/internal/testutil"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stateTopic = "uagv/v2/cp1/turtlebot-01/state"

func newTestExecutor() (*MQTTExecutor, *testutil.Publisher) {
	pub := testutil.NewPublisher()
	return NewMQTTExecutor(pub, testutil.NewConfig(), &testutil.Headers{}, testutil.NewLogger()), pub
}

func deliverState(t *testing.T, pub *testutil.Publisher, state models.RobotStateMessage) {
	t.Helper()
	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.Equal(t, 1, pub.Deliver(stateTopic, data))
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("event stream not closed, got %v", out)
			return out
		}
	}
}

func lastOrder(t *testing.T, pub *testutil.Publisher) models.OrderMessage {
	t.Helper()
	msgs := pub.Messages("/" + constants.TopicSuffixOrder)
	require.NotEmpty(t, msgs)
	var order models.OrderMessage
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, &order))
	return order
}

func TestPointGoalLifecycle(t *testing.T) {
	exec, pub := newTestExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := exec.Send(ctx, "0123456789abcdef0123456789abcdef", PointGoal(1.5, 2))
	require.NoError(t, err)

	order := lastOrder(t, pub)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", order.OrderID)
	require.Len(t, order.Nodes, 1)
	require.NotNil(t, order.Nodes[0].NodePosition)
	assert.Equal(t, 1.5, float64(order.Nodes[0].NodePosition.X))
	assert.Equal(t, "cp1-map", order.Nodes[0].NodePosition.MapID)

	deliverState(t, pub, models.RobotStateMessage{OrderID: "previous"})
	deliverState(t, pub, models.RobotStateMessage{
		OrderID:     order.OrderID,
		Driving:     true,
		NodeStates:  []models.NodeState{{NodeID: order.Nodes[0].NodeID}},
		AgvPosition: &models.AgvPosition{X: 0.5, Y: 1},
	})
	deliverState(t, pub, models.RobotStateMessage{OrderID: order.OrderID})

	got := drain(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, EventActive, got[0].Kind)
	assert.Equal(t, EventFeedback, got[1].Kind)
	assert.Equal(t, 0.5, got[1].Feedback.X)
	assert.Equal(t, 1, got[1].Feedback.Remaining)
	assert.Equal(t, DoneEvent(StatusSucceeded), got[2])
}

func TestValidationErrorRejectsGoal(t *testing.T) {
	exec, pub := newTestExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := exec.Send(ctx, "goal-rejected-000", PointGoal(99, 99))
	require.NoError(t, err)

	deliverState(t, pub, models.RobotStateMessage{
		OrderID: "previous",
		Errors: []models.ErrorInfo{{
			ErrorType:  constants.ErrorTypeValidation,
			ErrorLevel: constants.ErrorLevelWarning,
			ErrorReferences: []models.ErrorReference{
				{ReferenceKey: constants.ErrorReferenceKeyOrderID, ReferenceValue: "goal-rejected-000"},
			},
		}},
	})

	assert.Equal(t, []Event{DoneEvent(StatusRejected)}, drain(t, events))
}

func TestFailedInstructionGraphActionAborts(t *testing.T) {
	exec, pub := newTestExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := BuildInstructionGraph([]Point{{X: 1, Y: 1}}, 0.35)
	events, err := exec.Send(ctx, "goal-ig-0000000", InstructionGraphGoal(program))
	require.NoError(t, err)

	order := lastOrder(t, pub)
	require.Len(t, order.Nodes[0].Actions, 1)
	action := order.Nodes[0].Actions[0]
	assert.Equal(t, constants.ActionTypeInstructionGraph, action.ActionType)
	assert.Equal(t, program, action.ActionParameters[0].Value)

	deliverState(t, pub, models.RobotStateMessage{
		OrderID:      order.OrderID,
		ActionStates: []models.ActionState{{ActionID: action.ActionID, ActionStatus: constants.ActionStatusRunning}},
	})
	deliverState(t, pub, models.RobotStateMessage{
		OrderID:      order.OrderID,
		ActionStates: []models.ActionState{{ActionID: action.ActionID, ActionStatus: constants.ActionStatusFailed}},
	})

	got := drain(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, EventActive, got[0].Kind)
	assert.Equal(t, EventFeedback, got[1].Kind)
	assert.Equal(t, DoneEvent(StatusAborted), got[2])
}

func TestInstructionGraphNeedsFinishedAction(t *testing.T) {
	exec, pub := newTestExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := exec.Send(ctx, "goal-ig-0000001", InstructionGraphGoal("P(V(0, end))"))
	require.NoError(t, err)
	action := lastOrder(t, pub).Nodes[0].Actions[0]

	// no nodes left but the program is still running
	deliverState(t, pub, models.RobotStateMessage{OrderID: "goal-ig-0000001"})
	deliverState(t, pub, models.RobotStateMessage{
		OrderID:      "goal-ig-0000001",
		ActionStates: []models.ActionState{{ActionID: action.ActionID, ActionStatus: constants.ActionStatusFinished}},
	})

	got := drain(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, EventFeedback, got[1].Kind)
	assert.Equal(t, DoneEvent(StatusSucceeded), got[2])
}

func TestCancelPreemptsGoal(t *testing.T) {
	exec, pub := newTestExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := exec.Send(ctx, "goal-cancel-0000", PointGoal(3, 3))
	require.NoError(t, err)
	require.NoError(t, exec.Cancel(context.Background(), "goal-cancel-0000"))

	msgs := pub.Messages(constants.TopicSuffixInstantActions)
	require.Len(t, msgs, 1)
	var instant models.InstantActionsMessage
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &instant))
	cancelAction := instant.Actions[0]
	assert.Equal(t, constants.ActionTypeCancelOrder, cancelAction.ActionType)

	deliverState(t, pub, models.RobotStateMessage{
		OrderID:      "goal-cancel-0000",
		NodeStates:   []models.NodeState{{NodeID: "n"}},
		ActionStates: []models.ActionState{{ActionID: cancelAction.ActionID, ActionStatus: constants.ActionStatusFinished}},
	})

	assert.Equal(t, []Event{ActiveEvent(), DoneEvent(StatusPreempted)}, drain(t, events))
}

func TestListenerLeavingClosesStream(t *testing.T) {
	exec, pub := newTestExecutor()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := exec.Send(ctx, "goal-left-000000", PointGoal(0, 0))
	require.NoError(t, err)
	cancel()

	assert.Empty(t, drain(t, events))

	// late state messages for a forgotten goal are ignored
	deliverState(t, pub, models.RobotStateMessage{OrderID: "goal-left-000000"})
}

func TestSendFailsWhenPublishFails(t *testing.T) {
	exec, pub := newTestExecutor()
	require.NoError(t, exec.Start())
	pub.FailWith = assert.AnError

	_, err := exec.Send(context.Background(), "goal-fail-000000", PointGoal(0, 0))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCancelFromFeedbackCallbackDuringStateFlood(t *testing.T) {
	exec, pub := newTestExecutor()
	client := NewClient(exec, testutil.NewLogger())

	flooded := make(chan struct{})
	go func() {
		defer close(flooded)
		require.Eventually(t, func() bool {
			return len(pub.Messages("/"+constants.TopicSuffixOrder)) > 0
		}, time.Second, time.Millisecond)
		orderID := lastOrder(t, pub).OrderID

		// more feedback than the stream buffers, then the robot reports success
		for i := 0; i < 40; i++ {
			deliverState(t, pub, models.RobotStateMessage{
				OrderID:    orderID,
				Driving:    true,
				NodeStates: []models.NodeState{{NodeID: "n"}},
			})
		}
		deliverState(t, pub, models.RobotStateMessage{OrderID: orderID})
	}()

	var cancels atomic.Int32
	cb := Callbacks{
		OnFeedback: func(fb Feedback) {
			if cancels.Add(1) != 1 {
				return
			}
			// let the flood fill the buffer before cancelling
			time.Sleep(50 * time.Millisecond)
			assert.NoError(t, client.Cancel(context.Background(), fb.GoalID))
		},
	}

	started := time.Now()
	out := client.Submit(context.Background(), PointGoal(2, 2), cb, 2*time.Second)
	<-flooded

	assert.False(t, out.TimedOut)
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Less(t, time.Since(started), time.Second)
	assert.Len(t, pub.Messages(constants.TopicSuffixInstantActions), 1)
}
