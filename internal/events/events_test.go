package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cp1-controllers/internal/common/constants"
	"cp1-controllers/internal/testutil"

	json "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Completed int `json:"tasks_completed"`
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewEventWrapsData(t *testing.T) {
	ev, err := NewEvent(constants.EventMissionCompleted, "turtlebot-01", summary{Completed: 4})
	require.NoError(t, err)
	assert.Len(t, ev.ID, 36)
	assert.JSONEq(t, `{"tasks_completed": 4}`, string(ev.Data))

	_, err = NewEvent("bad", "x", make(chan int))
	assert.Error(t, err)
}

func TestMQTTPublisherUsesTypedTopic(t *testing.T) {
	pub := testutil.NewPublisher()
	p := NewMQTTPublisher(pub, "cp1/events", testutil.NewLogger())

	ev, err := NewEvent(constants.EventMissionCompleted, "turtlebot-01", summary{Completed: 2})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), ev))

	msgs := pub.Messages("/mission.completed")
	require.Len(t, msgs, 1)
	assert.Equal(t, "cp1/events/mission.completed", msgs[0].Topic)

	var decoded Event
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, "turtlebot-01", decoded.Source)

	pub.FailWith = errors.New("broker gone")
	assert.ErrorContains(t, p.Publish(context.Background(), ev), "broker gone")
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "cp1.missions", testutil.NewLogger())

	ev, err := NewEvent(constants.EventMissionStarted, "turtlebot-01", summary{})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "cp1.missions", msg.Topic)
	assert.Equal(t, "turtlebot-01", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "type", Value: []byte(constants.EventMissionStarted)}}, msg.Headers)

	w.err = errors.New("leader not available")
	assert.ErrorContains(t, p.Publish(context.Background(), ev), "leader not available")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherNeedsBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(context.Background(), nil, "t", testutil.NewLogger())
	assert.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
