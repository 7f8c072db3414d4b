// internal/goal/mqtt_executor.go
package goal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/common/constants"
	"cp1-controllers/internal/common/idgen"
	"cp1-controllers/internal/common/types"
	"cp1-controllers/internal/interfaces"
	"cp1-controllers/internal/models"

	json "github.com/json-iterator/go"
)

// MQTTExecutor sends goals as order messages and follows them through state messages.
type MQTTExecutor struct {
	publisher interfaces.MessagePublisher
	config    interfaces.ConfigProvider
	headers   interfaces.HeaderIDGenerator
	ids       *idgen.Generator
	logger    interfaces.Logger

	mu         sync.Mutex
	goals      map[string]*trackedOrder
	subscribed bool
}

// trackedOrder is one order in flight. mu guards the classification state and
// sendMu serialises sends with close. mu is never held while waiting on events.
type trackedOrder struct {
	mu             sync.Mutex
	finished       bool
	seen           bool
	actionIDs      []string
	cancelActionID string

	sendMu sync.Mutex
	ctx    context.Context
	events chan Event
	closed bool
}

// NewMQTTExecutor returns an executor publishing through publisher.
func NewMQTTExecutor(
	publisher interfaces.MessagePublisher,
	config interfaces.ConfigProvider,
	headers interfaces.HeaderIDGenerator,
	logger interfaces.Logger,
) *MQTTExecutor {
	return &MQTTExecutor{
		publisher: publisher,
		config:    config,
		headers:   headers,
		ids:       idgen.NewGenerator(),
		logger:    logger,
		goals:     make(map[string]*trackedOrder),
	}
}

func (e *MQTTExecutor) topic(suffix string) string {
	return constants.RobotTopic(e.config.GetTopicPrefix(), e.config.GetRobotManufacturer(),
		e.config.GetRobotSerialNumber(), suffix)
}

// Start subscribes to the state topic. Send calls it on first use.
func (e *MQTTExecutor) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subscribed {
		return nil
	}
	topic := e.topic(constants.TopicSuffixState)
	if err := e.publisher.Subscribe(topic, 1, e.handleState); err != nil {
		return apperror.NewServiceError("executor", "subscribe "+topic, err)
	}
	e.subscribed = true
	e.logger.Infof("✅ Goal executor tracking %s", topic)
	return nil
}

// Send publishes the order for g and returns its event stream.
func (e *MQTTExecutor) Send(ctx context.Context, goalID string, g Goal) (<-chan Event, error) {
	if err := e.Start(); err != nil {
		return nil, err
	}

	order, actionIDs := e.buildOrder(goalID, g)
	data, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order %s: %w", goalID, err)
	}

	tracked := &trackedOrder{
		ctx:       ctx,
		events:    make(chan Event, 16),
		actionIDs: actionIDs,
	}
	e.mu.Lock()
	e.goals[goalID] = tracked
	e.mu.Unlock()

	if err := e.publisher.Publish(e.topic(constants.TopicSuffixOrder), 1, false, data); err != nil {
		e.forget(goalID)
		return nil, apperror.NewServiceError("executor", "publish order", err)
	}
	e.logger.Debugf("📤 Order %s published (%d nodes)", goalID, len(order.Nodes))

	go func() {
		<-ctx.Done()
		e.forget(goalID)
	}()
	return tracked.events, nil
}

// Cancel publishes a cancelOrder instant action for goalID.
func (e *MQTTExecutor) Cancel(ctx context.Context, goalID string) error {
	actionID := e.ids.ActionID()
	msg := models.InstantActionsMessage{
		HeaderID:     e.headers.GetNextHeaderID(),
		Timestamp:    time.Now().Format(time.RFC3339Nano),
		Version:      constants.ProtocolVersion,
		Manufacturer: e.config.GetRobotManufacturer(),
		SerialNumber: e.config.GetRobotSerialNumber(),
		Actions: []models.Action{{
			ActionType:   constants.ActionTypeCancelOrder,
			ActionID:     actionID,
			BlockingType: constants.BlockingTypeNone,
			ActionParameters: []models.ActionParameter{
				{Key: "orderId", Value: goalID},
			},
		}},
	}

	e.mu.Lock()
	tracked, ok := e.goals[goalID]
	e.mu.Unlock()
	if ok {
		tracked.mu.Lock()
		tracked.cancelActionID = actionID
		tracked.mu.Unlock()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal cancelOrder: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.publisher.Publish(e.topic(constants.TopicSuffixInstantActions), 1, false, data); err != nil {
		return apperror.NewServiceError("executor", constants.ActionTypeCancelOrder, err)
	}
	return nil
}

func (e *MQTTExecutor) buildOrder(goalID string, g Goal) (models.OrderMessage, []string) {
	node := models.OrderNode{
		NodeID:     "goal_" + shortID(goalID),
		SequenceID: 0,
		Released:   true,
		Actions:    []models.Action{},
	}

	var actionIDs []string
	switch g.Kind {
	case KindPoint:
		node.NodePosition = &models.NodePosition{
			X:                  types.Float64(g.X),
			Y:                  types.Float64(g.Y),
			Theta:              0,
			AllowedDeviationXY: 0.1,
			MapID:              e.config.GetMapID(),
		}
	case KindInstructionGraph:
		id := e.ids.ActionID()
		actionIDs = append(actionIDs, id)
		node.Actions = append(node.Actions, models.Action{
			ActionType:   constants.ActionTypeInstructionGraph,
			ActionID:     id,
			BlockingType: constants.BlockingTypeHard,
			ActionParameters: []models.ActionParameter{
				{Key: "order", Value: g.Program},
			},
		})
	}

	return models.OrderMessage{
		HeaderID:      e.headers.GetNextHeaderID(),
		Timestamp:     time.Now().Format(time.RFC3339Nano),
		Version:       constants.ProtocolVersion,
		Manufacturer:  e.config.GetRobotManufacturer(),
		SerialNumber:  e.config.GetRobotSerialNumber(),
		OrderID:       goalID,
		OrderUpdateID: 0,
		Nodes:         []models.OrderNode{node},
		Edges:         []models.OrderEdge{},
	}, actionIDs
}

// handleState turns a state message into events for every tracked order.
func (e *MQTTExecutor) handleState(_ string, payload []byte) {
	var state models.RobotStateMessage
	if err := json.Unmarshal(payload, &state); err != nil {
		e.logger.Errorf("Failed to parse state message: %v", err)
		return
	}

	e.mu.Lock()
	targets := make(map[string]*trackedOrder, len(e.goals))
	for id, t := range e.goals {
		targets[id] = t
	}
	e.mu.Unlock()

	for goalID, tracked := range targets {
		for _, ev := range classify(goalID, tracked, &state) {
			tracked.emit(ev)
			if ev.Kind == EventDone {
				e.forget(goalID)
			}
		}
	}
}

// classify derives the events one state message implies for goalID.
func classify(goalID string, tracked *trackedOrder, state *models.RobotStateMessage) []Event {
	tracked.mu.Lock()
	defer tracked.mu.Unlock()
	if tracked.finished {
		return nil
	}

	var out []Event
	finish := func(s Status) []Event {
		tracked.finished = true
		return append(out, DoneEvent(s))
	}

	for _, errInfo := range state.Errors {
		refers := errInfo.References(constants.ErrorReferenceKeyOrderID, goalID)
		switch {
		case refers && isRejection(errInfo.ErrorType):
			if tracked.seen {
				return finish(StatusAborted)
			}
			return finish(StatusRejected)
		case errInfo.ErrorLevel == constants.ErrorLevelFatal && (refers || state.OrderID == goalID):
			return finish(StatusAborted)
		}
	}

	if state.OrderID != goalID {
		return nil
	}

	if !tracked.seen {
		tracked.seen = true
		out = append(out, ActiveEvent())
	}

	finishedActions := 0
	for _, as := range state.ActionStates {
		if tracked.cancelActionID != "" && as.ActionID == tracked.cancelActionID &&
			as.ActionStatus == constants.ActionStatusFinished {
			return finish(StatusPreempted)
		}
		if !contains(tracked.actionIDs, as.ActionID) {
			continue
		}
		switch as.ActionStatus {
		case constants.ActionStatusFailed:
			return finish(StatusAborted)
		case constants.ActionStatusFinished:
			finishedActions++
		}
	}

	remaining := len(state.NodeStates) + len(state.EdgeStates)
	if remaining == 0 && !state.Driving && finishedActions == len(tracked.actionIDs) {
		return finish(StatusSucceeded)
	}

	fb := Feedback{Remaining: remaining, Message: fmt.Sprintf("%d nodes remaining", remaining), At: time.Now()}
	if state.AgvPosition != nil {
		fb.X = state.AgvPosition.X
		fb.Y = state.AgvPosition.Y
	}
	return append(out, FeedbackEvent(fb))
}

// emit drops feedback when the buffer is full. Active and done wait for the listener.
func (t *trackedOrder) emit(ev Event) {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	if t.closed {
		return
	}
	if ev.Kind == EventFeedback {
		select {
		case t.events <- ev:
		default:
		}
		return
	}
	select {
	case t.events <- ev:
	case <-t.ctx.Done():
	}
}

func (t *trackedOrder) close() {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.events)
	}
}

func (e *MQTTExecutor) forget(goalID string) {
	e.mu.Lock()
	tracked, ok := e.goals[goalID]
	delete(e.goals, goalID)
	e.mu.Unlock()
	if ok {
		tracked.close()
	}
}

// Stop closes every tracked stream and unsubscribes.
func (e *MQTTExecutor) Stop() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.goals))
	for id := range e.goals {
		ids = append(ids, id)
	}
	subscribed := e.subscribed
	e.subscribed = false
	e.mu.Unlock()

	for _, id := range ids {
		e.forget(id)
	}
	if subscribed {
		if err := e.publisher.Unsubscribe(e.topic(constants.TopicSuffixState)); err != nil {
			e.logger.Warnf("Failed to unsubscribe state topic: %v", err)
		}
	}
}

func isRejection(errorType string) bool {
	switch errorType {
	case constants.ErrorTypeValidation, constants.ErrorTypeOrder,
		constants.ErrorTypeOrderUpdate, constants.ErrorTypeNoRouteFound:
		return true
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
