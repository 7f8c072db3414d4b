package events

import (
	"context"
	"fmt"

	"cp1-controllers/internal/interfaces"
)

// MQTTPublisher writes events to <topic>/<event type> on the robot broker.
type MQTTPublisher struct {
	publisher interfaces.MessagePublisher
	topic     string
	logger    interfaces.Logger
}

func NewMQTTPublisher(publisher interfaces.MessagePublisher, topic string, logger interfaces.Logger) *MQTTPublisher {
	return &MQTTPublisher{publisher: publisher, topic: topic, logger: logger}
}

func (p *MQTTPublisher) Publish(_ context.Context, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	topic := p.topic + "/" + ev.Type
	if err := p.publisher.Publish(topic, 1, false, data); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.logger.Debugf("📤 event %s sent to %s", ev.Type, topic)
	return nil
}

// Close is a no-op; the MQTT connection is owned by the container.
func (p *MQTTPublisher) Close() error {
	return nil
}
