package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cp1-controllers/internal/interfaces"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one Kafka topic keyed by event source.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger interfaces.Logger
}

// NewKafkaPublisher verifies that a broker is reachable and creates the writer.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, logger interfaces.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	var connErr error
	for _, broker := range brokers {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		conn, err := kafka.DialContext(dialCtx, "tcp", broker)
		cancel()
		if err == nil {
			conn.Close()
			logger.Infof("✅ Kafka connected to %s", broker)
			connErr = nil
			break
		}
		connErr = err
	}
	if connErr != nil {
		return nil, fmt.Errorf("kafka connect: %w", connErr)
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return newKafkaPublisher(writer, topic, logger), nil
}

func newKafkaPublisher(writer messageWriter, topic string, logger interfaces.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(ev.Source),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
		Time: ev.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", ev.Type, err)
	}
	p.logger.Debugf("📤 event %s written to kafka topic %s", ev.Type, p.topic)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
