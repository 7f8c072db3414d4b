package battery

import (
	"bytes"
	"fmt"
	"strconv"

	"cp1-controllers/internal/interfaces"

	json "github.com/json-iterator/go"
)

// Offer puts v into a single-slot channel, replacing any unread value.
func Offer(ch chan float64, v float64) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// ParseReading accepts either a bare number or a std_msgs style {"data": x} document.
func ParseReading(payload []byte) (float64, error) {
	trimmed := bytes.TrimSpace(payload)
	if v, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
		return v, nil
	}

	var msg struct {
		Data *float64 `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return 0, fmt.Errorf("invalid charge reading %q: %w", trimmed, err)
	}
	if msg.Data == nil {
		return 0, fmt.Errorf("charge reading %q has no data field", trimmed)
	}
	return *msg.Data, nil
}

// SubscribeMQTT subscribes to the charge topic and returns a last-write-wins
// channel of readings. Malformed payloads are logged and dropped.
func SubscribeMQTT(pub interfaces.MessagePublisher, topic string, logger interfaces.Logger) (<-chan float64, error) {
	readings := make(chan float64, 1)

	err := pub.Subscribe(topic, 0, func(_ string, payload []byte) {
		v, err := ParseReading(payload)
		if err != nil {
			logger.Warnf("dropping charge reading: %v", err)
			return
		}
		Offer(readings, v)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe charge topic: %w", err)
	}
	return readings, nil
}
