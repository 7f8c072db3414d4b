package testutil

import (
	"errors"
	"strings"
	"sync"

	"cp1-controllers/internal/interfaces"
)

// Published is one message sent through the fake publisher.
type Published struct {
	Topic   string
	Payload []byte
}

// Publisher is an in-memory MessagePublisher. Deliver simulates the broker
// invoking subscribed handlers.
type Publisher struct {
	mu        sync.Mutex
	published []Published
	handlers  map[string]interfaces.MessageHandler
	FailWith  error
	connected bool
}

func NewPublisher() *Publisher {
	return &Publisher{handlers: make(map[string]interfaces.MessageHandler), connected: true}
}

func (p *Publisher) Publish(topic string, _ byte, _ bool, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailWith != nil {
		return p.FailWith
	}
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported payload type")
	}
	p.published = append(p.published, Published{Topic: topic, Payload: data})
	return nil
}

func (p *Publisher) Subscribe(topic string, _ byte, callback interfaces.MessageHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailWith != nil {
		return p.FailWith
	}
	p.handlers[topic] = callback
	return nil
}

func (p *Publisher) Unsubscribe(topics ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range topics {
		delete(p.handlers, t)
	}
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Publisher) Disconnect(uint) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
}

// Deliver hands payload to every handler whose filter matches topic.
func (p *Publisher) Deliver(topic string, payload []byte) int {
	p.mu.Lock()
	var matched []interfaces.MessageHandler
	for filter, h := range p.handlers {
		if topicMatches(filter, topic) {
			matched = append(matched, h)
		}
	}
	p.mu.Unlock()
	for _, h := range matched {
		h(topic, payload)
	}
	return len(matched)
}

// Messages returns everything published to topics ending with suffix.
func (p *Publisher) Messages(suffix string) []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Published
	for _, m := range p.published {
		if strings.HasSuffix(m.Topic, suffix) {
			out = append(out, m)
		}
	}
	return out
}

func topicMatches(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if f != "+" && f != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}
