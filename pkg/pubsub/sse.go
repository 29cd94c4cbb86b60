package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ritzau/compdb/pkg/logging"
)

// ErrClosed is returned by a publisher that has been shut down.
var ErrClosed = errors.New("publisher is closed")

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to buffer (0 = no buffering)
	ReplayAll  bool // If true, replay all buffered events; if false, only replay last event
}

// SSEPublisher implements Publisher for Server-Sent Events clients.
type SSEPublisher struct {
	mu            sync.Mutex
	defaults      TopicConfig
	subscriptions map[string]map[*sseSubscription]bool // topic -> set of subscriptions
	version       map[string]int                       // topic -> version counter
	eventBuffer   map[string][]Event                   // topic -> most recent events
	closed        bool
}

// NewSSEPublisher creates a publisher that buffers every topic according to
// defaults.
func NewSSEPublisher(defaults TopicConfig) *SSEPublisher {
	return &SSEPublisher{
		defaults:      defaults,
		subscriptions: make(map[string]map[*sseSubscription]bool),
		version:       make(map[string]int),
		eventBuffer:   make(map[string][]Event),
	}
}

// Subscribe creates a new subscription to a topic and replays buffered events.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, 100), // Buffered to prevent blocking publishers
		done:      make(chan struct{}),
		publisher: p,
	}
	if p.subscriptions[topic] == nil {
		p.subscriptions[topic] = make(map[*sseSubscription]bool)
	}
	p.subscriptions[topic][sub] = true

	replay := p.eventBuffer[topic]
	if !p.defaults.ReplayAll && len(replay) > 0 {
		replay = replay[len(replay)-1:]
	}
	for _, event := range replay {
		select {
		case sub.events <- event:
		default:
			logging.Warn("could not replay event to new subscriber", "topic", topic)
		}
	}
	if len(replay) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.version[topic]++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    jsonData,
		Version: p.version[topic],
	}

	if size := p.defaults.BufferSize; size > 0 {
		buffer := append(p.eventBuffer[topic], event)
		if len(buffer) > size {
			buffer = buffer[len(buffer)-size:]
		}
		p.eventBuffer[topic] = buffer
	}

	for sub := range p.subscriptions[topic] {
		select {
		case sub.events <- event:
		default:
			logging.Warn("subscription channel full, dropping event", "topic", topic, "type", eventType)
		}
	}

	return nil
}

// Drop forgets a topic: buffered events are discarded and every subscription
// to it ends.
func (p *SSEPublisher) Drop(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for sub := range p.subscriptions[topic] {
		sub.end()
	}
	delete(p.subscriptions, topic)
	delete(p.version, topic)
	delete(p.eventBuffer, topic)
}

// Close shuts down the publisher and all subscriptions
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, subs := range p.subscriptions {
		for sub := range subs {
			sub.end()
		}
	}
	p.subscriptions = make(map[string]map[*sseSubscription]bool)
	return nil
}

// sseSubscription implements Subscription. Its channels are closed only with
// the publisher lock held.
type sseSubscription struct {
	topic     string
	events    chan Event
	done      chan struct{}
	publisher *SSEPublisher
	ended     bool
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close unsubscribes. It is safe to call more than once.
func (s *sseSubscription) Close() error {
	p := s.publisher
	p.mu.Lock()
	defer p.mu.Unlock()

	if subs := p.subscriptions[s.topic]; subs[s] {
		delete(subs, s)
		if len(subs) == 0 {
			delete(p.subscriptions, s.topic)
		}
	}
	s.end()
	return nil
}

// end requires the publisher lock.
func (s *sseSubscription) end() {
	if s.ended {
		return
	}
	s.ended = true
	close(s.events)
	close(s.done)
}

// WriteSSE writes an event to an SSE response writer
// Format: "event: <type>\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
	return err
}

// ServeSSE streams sub to an HTTP client until the subscription ends or the
// client goes away.
func ServeSSE(w http.ResponseWriter, r *http.Request, sub Subscription) {
	defer sub.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Initial comment so clients see the stream open before the first event.
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := WriteSSE(w, event); err != nil {
				logging.Debug("sse client write failed", "topic", sub.Topic(), "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
