// Copyright 2026 Karn Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// SubscriberBufferSize is the number of events buffered per subscription
	SubscriberBufferSize = 20
	// QueueSize bounds the committed events waiting for delivery
	QueueSize = 1000
)

type EventType string

type SubscriptionID uint64

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
	ID        string
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// subscription is one consumer channel covering one or more event types
type subscription struct {
	ch       chan Event
	done     chan struct{}
	types    []EventType
	doneOnce sync.Once
	mu       sync.RWMutex
	closed   bool
}

// deliver blocks while the subscriber buffer is full, until the
// subscription or the bus goes away
func (s *subscription) deliver(evt Event, stop <-chan struct{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- evt:
		return true
	default:
	}
	select {
	case s.ch <- evt:
		return true
	case <-s.done:
		return false
	case <-stop:
		return false
	}
}

func (s *subscription) close() {
	// Unblock a pending deliver before taking the write lock
	s.doneOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// EventBus delivers committed domain events to subscribers. A single
// dispatcher preserves the order events were enqueued in, which is commit
// order.
type EventBus struct {
	subscriptions map[SubscriptionID]*subscription
	metrics       *eventMetrics
	logger        *slog.Logger
	lastID        SubscriptionID
	mu            sync.RWMutex

	queue   chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped bool
	stopMu  sync.RWMutex
}

func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscriptions: make(map[SubscriptionID]*subscription),
		logger:        logger.With("component", "event"),
		queue:         make(chan Event, QueueSize),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	go e.dispatch()
	return e
}

func (e *EventBus) dispatch() {
	defer close(e.doneCh)
	for {
		select {
		case evt := <-e.queue:
			e.Publish(evt)
		case <-e.stopCh:
			// Hand over what is already queued
			for {
				select {
				case evt := <-e.queue:
					e.Publish(evt)
				default:
					return
				}
			}
		}
	}
}

// Subscribe returns a channel receiving every event of the given types.
// The channel is closed by Unsubscribe or Stop
func (e *EventBus) Subscribe(eventTypes ...EventType) (SubscriptionID, <-chan Event) {
	sub := &subscription{
		ch:    make(chan Event, SubscriberBufferSize),
		done:  make(chan struct{}),
		types: slices.Clone(eventTypes),
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastID++
	e.subscriptions[e.lastID] = sub
	if e.metrics != nil {
		for _, eventType := range sub.types {
			e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
		}
	}
	return e.lastID, sub.ch
}

// Unsubscribe ends a subscription and closes its channel
func (e *EventBus) Unsubscribe(id SubscriptionID) {
	e.mu.Lock()
	sub, ok := e.subscriptions[id]
	if ok {
		delete(e.subscriptions, id)
		if e.metrics != nil {
			for _, eventType := range sub.types {
				e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
			}
		}
	}
	e.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Publish delivers an event to its subscribers on the calling goroutine
func (e *EventBus) Publish(evt Event) {
	e.mu.RLock()
	subs := make([]*subscription, 0, len(e.subscriptions))
	for _, sub := range e.subscriptions {
		if slices.Contains(sub.types, evt.Type) {
			subs = append(subs, sub)
		}
	}
	e.mu.RUnlock()
	for _, sub := range subs {
		if !sub.deliver(evt, e.stopCh) {
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(evt.Type)).Inc()
			}
			e.logger.Debug(
				"event not delivered",
				"type", evt.Type,
				"id", evt.ID,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(evt.Type)).Inc()
	}
}

// Enqueue hands an event to the dispatcher. It returns false once the bus
// is stopped or when the queue is full.
func (e *EventBus) Enqueue(evt Event) bool {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	select {
	case e.queue <- evt:
		return true
	default:
		e.logger.Warn(
			"event queue full, dropping event",
			"type", evt.Type,
			"id", evt.ID,
		)
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(string(evt.Type)).Inc()
		}
		return false
	}
}

// Stop delivers events already queued to subscribers with buffer room,
// then closes every subscription. The bus cannot be restarted.
func (e *EventBus) Stop() {
	e.stopMu.Lock()
	if e.stopped {
		e.stopMu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.stopMu.Unlock()
	<-e.doneCh

	e.mu.Lock()
	subs := e.subscriptions
	e.subscriptions = make(map[SubscriptionID]*subscription)
	e.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
