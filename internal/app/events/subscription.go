package events

import (
	"errors"
	"sync"

	"github.com/dkeye/rtcbridge/internal/metrics"
	"github.com/rs/zerolog/log"
)

// DefaultQueueSize bounds the pending events of one subscription.
const DefaultQueueSize = 64

var ErrClosed = errors.New("subscription closed")

// Listener consumes the events of one channel. Deliver is called with the subscription
// locked: it must not block and must not call back into the subscription.
type Listener interface {
	Deliver(channel string, ev Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(channel string, ev Event) error

func (f ListenerFunc) Deliver(channel string, ev Event) error { return f(channel, ev) }

type queued struct {
	gen uint64
	ev  Event
}

// Subscription is a named event stream with at most one listener. Events published
// while nobody listens are dropped. Delivery is FIFO on a dedicated goroutine.
type Subscription struct {
	name string

	mu       sync.Mutex
	listener Listener
	gen      uint64
	closed   bool

	queue chan queued
	done  chan struct{}
}

// NewSubscription starts the delivery loop of a new subscription.
func NewSubscription(name string, queueSize int) *Subscription {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	s := &Subscription{
		name:  name,
		queue: make(chan queued, queueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Subscription) Name() string { return s.name }

// Listen attaches l, replacing any previous listener. The returned generation
// identifies this attachment for Release.
func (s *Subscription) Listen(l Listener) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.listener != nil {
		log.Debug().Str("module", "events").Str("channel", s.name).Msg("listener replaced")
	}
	s.gen++
	s.listener = l
	return s.gen, nil
}

// Cancel detaches the current listener, if any.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.listener = nil
}

// Release detaches the listener only if it is still the one attached under gen.
func (s *Subscription) Release(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.gen != gen {
		return false
	}
	s.gen++
	s.listener = nil
	return true
}

// Attached reports whether a listener is currently attached.
func (s *Subscription) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// Publish queues ev for the current listener. It never blocks.
func (s *Subscription) Publish(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		metrics.EventsDropped.WithLabelValues("closed").Inc()
		return false
	case s.listener == nil:
		metrics.EventsDropped.WithLabelValues("no_listener").Inc()
		return false
	}
	select {
	case s.queue <- queued{gen: s.gen, ev: ev}:
		return true
	default:
		metrics.EventsDropped.WithLabelValues("backpressure").Inc()
		log.Warn().Str("module", "events").Str("channel", s.name).Str("event", string(ev.Kind)).Msg("queue full, event dropped")
		return false
	}
}

// Close detaches the listener and stops delivery. Once Close returns no further
// event reaches any listener. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.listener = nil
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *Subscription) run() {
	defer close(s.done)
	for q := range s.queue {
		s.deliver(q)
	}
}

func (s *Subscription) deliver(q queued) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Events queued for a listener that has since been replaced or cancelled are discarded.
	if s.closed || s.listener == nil || q.gen != s.gen {
		metrics.EventsDropped.WithLabelValues("stale").Inc()
		return
	}
	if err := s.listener.Deliver(s.name, q.ev); err != nil {
		metrics.EventsDropped.WithLabelValues("listener_error").Inc()
		log.Warn().Err(err).Str("module", "events").Str("channel", s.name).Str("event", string(q.ev.Kind)).Msg("deliver failed")
		return
	}
	metrics.EventsDelivered.WithLabelValues(string(q.ev.Kind)).Inc()
}
