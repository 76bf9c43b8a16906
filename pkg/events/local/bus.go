package local

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/veesix-networks/dhclient/pkg/events"
	"github.com/veesix-networks/dhclient/pkg/logger"
)

const queueSize = 1024

type subscriber struct {
	id     uint64
	topic  string
	bus    *Bus
	ch     chan events.Event
	done   chan struct{}
	closed atomic.Bool
}

func (s *subscriber) Unsubscribe() {
	s.bus.remove(s)
}

func (s *subscriber) run(handler events.Handler) {
	defer close(s.done)
	for e := range s.ch {
		handler(e)
	}
}

type Bus struct {
	mu        sync.RWMutex
	subs      map[string]map[uint64]*subscriber
	nextID    atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
	logger    *slog.Logger
}

func NewBus() *Bus {
	return &Bus{
		subs:   make(map[string]map[uint64]*subscriber),
		logger: logger.Get(logger.Events),
	}
}

// Publish never blocks; events for a subscriber whose queue is full are
// dropped and counted.
func (b *Bus) Publish(topic string, event events.Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Type == "" {
		event.Type = topic
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	b.published.Add(1)
	for _, s := range b.subs[topic] {
		select {
		case s.ch <- event:
		default:
			b.dropped.Add(1)
			b.logger.Warn("Subscriber queue full, dropping event", "topic", topic, "subscriber", s.id)
		}
	}
}

func (b *Bus) Subscribe(topic string, handler events.Handler) events.Subscription {
	s := &subscriber{
		id:    b.nextID.Add(1),
		topic: topic,
		bus:   b,
		ch:    make(chan events.Event, queueSize),
		done:  make(chan struct{}),
	}
	go s.run(handler)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*subscriber)
	}
	b.subs[topic][s.id] = s
	count := len(b.subs[topic])
	b.mu.Unlock()

	b.logger.Debug("Subscribed to topic", "topic", topic, "handler_count", count)
	return s
}

func (b *Bus) remove(s *subscriber) {
	b.mu.Lock()
	if topicSubs, ok := b.subs[s.topic]; ok {
		delete(topicSubs, s.id)
		if len(topicSubs) == 0 {
			delete(b.subs, s.topic)
		}
	}
	b.mu.Unlock()

	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
	<-s.done
}

func (b *Bus) Stats() events.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[string]int, len(b.subs))
	for topic, subs := range b.subs {
		counts[topic] = len(subs)
	}
	return events.Stats{
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: counts,
	}
}

// Close unsubscribes everyone after their queued events are delivered.
func (b *Bus) Close() error {
	b.mu.RLock()
	var all []*subscriber
	for _, subs := range b.subs {
		for _, s := range subs {
			all = append(all, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range all {
		s.Unsubscribe()
	}
	return nil
}
