package main

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// LiveEvent is one tap fanned out to kiosk displays. Topic is the normalized
// cluster label.
type LiveEvent struct {
	Topic string
	Tap   Tap
}

// Subscription receives events for one topic on C until Close is called. An
// empty topic receives every event.
type Subscription struct {
	ID string
	C  <-chan LiveEvent

	topic string
	ch    chan LiveEvent
	bus   *LiveEventBus
	once  sync.Once
}

// Close detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.ID)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}

type funcSub struct {
	topic string
	fn    func(LiveEvent)
}

// LiveEventBus is an in-process broadcaster. Delivery is at-most-once: a
// subscriber whose buffer is full misses the event, and nothing is retained
// for subscribers that attach later.
type LiveEventBus struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	funcs   map[string]funcSub
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewLiveEventBus(logger *slog.Logger) *LiveEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveEventBus{
		subs:   make(map[string]*Subscription),
		funcs:  make(map[string]funcSub),
		logger: logger,
	}
}

func (b *LiveEventBus) Subscribe(topic string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan LiveEvent, buffer)
	sub := &Subscription{
		ID:    uuid.NewString(),
		C:     ch,
		topic: NormalizeLabel(topic),
		ch:    ch,
		bus:   b,
	}
	b.mu.Lock()
	b.subs[sub.ID] = sub
	b.mu.Unlock()
	return sub
}

// SubscribeFunc registers a callback invoked synchronously from Publish. A
// panicking callback is logged and does not affect other subscribers.
func (b *LiveEventBus) SubscribeFunc(topic string, fn func(LiveEvent)) func() {
	id := uuid.NewString()
	b.mu.Lock()
	b.funcs[id] = funcSub{topic: NormalizeLabel(topic), fn: fn}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.funcs, id)
			b.mu.Unlock()
		})
	}
}

// Publish never blocks.
func (b *LiveEventBus) Publish(event LiveEvent) {
	event.Topic = NormalizeLabel(event.Topic)

	var callbacks []func(LiveEvent)
	b.mu.RLock()
	for _, sub := range b.subs {
		if sub.topic != "" && sub.topic != event.Topic {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
	for _, fs := range b.funcs {
		if fs.topic == "" || fs.topic == event.Topic {
			callbacks = append(callbacks, fs.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range callbacks {
		b.invoke(fn, event)
	}
}

func (b *LiveEventBus) invoke(fn func(LiveEvent), event LiveEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("live event subscriber panicked", "topic", event.Topic, "panic", r)
		}
	}()
	fn(event)
}

func (b *LiveEventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs) + len(b.funcs)
}

// Dropped counts events discarded because a subscriber buffer was full.
func (b *LiveEventBus) Dropped() int64 {
	return b.dropped.Load()
}
