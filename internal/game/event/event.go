// Package event carries character notifications (hits, stuns, deaths) to
// collaborators through an injected bus.
package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topic names a kind of event.
type Topic string

const (
	TopicHit      Topic = "combat.hit"
	TopicStun     Topic = "combat.stun"
	TopicDamaged  Topic = "character.damaged"
	TopicDied     Topic = "character.died"
	TopicLevelUp  Topic = "character.level_up"
	TopicBuff     Topic = "character.buff"
	TopicTeardown Topic = "character.teardown"
)

// Event is one published notification. Payload is topic specific.
type Event struct {
	ID      uuid.UUID
	Topic   Topic
	Source  string
	At      time.Time
	Payload any
}

// Bus accepts events for delivery.
type Bus interface {
	Publish(e Event)
}

// Handler receives delivered events.
type Handler func(Event)

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}

type subscription struct {
	id    uint64
	topic Topic
	fn    Handler
}

// Channel is a synchronous in-process Bus: Publish calls every matching
// handler before returning, in subscription order.
// Subscribe and Publish are safe for concurrent use; handlers run on the
// publisher's goroutine.
type Channel struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
	logger *zap.Logger
}

// NewChannel creates an empty Channel.
func NewChannel(logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{logger: logger}
}

// Subscribe registers fn for topic. An empty topic receives every event.
// The returned function removes the subscription and is idempotent.
//
// Precondition: fn must not be nil.
func (c *Channel) Subscribe(topic Topic, fn Handler) (unsubscribe func()) {
	if fn == nil {
		panic("event.Channel.Subscribe: precondition violated: fn must not be nil")
	}
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, topic: topic, fn: fn})
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { c.remove(id) })
	}
}

// Forward delivers events on topic to ch. If ch is full the event is dropped
// for that subscriber.
func (c *Channel) Forward(topic Topic, ch chan<- Event) (unsubscribe func()) {
	return c.Subscribe(topic, func(e Event) {
		select {
		case ch <- e:
		default:
			c.logger.Warn("event dropped", zap.String("topic", string(e.Topic)))
		}
	})
}

// Publish stamps e with an id (and time, when unset) and delivers it.
func (c *Channel) Publish(e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	c.mu.Lock()
	subs := make([]subscription, 0, len(c.subs))
	for _, s := range c.subs {
		if s.topic == "" || s.topic == e.Topic {
			subs = append(subs, s)
		}
	}
	c.mu.Unlock()
	c.logger.Debug("event published",
		zap.String("topic", string(e.Topic)),
		zap.String("source", e.Source),
		zap.Int("subscribers", len(subs)),
	)
	for _, s := range subs {
		s.fn(e)
	}
}

func (c *Channel) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// Recorder is a Bus that keeps every published event.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Topic returns the recorded events with topic t.
func (r *Recorder) Topic(t Topic) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Topic == t {
			out = append(out, e)
		}
	}
	return out
}
