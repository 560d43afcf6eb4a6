package event_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/brawl/internal/game/event"
)

func TestChannel_DeliversByTopic(t *testing.T) {
	c := event.NewChannel(nil)
	var hits, all []event.Event
	c.Subscribe(event.TopicHit, func(e event.Event) { hits = append(hits, e) })
	c.Subscribe("", func(e event.Event) { all = append(all, e) })

	c.Publish(event.Event{Topic: event.TopicHit, Source: "a"})
	c.Publish(event.Event{Topic: event.TopicDied, Source: "a"})

	require.Len(t, hits, 1)
	assert.Len(t, all, 2)
	assert.NotEqual(t, uuid.Nil, hits[0].ID)
	assert.False(t, hits[0].At.IsZero())
}

func TestChannel_Unsubscribe(t *testing.T) {
	c := event.NewChannel(nil)
	n := 0
	unsub := c.Subscribe(event.TopicStun, func(event.Event) { n++ })
	c.Publish(event.Event{Topic: event.TopicStun})
	unsub()
	unsub()
	c.Publish(event.Event{Topic: event.TopicStun})
	assert.Equal(t, 1, n)
}

func TestChannel_ForwardDropsWhenFull(t *testing.T) {
	c := event.NewChannel(nil)
	ch := make(chan event.Event, 1)
	c.Forward(event.TopicHit, ch)
	c.Publish(event.Event{Topic: event.TopicHit, Source: "first"})
	c.Publish(event.Event{Topic: event.TopicHit, Source: "second"})
	require.Len(t, ch, 1)
	assert.Equal(t, "first", (<-ch).Source)
}

func TestRecorder_FiltersTopic(t *testing.T) {
	var r event.Recorder
	r.Publish(event.Event{Topic: event.TopicHit})
	r.Publish(event.Event{Topic: event.TopicDied})
	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.Topic(event.TopicDied), 1)
}
