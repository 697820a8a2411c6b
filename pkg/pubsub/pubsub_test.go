package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversToTopicSubscribers(t *testing.T) {
	ps := NewPubSub[string]()
	a, cancelA := ps.Subscribe("a")
	defer cancelA()
	b, cancelB := ps.Subscribe("b")
	defer cancelB()

	ps.Publish("a", "hello")

	assert.Equal(t, "hello", <-a)
	select {
	case v := <-b:
		t.Fatalf("unexpected value on other topic: %q", v)
	default:
	}
}

func TestPublish_SlowSubscriberKeepsLatest(t *testing.T) {
	ps := NewPubSub[int]()
	ch, cancel := ps.Subscribe("laps")
	defer cancel()

	for i := 1; i <= 5; i++ {
		ps.Publish("laps", i)
	}

	assert.Equal(t, 5, <-ch)
}

func TestSubscribeBuffered_KeepsBacklog(t *testing.T) {
	ps := NewPubSub[int]()
	ch, cancel := ps.SubscribeBuffered("laps", 3)
	defer cancel()

	for i := 1; i <= 4; i++ {
		ps.Publish("laps", i)
	}

	assert.Equal(t, []int{2, 3, 4}, []int{<-ch, <-ch, <-ch})
}

func TestCancel_ClosesChannel(t *testing.T) {
	ps := NewPubSub[int]()
	ch, cancel := ps.Subscribe("laps")
	require.Equal(t, 1, ps.Subscribers("laps"))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, ps.Subscribers("laps"))
	ps.Publish("laps", 1)
}
