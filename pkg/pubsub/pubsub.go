package pubsub

import (
	"sync"
)

const (
	PubSubPlanPreffix  = "plan-"
	PubSubAllPlans     = "plans"
	PubSubDocPreffix   = "doc-"
	defaultChannelSize = 1
)

type subscription[T any] struct {
	id uint64
	ch chan T
}

// PubSub fans values out to topic subscribers. Publish never blocks: when a
// subscriber is behind, its oldest pending value is dropped so it always
// ends up with the latest one.
type PubSub[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscription[T]
}

func NewPubSub[T any]() *PubSub[T] {
	return &PubSub[T]{
		subs: make(map[string][]subscription[T]),
	}
}

func (ps *PubSub[T]) Subscribe(topic string) (<-chan T, func()) {
	return ps.SubscribeBuffered(topic, defaultChannelSize)
}

// SubscribeBuffered returns the channel and a function that cancels the
// subscription and closes the channel.
func (ps *PubSub[T]) SubscribeBuffered(topic string, size int) (<-chan T, func()) {
	if size < 1 {
		size = defaultChannelSize
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.nextID++
	sub := subscription[T]{id: ps.nextID, ch: make(chan T, size)}
	ps.subs[topic] = append(ps.subs[topic], sub)

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { ps.unsubscribe(topic, sub.id) })
	}
}

func (ps *PubSub[T]) unsubscribe(topic string, id uint64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	subs := ps.subs[topic]
	for i, sub := range subs {
		if sub.id == id {
			close(sub.ch)
			ps.subs[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(ps.subs[topic]) == 0 {
		delete(ps.subs, topic)
	}
}

func (ps *PubSub[T]) Publish(topic string, data T) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, sub := range ps.subs[topic] {
		select {
		case sub.ch <- data:
		default:
			// only Publish sends, and it holds the lock, so after dropping
			// one value there is room for the new one
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- data
		}
	}
}

func (ps *PubSub[T]) Subscribers(topic string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.subs[topic])
}
