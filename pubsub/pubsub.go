// Package pubsub fans creation events out to connected subscribers.
// Delivery is best-effort: events are not persisted, late joiners see
// nothing, and a subscriber with a full buffer misses the event rather
// than delaying the publisher.
package pubsub

import (
	"fmt"
	"sync"
)

const (
	TopicPostCreated = "POST_CREATED"

	commentTopicFormat = "COMMENT_ADDED:%d"
	likeTopicFormat    = "LIKE_CREATED:%d"
)

// CommentTopic is the per-post topic for new comments.
func CommentTopic(postID uint) string {
	return fmt.Sprintf(commentTopicFormat, postID)
}

// LikeTopic is the per-post topic for new likes.
func LikeTopic(postID uint) string {
	return fmt.Sprintf(likeTopicFormat, postID)
}

// Event is the payload delivered to subscribers.
type Event struct {
	Mutation string      `json:"mutation"` // CREATED, UPDATED or DELETED
	Data     interface{} `json:"data"`
}

const MutationCreated = "CREATED"

const subscriberBuffer = 16

type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener on topic. The returned cancel func
// removes the listener and closes its channel.
func (b *Broker) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan Event]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], ch)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			// closed under the lock so Publish never sends on a closed channel
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers event to every current subscriber of topic without
// blocking. Subscribers that cannot keep up drop the event.
func (b *Broker) Publish(topic string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}
