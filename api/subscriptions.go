package api

import (
	"io"

	"github.com/gin-gonic/gin"

	"murmur/pubsub"
)

// Subscription endpoints stream broker events as server-sent events.
// Only clients connected at publish time see an event; there is no
// replay.

func (a *APIModule) streamPosts(c *gin.Context) {
	a.streamTopic(c, pubsub.TopicPostCreated)
}

func (a *APIModule) streamComments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a.streamTopic(c, pubsub.CommentTopic(id))
}

func (a *APIModule) streamLikes(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a.streamTopic(c, pubsub.LikeTopic(id))
}

func (a *APIModule) streamTopic(c *gin.Context, topic string) {
	events, cancel := a.broker.Subscribe(topic)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("message", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
