package services

import (
	"github.com/sirupsen/logrus"
)

// Domain event names.
const (
	EventUserRegistered = "user.registered"
	EventPostCreated    = "post.created"
	EventPostUpdated    = "post.updated"
	EventPostDeleted    = "post.deleted"
)

// EventPublisher delivers domain events to interested consumers.
type EventPublisher interface {
	Publish(event string, payload any) error
}

// UserEvent is the payload of user events.
type UserEvent struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

// PostEvent is the payload of post events.
type PostEvent struct {
	PostID   uint   `json:"post_id"`
	AuthorID uint   `json:"author_id"`
	Title    string `json:"title,omitempty"`
}

// publish is best effort: a broker outage never fails the request.
func publish(p EventPublisher, event string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(event, payload); err != nil {
		logrus.WithError(err).WithField("event", event).Warn("failed to publish event")
	}
}
