package chat

import "community-chat-service/internal/models"

// Subscriber is one live connection as seen by the chat core. The websocket
// layer implements it; tests substitute fakes.
type Subscriber interface {
	ConnID() string
	UserID() int

	// Send enqueues an event for delivery without blocking. Ephemeral events
	// may be dropped when the subscriber is congested; a durable event that
	// cannot be enqueued marks the subscriber as a slow consumer. Returns
	// whether the event was enqueued.
	Send(ev models.ServerEvent, ephemeral bool) bool
}
