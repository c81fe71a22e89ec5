package chat

import (
	"sync"
	"time"

	"community-chat-service/internal/models"
)

type typingKey struct {
	channelID int
	userID    int
}

// TypingBus maintains short-lived typing indicators. States self-expire after
// a fixed TTL so a crashed or disconnected client never leaves a stuck
// indicator. Nothing here is persisted.
type TypingBus struct {
	registry *Registry
	ttl      time.Duration

	mu     sync.Mutex
	timers map[typingKey]*time.Timer
	owners map[string]map[typingKey]struct{}
	closed bool
}

// NewTypingBus constructs a bus broadcasting through the registry.
func NewTypingBus(registry *Registry, ttl time.Duration) *TypingBus {
	return &TypingBus{
		registry: registry,
		ttl:      ttl,
		timers:   map[typingKey]*time.Timer{},
		owners:   map[string]map[typingKey]struct{}{},
	}
}

// Start creates or refreshes the typing state for (channel, user) and
// broadcasts a typing event to the room, excluding the sender.
func (b *TypingBus) Start(sub Subscriber, channelID int) {
	key := typingKey{channelID: channelID, userID: sub.UserID()}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if timer, ok := b.timers[key]; ok {
		timer.Reset(b.ttl)
	} else {
		b.timers[key] = time.AfterFunc(b.ttl, func() { b.expire(key) })
	}
	if _, ok := b.owners[sub.ConnID()]; !ok {
		b.owners[sub.ConnID()] = map[typingKey]struct{}{}
	}
	b.owners[sub.ConnID()][key] = struct{}{}
	b.mu.Unlock()

	b.registry.Broadcast(channelID, models.ServerEvent{
		Type:      models.EventUserTyping,
		ChannelID: channelID,
		UserID:    sub.UserID(),
	}, true, sub.ConnID())
}

// Stop removes the typing state and broadcasts the stop. A stop after the
// TTL already expired is a no-op.
func (b *TypingBus) Stop(sub Subscriber, channelID int) {
	key := typingKey{channelID: channelID, userID: sub.UserID()}

	b.mu.Lock()
	timer, ok := b.timers[key]
	if ok {
		timer.Stop()
		delete(b.timers, key)
	}
	if owned, has := b.owners[sub.ConnID()]; has {
		delete(owned, key)
		if len(owned) == 0 {
			delete(b.owners, sub.ConnID())
		}
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	b.broadcastStopped(key, sub.ConnID())
}

// DropConn cancels every typing state a connection started, as part of
// disconnect cleanup, so no timer callback outlives its session.
func (b *TypingBus) DropConn(connID string) {
	b.mu.Lock()
	keys := make([]typingKey, 0, len(b.owners[connID]))
	for key := range b.owners[connID] {
		if timer, ok := b.timers[key]; ok {
			timer.Stop()
			delete(b.timers, key)
			keys = append(keys, key)
		}
	}
	delete(b.owners, connID)
	b.mu.Unlock()

	for _, key := range keys {
		b.broadcastStopped(key, connID)
	}
}

// Close stops all timers at shutdown.
func (b *TypingBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for key, timer := range b.timers {
		timer.Stop()
		delete(b.timers, key)
	}
	b.owners = map[string]map[typingKey]struct{}{}
}

func (b *TypingBus) expire(key typingKey) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if _, ok := b.timers[key]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.timers, key)
	b.mu.Unlock()

	b.broadcastStopped(key, "")
}

func (b *TypingBus) broadcastStopped(key typingKey, excludeConnID string) {
	b.registry.Broadcast(key.channelID, models.ServerEvent{
		Type:      models.EventUserStoppedTyping,
		ChannelID: key.channelID,
		UserID:    key.userID,
	}, true, excludeConnID)
}
