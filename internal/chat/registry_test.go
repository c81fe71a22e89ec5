package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-chat-service/internal/models"
)

// testSubscriber collects the events delivered to it, shared by the chat
// package tests.
type testSubscriber struct {
	id     string
	userID int

	mu     sync.Mutex
	events []models.ServerEvent
	full   bool
}

func newTestSubscriber(id string, userID int) *testSubscriber {
	return &testSubscriber{id: id, userID: userID}
}

func (s *testSubscriber) ConnID() string { return s.id }
func (s *testSubscriber) UserID() int    { return s.userID }

func (s *testSubscriber) Send(ev models.ServerEvent, ephemeral bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func (s *testSubscriber) Events() []models.ServerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ServerEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *testSubscriber) EventsOfType(eventType string) []models.ServerEvent {
	var out []models.ServerEvent
	for _, ev := range s.Events() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestRegistryJoinIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	sub := newTestSubscriber("c1", 1)

	registry.Join(5, sub)
	registry.Join(5, sub)

	require.Len(t, registry.Snapshot(5), 1)
	assert.True(t, registry.Contains(5, "c1"))
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	sub := newTestSubscriber("c1", 1)

	registry.Join(5, sub)
	registry.Leave(5, "c1")
	registry.Leave(5, "c1")

	assert.False(t, registry.Contains(5, "c1"))
	assert.Empty(t, registry.Snapshot(5))
}

func TestRegistryDropConnRemovesFromEveryRoom(t *testing.T) {
	registry := NewRegistry()
	sub := newTestSubscriber("c1", 1)
	other := newTestSubscriber("c2", 2)

	registry.Join(5, sub)
	registry.Join(6, sub)
	registry.Join(5, other)

	registry.DropConn("c1")

	assert.False(t, registry.Contains(5, "c1"))
	assert.False(t, registry.Contains(6, "c1"))
	assert.True(t, registry.Contains(5, "c2"))
}

func TestRegistryBroadcastExcludesSender(t *testing.T) {
	registry := NewRegistry()
	sender := newTestSubscriber("c1", 1)
	receiver := newTestSubscriber("c2", 2)
	registry.Join(5, sender)
	registry.Join(5, receiver)

	registry.Broadcast(5, models.ServerEvent{Type: models.EventUserTyping}, true, "c1")

	assert.Empty(t, sender.Events())
	require.Len(t, receiver.Events(), 1)
}

func TestRegistrySnapshotUnaffectedByConcurrentLeave(t *testing.T) {
	registry := NewRegistry()
	sub := newTestSubscriber("c1", 1)
	registry.Join(5, sub)

	snapshot := registry.Snapshot(5)
	registry.Leave(5, "c1")

	// The snapshot taken before the leave still holds the subscriber.
	require.Len(t, snapshot, 1)
	assert.Empty(t, registry.Snapshot(5))
}
