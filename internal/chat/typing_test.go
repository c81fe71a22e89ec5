package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-chat-service/internal/models"
)

const testTTL = 40 * time.Millisecond

func typingFixture(t *testing.T) (*TypingBus, *testSubscriber, *testSubscriber) {
	t.Helper()
	registry := NewRegistry()
	typer := newTestSubscriber("typer", 1)
	watcher := newTestSubscriber("watcher", 2)
	registry.Join(5, typer)
	registry.Join(5, watcher)

	bus := NewTypingBus(registry, testTTL)
	t.Cleanup(bus.Close)
	return bus, typer, watcher
}

func TestTypingStartBroadcastsExcludingSender(t *testing.T) {
	bus, typer, watcher := typingFixture(t)

	bus.Start(typer, 5)

	events := watcher.EventsOfType(models.EventUserTyping)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].UserID)
	assert.Equal(t, 5, events[0].ChannelID)
	assert.Empty(t, typer.EventsOfType(models.EventUserTyping))
}

func TestTypingExpiresWithoutExplicitStop(t *testing.T) {
	bus, typer, watcher := typingFixture(t)

	// Simulated client crash: start, then silence.
	bus.Start(typer, 5)

	require.Eventually(t, func() bool {
		return len(watcher.EventsOfType(models.EventUserStoppedTyping)) == 1
	}, 5*testTTL, testTTL/4, "indicator must clear within TTL of the last refresh")
}

func TestTypingRefreshPostponesExpiry(t *testing.T) {
	bus, typer, watcher := typingFixture(t)

	bus.Start(typer, 5)
	time.Sleep(testTTL / 2)
	bus.Start(typer, 5)
	time.Sleep(testTTL * 3 / 4)

	assert.Empty(t, watcher.EventsOfType(models.EventUserStoppedTyping), "refresh must reset the TTL")
}

func TestTypingStopBroadcastsOnce(t *testing.T) {
	bus, typer, watcher := typingFixture(t)

	bus.Start(typer, 5)
	bus.Stop(typer, 5)

	require.Len(t, watcher.EventsOfType(models.EventUserStoppedTyping), 1)

	// A second stop, and a stop after expiry, are no-ops.
	bus.Stop(typer, 5)
	time.Sleep(2 * testTTL)
	assert.Len(t, watcher.EventsOfType(models.EventUserStoppedTyping), 1)
}

func TestTypingStopWithoutStartIsNoOp(t *testing.T) {
	bus, typer, watcher := typingFixture(t)

	bus.Stop(typer, 5)
	assert.Empty(t, watcher.Events())
}

func TestTypingDropConnCancelsTimersAndBroadcastsStop(t *testing.T) {
	bus, typer, watcher := typingFixture(t)

	bus.Start(typer, 5)
	bus.DropConn(typer.ConnID())

	require.Len(t, watcher.EventsOfType(models.EventUserStoppedTyping), 1)

	// The TTL timer was cancelled: no duplicate stop arrives later.
	time.Sleep(2 * testTTL)
	assert.Len(t, watcher.EventsOfType(models.EventUserStoppedTyping), 1)
}
