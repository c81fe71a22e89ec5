package chat

import (
	"sort"
	"sync"
	"time"

	"community-chat-service/internal/models"
)

type presenceKey struct {
	communityID int
	userID      int
}

// Presence derives per-community online rosters from live connection counts.
// A user is online in a community iff at least one of their sessions is
// connected to it, so multi-tab users stay online until the last tab closes.
// Offline transitions are debounced to absorb quick reconnects.
type Presence struct {
	debounce time.Duration

	mu     sync.Mutex
	counts map[presenceKey]int
	timers map[presenceKey]*time.Timer
	subs   map[int]map[string]Subscriber
	closed bool
}

// NewPresence constructs a tracker with the given offline debounce window.
func NewPresence(debounce time.Duration) *Presence {
	return &Presence{
		debounce: debounce,
		counts:   map[presenceKey]int{},
		timers:   map[presenceKey]*time.Timer{},
		subs:     map[int]map[string]Subscriber{},
	}
}

// Connect registers a session with its community and increments the user's
// connection count. The first connection announces the user as joined unless
// an offline debounce was pending, in which case the flicker is absorbed.
func (p *Presence) Connect(communityID int, sub Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	if _, ok := p.subs[communityID]; !ok {
		p.subs[communityID] = map[string]Subscriber{}
	}
	p.subs[communityID][sub.ConnID()] = sub

	key := presenceKey{communityID: communityID, userID: sub.UserID()}
	p.counts[key]++
	if p.counts[key] != 1 {
		return
	}
	if timer, ok := p.timers[key]; ok {
		// Reconnect inside the debounce window: no offline was announced,
		// so there is nothing to re-announce either.
		timer.Stop()
		delete(p.timers, key)
		return
	}
	p.broadcastLocked(communityID, models.ServerEvent{
		Type:        models.EventPresenceDiff,
		CommunityID: communityID,
		Joined:      []int{sub.UserID()},
	})
}

// Disconnect decrements the user's connection count and unregisters the
// session. The count never goes negative. When the last connection is gone,
// the offline announcement is deferred by the debounce window.
func (p *Presence) Disconnect(communityID int, sub Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	if conns, ok := p.subs[communityID]; ok {
		delete(conns, sub.ConnID())
		if len(conns) == 0 {
			delete(p.subs, communityID)
		}
	}

	key := presenceKey{communityID: communityID, userID: sub.UserID()}
	if p.counts[key] == 0 {
		return
	}
	p.counts[key]--
	if p.counts[key] > 0 {
		return
	}

	if timer, ok := p.timers[key]; ok {
		timer.Stop()
	}
	p.timers[key] = time.AfterFunc(p.debounce, func() { p.expire(key) })
}

func (p *Presence) expire(key presenceKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	delete(p.timers, key)
	if p.counts[key] > 0 {
		return
	}
	delete(p.counts, key)
	p.broadcastLocked(key.communityID, models.ServerEvent{
		Type:        models.EventPresenceDiff,
		CommunityID: key.communityID,
		Left:        []int{key.userID},
	})
}

// Roster returns the sorted ids of users currently online in a community.
// Served to clients as a presence_full resync to repair missed diffs.
func (p *Presence) Roster(communityID int) []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var online []int
	for key, count := range p.counts {
		if key.communityID == communityID && count > 0 {
			online = append(online, key.userID)
		}
	}
	sort.Ints(online)
	return online
}

// Close stops all pending debounce timers. Part of the explicit lifecycle:
// the tracker is created at startup and torn down at shutdown.
func (p *Presence) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for key, timer := range p.timers {
		timer.Stop()
		delete(p.timers, key)
	}
}

// Presence diffs are droppable for congested subscribers; a client that
// misses one repairs itself through a full-roster resync.
func (p *Presence) broadcastLocked(communityID int, ev models.ServerEvent) {
	for _, sub := range p.subs[communityID] {
		sub.Send(ev, true)
	}
}
