package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"community-chat-service/internal/models"
	"community-chat-service/internal/observability"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Session is one authenticated live connection. Its write pump is the only
// goroutine writing to the websocket; everyone else enqueues through Send.
type Session struct {
	info ConnInfo

	conn *websocket.Conn
	send chan models.ServerEvent

	closeOnce sync.Once
	done      chan struct{}

	lastActivity atomic.Int64
}

func newSession(conn *websocket.Conn, info ConnInfo, sendBuffer int) *Session {
	s := &Session{
		info: info,
		conn: conn,
		send: make(chan models.ServerEvent, sendBuffer),
		done: make(chan struct{}),
	}
	s.Touch()
	return s
}

func (s *Session) ConnID() string   { return s.info.ConnID }
func (s *Session) UserID() int      { return s.info.UserID }
func (s *Session) CommunityID() int { return s.info.CommunityID }

// Touch records inbound activity for idle accounting.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the last inbound frame.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Send enqueues an event without blocking the caller. When the outbound
// queue is full, ephemeral events (typing, presence diffs) are dropped;
// a durable event that does not fit marks the session as a slow consumer
// and closes it. The client then recovers through history on reconnect.
func (s *Session) Send(ev models.ServerEvent, ephemeral bool) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- ev:
		return true
	default:
	}

	if ephemeral {
		observability.IncEventDropped("ephemeral")
		return false
	}
	observability.IncEventDropped("slow_consumer")
	s.Close()
	return false
}

// Close shuts the session down once; the write pump notices and closes the
// underlying connection, which in turn unblocks the read loop.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case ev := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
