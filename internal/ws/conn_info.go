package ws

import "time"

// ConnInfo carries identity and request metadata for one connection,
// attached to lifecycle events published for this session.
type ConnInfo struct {
	ConnID      string
	UserID      int
	CommunityID int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
