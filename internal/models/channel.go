package models

import "time"

// Channel is the addressable unit of subscription and message ordering
// inside a community.
type Channel struct {
	ID          int       `db:"id" json:"id"`
	CommunityID int       `db:"community_id" json:"community_id"`
	Name        string    `db:"name" json:"name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Member roles.
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ChannelMember is the ACL record consulted before every mutating action.
type ChannelMember struct {
	ChannelID int    `db:"channel_id" json:"channel_id"`
	UserID    int    `db:"user_id" json:"user_id"`
	Role      string `db:"role" json:"role"`
	Muted     bool   `db:"muted" json:"muted"`
	Banned    bool   `db:"banned" json:"banned"`
}

// CanModerate reports whether the member may act on other users' messages.
func (m ChannelMember) CanModerate() bool {
	return m.Role == RoleModerator || m.Role == RoleAdmin
}
