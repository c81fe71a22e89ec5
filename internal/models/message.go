package models

import "time"

// Message types accepted on submit.
const (
	MessageTypeText     = "text"
	MessageTypeCode     = "code"
	MessageTypeMarkdown = "markdown"
)

// TombstoneContent replaces the content of a soft-deleted message in every
// payload sent to clients. The original content stays in the database.
const TombstoneContent = "[message deleted]"

// Message represents a channel message.
type Message struct {
	ID        int       `db:"id" json:"id"`
	ChannelID int       `db:"channel_id" json:"channel_id"`
	SenderID  int       `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	Type      string    `db:"type" json:"type"`
	Sequence  int64     `db:"sequence" json:"sequence"`
	IsDeleted bool      `db:"is_deleted" json:"is_deleted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Reactions []ReactionGroup `db:"-" json:"reactions,omitempty"`
}

// Rendered returns a copy safe to deliver to clients: deleted messages carry
// the tombstone instead of their original content.
func (m Message) Rendered() Message {
	if m.IsDeleted {
		m.Content = TombstoneContent
	}
	return m
}

// ReactionGroup is the aggregated view of one emoji on one message.
type ReactionGroup struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	UserIDs []int  `json:"user_ids"`
}
