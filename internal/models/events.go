package models

// Client-to-server event types.
const (
	ClientJoinRoom      = "join_room"
	ClientLeaveRoom     = "leave_room"
	ClientSendMessage   = "send_message"
	ClientTypingStart   = "typing_start"
	ClientTypingStop    = "typing_stop"
	ClientReact         = "react"
	ClientDeleteMessage = "delete_message"
)

// Server-to-client event types.
const (
	EventNewMessage        = "new_message"
	EventMessageUpdated    = "message_updated"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventPresenceDiff      = "presence_diff"
	EventPresenceFull      = "presence_full"
	EventError             = "error"
)

// ClientEvent is the single inbound websocket envelope, discriminated by Type.
type ClientEvent struct {
	Type        string `json:"type"`
	ChannelID   int    `json:"channel_id,omitempty"`
	Content     string `json:"content,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	MessageID   int    `json:"message_id,omitempty"`
	Emoji       string `json:"emoji,omitempty"`
}

// MessagePatch carries the mutated fields of a message_updated event.
type MessagePatch struct {
	Content   *string        `json:"content,omitempty"`
	IsDeleted *bool          `json:"is_deleted,omitempty"`
	Reaction  *ReactionGroup `json:"reaction,omitempty"`
}

// ErrorBody is delivered only to the session that caused the error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerEvent is the outbound websocket envelope, discriminated by Type.
type ServerEvent struct {
	Type          string        `json:"type"`
	Message       *Message      `json:"message,omitempty"`
	MessageID     int           `json:"message_id,omitempty"`
	Patch         *MessagePatch `json:"patch,omitempty"`
	ChannelID     int           `json:"channel_id,omitempty"`
	CommunityID   int           `json:"community_id,omitempty"`
	UserID        int           `json:"user_id,omitempty"`
	Joined        []int         `json:"joined,omitempty"`
	Left          []int         `json:"left,omitempty"`
	OnlineUserIDs []int         `json:"online_user_ids,omitempty"`
	Error         *ErrorBody    `json:"error,omitempty"`
}
