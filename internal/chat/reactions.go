package chat

import (
	"context"
	"unicode/utf8"

	"community-chat-service/internal/models"
	"community-chat-service/internal/repositories"
)

const maxEmojiBytes = 32

// Reactions merges concurrent per-user reaction toggles into canonical
// per-message counts. Each user's entry is an independent row, so toggles
// from different users never lose updates, and a user appears at most once
// per emoji no matter how toggles interleave.
type Reactions struct {
	registry  *Registry
	members   repositories.MembershipRepository
	messages  repositories.MessageRepository
	reactions repositories.ReactionRepository
}

// NewReactions builds the aggregator.
func NewReactions(registry *Registry, members repositories.MembershipRepository, messages repositories.MessageRepository, reactions repositories.ReactionRepository) *Reactions {
	return &Reactions{registry: registry, members: members, messages: messages, reactions: reactions}
}

// Toggle flips the user's reaction on a message and broadcasts the updated
// group to the message's channel. Muted users may still react; banned users
// and non-members may not.
func (r *Reactions) Toggle(ctx context.Context, sub Subscriber, messageID int, emoji string) error {
	if emoji == "" || len(emoji) > maxEmojiBytes || !utf8.ValidString(emoji) {
		return Validation("unknown emoji")
	}

	msg, err := r.messages.GetMessage(ctx, messageID)
	if err != nil {
		if err == repositories.ErrMessageNotFound {
			return NotFound("message %d not found", messageID)
		}
		return Transient("message lookup failed")
	}

	member, err := r.members.Membership(ctx, msg.ChannelID, sub.UserID())
	switch {
	case err == repositories.ErrNotMember:
		return Permission("not a member of channel %d", msg.ChannelID)
	case err == repositories.ErrChannelNotFound:
		return NotFound("channel %d not found", msg.ChannelID)
	case err != nil:
		return Transient("membership lookup failed")
	}
	if member.Banned {
		return Permission("user is banned from channel %d", msg.ChannelID)
	}

	if _, err := r.reactions.Toggle(ctx, messageID, sub.UserID(), emoji); err != nil {
		return Transient("reaction toggle failed")
	}

	group, err := r.reactions.Group(ctx, messageID, emoji)
	if err != nil {
		return Transient("reaction read-back failed")
	}

	r.registry.Broadcast(msg.ChannelID, models.ServerEvent{
		Type:      models.EventMessageUpdated,
		MessageID: messageID,
		ChannelID: msg.ChannelID,
		Patch:     &models.MessagePatch{Reaction: &group},
	}, false, "")
	return nil
}
