package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"community-chat-service/internal/models"
	"community-chat-service/internal/observability"
	"community-chat-service/internal/ratelimit"
	"community-chat-service/internal/repositories"
	"community-chat-service/internal/telemetry"
)

const (
	submitRetries = 3
	retryBackoff  = 25 * time.Millisecond
)

var validMessageTypes = map[string]bool{
	models.MessageTypeText:     true,
	models.MessageTypeCode:     true,
	models.MessageTypeMarkdown: true,
}

// Pipeline orders, persists and fans out channel messages. Sequencing is
// serialized per channel: submits to one channel are mutually exclusive,
// submits to different channels run in parallel.
type Pipeline struct {
	registry *Registry
	members  repositories.MembershipRepository
	messages repositories.MessageRepository
	limiter  ratelimit.Limiter
	audit    *telemetry.AuditEmitter

	maxContentBytes int

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewPipeline builds a Pipeline. audit may be nil.
func NewPipeline(registry *Registry, members repositories.MembershipRepository, messages repositories.MessageRepository, limiter ratelimit.Limiter, audit *telemetry.AuditEmitter, maxContentBytes int) *Pipeline {
	return &Pipeline{
		registry:        registry,
		members:         members,
		messages:        messages,
		limiter:         limiter,
		audit:           audit,
		maxContentBytes: maxContentBytes,
		locks:           map[int]*sync.Mutex{},
	}
}

func (p *Pipeline) channelLock(channelID int) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[channelID] = lock
	}
	return lock
}

// Submit validates, persists and broadcasts a message. The broadcast happens
// inside the channel critical section so every subscriber observes messages
// in committed sequence order. The message is broadcast only after the write
// succeeded; on persistent storage failure nothing is visible to anyone but
// the sender, who receives the error.
func (p *Pipeline) Submit(ctx context.Context, sub Subscriber, channelID int, content string, msgType string) (models.Message, error) {
	ctx, span := otel.Tracer("community-chat-service/chat").Start(ctx, "pipeline.submit")
	defer span.End()

	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !validMessageTypes[msgType] {
		return models.Message{}, Validation("unknown message type %q", msgType)
	}
	if strings.TrimSpace(content) == "" {
		return models.Message{}, Validation("content is empty")
	}
	if len(content) > p.maxContentBytes {
		return models.Message{}, Validation("content exceeds %d bytes", p.maxContentBytes)
	}

	member, err := p.membership(ctx, channelID, sub.UserID())
	if err != nil {
		return models.Message{}, err
	}
	if member.Muted {
		return models.Message{}, Permission("user is muted in channel %d", channelID)
	}

	allowed, err := p.limiter.Allow(ctx, fmt.Sprintf("user:%d", sub.UserID()))
	if err != nil {
		// Fail open: a broken limiter must not take messaging down.
		log.Printf("rate limiter error, allowing: %v", err)
	} else if !allowed {
		return models.Message{}, Throttled("message rate limit exceeded")
	}

	lock := p.channelLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	var msg models.Message
	for attempt := 0; attempt < submitRetries; attempt++ {
		msg, err = p.messages.CreateMessage(ctx, channelID, sub.UserID(), content, msgType)
		if err == nil {
			break
		}
		log.Printf("message persist attempt %d failed channel=%d: %v", attempt+1, channelID, err)
		time.Sleep(retryBackoff * time.Duration(attempt+1))
	}
	if err != nil {
		return models.Message{}, Transient("message could not be persisted")
	}

	rendered := msg.Rendered()
	p.registry.Broadcast(channelID, models.ServerEvent{Type: models.EventNewMessage, Message: &rendered}, false, "")
	observability.IncMessageSent()
	return msg, nil
}

// Delete soft-deletes a message: the sender or a moderator may delete, the
// row keeps its original content, and subscribers receive a tombstone patch.
func (p *Pipeline) Delete(ctx context.Context, sub Subscriber, messageID int) error {
	msg, err := p.messages.GetMessage(ctx, messageID)
	if err != nil {
		if err == repositories.ErrMessageNotFound {
			return NotFound("message %d not found", messageID)
		}
		return Transient("message lookup failed")
	}

	member, err := p.membership(ctx, msg.ChannelID, sub.UserID())
	if err != nil {
		return err
	}
	if msg.SenderID != sub.UserID() && !member.CanModerate() {
		return Permission("only the sender or a moderator can delete a message")
	}

	if err := p.messages.SoftDeleteMessage(ctx, messageID); err != nil {
		return Transient("message could not be deleted")
	}

	tombstone := models.TombstoneContent
	deleted := true
	p.registry.Broadcast(msg.ChannelID, models.ServerEvent{
		Type:      models.EventMessageUpdated,
		MessageID: messageID,
		ChannelID: msg.ChannelID,
		Patch:     &models.MessagePatch{Content: &tombstone, IsDeleted: &deleted},
	}, false, "")

	p.audit.Emit(ctx, "INFO", fmt.Sprintf("message %d deleted in channel %d", messageID, msg.ChannelID), "", int64Ptr(sub.UserID()))
	return nil
}

// membership resolves the ACL record, mapping repository sentinels onto the
// domain error taxonomy. Banned users are rejected outright.
func (p *Pipeline) membership(ctx context.Context, channelID int, userID int) (models.ChannelMember, error) {
	member, err := p.members.Membership(ctx, channelID, userID)
	switch {
	case err == repositories.ErrNotMember:
		return models.ChannelMember{}, Permission("not a member of channel %d", channelID)
	case err == repositories.ErrChannelNotFound:
		return models.ChannelMember{}, NotFound("channel %d not found", channelID)
	case err != nil:
		return models.ChannelMember{}, Transient("membership lookup failed")
	}
	if member.Banned {
		return models.ChannelMember{}, Permission("user is banned from channel %d", channelID)
	}
	return member, nil
}

func int64Ptr(v int) *int64 {
	value := int64(v)
	return &value
}
