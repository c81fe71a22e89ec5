package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"community-chat-service/internal/chat"
	"community-chat-service/internal/models"
	"community-chat-service/internal/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// HistoryHandler serves the durable side of the chat core over REST: message
// history pages (the recovery path for lagging or reconnecting clients) and
// full presence rosters.
type HistoryHandler struct {
	members   repositories.MembershipRepository
	messages  repositories.MessageRepository
	reactions repositories.ReactionRepository
	presence  *chat.Presence
}

// NewHistoryHandler builds a HistoryHandler.
func NewHistoryHandler(members repositories.MembershipRepository, messages repositories.MessageRepository, reactions repositories.ReactionRepository, presence *chat.Presence) *HistoryHandler {
	return &HistoryHandler{
		members:   members,
		messages:  messages,
		reactions: reactions,
		presence:  presence,
	}
}

// GetChannelMessages returns a page of channel history in sequence order.
// Deleted messages appear as tombstones so clients keep stable positions.
func (h *HistoryHandler) GetChannelMessages(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	channel, err := h.members.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "channel not found"})
		return
	}
	if communityID, err := strconv.Atoi(c.Param("community_id")); err != nil || channel.CommunityID != communityID {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.members.Membership(c.Request.Context(), channelID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrNotMember) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": "not a channel member"})
		return
	}
	if member.Banned {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel member"})
		return
	}

	after, _ := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	msgs, err := h.messages.ListMessagesAfter(c.Request.Context(), channelID, after, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	groups, err := h.reactions.GroupsForMessages(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}

	resp := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		rendered := m.Rendered()
		rendered.Reactions = groups[m.ID]
		resp = append(resp, rendered)
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// GetPresence serves the full online roster of a community, the resync path
// for clients that may have missed presence diffs.
func (h *HistoryHandler) GetPresence(c *gin.Context) {
	communityID, err := strconv.Atoi(c.Param("community_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid community id"})
		return
	}

	online := h.presence.Roster(communityID)
	if online == nil {
		online = []int{}
	}
	c.JSON(http.StatusOK, gin.H{
		"community_id":    communityID,
		"online_user_ids": online,
	})
}
