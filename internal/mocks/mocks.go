package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"community-chat-service/internal/models"
	"community-chat-service/internal/ratelimit"
	"community-chat-service/internal/repositories"
)

type MembershipRepositoryMock struct {
	mock.Mock
}

func (m *MembershipRepositoryMock) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	args := m.Called(ctx, channelID)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *MembershipRepositoryMock) Membership(ctx context.Context, channelID int, userID int) (models.ChannelMember, error) {
	args := m.Called(ctx, channelID, userID)
	var member models.ChannelMember
	if val := args.Get(0); val != nil {
		member = val.(models.ChannelMember)
	}
	return member, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, channelID int, senderID int, content string, msgType string) (models.Message, error) {
	args := m.Called(ctx, channelID, senderID, content, msgType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessagesAfter(ctx context.Context, channelID int, afterSequence int64, limit int) ([]models.Message, error) {
	args := m.Called(ctx, channelID, afterSequence, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessage(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) Toggle(ctx context.Context, messageID int, userID int, emoji string) (bool, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionRepositoryMock) Group(ctx context.Context, messageID int, emoji string) (models.ReactionGroup, error) {
	args := m.Called(ctx, messageID, emoji)
	var group models.ReactionGroup
	if val := args.Get(0); val != nil {
		group = val.(models.ReactionGroup)
	}
	return group, args.Error(1)
}

func (m *ReactionRepositoryMock) GroupsForMessages(ctx context.Context, messageIDs []int) (map[int][]models.ReactionGroup, error) {
	args := m.Called(ctx, messageIDs)
	var groups map[int][]models.ReactionGroup
	if val := args.Get(0); val != nil {
		groups = val.(map[int][]models.ReactionGroup)
	}
	return groups, args.Error(1)
}

type LimiterMock struct {
	mock.Mock
}

func (m *LimiterMock) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

var _ repositories.MembershipRepository = (*MembershipRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ReactionRepository = (*ReactionRepositoryMock)(nil)
var _ ratelimit.Limiter = (*LimiterMock)(nil)
