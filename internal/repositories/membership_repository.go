package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"community-chat-service/internal/models"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotMember       = errors.New("not a channel member")
)

// MembershipRepository is the ACL collaborator: it answers whether a user is
// a member of a channel, muted, or banned. Consulted before join, submit,
// delete and react.
type MembershipRepository interface {
	GetChannel(ctx context.Context, channelID int) (models.Channel, error)
	Membership(ctx context.Context, channelID int, userID int) (models.ChannelMember, error)
}

// MembershipRepo is a sqlx-backed repository.
type MembershipRepo struct {
	db *sqlx.DB
}

// NewMembershipRepo constructs MembershipRepo.
func NewMembershipRepo(db *sqlx.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

// GetChannel fetches a channel by id.
func (r *MembershipRepo) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch, `SELECT id, community_id, name, created_at FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// Membership returns the ACL record for a user in a channel.
func (r *MembershipRepo) Membership(ctx context.Context, channelID int, userID int) (models.ChannelMember, error) {
	var m models.ChannelMember
	err := r.db.GetContext(ctx, &m, `SELECT channel_id, user_id, role, muted, banned FROM channel_members WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChannelMember{}, ErrNotMember
	}
	return m, err
}
