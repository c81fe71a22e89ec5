package repositories

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"community-chat-service/internal/models"
)

// ReactionRepository stores per-user reaction toggles. Each (message, emoji,
// user) row is independent, so concurrent toggles from different users never
// conflict.
type ReactionRepository interface {
	Toggle(ctx context.Context, messageID int, userID int, emoji string) (added bool, err error)
	Group(ctx context.Context, messageID int, emoji string) (models.ReactionGroup, error)
	GroupsForMessages(ctx context.Context, messageIDs []int) (map[int][]models.ReactionGroup, error)
}

// ReactionRepo is a sqlx-backed repository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// Toggle adds the user's reaction if absent, removes it if present. The
// primary key on (message_id, emoji, user_id) makes the add idempotent.
func (r *ReactionRepo) Toggle(ctx context.Context, messageID int, userID int, emoji string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO message_reactions (message_id, emoji, user_id) VALUES ($1, $2, $3)
        ON CONFLICT (message_id, emoji, user_id) DO NOTHING`, messageID, emoji, userID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	added := count > 0
	if !added {
		if _, err := tx.ExecContext(ctx, `DELETE FROM message_reactions WHERE message_id=$1 AND emoji=$2 AND user_id=$3`, messageID, emoji, userID); err != nil {
			return false, err
		}
	}
	return added, tx.Commit()
}

// Group returns the current user set for one (message, emoji) pair.
func (r *ReactionRepo) Group(ctx context.Context, messageID int, emoji string) (models.ReactionGroup, error) {
	var userIDs []int
	err := r.db.SelectContext(ctx, &userIDs, `SELECT user_id FROM message_reactions WHERE message_id=$1 AND emoji=$2 ORDER BY user_id`, messageID, emoji)
	if err != nil {
		return models.ReactionGroup{}, err
	}
	return models.ReactionGroup{Emoji: emoji, Count: len(userIDs), UserIDs: userIDs}, nil
}

// GroupsForMessages aggregates reactions for a batch of messages, used when
// serving history pages.
func (r *ReactionRepo) GroupsForMessages(ctx context.Context, messageIDs []int) (map[int][]models.ReactionGroup, error) {
	result := map[int][]models.ReactionGroup{}
	if len(messageIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT message_id, emoji, user_id FROM message_reactions
        WHERE message_id = ANY($1) ORDER BY message_id, emoji, user_id`, pq.Array(messageIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type groupKey struct {
		messageID int
		emoji     string
	}
	users := map[groupKey][]int{}
	for rows.Next() {
		var messageID, userID int
		var emoji string
		if err := rows.Scan(&messageID, &emoji, &userID); err != nil {
			return nil, err
		}
		key := groupKey{messageID: messageID, emoji: emoji}
		users[key] = append(users[key], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for key, ids := range users {
		result[key.messageID] = append(result[key.messageID], models.ReactionGroup{Emoji: key.emoji, Count: len(ids), UserIDs: ids})
	}
	for id := range result {
		sort.Slice(result[id], func(i, j int) bool { return result[id][i].Emoji < result[id][j].Emoji })
	}
	return result, nil
}
