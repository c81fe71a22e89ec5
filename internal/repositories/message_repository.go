package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"community-chat-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository is the durable history store: the chat core appends to it
// and reads back the committed per-channel sequence.
type MessageRepository interface {
	CreateMessage(ctx context.Context, channelID int, senderID int, content string, msgType string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	ListMessagesAfter(ctx context.Context, channelID int, afterSequence int64, limit int) ([]models.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage inserts a message with the next sequence for its channel.
// Callers serialize per channel, so the max+1 read is race-free; the unique
// (channel_id, sequence) index backstops that assumption.
func (r *MessageRepo) CreateMessage(ctx context.Context, channelID int, senderID int, content string, msgType string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (channel_id, sender_id, content, type, sequence)
        SELECT $1, $2, $3, $4, COALESCE(MAX(sequence), 0) + 1 FROM messages WHERE channel_id=$1
        RETURNING id, channel_id, sender_id, content, type, sequence, is_deleted, created_at`,
		channelID, senderID, content, msgType).
		Scan(&msg.ID, &msg.ChannelID, &msg.SenderID, &msg.Content, &msg.Type, &msg.Sequence, &msg.IsDeleted, &msg.CreatedAt)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, channel_id, sender_id, content, type, sequence, is_deleted, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListMessagesAfter returns up to limit messages with sequence greater than
// afterSequence, in sequence order. Deleted messages are included so clients
// can render tombstones; content replacement happens above this layer.
func (r *MessageRepo) ListMessagesAfter(ctx context.Context, channelID int, afterSequence int64, limit int) ([]models.Message, error) {
	query := `SELECT id, channel_id, sender_id, content, type, sequence, is_deleted, created_at
        FROM messages
        WHERE channel_id=$1 AND sequence > $2
        ORDER BY sequence ASC
        LIMIT $3`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, channelID, afterSequence, limit)
	return msgs, err
}

// SoftDeleteMessage marks a message deleted. The row is never removed.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted = TRUE WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
