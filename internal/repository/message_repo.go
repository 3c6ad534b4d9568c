package repository

import (
	"context"
	"time"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/utils/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository appends and reads channel messages.
// Messages are rows, never a shared array, so concurrent senders cannot
// overwrite each other.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Insert stores msg unless a message with the same id exists.
// A retried insert therefore never duplicates a message.
func (r *MessageRepository) Insert(ctx context.Context, msg *db.Message) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(msg)
	return res.RowsAffected > 0, res.Error
}

// List returns a conversation's messages oldest first, ordered by
// (created_at, id), with cursor-based pagination.
func (r *MessageRepository) List(ctx context.Context, conversationID string, token string, limit int) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(token)
	if err != nil {
		return nil, nil, svcErr.Validation("%v", err)
	}
	limit = pagination.Limit(limit)

	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.UnixMill).UTC()
		query = query.Where(
			"(created_at > ? OR (created_at = ? AND id > ?))",
			ts, ts, cursor.Key,
		)
	}

	var msgs []db.Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(msgs) > limit {
		last := msgs[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			Key:      last.ID,
			UnixMill: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		msgs = msgs[:limit]
	}
	return msgs, nextToken, nil
}

// MarkRead flags every unread message addressed to readerID as read.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID string, readerID uint64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, readerID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}
