package repository

import (
	"context"

	"github.com/oggyb/muzz-match/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository stores the channels shared by matched pairs.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new repository bound to the given DB connection.
func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// CreateIfAbsent inserts conv unless a conversation already exists for its pair.
//
// Behavior:
//   - pair_key is unique, so two racing bootstrappers end up with one row.
//   - Returns the stored conversation; created reports whether conv was inserted.
func (r *ConversationRepository) CreateIfAbsent(ctx context.Context, conv *db.Conversation) (*db.Conversation, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).
		Create(conv)
	if res.Error != nil {
		return nil, false, res.Error
	}

	var stored db.Conversation
	if err := r.db.WithContext(ctx).Where("pair_key = ?", conv.PairKey).Take(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, res.RowsAffected > 0, nil
}

// Get returns a conversation by id or gorm.ErrRecordNotFound.
func (r *ConversationRepository) Get(ctx context.Context, id string) (*db.Conversation, error) {
	var conv db.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateLastMessage refreshes the denormalized last-message fields.
// Last writer wins, but an older message never replaces a newer one.
func (r *ConversationRepository) UpdateLastMessage(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ?", msg.ConversationID).
		Where("(last_message_sent_at IS NULL OR last_message_sent_at <= ?)", msg.CreatedAt).
		Updates(map[string]any{
			"last_message_text":      msg.Text,
			"last_message_sent_at":   msg.CreatedAt,
			"last_message_sender_id": msg.SenderID,
		}).Error
}

// ListForUser returns the user's conversations, most recently active first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID uint64, limit int) ([]db.Conversation, error) {
	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("COALESCE(last_message_sent_at, created_at) DESC, id DESC").
		Limit(limit).
		Find(&convs).Error
	return convs, err
}
