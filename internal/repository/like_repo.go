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

// LikeRepository provides data access methods for the Like model.
// Every mutation is idempotent and safe to retry: inserts are insert-if-absent
// and updates are conditional so concurrent writers converge.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// CreateIfAbsent inserts a PENDING like liker -> likee unless one exists.
//
// Behavior:
//   - Unique (liker_id, likee_id) makes the insert a no-op on repeat calls.
//   - The stored row is always returned; created reports whether this call made it.
//
// Example:
//
//	like, created, err := repo.CreateIfAbsent(ctx, 1, 2) // user 1 liked user 2
func (r *LikeRepository) CreateIfAbsent(ctx context.Context, likerID, likeeID uint64) (*db.Like, bool, error) {
	like := db.Like{LikerID: likerID, LikeeID: likeeID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "liker_id"}, {Name: "likee_id"}},
			DoNothing: true,
		}).
		Create(&like)
	if res.Error != nil {
		return nil, false, res.Error
	}

	existing, err := r.Find(ctx, likerID, likeeID)
	if err != nil {
		return nil, false, err
	}
	return existing, res.RowsAffected > 0, nil
}

// Find returns the like liker -> likee or gorm.ErrRecordNotFound.
func (r *LikeRepository) Find(ctx context.Context, likerID, likeeID uint64) (*db.Like, error) {
	var like db.Like
	err := r.db.WithContext(ctx).
		Where("liker_id = ? AND likee_id = ?", likerID, likeeID).
		Take(&like).Error
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// Get returns a like by id or gorm.ErrRecordNotFound.
func (r *LikeRepository) Get(ctx context.Context, id uint64) (*db.Like, error) {
	var like db.Like
	if err := r.db.WithContext(ctx).Take(&like, id).Error; err != nil {
		return nil, err
	}
	return &like, nil
}

// MarkMatched flips a like to MATCHED with matched_date = min(current, at).
//
// Behavior:
//   - One-way: is_matched never goes back to false.
//   - Min-monotone date: two racing matchers end on the same (earliest) date.
func (r *LikeRepository) MarkMatched(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("id = ?", id).
		Where("(is_matched = ? OR matched_date IS NULL OR matched_date > ?)", false, at).
		Updates(map[string]any{
			"is_matched": true,
			"matched_date": gorm.Expr(
				"CASE WHEN matched_date IS NULL OR matched_date > ? THEN ? ELSE matched_date END", at, at,
			),
		}).Error
}

// SetConversation links the like to a channel unless it already has one.
// Returns false when another writer linked it first.
func (r *LikeRepository) SetConversation(ctx context.Context, id uint64, conversationID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("id = ? AND (conversation_id IS NULL OR conversation_id = '')", id).
		Update("conversation_id", conversationID)
	return res.RowsAffected > 0, res.Error
}

// RelinkConversation swaps a channel ref that no longer resolves for the
// pair's real conversation. It only writes while the row still holds from.
func (r *LikeRepository) RelinkConversation(ctx context.Context, id uint64, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("id = ? AND conversation_id = ?", id, from).
		Update("conversation_id", to)
	return res.RowsAffected > 0, res.Error
}

// ClearDirectConversation drops the legacy embedded log if the row is unchanged
// since it was read (compare-and-clear on updated_at).
func (r *LikeRepository) ClearDirectConversation(ctx context.Context, id uint64, readAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("id = ? AND updated_at = ?", id, readAt).
		Update("direct_conversation", nil)
	return res.RowsAffected > 0, res.Error
}

// Delete removes a like. Deleting a missing like is not an error.
func (r *LikeRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&db.Like{}, id).Error
}

// ListByLiker returns likes sent by the user, newest first.
func (r *LikeRepository) ListByLiker(ctx context.Context, likerID uint64, token string, limit int) ([]db.Like, *string, error) {
	query := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.liker_id = ?", likerID)
	return r.page(query, token, limit)
}

// ListMatched returns MATCHED likes sent by the user, newest first.
// Each matched pair therefore appears exactly once per viewer.
func (r *LikeRepository) ListMatched(ctx context.Context, userID uint64, token string, limit int) ([]db.Like, *string, error) {
	query := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.liker_id = ? AND l.is_matched = ?", userID, true)
	return r.page(query, token, limit)
}

// ListByLikee returns likes received by the user, newest first.
//
// Behavior:
//   - Excludes likers the recipient explicitly passed.
//   - Supports cursor-based pagination via token.
//
// Example:
//
//	repo.ListByLikee(ctx, 42, "", 20) // first 20 people who liked user 42
func (r *LikeRepository) ListByLikee(ctx context.Context, likeeID uint64, token string, limit int) ([]db.Like, *string, error) {
	query := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.likee_id = ?", likeeID).
		Where(notPassedBy, likeeID)
	return r.page(query, token, limit)
}

// CountReceived returns how many existing users liked the recipient,
// excluding passed likers.
func (r *LikeRepository) CountReceived(ctx context.Context, likeeID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.likee_id = ?", likeeID).
		Where("EXISTS (SELECT 1 FROM users u WHERE u.id = l.liker_id)").
		Where(notPassedBy, likeeID).
		Count(&count).Error
	return count, err
}

// ListNeedingRepair scans for likes whose state has not converged, in id order
// starting after afterID:
//   - PENDING likes whose reverse like exists (missed match),
//   - MATCHED likes without a channel (half-linked bootstrap),
//   - likes still carrying a legacy embedded log while matched,
//   - likes whose liker or likee no longer exists.
func (r *LikeRepository) ListNeedingRepair(ctx context.Context, afterID uint64, limit int) ([]db.Like, error) {
	var likes []db.Like
	err := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.id > ?", afterID).
		Where(`(
			(l.is_matched = ? AND EXISTS (
				SELECT 1 FROM likes r
				WHERE r.liker_id = l.likee_id
				  AND r.likee_id = l.liker_id
			))
			OR (l.is_matched = ? AND (l.conversation_id IS NULL OR l.conversation_id = ''))
			OR (l.is_matched = ? AND l.direct_conversation IS NOT NULL)
			OR NOT EXISTS (SELECT 1 FROM users u WHERE u.id = l.liker_id)
			OR NOT EXISTS (SELECT 1 FROM users u WHERE u.id = l.likee_id)
		)`, false, true, true).
		Order("l.id ASC").
		Limit(limit).
		Find(&likes).Error
	return likes, err
}

// page applies "created_at DESC, id DESC" ordering and cursor pagination.
func (r *LikeRepository) page(query *gorm.DB, token string, limit int) ([]db.Like, *string, error) {
	cursor, err := pagination.Decode(token)
	if err != nil {
		return nil, nil, svcErr.Validation("%v", err)
	}
	limit = pagination.Limit(limit)

	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.UnixMill).UTC()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var likes []db.Like
	err = query.
		Select("l.*").
		Order("l.created_at DESC, l.id DESC").
		Limit(limit + 1).
		Find(&likes).Error
	if err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:       last.ID,
			UnixMill: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}
	return likes, nextToken, nil
}
