package repository

import (
	"context"

	"github.com/oggyb/muzz-match/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PassRepository stores the negative signal ("pass"/swipe left).
type PassRepository struct {
	db *gorm.DB
}

// NewPassRepository creates a new repository bound to the given DB connection.
func NewPassRepository(database *gorm.DB) *PassRepository {
	return &PassRepository{db: database}
}

// RecordPass inserts a pass actor -> recipient, or refreshes updated_at if present.
//
// Example:
//
//	repo.RecordPass(ctx, 1, 3) // user 1 passed user 3
func (r *PassRepository) RecordPass(ctx context.Context, actorID, recipientID uint64) error {
	pass := db.Pass{ActorID: actorID, RecipientID: recipientID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "recipient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Create(&pass).Error
}

// ClearPass removes a pass. Removing a missing pass is not an error.
func (r *PassRepository) ClearPass(ctx context.Context, actorID, recipientID uint64) error {
	return r.db.WithContext(ctx).
		Where("actor_id = ? AND recipient_id = ?", actorID, recipientID).
		Delete(&db.Pass{}).Error
}

// notPassedBy is the shared filter "the liker was not passed by ?", applied to
// a query over `likes l`.
const notPassedBy = `
	NOT EXISTS (
		SELECT 1 FROM passes p
		WHERE p.actor_id = ?
		  AND p.recipient_id = l.liker_id
	)`
