package repository

import (
	"context"

	"github.com/oggyb/muzz-match/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository provides profile lookups for the matching core.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Get returns a user by id or gorm.ErrRecordNotFound.
func (r *UserRepository) Get(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Take(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Save inserts the user, or overwrites the profile fields when the id exists.
func (r *UserRepository) Save(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "age", "bio", "image_url", "gender", "looking_for", "location", "interests", "updated_at",
			}),
		}).
		Create(user).Error
}

// Delete removes the user and the passes they made. Their likes are left for
// repair-on-read to prune.
func (r *UserRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("actor_id = ?", id).Delete(&db.Pass{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.User{}, id).Error
	})
}

// Candidates returns profiles to show user in discovery.
//
// Behavior:
//   - Only genders the user is looking for; excludes the user themself.
//   - Excludes users already liked by, or who already liked, the user.
//   - Excludes users the user passed.
//   - Ordered by id for a stable feed.
func (r *UserRepository) Candidates(ctx context.Context, user *db.User, limit int) ([]db.User, error) {
	genders := user.LookingForSet()
	if len(genders) == 0 {
		return nil, nil
	}

	var users []db.User
	err := r.db.WithContext(ctx).
		Table("users u").
		Where("u.id <> ? AND u.gender IN ?", user.ID, genders).
		Where("NOT EXISTS (SELECT 1 FROM likes l WHERE l.liker_id = ? AND l.likee_id = u.id)", user.ID).
		Where("NOT EXISTS (SELECT 1 FROM likes l WHERE l.liker_id = u.id AND l.likee_id = ?)", user.ID).
		Where("NOT EXISTS (SELECT 1 FROM passes p WHERE p.actor_id = ? AND p.recipient_id = u.id)", user.ID).
		Order("u.id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
