package repository

import (
	"context"

	"warbler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores the directed follow graph.
type FollowRepository interface {
	// Create adds the edge and reports whether it was new.
	Create(ctx context.Context, followerID, followeeID uint) (bool, error)
	// Delete removes the edge and reports whether it existed.
	Delete(ctx context.Context, followerID, followeeID uint) (bool, error)
	Exists(ctx context.Context, followerID, followeeID uint) (bool, error)
	ListFollowing(ctx context.Context, userID uint) ([]models.User, error)
	ListFollowers(ctx context.Context, userID uint) ([]models.User, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, followerID, followeeID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) ListFollowing(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listUsers(ctx, "follows.followee_id = users.id AND follows.follower_id = ?", userID)
}

func (r *followRepository) ListFollowers(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listUsers(ctx, "follows.follower_id = users.id AND follows.followee_id = ?", userID)
}

func (r *followRepository) listUsers(ctx context.Context, on string, userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON "+on, userID).
		Order("users.username ASC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
