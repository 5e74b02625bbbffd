package repository

import (
	"context"

	"warbler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository stores which users like which messages.
type LikeRepository interface {
	// Toggle flips the like and returns the resulting state.
	Toggle(ctx context.Context, userID, messageID uint) (bool, error)
	IsLiked(ctx context.Context, userID, messageID uint) (bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Toggle deletes an existing like or inserts a new one. A concurrent insert
// that wins the unique index race leaves the message liked, which is the
// state the caller asked for.
func (r *likeRepository) Toggle(ctx context.Context, userID, messageID uint) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed := tx.Where("user_id = ? AND message_id = ?", userID, messageID).Delete(&models.Like{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected > 0 {
			return nil
		}

		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{UserID: userID, MessageID: messageID}).Error
		if err != nil && !isUniqueConstraintError(err) {
			return err
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return liked, nil
}

func (r *likeRepository) IsLiked(ctx context.Context, userID, messageID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
