package repository

import (
	"context"
	"errors"
	"time"

	"warbler/internal/models"

	"gorm.io/gorm"
)

// SessionRepository persists login sessions in the database.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	// GetActive returns the session if it exists and has not expired at now, else nil.
	GetActive(ctx context.Context, id string, now time.Time) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID uint) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository returns a new SessionRepository implementation.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *models.Session) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *sessionRepository) GetActive(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	var s models.Session
	err := r.db.WithContext(ctx).Where("id = ? AND expires_at > ?", id, now).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &s, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *sessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	return result.RowsAffected, nil
}
