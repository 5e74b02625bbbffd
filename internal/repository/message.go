package repository

import (
	"context"
	"errors"

	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxMessageListSize caps every message listing.
const MaxMessageListSize = 100

// MessageRepository defines persistence operations for messages.
// viewerID decorates results with the viewer's liked flag; 0 means anonymous.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id, viewerID uint) (*models.Message, error)
	ListByUser(ctx context.Context, userID uint, limit int, viewerID uint) ([]*models.Message, error)
	// Feed returns messages by viewerID and everyone viewerID follows.
	Feed(ctx context.Context, viewerID uint, limit int) ([]*models.Message, error)
	ListLikedBy(ctx context.Context, userID uint, limit int, viewerID uint) ([]*models.Message, error)
	// Delete removes the message and its likes.
	Delete(ctx context.Context, id uint) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

var newestFirst = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Table: "messages", Name: "timestamp"}, Desc: true},
	{Column: clause.Column{Table: "messages", Name: "id"}, Desc: true},
}}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxMessageListSize {
		return MaxMessageListSize
	}
	return limit
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// withDetails selects the computed likes_count and liked columns.
func (r *messageRepository) withDetails(ctx context.Context, viewerID uint) *gorm.DB {
	selectQuery := "messages.*, (SELECT COUNT(*) FROM likes WHERE likes.message_id = messages.id) AS likes_count"
	db := r.db.WithContext(ctx).Model(&models.Message{}).Preload("User")
	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.message_id = messages.id AND likes.user_id = ?) AS liked", viewerID)
	}
	return db.Select(selectQuery + ", false AS liked")
}

func (r *messageRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Message, error) {
	var msg models.Message
	if err := r.withDetails(ctx, viewerID).Where("messages.id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

func (r *messageRepository) ListByUser(ctx context.Context, userID uint, limit int, viewerID uint) ([]*models.Message, error) {
	defer observability.TrackQuery("list_by_user", "messages")()
	return r.list(r.withDetails(ctx, viewerID).
		Where("messages.user_id = ?", userID).
		Order(newestFirst).
		Limit(clampLimit(limit)))
}

func (r *messageRepository) Feed(ctx context.Context, viewerID uint, limit int) ([]*models.Message, error) {
	defer observability.TrackQuery("feed", "messages")()
	followees := r.db.WithContext(ctx).Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", viewerID)
	return r.list(r.withDetails(ctx, viewerID).
		Where("messages.user_id = ? OR messages.user_id IN (?)", viewerID, followees).
		Order(newestFirst).
		Limit(clampLimit(limit)))
}

func (r *messageRepository) ListLikedBy(ctx context.Context, userID uint, limit int, viewerID uint) ([]*models.Message, error) {
	defer observability.TrackQuery("list_liked", "messages")()
	return r.list(r.withDetails(ctx, viewerID).
		Joins("JOIN likes AS liked_by ON liked_by.message_id = messages.id AND liked_by.user_id = ?", userID).
		Order("liked_by.created_at DESC, liked_by.id DESC").
		Limit(clampLimit(limit)))
}

func (r *messageRepository) list(q *gorm.DB) ([]*models.Message, error) {
	var msgs []*models.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Message{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Message", id)
		}
		return nil
	})
	if err != nil {
		if _, ok := models.AsAppError(err); ok {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}
