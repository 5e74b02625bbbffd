package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// MaxUserListSize caps directory listings.
const MaxUserListSize = 100

// UserStats holds the counters shown on a profile.
type UserStats struct {
	Messages  int64
	Following int64
	Followers int64
	Likes     int64
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// GetByID returns the user, served from cache when possible. The password hash is not cached.
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetWithPassword reads the user, including the password hash, from the database.
	GetWithPassword(ctx context.Context, id uint) (*models.User, error)
	// GetByUsername returns nil, nil when no user has the exact username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	Stats(ctx context.Context, id uint) (*UserStats, error)
}

type userRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewUserRepository returns a UserRepository. rdb may be nil to disable caching.
func NewUserRepository(db *gorm.DB, rdb *redis.Client) UserRepository {
	return &userRepository{db: db, rdb: rdb}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, r.rdb, cache.UserKey(id), &user, cache.UserTTL, func() error {
		return r.first(ctx, &user, id)
	})
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return &user, nil
}

func (r *userRepository) GetWithPassword(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.first(ctx, &user, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) first(ctx context.Context, user *models.User, id uint) error {
	if err := r.db.WithContext(ctx).First(user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	if err != nil {
		return mapUserWriteError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(user).Select(
		"Username", "Email", "ImageURL", "HeaderImageURL", "Bio", "Location", "UpdatedAt",
	).Updates(user)
	if result.Error != nil {
		return mapUserWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	cache.InvalidateUser(ctx, r.rdb, user.ID)
	return nil
}

func mapUserWriteError(err error) error {
	if !isUniqueConstraintError(err) {
		return models.NewInternalError(err)
	}
	if violatedColumn(err, "username", "email") == "email" {
		return models.NewConflictError("email", "Email already taken")
	}
	return models.NewConflictError("username", "Username already taken")
}

// Delete removes the user and everything that references them in one transaction.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownMessages := tx.Model(&models.Message{}).Select("id").Where("user_id = ?", id)

		deletions := []struct {
			model any
			query string
			args  []any
		}{
			{&models.Like{}, "user_id = ?", []any{id}},
			{&models.Like{}, "message_id IN (?)", []any{ownMessages}},
			{&models.Follow{}, "follower_id = ? OR followee_id = ?", []any{id, id}},
			{&models.Message{}, "user_id = ?", []any{id}},
			{&models.Session{}, "user_id = ?", []any{id}},
		}
		for _, d := range deletions {
			if err := tx.Where(d.query, d.args...).Delete(d.model).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		if _, ok := models.AsAppError(err); ok {
			return err
		}
		return models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, r.rdb, id)
	return nil
}

// Search lists users whose username contains query, or all users when query is empty.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	defer observability.TrackQuery("search", "users")()
	if limit <= 0 || limit > MaxUserListSize {
		limit = MaxUserListSize
	}

	q := r.db.WithContext(ctx).Order("username ASC").Limit(limit)
	if query = strings.TrimSpace(query); query != "" {
		q = q.Where(`username LIKE ? ESCAPE '\'`, "%"+escapeLike(query)+"%")
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *userRepository) Stats(ctx context.Context, id uint) (*UserStats, error) {
	defer observability.TrackQuery("stats", "users")()
	var stats UserStats
	db := r.db.WithContext(ctx)

	counts := []struct {
		model any
		where string
		dest  *int64
	}{
		{&models.Message{}, "user_id = ?", &stats.Messages},
		{&models.Follow{}, "follower_id = ?", &stats.Following},
		{&models.Follow{}, "followee_id = ?", &stats.Followers},
		{&models.Like{}, "user_id = ?", &stats.Likes},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, id).Count(c.dest).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return &stats, nil
}
