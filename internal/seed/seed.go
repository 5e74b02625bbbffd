package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password"

// Options configure the amount of data generated.
type Options struct {
	Users           int
	MessagesPerUser int
	FollowsPerUser  int
	LikesPerUser    int
	MaxDays         int
	BcryptCost      int
	Seed            int64
}

// DefaultOptions returns a small but well connected demo data set.
func DefaultOptions() Options {
	return Options{
		Users:           50,
		MessagesPerUser: 10,
		FollowsPerUser:  8,
		LikesPerUser:    15,
		MaxDays:         30,
		BcryptCost:      bcrypt.DefaultCost,
		Seed:            time.Now().UnixNano(),
	}
}

// Result counts the rows created by Run.
type Result struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
}

// Seeder writes generated data into a database.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(opts.Seed, time.Now())}
}

// ClearAll removes every user and everything that references one.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Message{}, &models.Session{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Run generates users, follows, messages and likes in a single transaction.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	res := &Result{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := s.seedUsers(tx, string(hash))
		if err != nil {
			return err
		}
		res.Users = len(users)

		if res.Follows, err = s.seedFollows(tx, users); err != nil {
			return err
		}

		msgs, err := s.seedMessages(tx, users)
		if err != nil {
			return err
		}
		res.Messages = len(msgs)

		res.Likes, err = s.seedLikes(tx, users, msgs)
		return err
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", res.Users),
		slog.Int("messages", res.Messages),
		slog.Int("follows", res.Follows),
		slog.Int("likes", res.Likes))
	return res, nil
}

func (s *Seeder) seedUsers(tx *gorm.DB, hash string) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.Users)
	for i := 1; len(users) < s.opts.Users; i++ {
		u := s.factory.BuildUser(i, hash)
		if !valid(u) {
			continue
		}
		users = append(users, u)
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := tx.CreateInBatches(users, 100).Error; err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	return users, nil
}

func (s *Seeder) seedFollows(tx *gorm.DB, users []*models.User) (int, error) {
	var follows []models.Follow
	for i, u := range users {
		for _, j := range s.factory.Pick(s.opts.FollowsPerUser, len(users), i) {
			follows = append(follows, models.Follow{FollowerID: u.ID, FolloweeID: users[j].ID})
		}
	}
	if len(follows) == 0 {
		return 0, nil
	}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(follows, 500)
	if result.Error != nil {
		return 0, fmt.Errorf("seed follows: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

func (s *Seeder) seedMessages(tx *gorm.DB, users []*models.User) ([]*models.Message, error) {
	var msgs []*models.Message
	for _, u := range users {
		for i := 0; i < s.opts.MessagesPerUser; i++ {
			msgs = append(msgs, s.factory.BuildMessage(u.ID, s.opts.MaxDays))
		}
	}
	if len(msgs) == 0 {
		return msgs, nil
	}
	if err := tx.CreateInBatches(msgs, 500).Error; err != nil {
		return nil, fmt.Errorf("seed messages: %w", err)
	}
	return msgs, nil
}

func (s *Seeder) seedLikes(tx *gorm.DB, users []*models.User, msgs []*models.Message) (int, error) {
	var likes []models.Like
	for _, u := range users {
		for _, j := range s.factory.Pick(s.opts.LikesPerUser, len(msgs), -1) {
			likes = append(likes, models.Like{UserID: u.ID, MessageID: msgs[j].ID})
		}
	}
	if len(likes) == 0 {
		return 0, nil
	}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(likes, 500)
	if result.Error != nil {
		return 0, fmt.Errorf("seed likes: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
