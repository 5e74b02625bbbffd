// Package session implements server-side login sessions and the signed cookie that names them.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"warbler/internal/models"
	"warbler/internal/repository"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a session is unknown, expired or revoked.
var ErrNoSession = errors.New("no active session")

// Store maps opaque session ids to user ids.
type Store interface {
	Save(ctx context.Context, id string, userID uint, ttl time.Duration) error
	// Lookup returns ErrNoSession when id is not an active session.
	Lookup(ctx context.Context, id string) (uint, error)
	Delete(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, userID uint) error
}

// RedisStore keeps sessions in Redis with native expiry.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a Store backed by rdb.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(id string) string {
	return "session:" + id
}

func userSessionsKey(userID uint) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

func (s *RedisStore) Save(ctx context.Context, id string, userID uint, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(id), strconv.FormatUint(uint64(userID), 10), ttl)
		pipe.SAdd(ctx, userSessionsKey(userID), id)
		pipe.Expire(ctx, userSessionsKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, id string) (uint, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session: %w", err)
	}
	uid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrNoSession
	}
	return uint(uid), nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	uid, err := s.Lookup(ctx, id)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, userSessionsKey(uid), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteUser(ctx context.Context, userID uint) error {
	ids, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list user sessions: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// DBStore keeps sessions in the sessions table. It is used when Redis is unavailable.
type DBStore struct {
	repo repository.SessionRepository
	now  func() time.Time
}

// NewDBStore returns a Store backed by the sessions table.
func NewDBStore(repo repository.SessionRepository) *DBStore {
	return &DBStore{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *DBStore) Save(ctx context.Context, id string, userID uint, ttl time.Duration) error {
	now := s.now()
	return s.repo.Create(ctx, &models.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
}

func (s *DBStore) Lookup(ctx context.Context, id string) (uint, error) {
	sess, err := s.repo.GetActive(ctx, id, s.now())
	if err != nil {
		return 0, err
	}
	if sess == nil {
		return 0, ErrNoSession
	}
	return sess.UserID, nil
}

func (s *DBStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *DBStore) DeleteUser(ctx context.Context, userID uint) error {
	return s.repo.DeleteByUser(ctx, userID)
}

// Purge removes expired rows.
func (s *DBStore) Purge(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, s.now())
}
