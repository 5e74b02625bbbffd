package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
)

// FollowService maintains the follow graph.
type FollowService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

func NewFollowService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *FollowService {
	return &FollowService{userRepo: userRepo, followRepo: followRepo}
}

// Follow makes followerID follow followeeID. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.NewValidationError("You can't follow yourself.")
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}

	created, err := s.followRepo.Create(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if created {
		observability.FollowChangesTotal.WithLabelValues("follow").Inc()
	}
	return nil
}

// Unfollow removes the edge if present.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	removed, err := s.followRepo.Delete(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if removed {
		observability.FollowChangesTotal.WithLabelValues("unfollow").Inc()
	}
	return nil
}

// IsFollowing reports whether a follows b.
func (s *FollowService) IsFollowing(ctx context.Context, a, b uint) (bool, error) {
	return s.followRepo.Exists(ctx, a, b)
}

// IsFollowedBy reports whether b follows a.
func (s *FollowService) IsFollowedBy(ctx context.Context, a, b uint) (bool, error) {
	return s.followRepo.Exists(ctx, b, a)
}
