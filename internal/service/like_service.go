package service

import (
	"context"

	"warbler/internal/observability"
	"warbler/internal/repository"
)

// LikeService records which users like which messages.
type LikeService struct {
	messageRepo repository.MessageRepository
	likeRepo    repository.LikeRepository
}

func NewLikeService(messageRepo repository.MessageRepository, likeRepo repository.LikeRepository) *LikeService {
	return &LikeService{messageRepo: messageRepo, likeRepo: likeRepo}
}

// ToggleLike likes the message if userID has not liked it yet and unlikes it
// otherwise. It returns whether the message is liked afterwards.
func (s *LikeService) ToggleLike(ctx context.Context, userID, messageID uint) (bool, error) {
	if _, err := s.messageRepo.GetByID(ctx, messageID, 0); err != nil {
		return false, err
	}

	liked, err := s.likeRepo.Toggle(ctx, userID, messageID)
	if err != nil {
		return false, err
	}

	state := "unliked"
	if liked {
		state = "liked"
	}
	observability.LikeTogglesTotal.WithLabelValues(state).Inc()
	return liked, nil
}

func (s *LikeService) IsLiked(ctx context.Context, userID, messageID uint) (bool, error) {
	return s.likeRepo.IsLiked(ctx, userID, messageID)
}
