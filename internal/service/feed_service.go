package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FeedService assembles message timelines.
type FeedService struct {
	messageRepo repository.MessageRepository
	messages    *MessageService
	limit       int
}

// NewFeedService returns a FeedService that returns at most limit messages per page.
func NewFeedService(messageRepo repository.MessageRepository, messages *MessageService, limit int) *FeedService {
	if limit <= 0 || limit > repository.MaxMessageListSize {
		limit = repository.MaxMessageListSize
	}
	return &FeedService{messageRepo: messageRepo, messages: messages, limit: limit}
}

func (s *FeedService) clamp(limit int) int {
	if limit <= 0 || limit > s.limit {
		return s.limit
	}
	return limit
}

// HomeFeed returns the newest messages written by viewerID or anyone viewerID follows.
func (s *FeedService) HomeFeed(ctx context.Context, viewerID uint, limit int) ([]*models.Message, error) {
	ctx, span := observability.StartSpan(ctx, "service", "FeedService.HomeFeed",
		attribute.Int64("viewer_id", int64(viewerID)))
	msgs, err := s.messageRepo.Feed(ctx, viewerID, s.clamp(limit))
	observability.EndSpan(span, err)
	return msgs, err
}

// UserFeed returns the newest messages written by ownerID.
func (s *FeedService) UserFeed(ctx context.Context, ownerID, viewerID uint, limit int) ([]*models.Message, error) {
	return s.messages.ListByUser(ctx, ownerID, s.clamp(limit), viewerID)
}
