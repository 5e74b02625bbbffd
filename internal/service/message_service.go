package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// MessageService creates, reads and deletes messages.
type MessageService struct {
	messageRepo repository.MessageRepository
	now         func() time.Time
}

func NewMessageService(messageRepo repository.MessageRepository) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create posts text as userID, timestamped now.
func (s *MessageService) Create(ctx context.Context, userID uint, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if err := validation.ValidateMessageText(text, models.MaxMessageLength); err != nil {
		return nil, models.NewFieldValidationError(map[string]string{"text": err.Error()})
	}

	msg := &models.Message{
		UserID:    userID,
		Text:      text,
		Timestamp: s.now(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	observability.MessagesTotal.WithLabelValues("created").Inc()
	return msg, nil
}

// Get returns the message with its author, decorated for viewerID.
func (s *MessageService) Get(ctx context.Context, messageID, viewerID uint) (*models.Message, error) {
	return s.messageRepo.GetByID(ctx, messageID, viewerID)
}

func (s *MessageService) ListByUser(ctx context.Context, userID uint, limit int, viewerID uint) ([]*models.Message, error) {
	return s.messageRepo.ListByUser(ctx, userID, limit, viewerID)
}

// Delete removes the message if requestingUserID wrote it.
func (s *MessageService) Delete(ctx context.Context, messageID, requestingUserID uint) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID, 0)
	if err != nil {
		return err
	}
	if msg.UserID != requestingUserID {
		middleware.Logger.WarnContext(ctx, "message delete rejected: not the author",
			slog.Uint64("message_id", uint64(messageID)))
		return models.NewForbiddenError("Access unauthorized.")
	}

	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		return err
	}

	observability.MessagesTotal.WithLabelValues("deleted").Inc()
	return nil
}
