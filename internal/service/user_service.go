package service

import (
	"context"
	"log/slog"
	"strings"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// UserService serves the user directory, profiles and account management.
type UserService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	messageRepo repository.MessageRepository
	follows     *FollowService
	feed        *FeedService
	feedLimit   int
}

// UpdateProfileInput is the data submitted on the profile edit form.
// Password must be the user's current password.
type UpdateProfileInput struct {
	UserID         uint   `json:"-" form:"-"`
	Username       string `json:"username" form:"username"`
	Email          string `json:"email" form:"email"`
	ImageURL       string `json:"image_url" form:"image_url"`
	HeaderImageURL string `json:"header_image_url" form:"header_image_url"`
	Bio            string `json:"bio" form:"bio"`
	Location       string `json:"location" form:"location"`
	Password       string `json:"password" form:"password"`
}

func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository, messageRepo repository.MessageRepository, follows *FollowService, feed *FeedService, feedLimit int) *UserService {
	return &UserService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		messageRepo: messageRepo,
		follows:     follows,
		feed:        feed,
		feedLimit:   feedLimit,
	}
}

func (s *UserService) ListUsers(ctx context.Context, query string) ([]models.User, error) {
	return s.userRepo.Search(ctx, query, repository.MaxUserListSize)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile assembles the profile page of userID as seen by viewerID (0 when anonymous).
func (s *UserService) GetProfile(ctx context.Context, userID, viewerID uint) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.userRepo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.feed.UserFeed(ctx, userID, viewerID, s.feedLimit)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		User:           user,
		MessagesCount:  stats.Messages,
		FollowingCount: stats.Following,
		FollowersCount: stats.Followers,
		LikesCount:     stats.Likes,
		Messages:       msgs,
	}

	if viewerID != 0 && viewerID != userID {
		if profile.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, userID); err != nil {
			return nil, err
		}
		if profile.FollowsYou, err = s.follows.IsFollowedBy(ctx, viewerID, userID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// Following lists the users userID follows.
func (s *UserService) Following(ctx context.Context, userID uint) (*models.User, []models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.followRepo.ListFollowing(ctx, userID)
	return user, users, err
}

// Followers lists the users following userID.
func (s *UserService) Followers(ctx context.Context, userID uint) (*models.User, []models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.followRepo.ListFollowers(ctx, userID)
	return user, users, err
}

// LikedMessages lists the messages userID liked, newest like first.
func (s *UserService) LikedMessages(ctx context.Context, userID, viewerID uint) (*models.User, []*models.Message, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messageRepo.ListLikedBy(ctx, userID, s.feedLimit, viewerID)
	return user, msgs, err
}

// UpdateProfile re-authenticates with in.Password and then saves every field at once.
// A wrong password changes nothing.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetWithPassword(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !passwordMatches(user.Password, in.Password) {
		middleware.Logger.WarnContext(ctx, "profile update rejected: wrong password")
		return nil, models.NewAuthenticationFailedError("Incorrect password, please try again.")
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.HeaderImageURL = strings.TrimSpace(in.HeaderImageURL)
	in.Location = strings.TrimSpace(in.Location)

	errs := validation.Errors{}
	errs.Check("username", validation.ValidateUsername(in.Username))
	errs.Check("email", validation.ValidateEmail(in.Email))
	errs.Check("image_url", validation.ValidateImageURL(in.ImageURL))
	errs.Check("header_image_url", validation.ValidateImageURL(in.HeaderImageURL))
	errs.Check("bio", validation.ValidateMaxLength("bio", in.Bio, validation.MaxBioLength))
	errs.Check("location", validation.ValidateMaxLength("location", in.Location, validation.MaxLocationLength))
	if !errs.Empty() {
		return nil, models.NewFieldValidationError(errs)
	}

	user.Username = in.Username
	user.Email = in.Email
	user.ImageURL = in.ImageURL
	user.HeaderImageURL = in.HeaderImageURL
	user.Bio = in.Bio
	user.Location = in.Location
	user.ApplyImageDefaults()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	user.Password = ""
	return user, nil
}

// DeleteAccount removes the user with their messages, likes and follow edges.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "account deleted", slog.Uint64("deleted_user_id", uint64(userID)))
	return nil
}
