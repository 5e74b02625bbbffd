// Package service holds the business rules that sit between HTTP handlers and repositories.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthService registers users and checks their credentials.
type AuthService struct {
	userRepo   repository.UserRepository
	bcryptCost int
	// dummyHash is compared against when the username is unknown so that
	// unknown users and wrong passwords take the same time.
	dummyHash []byte
}

// SignupInput is the data submitted on the signup form.
type SignupInput struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	ImageURL string `json:"image_url" form:"image_url"`
}

func NewAuthService(userRepo repository.UserRepository, bcryptCost int) *AuthService {
	dummy, err := bcrypt.GenerateFromPassword([]byte("warbler-unknown-user"), bcryptCost)
	if err != nil {
		dummy = nil
	}
	return &AuthService{userRepo: userRepo, bcryptCost: bcryptCost, dummyHash: dummy}
}

// Signup validates in, hashes the password and creates the user.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	errs := validation.Errors{}
	errs.Check("username", validation.ValidateUsername(in.Username))
	errs.Check("email", validation.ValidateEmail(in.Email))
	errs.Check("password", validation.ValidatePassword(in.Password))
	errs.Check("image_url", validation.ValidateImageURL(in.ImageURL))
	if !errs.Empty() {
		observability.SignupsTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		return nil, models.NewFieldValidationError(errs)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		observability.SignupsTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		return nil, models.NewFieldValidationError(map[string]string{"password": err.Error()})
	}
	if err != nil {
		observability.SignupsTotal.WithLabelValues(observability.OutcomeError).Inc()
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		ImageURL: in.ImageURL,
	}
	user.ApplyImageDefaults()

	if err := s.userRepo.Create(ctx, user); err != nil {
		outcome := observability.OutcomeError
		if models.IsCode(err, models.CodeConflict) {
			outcome = observability.OutcomeRejected
		}
		observability.SignupsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}

	observability.SignupsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	middleware.Logger.InfoContext(ctx, "user signed up", slog.Uint64("new_user_id", uint64(user.ID)))
	return user, nil
}

// Authenticate returns the user whose username and password match, or
// models.ErrNotAuthenticated. Storage failures are returned as internal errors.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "AuthService.Authenticate")
	defer func() { observability.EndSpan(span, err) }()

	user, err = s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		observability.LoginsTotal.WithLabelValues(observability.OutcomeError).Inc()
		return nil, err
	}

	if user == nil {
		if s.dummyHash != nil {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		}
		observability.LoginsTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		return nil, models.ErrNotAuthenticated
	}

	if !passwordMatches(user.Password, password) {
		observability.LoginsTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		return nil, models.ErrNotAuthenticated
	}

	observability.LoginsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	return user, nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
