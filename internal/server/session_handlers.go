package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"
	"warbler/internal/session"

	"github.com/gofiber/fiber/v2"
)

const (
	sessionCookie     = "warbler_session"
	localsUserID      = "userID"
	localsCurrentUser = "currentUser"
)

// currentUser returns the signed-in user, or nil for anonymous requests.
func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localsCurrentUser).(*models.User)
	return u
}

// currentUserID returns 0 for anonymous requests.
func currentUserID(c *fiber.Ctx) uint {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// SessionGate resolves the session cookie into the current user. Requests
// without a valid session continue as anonymous.
func (s *Server) SessionGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(sessionCookie)
		if token == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		uid, err := s.sessions.Resolve(ctx, token)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				s.expireCookie(c, sessionCookie)
			} else {
				middleware.Logger.WarnContext(ctx, "session lookup failed", slog.String("error", err.Error()))
			}
			return c.Next()
		}

		user, err := s.userService.GetUserByID(ctx, uid)
		if err != nil {
			if !models.IsCode(err, models.CodeNotFound) {
				return err
			}
			// The account is gone; drop its session.
			_ = s.sessions.End(ctx, token)
			s.expireCookie(c, sessionCookie)
			return c.Next()
		}

		setCurrentUser(c, user)
		return c.Next()
	}
}

func setCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(localsUserID, user.ID)
	c.Locals(localsCurrentUser, user)
	ctx := session.WithUser(c.UserContext(), user)
	ctx = context.WithValue(ctx, middleware.UserIDKey, user.ID)
	c.SetUserContext(ctx)
}

// AuthRequired sends anonymous requests back to the home page with a notice.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			s.flash(c, flashDanger, "Access unauthorized.")
			return c.Redirect("/")
		}
		return c.Next()
	}
}

// startSession signs user in on this response.
func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	if c.Cookies(sessionCookie) != "" {
		if err := s.endSession(c); err != nil {
			return err
		}
	}
	token, err := s.sessions.Start(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.sessions.TTL()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   s.config.IsProduction(),
	})
	setCurrentUser(c, user)
	return nil
}

// endSession revokes the request's session and clears the cookie.
func (s *Server) endSession(c *fiber.Ctx) error {
	if token := c.Cookies(sessionCookie); token != "" {
		if err := s.sessions.End(c.UserContext(), token); err != nil {
			return err
		}
	}
	s.expireCookie(c, sessionCookie)
	c.Locals(localsUserID, nil)
	c.Locals(localsCurrentUser, nil)
	return nil
}

// SignupForm handles GET /signup
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/signup", nil)
}

// Signup handles POST /signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var in service.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return s.renderForm(c, "users/signup", models.NewValidationError("Invalid request body"), nil)
	}

	user, err := s.authService.Signup(c.UserContext(), in)
	if err != nil {
		return s.renderForm(c, "users/signup", err, fiber.Map{"username": in.Username, "email": in.Email})
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/")
}

// LoginForm handles GET /login
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/login", nil)
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.renderForm(c, "users/login", models.NewValidationError("Invalid request body"), nil)
	}

	user, err := s.authService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrNotAuthenticated) {
			s.flash(c, flashDanger, "Invalid credentials.")
			return s.render(c, fiber.StatusUnauthorized, "users/login", fiber.Map{"username": req.Username})
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	s.flash(c, flashSuccess, fmt.Sprintf("Hello, %s!", user.Username))
	return c.Redirect("/")
}

// Logout handles GET /logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		s.flash(c, flashDanger, "You're not currently logged in.")
		return c.Redirect("/")
	}

	if err := s.endSession(c); err != nil {
		return err
	}
	s.flash(c, flashSuccess, "You have successfully logged out.")
	return c.Redirect("/")
}
