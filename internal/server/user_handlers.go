package server

import (
	"fmt"

	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	q := c.Query("q")
	users, err := s.userService.ListUsers(c.UserContext(), q)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/index", fiber.Map{"users": users, "q": q})
}

// ShowUser handles GET /users/:id
func (s *Server) ShowUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	profile, err := s.userService.GetProfile(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/show", profile)
}

// ShowFollowing handles GET /users/:id/following
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, users, err := s.userService.Following(c.UserContext(), id)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/following", fiber.Map{"user": user, "users": users})
}

// ShowFollowers handles GET /users/:id/followers
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, users, err := s.userService.Followers(c.UserContext(), id)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/followers", fiber.Map{"user": user, "users": users})
}

// ShowLikes handles GET /users/:id/likes
func (s *Server) ShowLikes(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, messages, err := s.userService.LikedMessages(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/likes", fiber.Map{"user": user, "messages": messages})
}

func followingPath(userID uint) string {
	return fmt.Sprintf("/users/%d/following", userID)
}

func profilePath(userID uint) string {
	return fmt.Sprintf("/users/%d", userID)
}

// Follow handles POST /users/follow/:id
func (s *Server) Follow(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	me := currentUserID(c)
	if err := s.followService.Follow(c.UserContext(), me, id); err != nil {
		if !models.IsCode(err, models.CodeValidation) {
			return err
		}
		appErr, _ := models.AsAppError(err)
		s.flash(c, flashDanger, appErr.Message)
	}
	return c.Redirect(followingPath(me))
}

// StopFollowing handles POST /users/stop-following/:id
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	me := currentUserID(c)
	if err := s.followService.Unfollow(c.UserContext(), me, id); err != nil {
		return err
	}
	return c.Redirect(followingPath(me))
}

// EditProfileForm handles GET /users/profile
func (s *Server) EditProfileForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/edit", fiber.Map{"user": currentUser(c)})
}

// UpdateProfile handles POST /users/profile
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var in service.UpdateProfileInput
	if err := c.BodyParser(&in); err != nil {
		return s.renderForm(c, "users/edit", models.NewValidationError("Invalid request body"), nil)
	}
	in.UserID = currentUserID(c)

	user, err := s.userService.UpdateProfile(c.UserContext(), in)
	if err != nil {
		return s.renderForm(c, "users/edit", err, fiber.Map{"user": currentUser(c)})
	}

	setCurrentUser(c, user)
	return c.Redirect(profilePath(user.ID))
}

// DeleteAccount handles POST /users/delete
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	ctx := c.UserContext()
	me := currentUserID(c)

	if err := s.userService.DeleteAccount(ctx, me); err != nil {
		return err
	}
	if err := s.sessions.EndAllForUser(ctx, me); err != nil {
		return err
	}
	if err := s.endSession(c); err != nil {
		return err
	}
	return c.Redirect("/signup")
}
