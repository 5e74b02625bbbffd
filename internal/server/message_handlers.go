package server

import (
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// NewMessageForm handles GET /messages/new
func (s *Server) NewMessageForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "messages/new", nil)
}

// CreateMessage handles POST /messages/new
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.renderForm(c, "messages/new", models.NewValidationError("Invalid request body"), nil)
	}

	me := currentUserID(c)
	if _, err := s.messageService.Create(c.UserContext(), me, req.Text); err != nil {
		return s.renderForm(c, "messages/new", err, fiber.Map{"text": req.Text})
	}
	return c.Redirect(profilePath(me))
}

// ShowMessage handles GET /messages/:id
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	msg, err := s.messageService.Get(c.UserContext(), id, 0)
	if err != nil {
		return err
	}
	if me := currentUserID(c); me != 0 {
		if msg.Liked, err = s.likeService.IsLiked(c.UserContext(), me, id); err != nil {
			return err
		}
	}
	return s.render(c, fiber.StatusOK, "messages/show", fiber.Map{"message": msg})
}

// DeleteMessage handles POST /messages/:id/delete
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	me := currentUserID(c)
	if err := s.messageService.Delete(c.UserContext(), id, me); err != nil {
		if models.IsCode(err, models.CodeForbidden) {
			s.flash(c, flashDanger, "Access unauthorized.")
			return c.Redirect("/")
		}
		return err
	}
	return c.Redirect(profilePath(me))
}

// ToggleLike handles POST /messages/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.likeService.ToggleLike(c.UserContext(), currentUserID(c), id); err != nil {
		return err
	}
	return c.RedirectBack("/")
}
