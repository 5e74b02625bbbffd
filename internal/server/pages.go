package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	flashCookie   = "warbler_flash"
	localsFlashes = "flashes"
)

// Flash categories.
const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashDanger  = "danger"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Page is the document every page handler renders.
type Page struct {
	View        string            `json:"view"`
	Flashes     []Flash           `json:"flashes"`
	CurrentUser *models.User      `json:"current_user"`
	Errors      map[string]string `json:"errors,omitempty"`
	Data        any               `json:"data,omitempty"`
}

func (s *Server) render(c *fiber.Ctx, status int, view string, data any) error {
	return c.Status(status).JSON(Page{
		View:        view,
		Flashes:     s.takeFlashes(c),
		CurrentUser: currentUser(c),
		Data:        data,
	})
}

// renderForm re-renders a form view for a rejected submission. Internal
// errors are left to the ErrorHandler.
func (s *Server) renderForm(c *fiber.Ctx, view string, err error, data any) error {
	appErr, ok := models.AsAppError(err)
	if !ok || appErr.Code == models.CodeInternal {
		return err
	}
	if len(appErr.Fields) == 0 || appErr.Code != models.CodeValidation {
		s.flash(c, flashDanger, appErr.Message)
	}
	return c.Status(models.StatusFor(err)).JSON(Page{
		View:        view,
		Flashes:     s.takeFlashes(c),
		CurrentUser: currentUser(c),
		Errors:      appErr.Fields,
		Data:        data,
	})
}

// flash queues a notice for the next page render, which may be this request's.
func (s *Server) flash(c *fiber.Ctx, category, message string) {
	flashes := append(pendingFlashes(c), Flash{Category: category, Message: message})
	c.Locals(localsFlashes, flashes)
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    encodeFlashes(flashes),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   s.config.IsProduction(),
	})
}

// takeFlashes returns the pending notices and clears them.
func (s *Server) takeFlashes(c *fiber.Ctx) []Flash {
	flashes := pendingFlashes(c)
	c.Locals(localsFlashes, []Flash{})
	if len(flashes) > 0 || c.Cookies(flashCookie) != "" {
		s.expireCookie(c, flashCookie)
	}
	return flashes
}

func pendingFlashes(c *fiber.Ctx) []Flash {
	if flashes, ok := c.Locals(localsFlashes).([]Flash); ok {
		return flashes
	}
	flashes := decodeFlashes(c.Cookies(flashCookie))
	c.Locals(localsFlashes, flashes)
	return flashes
}

func encodeFlashes(flashes []Flash) string {
	raw, err := json.Marshal(flashes)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeFlashes ignores malformed cookies.
func decodeFlashes(value string) []Flash {
	flashes := []Flash{}
	if value == "" {
		return flashes
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return flashes
	}
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return []Flash{}
	}
	return flashes
}

func (s *Server) expireCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   s.config.IsProduction(),
	})
}

// parseID extracts a positive numeric route parameter. Anything else is a missing page.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// ErrorHandler renders errors that reach Fiber as error pages.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
	} else if appErr, ok := models.AsAppError(err); ok && appErr.Code != models.CodeInternal {
		message = appErr.Message
	}

	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		message = "Internal server error"
	}
	if status == fiber.StatusNotFound {
		message = "Page not found"
	}

	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, max-age=0")
	return c.Status(status).JSON(Page{
		View:        fmt.Sprintf("errors/%d", status),
		Flashes:     s.takeFlashes(c),
		CurrentUser: currentUser(c),
		Data:        fiber.Map{"error": message},
	})
}
