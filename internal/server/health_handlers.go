package server

import (
	"context"
	"time"

	"warbler/internal/database"

	"github.com/gofiber/fiber/v2"
)

// Homepage handles GET /
func (s *Server) Homepage(c *fiber.Ctx) error {
	me := currentUserID(c)
	if me == 0 {
		return s.render(c, fiber.StatusOK, "home-anon", nil)
	}
	messages, err := s.feedService.HomeFeed(c.UserContext(), me, 0)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "home", fiber.Map{"messages": messages})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional; a
// configured but unreachable Redis makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
