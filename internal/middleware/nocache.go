package middleware

import "github.com/gofiber/fiber/v2"

// NoStore marks every response as uncacheable so browsers and proxies never
// replay a page rendered for a different session.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, max-age=0")
		c.Set(fiber.HeaderPragma, "no-cache")
		c.Set(fiber.HeaderExpires, "0")
		return err
	}
}
