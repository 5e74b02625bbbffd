package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"warbler/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestTracingMiddleware_TraceIDReachesContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	previous := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = previous
		_ = tp.Shutdown(t.Context())
	})

	orders := map[string][]fiber.Handler{
		"tracing first": {TracingMiddleware(), ContextMiddleware()},
		"context first": {ContextMiddleware(), TracingMiddleware()},
	}
	for name, chain := range orders {
		t.Run(name, func(t *testing.T) {
			app := fiber.New()
			for _, h := range chain {
				app.Use(h)
			}
			app.Get("/", func(c *fiber.Ctx) error {
				tid, _ := c.UserContext().Value(TraceIDKey).(string)
				return c.SendString(tid)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			header := resp.Header.Get("X-Trace-ID")
			assert.Len(t, header, 32)
			assert.Equal(t, header, string(body))
		})
	}
}
