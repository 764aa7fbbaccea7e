package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLoggerSkipsProbes(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(accessLogger(&buf))
	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	app.Get("/api/v1/schema", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	for _, path := range []string{"/health/live", "/api/v1/schema"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	out := buf.String()
	assert.Contains(t, out, "[HTTP] 200 GET /api/v1/schema")
	assert.NotContains(t, out, "/health/live")
}
