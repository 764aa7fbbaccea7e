package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit(t *testing.T) {
	app := fiber.New()
	app.Post("/sessions", RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2}), func(c fiber.Ctx) error {
		return c.SendStatus(http.StatusCreated)
	})

	statuses := make([]int, 0, 3)
	for range 3 {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sessions", nil))
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, statuses)
}
