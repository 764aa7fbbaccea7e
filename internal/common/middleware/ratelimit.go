package middleware

import (
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// RateLimit ограничивает маршрут общим token bucket; сверх лимита отвечает 429.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize)

	return func(c fiber.Ctx) error {
		if !limiter.Allow() {
			log.Printf("[RATE] %s %s rejected", c.Method(), c.Path())
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
		}
		return c.Next()
	}
}
