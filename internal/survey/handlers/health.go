package handlers

import (
	"context"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// Pinger проверяется в readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Health struct {
	db      Pinger
	started atomic.Bool
}

// NewHealth принимает nil, если журнал выгрузок отключен.
func NewHealth(db Pinger) *Health {
	return &Health{db: db}
}

func (h *Health) Register(r fiber.Router) {
	r.Get("/health/live", h.LivenessProbe)
	r.Get("/health/ready", h.ReadinessProbe)
	r.Get("/health/startup", h.StartupProbe)
}

// MarkStarted вызывается после инициализации журнала и хранилища.
func (h *Health) MarkStarted() {
	h.started.Store(true)
}

func (h *Health) LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// ReadinessProbe проверяет доступность журнала выгрузок
func (h *Health) ReadinessProbe(c fiber.Ctx) error {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			log.Printf("[HEALTH] journal ping failed: %v", err)
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(fiber.Map{
		"status": "ready",
	})
}

func (h *Health) StartupProbe(c fiber.Ctx) error {
	if !h.started.Load() {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "starting",
		})
	}
	return c.JSON(fiber.Map{
		"status": "started",
	})
}
