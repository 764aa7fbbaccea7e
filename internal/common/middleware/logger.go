package middleware

import (
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// ============================================================
// Logger Middleware
// ============================================================

const accessFormat = "[${time}] [HTTP] ${status} ${method} ${path} ${latency} | ${ip} | ${bytesSent}B ${error}\n"

// Logger пишет журнал запросов в stdout. Пробы /health не логируются.
func Logger() fiber.Handler {
	return accessLogger(os.Stdout)
}

func accessLogger(out io.Writer) fiber.Handler {
	return logger.New(logger.Config{
		Next:       isProbe,
		Stream:     out,
		Format:     accessFormat,
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	})
}

func isProbe(c fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/health/")
}
