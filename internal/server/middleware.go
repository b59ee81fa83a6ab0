package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailcode/internal/logger"
)

const (
	loggerKey = "logger"

	maxRequestIDLen = 64
)

// requestLogger tags each request with an id and logs its completion.
// Errors are rendered here so the logged status is the one sent.
func requestLogger(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, id)

		l := logger.WithRequest(base, id)
		c.Locals(loggerKey, l)

		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		l.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

// validRequestID accepts short client ids made of URL-safe characters
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// requestLog returns the request-scoped logger, or fallback outside a request
func requestLog(c *fiber.Ctx, fallback *zap.Logger) *zap.Logger {
	if l, ok := c.Locals(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}
