package middleware

import (
	"comments/pkg/events"
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	TraceIDHeader       = "X-Trace-Id"
	CorrelationIDHeader = "X-Correlation-Id"
)

// NewTraceHeadersMiddleware puts the caller's trace and correlation ids, or
// freshly generated ones, into the user context and echoes them back.
func NewTraceHeadersMiddleware(service string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := strings.TrimSpace(c.Get(TraceIDHeader))
		if traceID == "" {
			traceID = events.NewID()
		}

		correlationID := strings.TrimSpace(c.Get(CorrelationIDHeader))
		if correlationID == "" {
			correlationID = events.NewID()
		}

		userCtx := c.UserContext()
		if userCtx == nil {
			userCtx = context.Background()
		}

		userCtx = events.WithHeaders(userCtx, events.Headers{
			TraceID:       traceID,
			CorrelationID: correlationID,
			Service:       service,
		})
		c.SetUserContext(userCtx)

		c.Set(TraceIDHeader, traceID)
		c.Set(CorrelationIDHeader, correlationID)

		return c.Next()
	}
}
