package middleware

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Context keys under which per-request identifiers travel from Fiber locals
// into context.Context, where contextHandler picks them up.
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// Logger is the process-wide structured logger. Records logged through the
// *Context methods carry the request, user and trace IDs automatically.
var Logger *slog.Logger

func init() {
	Logger = slog.New(&contextHandler{inner: newRootHandler()})
}

// newRootHandler emits JSON in production and plain text everywhere else.
func newRootHandler() slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if os.Getenv("APP_ENV") == "production" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

// contextHandler copies the request-scoped IDs out of the context onto every
// record, so service and repository layers never thread them by hand.
type contextHandler struct {
	inner slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(requestAttrs(ctx)...)
	return h.inner.Handle(ctx, r)
}

// requestAttrs collects whichever request-scoped IDs the context carries.
func requestAttrs(ctx context.Context) []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		attrs = append(attrs, slog.String("request_id", reqID))
	}
	if userID, ok := ctx.Value(UserIDKey).(uint); ok {
		attrs = append(attrs, slog.Uint64("user_id", uint64(userID)))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	return attrs
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name)}
}

// ContextMiddleware lifts the requestid, userID and traceID locals into the
// request context. The auth middleware runs later in the chain, so userID is
// only present on authenticated routes; anonymous reads log without it.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if reqID, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, RequestIDKey, reqID)
		}
		if userID, ok := c.Locals("userID").(uint); ok {
			ctx = context.WithValue(ctx, UserIDKey, userID)
		}
		if traceID, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, TraceIDKey, traceID)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request after the handler chain runs.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", len(c.Response().Body())),
			slog.String("user_agent", c.Get("User-Agent")),
		}
		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			Logger.InfoContext(c.UserContext(), "request processed", fields...)
		}
		return err
	}
}
