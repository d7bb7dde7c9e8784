package middleware

import (
	"strconv"

	"blogicum/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware opens a server span per request, honoring any W3C trace
// context the client sent. The trace ID lands in the traceID local and is
// echoed back in the X-Trace-ID header so API consumers can quote it when
// reporting a failure.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		carrier := propagation.HeaderCarrier(c.GetReqHeaders())
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		ctx, span := observability.Tracer.Start(ctx,
			c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
				attribute.String("http.url", c.OriginalURL()),
				attribute.String("http.ip", c.IP()),
				attribute.String("http.user_agent", c.Get("User-Agent")),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Locals("spanID", span.SpanContext().SpanID().String())
		c.Set("X-Trace-ID", traceID)

		if rid, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", rid))
		}

		c.SetUserContext(ctx)
		err := c.Next()
		finishSpan(span, c, err)
		return err
	}
}

// finishSpan records the response status, the handler error if any, and the
// authenticated user. Auth has run by now on protected routes.
func finishSpan(span trace.Span, c *fiber.Ctx, err error) {
	span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
	}
	if uid, ok := c.Locals("userID").(uint); ok {
		span.SetAttributes(attribute.String("user.id", strconv.FormatUint(uint64(uid), 10)))
	}
}
