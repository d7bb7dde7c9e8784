package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the Prometheus middleware that records request counts,
// latency histograms, and in-flight gauges per route. The collectors live in
// the process-global registry, so every Server in a process shares the one
// instance; a second registration would panic.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware adapts the Prometheus collector into a Fiber handler.
// A nil collector disables collection (used by tests).
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	if prom == nil {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	return prom.Middleware
}
