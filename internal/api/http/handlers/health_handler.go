package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

// DependencyCheck probes one backing service for readiness.
type DependencyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	checks      []DependencyCheck
}

// NewHealthHandler takes the backends configured at startup. With no checks
// (memory store, memory limiter) the service is always ready.
func NewHealthHandler(serviceName, version string, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, checks: checks}
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings every dependency in parallel within readinessTimeout and
// answers 503 when any of them fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	var (
		mu    sync.Mutex
		deps  = fiber.Map{}
		ready = true
	)
	var g errgroup.Group
	for _, check := range h.checks {
		check := check
		g.Go(func() error {
			start := time.Now()
			err := check.Ping(ctx)
			status := fiber.Map{"status": "ok", "latency_ms": time.Since(start).Milliseconds()}
			if err != nil {
				status["status"] = "down"
				status["error"] = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			deps[check.Name] = status
			if err != nil {
				ready = false
			}
			return nil
		})
	}
	_ = g.Wait()

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"service":      h.serviceName,
			"dependencies": deps,
		})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": deps,
		},
	})
}
