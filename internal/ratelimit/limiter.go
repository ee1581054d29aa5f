// Package ratelimit implements fixed-window request counters. A window opens
// on the first counted call for a key and lasts exactly the configured
// duration; later calls inside the window do not extend it.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/observability"
)

// Limiter counts calls per key.
type Limiter interface {
	// CheckAndIncrement reports whether another call is allowed for key and,
	// if so, counts it. A rejected call leaves the counter unchanged.
	CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Rule names a guarded action and its budget.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	LoginRule     = Rule{Name: "login", Limit: 5, Window: 5 * time.Minute}
	OTPVerifyRule = Rule{Name: "otp_verify", Limit: 10, Window: 10 * time.Minute}
	OTPResendRule = Rule{Name: "otp_resend", Limit: 3, Window: 10 * time.Minute}
)

// Key builds purpose:subject:clientIP.
func (r Rule) Key(subject, clientIP string) string {
	return fmt.Sprintf("%s:%s:%s", r.Name, subject, clientIP)
}

// Guard applies rules through a Limiter. Backend failures are logged and the
// call is allowed.
type Guard struct {
	limiter Limiter
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewGuard(limiter Limiter, logger *zap.Logger, metrics *observability.Metrics) *Guard {
	return &Guard{limiter: limiter, logger: logger, metrics: metrics}
}

// Allow reports whether the call identified by subject and clientIP fits in rule.
func (g *Guard) Allow(ctx context.Context, rule Rule, subject, clientIP string) bool {
	key := rule.Key(subject, clientIP)
	ok, err := g.limiter.CheckAndIncrement(ctx, key, rule.Limit, rule.Window)
	if err != nil {
		g.logger.Error("rate limiter unavailable; allowing request", zap.String("rule", rule.Name), zap.Error(err))
		return true
	}
	if !ok {
		g.metrics.RecordSecurity("RATE_LIMITED")
		observability.SecurityWarning(g.logger, "RATE_LIMITED",
			zap.String("rule", rule.Name),
			zap.String("subject", subject),
			zap.String("ip", clientIP),
		)
	}
	return ok
}
