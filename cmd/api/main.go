package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/panchayat-portal/internal/api/http"
	"github.com/spec-kit/panchayat-portal/internal/api/http/handlers"
	"github.com/spec-kit/panchayat-portal/internal/auth"
	"github.com/spec-kit/panchayat-portal/internal/config"
	"github.com/spec-kit/panchayat-portal/internal/events"
	"github.com/spec-kit/panchayat-portal/internal/mailer"
	"github.com/spec-kit/panchayat-portal/internal/observability"
	"github.com/spec-kit/panchayat-portal/internal/persistence"
	"github.com/spec-kit/panchayat-portal/internal/ratelimit"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	"github.com/spec-kit/panchayat-portal/internal/repository/memory"
	"github.com/spec-kit/panchayat-portal/internal/service"
	"github.com/spec-kit/panchayat-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	checks := []handlers.DependencyCheck{}
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle())
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Ping: pg.Ping})
	} else {
		store = memory.NewStore()
	}

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case config.RateLimitRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		limiter = ratelimit.NewRedisLimiter(redis.Client)
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Ping: redis.Ping})
	default:
		limiter = ratelimit.NewMemoryLimiter(clock)
	}
	guard := ratelimit.NewGuard(limiter, logger, metrics)

	sender, closeSender := newSender(cfg, logger)
	defer closeSender()
	renderer := mailer.NewRenderer(cfg.App.Name, cfg.Mail.SubjectPrefix)

	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.VerificationTicketTTLMinutes, clock)

	otpService := service.NewOTPService(service.OTPDependencies{
		Store:      store,
		Sender:     sender,
		Renderer:   renderer,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
		Metrics:    metrics,
		Settings: service.OTPSettings{
			TTL:         cfg.OTP.TTL(),
			MaxAttempts: cfg.OTP.MaxAttempts,
			ResendGap:   cfg.OTP.ResendGap(),
		},
	})
	authService := service.NewAuthService(service.AuthDependencies{
		Store:      store,
		OTPs:       otpService,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
		Metrics:    metrics,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	applicationService := service.NewApplicationService(service.ApplicationDependencies{
		Store: store, Dispatcher: dispatcher, Clock: clock, Logger: logger,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		Store: store, Dispatcher: dispatcher, Clock: clock, Logger: logger,
	})
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, store.Users(), renderer, sender, logger), logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Auth:           handlers.NewAuthHandler(authService, otpService, guard),
		Applications:   handlers.NewApplicationsHandler(applicationService),
		Complaints:     handlers.NewComplaintsHandler(complaintService),
		Admin:          handlers.NewAdminHandler(authService, applicationService, complaintService, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users()),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
	}
}

func newSender(cfg *config.Config, logger *zap.Logger) (mailer.Sender, func()) {
	switch cfg.Mail.Transport {
	case config.MailTransportSMTP:
		return mailer.NewSMTPSender(cfg.SMTP, cfg.Mail), func() {}
	case config.MailTransportKafka:
		kafkaSender := mailer.NewKafkaSender(cfg.Kafka)
		return kafkaSender, func() {
			if err := kafkaSender.Close(); err != nil {
				logger.Warn("close kafka writer", zap.Error(err))
			}
		}
	default:
		return mailer.NewLogSender(logger, cfg.App.Env == "development"), func() {}
	}
}
