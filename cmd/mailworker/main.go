package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/panchayat-portal/internal/config"
	"github.com/spec-kit/panchayat-portal/internal/mailer"
	"github.com/spec-kit/panchayat-portal/internal/observability"
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
	logger = logger.With(zap.String("component", "mailworker"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := mailer.NewKafkaReader(cfg.Kafka)
	defer reader.Close() //nolint:errcheck

	consumer := worker.NewMailConsumer(reader, mailer.NewSMTPSender(cfg.SMTP, cfg.Mail), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("consuming", zap.String("topic", cfg.Kafka.MailTopic), zap.Strings("brokers", cfg.Kafka.Brokers))
		return consumer.Run(gctx)
	})
	if err := g.Wait(); err != nil {
		logger.Fatal("mail worker stopped", zap.Error(err))
	}
	logger.Info("mail worker stopped")
}
