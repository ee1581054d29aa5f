package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/events"
	"github.com/spec-kit/panchayat-portal/internal/service"
)

// StartNotificationWorker hooks citizen notifications onto the in-process
// dispatcher. Delivery itself goes through whichever mailer.Sender the
// service was built with, so with the kafka transport the actual send happens
// in cmd/mailworker.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) []events.EventType {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifications == nil {
		logger.Warn("notifications disabled")
		return nil
	}
	subscribed := notifications.RegisterHandlers()
	names := make([]string, 0, len(subscribed))
	for _, t := range subscribed {
		names = append(names, string(t))
	}
	logger.Info("notification worker started", zap.Strings("events", names))
	return subscribed
}
