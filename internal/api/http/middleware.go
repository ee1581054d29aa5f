package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/observability"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

// RegisterMiddlewares attaches the global chain. Order matters: the request
// logger wraps the error responder so it sees the final status code.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New())
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorResponder(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorResponder turns panics and DomainErrors into the JSON error envelope
// {"error": {"code", "message", "details"}}.
func errorResponder(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			err = writeError(c, logger, metrics, toDomainError(err))
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, de *apperrors.DomainError) error {
	metrics.RecordError(c.Path(), c.Method(), de.Code)
	if de.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.String("code", de.Code),
			zap.Error(de),
		)
	}
	body := fiber.Map{"code": de.Code, "message": de.Message}
	if len(de.Details) > 0 {
		body["details"] = de.Details
	}
	return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": body})
}

// toDomainError keeps fiber's own status codes (unknown route, bad body) instead
// of reporting them as internal errors.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return apperrors.ToDomainError(err)
	}
	code := apperrors.CodeValidation
	switch {
	case fe.Code == fiber.StatusNotFound:
		code = apperrors.CodeNotFound
	case fe.Code == fiber.StatusUnauthorized:
		code = apperrors.CodeUnauthorized
	case fe.Code == fiber.StatusForbidden:
		code = apperrors.CodeForbidden
	case fe.Code == fiber.StatusTooManyRequests:
		code = apperrors.CodeRateLimited
	case fe.Code >= fiber.StatusInternalServerError:
		code = apperrors.CodeInternal
	}
	return apperrors.NewDomainError(code, fe.Message, fe.Code, nil)
}
