package serverutils

import (
	"errors"

	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusOf maps an error kind to an HTTP status.
func StatusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindProvider:
		return fiber.StatusBadGateway
	case apperror.KindTimeout:
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}

// PublicMessage is what the caller sees. In production only the failing
// stage is named; otherwise the full cause chain is returned.
func PublicMessage(err error, isProd bool) string {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		if isProd || appErr.Kind == apperror.KindValidation {
			return appErr.PublicMessage()
		}
		return appErr.Error()
	}
	if isProd {
		return "internal server error"
	}
	return err.Error()
}

// ErrorHandlerMiddleware turns errors returned by handlers into the error envelope.
func ErrorHandlerMiddleware(isProd bool, log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return writeError(ctx, err, isProd, log)
	}
}

// ErrorHandler is the fiber.Config hook for errors raised outside handlers,
// such as unmatched routes and oversized bodies.
func ErrorHandler(isProd bool, log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		return writeError(ctx, err, isProd, log)
	}
}

func writeError(ctx *fiber.Ctx, err error, isProd bool, log logger.ILogger) error {
	code := StatusOf(err)
	details := map[string]interface{}{
		"method": ctx.Method(),
		"path":   ctx.Path(),
		"status": code,
		"error":  err.Error(),
	}
	if code >= fiber.StatusInternalServerError {
		log.Error("HTTP", "request failed", details)
	} else {
		log.Warn("HTTP", "request rejected", details)
	}
	return ctx.Status(code).JSON(ErrorResponse(code, PublicMessage(err, isProd)))
}
