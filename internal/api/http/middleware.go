package http

import (
	"context"
	"errors"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/apiclient"
	"github.com/spec-kit/staff-console/internal/guard"
	"github.com/spec-kit/staff-console/internal/observability"
	apperrors "github.com/spec-kit/staff-console/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling, logging and
// navigation scheduling.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(navigationMiddleware(logger))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// navigationMiddleware gives each request a navigation slot. When a backend call made
// while serving the request scheduled a navigation, that redirect replaces whatever the
// handler produced, including its error.
func navigationMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, slot := apiclient.WithNavigationSlot(c.UserContext())
		c.SetUserContext(ctx)

		err := c.Next()

		to, ok := slot.Pending()
		if !ok {
			return err
		}
		if err != nil {
			logger.Debug("handler error superseded by navigation", zap.Error(err), zap.String("to", to.Path))
		}
		c.Response().ResetBody()
		return redirect(c, to)
	}
}

// redirect sends the user to d.Path, carrying d.Reason as a one-shot message.
func redirect(c *fiber.Ctx, d guard.Decision) error {
	return c.Redirect(redirectLocation(d), fiber.StatusSeeOther)
}

func redirectLocation(d guard.Decision) string {
	if d.Reason == "" {
		return d.Path
	}
	return d.Path + "?" + url.Values{"message": {d.Reason}}.Encode()
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "HTTP_ERROR"
		switch fe.Code {
		case fiber.StatusNotFound:
			code = "NOT_FOUND"
		case fiber.StatusBadRequest:
			code = "BAD_REQUEST"
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		}
		return apperrors.NewDomainError(code, apperrors.KindValidation, fe.Message, fe.Code, nil)
	}
	return apperrors.ToDomainError(err)
}
