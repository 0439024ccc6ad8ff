package handlers

import (
	"errors"
	"fmt"

	"blog/internal/middleware"
	"blog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var unauthorizedDetails = []struct {
	err    error
	detail string
}{
	{middleware.ErrTokenHeaderEmpty, "Invalid token header. No credentials provided."},
	{middleware.ErrTokenHeaderSpaces, "Invalid token header. Token string should not contain spaces."},
	{services.ErrInvalidToken, "Invalid token."},
	{services.ErrTokenExpired, "Token has expired."},
	{services.ErrUserInactive, "User inactive or deleted."},
}

// ErrorHandler renders every error returned by a handler or middleware as
// a JSON response. It is installed as the Fiber app's error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	var ferr *fiber.Error

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(verr.Fields)

	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid username or password",
		})

	case errors.Is(err, services.ErrUnauthorized):
		c.Set(fiber.HeaderWWWAuthenticate, "Token")
		return detail(c, fiber.StatusUnauthorized, unauthorizedDetail(err))

	case errors.Is(err, services.ErrNotFound):
		return detail(c, fiber.StatusNotFound, "Not found.")

	case errors.Is(err, services.ErrConflict):
		logrus.WithError(err).Warn("store rejected a duplicate value")
		return detail(c, fiber.StatusBadRequest, "A record with one of these unique values already exists.")

	case errors.As(err, &ferr):
		switch ferr.Code {
		case fiber.StatusMethodNotAllowed:
			return detail(c, ferr.Code, fmt.Sprintf("Method %q not allowed.", c.Method()))
		case fiber.StatusNotFound:
			return detail(c, ferr.Code, "Not found.")
		default:
			return detail(c, ferr.Code, ferr.Message)
		}

	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("unhandled error")
		return detail(c, fiber.StatusInternalServerError, "A server error occurred.")
	}
}

func unauthorizedDetail(err error) string {
	for _, d := range unauthorizedDetails {
		if errors.Is(err, d.err) {
			return d.detail
		}
	}
	return "Authentication credentials were not provided."
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"detail": msg})
}

// parseBody decodes the request body into out, reporting malformed input
// as a 400.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Malformed request body: "+err.Error())
	}
	return nil
}

// paramID reads the numeric id route parameter. Ids that cannot exist are
// reported as not found.
func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, services.ErrNotFound
	}
	return uint(id), nil
}
