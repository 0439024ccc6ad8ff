package middleware

import (
	"fmt"
	"strings"

	"blog/internal/models"
	"blog/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	localUser  = "user"
	localToken = "token"

	// tokenKeyword is the scheme expected in the Authorization header.
	tokenKeyword = "Token"
)

var (
	ErrTokenHeaderEmpty  = fmt.Errorf("%w: invalid token header, no credentials provided", services.ErrUnauthorized)
	ErrTokenHeaderSpaces = fmt.Errorf("%w: invalid token header, token string should not contain spaces", services.ErrUnauthorized)
)

// Authorize enforces the policy of op. Operations that need a caller get
// the bearer token resolved and the user stored in the request locals;
// open operations pass through untouched.
func Authorize(authService *services.AuthService, op services.Operation) fiber.Handler {
	policy := services.PolicyFor(op)
	return func(c *fiber.Ctx) error {
		if !policy.RequiresAuth {
			return c.Next()
		}

		key, err := tokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		user, token, err := authService.Authenticate(c.UserContext(), key)
		if err != nil {
			return err
		}

		c.Locals(localUser, user)
		c.Locals(localToken, token)
		return c.Next()
	}
}

// tokenFromHeader extracts the key from "Token <key>". Headers using
// another scheme are treated as carrying no credentials.
func tokenFromHeader(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) == 0 || !strings.EqualFold(parts[0], tokenKeyword) {
		return "", services.ErrNoCredentials
	}
	switch len(parts) {
	case 1:
		return "", ErrTokenHeaderEmpty
	case 2:
		return parts[1], nil
	default:
		return "", ErrTokenHeaderSpaces
	}
}

// CurrentUser returns the authenticated caller, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

// CurrentToken returns the token the caller authenticated with, or nil.
func CurrentToken(c *fiber.Ctx) *models.Token {
	token, _ := c.Locals(localToken).(*models.Token)
	return token
}
