package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/lostnfound-backend/src/apperr"
	"github.com/theleywin/lostnfound-backend/src/auth"
	"github.com/theleywin/lostnfound-backend/src/lib"
	"github.com/theleywin/lostnfound-backend/src/models"
	"github.com/theleywin/lostnfound-backend/src/store"
)

const (
	userKey   = "user"
	userIDKey = "userId"
)

// Guard resolves bearer tokens to users.
type Guard struct {
	tokens auth.TokenIssuer
	users  store.UserRepository
	logger *slog.Logger
}

// NewGuard returns a guard verifying tokens and loading users.
func NewGuard(tokens auth.TokenIssuer, users store.UserRepository, logger *slog.Logger) *Guard {
	return &Guard{tokens: tokens, users: users, logger: logger}
}

// ProtectRoute rejects the request with 401 unless it carries a valid token
// for an existing user. The user, without its password hash, is attached to
// the request as "user" and its id as "userId".
func (g *Guard) ProtectRoute() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := g.authenticate(c)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				g.logger.Error("authentication failed", "path", c.Path(), "error", err)
				return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Authentication failed."))
			}
			return err
		}
		attach(c, user)
		return c.Next()
	}
}

// OptionalAuth attaches the user when the request carries a valid token and
// lets every other request through anonymously.
func (g *Guard) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, err := g.authenticate(c); err == nil {
			attach(c, user)
		} else if apperr.KindOf(err) == apperr.KindInternal {
			g.logger.Warn("optional authentication failed", "path", c.Path(), "error", err)
		}
		return c.Next()
	}
}

func (g *Guard) authenticate(c *fiber.Ctx) (*models.User, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return nil, apperr.Auth("No authorization token provided.")
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, apperr.Auth("Invalid authorization header format. Use 'Bearer <token>'.")
	}

	identity, err := g.tokens.Parse(parts[1])
	if err != nil {
		return nil, apperr.Auth("Invalid or expired token.")
	}

	user, err := g.users.FindByID(c.UserContext(), identity.UserID)
	switch {
	case errors.Is(err, store.ErrInvalidID):
		return nil, apperr.Auth("Invalid user ID in token.")
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.Auth("User not found.")
	case err != nil:
		return nil, apperr.Internal("Authentication failed.", err)
	}
	return user, nil
}

func attach(c *fiber.Ctx, user *models.User) {
	c.Locals(userKey, user.Sanitized())
	c.Locals(userIDKey, user.Id.Hex())
}

// CurrentUserID returns the authenticated user's id, or "" for anonymous requests.
func CurrentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *fiber.Ctx) (models.User, bool) {
	user, ok := c.Locals(userKey).(models.User)
	return user, ok
}
