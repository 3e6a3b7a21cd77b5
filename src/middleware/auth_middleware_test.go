package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theleywin/lostnfound-backend/src/auth"
	"github.com/theleywin/lostnfound-backend/src/lib"
	"github.com/theleywin/lostnfound-backend/src/models"
	"github.com/theleywin/lostnfound-backend/src/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type brokenUsers struct {
	store.UserRepository
}

func (brokenUsers) FindByID(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func setup(t *testing.T, users store.UserRepository) (*fiber.App, *auth.JWTIssuer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewJWTIssuer("test-secret", time.Hour, "lostnfound")
	guard := NewGuard(tokens, users, logger)

	app := fiber.New(fiber.Config{ErrorHandler: lib.ErrorHandler(logger, 5)})
	whoami := func(c *fiber.Ctx) error {
		user, _ := CurrentUser(c)
		return c.JSON(fiber.Map{"userId": CurrentUserID(c), "email": user.Email, "hash": user.PasswordHash})
	}
	app.Get("/protected", guard.ProtectRoute(), whoami)
	app.Get("/optional", guard.OptionalAuth(), whoami)
	return app, tokens
}

func call(t *testing.T, app *fiber.App, path, authorization string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestProtectRoute(t *testing.T) {
	mem := store.NewMemory().Repositories()
	user := models.User{Email: "bob@example.edu", PasswordHash: "hash"}
	require.NoError(t, mem.Users.Insert(context.Background(), &user))

	app, tokens := setup(t, mem.Users)

	valid, err := tokens.Issue(auth.Identity{UserID: user.Id.Hex(), Email: user.Email})
	require.NoError(t, err)
	ghost, err := tokens.Issue(auth.Identity{UserID: primitive.NewObjectID().Hex()})
	require.NoError(t, err)
	badID, err := tokens.Issue(auth.Identity{UserID: "not-hex"})
	require.NoError(t, err)
	foreign, err := auth.NewJWTIssuer("other-secret", time.Hour, "lostnfound").Issue(auth.Identity{UserID: user.Id.Hex()})
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		status        int
		message       string
	}{
		{"no header", "", 401, "No authorization token provided."},
		{"wrong scheme", "Basic abc", 401, "Invalid authorization header format. Use 'Bearer <token>'."},
		{"missing token", "Bearer", 401, "Invalid authorization header format. Use 'Bearer <token>'."},
		{"extra parts", "Bearer a b", 401, "Invalid authorization header format. Use 'Bearer <token>'."},
		{"garbage token", "Bearer not.a.token", 401, "Invalid or expired token."},
		{"wrong key", "Bearer " + foreign, 401, "Invalid or expired token."},
		{"bad user id", "Bearer " + badID, 401, "Invalid user ID in token."},
		{"deleted user", "Bearer " + ghost, 401, "User not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, "/protected", tt.authorization)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, body["message"])
		})
	}

	status, body := call(t, app, "/protected", "Bearer "+valid)
	assert.Equal(t, 200, status)
	assert.Equal(t, user.Id.Hex(), body["userId"])
	assert.Equal(t, "bob@example.edu", body["email"])
	assert.Empty(t, body["hash"])
}

func TestOptionalAuth(t *testing.T) {
	mem := store.NewMemory().Repositories()
	user := models.User{Email: "bob@example.edu"}
	require.NoError(t, mem.Users.Insert(context.Background(), &user))

	app, tokens := setup(t, mem.Users)
	valid, err := tokens.Issue(auth.Identity{UserID: user.Id.Hex()})
	require.NoError(t, err)

	status, body := call(t, app, "/optional", "")
	assert.Equal(t, 200, status)
	assert.Empty(t, body["userId"])

	status, body = call(t, app, "/optional", "Bearer broken")
	assert.Equal(t, 200, status)
	assert.Empty(t, body["userId"])

	status, body = call(t, app, "/optional", "Bearer "+valid)
	assert.Equal(t, 200, status)
	assert.Equal(t, user.Id.Hex(), body["userId"])
}

func TestGuard_StoreFailure(t *testing.T) {
	app, tokens := setup(t, brokenUsers{})
	valid, err := tokens.Issue(auth.Identity{UserID: primitive.NewObjectID().Hex()})
	require.NoError(t, err)

	status, body := call(t, app, "/protected", "Bearer "+valid)
	assert.Equal(t, 500, status)
	assert.Equal(t, "Authentication failed.", body["message"])

	status, body = call(t, app, "/optional", "Bearer "+valid)
	assert.Equal(t, 200, status)
	assert.Empty(t, body["userId"])
}
