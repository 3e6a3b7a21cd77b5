package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theleywin/lostnfound-backend/src/apperr"
	"github.com/theleywin/lostnfound-backend/src/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRegister_NormalizesAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	user, err := env.users.Register(ctx, Registration{
		NUID: " 0042 ", Name: " Alice ", Phone: " 555 ", Email: "  Alice@Example.COM ", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "0042", user.NUID)
	assert.Empty(t, user.PasswordHash)

	stored, err := env.repos.Users.FindByID(ctx, user.Id.Hex())
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)

	for _, email := range []string{"alice@example.com", "ALICE@example.com", " alice@EXAMPLE.com"} {
		_, err = env.users.Register(ctx, Registration{
			NUID: "1", Name: "Other", Phone: "1", Email: email, Password: "secret123",
		})
		appErr := requireKind(t, err, apperr.KindConflict)
		assert.Equal(t, "Email already registered.", appErr.Message)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	valid := Registration{NUID: "1", Name: "A", Phone: "1", Email: "a@example.edu", Password: "secret123"}

	tests := []struct {
		name    string
		mutate  func(*Registration)
		message string
	}{
		{"missing nuid", func(r *Registration) { r.NUID = "" }, "Missing required fields."},
		{"missing password", func(r *Registration) { r.Password = "" }, "Missing required fields."},
		{"blank name", func(r *Registration) { r.Name = "  " }, "Missing required fields."},
		{"bad email", func(r *Registration) { r.Email = "not-an-email" }, "Invalid email format."},
		{"short password", func(r *Registration) { r.Password = "abc" }, "Password must be between 6 and 72 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			_, err := env.users.Register(context.Background(), r)
			appErr := requireKind(t, err, apperr.KindValidation)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.register(t, "bob@example.edu")

	session, err := env.users.Login(ctx, " BOB@example.edu", "secret123")
	require.NoError(t, err)
	assert.Equal(t, id, session.User.Id.Hex())
	assert.Empty(t, session.User.PasswordHash)

	identity, err := env.users.tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserID: id, Email: "bob@example.edu"}, identity)

	_, err = env.users.Login(ctx, "bob@example.edu", "wrong-password")
	appErr := requireKind(t, err, apperr.KindAuth)
	assert.Equal(t, "Invalid email or password.", appErr.Message)

	_, err = env.users.Login(ctx, "nobody@example.edu", "secret123")
	requireKind(t, err, apperr.KindAuth)

	_, err = env.users.Login(ctx, "", "secret123")
	requireKind(t, err, apperr.KindValidation)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.register(t, "bob@example.edu")

	user, err := env.users.Profile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.edu", user.Email)
	assert.Empty(t, user.PasswordHash)

	_, err = env.users.Profile(ctx, "")
	appErr := requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, "User ID is required.", appErr.Message)

	_, err = env.users.Profile(ctx, "xyz")
	appErr = requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, "Invalid user ID.", appErr.Message)

	_, err = env.users.Profile(ctx, primitive.NewObjectID().Hex())
	requireKind(t, err, apperr.KindNotFound)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bob := env.register(t, "bob@example.edu")
	env.register(t, "carol@example.edu")

	err := env.users.UpdateProfile(ctx, bob, ProfileChanges{})
	appErr := requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, "No fields to update.", appErr.Message)

	err = env.users.UpdateProfile(ctx, bob, ProfileChanges{Email: ptr("Carol@Example.edu")})
	requireKind(t, err, apperr.KindConflict)

	err = env.users.UpdateProfile(ctx, bob, ProfileChanges{Email: ptr("broken")})
	requireKind(t, err, apperr.KindValidation)

	require.NoError(t, env.users.UpdateProfile(ctx, bob, ProfileChanges{
		Name:  ptr(" Robert "),
		Email: ptr(" BOB@example.edu "),
	}))

	user, err := env.users.Profile(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "Robert", user.Name)
	assert.Equal(t, "bob@example.edu", user.Email)
	assert.NotNil(t, user.UpdatedAt)

	err = env.users.UpdateProfile(ctx, primitive.NewObjectID().Hex(), ProfileChanges{Name: ptr("x")})
	requireKind(t, err, apperr.KindNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bob := env.register(t, "bob@example.edu")

	err := env.users.ChangePassword(ctx, bob, "", "newsecret")
	requireKind(t, err, apperr.KindValidation)

	err = env.users.ChangePassword(ctx, bob, "wrong-one", "newsecret")
	appErr := requireKind(t, err, apperr.KindAuth)
	assert.Equal(t, "Current password is incorrect.", appErr.Message)

	err = env.users.ChangePassword(ctx, bob, "secret123", "123")
	requireKind(t, err, apperr.KindValidation)

	require.NoError(t, env.users.ChangePassword(ctx, bob, "secret123", "newsecret"))

	_, err = env.users.Login(ctx, "bob@example.edu", "secret123")
	requireKind(t, err, apperr.KindAuth)
	_, err = env.users.Login(ctx, "bob@example.edu", "newsecret")
	require.NoError(t, err)

	err = env.users.ChangePassword(ctx, primitive.NewObjectID().Hex(), "a-password", "newsecret")
	requireKind(t, err, apperr.KindNotFound)
}
