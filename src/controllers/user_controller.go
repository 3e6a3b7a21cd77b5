package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/lostnfound-backend/src/apperr"
	"github.com/theleywin/lostnfound-backend/src/lib"
	"github.com/theleywin/lostnfound-backend/src/middleware"
	"github.com/theleywin/lostnfound-backend/src/services"
)

// UserController serves the /api/users routes.
type UserController struct {
	users *services.UserService
}

// NewUserController returns a controller backed by users.
func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// Register creates an account
func (uc *UserController) Register(c *fiber.Ctx) error {
	var req services.Registration
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := uc.users.Register(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(lib.MessageWith("Account created successfully.", fiber.Map{
		"userId": user.Id,
	}))
}

// Login checks the credentials and returns a bearer token with the user
func (uc *UserController) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := uc.users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(lib.MessageWith("Login successful.", fiber.Map{
		"token": session.Token,
		"user":  session.User,
	}))
}

// GetProfile returns the user in ?userId=, defaulting to the caller when authenticated
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID, err := ownAccount(c, c.Query("userId"))
	if err != nil {
		return err
	}

	user, err := uc.users.Profile(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// UpdateProfile changes the profile fields present in the body
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"userId"`
		services.ProfileChanges
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	userID, err := ownAccount(c, req.UserID)
	if err != nil {
		return err
	}

	if err := uc.users.UpdateProfile(c.UserContext(), userID, req.ProfileChanges); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Profile updated successfully."))
}

// ChangePassword replaces the password after checking the current one
func (uc *UserController) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		UserID          string `json:"userId"`
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	userID, err := ownAccount(c, req.UserID)
	if err != nil {
		return err
	}

	if err := uc.users.ChangePassword(c.UserContext(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Password changed successfully."))
}

// ownAccount resolves the account a request acts on. Anonymous callers name
// it explicitly; authenticated callers default to themselves and may not
// name anyone else.
func ownAccount(c *fiber.Ctx, requested string) (string, error) {
	return scopedUserID(c, requested, "You can only access your own account.")
}

func scopedUserID(c *fiber.Ctx, requested, forbidden string) (string, error) {
	caller := middleware.CurrentUserID(c)
	switch {
	case caller == "":
		return requested, nil
	case requested == "" || requested == caller:
		return caller, nil
	default:
		return "", apperr.Forbidden(forbidden)
	}
}

// parseBody decodes a JSON body into out. An empty body leaves out untouched.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("Invalid request body.")
	}
	return nil
}
