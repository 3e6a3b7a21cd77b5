package routes

import (
	"github.com/gofiber/fiber/v2"
)

// UserRoutes sets up registration, login and profile routes
func UserRoutes(app *fiber.App, h Handlers) {
	user := app.Group("/api/users")
	optional := h.Guard.OptionalAuth()

	user.Post("/", h.Users.Register)
	user.Post("/login", h.Users.Login)
	user.Get("/profile", optional, h.Users.GetProfile)
	user.Put("/profile", optional, h.Users.UpdateProfile)
	user.Put("/password", optional, h.Users.ChangePassword)
}
