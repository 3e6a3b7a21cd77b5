package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/lostnfound-backend/src/controllers"
	"github.com/theleywin/lostnfound-backend/src/middleware"
)

// Handlers groups the controllers and guard the routes are built from.
type Handlers struct {
	Guard         *middleware.Guard
	Users         *controllers.UserController
	Items         *controllers.ItemController
	Notifications *controllers.NotificationController
	Health        *controllers.HealthController
}

// Register mounts every API route on app.
func Register(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.Health)
	app.Get("/health/ready", h.Health.Ready)

	UserRoutes(app, h)
	ItemRoutes(app, h)
	NotificationRoutes(app, h)
}
