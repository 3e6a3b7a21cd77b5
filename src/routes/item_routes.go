package routes

import (
	"github.com/gofiber/fiber/v2"
)

// ItemRoutes sets up item listing and the authenticated create, update and delete routes
func ItemRoutes(app *fiber.App, h Handlers) {
	item := app.Group("/api/items")
	protect := h.Guard.ProtectRoute()

	item.Get("/", h.Items.GetItems)
	item.Get("/user/:userId", h.Items.GetItemsByUser)
	item.Get("/:id", h.Items.GetItem)
	item.Post("/", protect, h.Items.CreateItem)
	item.Put("/:id", protect, h.Items.UpdateItem)
	item.Delete("/:id", protect, h.Items.DeleteItem)
}
