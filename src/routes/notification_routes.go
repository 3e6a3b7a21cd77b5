package routes

import (
	"github.com/gofiber/fiber/v2"
)

// NotificationRoutes sets up notification routes. Authentication is optional;
// when present the routes only touch the caller's notifications.
func NotificationRoutes(app *fiber.App, h Handlers) {
	notification := app.Group("/api/notifications", h.Guard.OptionalAuth())

	notification.Get("/", h.Notifications.GetNotifications)
	notification.Get("/unread-count", h.Notifications.GetUnreadCount)
	notification.Put("/read-all", h.Notifications.MarkAllAsRead)
	notification.Put("/:id/read", h.Notifications.MarkNotificationAsRead)
	notification.Delete("/:id", h.Notifications.DeleteNotification)
	notification.Post("/", h.Notifications.CreateNotification)
}
