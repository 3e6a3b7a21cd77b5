package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/lostnfound-backend/src/lib"
	"github.com/theleywin/lostnfound-backend/src/middleware"
	"github.com/theleywin/lostnfound-backend/src/models"
	"github.com/theleywin/lostnfound-backend/src/services"
)

// NotificationController serves the /api/notifications routes.
type NotificationController struct {
	notifications *services.NotificationService
}

// NewNotificationController returns a controller backed by notifications.
func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// ownNotifications works like ownAccount for notification recipients.
func ownNotifications(c *fiber.Ctx, requested string) (string, error) {
	return scopedUserID(c, requested, "You can only access your own notifications.")
}

// GetNotifications returns a page of the recipient's notifications, newest first
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	userID, err := ownNotifications(c, c.Query("userId"))
	if err != nil {
		return err
	}
	page := models.ParsePage(c.Query("page"), c.Query("limit"), models.DefaultNotificationsPerPage)

	result, err := nc.notifications.List(c.UserContext(), userID, page)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// GetUnreadCount returns the number of unread notifications of the recipient
func (nc *NotificationController) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := ownNotifications(c, c.Query("userId"))
	if err != nil {
		return err
	}

	count, err := nc.notifications.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"count": count})
}

// MarkNotificationAsRead marks one notification read. Authenticated callers
// can only mark their own.
func (nc *NotificationController) MarkNotificationAsRead(c *fiber.Ctx) error {
	if err := nc.notifications.MarkRead(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c)); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Notification marked as read."))
}

// MarkAllAsRead marks every notification of the recipient read
func (nc *NotificationController) MarkAllAsRead(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	userID, err := ownNotifications(c, req.UserID)
	if err != nil {
		return err
	}

	updated, err := nc.notifications.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageWith("All notifications marked as read.", fiber.Map{
		"updatedCount": updated,
	}))
}

// DeleteNotification removes one notification
func (nc *NotificationController) DeleteNotification(c *fiber.Ctx) error {
	if err := nc.notifications.Delete(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c)); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Notification deleted successfully."))
}

// CreateNotification stores a notification sent by a client
func (nc *NotificationController) CreateNotification(c *fiber.Ctx) error {
	var req services.NewNotification
	if err := parseBody(c, &req); err != nil {
		return err
	}

	n, err := nc.notifications.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(lib.MessageWith("Notification created successfully.", fiber.Map{
		"notificationId": n.Id,
		"notification":   n,
	}))
}
