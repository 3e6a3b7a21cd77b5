package services

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/theleywin/lostnfound-backend/src/apperr"
	"github.com/theleywin/lostnfound-backend/src/models"
	"github.com/theleywin/lostnfound-backend/src/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService reads and updates notifications.
type NotificationService struct {
	notifications store.NotificationRepository
	now           func() time.Time
}

// NewNotificationService returns a service over notifications.
func NewNotificationService(notifications store.NotificationRepository) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NotificationPage is one page of a recipient's notifications.
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Pagination    models.Pagination     `json:"pagination"`
}

// NewNotification is a manually created notification.
type NewNotification struct {
	UserID       string  `json:"userId"`
	ItemID       string  `json:"itemId"`
	ItemName     *string `json:"itemName"`
	ItemLocation *string `json:"itemLocation"`
	ItemImage    *string `json:"itemImage"`
	ItemCategory *string `json:"itemCategory"`
	DateFound    *string `json:"dateFound"`
	Type         string  `json:"type"`
}

// Validate checks the required ids.
func (n NewNotification) Validate() error {
	err := validation.ValidateStruct(&n,
		validation.Field(&n.UserID, validation.Required),
		validation.Field(&n.ItemID, validation.Required),
	)
	if err != nil {
		return apperr.Validation("User ID and item ID are required.")
	}
	return nil
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page models.Page) (*NotificationPage, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	rows, total, err := s.notifications.List(ctx, userID, page)
	if err != nil {
		return nil, apperr.Internal("listing notifications", err)
	}
	return &NotificationPage{Notifications: rows, Pagination: models.NewPagination(page, total)}, nil
}

// UnreadCount counts the user's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if err := checkUserID(userID); err != nil {
		return 0, err
	}
	n, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("counting notifications", err)
	}
	return n, nil
}

// MarkRead marks one notification read. A non-empty recipient restricts the
// match to that user's notifications.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipient string) error {
	if err := s.notifications.MarkRead(ctx, id, recipient); err != nil {
		return notificationError(err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if err := checkUserID(userID); err != nil {
		return 0, err
	}
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("marking notifications read", err)
	}
	return n, nil
}

// Delete removes a notification. A non-empty recipient must own it.
func (s *NotificationService) Delete(ctx context.Context, id, recipient string) error {
	if err := s.notifications.Delete(ctx, id, recipient); err != nil {
		return notificationError(err)
	}
	return nil
}

// Create stores a notification. The type defaults to "new".
func (s *NotificationService) Create(ctx context.Context, in NewNotification) (*models.Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	kind := models.NotificationTypeNew
	if in.Type != "" {
		parsed, ok := models.ParseNotificationType(in.Type)
		if !ok {
			return nil, apperr.Validation("Invalid notification type.")
		}
		kind = parsed
	}

	n := models.Notification{
		Id:           primitive.NewObjectID(),
		UserID:       in.UserID,
		ItemID:       in.ItemID,
		ItemName:     nonBlank(in.ItemName),
		ItemLocation: nonBlank(in.ItemLocation),
		ItemImage:    nonBlank(in.ItemImage),
		ItemCategory: nonBlank(in.ItemCategory),
		DateFound:    nonBlank(in.DateFound),
		Type:         kind,
		CreatedAt:    s.now(),
	}
	if err := s.notifications.Insert(ctx, &n); err != nil {
		return nil, apperr.Internal("creating notification", err)
	}
	return &n, nil
}

func notificationError(err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		return apperr.Validation("Invalid notification ID.")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Notification not found.")
	}
	return apperr.Internal("accessing notification", err)
}
