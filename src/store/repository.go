// Package store persists users, items and notifications.
package store

import (
	"context"
	"errors"

	"github.com/theleywin/lostnfound-backend/src/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
	ErrInvalidID      = errors.New("invalid id")
	ErrStatusConflict = errors.New("status changed concurrently")
)

// UserRepository stores accounts. Emails are unique.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id string, update models.UserUpdate) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	// ListIDsExcept returns the ids of every user but the given one.
	ListIDsExcept(ctx context.Context, id string) ([]string, error)
}

// ItemRepository stores item postings.
type ItemRepository interface {
	List(ctx context.Context, filter models.ItemFilter, page models.Page) ([]models.Item, int64, error)
	FindByID(ctx context.Context, id string) (*models.Item, error)
	Insert(ctx context.Context, item *models.Item) error
	// Update applies update to the item. When expectedStatus is not empty the
	// write only happens if the stored status still equals it, otherwise
	// ErrStatusConflict is returned.
	Update(ctx context.Context, id string, expectedStatus models.ItemStatus, update models.ItemUpdate) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, userID string) ([]models.Item, error)
}

// NotificationRepository stores per-user notifications.
type NotificationRepository interface {
	// List and UnreadCount are scoped to one recipient.
	List(ctx context.Context, userID string, page models.Page) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkRead and Delete restrict the match to recipient when it is not empty.
	MarkRead(ctx context.Context, id, recipient string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, recipient string) error
	Insert(ctx context.Context, n *models.Notification) error
	InsertMany(ctx context.Context, ns []models.Notification) error
}

// Repositories groups the three collections behind one handle.
type Repositories struct {
	Users         UserRepository
	Items         ItemRepository
	Notifications NotificationRepository
}
