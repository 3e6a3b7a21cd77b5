package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification keeps denormalized copies of the item fields it was created from.
type Notification struct {
	Id           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID       string             `json:"userId" bson:"userId"`
	ItemID       string             `json:"itemId" bson:"itemId"`
	ItemName     *string            `json:"itemName" bson:"itemName"`
	ItemLocation *string            `json:"itemLocation" bson:"itemLocation"`
	ItemImage    *string            `json:"itemImage" bson:"itemImage"`
	ItemCategory *string            `json:"itemCategory" bson:"itemCategory"`
	DateFound    *string            `json:"dateFound" bson:"dateFound"`
	Type         NotificationType   `json:"type" bson:"type"`
	Read         bool               `json:"read" bson:"read"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	ReadAt       *time.Time         `json:"readAt,omitempty" bson:"readAt,omitempty"`
}

// NotificationType tells a new posting apart from a claim.
type NotificationType string

const (
	NotificationTypeNew     NotificationType = "new"
	NotificationTypeClaimed NotificationType = "claimed"
)

// ParseNotificationType accepts the known types. "CLAIMED" is read as "claimed".
func ParseNotificationType(s string) (NotificationType, bool) {
	switch NotificationType(s) {
	case NotificationTypeNew, NotificationTypeClaimed:
		return NotificationType(s), true
	case "CLAIMED":
		return NotificationTypeClaimed, true
	}
	return "", false
}

// NewItemNotification builds a notification for recipient from the item's display fields.
func NewItemNotification(recipient string, item Item, kind NotificationType, now time.Time) Notification {
	return Notification{
		Id:           primitive.NewObjectID(),
		UserID:       recipient,
		ItemID:       item.Id.Hex(),
		ItemName:     stringPtr(item.Name),
		ItemLocation: stringPtr(item.Location),
		ItemImage:    item.Image,
		ItemCategory: stringPtr(item.Category),
		DateFound:    stringPtr(item.DateFound),
		Type:         kind,
		Read:         false,
		CreatedAt:    now,
	}
}

func stringPtr(s string) *string {
	return &s
}
