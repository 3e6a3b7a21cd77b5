package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is a found-item posting.
type Item struct {
	Id          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID      string             `json:"userId" bson:"userId"`
	Name        string             `json:"name" bson:"name"`
	Location    string             `json:"location" bson:"location"`
	Description string             `json:"description" bson:"description"`
	DateFound   string             `json:"dateFound" bson:"dateFound"`
	Category    string             `json:"category" bson:"category"`
	Image       *string            `json:"image" bson:"image"`
	Status      ItemStatus         `json:"status" bson:"status"`
	ClaimedBy   string             `json:"claimedBy,omitempty" bson:"claimedBy,omitempty"`
	// StoredImage is the image this item uploaded itself. Only it is ever
	// removed from the image store.
	StoredImage string             `json:"-" bson:"storedImage,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ItemStatus is the claim state of an item.
type ItemStatus string

const (
	ItemStatusSearching      ItemStatus = "SEARCHING"
	ItemStatusClaimRequested ItemStatus = "CLAIM_REQUESTED"
	ItemStatusClaimed        ItemStatus = "CLAIMED"
)

// ParseItemStatus accepts the canonical values in any case. The legacy
// two-state values "searching" and "claimed" map onto the same constants.
func ParseItemStatus(s string) (ItemStatus, bool) {
	switch ItemStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case ItemStatusSearching:
		return ItemStatusSearching, true
	case ItemStatusClaimRequested:
		return ItemStatusClaimRequested, true
	case ItemStatusClaimed:
		return ItemStatusClaimed, true
	}
	return "", false
}

// NormalizeItemStatus maps s onto its canonical constant. Unknown values are
// kept as they are.
func NormalizeItemStatus(s string) ItemStatus {
	if status, ok := ParseItemStatus(s); ok {
		return status
	}
	return ItemStatus(s)
}

// Spellings lists every stored form of s: the canonical value and, for
// SEARCHING and CLAIMED, the legacy lowercase value.
func (s ItemStatus) Spellings() []ItemStatus {
	switch s {
	case ItemStatusSearching, ItemStatusClaimed:
		return []ItemStatus{s, ItemStatus(strings.ToLower(string(s)))}
	}
	return []ItemStatus{s}
}

// UnmarshalBSONValue normalizes legacy stored statuses while decoding.
func (s *ItemStatus) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*s = ""
		return nil
	}
	str, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("item status: unexpected bson type %s", t)
	}
	*s = NormalizeItemStatus(str)
	return nil
}

// IsClaim reports whether moving to s means somebody is claiming the item.
func (s ItemStatus) IsClaim() bool {
	return s == ItemStatusClaimRequested || s == ItemStatusClaimed
}

// ItemFilter holds the equality filters and free-text search for item listings.
type ItemFilter struct {
	UserID    string
	Status    string
	Location  string
	Category  string
	DateFound string
	Search    string
}

// ItemUpdate is the effective set of changes applied to a stored item.
type ItemUpdate struct {
	Name        *string
	Location    *string
	Description *string
	DateFound   *string
	Category    *string
	Image       OptionalString
	Status      *ItemStatus
	// ClaimedBy and StoredImage set to "" remove the field.
	ClaimedBy   *string
	StoredImage *string
	UpdatedAt time.Time
}

// Empty reports whether the update changes no client-visible field.
func (u ItemUpdate) Empty() bool {
	return u.Name == nil && u.Location == nil && u.Description == nil &&
		u.DateFound == nil && u.Category == nil && !u.Image.Set && u.Status == nil
}

// Apply returns a copy of item with the update applied.
func (u ItemUpdate) Apply(item Item) Item {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Location != nil {
		item.Location = *u.Location
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.DateFound != nil {
		item.DateFound = *u.DateFound
	}
	if u.Category != nil {
		item.Category = *u.Category
	}
	if u.Image.Set {
		item.Image = u.Image.Value
	}
	if u.Status != nil {
		item.Status = *u.Status
	}
	if u.ClaimedBy != nil {
		item.ClaimedBy = *u.ClaimedBy
	}
	if u.StoredImage != nil {
		item.StoredImage = *u.StoredImage
	}
	if !u.UpdatedAt.IsZero() {
		item.UpdatedAt = u.UpdatedAt
	}
	return item
}

// OptionalString tells an absent JSON field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
