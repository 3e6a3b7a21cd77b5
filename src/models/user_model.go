package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account.
type User struct {
	Id           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	NUID         string             `json:"nuid" bson:"nuid"`
	Name         string             `json:"name" bson:"name"`
	Phone        string             `json:"phone" bson:"phone"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    *time.Time         `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// Sanitized returns a copy of the user without the password hash.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// UserUpdate holds the profile fields to change. Nil fields are left untouched.
type UserUpdate struct {
	NUID      *string
	Name      *string
	Phone     *string
	Email     *string
	UpdatedAt time.Time
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.NUID == nil && u.Name == nil && u.Phone == nil && u.Email == nil
}
