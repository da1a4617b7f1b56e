package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User - внутренняя запись пользователя, привязанная к внешнему идентификатору
type User struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	ClerkID   string             `bson:"clerkId" json:"clerkId"`
	Email     string             `bson:"email" json:"email"`
	FirstName string             `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName  string             `bson:"lastName,omitempty" json:"lastName,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
