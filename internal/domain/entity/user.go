package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserTypeIndividual = "individual"
	UserTypeProducer   = "producer"
	UserTypeComuna     = "comuna"
	UserTypeBusiness   = "business"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

type UserLocation struct {
	Address     string       `json:"address,omitempty" bson:"address,omitempty"`
	City        string       `json:"city,omitempty" bson:"city,omitempty"`
	Province    string       `json:"province,omitempty" bson:"province,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

type Reputation struct {
	Average float64 `json:"average" bson:"average"`
	Count   int     `json:"count" bson:"count"`
}

type UserStats struct {
	ProductsOffered       int `json:"productsOffered" bson:"productsOffered"`
	ProductsReceived      int `json:"productsReceived" bson:"productsReceived"`
	TransactionsCompleted int `json:"transactionsCompleted" bson:"transactionsCompleted"`
}

type User struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"password,omitempty"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Avatar       string             `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Location     UserLocation       `json:"location" bson:"location"`
	UserType     string             `json:"userType" bson:"userType"`
	IsVerified   bool               `json:"isVerified" bson:"isVerified"`
	IsActive     bool               `json:"isActive" bson:"isActive"`
	Reputation   Reputation         `json:"reputation" bson:"reputation"`
	Stats        UserStats          `json:"stats" bson:"stats"`
	FirebaseUID  string             `json:"-" bson:"firebaseUid,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the public projection joined into chats and messages.
type UserSummary struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	Name       string             `json:"name" bson:"name"`
	Avatar     string             `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Reputation *Reputation        `json:"reputation,omitempty" bson:"reputation,omitempty"`
}

func (u *User) Summary() UserSummary {
	rep := u.Reputation
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Avatar:     u.Avatar,
		Reputation: &rep,
	}
}
