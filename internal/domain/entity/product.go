package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProductStatusAvailable = "available"
	ProductStatusReserved  = "reserved"
	ProductStatusExchanged = "exchanged"
)

type Product struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Owner       primitive.ObjectID `json:"owner" bson:"owner"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Category    string             `json:"category" bson:"category"`
	Condition   string             `json:"condition" bson:"condition"`
	Images      []string           `json:"images" bson:"images"`
	Status      string             `json:"status" bson:"status"`
	IsActive    bool               `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ProductSummary is the projection joined into chat listings.
type ProductSummary struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id"`
	Title    string             `json:"title" bson:"title"`
	Images   []string           `json:"images,omitempty" bson:"images,omitempty"`
	Status   string             `json:"status" bson:"status"`
	Category string             `json:"category,omitempty" bson:"category,omitempty"`
}

func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:       p.ID,
		Title:    p.Title,
		Images:   p.Images,
		Status:   p.Status,
		Category: p.Category,
	}
}
