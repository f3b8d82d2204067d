package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
)

type ProductListFilter struct {
	Owner    *primitive.ObjectID
	Category string
	Status   string
	Search   string
	Offset   int
	Limit    int
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID returns active and inactive products alike.
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	// List returns active products only, newest first.
	List(ctx context.Context, filter ProductListFilter) ([]*entity.Product, int64, error)
}
