package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/internal/infrastructure/mongodb"
	"circulapp/pkg/errors"
)

type mongoProductRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoProductRepository(db *mongo.Database, timeout time.Duration) repository.ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection(mongodb.ProductsCollection),
		timeout:    timeout,
	}
}

func (r *mongoProductRepository) Create(ctx context.Context, product *entity.Product) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, product); err != nil {
		return mapMongoError("Product", err)
	}
	return nil
}

func (r *mongoProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var product entity.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, mapMongoError("Product", err)
	}
	return &product, nil
}

func (r *mongoProductRepository) Update(ctx context.Context, product *entity.Product) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return mapMongoError("Product", err)
	}
	if result.MatchedCount == 0 {
		return errors.NotFound("Product", nil)
	}
	return nil
}

func productListFilter(f repository.ProductListFilter) bson.M {
	filter := bson.M{"isActive": true}
	if f.Owner != nil {
		filter["owner"] = *f.Owner
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"title": rx}, bson.M{"description": rx}}
	}
	return filter
}

func (r *mongoProductRepository) List(ctx context.Context, f repository.ProductListFilter) ([]*entity.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := productListFilter(f)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapMongoError("Product", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Offset)).
		SetLimit(int64(f.Limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, mapMongoError("Product", err)
	}
	defer cursor.Close(ctx)

	products := []*entity.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, mapMongoError("Product", err)
	}
	return products, total, nil
}
