package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/pkg/errors"
)

type firestoreProductRepository struct {
	client  *firestore.Client
	timeout time.Duration
}

func NewFirestoreProductRepository(client *firestore.Client, timeout time.Duration) repository.ProductRepository {
	return &firestoreProductRepository{
		client:  client,
		timeout: timeout,
	}
}

func (r *firestoreProductRepository) products() *firestore.CollectionRef {
	return r.client.Collection(firestoreProducts)
}

func productDocument(product *entity.Product) (map[string]interface{}, error) {
	return withPayload(product, map[string]interface{}{
		"owner":     product.Owner.Hex(),
		"category":  product.Category,
		"status":    product.Status,
		"isActive":  product.IsActive,
		"createdAt": product.CreatedAt,
	})
}

func (r *firestoreProductRepository) Create(ctx context.Context, product *entity.Product) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	data, err := productDocument(product)
	if err != nil {
		return errors.Internal("Failed to encode product", err)
	}

	_, err = r.products().Doc(product.ID.Hex()).Create(ctx, data)
	return mapFirestoreError("Product", err)
}

func (r *firestoreProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap, err := r.products().Doc(id.Hex()).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError("Product", err)
	}

	var product entity.Product
	if err := decodePayload(snap, &product); err != nil {
		return nil, errors.Internal("Failed to parse product data", err)
	}
	return &product, nil
}

func (r *firestoreProductRepository) Update(ctx context.Context, product *entity.Product) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := productDocument(product)
	if err != nil {
		return errors.Internal("Failed to encode product", err)
	}

	ref := r.products().Doc(product.ID.Hex())
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, data)
	})
	return mapFirestoreError("Product", err)
}

// List pushes the equality filters to Firestore and applies search, ordering
// and paging in process.
func (r *firestoreProductRepository) List(ctx context.Context, f repository.ProductListFilter) ([]*entity.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.products().Where("isActive", "==", true)
	if f.Owner != nil {
		query = query.Where("owner", "==", f.Owner.Hex())
	}
	if f.Category != "" {
		query = query.Where("category", "==", f.Category)
	}
	if f.Status != "" {
		query = query.Where("status", "==", f.Status)
	}

	var matched []*entity.Product
	err := eachDoc(query.Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
		var product entity.Product
		if err := decodePayload(snap, &product); err != nil {
			return errors.Internal("Failed to parse product data", err)
		}
		if product.MatchesSearch(f.Search) {
			matched = append(matched, &product)
		}
		return nil
	})
	if err != nil {
		return nil, 0, mapFirestoreError("Product", err)
	}

	entity.SortNewest(matched)
	start, end := entity.PageBounds(len(matched), f.Offset, f.Limit)
	return append([]*entity.Product{}, matched[start:end]...), int64(len(matched)), nil
}
