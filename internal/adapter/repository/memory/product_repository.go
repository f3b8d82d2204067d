package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/pkg/errors"
)

type productRepository struct {
	store *Store
}

func (r *productRepository) Create(_ context.Context, product *entity.Product) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	cp := *product
	s.products[product.ID] = &cp
	return nil
}

func (r *productRepository) GetByID(_ context.Context, id primitive.ObjectID) (*entity.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *productRepository) Update(_ context.Context, product *entity.Product) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return errors.NotFound("Product", nil)
	}
	cp := *product
	s.products[product.ID] = &cp
	return nil
}

func (r *productRepository) List(_ context.Context, f repository.ProductListFilter) ([]*entity.Product, int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*entity.Product
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		if f.Owner != nil && p.Owner != *f.Owner {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if !p.MatchesSearch(f.Search) {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}

	entity.SortNewest(matched)

	start, end := entity.PageBounds(len(matched), f.Offset, f.Limit)
	return append([]*entity.Product{}, matched[start:end]...), int64(len(matched)), nil
}
