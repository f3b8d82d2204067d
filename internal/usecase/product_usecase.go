package usecase

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/pkg/errors"
)

type ProductUseCase struct {
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	now         func() time.Time
}

func NewProductUseCase(productRepo repository.ProductRepository, userRepo repository.UserRepository) *ProductUseCase {
	return &ProductUseCase{
		productRepo: productRepo,
		userRepo:    userRepo,
		now:         clock,
	}
}

type CreateProductInput struct {
	Title       string
	Description string
	Category    string
	Condition   string
	Images      []string
}

type UpdateProductInput struct {
	Title       *string
	Description *string
	Category    *string
	Condition   *string
	Images      []string
	Status      *string
}

type ListProductsInput struct {
	Owner    string
	Category string
	Status   string
	Search   string
	Offset   int
	Limit    int
}

func (uc *ProductUseCase) CreateProduct(ctx context.Context, ownerID string, input CreateProductInput) (*entity.Product, error) {
	owner, err := callerID(ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.userRepo.GetByID(ctx, owner); err != nil {
		return nil, err
	}

	images := input.Images
	if images == nil {
		images = []string{}
	}

	now := uc.now()
	product := &entity.Product{
		Owner:       owner,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Condition:   input.Condition,
		Images:      images,
		Status:      entity.ProductStatusAvailable,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct hides deactivated listings.
func (uc *ProductUseCase) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	id, err := resourceID(productID, "Product")
	if err != nil {
		return nil, err
	}
	product, err := uc.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, errors.NotFound("Product", nil)
	}
	return product, nil
}

func (uc *ProductUseCase) ListProducts(ctx context.Context, input ListProductsInput) ([]*entity.Product, int64, error) {
	filter := repository.ProductListFilter{
		Category: input.Category,
		Status:   input.Status,
		Search:   strings.TrimSpace(input.Search),
		Offset:   input.Offset,
		Limit:    input.Limit,
	}
	if input.Owner != "" {
		owner, err := primitive.ObjectIDFromHex(input.Owner)
		if err != nil {
			return nil, 0, errors.Validation("Invalid owner id",
				errors.FieldError{Field: "owner", Message: "owner must be a valid id"})
		}
		filter.Owner = &owner
	}

	products, total, err := uc.productRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if products == nil {
		products = []*entity.Product{}
	}
	return products, total, nil
}

func (uc *ProductUseCase) UpdateProduct(ctx context.Context, userID, productID string, input UpdateProductInput) (*entity.Product, error) {
	product, err := uc.ownedProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		product.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Condition != nil {
		product.Condition = *input.Condition
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.Status != nil {
		product.Status = *input.Status
	}
	product.UpdatedAt = uc.now()

	if err := uc.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct deactivates the listing. Chats about it keep their reference.
func (uc *ProductUseCase) DeleteProduct(ctx context.Context, userID, productID string) error {
	product, err := uc.ownedProduct(ctx, userID, productID)
	if err != nil {
		return err
	}
	product.IsActive = false
	product.UpdatedAt = uc.now()
	return uc.productRepo.Update(ctx, product)
}

func (uc *ProductUseCase) ownedProduct(ctx context.Context, userID, productID string) (*entity.Product, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	product, err := uc.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Owner != caller {
		return nil, errors.Forbidden("You can only modify your own products", nil)
	}
	return product, nil
}
