package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulapp/internal/adapter/repository/memory"
	"circulapp/internal/domain/entity"
	"circulapp/pkg/errors"
)

func TestProductLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := NewProductUseCase(store.Products(), store.Users())

	owner := &entity.User{Name: "Bob", Email: "bob@example.com", IsActive: true}
	other := &entity.User{Name: "Eve", Email: "eve@example.com", IsActive: true}
	require.NoError(t, store.Users().Create(ctx, owner))
	require.NoError(t, store.Users().Create(ctx, other))

	p, err := uc.CreateProduct(ctx, owner.ID.Hex(), CreateProductInput{
		Title:     " Wooden chair ",
		Category:  "furniture",
		Condition: "good",
	})
	require.NoError(t, err)
	assert.Equal(t, "Wooden chair", p.Title)
	assert.Equal(t, entity.ProductStatusAvailable, p.Status)
	assert.NotNil(t, p.Images)

	status := entity.ProductStatusReserved
	_, err = uc.UpdateProduct(ctx, other.ID.Hex(), p.ID.Hex(), UpdateProductInput{Status: &status})
	assertCode(t, err, errors.CodeForbidden)

	updated, err := uc.UpdateProduct(ctx, owner.ID.Hex(), p.ID.Hex(), UpdateProductInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, entity.ProductStatusReserved, updated.Status)

	items, total, err := uc.ListProducts(ctx, ListProductsInput{Owner: owner.ID.Hex(), Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, items, 1)

	assertCode(t, uc.DeleteProduct(ctx, other.ID.Hex(), p.ID.Hex()), errors.CodeForbidden)
	require.NoError(t, uc.DeleteProduct(ctx, owner.ID.Hex(), p.ID.Hex()))

	_, err = uc.GetProduct(ctx, p.ID.Hex())
	assertCode(t, err, errors.CodeNotFound)

	items, total, err = uc.ListProducts(ctx, ListProductsInput{Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, items)

	_, _, err = uc.ListProducts(ctx, ListProductsInput{Owner: "nope"})
	assertCode(t, err, errors.CodeValidation)
}
