package api

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type targetRequest struct {
	ProductID string `json:"productId" validate:"omitempty,mongoid"`
	Emoji     string `json:"emoji" validate:"required"`
}

func TestValidatorMongoID(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&targetRequest{ProductID: primitive.NewObjectID().Hex(), Emoji: "👍"}))
	assert.NoError(t, v.Validate(&targetRequest{Emoji: "👍"}))

	err := v.Validate(&targetRequest{ProductID: "xyz", Emoji: "👍"})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "productId", verrs[0].Field())
	assert.Equal(t, "mongoid", verrs[0].Tag())
}

func TestValidatorUsesJSONNames(t *testing.T) {
	err := NewValidator().Validate(&targetRequest{})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "emoji", verrs[0].Field())
}
