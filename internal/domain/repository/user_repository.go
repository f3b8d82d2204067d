package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
)

type UserRepository interface {
	// Create fails with CONFLICT when the email is taken.
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	// GetSummaries returns public projections keyed by hex id. Unknown ids are skipped.
	GetSummaries(ctx context.Context, ids []primitive.ObjectID) (map[string]entity.UserSummary, error)
}
