package repository

import (
	"context"
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

type mongoUserRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoUserRepository(db *mongo.Database, timeout time.Duration) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(mongodb.UsersCollection),
		timeout:    timeout,
	}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *entity.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Conflict("Email already registered", err)
		}
		return mapMongoError("User", err)
	}
	return nil
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var user entity.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, mapMongoError("User", err)
	}
	return &user, nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *mongoUserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"firebaseUid": uid})
}

func (r *mongoUserRepository) Update(ctx context.Context, user *entity.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return mapMongoError("User", err)
	}
	if result.MatchedCount == 0 {
		return errors.NotFound("User", nil)
	}
	return nil
}

func (r *mongoUserRepository) GetSummaries(ctx context.Context, ids []primitive.ObjectID) (map[string]entity.UserSummary, error) {
	summaries := make(map[string]entity.UserSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetProjection(userSummaryProjection)
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, mapMongoError("User", err)
	}
	defer cursor.Close(ctx)

	var users []entity.UserSummary
	if err := cursor.All(ctx, &users); err != nil {
		return nil, mapMongoError("User", err)
	}
	for _, u := range users {
		summaries[u.ID.Hex()] = u
	}
	return summaries, nil
}
