package repository

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/pkg/errors"
)

type firestoreUserRepository struct {
	client  *firestore.Client
	timeout time.Duration
}

func NewFirestoreUserRepository(client *firestore.Client, timeout time.Duration) repository.UserRepository {
	return &firestoreUserRepository{
		client:  client,
		timeout: timeout,
	}
}

func (r *firestoreUserRepository) users() *firestore.CollectionRef {
	return r.client.Collection(firestoreUsers)
}

func userDocument(user *entity.User) (map[string]interface{}, error) {
	return withPayload(user, map[string]interface{}{
		"email":       user.Email,
		"firebaseUid": user.FirebaseUID,
		"isActive":    user.IsActive,
	})
}

func decodeUser(snap *firestore.DocumentSnapshot) (*entity.User, error) {
	var user entity.User
	if err := decodePayload(snap, &user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	return &user, nil
}

// Create checks email and Firebase uid uniqueness inside the transaction that
// writes the user.
func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	data, err := userDocument(user)
	if err != nil {
		return errors.Internal("Failed to encode user", err)
	}

	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		taken, err := tx.Documents(r.users().Where("email", "==", user.Email).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return errors.Conflict("Email already registered", nil)
		}
		if user.FirebaseUID != "" {
			taken, err = tx.Documents(r.users().Where("firebaseUid", "==", user.FirebaseUID).Limit(1)).GetAll()
			if err != nil {
				return err
			}
			if len(taken) > 0 {
				return errors.Conflict("User already exists", nil)
			}
		}
		return tx.Create(r.users().Doc(user.ID.Hex()), data)
	})
	return mapFirestoreError("User", err)
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap, err := r.users().Doc(id.Hex()).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError("User", err)
	}
	return decodeUser(snap)
}

func (r *firestoreUserRepository) findOne(ctx context.Context, field, value string) (*entity.User, error) {
	if value == "" {
		return nil, errors.NotFound("User", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	docs, err := r.users().Where(field, "==", value).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapFirestoreError("User", err)
	}
	if len(docs) == 0 {
		return nil, errors.NotFound("User", nil)
	}
	return decodeUser(docs[0])
}

func (r *firestoreUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (r *firestoreUserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*entity.User, error) {
	return r.findOne(ctx, "firebaseUid", uid)
}

func (r *firestoreUserRepository) Update(ctx context.Context, user *entity.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := userDocument(user)
	if err != nil {
		return errors.Internal("Failed to encode user", err)
	}

	ref := r.users().Doc(user.ID.Hex())
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, data)
	})
	return mapFirestoreError("User", err)
}

func (r *firestoreUserRepository) GetSummaries(ctx context.Context, ids []primitive.ObjectID) (map[string]entity.UserSummary, error) {
	summaries := make(map[string]entity.UserSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	seen := make(map[primitive.ObjectID]bool, len(ids))
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, r.users().Doc(id.Hex()))
	}

	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, mapFirestoreError("User", err)
	}
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		user, err := decodeUser(snap)
		if err != nil {
			return nil, err
		}
		summaries[user.ID.Hex()] = user.Summary()
	}
	return summaries, nil
}
