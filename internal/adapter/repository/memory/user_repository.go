package memory

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
	"circulapp/pkg/errors"
)

type userRepository struct {
	store *Store
}

func (r *userRepository) Create(_ context.Context, user *entity.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.users {
		if u.Email == user.Email {
			return errors.Conflict("Email already registered", nil)
		}
		if user.FirebaseUID != "" && u.FirebaseUID == user.FirebaseUID {
			return errors.Conflict("User already exists", nil)
		}
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (r *userRepository) find(match func(*entity.User) bool) (*entity.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

func (r *userRepository) GetByID(_ context.Context, id primitive.ObjectID) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id })
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u *entity.User) bool { return u.Email == email })
}

func (r *userRepository) GetByFirebaseUID(_ context.Context, uid string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return uid != "" && u.FirebaseUID == uid })
}

func (r *userRepository) Update(_ context.Context, user *entity.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return errors.NotFound("User", nil)
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (r *userRepository) GetSummaries(_ context.Context, ids []primitive.ObjectID) (map[string]entity.UserSummary, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make(map[string]entity.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			summaries[id.Hex()] = u.Summary()
		}
	}
	return summaries, nil
}
