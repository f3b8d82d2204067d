// Package memory keeps chats, users and products in process memory. It backs
// STORAGE_DRIVER=memory for local runs and the usecase and handler tests.
package memory

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
)

type Store struct {
	mu       sync.RWMutex
	chats    map[primitive.ObjectID]*entity.Chat
	users    map[primitive.ObjectID]*entity.User
	products map[primitive.ObjectID]*entity.Product
}

func NewStore() *Store {
	return &Store{
		chats:    make(map[primitive.ObjectID]*entity.Chat),
		users:    make(map[primitive.ObjectID]*entity.User),
		products: make(map[primitive.ObjectID]*entity.Product),
	}
}

func (s *Store) Chats() repository.ChatRepository {
	return &chatRepository{store: s}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{store: s}
}

func (s *Store) Products() repository.ProductRepository {
	return &productRepository{store: s}
}

// ChatCount reports how many chats exist, active or not.
func (s *Store) ChatCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}
