package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/pkg/errors"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFindOrCreateIsAtomic(t *testing.T) {
	store := NewStore()
	chats := store.Chats()
	a, b, p := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	ids := map[primitive.ObjectID]bool{}

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chat, isNew, err := chats.FindOrCreate(context.Background(),
				entity.NewChat(a, b, &p, entity.ChatTypeProductInquiry, t0))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if isNew {
				created++
			}
			ids[chat.ID] = true
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, store.ChatCount())
}

func TestUpdateDetectsStaleVersion(t *testing.T) {
	store := NewStore()
	chats := store.Chats()
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	chat, _, err := chats.FindOrCreate(ctx, entity.NewChat(a, b, nil, entity.ChatTypeDirect, t0))
	require.NoError(t, err)

	first, err := chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	second, err := chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)

	first.IsArchived = true
	require.NoError(t, chats.Update(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	err = chats.Update(ctx, second)
	assert.True(t, errors.Is(err, errors.CodeConflict))
}

func TestListForUserFiltersAndJoins(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	alice := &entity.User{Name: "Alice", Email: "alice@example.com", IsActive: true}
	bob := &entity.User{Name: "Bob", Email: "bob@example.com", IsActive: true}
	require.NoError(t, store.Users().Create(ctx, alice))
	require.NoError(t, store.Users().Create(ctx, bob))

	bike := &entity.Product{Owner: bob.ID, Title: "Bike", Status: entity.ProductStatusAvailable, IsActive: true}
	require.NoError(t, store.Products().Create(ctx, bike))

	chats := store.Chats()
	direct, _, err := chats.FindOrCreate(ctx, entity.NewChat(alice.ID, bob.ID, nil, entity.ChatTypeDirect, t0))
	require.NoError(t, err)
	inquiry, _, err := chats.FindOrCreate(ctx, entity.NewChat(alice.ID, bob.ID, &bike.ID, entity.ChatTypeProductInquiry, t0))
	require.NoError(t, err)

	inquiry.AppendMessage(entity.NewMessage(bob.ID, entity.MessageTypeText, "Still have the blue bike", t0.Add(time.Hour)))
	inquiry.Touch(t0.Add(time.Hour))
	require.NoError(t, chats.Update(ctx, inquiry))

	rows, total, err := chats.ListForUser(ctx, repository.ChatListFilter{UserID: alice.ID, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	assert.Equal(t, inquiry.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].UnreadCount)
	assert.Nil(t, rows[0].Messages)
	require.NotNil(t, rows[0].Product)
	assert.Equal(t, "Bike", rows[0].Product.Title)
	require.Len(t, rows[0].Participants, 2)
	assert.Equal(t, "Alice", rows[0].Participants[0].User.Name)
	assert.Equal(t, direct.ID, rows[1].ID)

	rows, total, err = chats.ListForUser(ctx, repository.ChatListFilter{UserID: alice.ID, Search: "BLUE", Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, inquiry.ID, rows[0].ID)

	archived := true
	_, total, err = chats.ListForUser(ctx, repository.ChatListFilter{UserID: alice.ID, Archived: &archived, Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = chats.ListForUser(ctx, repository.ChatListFilter{UserID: primitive.NewObjectID(), Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUserEmailIsUnique(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &entity.User{Name: "Ana", Email: "ana@example.com"}))
	err := users.Create(ctx, &entity.User{Name: "Ana 2", Email: " ANA@example.com"})
	assert.True(t, errors.Is(err, errors.CodeConflict))
}
