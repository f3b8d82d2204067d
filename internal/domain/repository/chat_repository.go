package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
)

type ChatListFilter struct {
	UserID   primitive.ObjectID
	ChatType string
	Archived *bool
	Search   string
	Offset   int
	Limit    int
}

type MessageListFilter struct {
	ChatID primitive.ObjectID
	Before *time.Time
	After  *time.Time
	Offset int
	Limit  int
}

type ChatRepository interface {
	// FindOrCreate returns the active chat sharing chat.DedupeKey, inserting
	// chat when there is none. It is atomic: concurrent callers with the
	// same key observe a single chat. created is true for the inserting call.
	FindOrCreate(ctx context.Context, chat *entity.Chat) (result *entity.Chat, created bool, err error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Chat, error)
	// GetForParticipant loads a chat, active or not, only if userID takes part in it.
	GetForParticipant(ctx context.Context, chatID, userID primitive.ObjectID) (*entity.Chat, error)
	// Update saves chat if nobody else saved it since it was loaded, and
	// bumps chat.Version. A stale version yields a CONFLICT error.
	Update(ctx context.Context, chat *entity.Chat) error

	ListForUser(ctx context.Context, filter ChatListFilter) ([]entity.ChatSummary, int64, error)
	// ListMessages returns one page of non-deleted messages, newest first.
	ListMessages(ctx context.Context, filter MessageListFilter) ([]entity.MessageView, int64, error)
}
