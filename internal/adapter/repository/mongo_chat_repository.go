package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/internal/infrastructure/mongodb"
	"circulapp/pkg/errors"
	"circulapp/pkg/logger"
)

type mongoChatRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoChatRepository(db *mongo.Database, timeout time.Duration) repository.ChatRepository {
	return &mongoChatRepository{
		collection: db.Collection(mongodb.ChatsCollection),
		timeout:    timeout,
	}
}

type countRow struct {
	Count int64 `bson:"count"`
}

type chatListRow struct {
	entity.Chat      `bson:",inline"`
	UnreadCount      int                     `bson:"unreadCount"`
	LastActivity     time.Time               `bson:"lastActivity"`
	ParticipantUsers []entity.UserSummary    `bson:"participantUsers"`
	ProductData      []entity.ProductSummary `bson:"productData"`
}

type messageRow struct {
	entity.Message `bson:",inline"`
	SenderInfo     []entity.UserSummary `bson:"senderInfo"`
}

func (r *mongoChatRepository) FindOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"dedupeKey": chat.DedupeKey, "isActive": true}
	update := bson.M{"$setOnInsert": chat}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var found entity.Chat
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&found)
	if mongo.IsDuplicateKeyError(err) {
		// Another request inserted the same conversation first.
		logger.Debug("Concurrent insert for chat key %s, reading winner", chat.DedupeKey)
		err = r.collection.FindOne(ctx, filter).Decode(&found)
	}
	if err != nil {
		return nil, false, mapMongoError("Chat", err)
	}

	return &found, found.ID == chat.ID, nil
}

func (r *mongoChatRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var chat entity.Chat
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&chat); err != nil {
		return nil, mapMongoError("Chat", err)
	}
	return &chat, nil
}

func (r *mongoChatRepository) GetForParticipant(ctx context.Context, chatID, userID primitive.ObjectID) (*entity.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var chat entity.Chat
	filter := bson.M{"_id": chatID, "participants.user": userID}
	if err := r.collection.FindOne(ctx, filter).Decode(&chat); err != nil {
		return nil, mapMongoError("Chat", err)
	}
	return &chat, nil
}

func (r *mongoChatRepository) Update(ctx context.Context, chat *entity.Chat) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	expected := chat.Version
	chat.Version = expected + 1

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": chat.ID, "version": expected}, chat)
	if err != nil {
		chat.Version = expected
		return mapMongoError("Chat", err)
	}
	if result.MatchedCount == 0 {
		chat.Version = expected
		return errors.Conflict("Chat was modified concurrently", nil)
	}
	return nil
}

func (r *mongoChatRepository) ListForUser(ctx context.Context, filter repository.ChatListFilter) ([]entity.ChatSummary, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.collection.Aggregate(ctx, buildChatListPipeline(filter))
	if err != nil {
		return nil, 0, mapMongoError("Chat", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Items []chatListRow `bson:"items"`
		Total []countRow    `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, mapMongoError("Chat", err)
	}
	if len(results) == 0 {
		return []entity.ChatSummary{}, 0, nil
	}

	var total int64
	if len(results[0].Total) > 0 {
		total = results[0].Total[0].Count
	}

	summaries := make([]entity.ChatSummary, 0, len(results[0].Items))
	for _, row := range results[0].Items {
		users := make(map[string]entity.UserSummary, len(row.ParticipantUsers))
		for _, u := range row.ParticipantUsers {
			users[u.ID.Hex()] = u
		}

		summary := entity.ChatSummary{
			Chat:         row.Chat,
			Participants: entity.JoinParticipants(row.Chat.Participants, users),
			UnreadCount:  row.UnreadCount,
			LastActivity: row.LastActivity,
		}
		if len(row.ProductData) > 0 {
			p := row.ProductData[0]
			summary.Product = &p
		}
		summaries = append(summaries, summary)
	}

	return summaries, total, nil
}

func (r *mongoChatRepository) ListMessages(ctx context.Context, filter repository.MessageListFilter) ([]entity.MessageView, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.collection.Aggregate(ctx, buildMessageListPipeline(filter))
	if err != nil {
		return nil, 0, mapMongoError("Message", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Items []messageRow `bson:"items"`
		Total []countRow   `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, mapMongoError("Message", err)
	}
	if len(results) == 0 {
		return []entity.MessageView{}, 0, nil
	}

	var total int64
	if len(results[0].Total) > 0 {
		total = results[0].Total[0].Count
	}

	views := make([]entity.MessageView, 0, len(results[0].Items))
	for _, row := range results[0].Items {
		view := entity.MessageView{Message: row.Message}
		if len(row.SenderInfo) > 0 {
			s := row.SenderInfo[0]
			view.Sender = &s
		}
		views = append(views, view)
	}
	return views, total, nil
}
