package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"circulapp/internal/domain/repository"
	"circulapp/pkg/errors"
)

func stageName(t *testing.T, stage bson.D) string {
	require.Len(t, stage, 1)
	return stage[0].Key
}

func TestChatListMatchFilters(t *testing.T) {
	uid := primitive.NewObjectID()
	archived := true

	match := chatListMatch(repository.ChatListFilter{
		UserID:   uid,
		ChatType: "direct",
		Archived: &archived,
		Search:   "bike (blue)",
	})

	assert.Equal(t, uid, match["participants.user"])
	assert.Equal(t, true, match["isActive"])
	assert.Equal(t, "direct", match["chatType"])
	assert.Equal(t, true, match["isArchived"])

	or, ok := match["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 3)
	rx := or[0].(bson.M)["title"].(primitive.Regex)
	assert.Equal(t, `bike \(blue\)`, rx.Pattern)
	assert.Equal(t, "i", rx.Options)
}

func TestChatListMatchOmitsUnsetFilters(t *testing.T) {
	match := chatListMatch(repository.ChatListFilter{UserID: primitive.NewObjectID(), Search: "   "})

	assert.NotContains(t, match, "chatType")
	assert.NotContains(t, match, "isArchived")
	assert.NotContains(t, match, "$or")
}

func TestBuildChatListPipelineShape(t *testing.T) {
	pipeline := buildChatListPipeline(repository.ChatListFilter{
		UserID: primitive.NewObjectID(),
		Offset: 40,
		Limit:  20,
	})

	require.Len(t, pipeline, 4)
	assert.Equal(t, "$match", stageName(t, pipeline[0]))
	assert.Equal(t, "$addFields", stageName(t, pipeline[1]))
	assert.Equal(t, "$addFields", stageName(t, pipeline[2]))
	assert.Equal(t, "$facet", stageName(t, pipeline[3]))

	derived := pipeline[2][0].Value.(bson.M)
	assert.Contains(t, derived, "unreadCount")
	assert.Contains(t, derived, "lastActivity")

	facet := pipeline[3][0].Value.(bson.M)
	items := facet["items"].(bson.A)
	assert.Equal(t, bson.M{"$skip": 40}, items[1])
	assert.Equal(t, bson.M{"$limit": 20}, items[2])
	assert.Equal(t, bson.M{"$project": bson.M{"messages": 0, "_me": 0}}, items[3])
}

func TestMessageListMatchBounds(t *testing.T) {
	before := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	after := before.Add(-time.Hour)

	match := messageListMatch(repository.MessageListFilter{Before: &before, After: &after})
	assert.Equal(t, bson.M{"$ne": true}, match["messages.isDeleted"])
	assert.Equal(t, bson.M{"$lt": before, "$gt": after}, match["messages.createdAt"])

	match = messageListMatch(repository.MessageListFilter{})
	assert.NotContains(t, match, "messages.createdAt")
}

func TestBuildMessageListPipelineShape(t *testing.T) {
	chatID := primitive.NewObjectID()
	pipeline := buildMessageListPipeline(repository.MessageListFilter{ChatID: chatID, Limit: 50})

	require.Len(t, pipeline, 5)
	assert.Equal(t, bson.M{"_id": chatID}, pipeline[0][0].Value)
	assert.Equal(t, "$unwind", stageName(t, pipeline[1]))
	assert.Equal(t, "$replaceRoot", stageName(t, pipeline[3]))

	items := pipeline[4][0].Value.(bson.M)["items"].(bson.A)
	assert.Equal(t, bson.M{"$sort": bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}, items[0])
}

func TestMapMongoError(t *testing.T) {
	assert.Nil(t, mapMongoError("Chat", nil))
	assert.True(t, errors.Is(mapMongoError("Chat", mongo.ErrNoDocuments), errors.CodeNotFound))

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.True(t, errors.Is(mapMongoError("Chat", dup), errors.CodeConflict))

	assert.True(t, errors.Is(mapMongoError("Chat", fmt.Errorf("network down")), errors.CodeInternal))

	passthrough := errors.Forbidden("nope", nil)
	assert.Equal(t, passthrough, mapMongoError("Chat", passthrough))
}
