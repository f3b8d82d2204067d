package repository

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"circulapp/internal/domain/repository"
	"circulapp/internal/infrastructure/mongodb"
)

var userSummaryProjection = bson.M{"name": 1, "avatar": 1, "reputation": 1}

// chatListMatch selects the active chats a user takes part in.
func chatListMatch(f repository.ChatListFilter) bson.M {
	match := bson.M{
		"participants.user": f.UserID,
		"isActive":          true,
	}
	if f.ChatType != "" {
		match["chatType"] = f.ChatType
	}
	if f.Archived != nil {
		match["isArchived"] = *f.Archived
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		match["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"description": rx},
			bson.M{"lastMessage.content": rx},
		}
	}
	return match
}

// unreadCountExpr counts messages from others, not deleted, created at or
// after the caller's lastSeen (or the chat's createdAt when unset). It
// expects the caller's participant entry in $_me.
func unreadCountExpr(userID primitive.ObjectID) bson.M {
	return bson.M{"$size": bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$messages", bson.A{}}},
		"as":    "m",
		"cond": bson.M{"$and": bson.A{
			bson.M{"$ne": bson.A{"$$m.sender", userID}},
			bson.M{"$ne": bson.A{"$$m.isDeleted", true}},
			bson.M{"$gte": bson.A{"$$m.createdAt", bson.M{"$ifNull": bson.A{"$_me.lastSeen", "$createdAt"}}}},
		}},
	}}}
}

func buildChatListPipeline(f repository.ChatListFilter) mongo.Pipeline {
	me := bson.M{"$arrayElemAt": bson.A{
		bson.M{"$filter": bson.M{
			"input": "$participants",
			"as":    "p",
			"cond":  bson.M{"$eq": bson.A{"$$p.user", f.UserID}},
		}},
		0,
	}}

	items := bson.A{
		bson.M{"$sort": bson.D{{Key: "lastActivity", Value: -1}, {Key: "_id", Value: -1}}},
		bson.M{"$skip": f.Offset},
		bson.M{"$limit": f.Limit},
		bson.M{"$project": bson.M{"messages": 0, "_me": 0}},
		bson.M{"$lookup": bson.M{
			"from": mongodb.UsersCollection,
			"let":  bson.M{"ids": "$participants.user"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$in": bson.A{"$_id", "$$ids"}}}},
				bson.M{"$project": userSummaryProjection},
			},
			"as": "participantUsers",
		}},
		bson.M{"$lookup": bson.M{
			"from": mongodb.ProductsCollection,
			"let":  bson.M{"pid": "$product"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$pid"}}}},
				bson.M{"$project": bson.M{"title": 1, "images": 1, "status": 1, "category": 1}},
			},
			"as": "productData",
		}},
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: chatListMatch(f)}},
		{{Key: "$addFields", Value: bson.M{"_me": me}}},
		{{Key: "$addFields", Value: bson.M{
			"unreadCount":  unreadCountExpr(f.UserID),
			"lastActivity": bson.M{"$max": bson.A{"$lastMessage.timestamp", "$updatedAt"}},
		}}},
		{{Key: "$facet", Value: bson.M{
			"items": items,
			"total": bson.A{bson.M{"$count": "count"}},
		}}},
	}
}

func messageListMatch(f repository.MessageListFilter) bson.M {
	match := bson.M{"messages.isDeleted": bson.M{"$ne": true}}

	created := bson.M{}
	if f.Before != nil {
		created["$lt"] = *f.Before
	}
	if f.After != nil {
		created["$gt"] = *f.After
	}
	if len(created) > 0 {
		match["messages.createdAt"] = created
	}
	return match
}

// buildMessageListPipeline flattens the embedded log of one chat and pages
// through it newest first, joining each sender.
func buildMessageListPipeline(f repository.MessageListFilter) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": f.ChatID}}},
		{{Key: "$unwind", Value: "$messages"}},
		{{Key: "$match", Value: messageListMatch(f)}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$messages"}}},
		{{Key: "$facet", Value: bson.M{
			"items": bson.A{
				bson.M{"$sort": bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
				bson.M{"$skip": f.Offset},
				bson.M{"$limit": f.Limit},
				bson.M{"$lookup": bson.M{
					"from": mongodb.UsersCollection,
					"let":  bson.M{"sid": "$sender"},
					"pipeline": bson.A{
						bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$sid"}}}},
						bson.M{"$project": bson.M{"name": 1, "avatar": 1}},
					},
					"as": "senderInfo",
				}},
			},
			"total": bson.A{bson.M{"$count": "count"}},
		}}},
	}
}
