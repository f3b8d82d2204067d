package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/pkg/errors"
	"circulapp/pkg/logger"
)

// firestoreChatRepository stores one document per chat, messages embedded.
// Firestore has no aggregation, so listings are filtered, ordered and joined
// in process from the caller's chats.
type firestoreChatRepository struct {
	client   *firestore.Client
	users    repository.UserRepository
	products repository.ProductRepository
	timeout  time.Duration
}

func NewFirestoreChatRepository(client *firestore.Client, users repository.UserRepository, products repository.ProductRepository, timeout time.Duration) repository.ChatRepository {
	return &firestoreChatRepository{
		client:   client,
		users:    users,
		products: products,
		timeout:  timeout,
	}
}

func (r *firestoreChatRepository) chats() *firestore.CollectionRef {
	return r.client.Collection(firestoreChats)
}

func chatDocument(chat *entity.Chat) (map[string]interface{}, error) {
	return withPayload(chat, map[string]interface{}{
		"dedupeKey":    chat.DedupeKey,
		"participants": chat.ParticipantIDs(),
		"isActive":     chat.IsActive,
		"version":      chat.Version,
		"updatedAt":    chat.UpdatedAt,
	})
}

func decodeChat(snap *firestore.DocumentSnapshot) (*entity.Chat, error) {
	var chat entity.Chat
	if err := decodePayload(snap, &chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	return &chat, nil
}

// FindOrCreate serializes on a key document named after the dedupe key, so
// two transactions racing on the same conversation conflict and one retries.
func (r *firestoreChatRepository) FindOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	keyRef := r.client.Collection(firestoreChatKeys).Doc(chat.DedupeKey)

	var result *entity.Chat
	var created bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result, created = nil, false

		keySnap, err := tx.Get(keyRef)
		switch {
		case err == nil:
			chatID, err := keySnap.DataAt("chat")
			if err != nil {
				return err
			}
			id, _ := chatID.(string)
			snap, err := tx.Get(r.chats().Doc(id))
			if err == nil {
				existing, err := decodeChat(snap)
				if err != nil {
					return err
				}
				if existing.IsActive {
					result = existing
					return nil
				}
			} else if status.Code(err) != codes.NotFound {
				return err
			}
		case status.Code(err) != codes.NotFound:
			return err
		}

		data, err := chatDocument(chat)
		if err != nil {
			return err
		}
		if err := tx.Create(r.chats().Doc(chat.ID.Hex()), data); err != nil {
			return err
		}
		result, created = chat.Clone(), true
		return tx.Set(keyRef, map[string]interface{}{"chat": chat.ID.Hex()})
	})
	if err != nil {
		return nil, false, mapFirestoreError("Chat", err)
	}
	if !created {
		logger.Debug("Chat key %s already taken by %s", chat.DedupeKey, result.ID.Hex())
	}
	return result, created, nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap, err := r.chats().Doc(id.Hex()).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError("Chat", err)
	}
	return decodeChat(snap)
}

func (r *firestoreChatRepository) GetForParticipant(ctx context.Context, chatID, userID primitive.ObjectID) (*entity.Chat, error) {
	chat, err := r.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat, nil
}

func (r *firestoreChatRepository) Update(ctx context.Context, chat *entity.Chat) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ref := r.chats().Doc(chat.ID.Hex())
	expected := chat.Version
	chat.Version++

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, err := snap.DataAt("version")
		if err != nil {
			return err
		}
		if v, _ := current.(int64); v != expected {
			return errors.Conflict("Chat was modified concurrently", nil)
		}

		data, err := chatDocument(chat)
		if err != nil {
			return err
		}
		return tx.Set(ref, data)
	})
	if err != nil {
		chat.Version = expected
		return mapFirestoreError("Chat", err)
	}
	return nil
}

func (r *firestoreChatRepository) ListForUser(ctx context.Context, f repository.ChatListFilter) ([]entity.ChatSummary, int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.chats().
		Where("participants", "array-contains", f.UserID.Hex()).
		Where("isActive", "==", true)

	var rows []entity.ChatSummary
	err := eachDoc(query.Documents(queryCtx), func(snap *firestore.DocumentSnapshot) error {
		chat, err := decodeChat(snap)
		if err != nil {
			return err
		}
		if f.ChatType != "" && chat.ChatType != f.ChatType {
			return nil
		}
		if f.Archived != nil && chat.IsArchived != *f.Archived {
			return nil
		}
		if !chat.MatchesSearch(f.Search) {
			return nil
		}

		summary := entity.ChatSummary{
			UnreadCount:  chat.UnreadCount(f.UserID),
			LastActivity: chat.LastActivity(),
		}
		chat.Messages = nil
		summary.Chat = *chat
		rows = append(rows, summary)
		return nil
	})
	if err != nil {
		return nil, 0, mapFirestoreError("Chat", err)
	}

	entity.SortByActivity(rows)
	start, end := entity.PageBounds(len(rows), f.Offset, f.Limit)
	page := append([]entity.ChatSummary{}, rows[start:end]...)

	if err := r.join(ctx, page); err != nil {
		return nil, 0, err
	}
	return page, int64(len(rows)), nil
}

// join fills participant users and product summaries into page.
func (r *firestoreChatRepository) join(ctx context.Context, page []entity.ChatSummary) error {
	var ids []primitive.ObjectID
	for _, row := range page {
		for _, p := range row.Chat.Participants {
			ids = append(ids, p.User)
		}
	}
	users, err := r.users.GetSummaries(ctx, ids)
	if err != nil {
		return err
	}

	for i := range page {
		page[i].Participants = entity.JoinParticipants(page[i].Chat.Participants, users)

		pid := page[i].Chat.Product
		if pid == nil {
			continue
		}
		product, err := r.products.GetByID(ctx, *pid)
		switch {
		case err == nil:
			summary := product.Summary()
			page[i].Product = &summary
		case !errors.Is(err, errors.CodeNotFound):
			return err
		}
	}
	return nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, f repository.MessageListFilter) ([]entity.MessageView, int64, error) {
	chat, err := r.GetByID(ctx, f.ChatID)
	if errors.Is(err, errors.CodeNotFound) {
		return []entity.MessageView{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	matched := chat.VisibleMessages(f.Before, f.After)
	start, end := entity.PageBounds(len(matched), f.Offset, f.Limit)
	page := matched[start:end]

	ids := make([]primitive.ObjectID, 0, len(page))
	for _, m := range page {
		ids = append(ids, m.Sender)
	}
	users, err := r.users.GetSummaries(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	views := make([]entity.MessageView, 0, len(page))
	for _, m := range page {
		view := entity.MessageView{Message: m}
		if u, ok := users[m.Sender.Hex()]; ok {
			view.Sender = &entity.UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
		}
		views = append(views, view)
	}
	return views, int64(len(matched)), nil
}
