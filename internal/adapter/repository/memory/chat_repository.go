package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/pkg/errors"
)

type chatRepository struct {
	store *Store
}

func (r *chatRepository) FindOrCreate(_ context.Context, chat *entity.Chat) (*entity.Chat, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.chats {
		if existing.IsActive && existing.DedupeKey == chat.DedupeKey {
			return existing.Clone(), false, nil
		}
	}

	s.chats[chat.ID] = chat.Clone()
	return chat.Clone(), true, nil
}

func (r *chatRepository) GetByID(_ context.Context, id primitive.ObjectID) (*entity.Chat, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat.Clone(), nil
}

func (r *chatRepository) GetForParticipant(_ context.Context, chatID, userID primitive.ObjectID) (*entity.Chat, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[chatID]
	if !ok || !chat.IsParticipant(userID) {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat.Clone(), nil
}

func (r *chatRepository) Update(_ context.Context, chat *entity.Chat) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.chats[chat.ID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	if current.Version != chat.Version {
		return errors.Conflict("Chat was modified concurrently", nil)
	}

	chat.Version++
	s.chats[chat.ID] = chat.Clone()
	return nil
}

func (r *chatRepository) ListForUser(_ context.Context, f repository.ChatListFilter) ([]entity.ChatSummary, int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []entity.ChatSummary
	for _, c := range s.chats {
		if !c.IsActive || !c.IsParticipant(f.UserID) {
			continue
		}
		if f.ChatType != "" && c.ChatType != f.ChatType {
			continue
		}
		if f.Archived != nil && c.IsArchived != *f.Archived {
			continue
		}
		if !c.MatchesSearch(f.Search) {
			continue
		}

		chat := c.Clone()
		summary := entity.ChatSummary{
			UnreadCount:  chat.UnreadCount(f.UserID),
			LastActivity: chat.LastActivity(),
		}
		chat.Messages = nil
		summary.Chat = *chat
		rows = append(rows, summary)
	}

	entity.SortByActivity(rows)

	start, end := entity.PageBounds(len(rows), f.Offset, f.Limit)
	page := rows[start:end]

	for i := range page {
		users := make(map[string]entity.UserSummary)
		for _, p := range page[i].Chat.Participants {
			if u, ok := s.users[p.User]; ok {
				users[p.User.Hex()] = u.Summary()
			}
		}
		page[i].Participants = entity.JoinParticipants(page[i].Chat.Participants, users)

		if pid := page[i].Chat.Product; pid != nil {
			if p, ok := s.products[*pid]; ok {
				summary := p.Summary()
				page[i].Product = &summary
			}
		}
	}

	return append([]entity.ChatSummary{}, page...), int64(len(rows)), nil
}

func (r *chatRepository) ListMessages(_ context.Context, f repository.MessageListFilter) ([]entity.MessageView, int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[f.ChatID]
	if !ok {
		return []entity.MessageView{}, 0, nil
	}

	matched := chat.VisibleMessages(f.Before, f.After)

	start, end := entity.PageBounds(len(matched), f.Offset, f.Limit)
	views := make([]entity.MessageView, 0, end-start)
	for _, m := range matched[start:end] {
		m.Reactions = append([]entity.Reaction{}, m.Reactions...)
		view := entity.MessageView{Message: m}
		if u, ok := s.users[m.Sender]; ok {
			summary := entity.UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
			view.Sender = &summary
		}
		views = append(views, view)
	}
	return views, int64(len(matched)), nil
}
