package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/internal/infrastructure/metrics"
	"circulapp/internal/infrastructure/ratelimit"
	ws "circulapp/internal/infrastructure/websocket"
	"circulapp/pkg/errors"
	"circulapp/pkg/logger"
)

const (
	maxWriteAttempts = 3
	maxSearchLength  = 100
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	notifier    Notifier
	rateLimiter RateLimiter
	now         func() time.Time
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	notifier Notifier,
	rateLimiter RateLimiter,
) *ChatUseCase {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		notifier:    notifier,
		rateLimiter: rateLimiter,
		now:         clock,
	}
}

type StartChatInput struct {
	ProductID      string
	UserID         string
	InitialMessage string
	ChatType       string
}

type StartChatResult struct {
	Chat    *entity.ChatSummary
	Created bool
}

type SendMessageInput struct {
	Content     string
	MessageType string
	Attachments []entity.Attachment
	Location    *entity.Location
	ReplyTo     string
}

type ListChatsInput struct {
	ChatType string
	Archived *bool
	Search   string
	Offset   int
	Limit    int
}

type ListMessagesInput struct {
	Before *time.Time
	After  *time.Time
	Offset int
	Limit  int
}

type MessagePage struct {
	Messages []entity.MessageView
	Total    int64
	ChatInfo entity.ChatInfo
}

type ReactionResult struct {
	Reactions []entity.Reaction
	Added     bool
}

func (uc *ChatUseCase) StartChat(ctx context.Context, userID string, input StartChatInput) (*StartChatResult, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	if err := checkRate(uc.rateLimiter, userID, ratelimit.ActionStartChat); err != nil {
		return nil, err
	}

	counterpart, product, chatType, err := uc.resolveCounterpart(ctx, caller, input)
	if err != nil {
		return nil, err
	}

	initial := strings.TrimSpace(input.InitialMessage)
	if utf8.RuneCountInString(initial) > entity.MaxMessageLength {
		return nil, errors.InvalidMessage("Message content cannot exceed 2000 characters")
	}

	candidate := entity.NewChat(caller, counterpart, product, chatType, uc.now())
	chat, created, err := uc.chatRepo.FindOrCreate(ctx, candidate)
	if err != nil {
		logger.Error("StartChat: find-or-create for %s failed: %v", candidate.DedupeKey, err)
		return nil, err
	}
	metrics.RecordChatStarted(created)

	var sent *entity.Message
	if initial != "" {
		msg := entity.NewMessage(caller, entity.MessageTypeText, initial, uc.now())
		chat, err = uc.mutateChat(ctx, chat.ID, caller, func(c *entity.Chat) error {
			if !c.CanUserWrite(caller) {
				return errors.Forbidden("Chat is not active", nil)
			}
			c.AppendMessage(msg)
			return nil
		})
		if err != nil {
			return nil, err
		}
		sent = &msg
		metrics.RecordMessageSent(msg.MessageType)
	}

	summary, err := uc.populate(ctx, chat, caller)
	if err != nil {
		return nil, err
	}

	others := chat.Counterparts(caller)
	if created {
		uc.notifier.Notify(others, ws.EventChatCreated, chat.ID.Hex(), summary)
	}
	if sent != nil {
		view, err := uc.messageView(ctx, *sent)
		if err != nil {
			return nil, err
		}
		uc.notifier.Notify(others, ws.EventMessageNew, chat.ID.Hex(), view)
	}

	logger.Debug("StartChat: user %s chat %s created=%t", userID, chat.ID.Hex(), created)
	return &StartChatResult{Chat: summary, Created: created}, nil
}

func (uc *ChatUseCase) resolveCounterpart(ctx context.Context, caller primitive.ObjectID, input StartChatInput) (primitive.ObjectID, *primitive.ObjectID, string, error) {
	chatType := input.ChatType

	if input.ProductID != "" {
		productID, err := primitive.ObjectIDFromHex(input.ProductID)
		if err != nil {
			return primitive.NilObjectID, nil, "", errors.Validation("Invalid product id",
				errors.FieldError{Field: "productId", Message: "productId must be a valid id"})
		}
		product, err := uc.productRepo.GetByID(ctx, productID)
		if err != nil {
			return primitive.NilObjectID, nil, "", err
		}
		if !product.IsActive {
			return primitive.NilObjectID, nil, "", errors.NotFound("Product", nil)
		}
		if product.Owner == caller {
			return primitive.NilObjectID, nil, "", errors.CallerIsTarget("You cannot start a chat about your own product")
		}
		if chatType == "" {
			chatType = entity.ChatTypeProductInquiry
		}
		return product.Owner, &product.ID, chatType, nil
	}

	if input.UserID == "" {
		return primitive.NilObjectID, nil, "", errors.Validation("Either productId or userId is required")
	}
	target, err := primitive.ObjectIDFromHex(input.UserID)
	if err != nil {
		return primitive.NilObjectID, nil, "", errors.Validation("Invalid user id",
			errors.FieldError{Field: "userId", Message: "userId must be a valid id"})
	}
	if target == caller {
		return primitive.NilObjectID, nil, "", errors.CallerIsTarget("You cannot start a chat with yourself")
	}
	user, err := uc.userRepo.GetByID(ctx, target)
	if err != nil {
		return primitive.NilObjectID, nil, "", err
	}
	if !user.IsActive {
		return primitive.NilObjectID, nil, "", errors.NotFound("User", nil)
	}
	if chatType == "" {
		chatType = entity.ChatTypeDirect
	}
	return target, nil, chatType, nil
}

func (uc *ChatUseCase) SendMessage(ctx context.Context, userID, chatID string, input SendMessageInput) (*entity.MessageView, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return nil, err
	}
	if err := checkRate(uc.rateLimiter, userID, ratelimit.ActionSendMessage); err != nil {
		return nil, err
	}

	msg := entity.NewMessage(caller, input.MessageType, input.Content, uc.now())
	if !entity.IsUserSubmittable(msg.MessageType) {
		return nil, errors.InvalidMessage("Message type " + msg.MessageType + " cannot be sent directly")
	}
	for _, a := range input.Attachments {
		if a.Type == "" {
			a.Type = entity.AttachmentTypeFromMime(a.Mimetype)
		}
		msg.Attachments = append(msg.Attachments, a)
	}
	msg.Location = input.Location
	if input.ReplyTo != "" {
		replyTo, err := primitive.ObjectIDFromHex(input.ReplyTo)
		if err != nil {
			return nil, errors.BadRequest("Reply target not found in this chat", nil)
		}
		msg.ReplyTo = &replyTo
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	chat, err := uc.mutateChat(ctx, id, caller, func(c *entity.Chat) error {
		if !c.CanUserWrite(caller) {
			return errors.Forbidden("Chat is not active", nil)
		}
		if len(msg.Attachments) > 0 && !c.Settings.AllowFileSharing {
			return errors.Forbidden("File sharing is disabled in this chat", nil)
		}
		if msg.Location != nil && !c.Settings.AllowLocationSharing {
			return errors.Forbidden("Location sharing is disabled in this chat", nil)
		}
		if msg.ReplyTo != nil && c.FindMessage(*msg.ReplyTo) == nil {
			return errors.BadRequest("Reply target not found in this chat", nil)
		}
		c.AppendMessage(msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordMessageSent(msg.MessageType)

	view, err := uc.messageView(ctx, msg)
	if err != nil {
		return nil, err
	}
	uc.notifier.Notify(chat.Counterparts(caller), ws.EventMessageNew, chatID, view)
	return view, nil
}

func (uc *ChatUseCase) EditMessage(ctx context.Context, userID, chatID, messageID, content string) (*entity.MessageView, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return nil, err
	}
	mid, err := resourceID(messageID, "Message")
	if err != nil {
		return nil, err
	}

	var edited entity.Message
	chat, err := uc.mutateChat(ctx, id, caller, func(c *entity.Chat) error {
		if !c.CanUserWrite(caller) {
			return errors.Forbidden("Chat is not active", nil)
		}
		m := c.FindMessage(mid)
		if m == nil {
			return errors.NotFound("Message", nil)
		}
		if err := m.Edit(caller, content, uc.now()); err != nil {
			return err
		}
		edited = *m
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := uc.messageView(ctx, edited)
	if err != nil {
		return nil, err
	}
	uc.notifier.Notify(chat.Counterparts(caller), ws.EventMessageEdited, chatID, view)
	return view, nil
}

func (uc *ChatUseCase) DeleteMessage(ctx context.Context, userID, chatID, messageID string) error {
	caller, err := callerID(userID)
	if err != nil {
		return err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return err
	}
	mid, err := resourceID(messageID, "Message")
	if err != nil {
		return err
	}

	chat, err := uc.mutateChat(ctx, id, caller, func(c *entity.Chat) error {
		if !c.CanUserWrite(caller) {
			return errors.Forbidden("Chat is not active", nil)
		}
		m := c.FindMessage(mid)
		if m == nil {
			return errors.NotFound("Message", nil)
		}
		return m.SoftDelete(caller, uc.now())
	})
	if err != nil {
		return err
	}

	uc.notifier.Notify(chat.Counterparts(caller), ws.EventMessageDeleted, chatID, map[string]string{"messageId": messageID})
	return nil
}

func (uc *ChatUseCase) ReactToMessage(ctx context.Context, userID, chatID, messageID, emoji string) (*ReactionResult, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return nil, err
	}
	mid, err := resourceID(messageID, "Message")
	if err != nil {
		return nil, err
	}

	emoji = strings.TrimSpace(emoji)
	if n := utf8.RuneCountInString(emoji); n < 1 || n > entity.MaxEmojiLength {
		return nil, errors.Validation("Emoji must be between 1 and 10 characters",
			errors.FieldError{Field: "emoji", Message: "emoji must be between 1 and 10 characters"})
	}
	if err := checkRate(uc.rateLimiter, userID, ratelimit.ActionReact); err != nil {
		return nil, err
	}

	result := &ReactionResult{}
	chat, err := uc.mutateChat(ctx, id, caller, func(c *entity.Chat) error {
		if !c.CanUserWrite(caller) {
			return errors.Forbidden("Chat is not active", nil)
		}
		m := c.FindMessage(mid)
		if m == nil || m.IsDeleted {
			return errors.NotFound("Message", nil)
		}
		result.Added = m.ToggleReaction(caller, emoji, uc.now())
		result.Reactions = append([]entity.Reaction{}, m.Reactions...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(chat.Counterparts(caller), ws.EventMessageReaction, chatID, map[string]interface{}{
		"messageId": messageID,
		"reactions": result.Reactions,
	})
	return result, nil
}

// MarkAsRead moves the caller's read watermark past everything currently in the chat.
func (uc *ChatUseCase) MarkAsRead(ctx context.Context, userID, chatID string) error {
	caller, err := callerID(userID)
	if err != nil {
		return err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return err
	}

	var readAt time.Time
	chat, err := uc.mutateChat(ctx, id, caller, func(c *entity.Chat) error {
		c.MarkRead(caller, uc.now())
		readAt = c.ReadWatermark(caller)
		return nil
	})
	if err != nil {
		return err
	}

	uc.notifier.Notify(chat.Counterparts(caller), ws.EventChatRead, chatID, map[string]interface{}{
		"userId":   userID,
		"lastSeen": readAt,
	})
	return nil
}

func (uc *ChatUseCase) SetArchived(ctx context.Context, userID, chatID string, archived bool) error {
	caller, err := callerID(userID)
	if err != nil {
		return err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return err
	}

	_, err = uc.mutateChat(ctx, id, caller, func(c *entity.Chat) error {
		c.IsArchived = archived
		return nil
	})
	return err
}

func (uc *ChatUseCase) ListChats(ctx context.Context, userID string, input ListChatsInput) ([]entity.ChatSummary, int64, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, 0, err
	}

	switch input.ChatType {
	case "", entity.ChatTypeDirect, entity.ChatTypeGroup, entity.ChatTypeProductInquiry:
	default:
		return nil, 0, errors.Validation("Invalid chat type",
			errors.FieldError{Field: "type", Message: "type must be one of direct, group, product_inquiry"})
	}
	search := strings.TrimSpace(input.Search)
	if utf8.RuneCountInString(search) > maxSearchLength {
		return nil, 0, errors.Validation("Search is too long",
			errors.FieldError{Field: "search", Message: "search must be at most 100 characters"})
	}

	chats, total, err := uc.chatRepo.ListForUser(ctx, repository.ChatListFilter{
		UserID:   caller,
		ChatType: input.ChatType,
		Archived: input.Archived,
		Search:   search,
		Offset:   input.Offset,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, 0, err
	}
	if chats == nil {
		chats = []entity.ChatSummary{}
	}
	return chats, total, nil
}

// ListMessages returns one page of visible messages in chronological order
// and marks the chat read for the caller.
func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, chatID string, input ListMessagesInput) (*MessagePage, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return nil, err
	}

	chat, err := uc.chatRepo.GetForParticipant(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	messages, total, err := uc.chatRepo.ListMessages(ctx, repository.MessageListFilter{
		ChatID: id,
		Before: input.Before,
		After:  input.After,
		Offset: input.Offset,
		Limit:  input.Limit,
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if messages == nil {
		messages = []entity.MessageView{}
	}

	if err := uc.MarkAsRead(ctx, userID, chatID); err != nil {
		logger.Warn("ListMessages: mark read for %s on %s failed: %v", userID, chatID, err)
	}

	return &MessagePage{
		Messages: messages,
		Total:    total,
		ChatInfo: chat.Info(),
	}, nil
}

// GetMessage returns one message by id, soft-deleted ones included.
func (uc *ChatUseCase) GetMessage(ctx context.Context, userID, chatID, messageID string) (*entity.MessageView, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return nil, err
	}
	mid, err := resourceID(messageID, "Message")
	if err != nil {
		return nil, err
	}

	chat, err := uc.chatRepo.GetForParticipant(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	m := chat.FindMessage(mid)
	if m == nil {
		return nil, errors.NotFound("Message", nil)
	}
	return uc.messageView(ctx, *m)
}

func (uc *ChatUseCase) GetChat(ctx context.Context, userID, chatID string) (*entity.ChatSummary, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return nil, err
	}

	chat, err := uc.chatRepo.GetForParticipant(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return uc.populate(ctx, chat, caller)
}

// Counterparts lists the other participants of a chat the caller belongs to.
func (uc *ChatUseCase) Counterparts(ctx context.Context, userID, chatID string) ([]string, error) {
	caller, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	id, err := resourceID(chatID, "Chat")
	if err != nil {
		return nil, err
	}

	chat, err := uc.chatRepo.GetForParticipant(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return chat.Counterparts(caller), nil
}

// mutateChat loads the chat, applies fn and saves it. A concurrent save
// between load and write makes it reload and reapply fn.
func (uc *ChatUseCase) mutateChat(ctx context.Context, chatID, userID primitive.ObjectID, fn func(*entity.Chat) error) (*entity.Chat, error) {
	for attempt := 1; ; attempt++ {
		chat, err := uc.chatRepo.GetForParticipant(ctx, chatID, userID)
		if err != nil {
			return nil, err
		}
		if err := fn(chat); err != nil {
			return nil, err
		}
		chat.Touch(uc.now())

		err = uc.chatRepo.Update(ctx, chat)
		if err == nil {
			return chat, nil
		}
		if !errors.Is(err, errors.CodeConflict) {
			return nil, err
		}
		metrics.WriteConflictsTotal.Inc()
		if attempt == maxWriteAttempts {
			logger.Warn("Chat %s: giving up after %d conflicting writes", chatID.Hex(), attempt)
			return nil, err
		}
	}
}

func (uc *ChatUseCase) populate(ctx context.Context, chat *entity.Chat, caller primitive.ObjectID) (*entity.ChatSummary, error) {
	ids := make([]primitive.ObjectID, 0, len(chat.Participants))
	for _, p := range chat.Participants {
		ids = append(ids, p.User)
	}
	users, err := uc.userRepo.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	summary := &entity.ChatSummary{
		Chat:         *chat,
		Participants: entity.JoinParticipants(chat.Participants, users),
		UnreadCount:  chat.UnreadCount(caller),
		LastActivity: chat.LastActivity(),
	}

	if chat.Product != nil {
		product, err := uc.productRepo.GetByID(ctx, *chat.Product)
		switch {
		case err == nil:
			ps := product.Summary()
			summary.Product = &ps
		case !errors.Is(err, errors.CodeNotFound):
			return nil, err
		}
	}
	return summary, nil
}

func (uc *ChatUseCase) messageView(ctx context.Context, m entity.Message) (*entity.MessageView, error) {
	users, err := uc.userRepo.GetSummaries(ctx, []primitive.ObjectID{m.Sender})
	if err != nil {
		return nil, err
	}
	view := &entity.MessageView{Message: m}
	if u, ok := users[m.Sender.Hex()]; ok {
		view.Sender = &entity.UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
	}
	return view, nil
}
