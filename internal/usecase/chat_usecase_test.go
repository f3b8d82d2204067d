package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulapp/internal/adapter/repository/memory"
	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	ws "circulapp/internal/infrastructure/websocket"
	"circulapp/pkg/errors"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

// now advances one second per call so consecutive writes are ordered.
func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentEvent struct {
	to     []string
	kind   string
	chatID string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(userIDs []string, eventType, chatID string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{to: userIDs, kind: eventType, chatID: chatID})
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.kind)
	}
	return out
}

type chatFixture struct {
	ctx      context.Context
	store    *memory.Store
	uc       *ChatUseCase
	notifier *recordingNotifier
	clock    *testClock
	alice    string
	bob      string
	carol    string
	product  string
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clk := &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	mkUser := func(name string) string {
		u := &entity.User{Name: name, Email: name + "@example.com", IsActive: true, UserType: entity.UserTypeIndividual}
		require.NoError(t, store.Users().Create(ctx, u))
		return u.ID.Hex()
	}
	alice, bob, carol := mkUser("alice"), mkUser("bob"), mkUser("carol")

	bobID, err := callerID(bob)
	require.NoError(t, err)
	p := &entity.Product{Owner: bobID, Title: "Bicycle", Category: "sports", Status: entity.ProductStatusAvailable, IsActive: true}
	require.NoError(t, store.Products().Create(ctx, p))

	notifier := &recordingNotifier{}
	uc := NewChatUseCase(store.Chats(), store.Users(), store.Products(), notifier, nil)
	uc.now = clk.now

	return &chatFixture{
		ctx:      ctx,
		store:    store,
		uc:       uc,
		notifier: notifier,
		clock:    clk,
		alice:    alice,
		bob:      bob,
		carol:    carol,
		product:  p.ID.Hex(),
	}
}

func (f *chatFixture) directChat(t *testing.T) string {
	t.Helper()
	res, err := f.uc.StartChat(f.ctx, f.alice, StartChatInput{UserID: f.bob})
	require.NoError(t, err)
	return res.Chat.ID.Hex()
}

func (f *chatFixture) send(t *testing.T, userID, chatID, content string) string {
	t.Helper()
	msg, err := f.uc.SendMessage(f.ctx, userID, chatID, SendMessageInput{Content: content})
	require.NoError(t, err)
	return msg.ID.Hex()
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, code), "expected %s, got %v", code, err)
}

func TestStartProductChatThenReadClearsUnread(t *testing.T) {
	f := newChatFixture(t)

	res, err := f.uc.StartChat(f.ctx, f.alice, StartChatInput{ProductID: f.product, InitialMessage: "  Interested!  "})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, entity.ChatTypeProductInquiry, res.Chat.ChatType)
	assert.Len(t, res.Chat.Participants, 2)
	require.Len(t, res.Chat.Messages, 1)
	assert.Equal(t, "Interested!", res.Chat.Messages[0].Content)
	require.NotNil(t, res.Chat.Product)
	assert.Equal(t, "Bicycle", res.Chat.Product.Title)
	assert.Equal(t, []string{ws.EventChatCreated, ws.EventMessageNew}, f.notifier.kinds())

	chatID := res.Chat.ID.Hex()
	bobView, err := f.uc.GetChat(f.ctx, f.bob, chatID)
	require.NoError(t, err)
	assert.Equal(t, 1, bobView.UnreadCount)

	page, err := f.uc.ListMessages(f.ctx, f.bob, chatID, ListMessagesInput{Limit: 50})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	require.NotNil(t, page.Messages[0].Sender)
	assert.Equal(t, "alice", page.Messages[0].Sender.Name)
	assert.Equal(t, chatID, page.ChatInfo.ID)
	assert.Equal(t, 2, page.ChatInfo.ParticipantCount)

	bobView, err = f.uc.GetChat(f.ctx, f.bob, chatID)
	require.NoError(t, err)
	assert.Equal(t, 0, bobView.UnreadCount)

	chats, total, err := f.uc.ListChats(f.ctx, f.bob, ListChatsInput{Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, chats, 1)
	assert.Equal(t, 0, chats[0].UnreadCount)
	assert.Empty(t, chats[0].Messages)
}

func TestStartChatReusesActiveChat(t *testing.T) {
	f := newChatFixture(t)

	first, err := f.uc.StartChat(f.ctx, f.alice, StartChatInput{UserID: f.bob})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, entity.ChatTypeDirect, first.Chat.ChatType)

	second, err := f.uc.StartChat(f.ctx, f.bob, StartChatInput{UserID: f.alice})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Chat.ID, second.Chat.ID)
	assert.Equal(t, 1, f.store.ChatCount())
}

func TestStartChatRejections(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.uc.StartChat(f.ctx, f.bob, StartChatInput{ProductID: f.product})
	assertCode(t, err, errors.CodeCallerIsTarget)

	_, err = f.uc.StartChat(f.ctx, f.alice, StartChatInput{UserID: f.alice})
	assertCode(t, err, errors.CodeCallerIsTarget)

	_, err = f.uc.StartChat(f.ctx, f.alice, StartChatInput{ProductID: "65f000000000000000000000"})
	assertCode(t, err, errors.CodeNotFound)

	_, err = f.uc.StartChat(f.ctx, f.alice, StartChatInput{UserID: "65f000000000000000000000"})
	assertCode(t, err, errors.CodeNotFound)

	_, err = f.uc.StartChat(f.ctx, f.alice, StartChatInput{})
	assertCode(t, err, errors.CodeValidation)
}

func TestConcurrentStartChatCreatesOneChat(t *testing.T) {
	f := newChatFixture(t)

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	ids := map[string]bool{}

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.uc.StartChat(f.ctx, f.alice, StartChatInput{ProductID: f.product})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[res.Chat.ID.Hex()] = true
			if res.Created {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, f.store.ChatCount())
}

func TestDeleteRecomputesLastMessage(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)

	hi := f.send(t, f.alice, chatID, "Hi")
	f.send(t, f.bob, chatID, "Hello")

	err := f.uc.DeleteMessage(f.ctx, f.bob, chatID, hi)
	assertCode(t, err, errors.CodeForbidden)

	require.NoError(t, f.uc.DeleteMessage(f.ctx, f.alice, chatID, hi))
	require.NoError(t, f.uc.DeleteMessage(f.ctx, f.alice, chatID, hi))

	chat, err := f.uc.GetChat(f.ctx, f.alice, chatID)
	require.NoError(t, err)
	require.NotNil(t, chat.LastMessage)
	assert.Equal(t, "Hello", chat.LastMessage.Content)

	deleted, err := f.uc.GetMessage(f.ctx, f.alice, chatID, hi)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Empty(t, deleted.Content)
	assert.NotNil(t, deleted.DeletedAt)

	page, err := f.uc.ListMessages(f.ctx, f.alice, chatID, ListMessagesInput{Limit: 50})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "Hello", page.Messages[0].Content)
	assert.EqualValues(t, 1, page.Total)
}

func TestLastMessageClearsWhenAllDeleted(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)

	only := f.send(t, f.alice, chatID, "oops")
	require.NoError(t, f.uc.DeleteMessage(f.ctx, f.alice, chatID, only))

	chat, err := f.uc.GetChat(f.ctx, f.bob, chatID)
	require.NoError(t, err)
	assert.Nil(t, chat.LastMessage)
	assert.Equal(t, 0, chat.UnreadCount)
}

func TestReactionToggleRestoresState(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)
	msg := f.send(t, f.bob, chatID, "Deal?")

	res, err := f.uc.ReactToMessage(f.ctx, f.alice, chatID, msg, "👍")
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Len(t, res.Reactions, 1)

	res, err = f.uc.ReactToMessage(f.ctx, f.alice, chatID, msg, "👍")
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Empty(t, res.Reactions)

	_, err = f.uc.ReactToMessage(f.ctx, f.alice, chatID, msg, "")
	assertCode(t, err, errors.CodeValidation)

	_, err = f.uc.ReactToMessage(f.ctx, f.alice, chatID, msg, "12345678901")
	assertCode(t, err, errors.CodeValidation)

	require.NoError(t, f.uc.DeleteMessage(f.ctx, f.bob, chatID, msg))
	_, err = f.uc.ReactToMessage(f.ctx, f.alice, chatID, msg, "👍")
	assertCode(t, err, errors.CodeNotFound)
}

func TestEditWindow(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)
	msg := f.send(t, f.alice, chatID, "See you at 5")

	f.clock.advance(23 * time.Hour)
	edited, err := f.uc.EditMessage(f.ctx, f.alice, chatID, msg, "See you at 6")
	require.NoError(t, err)
	assert.Equal(t, "See you at 6", edited.Content)
	assert.NotNil(t, edited.EditedAt)

	_, err = f.uc.EditMessage(f.ctx, f.bob, chatID, msg, "hijack")
	assertCode(t, err, errors.CodeForbidden)

	_, err = f.uc.EditMessage(f.ctx, f.alice, chatID, msg, "   ")
	assertCode(t, err, errors.CodeValidation)

	f.clock.advance(2 * time.Hour)
	_, err = f.uc.EditMessage(f.ctx, f.alice, chatID, msg, "too late")
	assertCode(t, err, errors.CodeEditWindowExpired)

	_, err = f.uc.EditMessage(f.ctx, f.alice, chatID, "65f000000000000000000000", "x")
	assertCode(t, err, errors.CodeNotFound)
}

func TestSendMessageValidation(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)

	_, err := f.uc.SendMessage(f.ctx, f.alice, chatID, SendMessageInput{Content: "   "})
	assertCode(t, err, errors.CodeInvalidMessage)

	_, err = f.uc.SendMessage(f.ctx, f.alice, chatID, SendMessageInput{Content: "x", MessageType: entity.MessageTypeSystem})
	assertCode(t, err, errors.CodeInvalidMessage)

	_, err = f.uc.SendMessage(f.ctx, f.alice, chatID, SendMessageInput{MessageType: entity.MessageTypeLocation})
	assertCode(t, err, errors.CodeInvalidMessage)

	_, err = f.uc.SendMessage(f.ctx, f.carol, chatID, SendMessageInput{Content: "intruder"})
	assertCode(t, err, errors.CodeNotFound)

	_, err = f.uc.SendMessage(f.ctx, f.alice, "not-an-id", SendMessageInput{Content: "x"})
	assertCode(t, err, errors.CodeNotFound)

	_, err = f.uc.SendMessage(f.ctx, f.alice, chatID, SendMessageInput{Content: "re", ReplyTo: "65f000000000000000000000"})
	assertCode(t, err, errors.CodeBadRequest)

	photo, err := f.uc.SendMessage(f.ctx, f.alice, chatID, SendMessageInput{
		MessageType: entity.MessageTypeImage,
		Attachments: []entity.Attachment{{URL: "https://cdn.example.com/a.jpg", Mimetype: "image/jpeg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MessageTypeImage, photo.Attachments[0].Type)

	chat, err := f.uc.GetChat(f.ctx, f.bob, chatID)
	require.NoError(t, err)
	assert.Equal(t, "📷 Image", chat.LastMessage.Content)

	reply, err := f.uc.SendMessage(f.ctx, f.bob, chatID, SendMessageInput{Content: "nice", ReplyTo: photo.ID.Hex()})
	require.NoError(t, err)
	assert.Equal(t, photo.ID, *reply.ReplyTo)
}

func TestInactiveChatIsReadOnly(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)
	msg := f.send(t, f.alice, chatID, "hello")

	id, _ := resourceID(chatID, "Chat")
	chat, err := f.store.Chats().GetByID(f.ctx, id)
	require.NoError(t, err)
	chat.IsActive = false
	require.NoError(t, f.store.Chats().Update(f.ctx, chat))

	_, err = f.uc.SendMessage(f.ctx, f.alice, chatID, SendMessageInput{Content: "still there?"})
	assertCode(t, err, errors.CodeForbidden)

	_, err = f.uc.EditMessage(f.ctx, f.alice, chatID, msg, "edited")
	assertCode(t, err, errors.CodeForbidden)

	err = f.uc.DeleteMessage(f.ctx, f.alice, chatID, msg)
	assertCode(t, err, errors.CodeForbidden)

	_, err = f.uc.ReactToMessage(f.ctx, f.bob, chatID, msg, "👍")
	assertCode(t, err, errors.CodeForbidden)

	chats, total, err := f.uc.ListChats(f.ctx, f.alice, ListChatsInput{Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, chats)
	assert.EqualValues(t, 0, total)
}

func TestListChatsFilters(t *testing.T) {
	f := newChatFixture(t)

	direct := f.directChat(t)
	f.send(t, f.bob, direct, "Do you still have the lamp?")
	product, err := f.uc.StartChat(f.ctx, f.alice, StartChatInput{ProductID: f.product, InitialMessage: "Is the bike (50%) off?"})
	require.NoError(t, err)

	chats, total, err := f.uc.ListChats(f.ctx, f.alice, ListChatsInput{Limit: 20})
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, product.Chat.ID, chats[0].ID, "most recent activity first")

	require.NoError(t, f.uc.SetArchived(f.ctx, f.alice, direct, true))

	archived := true
	chats, total, err = f.uc.ListChats(f.ctx, f.alice, ListChatsInput{Archived: &archived, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, direct, chats[0].ID.Hex())

	chats, total, err = f.uc.ListChats(f.ctx, f.alice, ListChatsInput{ChatType: entity.ChatTypeProductInquiry, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, product.Chat.ID, chats[0].ID)

	chats, total, err = f.uc.ListChats(f.ctx, f.alice, ListChatsInput{Search: "(50%)", Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, product.Chat.ID, chats[0].ID)

	_, _, err = f.uc.ListChats(f.ctx, f.alice, ListChatsInput{ChatType: "broadcast"})
	assertCode(t, err, errors.CodeValidation)

	chats, _, err = f.uc.ListChats(f.ctx, f.carol, ListChatsInput{Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestListMessagesPagesNewestInAscendingOrder(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)

	for _, body := range []string{"one", "two", "three", "four", "five"} {
		f.send(t, f.alice, chatID, body)
	}

	page, err := f.uc.ListMessages(f.ctx, f.bob, chatID, ListMessagesInput{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "four", page.Messages[0].Content)
	assert.Equal(t, "five", page.Messages[1].Content)

	page, err = f.uc.ListMessages(f.ctx, f.bob, chatID, ListMessagesInput{Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, "two", page.Messages[0].Content)
	assert.Equal(t, "three", page.Messages[1].Content)

	before := page.Messages[0].CreatedAt
	page, err = f.uc.ListMessages(f.ctx, f.bob, chatID, ListMessagesInput{Before: &before, Limit: 50})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "one", page.Messages[0].Content)

	_, err = f.uc.ListMessages(f.ctx, f.carol, chatID, ListMessagesInput{Limit: 50})
	assertCode(t, err, errors.CodeNotFound)
}

func TestReadInSameInstantAsMessageClearsUnread(t *testing.T) {
	f := newChatFixture(t)
	frozen := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f.uc.now = func() time.Time { return frozen }

	chatID := f.directChat(t)
	f.send(t, f.alice, chatID, "are you there?")

	_, err := f.uc.ListMessages(f.ctx, f.bob, chatID, ListMessagesInput{Limit: 50})
	require.NoError(t, err)
	view, err := f.uc.GetChat(f.ctx, f.bob, chatID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.UnreadCount)
}

func TestMarkAsReadAndArchiveRequireParticipant(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)

	assertCode(t, f.uc.MarkAsRead(f.ctx, f.carol, chatID), errors.CodeNotFound)
	assertCode(t, f.uc.SetArchived(f.ctx, f.carol, chatID, true), errors.CodeNotFound)

	require.NoError(t, f.uc.MarkAsRead(f.ctx, f.bob, chatID))
	assert.Contains(t, f.notifier.kinds(), ws.EventChatRead)

	others, err := f.uc.Counterparts(f.ctx, f.alice, chatID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.bob}, others)
}

type conflictingChats struct {
	repository.ChatRepository
	mu        sync.Mutex
	conflicts int
}

func (c *conflictingChats) Update(ctx context.Context, chat *entity.Chat) error {
	c.mu.Lock()
	if c.conflicts > 0 {
		c.conflicts--
		c.mu.Unlock()
		return errors.Conflict("Chat was modified concurrently", nil)
	}
	c.mu.Unlock()
	return c.ChatRepository.Update(ctx, chat)
}

func TestWritesRetryOnVersionConflict(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)

	flaky := &conflictingChats{ChatRepository: f.store.Chats(), conflicts: 2}
	uc := NewChatUseCase(flaky, f.store.Users(), f.store.Products(), nil, nil)
	uc.now = f.clock.now

	_, err := uc.SendMessage(f.ctx, f.alice, chatID, SendMessageInput{Content: "third time lucky"})
	require.NoError(t, err)

	flaky.conflicts = maxWriteAttempts
	_, err = uc.SendMessage(f.ctx, f.alice, chatID, SendMessageInput{Content: "never lands"})
	assertCode(t, err, errors.CodeConflict)

	page, err := uc.ListMessages(f.ctx, f.bob, chatID, ListMessagesInput{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, page.Messages, 1)
}

type denyAll struct{}

func (denyAll) Allow(string, string) (bool, time.Duration) { return false, 3 * time.Second }

func TestRateLimitedSend(t *testing.T) {
	f := newChatFixture(t)
	chatID := f.directChat(t)

	uc := NewChatUseCase(f.store.Chats(), f.store.Users(), f.store.Products(), nil, denyAll{})
	_, err := uc.SendMessage(f.ctx, f.alice, chatID, SendMessageInput{Content: "spam"})
	assertCode(t, err, errors.CodeTooManyRequests)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 3, appErr.RetryAfter)
}
