package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestChat() (*Chat, primitive.ObjectID, primitive.ObjectID) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	product := primitive.NewObjectID()
	return NewChat(a, b, &product, ChatTypeProductInquiry, t0), a, b
}

func send(c *Chat, from primitive.ObjectID, content string, at time.Time) primitive.ObjectID {
	m := NewMessage(from, MessageTypeText, content, at)
	c.AppendMessage(m)
	c.Touch(at)
	return m.ID
}

func TestDedupeKeyIsOrderIndependent(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	p := primitive.NewObjectID()

	assert.Equal(t, DedupeKey(a, b, &p, ChatTypeProductInquiry), DedupeKey(b, a, &p, ChatTypeProductInquiry))
	assert.NotEqual(t, DedupeKey(a, b, &p, ChatTypeProductInquiry), DedupeKey(a, b, nil, ChatTypeProductInquiry))
	assert.NotEqual(t, DedupeKey(a, b, nil, ChatTypeDirect), DedupeKey(a, b, nil, ChatTypeGroup))
}

func TestNewChat(t *testing.T) {
	c, a, b := newTestChat()

	assert.Len(t, c.Participants, 2)
	assert.True(t, c.IsParticipant(a))
	assert.True(t, c.IsParticipant(b))
	assert.True(t, c.IsActive)
	assert.False(t, c.IsArchived)
	assert.Nil(t, c.LastMessage)
	assert.Equal(t, RoleParticipant, c.Participant(a).Role)
}

func TestLastMessageTracksNewestVisibleMessage(t *testing.T) {
	c, a, b := newTestChat()

	hi := send(c, a, "Hi", t0.Add(time.Minute))
	send(c, b, "Hello", t0.Add(2*time.Minute))
	require.NotNil(t, c.LastMessage)
	assert.Equal(t, "Hello", c.LastMessage.Content)

	require.NoError(t, c.FindMessage(hi).SoftDelete(a, t0.Add(3*time.Minute)))
	c.Touch(t0.Add(3 * time.Minute))
	assert.Equal(t, "Hello", c.LastMessage.Content)
	assert.Equal(t, b, c.LastMessage.Sender)

	last := c.FindMessage(c.Messages[1].ID)
	require.NoError(t, last.SoftDelete(b, t0.Add(4*time.Minute)))
	c.Touch(t0.Add(4 * time.Minute))
	assert.Nil(t, c.LastMessage)
}

func TestLastMessageUsesPlaceholderForEmptyContent(t *testing.T) {
	c, a, _ := newTestChat()

	m := NewMessage(a, MessageTypeImage, "", t0.Add(time.Minute))
	m.Attachments = []Attachment{{Type: MessageTypeImage, URL: "https://cdn.example/p.jpg"}}
	c.AppendMessage(m)
	c.Touch(t0.Add(time.Minute))

	require.NotNil(t, c.LastMessage)
	assert.Equal(t, "📷 Image", c.LastMessage.Content)
	assert.Equal(t, MessageTypeImage, c.LastMessage.MessageType)
	assert.Equal(t, t0.Add(time.Minute), c.LastMessage.Timestamp)
}

func TestUnreadCount(t *testing.T) {
	c, a, b := newTestChat()

	send(c, a, "Interested!", t0)
	assert.Equal(t, 1, c.UnreadCount(b))
	assert.Equal(t, 0, c.UnreadCount(a))

	require.True(t, c.MarkRead(b, t0.Add(time.Minute)))
	assert.Equal(t, 0, c.UnreadCount(b))

	send(c, a, "Still available?", t0.Add(2*time.Minute))
	deleted := send(c, a, "oops", t0.Add(3*time.Minute))
	require.NoError(t, c.FindMessage(deleted).SoftDelete(a, t0.Add(4*time.Minute)))
	assert.Equal(t, 1, c.UnreadCount(b))

	assert.Equal(t, 0, c.UnreadCount(primitive.NewObjectID()))
}

func TestMarkReadInSameMillisecondAsMessage(t *testing.T) {
	c, a, b := newTestChat()
	at := t0.Add(time.Minute)

	send(c, a, "Interested!", at)
	require.True(t, c.MarkRead(b, at))
	assert.Equal(t, 0, c.UnreadCount(b))
	assert.True(t, c.ReadWatermark(b).After(at))

	send(c, a, "Hello?", at.Add(time.Millisecond))
	assert.Equal(t, 1, c.UnreadCount(b))
}

func TestMarkReadRejectsOutsider(t *testing.T) {
	c, _, _ := newTestChat()
	assert.False(t, c.MarkRead(primitive.NewObjectID(), t0))
}

func TestCanUserWrite(t *testing.T) {
	c, a, _ := newTestChat()
	assert.True(t, c.CanUserWrite(a))
	assert.False(t, c.CanUserWrite(primitive.NewObjectID()))

	c.IsActive = false
	assert.False(t, c.CanUserWrite(a))
}

func TestLastActivity(t *testing.T) {
	c, a, _ := newTestChat()
	assert.Equal(t, t0, c.LastActivity())

	send(c, a, "Hi", t0.Add(time.Hour))
	c.UpdatedAt = t0.Add(2 * time.Hour)
	assert.Equal(t, t0.Add(2*time.Hour), c.LastActivity())
}

func TestCloneIsIndependent(t *testing.T) {
	c, a, b := newTestChat()
	id := send(c, a, "Hi", t0)

	cp := c.Clone()
	cp.FindMessage(id).ToggleReaction(b, "👍", t0)
	cp.MarkRead(b, t0)

	assert.Empty(t, c.FindMessage(id).Reactions)
	assert.Nil(t, c.Participant(b).LastSeen)
}

func TestCounterparts(t *testing.T) {
	c, a, b := newTestChat()
	assert.Equal(t, []string{b.Hex()}, c.Counterparts(a))
	assert.ElementsMatch(t, []string{a.Hex(), b.Hex()}, c.ParticipantIDs())
}
