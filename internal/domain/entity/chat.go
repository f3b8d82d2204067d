package entity

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ChatTypeDirect         = "direct"
	ChatTypeGroup          = "group"
	ChatTypeProductInquiry = "product_inquiry"

	RoleParticipant = "participant"
	RoleAdmin       = "admin"

	PriorityNormal = "normal"
)

type Participant struct {
	User                 primitive.ObjectID `json:"user" bson:"user"`
	JoinedAt             time.Time          `json:"joinedAt" bson:"joinedAt"`
	Role                 string             `json:"role" bson:"role"`
	Nickname             string             `json:"nickname,omitempty" bson:"nickname,omitempty"`
	LastSeen             *time.Time         `json:"lastSeen,omitempty" bson:"lastSeen,omitempty"`
	NotificationsEnabled bool               `json:"notificationsEnabled" bson:"notificationsEnabled"`
}

type LastMessage struct {
	Content     string             `json:"content" bson:"content"`
	Sender      primitive.ObjectID `json:"sender" bson:"sender"`
	Timestamp   time.Time          `json:"timestamp" bson:"timestamp"`
	MessageType string             `json:"messageType" bson:"messageType"`
}

type MutedEntry struct {
	User  primitive.ObjectID `json:"user" bson:"user"`
	Until *time.Time         `json:"until,omitempty" bson:"until,omitempty"`
}

type ChatSettings struct {
	AllowFileSharing     bool `json:"allowFileSharing" bson:"allowFileSharing"`
	AllowLocationSharing bool `json:"allowLocationSharing" bson:"allowLocationSharing"`
	MessageRetentionDays int  `json:"messageRetention" bson:"messageRetention"`
	AutoDeleteAfterDays  int  `json:"autoDeleteAfter,omitempty" bson:"autoDeleteAfter,omitempty"`
}

func DefaultChatSettings() ChatSettings {
	return ChatSettings{
		AllowFileSharing:     true,
		AllowLocationSharing: true,
		MessageRetentionDays: 365,
	}
}

type Chat struct {
	ID             primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Participants   []Participant        `json:"participants" bson:"participants"`
	ChatType       string               `json:"chatType" bson:"chatType"`
	Product        *primitive.ObjectID  `json:"product,omitempty" bson:"product,omitempty"`
	Transaction    *primitive.ObjectID  `json:"transaction,omitempty" bson:"transaction,omitempty"`
	DedupeKey      string               `json:"-" bson:"dedupeKey"`
	Messages       []Message            `json:"messages,omitempty" bson:"messages"`
	LastMessage    *LastMessage         `json:"lastMessage,omitempty" bson:"lastMessage,omitempty"`
	IsActive       bool                 `json:"isActive" bson:"isActive"`
	IsArchived     bool                 `json:"isArchived" bson:"isArchived"`
	Title          string               `json:"title,omitempty" bson:"title,omitempty"`
	Description    string               `json:"description,omitempty" bson:"description,omitempty"`
	Avatar         string               `json:"avatar,omitempty" bson:"avatar,omitempty"`
	PinnedMessages []primitive.ObjectID `json:"pinnedMessages,omitempty" bson:"pinnedMessages,omitempty"`
	MutedBy        []MutedEntry         `json:"mutedBy,omitempty" bson:"mutedBy,omitempty"`
	Tags           []string             `json:"tags,omitempty" bson:"tags,omitempty"`
	Priority       string               `json:"priority" bson:"priority"`
	Settings       ChatSettings         `json:"settings" bson:"settings"`
	ClosedAt       *time.Time           `json:"closedAt,omitempty" bson:"closedAt,omitempty"`
	ClosedBy       *primitive.ObjectID  `json:"closedBy,omitempty" bson:"closedBy,omitempty"`
	ClosedReason   string               `json:"closedReason,omitempty" bson:"closedReason,omitempty"`
	Version        int64                `json:"-" bson:"version"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// DedupeKey identifies the conversation between two users about an optional
// product, independent of who started it.
func DedupeKey(a, b primitive.ObjectID, product *primitive.ObjectID, chatType string) string {
	pair := []string{a.Hex(), b.Hex()}
	sort.Strings(pair)

	anchor := "-"
	if product != nil {
		anchor = product.Hex()
	}
	return strings.Join([]string{chatType, anchor, pair[0], pair[1]}, ":")
}

// NewChat builds an active two-party chat with empty history.
func NewChat(initiator, counterpart primitive.ObjectID, product *primitive.ObjectID, chatType string, now time.Time) *Chat {
	participant := func(id primitive.ObjectID) Participant {
		return Participant{
			User:                 id,
			JoinedAt:             now,
			Role:                 RoleParticipant,
			NotificationsEnabled: true,
		}
	}

	return &Chat{
		ID:           primitive.NewObjectID(),
		Participants: []Participant{participant(initiator), participant(counterpart)},
		ChatType:     chatType,
		Product:      product,
		DedupeKey:    DedupeKey(initiator, counterpart, product, chatType),
		Messages:     []Message{},
		IsActive:     true,
		Priority:     PriorityNormal,
		Settings:     DefaultChatSettings(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (c *Chat) Participant(userID primitive.ObjectID) *Participant {
	for i := range c.Participants {
		if c.Participants[i].User == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

func (c *Chat) IsParticipant(userID primitive.ObjectID) bool {
	return c.Participant(userID) != nil
}

func (c *Chat) CanUserWrite(userID primitive.ObjectID) bool {
	return c.IsActive && c.IsParticipant(userID)
}

// ParticipantIDs returns the hex ids of all participants.
func (c *Chat) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.User.Hex())
	}
	return ids
}

// Counterparts returns every participant except userID.
func (c *Chat) Counterparts(userID primitive.ObjectID) []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.User != userID {
			ids = append(ids, p.User.Hex())
		}
	}
	return ids
}

func (c *Chat) FindMessage(id primitive.ObjectID) *Message {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i]
		}
	}
	return nil
}

func (c *Chat) AppendMessage(m Message) {
	c.Messages = append(c.Messages, m)
}

// Touch must run before every save: it refreshes lastMessage and updatedAt.
func (c *Chat) Touch(now time.Time) {
	c.RecomputeLastMessage()
	c.UpdatedAt = now
}

// RecomputeLastMessage derives lastMessage from the newest non-deleted message.
func (c *Chat) RecomputeLastMessage() {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := c.Messages[i]
		if m.IsDeleted {
			continue
		}
		c.LastMessage = &LastMessage{
			Content:     m.Preview(),
			Sender:      m.Sender,
			Timestamp:   m.CreatedAt,
			MessageType: m.MessageType,
		}
		return
	}
	c.LastMessage = nil
}

// MarkRead moves the user's read watermark to now, or just past the newest
// message when that message shares now's millisecond.
func (c *Chat) MarkRead(userID primitive.ObjectID, now time.Time) bool {
	p := c.Participant(userID)
	if p == nil {
		return false
	}
	seen := now
	for _, m := range c.Messages {
		if next := m.CreatedAt.Add(time.Millisecond); next.After(seen) {
			seen = next
		}
	}
	p.LastSeen = &seen
	return true
}

// ReadWatermark is the instant after which messages count as unread for userID.
func (c *Chat) ReadWatermark(userID primitive.ObjectID) time.Time {
	if p := c.Participant(userID); p != nil && p.LastSeen != nil {
		return *p.LastSeen
	}
	return c.CreatedAt
}

// UnreadCount counts non-deleted messages from others at or after the watermark.
func (c *Chat) UnreadCount(userID primitive.ObjectID) int {
	if !c.IsParticipant(userID) {
		return 0
	}
	watermark := c.ReadWatermark(userID)

	count := 0
	for _, m := range c.Messages {
		if m.Sender == userID || m.IsDeleted {
			continue
		}
		if !m.CreatedAt.Before(watermark) {
			count++
		}
	}
	return count
}

func (c *Chat) LastActivity() time.Time {
	if c.LastMessage != nil && c.LastMessage.Timestamp.After(c.UpdatedAt) {
		return c.LastMessage.Timestamp
	}
	return c.UpdatedAt
}

// VisibleMessageCount is the number of messages not soft-deleted.
func (c *Chat) VisibleMessageCount() int {
	n := 0
	for _, m := range c.Messages {
		if !m.IsDeleted {
			n++
		}
	}
	return n
}

// Clone returns a deep enough copy for read-modify-write cycles.
func (c *Chat) Clone() *Chat {
	cp := *c
	cp.Participants = append([]Participant(nil), c.Participants...)
	for i := range cp.Participants {
		if ls := cp.Participants[i].LastSeen; ls != nil {
			t := *ls
			cp.Participants[i].LastSeen = &t
		}
	}
	cp.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		m.Reactions = append([]Reaction{}, m.Reactions...)
		m.Attachments = append([]Attachment(nil), m.Attachments...)
		cp.Messages[i] = m
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	cp.Tags = append([]string(nil), c.Tags...)
	cp.PinnedMessages = append([]primitive.ObjectID(nil), c.PinnedMessages...)
	cp.MutedBy = append([]MutedEntry(nil), c.MutedBy...)
	return &cp
}
