package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/pkg/errors"
)

const (
	MessageTypeText              = "text"
	MessageTypeImage             = "image"
	MessageTypeDocument          = "document"
	MessageTypeAudio             = "audio"
	MessageTypeVideo             = "video"
	MessageTypeSystem            = "system"
	MessageTypeTransactionUpdate = "transaction_update"
	MessageTypeLocation          = "location"
)

const (
	MaxMessageLength = 2000
	MaxAttachments   = 5
	MaxEmojiLength   = 10
	EditWindow       = 24 * time.Hour
)

type Attachment struct {
	Type       string `json:"type" bson:"type"`
	URL        string `json:"url" bson:"url"`
	Filename   string `json:"filename,omitempty" bson:"filename,omitempty"`
	Size       int64  `json:"size,omitempty" bson:"size,omitempty"`
	Mimetype   string `json:"mimetype,omitempty" bson:"mimetype,omitempty"`
	ExternalID string `json:"externalId,omitempty" bson:"externalId,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	Address   string  `json:"address,omitempty" bson:"address,omitempty"`
}

type Reaction struct {
	Emoji     string             `json:"emoji" bson:"emoji"`
	User      primitive.ObjectID `json:"user" bson:"user"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// Message is embedded in Chat.Messages. Its shape depends on MessageType.
type Message struct {
	ID          primitive.ObjectID     `json:"_id" bson:"_id"`
	Sender      primitive.ObjectID     `json:"sender" bson:"sender"`
	Content     string                 `json:"content" bson:"content"`
	MessageType string                 `json:"messageType" bson:"messageType"`
	Attachments []Attachment           `json:"attachments,omitempty" bson:"attachments,omitempty"`
	Location    *Location              `json:"location,omitempty" bson:"location,omitempty"`
	SystemData  map[string]interface{} `json:"systemData,omitempty" bson:"systemData,omitempty"`
	Reactions   []Reaction             `json:"reactions" bson:"reactions"`
	ReplyTo     *primitive.ObjectID    `json:"replyTo,omitempty" bson:"replyTo,omitempty"`
	IsDeleted   bool                   `json:"isDeleted" bson:"isDeleted"`
	DeletedAt   *time.Time             `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
	EditedAt    *time.Time             `json:"editedAt,omitempty" bson:"editedAt,omitempty"`
	IsPinned    bool                   `json:"isPinned" bson:"isPinned"`
	CreatedAt   time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt" bson:"updatedAt"`
}

func NewMessage(sender primitive.ObjectID, messageType, content string, now time.Time) Message {
	if messageType == "" {
		messageType = MessageTypeText
	}
	return Message{
		ID:          primitive.NewObjectID(),
		Sender:      sender,
		Content:     strings.TrimSpace(content),
		MessageType: messageType,
		Reactions:   []Reaction{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsUserSubmittable reports whether clients may send this type directly.
func IsUserSubmittable(messageType string) bool {
	switch messageType {
	case MessageTypeText, MessageTypeImage, MessageTypeDocument,
		MessageTypeAudio, MessageTypeVideo, MessageTypeLocation:
		return true
	}
	return false
}

// Validate checks the fields required and forbidden by the message type.
func (m *Message) Validate() error {
	if utf8.RuneCountInString(m.Content) > MaxMessageLength {
		return errors.InvalidMessage("Message content cannot exceed 2000 characters")
	}
	if len(m.Attachments) > MaxAttachments {
		return errors.InvalidMessage("A message can carry at most 5 attachments")
	}
	for _, a := range m.Attachments {
		if strings.TrimSpace(a.URL) == "" {
			return errors.InvalidMessage("Attachment url is required")
		}
	}

	hasContent := strings.TrimSpace(m.Content) != ""

	switch m.MessageType {
	case MessageTypeText:
		if !hasContent {
			return errors.InvalidMessage("Text messages need content")
		}
	case MessageTypeImage, MessageTypeDocument, MessageTypeAudio, MessageTypeVideo:
		if !hasContent && len(m.Attachments) == 0 {
			return errors.InvalidMessage("Message needs content or attachments")
		}
	case MessageTypeLocation:
		if m.Location == nil {
			return errors.InvalidMessage("Location messages need a location")
		}
		if m.Location.Latitude < -90 || m.Location.Latitude > 90 ||
			m.Location.Longitude < -180 || m.Location.Longitude > 180 {
			return errors.InvalidMessage("Location coordinates are out of range")
		}
	case MessageTypeSystem, MessageTypeTransactionUpdate:
		if !hasContent && len(m.SystemData) == 0 {
			return errors.InvalidMessage("System messages need content or system data")
		}
	default:
		return errors.InvalidMessage("Unknown message type: " + m.MessageType)
	}

	if m.Location != nil && m.MessageType != MessageTypeLocation {
		return errors.InvalidMessage("Only location messages may carry a location")
	}
	if len(m.SystemData) > 0 && m.MessageType != MessageTypeSystem && m.MessageType != MessageTypeTransactionUpdate {
		return errors.InvalidMessage("Only system messages may carry system data")
	}
	return nil
}

// Edit replaces the content of a message the caller sent less than 24h ago.
func (m *Message) Edit(editor primitive.ObjectID, content string, now time.Time) error {
	if m.IsDeleted {
		return errors.NotFound("Message", nil)
	}
	if m.Sender != editor {
		return errors.Forbidden("You can only edit your own messages", nil)
	}
	if now.Sub(m.CreatedAt) >= EditWindow {
		return errors.EditWindowExpired("Messages can only be edited within 24 hours of sending")
	}

	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > MaxMessageLength {
		return errors.Validation("Content must be between 1 and 2000 characters",
			errors.FieldError{Field: "content", Message: "content must be between 1 and 2000 characters"})
	}

	m.Content = content
	m.EditedAt = &now
	m.UpdatedAt = now
	return nil
}

// SoftDelete clears the content but keeps the message and its id.
// Deleting twice is a no-op.
func (m *Message) SoftDelete(by primitive.ObjectID, now time.Time) error {
	if m.Sender != by {
		return errors.Forbidden("You can only delete your own messages", nil)
	}
	if m.IsDeleted {
		return nil
	}
	m.IsDeleted = true
	m.DeletedAt = &now
	m.Content = ""
	m.UpdatedAt = now
	return nil
}

// ToggleReaction removes the (user, emoji) reaction if present, otherwise adds it.
// It reports whether the reaction is present afterwards.
func (m *Message) ToggleReaction(user primitive.ObjectID, emoji string, now time.Time) bool {
	for i, r := range m.Reactions {
		if r.User == user && r.Emoji == emoji {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			return false
		}
	}
	m.Reactions = append(m.Reactions, Reaction{Emoji: emoji, User: user, CreatedAt: now})
	return true
}

// Preview is the text shown in chat lists: the content, or a per-type
// placeholder when the content is empty.
func (m *Message) Preview() string {
	if m.Content != "" {
		return m.Content
	}
	switch m.MessageType {
	case MessageTypeImage:
		return "📷 Image"
	case MessageTypeDocument:
		return "📄 Document"
	case MessageTypeAudio:
		return "🎵 Audio"
	case MessageTypeVideo:
		return "🎥 Video"
	case MessageTypeLocation:
		return "📍 Location"
	default:
		return "Message"
	}
}

// AttachmentTypeFromMime maps a MIME type onto an attachment type.
func AttachmentTypeFromMime(mimetype string) string {
	switch {
	case strings.HasPrefix(mimetype, "image/"):
		return MessageTypeImage
	case strings.HasPrefix(mimetype, "video/"):
		return MessageTypeVideo
	case strings.HasPrefix(mimetype, "audio/"):
		return MessageTypeAudio
	default:
		return MessageTypeDocument
	}
}
