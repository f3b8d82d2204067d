package entity

import "time"

// ParticipantView is a participant with its user joined in.
type ParticipantView struct {
	Participant `bson:",inline"`
	User        *UserSummary `json:"user" bson:"userInfo,omitempty"`
}

// ChatSummary is one row of a chat listing. Messages are never included.
type ChatSummary struct {
	Chat         `bson:",inline"`
	Participants []ParticipantView `json:"participants" bson:"-"`
	Product      *ProductSummary   `json:"product,omitempty" bson:"-"`
	UnreadCount  int               `json:"unreadCount" bson:"unreadCount"`
	LastActivity time.Time         `json:"lastActivity" bson:"lastActivity"`
}

// MessageView is a message with its sender joined in.
type MessageView struct {
	Message `bson:",inline"`
	Sender  *UserSummary `json:"sender" bson:"-"`
}

type ChatInfo struct {
	ID               string `json:"_id"`
	Title            string `json:"title,omitempty"`
	ChatType         string `json:"chatType"`
	ParticipantCount int    `json:"participantCount"`
}

func (c *Chat) Info() ChatInfo {
	return ChatInfo{
		ID:               c.ID.Hex(),
		Title:            c.Title,
		ChatType:         c.ChatType,
		ParticipantCount: len(c.Participants),
	}
}

// JoinParticipants pairs each participant with its user, keyed by hex id.
func JoinParticipants(participants []Participant, users map[string]UserSummary) []ParticipantView {
	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		v := ParticipantView{Participant: p}
		if u, ok := users[p.User.Hex()]; ok {
			u := u
			v.User = &u
		}
		views = append(views, v)
	}
	return views
}
