package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationKind string

const (
	ConversationDirect     ConversationKind = "DIRECT"
	ConversationGroup      ConversationKind = "GROUP"
	ConversationCommercial ConversationKind = "COMMERCIAL"
)

type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
	MessageTypeFile  MessageType = "FILE"
	MessageTypeAudio MessageType = "AUDIO"
)

// NormalizeMessageType maps loosely cased wire values onto the canonical enum.
// An empty value defaults to TEXT.
func NormalizeMessageType(s string) (MessageType, bool) {
	switch MessageType(strings.ToUpper(strings.TrimSpace(s))) {
	case "":
		return MessageTypeText, true
	case MessageTypeText:
		return MessageTypeText, true
	case MessageTypeImage:
		return MessageTypeImage, true
	case MessageTypeFile:
		return MessageTypeFile, true
	case MessageTypeAudio:
		return MessageTypeAudio, true
	}
	return "", false
}

// Conversation owns an ordered set of participants and an append-only
// sequence of messages. PairKey is the canonical "min:max" user pair for
// DIRECT/COMMERCIAL conversations; its unique index is the arbiter of the
// one-conversation-per-pair invariant. GROUP conversations leave it nil.
type Conversation struct {
	ID        string           `gorm:"primaryKey;type:text" json:"id"`
	Kind      ConversationKind `gorm:"type:text;not null;default:'DIRECT'" json:"kind"`
	Name      string           `gorm:"type:text" json:"name,omitempty"`
	PairKey   *string          `gorm:"uniqueIndex;type:text" json:"-"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`

	// Relations
	Participants []Participant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	Messages     []Message     `gorm:"foreignKey:ConversationID" json:"-"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// DirectPairKey returns the canonical unordered-pair key for two users.
func DirectPairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// Participant is one user's membership in a conversation. The row is owned
// exclusively by its (conversation, user) pair: no other user's request
// ever writes LastReadAt, MutedUntil or IsFavorite here.
type Participant struct {
	ConversationID string `gorm:"primaryKey;type:text" json:"conversationId"`
	UserID         string `gorm:"primaryKey;type:text" json:"userId"`

	JoinedAt   time.Time  `json:"joinedAt"`
	LastReadAt *time.Time `json:"lastReadAt"`
	IsAdmin    bool       `gorm:"default:false" json:"isAdmin"`
	IsFavorite bool       `gorm:"default:false" json:"isFavorite"`
	MutedUntil *time.Time `json:"mutedUntil"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Muted reports whether the mute window is still open at now.
func (p *Participant) Muted(now time.Time) bool {
	return p.MutedUntil != nil && p.MutedUntil.After(now)
}

// Message is append-only: edits mutate content in place and set IsEdited,
// rows are never deleted.
type Message struct {
	ID             string      `gorm:"primaryKey;type:text" json:"id"`
	ConversationID string      `gorm:"index;type:text;not null" json:"conversationId"`
	SenderID       string      `gorm:"index;type:text;not null" json:"senderId"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	Type           MessageType `gorm:"type:text;not null;default:'TEXT'" json:"type"`

	IsEdited bool       `gorm:"default:false" json:"isEdited"`
	EditedAt *time.Time `json:"editedAt,omitempty"`

	// ReplyToID must reference a message in the same conversation.
	ReplyToID *string  `gorm:"index;type:text" json:"replyToId,omitempty"`
	ReplyTo   *Message `gorm:"-" json:"replyTo,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	// Relations
	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// MessageReaction stores emoji reactions on messages.
// The unique triple makes the toggle an atomic upsert-or-delete.
type MessageReaction struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	MessageID string    `gorm:"uniqueIndex:idx_message_user_emoji;type:text;not null" json:"messageId"`
	UserID    string    `gorm:"uniqueIndex:idx_message_user_emoji;type:text;not null" json:"userId"`
	Emoji     string    `gorm:"uniqueIndex:idx_message_user_emoji;type:text;not null" json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (r *MessageReaction) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
