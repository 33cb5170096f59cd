package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus is the canonical enum for the message-request state machine.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

// NormalizeRequestStatus maps loosely cased wire values onto the canonical
// enum. Branching on raw string case is never safe at the boundary.
func NormalizeRequestStatus(s string) (RequestStatus, bool) {
	switch RequestStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case RequestPending:
		return RequestPending, true
	case RequestAccepted:
		return RequestAccepted, true
	case RequestRejected:
		return RequestRejected, true
	}
	return "", false
}

// MessageRequest is a pending ask to start a direct conversation with a
// non-mutual user. Storage is direction-agnostic: sender and recipient
// only. PENDING transitions exactly once to ACCEPTED or REJECTED, both
// terminal; rows are never deleted.
//
// PairKey is the canonical "min:max" user pair, same encoding as
// Conversation.PairKey. A partial unique index on it (status PENDING,
// created in database.Migrate) guarantees at most one live request per
// pair regardless of direction.
type MessageRequest struct {
	ID          string        `gorm:"primaryKey;type:text" json:"id"`
	SenderID    string        `gorm:"index:idx_request_pair;type:text;not null" json:"senderId"`
	RecipientID string        `gorm:"index:idx_request_pair;type:text;not null" json:"recipientId"`
	PairKey     string        `gorm:"type:text;not null" json:"-"`
	Message     string        `gorm:"type:text" json:"message,omitempty"`
	Status      RequestStatus `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`

	// Relations
	Sender    User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Recipient User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

func (r *MessageRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.PairKey == "" {
		r.PairKey = DirectPairKey(r.SenderID, r.RecipientID)
	}
	return
}

// IsReceived reports whether the request is inbound for the viewer.
// Direction is derived per viewer, never stored.
func (r *MessageRequest) IsReceived(viewerID string) bool {
	return r.RecipientID == viewerID
}
