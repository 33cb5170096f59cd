package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pushp314/connectly-backend/internal/models"
	apperrors "github.com/pushp314/connectly-backend/pkg/errors"
	"github.com/pushp314/connectly-backend/pkg/utils"
	"gorm.io/gorm"
)

// Group size is enforced at creation time only: 1 creator + up to 9 invited.
const (
	GroupMinParticipants = 3
	GroupMaxParticipants = 10
)

// Message pagination bounds
const (
	DefaultMessagePageSize = 50
	MaxMessagePageSize     = 100
)

// ConversationStore is the authoritative CRUD layer over conversations,
// participants and messages. All invariants on that data live here; the
// façade above only narrows authorization.
type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// FindDirectConversation looks up the conversation for an unordered user
// pair. Returns nil without error when none exists.
func (s *ConversationStore) FindDirectConversation(userA, userB string) (*models.Conversation, error) {
	var conv models.Conversation
	key := models.DirectPairKey(userA, userB)
	err := s.db.Preload("Participants.User").Where("pair_key = ?", key).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateDirect creates the direct conversation for the pair, or returns
// the existing one. When a concurrent caller wins the pair-key race the
// winner's conversation is returned, not an error.
func (s *ConversationStore) CreateDirect(userA, userB string) (*models.Conversation, error) {
	var conv *models.Conversation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.createDirectTx(tx, userA, userB)
		if err != nil {
			return err
		}
		conv = c
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race; the winner's row is committed by now.
			if existing, ferr := s.FindDirectConversation(userA, userB); ferr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return conv, nil
}

// createDirectTx runs the check-then-create sequence inside the caller's
// transaction so request acceptance commits atomically with it.
func (s *ConversationStore) createDirectTx(tx *gorm.DB, userA, userB string) (*models.Conversation, error) {
	if userA == userB {
		return nil, apperrors.Validation("cannot start a conversation with yourself")
	}

	key := models.DirectPairKey(userA, userB)

	var existing models.Conversation
	err := tx.Where("pair_key = ?", key).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var users []models.User
	if err := tx.Where("id IN ?", []string{userA, userB}).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) != 2 {
		return nil, apperrors.NotFound("user not found")
	}

	// A direct thread with a verified/business account lands in the
	// commercial tab; it is still a one-per-pair direct conversation.
	kind := models.ConversationDirect
	for _, u := range users {
		if u.Verified {
			kind = models.ConversationCommercial
			break
		}
	}

	now := time.Now()
	conv := models.Conversation{
		Kind:      kind,
		PairKey:   &key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(&conv).Error; err != nil {
		return nil, err
	}

	participants := []models.Participant{
		{ConversationID: conv.ID, UserID: userA, JoinedAt: now},
		{ConversationID: conv.ID, UserID: userB, JoinedAt: now},
	}
	if err := tx.Create(&participants).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateGroup creates a group conversation with the creator as admin.
func (s *ConversationStore) CreateGroup(creatorID, name string, memberIDs []string) (*models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("group name is required")
	}

	seen := map[string]bool{creatorID: true}
	members := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	size := 1 + len(members)
	if size < GroupMinParticipants || size > GroupMaxParticipants {
		return nil, apperrors.Validation(fmt.Sprintf(
			"a group needs between %d and %d participants, got %d",
			GroupMinParticipants, GroupMaxParticipants, size))
	}

	var conv models.Conversation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ids := append([]string{creatorID}, members...)
		var count int64
		if err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(ids)) {
			return apperrors.NotFound("one or more invited users do not exist")
		}

		now := time.Now()
		conv = models.Conversation{
			Kind:      models.ConversationGroup,
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}

		participants := make([]models.Participant, 0, len(ids))
		participants = append(participants, models.Participant{
			ConversationID: conv.ID, UserID: creatorID, JoinedAt: now, IsAdmin: true,
		})
		for _, id := range members {
			participants = append(participants, models.Participant{
				ConversationID: conv.ID, UserID: id, JoinedAt: now,
			})
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ConversationStore) participantTx(tx *gorm.DB, conversationID, userID string) (*models.Participant, error) {
	var p models.Participant
	err := tx.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("not a participant of this conversation")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Participant resolves the caller's membership row, NotFound when absent.
func (s *ConversationStore) Participant(conversationID, userID string) (*models.Participant, error) {
	return s.participantTx(s.db, conversationID, userID)
}

// ParticipantRows returns every membership row for the user.
func (s *ConversationStore) ParticipantRows(userID string) ([]models.Participant, error) {
	var rows []models.Participant
	if err := s.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ParticipantIDs returns the user ids of everyone in the conversation.
func (s *ConversationStore) ParticipantIDs(conversationID string) ([]string, error) {
	var ids []string
	err := s.db.Model(&models.Participant{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// GetConversation loads a conversation with its participants and users.
func (s *ConversationStore) GetConversation(id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Preload("Participants.User").First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("conversation not found")
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// AppendMessage appends a message and bumps the conversation's UpdatedAt.
func (s *ConversationStore) AppendMessage(conversationID, senderID, content string, msgType models.MessageType, replyToID *string) (*models.Message, error) {
	clean, ok := utils.SanitizeMessageContent(content)
	if !ok {
		return nil, apperrors.Validation("message content is empty or too long")
	}

	var msg models.Message
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.participantTx(tx, conversationID, senderID); err != nil {
			return err
		}

		if replyToID != nil {
			var parent models.Message
			if err := tx.First(&parent, "id = ?", *replyToID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.Validation("replied-to message does not exist")
				}
				return err
			}
			if parent.ConversationID != conversationID {
				return apperrors.Validation("replied-to message belongs to another conversation")
			}
		}

		now := time.Now()
		msg = models.Message{
			ConversationID: conversationID,
			SenderID:       senderID,
			Content:        clean,
			Type:           msgType,
			ReplyToID:      replyToID,
			CreatedAt:      now,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Sender").First(&msg, "id = ?", msg.ID)
	return &msg, nil
}

// EditMessage mutates the content in place and marks the message edited.
// Only the author may edit.
func (s *ConversationStore) EditMessage(messageID, editorID, newContent string) (*models.Message, error) {
	clean, ok := utils.SanitizeMessageContent(newContent)
	if !ok {
		return nil, apperrors.Validation("message content is empty or too long")
	}

	var msg models.Message
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("message not found")
			}
			return err
		}
		if msg.SenderID != editorID {
			return apperrors.Forbidden("only the author can edit a message")
		}

		now := time.Now()
		msg.Content = clean
		msg.IsEdited = true
		msg.EditedAt = &now
		return tx.Model(&models.Message{}).Where("id = ?", messageID).Updates(map[string]interface{}{
			"content":   clean,
			"is_edited": true,
			"edited_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Messages returns one page of a conversation's history, newest first.
func (s *ConversationStore) Messages(conversationID string, page, limit int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultMessagePageSize
	}
	if limit > MaxMessagePageSize {
		limit = MaxMessagePageSize
	}

	var messages []models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// LastMessage returns the newest message, or nil for an empty conversation.
func (s *ConversationStore) LastMessage(conversationID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at desc").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UnreadCount counts messages from other senders, optionally after the
// read cursor. A nil cursor means the participant never read.
func (s *ConversationStore) UnreadCount(conversationID, userID string, since *time.Time) (int64, error) {
	q := s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, userID)
	if since != nil {
		q = q.Where("created_at > ?", *since)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// SetLastRead advances the participant's read cursor. The cursor is
// monotonic: an earlier timestamp is a no-op, never a regression.
func (s *ConversationStore) SetLastRead(conversationID, userID string, at time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.participantTx(tx, conversationID, userID)
		if err != nil {
			return err
		}
		if p.LastReadAt != nil && !at.After(*p.LastReadAt) {
			return nil
		}
		return tx.Model(&models.Participant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Update("last_read_at", at).Error
	})
}

// SetFavorite flips the per-participant pin flag. Favorites only affect
// UI ordering, never counting.
func (s *ConversationStore) SetFavorite(conversationID, userID string, value bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.participantTx(tx, conversationID, userID); err != nil {
			return err
		}
		return tx.Model(&models.Participant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Update("is_favorite", value).Error
	})
}

// SetMuted opens (or clears, with nil) the participant's mute window.
func (s *ConversationStore) SetMuted(conversationID, userID string, until *time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.participantTx(tx, conversationID, userID); err != nil {
			return err
		}
		return tx.Model(&models.Participant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Update("muted_until", until).Error
	})
}

// RemoveParticipant is a soft leave: only the caller's membership row is
// removed, the conversation and everyone else's state stay untouched.
func (s *ConversationStore) RemoveParticipant(conversationID, userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.participantTx(tx, conversationID, userID); err != nil {
			return err
		}
		return tx.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Delete(&models.Participant{}).Error
	})
}
