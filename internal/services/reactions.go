package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pushp314/connectly-backend/internal/models"
	apperrors "github.com/pushp314/connectly-backend/pkg/errors"
	"gorm.io/gorm"
)

// ReactionLedger aggregates per-message emoji reactions. Toggling is an
// idempotent flip on the unique (message, user, emoji) triple, not an
// add-only counter.
type ReactionLedger struct {
	db *gorm.DB
}

func NewReactionLedger(db *gorm.DB) *ReactionLedger {
	return &ReactionLedger{db: db}
}

// ReactionUser is the trimmed-down identity attached to a reaction group.
type ReactionUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// ReactionSummary is one emoji group on a message.
type ReactionSummary struct {
	Emoji              string         `json:"emoji"`
	Count              int            `json:"count"`
	Users              []ReactionUser `json:"users"`
	CurrentUserReacted bool           `json:"currentUserReacted"`
}

// Toggle adds the (message, user, emoji) reaction if absent, removes it if
// present, and returns the recomputed summaries. Repeated toggles never
// error; two processes flipping the same reaction collapse to one row.
func (l *ReactionLedger) Toggle(messageID, userID, emoji string) ([]ReactionSummary, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > 16 {
		return nil, apperrors.Validation("invalid reaction emoji")
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.Select("id").First(&msg, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("message not found")
			}
			return err
		}

		var existing models.MessageReaction
		err := tx.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
			First(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			reaction := models.MessageReaction{
				MessageID: messageID,
				UserID:    userID,
				Emoji:     emoji,
				CreatedAt: time.Now(),
			}
			if err := tx.Create(&reaction).Error; err != nil {
				if isUniqueViolation(err) {
					// Concurrent toggle already inserted the row.
					return nil
				}
				return err
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	return l.Summarize(messageID, userID)
}

// Summarize groups a message's reactions by emoji, oldest group first,
// carrying the reacting users and whether the viewer is among them.
func (l *ReactionLedger) Summarize(messageID, viewerID string) ([]ReactionSummary, error) {
	var reactions []models.MessageReaction
	err := l.db.Preload("User").
		Where("message_id = ?", messageID).
		Order("created_at asc").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(reactions))
	groups := make(map[string]*ReactionSummary)
	for _, r := range reactions {
		g, ok := groups[r.Emoji]
		if !ok {
			g = &ReactionSummary{Emoji: r.Emoji, Users: []ReactionUser{}}
			groups[r.Emoji] = g
			order = append(order, r.Emoji)
		}
		g.Count++
		g.Users = append(g.Users, ReactionUser{
			ID:       r.UserID,
			Name:     r.User.Name,
			Username: r.User.Username,
		})
		if r.UserID == viewerID {
			g.CurrentUserReacted = true
		}
	}

	out := make([]ReactionSummary, 0, len(order))
	for _, emoji := range order {
		out = append(out, *groups[emoji])
	}
	return out, nil
}
