package services

import (
	"time"

	"github.com/pushp314/connectly-backend/internal/database"
	"github.com/pushp314/connectly-backend/internal/models"
	"github.com/pushp314/connectly-backend/pkg/logger"
	"gorm.io/gorm"
)

const badgeCacheTTL = 5 * time.Second

// NotificationCounts is the badge payload the mobile client polls for.
// CommercialMessages is a breakdown of UnreadMessages, not an addition,
// so Total deliberately leaves it out.
type NotificationCounts struct {
	UnreadMessages     int64 `json:"unreadMessages"`
	PendingRequests    int64 `json:"pendingRequests"`
	CommercialMessages int64 `json:"commercialMessages"`
	Total              int64 `json:"total"`
}

// NotificationAggregator computes per-user unread/pending/commercial
// counts. It reads through the ConversationStore and never mutates
// anything; a badge count degrades gracefully instead of failing the call.
type NotificationAggregator struct {
	db    *gorm.DB
	store *ConversationStore
}

func NewNotificationAggregator(db *gorm.DB, store *ConversationStore) *NotificationAggregator {
	return &NotificationAggregator{db: db, store: store}
}

func badgeKey(userID string) string {
	return "badge_counts:" + userID
}

// ComputeCounts walks the user's conversations, honoring mute windows and
// read cursors. Any single conversation failing to resolve is logged and
// skipped, never fatal.
func (a *NotificationAggregator) ComputeCounts(userID string) (*NotificationCounts, error) {
	var counts NotificationCounts
	if database.Redis != nil {
		if err := database.CacheGet(badgeKey(userID), &counts); err == nil {
			return &counts, nil
		}
	}

	rows, err := a.store.ParticipantRows(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, p := range rows {
		// An open mute window suppresses counting entirely, not just
		// notification delivery.
		if p.Muted(now) {
			continue
		}

		var conv models.Conversation
		if err := a.db.Select("id", "kind").First(&conv, "id = ?", p.ConversationID).Error; err != nil {
			logger.Warn().Err(err).
				Str("conversation_id", p.ConversationID).
				Str("user_id", userID).
				Msg("skipping conversation in badge aggregation")
			continue
		}

		unread, err := a.store.UnreadCount(p.ConversationID, userID, p.LastReadAt)
		if err != nil {
			logger.Warn().Err(err).
				Str("conversation_id", p.ConversationID).
				Str("user_id", userID).
				Msg("skipping unread count in badge aggregation")
			continue
		}

		counts.UnreadMessages += unread
		if conv.Kind == models.ConversationCommercial {
			counts.CommercialMessages += unread
		}
	}

	// Requests the user sent are never pending-for-them.
	if err := a.db.Model(&models.MessageRequest{}).
		Where("recipient_id = ? AND status = ?", userID, models.RequestPending).
		Count(&counts.PendingRequests).Error; err != nil {
		logger.Warn().Err(err).Str("user_id", userID).
			Msg("pending request count failed, degrading to zero")
		counts.PendingRequests = 0
	}

	counts.Total = counts.UnreadMessages + counts.PendingRequests

	if database.Redis != nil {
		_ = database.CacheSet(badgeKey(userID), counts, badgeCacheTTL)
	}
	return &counts, nil
}

// Invalidate drops cached badge counts after a write touching the users.
func (a *NotificationAggregator) Invalidate(userIDs ...string) {
	if database.Redis == nil {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, badgeKey(id))
	}
	if err := database.CacheDelete(keys...); err != nil {
		logger.Warn().Err(err).Msg("badge cache invalidation failed")
	}
}
