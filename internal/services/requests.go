package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pushp314/connectly-backend/internal/models"
	"github.com/pushp314/connectly-backend/internal/socialgraph"
	apperrors "github.com/pushp314/connectly-backend/pkg/errors"
	"github.com/pushp314/connectly-backend/pkg/logger"
	"gorm.io/gorm"
)

// RequestWorkflow owns the message-request state machine and decides
// whether a prospective direct conversation may be created immediately or
// must go through a pending request.
type RequestWorkflow struct {
	db    *gorm.DB
	store *ConversationStore
	graph socialgraph.Client
}

func NewRequestWorkflow(db *gorm.DB, store *ConversationStore, graph socialgraph.Client) *RequestWorkflow {
	return &RequestWorkflow{db: db, store: store, graph: graph}
}

// CanMessageDirectly reports whether actor may open a direct conversation
// with target without a request: target is verified, or the pair mutually
// follows each other. A social-graph failure fails CLOSED to the request
// path so an outage never bypasses the gate.
func (w *RequestWorkflow) CanMessageDirectly(ctx context.Context, actorID, targetID string) (bool, error) {
	var target models.User
	if err := w.db.First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.NotFound("user not found")
		}
		return false, err
	}

	if target.Verified {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	mutual, err := w.graph.MutualFollow(ctx, actorID, targetID)
	if err != nil {
		logger.Warn().Err(err).
			Str("actor_id", actorID).
			Str("target_id", targetID).
			Msg("mutual-follow check failed, falling back to message request")
		return false, nil
	}
	return mutual, nil
}

// SendMessageRequest creates a PENDING request from sender to recipient.
// A PENDING request in the same direction is a conflict; a PENDING request
// in the reverse direction signals mutual intent and is accepted instead
// of creating a second row.
func (w *RequestWorkflow) SendMessageRequest(senderID, recipientID, message string) (*models.MessageRequest, error) {
	if senderID == recipientID {
		return nil, apperrors.Validation("cannot send a message request to yourself")
	}

	var out models.MessageRequest
	err := w.db.Transaction(func(tx *gorm.DB) error {
		var recipient models.User
		if err := tx.Select("id").First(&recipient, "id = ?", recipientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("recipient not found")
			}
			return err
		}

		var existing models.MessageRequest
		err := tx.Where("sender_id = ? AND recipient_id = ? AND status = ?",
			senderID, recipientID, models.RequestPending).First(&existing).Error
		if err == nil {
			return apperrors.Conflict("a pending request to this user already exists")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Crossed requests: both sides asked to connect, so accept theirs
		// instead of leaving two pending rows dangling.
		var reverse models.MessageRequest
		err = tx.Where("sender_id = ? AND recipient_id = ? AND status = ?",
			recipientID, senderID, models.RequestPending).First(&reverse).Error
		if err == nil {
			if _, aerr := w.acceptTx(tx, &reverse); aerr != nil {
				return aerr
			}
			out = reverse
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now()
		out = models.MessageRequest{
			SenderID:    senderID,
			RecipientID: recipientID,
			PairKey:     models.DirectPairKey(senderID, recipientID),
			Message:     strings.TrimSpace(message),
			Status:      models.RequestPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Create(&out).Error
	})
	if err != nil {
		// The pending-pair index is the arbiter under concurrency: a
		// duplicate or crossed send that raced past the lookups loses
		// here and is resolved against the committed row.
		if isUniqueViolation(err) {
			return w.resolvePendingRace(senderID, recipientID)
		}
		return nil, err
	}
	return &out, nil
}

// resolvePendingRace runs after losing the pending-pair index race. The
// committed row is either the same direction (a duplicate, conflict) or
// the reverse direction (crossed requests, accept it).
func (w *RequestWorkflow) resolvePendingRace(senderID, recipientID string) (*models.MessageRequest, error) {
	var out models.MessageRequest
	err := w.db.Transaction(func(tx *gorm.DB) error {
		var reverse models.MessageRequest
		err := tx.Where("sender_id = ? AND recipient_id = ? AND status = ?",
			recipientID, senderID, models.RequestPending).First(&reverse).Error
		if err == nil {
			if _, aerr := w.acceptTx(tx, &reverse); aerr != nil {
				return aerr
			}
			out = reverse
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return apperrors.Conflict("a pending request to this user already exists")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// acceptTx transitions the request to ACCEPTED and creates the direct
// conversation in the same transaction. The guarded update is the
// compare-and-swap that makes double-accept lose cleanly.
func (w *RequestWorkflow) acceptTx(tx *gorm.DB, req *models.MessageRequest) (*models.Conversation, error) {
	now := time.Now()
	res := tx.Model(&models.MessageRequest{}).
		Where("id = ? AND status = ?", req.ID, models.RequestPending).
		Updates(map[string]interface{}{
			"status":     models.RequestAccepted,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Conflict("request is no longer pending")
	}
	req.Status = models.RequestAccepted
	req.UpdatedAt = now

	return w.store.createDirectTx(tx, req.SenderID, req.RecipientID)
}

// AcceptRequest accepts a pending request as its recipient and returns the
// resulting direct conversation.
func (w *RequestWorkflow) AcceptRequest(requestID, actorID string) (*models.Conversation, error) {
	var conv *models.Conversation
	err := w.db.Transaction(func(tx *gorm.DB) error {
		var req models.MessageRequest
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("request not found")
			}
			return err
		}
		if req.RecipientID != actorID {
			return apperrors.Forbidden("only the recipient can accept a request")
		}
		if req.Status != models.RequestPending {
			return apperrors.Conflict("request is no longer pending")
		}

		c, err := w.acceptTx(tx, &req)
		if err != nil {
			return err
		}
		conv = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// RejectRequest rejects a pending request as its recipient. Terminal and
// irreversible; no conversation is created.
func (w *RequestWorkflow) RejectRequest(requestID, actorID string) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		var req models.MessageRequest
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("request not found")
			}
			return err
		}
		if req.RecipientID != actorID {
			return apperrors.Forbidden("only the recipient can reject a request")
		}
		if req.Status != models.RequestPending {
			return apperrors.Conflict("request is no longer pending")
		}

		res := tx.Model(&models.MessageRequest{}).
			Where("id = ? AND status = ?", requestID, models.RequestPending).
			Updates(map[string]interface{}{
				"status":     models.RequestRejected,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("request is no longer pending")
		}
		return nil
	})
}

// PendingRequestsFor returns the user's pending requests in both
// directions, newest first, with sender and recipient loaded.
func (w *RequestWorkflow) PendingRequestsFor(userID string) ([]models.MessageRequest, error) {
	var requests []models.MessageRequest
	err := w.db.Preload("Sender").Preload("Recipient").
		Where("(sender_id = ? OR recipient_id = ?) AND status = ?",
			userID, userID, models.RequestPending).
		Order("created_at desc").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
