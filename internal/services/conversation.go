package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/pushp314/connectly-backend/internal/models"
	"github.com/pushp314/connectly-backend/internal/socialgraph"
	apperrors "github.com/pushp314/connectly-backend/pkg/errors"
	"github.com/pushp314/connectly-backend/pkg/logger"
	"gorm.io/gorm"
)

// ConversationService is the façade the HTTP layer calls exclusively. It
// narrows authorization (caller must be a participant, the recipient,
// etc.) and shapes responses; every data invariant lives in the
// components underneath.
type ConversationService struct {
	store      *ConversationStore
	ledger     *ReactionLedger
	workflow   *RequestWorkflow
	aggregator *NotificationAggregator
	graph      socialgraph.Client
}

func NewConversationService(db *gorm.DB, graph socialgraph.Client) *ConversationService {
	store := NewConversationStore(db)
	return &ConversationService{
		store:      store,
		ledger:     NewReactionLedger(db),
		workflow:   NewRequestWorkflow(db, store, graph),
		aggregator: NewNotificationAggregator(db, store),
		graph:      graph,
	}
}

// ConversationView is one inbox entry shaped for the client.
type ConversationView struct {
	models.Conversation
	LastMessage *models.Message `json:"lastMessage,omitempty"`
	UnreadCount int64           `json:"unreadCount"`
	IsFavorite  bool            `json:"isFavorite"`
	MutedUntil  *time.Time      `json:"mutedUntil,omitempty"`
}

// RequestView attaches the viewer-derived direction to a request.
type RequestView struct {
	models.MessageRequest
	IsReceived bool `json:"isReceived"`
}

// Inbox is the GetConversations payload. Commercial threads are split out
// for their own tab but still count toward the same badge totals.
type Inbox struct {
	Conversations []ConversationView `json:"conversations"`
	Requests      []RequestView      `json:"requests"`
	Commercial    []ConversationView `json:"commercial"`
}

// CreateConversationResult either carries the conversation or tells the
// caller to go through SendMessageRequest instead.
type CreateConversationResult struct {
	Conversation *models.Conversation `json:"conversation,omitempty"`
	IsRequest    bool                 `json:"isRequest"`
}

// GetConversations assembles the viewer's inbox. Individual conversations
// that fail to resolve are skipped and logged, matching the badge
// aggregation's degrade-don't-fail posture.
func (svc *ConversationService) GetConversations(userID string) (*Inbox, error) {
	rows, err := svc.store.ParticipantRows(userID)
	if err != nil {
		return nil, err
	}

	inbox := &Inbox{
		Conversations: []ConversationView{},
		Requests:      []RequestView{},
		Commercial:    []ConversationView{},
	}

	now := time.Now()
	for _, p := range rows {
		conv, err := svc.store.GetConversation(p.ConversationID)
		if err != nil {
			logger.Warn().Err(err).
				Str("conversation_id", p.ConversationID).
				Msg("skipping conversation in inbox listing")
			continue
		}

		last, err := svc.store.LastMessage(conv.ID)
		if err != nil {
			logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("last message lookup failed")
		}

		var unread int64
		if !p.Muted(now) {
			unread, err = svc.store.UnreadCount(conv.ID, userID, p.LastReadAt)
			if err != nil {
				logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("unread count failed")
				unread = 0
			}
		}

		view := ConversationView{
			Conversation: *conv,
			LastMessage:  last,
			UnreadCount:  unread,
			IsFavorite:   p.IsFavorite,
			MutedUntil:   p.MutedUntil,
		}
		if conv.Kind == models.ConversationCommercial {
			inbox.Commercial = append(inbox.Commercial, view)
		} else {
			inbox.Conversations = append(inbox.Conversations, view)
		}
	}

	byRecency := func(views []ConversationView) {
		sort.Slice(views, func(i, j int) bool {
			return views[i].UpdatedAt.After(views[j].UpdatedAt)
		})
	}
	byRecency(inbox.Conversations)
	byRecency(inbox.Commercial)

	requests, err := svc.workflow.PendingRequestsFor(userID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("pending request listing failed")
	} else {
		for _, r := range requests {
			inbox.Requests = append(inbox.Requests, RequestView{
				MessageRequest: r,
				IsReceived:     r.IsReceived(userID),
			})
		}
	}

	return inbox, nil
}

// GetMessages returns one page of history; the caller must be a participant.
func (svc *ConversationService) GetMessages(conversationID, userID string, page, limit int) ([]models.Message, error) {
	if _, err := svc.store.Participant(conversationID, userID); err != nil {
		return nil, err
	}
	return svc.store.Messages(conversationID, page, limit)
}

// SendMessage appends a message and invalidates the other participants'
// badge caches.
func (svc *ConversationService) SendMessage(conversationID, userID, content string, msgType models.MessageType, replyToID *string) (*models.Message, error) {
	msg, err := svc.store.AppendMessage(conversationID, userID, content, msgType, replyToID)
	if err != nil {
		return nil, err
	}

	if ids, err := svc.store.ParticipantIDs(conversationID); err == nil {
		svc.aggregator.Invalidate(ids...)
	}
	return msg, nil
}

// UpdateMessage edits a message in place; only the author may edit.
func (svc *ConversationService) UpdateMessage(messageID, userID, content string) (*models.Message, error) {
	return svc.store.EditMessage(messageID, userID, content)
}

// ToggleReaction flips the viewer's reaction after checking they belong to
// the message's conversation.
func (svc *ConversationService) ToggleReaction(messageID, userID, emoji string) ([]ReactionSummary, error) {
	if err := svc.requireMessageAccess(messageID, userID); err != nil {
		return nil, err
	}
	return svc.ledger.Toggle(messageID, userID, emoji)
}

// GetReactions returns the message's reaction summaries for the viewer.
func (svc *ConversationService) GetReactions(messageID, userID string) ([]ReactionSummary, error) {
	if err := svc.requireMessageAccess(messageID, userID); err != nil {
		return nil, err
	}
	return svc.ledger.Summarize(messageID, userID)
}

func (svc *ConversationService) requireMessageAccess(messageID, userID string) error {
	var msg models.Message
	if err := svc.store.db.Select("id", "conversation_id").First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("message not found")
		}
		return err
	}
	_, err := svc.store.Participant(msg.ConversationID, userID)
	return err
}

// CreateConversation opens a group, opens a direct conversation, or
// signals that the caller must go through a message request. The
// social-graph check happens only on the single-recipient path.
func (svc *ConversationService) CreateConversation(ctx context.Context, userID string, participantIDs []string, name string) (*CreateConversationResult, error) {
	if len(participantIDs) == 0 {
		return nil, apperrors.Validation("at least one participant is required")
	}

	if len(participantIDs) > 1 {
		conv, err := svc.store.CreateGroup(userID, name, participantIDs)
		if err != nil {
			return nil, err
		}
		return &CreateConversationResult{Conversation: conv}, nil
	}

	targetID := participantIDs[0]
	direct, err := svc.workflow.CanMessageDirectly(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}
	if !direct {
		return &CreateConversationResult{IsRequest: true}, nil
	}

	conv, err := svc.store.CreateDirect(userID, targetID)
	if err != nil {
		return nil, err
	}
	return &CreateConversationResult{Conversation: conv}, nil
}

// SendMessageRequest delegates to the workflow and refreshes the
// recipient's badge.
func (svc *ConversationService) SendMessageRequest(userID, recipientID, message string) (*models.MessageRequest, error) {
	req, err := svc.workflow.SendMessageRequest(userID, recipientID, message)
	if err != nil {
		return nil, err
	}
	svc.aggregator.Invalidate(userID, recipientID)
	return req, nil
}

// AcceptRequest accepts as the recipient and returns the new conversation.
func (svc *ConversationService) AcceptRequest(requestID, userID string) (*models.Conversation, error) {
	conv, err := svc.workflow.AcceptRequest(requestID, userID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		if ids, err := svc.store.ParticipantIDs(conv.ID); err == nil {
			svc.aggregator.Invalidate(ids...)
		}
	}
	return conv, nil
}

// RejectRequest rejects as the recipient. Terminal.
func (svc *ConversationService) RejectRequest(requestID, userID string) error {
	if err := svc.workflow.RejectRequest(requestID, userID); err != nil {
		return err
	}
	svc.aggregator.Invalidate(userID)
	return nil
}

// ListRequests returns the viewer's pending requests with direction.
func (svc *ConversationService) ListRequests(userID string) ([]RequestView, error) {
	requests, err := svc.workflow.PendingRequestsFor(userID)
	if err != nil {
		return nil, err
	}
	views := make([]RequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, RequestView{MessageRequest: r, IsReceived: r.IsReceived(userID)})
	}
	return views, nil
}

// ToggleFavorite flips the caller's pin flag and returns the updated row.
func (svc *ConversationService) ToggleFavorite(conversationID, userID string) (*models.Participant, error) {
	p, err := svc.store.Participant(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if err := svc.store.SetFavorite(conversationID, userID, !p.IsFavorite); err != nil {
		return nil, err
	}
	p.IsFavorite = !p.IsFavorite
	return p, nil
}

// MuteConversation opens or clears the caller's mute window.
func (svc *ConversationService) MuteConversation(conversationID, userID string, until *time.Time) error {
	if err := svc.store.SetMuted(conversationID, userID, until); err != nil {
		return err
	}
	svc.aggregator.Invalidate(userID)
	return nil
}

// MarkRead advances the caller's read cursor to now.
func (svc *ConversationService) MarkRead(conversationID, userID string) error {
	if err := svc.store.SetLastRead(conversationID, userID, time.Now()); err != nil {
		return err
	}
	svc.aggregator.Invalidate(userID)
	return nil
}

// DeleteConversation is a soft leave for the caller only.
func (svc *ConversationService) DeleteConversation(conversationID, userID string) error {
	if err := svc.store.RemoveParticipant(conversationID, userID); err != nil {
		return err
	}
	svc.aggregator.Invalidate(userID)
	return nil
}

// ComputeCounts returns the viewer's badge counts.
func (svc *ConversationService) ComputeCounts(userID string) (*NotificationCounts, error) {
	return svc.aggregator.ComputeCounts(userID)
}

// GetFriends proxies the social-graph friends list. Unlike the workflow's
// gate, an outage here surfaces as UnavailableError.
func (svc *ConversationService) GetFriends(ctx context.Context, userID string) ([]socialgraph.Friend, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return svc.graph.Friends(ctx, userID)
}

// CheckMutualFollow proxies a single mutual-follow lookup.
func (svc *ConversationService) CheckMutualFollow(ctx context.Context, userID, targetID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return svc.graph.MutualFollow(ctx, userID, targetID)
}
