package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pushp314/connectly-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAggregator(t *testing.T) (*NotificationAggregator, *ConversationStore, *RequestWorkflow, *testDeps) {
	t.Helper()
	db := newTestDB(t)
	store := NewConversationStore(db)
	wf := NewRequestWorkflow(db, store, &fakeGraph{})
	return NewNotificationAggregator(db, store), store, wf, &testDeps{db: db}
}

func TestComputeCountsNeverRead(t *testing.T) {
	agg, store, _, deps := setupAggregator(t)
	createUser(t, deps.db, "alice", false)
	createUser(t, deps.db, "bob", false)
	conv, err := store.CreateDirect("alice", "bob")
	require.NoError(t, err)

	now := time.Now()
	createMessageAt(t, deps.db, conv.ID, "bob", "one", now.Add(-3*time.Minute))
	createMessageAt(t, deps.db, conv.ID, "bob", "two", now.Add(-2*time.Minute))
	createMessageAt(t, deps.db, conv.ID, "bob", "three", now.Add(-time.Minute))

	counts, err := agg.ComputeCounts("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.UnreadMessages)
	assert.Equal(t, int64(0), counts.PendingRequests)
	assert.Equal(t, int64(0), counts.CommercialMessages)
	assert.Equal(t, int64(3), counts.Total)
}

func TestComputeCountsExcludesOwnMessages(t *testing.T) {
	agg, store, _, deps := setupAggregator(t)
	createUser(t, deps.db, "alice", false)
	createUser(t, deps.db, "bob", false)
	conv, err := store.CreateDirect("alice", "bob")
	require.NoError(t, err)

	now := time.Now()
	createMessageAt(t, deps.db, conv.ID, "alice", "mine", now.Add(-2*time.Minute))
	createMessageAt(t, deps.db, conv.ID, "bob", "theirs", now.Add(-time.Minute))

	counts, err := agg.ComputeCounts("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.UnreadMessages)
}

func TestComputeCountsHonorsReadCursor(t *testing.T) {
	agg, store, _, deps := setupAggregator(t)
	createUser(t, deps.db, "alice", false)
	createUser(t, deps.db, "bob", false)
	conv, err := store.CreateDirect("alice", "bob")
	require.NoError(t, err)

	now := time.Now()
	createMessageAt(t, deps.db, conv.ID, "bob", "old", now.Add(-10*time.Minute))
	createMessageAt(t, deps.db, conv.ID, "bob", "new", now.Add(-time.Minute))

	require.NoError(t, store.SetLastRead(conv.ID, "alice", now.Add(-5*time.Minute)))

	counts, err := agg.ComputeCounts("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.UnreadMessages)
}

func TestComputeCountsMutedConversation(t *testing.T) {
	agg, store, _, deps := setupAggregator(t)
	createUser(t, deps.db, "alice", false)
	createUser(t, deps.db, "bob", false)
	createUser(t, deps.db, "carol", false)

	muted, err := store.CreateDirect("alice", "bob")
	require.NoError(t, err)
	loud, err := store.CreateDirect("alice", "carol")
	require.NoError(t, err)

	now := time.Now()
	createMessageAt(t, deps.db, muted.ID, "bob", "suppressed", now.Add(-2*time.Minute))
	createMessageAt(t, deps.db, loud.ID, "carol", "counted", now.Add(-time.Minute))

	until := now.Add(8 * time.Hour)
	require.NoError(t, store.SetMuted(muted.ID, "alice", &until))

	counts, err := agg.ComputeCounts("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.UnreadMessages)

	// An expired mute window counts again.
	expired := now.Add(-time.Minute)
	require.NoError(t, store.SetMuted(muted.ID, "alice", &expired))

	counts, err = agg.ComputeCounts("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.UnreadMessages)
}

func TestComputeCountsCommercialBreakdown(t *testing.T) {
	agg, store, _, deps := setupAggregator(t)
	createUser(t, deps.db, "alice", false)
	createUser(t, deps.db, "bob", false)
	createUser(t, deps.db, "brandshop", true)

	personal, err := store.CreateDirect("alice", "bob")
	require.NoError(t, err)
	commercial, err := store.CreateDirect("alice", "brandshop")
	require.NoError(t, err)

	now := time.Now()
	createMessageAt(t, deps.db, personal.ID, "bob", "hi", now.Add(-2*time.Minute))
	createMessageAt(t, deps.db, commercial.ID, "brandshop", "your order shipped", now.Add(-time.Minute))

	counts, err := agg.ComputeCounts("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.UnreadMessages)
	assert.Equal(t, int64(1), counts.CommercialMessages)

	// Commercial is a breakdown of unread, never added on top.
	assert.Equal(t, int64(2), counts.Total)
}

func TestComputeCountsPendingRequests(t *testing.T) {
	agg, _, wf, deps := setupAggregator(t)
	createUser(t, deps.db, "alice", false)
	createUser(t, deps.db, "bob", false)

	_, err := wf.SendMessageRequest("alice", "bob", "hi")
	require.NoError(t, err)

	// Pending only for the recipient, not the sender.
	senderCounts, err := agg.ComputeCounts("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), senderCounts.PendingRequests)

	recipientCounts, err := agg.ComputeCounts("bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), recipientCounts.PendingRequests)
	assert.Equal(t, int64(1), recipientCounts.Total)
}

func TestComputeCountsSkipsDanglingMembership(t *testing.T) {
	agg, store, _, deps := setupAggregator(t)
	createUser(t, deps.db, "alice", false)
	createUser(t, deps.db, "bob", false)
	conv, err := store.CreateDirect("alice", "bob")
	require.NoError(t, err)

	now := time.Now()
	createMessageAt(t, deps.db, conv.ID, "bob", "hi", now.Add(-time.Minute))

	// A membership row pointing at a missing conversation is skipped, not fatal.
	orphan := models.Participant{
		ConversationID: uuid.New().String(),
		UserID:         "alice",
		JoinedAt:       now,
	}
	require.NoError(t, deps.db.Create(&orphan).Error)

	counts, err := agg.ComputeCounts("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.UnreadMessages)
}
