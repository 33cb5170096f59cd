package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pushp314/connectly-backend/internal/database"
	"github.com/pushp314/connectly-backend/internal/models"
	"github.com/pushp314/connectly-backend/internal/services"
	"github.com/pushp314/connectly-backend/internal/socialgraph"
	"github.com/pushp314/connectly-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubGraph answers every mutual-follow probe with a fixed verdict.
type stubGraph struct {
	mutual bool
}

func (s *stubGraph) MutualFollow(ctx context.Context, userID, targetID string) (bool, error) {
	return s.mutual, nil
}

func (s *stubGraph) Friends(ctx context.Context, userID string) ([]socialgraph.Friend, error) {
	return []socialgraph.Friend{}, nil
}

func setupHandlerTest(t *testing.T, graph socialgraph.Client) (*ChatHandler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Init("test")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	svc := services.NewConversationService(db, graph)
	return NewChatHandler(svc), db
}

func seedUser(t *testing.T, db *gorm.DB, id string, verified bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{
		ID: id, Username: id, Name: "User " + id, Verified: verified,
	}).Error)
}

func testContext(t *testing.T, userID, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set("userId", userID)
	return c, w
}

func TestCreateConversationRoutesToRequestPath(t *testing.T) {
	h, db := setupHandlerTest(t, &stubGraph{mutual: false})
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)

	c, w := testContext(t, "alice", http.MethodPost, "/api/chat/conversations",
		gin.H{"participantIds": []string{"bob"}})
	h.CreateConversation(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["isRequest"])
}

func TestCreateConversationMutualFollowers(t *testing.T) {
	h, db := setupHandlerTest(t, &stubGraph{mutual: true})
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)

	c, w := testContext(t, "alice", http.MethodPost, "/api/chat/conversations",
		gin.H{"participantIds": []string{"bob"}})
	h.CreateConversation(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Conversation models.Conversation `json:"conversation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Conversation.ID)
	assert.Equal(t, models.ConversationDirect, resp.Conversation.Kind)
}

func TestSendMessageEndpoint(t *testing.T) {
	h, db := setupHandlerTest(t, &stubGraph{mutual: true})
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)

	conv, err := services.NewConversationStore(db).CreateDirect("alice", "bob")
	require.NoError(t, err)

	c, w := testContext(t, "alice", http.MethodPost, "/api/chat/conversations/x/messages",
		gin.H{"content": "hello over http"})
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	h.SendMessage(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Message models.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hello over http", resp.Message.Content)
	assert.Equal(t, models.MessageTypeText, resp.Message.Type)
}

func TestSendMessageUnknownType(t *testing.T) {
	h, db := setupHandlerTest(t, &stubGraph{})
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)
	conv, err := services.NewConversationStore(db).CreateDirect("alice", "bob")
	require.NoError(t, err)

	c, w := testContext(t, "alice", http.MethodPost, "/api/chat/conversations/x/messages",
		gin.H{"content": "hi", "type": "HOLOGRAM"})
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	h.SendMessage(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMessagesRequiresMembership(t *testing.T) {
	h, db := setupHandlerTest(t, &stubGraph{})
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)
	seedUser(t, db, "eve", false)
	conv, err := services.NewConversationStore(db).CreateDirect("alice", "bob")
	require.NoError(t, err)

	c, w := testContext(t, "eve", http.MethodGet, "/api/chat/conversations/x/messages", nil)
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	h.GetMessages(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleReactionEndpoint(t *testing.T) {
	h, db := setupHandlerTest(t, &stubGraph{})
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)
	store := services.NewConversationStore(db)
	conv, err := store.CreateDirect("alice", "bob")
	require.NoError(t, err)
	msg, err := store.AppendMessage(conv.ID, "alice", "react here", models.MessageTypeText, nil)
	require.NoError(t, err)

	c, w := testContext(t, "bob", http.MethodPost, "/api/chat/messages/x/reactions",
		gin.H{"emoji": "👍"})
	c.Params = gin.Params{{Key: "id", Value: msg.ID}}
	h.ToggleReaction(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Reactions []services.ReactionSummary `json:"reactions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reactions, 1)
	assert.Equal(t, "👍", resp.Reactions[0].Emoji)
	assert.True(t, resp.Reactions[0].CurrentUserReacted)
}

func TestAcceptRequestEndpointDoubleAccept(t *testing.T) {
	h, db := setupHandlerTest(t, &stubGraph{})
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)

	c, w := testContext(t, "alice", http.MethodPost, "/api/chat/requests",
		gin.H{"recipientId": "bob", "message": "hi bob"})
	h.SendMessageRequest(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Request models.MessageRequest `json:"request"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Request.ID)

	c, w = testContext(t, "bob", http.MethodPost, "/api/chat/requests/x/accept", nil)
	c.Params = gin.Params{{Key: "id", Value: created.Request.ID}}
	h.AcceptRequest(c)
	require.Equal(t, http.StatusOK, w.Code)

	// The second accept hits the terminal-state guard.
	c, w = testContext(t, "bob", http.MethodPost, "/api/chat/requests/x/accept", nil)
	c.Params = gin.Params{{Key: "id", Value: created.Request.ID}}
	h.AcceptRequest(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetNotificationCountsEndpoint(t *testing.T) {
	h, db := setupHandlerTest(t, &stubGraph{})
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)
	store := services.NewConversationStore(db)
	conv, err := store.CreateDirect("alice", "bob")
	require.NoError(t, err)
	_, err = store.AppendMessage(conv.ID, "bob", "unread for alice", models.MessageTypeText, nil)
	require.NoError(t, err)

	c, w := testContext(t, "alice", http.MethodGet, "/api/notifications/counts", nil)
	h.GetNotificationCounts(c)

	require.Equal(t, http.StatusOK, w.Code)
	var counts services.NotificationCounts
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts.UnreadMessages)
	assert.Equal(t, int64(1), counts.Total)
}

func TestDeleteConversationEndpoint(t *testing.T) {
	h, db := setupHandlerTest(t, &stubGraph{})
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)
	store := services.NewConversationStore(db)
	conv, err := store.CreateDirect("alice", "bob")
	require.NoError(t, err)

	c, w := testContext(t, "alice", http.MethodDelete, "/api/chat/conversations/x", nil)
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	h.DeleteConversation(c)
	require.Equal(t, http.StatusOK, w.Code)

	// Bob still sees the conversation; Alice's membership is gone.
	_, err = store.Participant(conv.ID, "bob")
	assert.NoError(t, err)
	_, err = store.Participant(conv.ID, "alice")
	assert.Error(t, err)
}
