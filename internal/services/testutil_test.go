package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pushp314/connectly-backend/internal/database"
	"github.com/pushp314/connectly-backend/internal/models"
	"github.com/pushp314/connectly-backend/internal/socialgraph"
	"github.com/pushp314/connectly-backend/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a uniquely named in-memory SQLite DB so every test gets
// an isolated schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Init("test")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, id string, verified bool) models.User {
	t.Helper()
	u := models.User{ID: id, Username: id, Name: "User " + id, Verified: verified}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", id, err)
	}
	return u
}

func createMessageAt(t *testing.T, db *gorm.DB, conversationID, senderID, content string, at time.Time) models.Message {
	t.Helper()
	msg := models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           models.MessageTypeText,
		CreatedAt:      at,
	}
	if err := db.Create(&msg).Error; err != nil {
		t.Fatalf("failed to create message: %v", err)
	}
	return msg
}

// fakeGraph is an in-memory stand-in for the social-graph collaborator.
type fakeGraph struct {
	mutual map[string]bool
	err    error
}

func (f *fakeGraph) MutualFollow(ctx context.Context, userID, targetID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.mutual[models.DirectPairKey(userID, targetID)], nil
}

func (f *fakeGraph) Friends(ctx context.Context, userID string) ([]socialgraph.Friend, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []socialgraph.Friend{}, nil
}
