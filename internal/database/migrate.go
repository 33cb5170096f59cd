package database

import (
	"github.com/pushp314/connectly-backend/internal/models"
	"gorm.io/gorm"
)

// Migrate creates the schema plus the constraints AutoMigrate cannot
// express. Used by the server at boot and by tests against sqlite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Participant{},
		&models.Message{},
		&models.MessageReaction{},
		&models.MessageRequest{},
	); err != nil {
		return err
	}

	// One live request per unordered pair, enforced by the database so a
	// concurrent duplicate or crossed send loses at commit instead of
	// slipping past the in-transaction lookup. Terminal rows keep their
	// pair key but fall out of the index.
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_message_requests_pending_pair
		 ON message_requests (pair_key) WHERE status = 'PENDING'`,
	).Error
}
