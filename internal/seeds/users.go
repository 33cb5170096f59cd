package seeds

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pushp314/connectly-backend/internal/database"
	"github.com/pushp314/connectly-backend/internal/models"
)

// SeedDemoUsers inserts a small set of profiles for local development.
// Production user rows are synced from the identity provider, never
// created here.
func SeedDemoUsers() error {
	log.Println("Checking demo users...")

	demo := []models.User{
		{
			Username: "ava",
			Name:     "Ava Martin",
			Image:    "https://api.dicebear.com/7.x/identicon/svg?seed=ava",
		},
		{
			Username: "ben",
			Name:     "Ben Okafor",
			Image:    "https://api.dicebear.com/7.x/identicon/svg?seed=ben",
		},
		{
			Username: "connectly",
			Name:     "Connectly Team",
			Verified: true,
			Image:    "https://api.dicebear.com/7.x/identicon/svg?seed=connectly",
		},
	}

	for _, u := range demo {
		var existing models.User
		if err := database.DB.Where("username = ?", u.Username).First(&existing).Error; err == nil {
			continue
		}

		u.ID = uuid.New().String()
		u.CreatedAt = time.Now()
		u.UpdatedAt = time.Now()
		if err := database.DB.Create(&u).Error; err != nil {
			return err
		}
		log.Printf("   Seeded demo user: %s", u.Username)
	}

	return nil
}
