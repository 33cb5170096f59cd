package models

import "time"

// User is owned by the external identity/profile service; this backend
// only reads the synced rows. Participants hold a UserID foreign key
// instead of embedding the user to keep the object graph acyclic.
type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name     string `json:"name"`
	Username string `gorm:"uniqueIndex" json:"username"`
	Verified bool   `gorm:"default:false" json:"verified"`
	Image    string `json:"image"`
}
