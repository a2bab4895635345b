package domain

import "time"

// Profile is an admin account.
type Profile struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Username     string `json:"username" gorm:"uniqueIndex;size:128"`
	PasswordHash string `json:"-"`
}
