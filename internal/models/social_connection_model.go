package models

import (
	"time"
)

// SocialConnection holds plaintext tokens in memory. The repository encrypts
// them on write and decrypts them on read.
type SocialConnection struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	Platform     string    `db:"platform" json:"platform"`
	ProfileID    string    `db:"profile_id" json:"profile_id"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
