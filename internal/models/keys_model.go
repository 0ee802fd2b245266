package models

import "time"

type ApiKey struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	KeyHash   string    `db:"key_hash" json:"-"`
	Prefix    string    `db:"prefix" json:"prefix"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
