package models

import "time"

// Base model with a numeric primary key and timestamps. The numeric ID is an
// internal handle and is never serialized.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
