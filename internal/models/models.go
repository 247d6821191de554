// Package models defines the persisted record types.
package models

import "time"

// User is a Telegram account known to the bot, created lazily on first
// contact and never deleted. Flags are flipped by admin commands only.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    int64  `gorm:"uniqueIndex;not null"` // Telegram user id
	Username  string `gorm:"type:varchar(255)"`
	FirstName string `gorm:"type:varchar(255)"`
	LastName  string `gorm:"type:varchar(255)"`
	IsPremium bool   `gorm:"default:false"`
	IsBanned  bool   `gorm:"default:false"`
	IsAdmin   bool   `gorm:"default:false"`
	JoinDate  time.Time
}

// Thumbnail is the single live cover image for a user. The unique index on
// user_id is what guarantees "at most one per user"; writes go through an
// upsert, not delete-then-insert.
type Thumbnail struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    int64  `gorm:"uniqueIndex;not null"`
	FileRef   string `gorm:"type:varchar(255);not null"` // Telegram file_id
	CreatedAt time.Time
}

// Caption is the single live caption override for a user, same replace
// semantics as Thumbnail.
type Caption struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      int64  `gorm:"uniqueIndex;not null"`
	CaptionText string `gorm:"type:text"`
	CreatedAt   time.Time
}
