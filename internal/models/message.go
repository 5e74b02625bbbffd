package models

import "time"

// MaxMessageLength is the maximum message length in characters.
const MaxMessageLength = 140

// Message is a short text post ("warble").
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"size:140;not null" json:"text"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_messages_user_timestamp,priority:2" json:"timestamp"`
	UserID    uint      `gorm:"not null;index:idx_messages_user_timestamp,priority:1" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	// LikesCount is computed at query time.
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// Liked reports whether the viewer liked this message (computed).
	Liked bool `gorm:"->;-:migration" json:"liked"`
}
