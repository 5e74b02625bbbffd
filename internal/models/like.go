package models

import "time"

// Like records that a user liked a message. A user likes a message at most once.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_message" json:"user_id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_likes_user_message;index" json:"message_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Message   *Message  `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
