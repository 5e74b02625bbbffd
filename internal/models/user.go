// Package models contains the persistent entities and shared error types.
package models

import "time"

// Default profile images assigned when a user leaves the field empty.
const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// User is a registered account.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Username       string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	ImageURL       string    `gorm:"not null;default:'/static/images/default-pic.png'" json:"image_url"`
	HeaderImageURL string    `gorm:"not null;default:'/static/images/warbler-hero.jpg'" json:"header_image_url"`
	Bio            string    `gorm:"type:text;not null;default:''" json:"bio"`
	Location       string    `gorm:"size:100;not null;default:''" json:"location"`
	Password       string    `gorm:"not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ApplyImageDefaults fills empty image fields with the default images.
func (u *User) ApplyImageDefaults() {
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}
	if u.HeaderImageURL == "" {
		u.HeaderImageURL = DefaultHeaderImageURL
	}
}

// UserProfile is a user together with the counts and relations shown on a profile page.
type UserProfile struct {
	User           *User `json:"user"`
	MessagesCount  int64 `json:"messages_count"`
	FollowingCount int64 `json:"following_count"`
	FollowersCount int64 `json:"followers_count"`
	LikesCount     int64 `json:"likes_count"`
	// IsFollowing reports whether the viewer follows this user.
	IsFollowing bool `json:"is_following"`
	// FollowsYou reports whether this user follows the viewer.
	FollowsYou bool       `json:"follows_you"`
	Messages   []*Message `json:"messages"`
}
