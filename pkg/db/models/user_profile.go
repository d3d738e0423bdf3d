package models

import "time"

// UserProfile is the identity provider's user mirrored on first sign-in.
type UserProfile struct {
	ID          string     `gorm:"column:id;type:text;primaryKey"`
	Email       string     `gorm:"column:email;type:text;not null"`
	DisplayName string     `gorm:"column:display_name;type:text"`
	PhotoURL    string     `gorm:"column:photo_url;type:text"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}
