package users

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ProfileDTO is the transport shape of a stored user profile.
type ProfileDTO struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName,omitempty"`
	PhotoURL    string     `json:"photoUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// FromModel maps a profile row to its DTO.
func FromModel(m *models.UserProfile) ProfileDTO {
	return ProfileDTO{
		ID:          m.ID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		PhotoURL:    m.PhotoURL,
		CreatedAt:   m.CreatedAt,
		LastLoginAt: m.LastLoginAt,
	}
}
