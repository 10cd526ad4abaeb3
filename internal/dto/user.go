package dto

import (
	"time"

	"github.com/wemake-app/wemake-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID                   string              `json:"id"`
	Email                string              `json:"email"`
	Name                 string              `json:"name"`
	PhotoURL             string              `json:"photo_url,omitempty"`
	AuthProvider         models.AuthProvider `json:"auth_provider,omitempty"`
	NotificationsEnabled bool                `json:"notifications_enabled"`
	SelectedBoardID      *string             `json:"selected_board_id"`
}

// UserSummaryDTO is the public part of a user shown to other members
type UserSummaryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// AuthResponse is returned by login, signup and federated sign-in
type AuthResponse struct {
	User      UserDTO   `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PreferencesDTO represents the user's app preferences
type PreferencesDTO struct {
	SelectedBoardID      *string `json:"selected_board_id"`
	NotificationsEnabled bool    `json:"notifications_enabled"`
}

func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:                   user.ID,
		Email:                user.Email,
		Name:                 user.Name,
		PhotoURL:             user.PhotoURL,
		AuthProvider:         user.AuthProvider,
		NotificationsEnabled: user.NotificationsEnabled,
		SelectedBoardID:      user.SelectedBoardID,
	}
}

func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		PhotoURL: user.PhotoURL,
	}
}

func ToPreferencesDTO(user models.User) PreferencesDTO {
	return PreferencesDTO{
		SelectedBoardID:      user.SelectedBoardID,
		NotificationsEnabled: user.NotificationsEnabled,
	}
}
