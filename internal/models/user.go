package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthProvider string

const (
	AuthProviderPassword AuthProvider = "password"
	AuthProviderFirebase AuthProvider = "firebase"
)

type User struct {
	ID                   string       `gorm:"type:varchar(128);primarykey" json:"id"`
	Email                string       `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name                 string       `gorm:"type:varchar(255);not null" json:"name"`
	PhotoURL             string       `gorm:"type:varchar(1024)" json:"photo_url"`
	PasswordHash         string       `gorm:"type:varchar(255)" json:"-"`
	AuthProvider         AuthProvider `gorm:"type:varchar(20);not null" json:"auth_provider"`
	DeviceToken          string       `gorm:"type:varchar(512)" json:"-"`
	NotificationsEnabled bool         `gorm:"not null" json:"notifications_enabled"`
	SelectedBoardID      *string      `gorm:"type:varchar(36)" json:"selected_board_id"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`

	// Relations
	Memberships []BoardMember    `gorm:"foreignKey:UserID" json:"-"`
	Assignments []TaskAssignment `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
