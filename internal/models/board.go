package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Board struct {
	ID          string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"type:varchar(16);not null" json:"color"`
	InviteCode  string    `gorm:"type:varchar(6);uniqueIndex;not null" json:"invite_code"`
	CreatedBy   string    `gorm:"type:varchar(128);not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Members []BoardMember `gorm:"foreignKey:BoardID" json:"members,omitempty"`
	Tasks   []Task        `gorm:"foreignKey:BoardID" json:"-"`
}

func (b *Board) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
