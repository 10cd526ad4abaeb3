package models

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// BoardMember holds a user's per-board role and point balance.
type BoardMember struct {
	BoardID  string    `gorm:"type:varchar(36);primarykey" json:"board_id"`
	UserID   string    `gorm:"type:varchar(128);primarykey;index" json:"user_id"`
	Role     Role      `gorm:"type:varchar(20);not null" json:"role"`
	Points   int64     `gorm:"not null;default:0" json:"points"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Board Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m BoardMember) IsAdmin() bool {
	return m.Role == RoleAdmin
}
