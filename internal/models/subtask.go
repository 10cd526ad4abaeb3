package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subtask struct {
	ID          string     `gorm:"type:varchar(36);primarykey" json:"id"`
	TaskID      string     `gorm:"type:varchar(36);not null;index" json:"task_id"`
	Position    int        `gorm:"not null" json:"position"`
	Text        string     `gorm:"type:varchar(500);not null" json:"text"`
	Completed   bool       `gorm:"not null" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (s *Subtask) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SetCompleted flips the completed flag, keeping CompletedAt in step with it.
func (s *Subtask) SetCompleted(completed bool, now time.Time) {
	s.Completed = completed
	if completed {
		s.CompletedAt = &now
	} else {
		s.CompletedAt = nil
	}
}
