package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusInReview   TaskStatus = "in_review"
	TaskStatusCompleted  TaskStatus = "completed"
)

var statusPipeline = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusInReview,
	TaskStatusCompleted,
}

func (s TaskStatus) Valid() bool {
	return s.index() >= 0
}

// Next returns the following pipeline stage. Completed tasks have none.
func (s TaskStatus) Next() (TaskStatus, bool) {
	i := s.index()
	if i < 0 || i == len(statusPipeline)-1 {
		return "", false
	}
	return statusPipeline[i+1], true
}

func (s TaskStatus) index() int {
	for i, st := range statusPipeline {
		if st == s {
			return i
		}
	}
	return -1
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Cycle is the swipe transition: high and medium swap, low moves up to medium.
func (p Priority) Cycle() Priority {
	if p == PriorityMedium {
		return PriorityHigh
	}
	return PriorityMedium
}

type Task struct {
	ID             string     `gorm:"type:varchar(36);primarykey" json:"id"`
	BoardID        string     `gorm:"type:varchar(36);not null;index" json:"board_id"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Deadline       *time.Time `gorm:"index" json:"deadline"`
	Priority       Priority   `gorm:"type:varchar(10);not null" json:"priority"`
	Status         TaskStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedBy      string     `gorm:"type:varchar(128);not null" json:"created_by"`
	ReviewerID     string     `gorm:"type:varchar(128)" json:"reviewer_id"`
	RewardPoints   int64      `gorm:"not null;default:0" json:"reward_points"`
	PenaltyPoints  int64      `gorm:"not null;default:0" json:"penalty_points"`
	CompletedAt    *time.Time `json:"completed_at"`
	RewardApplied  bool       `gorm:"not null" json:"reward_applied"`
	PenaltyApplied bool       `gorm:"not null" json:"penalty_applied"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Board       Board            `gorm:"foreignKey:BoardID" json:"-"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	Subtasks    []Subtask        `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"subtasks,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AssigneeIDs returns the ids of assigned members.
func (t *Task) AssigneeIDs() []string {
	ids := make([]string, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

func (t *Task) IsAssignedTo(userID string) bool {
	for _, a := range t.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// IsOverdue reports whether the deadline has passed for an unfinished task.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now) && t.Status != TaskStatusCompleted
}
