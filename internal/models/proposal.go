package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProposalStatus string

const ProposalAwaitingApproval ProposalStatus = "awaiting_approval"

// TaskProposal is a task submitted by a non-admin member, waiting for an admin decision.
type TaskProposal struct {
	ID              string         `gorm:"type:varchar(36);primarykey" json:"id"`
	BoardID         string         `gorm:"type:varchar(36);not null;index" json:"board_id"`
	Title           string         `gorm:"type:varchar(255);not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Deadline        *time.Time     `json:"deadline"`
	Priority        Priority       `gorm:"type:varchar(10);not null" json:"priority"`
	ReviewerID      string         `gorm:"type:varchar(128)" json:"reviewer_id"`
	AssignedMembers []string       `gorm:"type:text;serializer:json" json:"assigned_members"`
	Subtasks        []string       `gorm:"type:text;serializer:json" json:"subtasks"`
	RewardPoints    int64          `gorm:"not null;default:0" json:"reward_points"`
	PenaltyPoints   int64          `gorm:"not null;default:0" json:"penalty_points"`
	ProposedBy      string         `gorm:"type:varchar(128);not null" json:"proposed_by"`
	Status          ProposalStatus `gorm:"type:varchar(20);not null" json:"status"`
	ProposedAt      time.Time      `json:"proposed_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (p *TaskProposal) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ToTask builds the task an approved proposal turns into. The task keeps the proposal id.
func (p *TaskProposal) ToTask() *Task {
	task := &Task{
		ID:            p.ID,
		BoardID:       p.BoardID,
		Title:         p.Title,
		Description:   p.Description,
		Deadline:      p.Deadline,
		Priority:      p.Priority,
		Status:        TaskStatusPending,
		CreatedBy:     p.ProposedBy,
		ReviewerID:    p.ReviewerID,
		RewardPoints:  p.RewardPoints,
		PenaltyPoints: p.PenaltyPoints,
	}
	for _, userID := range p.AssignedMembers {
		task.Assignments = append(task.Assignments, TaskAssignment{TaskID: p.ID, UserID: userID})
	}
	for i, text := range p.Subtasks {
		task.Subtasks = append(task.Subtasks, Subtask{TaskID: p.ID, Position: i, Text: text})
	}
	return task
}
