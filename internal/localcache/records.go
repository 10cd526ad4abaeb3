package localcache

import (
	"github.com/wemake-app/wemake-api/internal/models"
)

// FromTask builds the cache row for a task.
func FromTask(task *models.Task) *TaskRecord {
	rec := &TaskRecord{
		ID:              task.ID,
		BoardID:         task.BoardID,
		Title:           task.Title,
		Description:     task.Description,
		Deadline:        task.Deadline,
		Priority:        string(task.Priority),
		Status:          string(task.Status),
		CreatedBy:       task.CreatedBy,
		ReviewerID:      task.ReviewerID,
		AssignedMembers: task.AssigneeIDs(),
		RewardPoints:    task.RewardPoints,
		PenaltyPoints:   task.PenaltyPoints,
	}
	for i, st := range task.Subtasks {
		rec.Subtasks = append(rec.Subtasks, SubtaskRecord{
			ID:          st.ID,
			Position:    i,
			Text:        st.Text,
			Completed:   st.Completed,
			CompletedAt: st.CompletedAt,
		})
	}
	return rec
}

// FromProposal builds the cache row for a proposal.
func FromProposal(p *models.TaskProposal) *TaskRecord {
	rec := &TaskRecord{
		ID:              p.ID,
		BoardID:         p.BoardID,
		IsProposal:      true,
		Title:           p.Title,
		Description:     p.Description,
		Deadline:        p.Deadline,
		Priority:        string(p.Priority),
		Status:          string(p.Status),
		CreatedBy:       p.ProposedBy,
		ReviewerID:      p.ReviewerID,
		AssignedMembers: append([]string(nil), p.AssignedMembers...),
		RewardPoints:    p.RewardPoints,
		PenaltyPoints:   p.PenaltyPoints,
	}
	for i, text := range p.Subtasks {
		rec.Subtasks = append(rec.Subtasks, SubtaskRecord{Position: i, Text: text})
	}
	return rec
}

// Task converts the row back into a task model.
func (r *TaskRecord) Task() *models.Task {
	task := &models.Task{
		ID:            r.ID,
		BoardID:       r.BoardID,
		Title:         r.Title,
		Description:   r.Description,
		Deadline:      r.Deadline,
		Priority:      models.Priority(r.Priority),
		Status:        models.TaskStatus(r.Status),
		CreatedBy:     r.CreatedBy,
		ReviewerID:    r.ReviewerID,
		RewardPoints:  r.RewardPoints,
		PenaltyPoints: r.PenaltyPoints,
	}
	for _, userID := range r.AssignedMembers {
		task.Assignments = append(task.Assignments, models.TaskAssignment{TaskID: r.ID, UserID: userID})
	}
	for _, st := range r.Subtasks {
		task.Subtasks = append(task.Subtasks, models.Subtask{
			ID:          st.ID,
			TaskID:      r.ID,
			Position:    st.Position,
			Text:        st.Text,
			Completed:   st.Completed,
			CompletedAt: st.CompletedAt,
		})
	}
	return task
}

// Proposal converts the row back into a proposal model.
func (r *TaskRecord) Proposal() *models.TaskProposal {
	p := &models.TaskProposal{
		ID:              r.ID,
		BoardID:         r.BoardID,
		Title:           r.Title,
		Description:     r.Description,
		Deadline:        r.Deadline,
		Priority:        models.Priority(r.Priority),
		ReviewerID:      r.ReviewerID,
		AssignedMembers: append([]string(nil), r.AssignedMembers...),
		RewardPoints:    r.RewardPoints,
		PenaltyPoints:   r.PenaltyPoints,
		ProposedBy:      r.CreatedBy,
		Status:          models.ProposalAwaitingApproval,
		ProposedAt:      r.UpdatedAt,
	}
	for _, st := range r.Subtasks {
		p.Subtasks = append(p.Subtasks, st.Text)
	}
	return p
}
