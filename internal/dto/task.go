package dto

import (
	"time"

	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/services"
	"github.com/wemake-app/wemake-api/internal/utils"
)

// SubtaskDTO represents a subtask in API responses
type SubtaskDTO struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID            string            `json:"id"`
	BoardID       string            `json:"board_id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Deadline      *time.Time        `json:"deadline"`
	Priority      models.Priority   `json:"priority"`
	Status        models.TaskStatus `json:"status"`
	CreatedBy     string            `json:"created_by"`
	ReviewerID    string            `json:"reviewer_id"`
	AssigneeIDs   []string          `json:"assignee_ids"`
	Subtasks      []SubtaskDTO      `json:"subtasks"`
	RewardPoints  int64             `json:"reward_points"`
	PenaltyPoints int64             `json:"penalty_points"`
	CompletedAt   *time.Time        `json:"completed_at"`
	Overdue       bool              `json:"overdue"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ProposalDTO represents a task proposal awaiting an admin decision
type ProposalDTO struct {
	ID            string                `json:"id"`
	BoardID       string                `json:"board_id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Deadline      *time.Time            `json:"deadline"`
	Priority      models.Priority       `json:"priority"`
	ReviewerID    string                `json:"reviewer_id"`
	AssigneeIDs   []string              `json:"assignee_ids"`
	Subtasks      []string              `json:"subtasks"`
	RewardPoints  int64                 `json:"reward_points"`
	PenaltyPoints int64                 `json:"penalty_points"`
	ProposedBy    string                `json:"proposed_by"`
	Status        models.ProposalStatus `json:"status"`
	ProposedAt    time.Time             `json:"proposed_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// CreateTaskResponse carries the task, or the proposal a non-admin created instead
type CreateTaskResponse struct {
	Task     *TaskDTO     `json:"task,omitempty"`
	Proposal *ProposalDTO `json:"proposal,omitempty"`
	Queued   bool         `json:"queued"`
}

// MutationDTO is the answer to a status, priority or undo request
type MutationDTO struct {
	Task          TaskDTO                  `json:"task"`
	Outcome       services.MutationOutcome `json:"outcome"`
	UndoToken     string                   `json:"undo_token,omitempty"`
	UndoExpiresAt *time.Time               `json:"undo_expires_at,omitempty"`
	Awarded       bool                     `json:"awarded"`
	Points        int64                    `json:"points,omitempty"`
}

// CreateTaskRequest is the body of task creation. Offline batches also carry
// the client-generated id and the board.
type CreateTaskRequest struct {
	ID            string          `json:"id"`
	BoardID       string          `json:"board_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Deadline      *time.Time      `json:"deadline"`
	Priority      models.Priority `json:"priority"`
	ReviewerID    string          `json:"reviewer_id"`
	AssigneeIDs   []string        `json:"assignee_ids"`
	Subtasks      []string        `json:"subtasks"`
	RewardPoints  int64           `json:"reward_points"`
	PenaltyPoints int64           `json:"penalty_points"`
}

// ToInput converts the request into service input for boardID
func (r CreateTaskRequest) ToInput(boardID, actorID string) services.CreateTaskInput {
	return services.CreateTaskInput{
		ID:            r.ID,
		BoardID:       boardID,
		ActorID:       actorID,
		Title:         r.Title,
		Description:   r.Description,
		Deadline:      r.Deadline,
		Priority:      r.Priority,
		ReviewerID:    r.ReviewerID,
		AssigneeIDs:   r.AssigneeIDs,
		Subtasks:      r.Subtasks,
		RewardPoints:  r.RewardPoints,
		PenaltyPoints: r.PenaltyPoints,
	}
}

// ToTaskDTO converts a Task model. now decides the overdue flag.
func ToTaskDTO(task models.Task, now time.Time) TaskDTO {
	dto := TaskDTO{
		ID:            task.ID,
		BoardID:       task.BoardID,
		Title:         task.Title,
		Description:   task.Description,
		Deadline:      task.Deadline,
		Priority:      task.Priority,
		Status:        task.Status,
		CreatedBy:     task.CreatedBy,
		ReviewerID:    task.ReviewerID,
		AssigneeIDs:   task.AssigneeIDs(),
		Subtasks:      make([]SubtaskDTO, len(task.Subtasks)),
		RewardPoints:  task.RewardPoints,
		PenaltyPoints: task.PenaltyPoints,
		CompletedAt:   task.CompletedAt,
		Overdue:       task.IsOverdue(now),
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
	}
	for i, st := range task.Subtasks {
		dto.Subtasks[i] = SubtaskDTO{
			ID:          st.ID,
			Text:        st.Text,
			Completed:   st.Completed,
			CompletedAt: st.CompletedAt,
		}
	}
	return dto
}

func ToTaskDTOs(tasks []models.Task, now time.Time) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, now)
	}
	return items
}

func ToProposalDTO(p models.TaskProposal) ProposalDTO {
	return ProposalDTO{
		ID:            p.ID,
		BoardID:       p.BoardID,
		Title:         p.Title,
		Description:   p.Description,
		Deadline:      p.Deadline,
		Priority:      p.Priority,
		ReviewerID:    p.ReviewerID,
		AssigneeIDs:   append([]string{}, p.AssignedMembers...),
		Subtasks:      append([]string{}, p.Subtasks...),
		RewardPoints:  p.RewardPoints,
		PenaltyPoints: p.PenaltyPoints,
		ProposedBy:    p.ProposedBy,
		Status:        p.Status,
		ProposedAt:    p.ProposedAt,
	}
}

func ToProposalDTOs(proposals []models.TaskProposal) []ProposalDTO {
	items := make([]ProposalDTO, len(proposals))
	for i, p := range proposals {
		items[i] = ToProposalDTO(p)
	}
	return items
}

// ToCreateTaskResponse converts a create result
func ToCreateTaskResponse(result *services.CreateTaskResult, now time.Time) CreateTaskResponse {
	resp := CreateTaskResponse{Queued: result.Queued}
	if result.Task != nil {
		task := ToTaskDTO(*result.Task, now)
		resp.Task = &task
	}
	if result.Proposal != nil {
		proposal := ToProposalDTO(*result.Proposal)
		resp.Proposal = &proposal
	}
	return resp
}

func ToMutationDTO(result *services.MutationResult, now time.Time) MutationDTO {
	return MutationDTO{
		Task:          ToTaskDTO(*result.Task, now),
		Outcome:       result.Outcome,
		UndoToken:     result.UndoToken,
		UndoExpiresAt: result.UndoExpiresAt,
		Awarded:       result.Awarded,
		Points:        result.Points,
	}
}
