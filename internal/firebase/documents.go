package firebase

import (
	"time"

	"github.com/wemake-app/wemake-api/internal/models"
)

// SchemaVersion is written into every mirrored document.
const SchemaVersion = 2

const (
	tasksCollection     = "tasks"
	proposalsCollection = "task_proposals"
)

type SubtaskDocument struct {
	ID          string     `firestore:"id"`
	Text        string     `firestore:"text"`
	Completed   bool       `firestore:"completed"`
	CompletedAt *time.Time `firestore:"completedAt"`
}

// TaskDocument is the Firestore shape of a task.
type TaskDocument struct {
	SchemaVersion   int               `firestore:"schema_version"`
	ID              string            `firestore:"id"`
	BoardID         string            `firestore:"boardId"`
	Title           string            `firestore:"title"`
	Description     string            `firestore:"description"`
	Deadline        *time.Time        `firestore:"deadline"`
	Priority        string            `firestore:"priority"`
	Status          string            `firestore:"status"`
	CreatedBy       string            `firestore:"createdBy"`
	ReviewerID      string            `firestore:"reviewerId"`
	AssignedMembers []string          `firestore:"assignedMembers"`
	Subtasks        []SubtaskDocument `firestore:"subtasks"`
	RewardPoints    int64             `firestore:"rewardPoints"`
	PenaltyPoints   int64             `firestore:"penaltyPoints"`
	CompletedAt     *time.Time        `firestore:"completedAt"`
	CreatedAt       time.Time         `firestore:"createdAt"`
	UpdatedAt       time.Time         `firestore:"updatedAt"`
}

// ProposalDocument is the Firestore shape of a task proposal.
type ProposalDocument struct {
	SchemaVersion   int        `firestore:"schema_version"`
	ID              string     `firestore:"id"`
	BoardID         string     `firestore:"boardId"`
	Title           string     `firestore:"title"`
	Description     string     `firestore:"description"`
	Deadline        *time.Time `firestore:"deadline"`
	Priority        string     `firestore:"priority"`
	ReviewerID      string     `firestore:"reviewerId"`
	AssignedMembers []string   `firestore:"assignedMembers"`
	Subtasks        []string   `firestore:"subtasks"`
	RewardPoints    int64      `firestore:"rewardPoints"`
	PenaltyPoints   int64      `firestore:"penaltyPoints"`
	ProposedBy      string     `firestore:"proposedBy"`
	Status          string     `firestore:"status"`
	ProposedAt      time.Time  `firestore:"proposedAt"`
}

// taskContentFields are merged into an existing task document. Status and
// completion belong to the primary store and are only written on insert.
var taskContentFields = []string{
	"schema_version", "title", "description", "deadline", "priority",
	"reviewerId", "assignedMembers", "subtasks", "rewardPoints", "penaltyPoints", "updatedAt",
}

func NewTaskDocument(task *models.Task, now time.Time) *TaskDocument {
	doc := &TaskDocument{
		SchemaVersion:   SchemaVersion,
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
		Subtasks:        make([]SubtaskDocument, 0, len(task.Subtasks)),
		RewardPoints:    task.RewardPoints,
		PenaltyPoints:   task.PenaltyPoints,
		CompletedAt:     task.CompletedAt,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       now,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	for _, st := range task.Subtasks {
		doc.Subtasks = append(doc.Subtasks, SubtaskDocument{
			ID:          st.ID,
			Text:        st.Text,
			Completed:   st.Completed,
			CompletedAt: st.CompletedAt,
		})
	}
	return doc
}

func NewProposalDocument(p *models.TaskProposal, now time.Time) *ProposalDocument {
	doc := &ProposalDocument{
		SchemaVersion:   SchemaVersion,
		ID:              p.ID,
		BoardID:         p.BoardID,
		Title:           p.Title,
		Description:     p.Description,
		Deadline:        p.Deadline,
		Priority:        string(p.Priority),
		ReviewerID:      p.ReviewerID,
		AssignedMembers: append([]string{}, p.AssignedMembers...),
		Subtasks:        append([]string{}, p.Subtasks...),
		RewardPoints:    p.RewardPoints,
		PenaltyPoints:   p.PenaltyPoints,
		ProposedBy:      p.ProposedBy,
		Status:          string(p.Status),
		ProposedAt:      p.ProposedAt,
	}
	if doc.Status == "" {
		doc.Status = string(models.ProposalAwaitingApproval)
	}
	if doc.ProposedAt.IsZero() {
		doc.ProposedAt = now
	}
	return doc
}
