package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wemake-app/wemake-api/internal/models"
)

var (
	// ErrInsufficientPoints is returned when a balance cannot cover a debit.
	ErrInsufficientPoints = errors.New("repository: insufficient points")
	// ErrNotPending is returned when a redemption request was already processed.
	ErrNotPending = errors.New("repository: request is not pending")
	// ErrStatusChanged is returned when a task's status moved before a compare-and-set write.
	ErrStatusChanged = errors.New("repository: task status changed concurrently")
	// ErrRecordDeleted is returned when a replayed write targets a deleted id or board.
	ErrRecordDeleted = errors.New("repository: record was deleted")
	// ErrOwnerMismatch is returned when a replayed write would take over a row
	// owned by another board, creator or kind.
	ErrOwnerMismatch = errors.New("repository: id belongs to another record")
	// ErrRequesterNotMember is returned when a refund has no member balance to credit.
	ErrRequesterNotMember = errors.New("repository: requester is no longer a board member")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// Update saves profile and preference fields
	Update(user *models.User) error

	// SearchByPrefix returns users whose name or email starts with query
	SearchByPrefix(query string, limit int) ([]models.User, error)
}

// BoardRepository defines the interface for board and member data access
type BoardRepository interface {
	// CreateWithAdmin creates a board and its first admin member atomically
	CreateWithAdmin(board *models.Board, admin *models.BoardMember) error

	// FindByID finds a board by ID
	FindByID(id string) (*models.Board, error)

	// FindByInviteCode finds a board by invite code
	FindByInviteCode(code string) (*models.Board, error)

	// InviteCodeExists reports whether a code is already taken
	InviteCodeExists(code string) (bool, error)

	// Update updates a board
	Update(board *models.Board) error

	// Delete deletes a board and all related data
	Delete(id string) error

	// AddMember adds a member to a board
	AddMember(member *models.BoardMember) error

	// RemoveMember removes a member and their task assignments on the board
	RemoveMember(boardID, userID string) error

	// UpdateMemberRole changes a member's role
	UpdateMemberRole(boardID, userID string, role models.Role) error

	// FindMember finds a specific board member
	FindMember(boardID, userID string) (*models.BoardMember, error)

	// ListMembersByUserID lists all boards a user is a member of
	ListMembersByUserID(userID string) ([]models.BoardMember, error)

	// ListMembers lists all members of a board with their user profiles
	ListMembers(boardID string) ([]models.BoardMember, error)

	// CountMembers counts how many of userIDs belong to the board
	CountMembers(boardID string, userIDs []string) (int64, error)

	// CountAdmins counts the admins of a board
	CountAdmins(boardID string) (int64, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a task with its assignments and subtasks
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id string, preload ...string) (*models.Task, error)

	// ListByBoards returns every task of the given boards with assignments and subtasks
	ListByBoards(boardIDs []string) ([]models.Task, error)

	// UpdateContent saves content fields and replaces assignments and subtasks
	UpdateContent(task *models.Task) error

	// Delete deletes a task with its assignments and subtasks
	Delete(id string) error

	// TransitionStatus moves a task from one status to another. Entering
	// completed credits the reward at most once per task.
	TransitionStatus(change StatusChange) (*TransitionResult, error)

	// UpdatePriority sets a task's priority
	UpdatePriority(taskID string, priority models.Priority) error

	// SetSubtaskCompletion updates a subtask's completed flag and timestamp
	SetSubtaskCompletion(taskID, subtaskID string, completed bool, at time.Time) (*models.Subtask, error)

	// ListPenaltyCandidates returns unfinished tasks past their deadline that were not penalized yet
	ListPenaltyCandidates(now time.Time) ([]models.Task, error)

	// ApplyPenalty deducts the penalty from every assignee at most once per task
	ApplyPenalty(taskID string) (*PenaltyResult, error)

	// WasDeleted reports whether a task or proposal with this id was deleted
	WasDeleted(id string) (bool, error)
}

// StatusChange describes a compare-and-set status write
type StatusChange struct {
	TaskID      string
	From        models.TaskStatus
	To          models.TaskStatus
	CompletedAt *time.Time
	AwardReward bool
}

// TransitionResult reports the effect of a status write
type TransitionResult struct {
	Awarded   bool
	Assignees []string
	Points    int64
}

// PenaltyResult reports the effect of a penalty application
type PenaltyResult struct {
	Applied   bool
	Assignees []string
	Points    int64
}

// ProposalRepository defines the interface for task proposal data access
type ProposalRepository interface {
	// Create creates a new proposal
	Create(proposal *models.TaskProposal) error

	// FindByID finds a proposal by ID
	FindByID(id string) (*models.TaskProposal, error)

	// ListByBoard lists a board's proposals, oldest first
	ListByBoard(boardID string) ([]models.TaskProposal, error)

	// Approve creates the task and deletes the proposal in one transaction
	Approve(proposalID string, task *models.Task) error

	// Delete deletes a proposal and records its tombstone
	Delete(id string) error
}

// CouponRepository defines the interface for coupon data access
type CouponRepository interface {
	Create(coupon *models.Coupon) error
	FindByID(id string) (*models.Coupon, error)
	ListByBoard(boardID string) ([]models.Coupon, error)
	Update(coupon *models.Coupon) error
	Delete(id string) error
}

// RedemptionRepository defines the interface for redemption request data access
type RedemptionRepository interface {
	// Redeem debits the member and records a pending request in one transaction
	Redeem(request *models.RedemptionRequest) error

	// FindByID finds a redemption request by ID
	FindByID(id string) (*models.RedemptionRequest, error)

	// List returns requests matching the filter and the total count
	List(filter RedemptionFilter) ([]models.RedemptionRequest, int64, error)

	// Approve marks a pending request approved
	Approve(id, actorID string, at time.Time) error

	// Deny marks a pending request denied and refunds its cost snapshot
	Deny(id, actorID string, at time.Time) error
}

// RedemptionFilter holds filtering options for listing redemption requests
type RedemptionFilter struct {
	BoardID string
	UserID  *string
	Status  *models.RedemptionStatus
	Offset  int
	Limit   int
}

// RemoteTaskStore receives task and proposal rows replayed from the local cache.
// Writes are upserts keyed by id so a replay never duplicates a row, and
// deletes succeed when the row is already gone.
type RemoteTaskStore interface {
	Name() string
	UpsertTask(ctx context.Context, task *models.Task) error
	UpsertProposal(ctx context.Context, proposal *models.TaskProposal) error
	DeleteTask(ctx context.Context, id string) error
	DeleteProposal(ctx context.Context, id string) error
}
