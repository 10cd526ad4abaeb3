package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/wemake-app/wemake-api/internal/cache"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/realtime"
	"github.com/wemake-app/wemake-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidStatus        = errors.New("invalid status")
	ErrTransitionNotAllowed = errors.New("only an admin can move a task outside the normal pipeline")
	ErrNotReviewer          = errors.New("only the reviewer can complete this task")
	ErrStatusConflict       = errors.New("the task status was changed by someone else")
	ErrPriorityConflict     = errors.New("the task priority was changed by someone else")
	ErrRemoteWrite          = errors.New("the change could not be saved")
	ErrUndoExpired          = errors.New("undo expired")
	ErrUndoForbidden        = errors.New("only the user who made the change can undo it")
	ErrUndoUnavailable      = errors.New("undo is not available")
)

// MutationOutcome tells whether an optimistic change was kept.
type MutationOutcome string

const (
	OutcomeCommitted  MutationOutcome = "committed"
	OutcomeRolledBack MutationOutcome = "rolled_back"
)

type mutationKind string

const (
	mutationStatus   mutationKind = "status"
	mutationPriority mutationKind = "priority"
)

// MutationResult is returned by every status or priority change.
type MutationResult struct {
	Task          *models.Task    `json:"task"`
	Outcome       MutationOutcome `json:"outcome"`
	UndoToken     string          `json:"undo_token,omitempty"`
	UndoExpiresAt *time.Time      `json:"undo_expires_at,omitempty"`
	Awarded       bool            `json:"awarded"`
	Points        int64           `json:"points,omitempty"`
}

// pendingCommand applies a change to the in-memory task first, then commits
// it remotely. A failed commit runs rollback so the view matches the store again.
type pendingCommand struct {
	apply    func()
	rollback func()
	commit   func() error
}

func (c pendingCommand) run() (MutationOutcome, error) {
	c.apply()
	if err := c.commit(); err != nil {
		c.rollback()
		return OutcomeRolledBack, err
	}
	return OutcomeCommitted, nil
}

// undoEntry is what an undo token points to.
type undoEntry struct {
	Token           string            `json:"token"`
	TaskID          string            `json:"task_id"`
	BoardID         string            `json:"board_id"`
	ActorID         string            `json:"actor_id"`
	Kind            mutationKind      `json:"kind"`
	PrevStatus      models.TaskStatus `json:"prev_status,omitempty"`
	NewStatus       models.TaskStatus `json:"new_status,omitempty"`
	PrevCompletedAt *time.Time        `json:"prev_completed_at,omitempty"`
	PrevPriority    models.Priority   `json:"prev_priority,omitempty"`
	NewPriority     models.Priority   `json:"new_priority,omitempty"`
}

// RollbackEvent is published when an optimistic change is reverted.
type RollbackEvent struct {
	TaskID   string            `json:"task_id"`
	Status   models.TaskStatus `json:"status"`
	Priority models.Priority   `json:"priority"`
	Reason   string            `json:"reason"`
}

// ChangeStatus moves a task to target. Members may move a task to the next
// pipeline stage; anything else is an admin override. Completion always
// requires the reviewer, or an admin when the task has none.
func (s *TaskService) ChangeStatus(ctx context.Context, taskID, actorID string, target models.TaskStatus) (*MutationResult, error) {
	if !target.Valid() {
		return nil, ErrInvalidStatus
	}

	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	member, err := s.requireMember(task.BoardID, actorID)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(task, member, target); err != nil {
		return nil, err
	}

	return s.transition(ctx, task, actorID, target)
}

// Advance is the swipe gesture: it moves the task to the next pipeline stage.
func (s *TaskService) Advance(ctx context.Context, taskID, actorID string) (*MutationResult, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	next, ok := task.Status.Next()
	if !ok {
		return nil, ErrTransitionNotAllowed
	}
	return s.ChangeStatus(ctx, taskID, actorID, next)
}

// CyclePriority is the priority swipe. Any board member may use it.
func (s *TaskService) CyclePriority(ctx context.Context, taskID, actorID string) (*MutationResult, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(task.BoardID, actorID); err != nil {
		return nil, err
	}

	return s.changePriority(ctx, task, actorID, task.Priority.Cycle(), true)
}

// SetPriority sets an explicit priority. Only an admin or the creator may do it.
func (s *TaskService) SetPriority(ctx context.Context, taskID, actorID string, priority models.Priority) (*MutationResult, error) {
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	member, err := s.requireMember(task.BoardID, actorID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() && task.CreatedBy != actorID {
		return nil, ErrTaskPermissionDenied
	}

	return s.changePriority(ctx, task, actorID, priority, true)
}

// Undo reverts the change an undo token was issued for. Tokens are single-use
// and only the actor who made the change can redeem them.
func (s *TaskService) Undo(ctx context.Context, token, actorID string) (*MutationResult, error) {
	if s.undo == nil {
		return nil, ErrUndoUnavailable
	}

	raw, err := s.undo.Get(ctx, undoKey(token))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrUndoExpired
		}
		return nil, fmt.Errorf("failed to load undo token: %w", err)
	}

	var entry undoEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode undo token: %w", err)
	}
	if entry.ActorID != actorID {
		return nil, ErrUndoForbidden
	}

	if _, err := s.undo.Take(ctx, undoKey(token)); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrUndoExpired
		}
		return nil, fmt.Errorf("failed to consume undo token: %w", err)
	}

	task, err := s.GetTask(entry.TaskID)
	if err != nil {
		return nil, err
	}

	switch entry.Kind {
	case mutationStatus:
		if task.Status != entry.NewStatus {
			return nil, ErrStatusConflict
		}
		return s.transitionTo(task, actorID, entry.PrevStatus, entry.PrevCompletedAt)
	case mutationPriority:
		if task.Priority != entry.NewPriority {
			return nil, ErrPriorityConflict
		}
		return s.changePriority(ctx, task, actorID, entry.PrevPriority, false)
	default:
		return nil, ErrUndoExpired
	}
}

func checkTransition(task *models.Task, member *models.BoardMember, target models.TaskStatus) error {
	if target == task.Status {
		return ErrTransitionNotAllowed
	}

	next, ok := task.Status.Next()
	if !(ok && target == next) && !member.IsAdmin() {
		return ErrTransitionNotAllowed
	}

	if target == models.TaskStatusCompleted {
		if task.ReviewerID == "" {
			if !member.IsAdmin() {
				return ErrNotReviewer
			}
		} else if task.ReviewerID != member.UserID {
			return ErrNotReviewer
		}
	}
	return nil
}

func (s *TaskService) transition(ctx context.Context, task *models.Task, actorID string, target models.TaskStatus) (*MutationResult, error) {
	var completedAt *time.Time
	if target == models.TaskStatusCompleted {
		now := s.now()
		completedAt = &now
	}

	prevStatus := task.Status
	prevCompletedAt := task.CompletedAt

	result, err := s.transitionTo(task, actorID, target, completedAt)
	if err != nil {
		return result, err
	}

	s.issueUndo(ctx, result, undoEntry{
		TaskID:          task.ID,
		BoardID:         task.BoardID,
		ActorID:         actorID,
		Kind:            mutationStatus,
		PrevStatus:      prevStatus,
		NewStatus:       target,
		PrevCompletedAt: prevCompletedAt,
	})
	return result, nil
}

// transitionTo runs the compare-and-set write as a pending command. Entering
// completed asks the store to credit the reward; the store credits it at most
// once per task.
func (s *TaskService) transitionTo(task *models.Task, actorID string, target models.TaskStatus, completedAt *time.Time) (*MutationResult, error) {
	prevStatus := task.Status
	prevCompletedAt := task.CompletedAt
	var written *repository.TransitionResult

	cmd := pendingCommand{
		apply: func() {
			task.Status = target
			task.CompletedAt = completedAt
		},
		rollback: func() {
			task.Status = prevStatus
			task.CompletedAt = prevCompletedAt
		},
		commit: func() error {
			var err error
			written, err = s.taskRepo.TransitionStatus(repository.StatusChange{
				TaskID:      task.ID,
				From:        prevStatus,
				To:          target,
				CompletedAt: completedAt,
				AwardReward: target == models.TaskStatusCompleted,
			})
			return err
		},
	}

	outcome, err := cmd.run()
	result := &MutationResult{Task: task, Outcome: outcome}
	if err != nil {
		return result, s.rolledBack(task, err)
	}

	if written.Awarded {
		task.RewardApplied = true
		result.Awarded = true
		result.Points = written.Points
		s.publisher.Publish(task.BoardID, realtime.EventPointsChanged, PointsChange{
			TaskID:  task.ID,
			UserIDs: written.Assignees,
			Delta:   written.Points,
			Reason:  "task_completed",
		})
	}

	s.publisher.Publish(task.BoardID, realtime.EventTaskStatusChanged, map[string]interface{}{
		"id":         task.ID,
		"status":     task.Status,
		"previous":   prevStatus,
		"changed_by": actorID,
	})
	return result, nil
}

func (s *TaskService) changePriority(ctx context.Context, task *models.Task, actorID string, priority models.Priority, withUndo bool) (*MutationResult, error) {
	prev := task.Priority

	cmd := pendingCommand{
		apply:    func() { task.Priority = priority },
		rollback: func() { task.Priority = prev },
		commit: func() error {
			err := s.taskRepo.UpdatePriority(task.ID, priority)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		},
	}

	outcome, err := cmd.run()
	result := &MutationResult{Task: task, Outcome: outcome}
	if err != nil {
		return result, s.rolledBack(task, err)
	}

	s.publisher.Publish(task.BoardID, realtime.EventTaskUpdated, map[string]interface{}{
		"id":         task.ID,
		"priority":   task.Priority,
		"changed_by": actorID,
	})

	if withUndo {
		s.issueUndo(ctx, result, undoEntry{
			TaskID:       task.ID,
			BoardID:      task.BoardID,
			ActorID:      actorID,
			Kind:         mutationPriority,
			PrevPriority: prev,
			NewPriority:  priority,
		})
	}
	return result, nil
}

// rolledBack tells listeners the optimistic value was reverted and maps the cause.
func (s *TaskService) rolledBack(task *models.Task, cause error) error {
	s.publisher.Publish(task.BoardID, realtime.EventTaskRolledBack, RollbackEvent{
		TaskID:   task.ID,
		Status:   task.Status,
		Priority: task.Priority,
		Reason:   cause.Error(),
	})

	switch {
	case errors.Is(cause, repository.ErrStatusChanged):
		return ErrStatusConflict
	case errors.Is(cause, gorm.ErrRecordNotFound), errors.Is(cause, ErrTaskNotFound):
		return ErrTaskNotFound
	default:
		log.Printf("Remote write for task %s failed: %v", task.ID, cause)
		return fmt.Errorf("%w: %v", ErrRemoteWrite, cause)
	}
}

// issueUndo stores the entry and attaches its token to the result. Without a
// store, or when storing fails, the change simply has no undo.
func (s *TaskService) issueUndo(ctx context.Context, result *MutationResult, entry undoEntry) {
	if s.undo == nil {
		return
	}

	entry.Token = s.newUndoToken()
	payload, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Failed to encode undo entry: %v", err)
		return
	}
	if err := s.undo.Set(ctx, undoKey(entry.Token), payload, s.undoWindow); err != nil {
		log.Printf("Failed to store undo token: %v", err)
		return
	}

	expiresAt := s.now().Add(s.undoWindow)
	result.UndoToken = entry.Token
	result.UndoExpiresAt = &expiresAt
}

func undoKey(token string) string {
	return "undo:" + token
}
