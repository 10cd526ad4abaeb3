package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wemake-app/wemake-api/internal/cache"
	"github.com/wemake-app/wemake-api/internal/constants"
	"github.com/wemake-app/wemake-api/internal/localcache"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/realtime"
	"github.com/wemake-app/wemake-api/internal/repository"
	"github.com/wemake-app/wemake-api/internal/taskstate"
	"gorm.io/gorm"
)

var (
	ErrNotBoardMember        = errors.New("user is not a member of the board")
	ErrTaskNotFound          = errors.New("task not found")
	ErrSubtaskNotFound       = errors.New("subtask not found")
	ErrTaskPermissionDenied  = errors.New("only an admin or the task creator can modify this task")
	ErrTitleRequired         = errors.New("title is required")
	ErrInvalidPriority       = errors.New("invalid priority")
	ErrAssigneeRequired      = errors.New("at least one assignee is required")
	ErrReviewerRequired      = errors.New("a reviewer is required")
	ErrReviewerIsAssignee    = errors.New("the reviewer cannot be one of the assignees")
	ErrInvalidTaskMember     = errors.New("assignees and reviewer must be members of the board")
	ErrInvalidPoints         = errors.New("points cannot be negative")
	ErrPointsAdminOnly       = errors.New("only an admin can change task points")
	ErrTaskIDConflict        = errors.New("task id is already used by another task")
	ErrTaskIDInvalid         = errors.New("task id is invalid")
	ErrEmptyOfflineBatch     = errors.New("no tasks to submit")
	ErrFailedToQueueTaskSync = errors.New("failed to store task locally")
)

// TaskOutbox is the local cache rows are written to before they reach the remote stores.
type TaskOutbox interface {
	Save(ctx context.Context, rec *localcache.TaskRecord) error
	Promote(ctx context.Context, rec *localcache.TaskRecord) error
	MarkDeleted(ctx context.Context, id, boardID string, isProposal bool) error
	Get(ctx context.Context, id string) (*localcache.TaskRecord, error)
}

// Flusher pushes a single cached row to the remote stores.
type Flusher interface {
	Flush(ctx context.Context, rec *localcache.TaskRecord) (bool, error)
}

// Kicker wakes a background job.
type Kicker interface {
	Kick(name string)
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo     repository.TaskRepository
	boardRepo    repository.BoardRepository
	proposalRepo repository.ProposalRepository
	outbox       TaskOutbox
	flusher      Flusher
	kicker       Kicker
	publisher    Publisher
	undo         cache.Store
	undoWindow   time.Duration
	now          func() time.Time
	newUndoToken func() string
}

// TaskServiceDeps groups the collaborators of a TaskService.
type TaskServiceDeps struct {
	Tasks      repository.TaskRepository
	Boards     repository.BoardRepository
	Proposals  repository.ProposalRepository
	Outbox     TaskOutbox
	Flusher    Flusher
	Kicker     Kicker
	Publisher  Publisher
	UndoStore  cache.Store
	UndoWindow time.Duration
}

// NewTaskService creates a new TaskService
func NewTaskService(deps TaskServiceDeps) *TaskService {
	s := &TaskService{
		taskRepo:     deps.Tasks,
		boardRepo:    deps.Boards,
		proposalRepo: deps.Proposals,
		outbox:       deps.Outbox,
		flusher:      deps.Flusher,
		kicker:       deps.Kicker,
		publisher:    deps.Publisher,
		undo:         deps.UndoStore,
		undoWindow:   deps.UndoWindow,
		now:          time.Now,
		newUndoToken: uuid.NewString,
	}
	if s.publisher == nil {
		s.publisher = NopPublisher{}
	}
	if s.undoWindow <= 0 {
		s.undoWindow = 10 * time.Second
	}
	return s
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID   string
	Criteria taskstate.Criteria
}

// ListTasks returns the tasks of every board the user belongs to that match the criteria.
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, error) {
	memberships, err := s.boardRepo.ListMembersByUserID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}

	boardIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		boardIDs = append(boardIDs, m.BoardID)
	}

	tasks, err := s.taskRepo.ListByBoards(boardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return taskstate.Filter(tasks, input.Criteria, input.UserID, s.now()), nil
}

// GetTask returns a task with its assignments and subtasks
func (s *TaskService) GetTask(taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Assignments", "Subtasks")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTaskInput represents input for creating a task or, for non-admins, a proposal.
type CreateTaskInput struct {
	ID            string
	BoardID       string
	ActorID       string
	Title         string
	Description   string
	Deadline      *time.Time
	Priority      models.Priority
	ReviewerID    string
	AssigneeIDs   []string
	Subtasks      []string
	RewardPoints  int64
	PenaltyPoints int64
}

// CreateTaskResult holds either the created task or the proposal that replaced it.
// Queued is set when the remote write failed and the row waits in the local cache.
type CreateTaskResult struct {
	Task     *models.Task
	Proposal *models.TaskProposal
	Queued   bool
}

// CreateTask validates the draft and writes it through the local cache.
// Admins create tasks directly; other members create proposals.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*CreateTaskResult, error) {
	member, err := s.requireMember(input.BoardID, input.ActorID)
	if err != nil {
		return nil, err
	}

	if input.ID != "" {
		if err := s.checkClientID(ctx, input.ID, input.BoardID, input.ActorID, !member.IsAdmin()); err != nil {
			return nil, err
		}
	}

	rec, result, err := s.buildRecord(input, member)
	if err != nil {
		return nil, err
	}

	queued, err := s.writeThrough(ctx, rec)
	if err != nil {
		return nil, err
	}
	result.Queued = queued
	if queued {
		return result, nil
	}

	if result.Proposal != nil {
		s.publisher.Publish(input.BoardID, realtime.EventProposalCreated, result.Proposal)
		return result, nil
	}

	task, err := s.GetTask(rec.ID)
	if err != nil {
		return nil, err
	}
	result.Task = task
	s.publisher.Publish(task.BoardID, realtime.EventTaskCreated, task)
	return result, nil
}

// SubtaskInput describes a subtask in an update. An empty ID adds a new subtask.
type SubtaskInput struct {
	ID   string
	Text string
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Deadline      *time.Time
	ClearDeadline bool
	ReviewerID    *string
	AssigneeIDs   *[]string
	Subtasks      *[]SubtaskInput
	RewardPoints  *int64
	PenaltyPoints *int64
}

// UpdateTask updates a task's content. Only an admin or the creator may edit,
// and only an admin may change points.
func (s *TaskService) UpdateTask(ctx context.Context, taskID, actorID string, input UpdateTaskInput) (*models.Task, bool, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, false, err
	}

	member, err := s.requireMember(task.BoardID, actorID)
	if err != nil {
		return nil, false, err
	}
	if !member.IsAdmin() && task.CreatedBy != actorID {
		return nil, false, ErrTaskPermissionDenied
	}
	if (input.RewardPoints != nil || input.PenaltyPoints != nil) && !member.IsAdmin() {
		return nil, false, ErrPointsAdminOnly
	}

	draft := draftFromTask(task)
	if input.Title != nil {
		draft.title = *input.Title
	}
	if input.Description != nil {
		draft.description = *input.Description
	}
	if input.ClearDeadline {
		draft.deadline = nil
	} else if input.Deadline != nil {
		draft.deadline = input.Deadline
	}
	if input.ReviewerID != nil {
		draft.reviewerID = *input.ReviewerID
	}
	if input.AssigneeIDs != nil {
		draft.assigneeIDs = *input.AssigneeIDs
	}
	if input.RewardPoints != nil {
		draft.reward = *input.RewardPoints
	}
	if input.PenaltyPoints != nil {
		draft.penalty = *input.PenaltyPoints
	}

	if err := s.validateDraft(draft); err != nil {
		return nil, false, err
	}

	task.Title = draft.title
	task.Description = draft.description
	task.Deadline = draft.deadline
	task.ReviewerID = draft.reviewerID
	task.RewardPoints = draft.reward
	task.PenaltyPoints = draft.penalty
	task.Assignments = assignmentsFor(task.ID, draft.assigneeIDs)
	if input.Subtasks != nil {
		task.Subtasks = mergeSubtasks(task.ID, task.Subtasks, *input.Subtasks)
	}

	queued, err := s.writeThrough(ctx, localcache.FromTask(task))
	if errors.Is(err, ErrTaskIDConflict) {
		// deleted while the edit was in flight
		return nil, false, ErrTaskNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if queued {
		return task, true, nil
	}

	updated, err := s.GetTask(task.ID)
	if err != nil {
		return nil, false, err
	}
	s.publisher.Publish(updated.BoardID, realtime.EventTaskUpdated, updated)
	return updated, false, nil
}

// DeleteTask deletes a task if the actor is an admin or the creator
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID string) error {
	task, err := s.GetTask(taskID)
	if err != nil {
		return err
	}

	member, err := s.requireMember(task.BoardID, actorID)
	if err != nil {
		return err
	}
	if !member.IsAdmin() && task.CreatedBy != actorID {
		return ErrTaskPermissionDenied
	}

	// The cached row becomes a delete marker first so a replay already in
	// flight cannot write the task back.
	if err := s.outbox.MarkDeleted(ctx, taskID, task.BoardID, false); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if s.kicker != nil {
		s.kicker.Kick(constants.JobSyncTasks)
	}

	s.publisher.Publish(task.BoardID, realtime.EventTaskDeleted, map[string]string{"id": taskID})
	return nil
}

// ToggleSubtask marks a subtask completed or not. Any board member may do it.
func (s *TaskService) ToggleSubtask(taskID, subtaskID, actorID string, completed bool) (*models.Subtask, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(task.BoardID, actorID); err != nil {
		return nil, err
	}

	subtask, err := s.taskRepo.SetSubtaskCompletion(taskID, subtaskID, completed, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubtaskNotFound
		}
		return nil, fmt.Errorf("failed to update subtask: %w", err)
	}

	s.publisher.Publish(task.BoardID, realtime.EventTaskUpdated, map[string]interface{}{
		"id":      taskID,
		"subtask": subtask,
	})
	return subtask, nil
}

// OfflineTaskResult reports what happened to one item of an offline batch.
type OfflineTaskResult struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
	Proposal bool   `json:"proposal"`
	Error    string `json:"error,omitempty"`
}

// SubmitOfflineTasks stores client-created tasks in the local cache and wakes
// the replay job. Each item is validated on its own; one bad item does not
// reject the batch.
func (s *TaskService) SubmitOfflineTasks(ctx context.Context, actorID string, items []CreateTaskInput) ([]OfflineTaskResult, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOfflineBatch
	}

	results := make([]OfflineTaskResult, 0, len(items))
	accepted := 0
	for _, item := range items {
		item.ActorID = actorID
		res := OfflineTaskResult{ID: item.ID}

		rec, err := s.prepareOffline(ctx, item)
		if err == nil {
			err = s.outbox.Save(ctx, rec)
		}
		if errors.Is(err, localcache.ErrConflict) {
			err = ErrTaskIDConflict
		}
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		res.ID = rec.ID
		res.Accepted = true
		res.Proposal = rec.IsProposal
		results = append(results, res)
		accepted++
	}

	if accepted > 0 && s.kicker != nil {
		s.kicker.Kick(constants.JobSyncTasks)
	}
	return results, nil
}

// PenaltyReport summarizes one overdue penalty sweep.
type PenaltyReport struct {
	Scanned   int `json:"scanned"`
	Penalized int `json:"penalized"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ApplyOverduePenalties deducts the penalty of every overdue unfinished task
// from its assignees. Each task is penalized at most once.
func (s *TaskService) ApplyOverduePenalties(ctx context.Context) (PenaltyReport, error) {
	var report PenaltyReport

	tasks, err := s.taskRepo.ListPenaltyCandidates(s.now())
	if err != nil {
		return report, fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	report.Scanned = len(tasks)

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		task := &tasks[i]
		if task.PenaltyPoints <= 0 || len(task.Assignments) == 0 {
			report.Skipped++
			continue
		}

		result, err := s.taskRepo.ApplyPenalty(task.ID)
		if err != nil {
			log.Printf("Failed to apply penalty for task %s: %v", task.ID, err)
			report.Failed++
			continue
		}
		if !result.Applied {
			report.Skipped++
			continue
		}

		report.Penalized++
		s.publisher.Publish(task.BoardID, realtime.EventPointsChanged, PointsChange{
			TaskID:  task.ID,
			UserIDs: result.Assignees,
			Delta:   -result.Points,
			Reason:  "overdue_penalty",
		})
	}

	if report.Penalized > 0 || report.Failed > 0 {
		log.Printf("Penalty sweep: scanned=%d penalized=%d skipped=%d failed=%d",
			report.Scanned, report.Penalized, report.Skipped, report.Failed)
	}
	return report, nil
}

// PointsChange is the payload of a points.changed event.
type PointsChange struct {
	TaskID  string   `json:"task_id,omitempty"`
	UserIDs []string `json:"user_ids"`
	Delta   int64    `json:"delta"`
	Reason  string   `json:"reason"`
}

// taskDraft is the normalized form a task or proposal is validated in.
type taskDraft struct {
	boardID     string
	title       string
	description string
	deadline    *time.Time
	priority    models.Priority
	reviewerID  string
	assigneeIDs []string
	reward      int64
	penalty     int64
}

func draftFromTask(task *models.Task) *taskDraft {
	return &taskDraft{
		boardID:     task.BoardID,
		title:       task.Title,
		description: task.Description,
		deadline:    task.Deadline,
		priority:    task.Priority,
		reviewerID:  task.ReviewerID,
		assigneeIDs: task.AssigneeIDs(),
		reward:      task.RewardPoints,
		penalty:     task.PenaltyPoints,
	}
}

type draftStage func(d *taskDraft) error

// validateDraft runs the validation stages in order and stops at the first failure.
func (s *TaskService) validateDraft(d *taskDraft) error {
	stages := []draftStage{
		requireTitle,
		normalizePriority,
		requireAssignees,
		requireReviewer,
		reviewerNotAssignee,
		nonNegativePoints,
		s.requireBoardMembers,
	}
	for _, stage := range stages {
		if err := stage(d); err != nil {
			return err
		}
	}
	return nil
}

func requireTitle(d *taskDraft) error {
	d.title = strings.TrimSpace(d.title)
	if d.title == "" {
		return ErrTitleRequired
	}
	d.description = strings.TrimSpace(d.description)
	return nil
}

func normalizePriority(d *taskDraft) error {
	if d.priority == "" {
		d.priority = models.PriorityMedium
	}
	if !d.priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

func requireAssignees(d *taskDraft) error {
	d.assigneeIDs = uniqueStrings(d.assigneeIDs)
	if len(d.assigneeIDs) == 0 {
		return ErrAssigneeRequired
	}
	return nil
}

func requireReviewer(d *taskDraft) error {
	d.reviewerID = strings.TrimSpace(d.reviewerID)
	if d.reviewerID == "" {
		return ErrReviewerRequired
	}
	return nil
}

func reviewerNotAssignee(d *taskDraft) error {
	for _, id := range d.assigneeIDs {
		if id == d.reviewerID {
			return ErrReviewerIsAssignee
		}
	}
	return nil
}

func nonNegativePoints(d *taskDraft) error {
	if d.reward < 0 || d.penalty < 0 {
		return ErrInvalidPoints
	}
	return nil
}

func (s *TaskService) requireBoardMembers(d *taskDraft) error {
	ids := append(append([]string{}, d.assigneeIDs...), d.reviewerID)
	count, err := s.boardRepo.CountMembers(d.boardID, ids)
	if err != nil {
		return fmt.Errorf("failed to verify board members: %w", err)
	}
	if int(count) != len(ids) {
		return ErrInvalidTaskMember
	}
	return nil
}

// buildRecord validates the input and builds the cache row: a task for
// admins, a proposal with default points for everyone else.
func (s *TaskService) buildRecord(input CreateTaskInput, member *models.BoardMember) (*localcache.TaskRecord, *CreateTaskResult, error) {
	draft := &taskDraft{
		boardID:     input.BoardID,
		title:       input.Title,
		description: input.Description,
		deadline:    input.Deadline,
		priority:    input.Priority,
		reviewerID:  input.ReviewerID,
		assigneeIDs: input.AssigneeIDs,
		reward:      input.RewardPoints,
		penalty:     input.PenaltyPoints,
	}
	if err := s.validateDraft(draft); err != nil {
		return nil, nil, err
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	defaultReward, defaultPenalty := DefaultPoints(draft.priority)
	subtasks := cleanSubtasks(input.Subtasks)

	if !member.IsAdmin() {
		proposal := &models.TaskProposal{
			ID:              id,
			BoardID:         draft.boardID,
			Title:           draft.title,
			Description:     draft.description,
			Deadline:        draft.deadline,
			Priority:        draft.priority,
			ReviewerID:      draft.reviewerID,
			AssignedMembers: draft.assigneeIDs,
			Subtasks:        subtasks,
			RewardPoints:    defaultReward,
			PenaltyPoints:   defaultPenalty,
			ProposedBy:      input.ActorID,
			Status:          models.ProposalAwaitingApproval,
			ProposedAt:      s.now(),
		}
		return localcache.FromProposal(proposal), &CreateTaskResult{Proposal: proposal}, nil
	}

	reward, penalty := draft.reward, draft.penalty
	if reward == 0 {
		reward = defaultReward
	}
	if penalty == 0 {
		penalty = defaultPenalty
	}

	task := &models.Task{
		ID:            id,
		BoardID:       draft.boardID,
		Title:         draft.title,
		Description:   draft.description,
		Deadline:      draft.deadline,
		Priority:      draft.priority,
		Status:        models.TaskStatusPending,
		CreatedBy:     input.ActorID,
		ReviewerID:    draft.reviewerID,
		RewardPoints:  reward,
		PenaltyPoints: penalty,
		Assignments:   assignmentsFor(id, draft.assigneeIDs),
	}
	for i, text := range subtasks {
		task.Subtasks = append(task.Subtasks, models.Subtask{ID: uuid.NewString(), TaskID: id, Position: i, Text: text})
	}
	return localcache.FromTask(task), &CreateTaskResult{Task: task}, nil
}

// prepareOffline validates one offline item. A client id may be resubmitted
// by the same creator, but never reuse another task's or proposal's id.
func (s *TaskService) prepareOffline(ctx context.Context, item CreateTaskInput) (*localcache.TaskRecord, error) {
	member, err := s.requireMember(item.BoardID, item.ActorID)
	if err != nil {
		return nil, err
	}

	if item.ID != "" {
		if err := s.checkClientID(ctx, item.ID, item.BoardID, item.ActorID, !member.IsAdmin()); err != nil {
			return nil, err
		}
	}

	rec, _, err := s.buildRecord(item, member)
	return rec, err
}

// checkClientID accepts a client-chosen id that is new, or that already names
// a row of the same board, creator and kind. Ids of deleted rows are never
// reused.
func (s *TaskService) checkClientID(ctx context.Context, id, boardID, actorID string, isProposal bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrTaskIDInvalid
	}

	task, err := s.taskRepo.FindByID(id)
	switch {
	case err == nil:
		if isProposal || task.BoardID != boardID || task.CreatedBy != actorID {
			return ErrTaskIDConflict
		}
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to check task id: %w", err)
	}

	proposal, err := s.proposalRepo.FindByID(id)
	switch {
	case err == nil:
		if !isProposal || proposal.BoardID != boardID || proposal.ProposedBy != actorID {
			return ErrTaskIDConflict
		}
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to check task id: %w", err)
	}

	deleted, err := s.taskRepo.WasDeleted(id)
	if err != nil {
		return fmt.Errorf("failed to check task id: %w", err)
	}
	if deleted {
		return ErrTaskIDConflict
	}

	cached, err := s.outbox.Get(ctx, id)
	switch {
	case err == nil:
		if cached.Deleted || cached.IsProposal != isProposal || cached.BoardID != boardID || cached.CreatedBy != actorID {
			return ErrTaskIDConflict
		}
	case !errors.Is(err, localcache.ErrNotFound):
		return fmt.Errorf("failed to check task id: %w", err)
	}
	return nil
}

// writeThrough stores the row dirty in the local cache, then pushes it at once.
// A failed push leaves the row queued for the replay job.
func (s *TaskService) writeThrough(ctx context.Context, rec *localcache.TaskRecord) (bool, error) {
	if err := s.outbox.Save(ctx, rec); err != nil {
		if errors.Is(err, localcache.ErrConflict) {
			return false, ErrTaskIDConflict
		}
		log.Printf("Failed to cache task %s: %v", rec.ID, err)
		return false, ErrFailedToQueueTaskSync
	}

	_, err := s.flusher.Flush(ctx, rec)
	if errors.Is(err, repository.ErrOwnerMismatch) || errors.Is(err, repository.ErrRecordDeleted) {
		return false, ErrTaskIDConflict
	}
	if err != nil {
		log.Printf("Remote write for task %s failed, queued for replay: %v", rec.ID, err)
		return true, nil
	}
	return false, nil
}

func (s *TaskService) requireMember(boardID, userID string) (*models.BoardMember, error) {
	member, err := s.boardRepo.FindMember(boardID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotBoardMember
		}
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}
	return member, nil
}

func assignmentsFor(taskID string, userIDs []string) []models.TaskAssignment {
	assignments := make([]models.TaskAssignment, 0, len(userIDs))
	for _, userID := range userIDs {
		assignments = append(assignments, models.TaskAssignment{TaskID: taskID, UserID: userID})
	}
	return assignments
}

func cleanSubtasks(texts []string) []string {
	result := make([]string, 0, len(texts))
	for _, text := range texts {
		if text = strings.TrimSpace(text); text != "" {
			result = append(result, text)
		}
	}
	return result
}

// mergeSubtasks builds the new subtask list. Subtasks keeping their id keep
// their completion state; new ones start open.
func mergeSubtasks(taskID string, current []models.Subtask, inputs []SubtaskInput) []models.Subtask {
	byID := make(map[string]models.Subtask, len(current))
	for _, st := range current {
		byID[st.ID] = st
	}

	result := make([]models.Subtask, 0, len(inputs))
	for _, in := range inputs {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			continue
		}
		st, ok := byID[in.ID]
		if !ok {
			st = models.Subtask{ID: uuid.NewString(), TaskID: taskID}
		}
		st.Text = text
		st.Position = len(result)
		result = append(result, st)
	}
	return result
}
