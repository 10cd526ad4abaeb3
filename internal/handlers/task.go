package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wemake-app/wemake-api/internal/dto"
	apierrors "github.com/wemake-app/wemake-api/internal/errors"
	"github.com/wemake-app/wemake-api/internal/middleware"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/services"
	"github.com/wemake-app/wemake-api/internal/taskstate"
	"github.com/wemake-app/wemake-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	aiService   *services.AIService
	now         func() time.Time
}

func NewTaskHandler(taskService *services.TaskService, aiService *services.AIService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		aiService:   aiService,
		now:         time.Now,
	}
}

// ListTasks returns the tasks of every board the user belongs to, filtered
// by the query parameters (q, board_id, priority, assignee, due, status).
func (h *TaskHandler) ListTasks(c *gin.Context) {
	criteria, err := taskstate.Parse(c.Request.URL.Query())
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	h.listTasks(c, criteria)
}

// ListBoardTasks returns the tasks of one board
// Board access is checked by RequireBoardAccess middleware
func (h *TaskHandler) ListBoardTasks(c *gin.Context) {
	criteria, err := taskstate.Parse(c.Request.URL.Query())
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	criteria.BoardIDs = []string{c.Param("id")}
	h.listTasks(c, criteria)
}

func (h *TaskHandler) listTasks(c *gin.Context, criteria taskstate.Criteria) {
	userID, _ := middleware.GetUserID(c)
	params := utils.GetPaginationParams(c)

	tasks, err := h.taskService.ListTasks(services.ListTasksInput{
		UserID:   userID,
		Criteria: criteria,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	start, end := utils.PageBounds(params, len(tasks))
	c.JSON(http.StatusOK, dto.TaskListResponse{
		Tasks: dto.ToTaskDTOs(tasks[start:end], h.now()),
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int64(len(tasks)),
		},
	})
}

// GetTask returns a specific task by ID
// Task is already loaded by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task, h.now()))
}

// CreateTask creates a task on the board, or a proposal for non-admins.
// A task that could not reach the primary store is answered with 202 and queued.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.taskService.CreateTask(c.Request.Context(), req.ToInput(c.Param("id"), userID))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Queued {
		status = http.StatusAccepted
	}
	c.JSON(status, dto.ToCreateTaskResponse(result, h.now()))
}

// UpdateTask updates an existing task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	type SubtaskRequest struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	type UpdateTaskRequest struct {
		Title         *string           `json:"title"`
		Description   *string           `json:"description"`
		Deadline      *time.Time        `json:"deadline"`
		ClearDeadline bool              `json:"clear_deadline"`
		ReviewerID    *string           `json:"reviewer_id"`
		AssigneeIDs   *[]string         `json:"assignee_ids"`
		Subtasks      *[]SubtaskRequest `json:"subtasks"`
		RewardPoints  *int64            `json:"reward_points"`
		PenaltyPoints *int64            `json:"penalty_points"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Deadline:      req.Deadline,
		ClearDeadline: req.ClearDeadline,
		ReviewerID:    req.ReviewerID,
		AssigneeIDs:   req.AssigneeIDs,
		RewardPoints:  req.RewardPoints,
		PenaltyPoints: req.PenaltyPoints,
	}
	if req.Subtasks != nil {
		subtasks := make([]services.SubtaskInput, len(*req.Subtasks))
		for i, st := range *req.Subtasks {
			subtasks[i] = services.SubtaskInput{ID: st.ID, Text: st.Text}
		}
		input.Subtasks = &subtasks
	}

	task, queued, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), userID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	if queued {
		c.JSON(http.StatusAccepted, gin.H{"task": dto.ToTaskDTO(*task, h.now()), "queued": true})
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, h.now()))
}

// DeleteTask deletes a task (admin or creator)
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.taskService.DeleteTask(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// ChangeStatus moves a task to the requested status
func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	type ChangeStatusRequest struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.taskService.ChangeStatus(c.Request.Context(), c.Param("id"), userID, req.Status)
	h.respondMutation(c, result, err)
}

// AdvanceTask moves a task to the next pipeline stage
func (h *TaskHandler) AdvanceTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	result, err := h.taskService.Advance(c.Request.Context(), c.Param("id"), userID)
	h.respondMutation(c, result, err)
}

// SetPriority sets an explicit priority
func (h *TaskHandler) SetPriority(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	type SetPriorityRequest struct {
		Priority models.Priority `json:"priority" binding:"required"`
	}

	var req SetPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.taskService.SetPriority(c.Request.Context(), c.Param("id"), userID, req.Priority)
	h.respondMutation(c, result, err)
}

// CyclePriority rotates the priority (medium -> high -> medium, low -> medium)
func (h *TaskHandler) CyclePriority(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	result, err := h.taskService.CyclePriority(c.Request.Context(), c.Param("id"), userID)
	h.respondMutation(c, result, err)
}

// Undo reverts a status or priority change with its undo token
func (h *TaskHandler) Undo(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	type UndoRequest struct {
		Token string `json:"token" binding:"required"`
	}

	var req UndoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.taskService.Undo(c.Request.Context(), req.Token, userID)
	h.respondMutation(c, result, err)
}

// ToggleSubtask marks a subtask completed or open
func (h *TaskHandler) ToggleSubtask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	type ToggleSubtaskRequest struct {
		Completed *bool `json:"completed" binding:"required"`
	}

	var req ToggleSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	subtask, err := h.taskService.ToggleSubtask(c.Param("id"), c.Param("subtask_id"), userID, *req.Completed)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SubtaskDTO{
		ID:          subtask.ID,
		Text:        subtask.Text,
		Completed:   subtask.Completed,
		CompletedAt: subtask.CompletedAt,
	})
}

// DraftFromVoice turns a voice transcript into a task draft using AI
func (h *TaskHandler) DraftFromVoice(c *gin.Context) {
	if h.aiService == nil {
		apierrors.ServiceUnavailable(c, "AI service is not configured")
		return
	}

	type VoiceRequest struct {
		Transcript string `json:"transcript" binding:"required"`
	}

	var req VoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	draft, err := h.aiService.DraftTask(c.Request.Context(), c.Param("id"), req.Transcript)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

func (h *TaskHandler) respondMutation(c *gin.Context, result *services.MutationResult, err error) {
	if err == nil {
		c.JSON(http.StatusOK, dto.ToMutationDTO(result, h.now()))
		return
	}

	if errors.Is(err, services.ErrRemoteWrite) && result != nil && result.Task != nil {
		apierrors.BadGateway(c, "The change could not be saved and was rolled back", dto.ToMutationDTO(result, h.now()))
		return
	}
	respondTaskError(c, err)
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrAssigneeRequired),
		errors.Is(err, services.ErrReviewerRequired),
		errors.Is(err, services.ErrReviewerIsAssignee),
		errors.Is(err, services.ErrInvalidTaskMember),
		errors.Is(err, services.ErrInvalidPoints),
		errors.Is(err, services.ErrTaskIDInvalid),
		errors.Is(err, services.ErrEmptyOfflineBatch),
		errors.Is(err, services.ErrTranscriptRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotBoardMember),
		errors.Is(err, services.ErrTaskPermissionDenied),
		errors.Is(err, services.ErrPointsAdminOnly),
		errors.Is(err, services.ErrTransitionNotAllowed),
		errors.Is(err, services.ErrNotReviewer),
		errors.Is(err, services.ErrUndoForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrSubtaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskIDConflict),
		errors.Is(err, services.ErrStatusConflict),
		errors.Is(err, services.ErrPriorityConflict):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrUndoExpired):
		apierrors.Gone(c, apierrors.ErrCodeUndoExpired, err.Error())
	case errors.Is(err, services.ErrRemoteWrite):
		apierrors.BadGateway(c, err.Error(), nil)
	case errors.Is(err, services.ErrAIUnparseable):
		apierrors.UnprocessableEntity(c, apierrors.ErrCodeAIUnparseable, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured),
		errors.Is(err, services.ErrUndoUnavailable):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrFailedToQueueTaskSync):
		apierrors.InternalError(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
