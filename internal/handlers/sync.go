package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wemake-app/wemake-api/internal/constants"
	"github.com/wemake-app/wemake-api/internal/dto"
	apierrors "github.com/wemake-app/wemake-api/internal/errors"
	"github.com/wemake-app/wemake-api/internal/middleware"
	"github.com/wemake-app/wemake-api/internal/services"
)

// PendingCounter reports how many cached rows still wait for replay.
type PendingCounter interface {
	PendingCount(ctx context.Context) (int, error)
}

// JobRunner runs background jobs on demand.
type JobRunner interface {
	Trigger(ctx context.Context, name string) (interface{}, error)
	GetStats() map[string]interface{}
}

type SyncHandler struct {
	taskService *services.TaskService
	pending     PendingCounter
	jobs        JobRunner
}

func NewSyncHandler(taskService *services.TaskService, pending PendingCounter, jobs JobRunner) *SyncHandler {
	return &SyncHandler{
		taskService: taskService,
		pending:     pending,
		jobs:        jobs,
	}
}

// SubmitOfflineTasks accepts tasks created while the client was offline
func (h *SyncHandler) SubmitOfflineTasks(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.OfflineBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	items := make([]services.CreateTaskInput, len(req.Tasks))
	for i, t := range req.Tasks {
		items[i] = t.ToInput(t.BoardID, userID)
	}

	results, err := h.taskService.SubmitOfflineTasks(c.Request.Context(), userID, items)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	resp := dto.OfflineBatchResponse{Results: results}
	for _, r := range results {
		if r.Accepted {
			resp.Accepted++
		} else {
			resp.Rejected++
		}
	}
	c.JSON(http.StatusAccepted, resp)
}

// GetStatus returns the replay backlog and scheduler stats
func (h *SyncHandler) GetStatus(c *gin.Context) {
	pending, err := h.pending.PendingCount(c.Request.Context())
	if err != nil {
		apierrors.InternalError(c, "Failed to read sync status")
		return
	}

	c.JSON(http.StatusOK, dto.SyncStatusResponse{
		Pending:   pending,
		Scheduler: h.jobs.GetStats(),
	})
}

// RunSync runs one replay pass and returns its report
func (h *SyncHandler) RunSync(c *gin.Context) {
	report, err := h.jobs.Trigger(c.Request.Context(), constants.JobSyncTasks)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Sync failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
