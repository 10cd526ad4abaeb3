package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wemake-app/wemake-api/internal/constants"
	apierrors "github.com/wemake-app/wemake-api/internal/errors"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/repository"
)

// RequireTaskAccess checks if the user has access to a task
// User must be a member of the task's board
func RequireTaskAccess(tasks repository.TaskRepository, boards repository.BoardRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		if taskID == "" {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := tasks.FindByID(taskID, "Assignments", "Subtasks")
		if err != nil {
			abortLookup(c, err, "Task not found")
			return
		}

		member, err := boards.FindMember(task.BoardID, userID)
		if err != nil {
			abortLookup(c, err, "Task not found")
			return
		}

		c.Set(constants.ContextKeyTask, *task)
		c.Set(constants.ContextKeyBoardMember, *member)
		c.Next()
	}
}

// GetTask returns the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (models.Task, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := v.(models.Task)
	return task, ok
}
