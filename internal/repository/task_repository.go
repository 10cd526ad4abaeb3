package repository

import (
	"errors"
	"time"

	"github.com/wemake-app/wemake-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a task with its assignments and subtasks
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id string, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		if p == "Subtasks" {
			query = query.Preload("Subtasks", orderSubtasks)
			continue
		}
		query = query.Preload(p)
	}

	if err := query.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// ListByBoards returns every task of the given boards with assignments and subtasks
func (r *GormTaskRepository) ListByBoards(boardIDs []string) ([]models.Task, error) {
	if len(boardIDs) == 0 {
		return []models.Task{}, nil
	}

	var tasks []models.Task
	if err := r.db.
		Preload("Assignments").
		Preload("Subtasks", orderSubtasks).
		Where("board_id IN ?", boardIDs).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateContent saves content fields and replaces assignments and subtasks
func (r *GormTaskRepository) UpdateContent(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Select(taskContentColumns).Updates(task).Error; err != nil {
			return err
		}
		if err := replaceAssignments(tx, task.ID, task.AssigneeIDs()); err != nil {
			return err
		}
		return replaceSubtasks(tx, task.ID, task.Subtasks, true)
	})
}

// Delete deletes a task with its assignments and subtasks and records its tombstone
func (r *GormTaskRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return deleteTaskRows(tx, id)
	})
}

// WasDeleted reports whether a task or proposal with this id was deleted
func (r *GormTaskRepository) WasDeleted(id string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Tombstone{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// TransitionStatus writes the new status only if the task is still in change.From.
func (r *GormTaskRepository) TransitionStatus(change StatusChange) (*TransitionResult, error) {
	result := &TransitionResult{}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", change.TaskID, change.From).
			Updates(map[string]interface{}{
				"status":       change.To,
				"completed_at": change.CompletedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Task{}).Where("id = ?", change.TaskID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrStatusChanged
		}

		if !change.AwardReward {
			return nil
		}

		// The flag flip is the guard: only the writer that moves it from false to true credits points.
		res = tx.Model(&models.Task{}).
			Where("id = ? AND reward_applied = ?", change.TaskID, false).
			Update("reward_applied", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		task, err := findWithAssignments(tx, change.TaskID)
		if err != nil {
			return err
		}

		assignees := task.AssigneeIDs()
		if task.RewardPoints <= 0 || len(assignees) == 0 {
			return nil
		}

		if err := tx.Model(&models.BoardMember{}).
			Where("board_id = ? AND user_id IN ?", task.BoardID, assignees).
			UpdateColumn("points", gorm.Expr("points + ?", task.RewardPoints)).Error; err != nil {
			return err
		}

		result.Awarded = true
		result.Assignees = assignees
		result.Points = task.RewardPoints
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdatePriority sets a task's priority
func (r *GormTaskRepository) UpdatePriority(taskID string, priority models.Priority) error {
	return r.db.Model(&models.Task{}).Where("id = ?", taskID).Update("priority", priority).Error
}

// SetSubtaskCompletion updates a subtask's completed flag and timestamp
func (r *GormTaskRepository) SetSubtaskCompletion(taskID, subtaskID string, completed bool, at time.Time) (*models.Subtask, error) {
	var subtask models.Subtask

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND task_id = ?", subtaskID, taskID).First(&subtask).Error; err != nil {
			return err
		}

		subtask.SetCompleted(completed, at)
		return tx.Model(&subtask).Select("completed", "completed_at").Updates(&subtask).Error
	})
	if err != nil {
		return nil, err
	}

	return &subtask, nil
}

// ListPenaltyCandidates returns unfinished tasks past their deadline that were not penalized yet
func (r *GormTaskRepository) ListPenaltyCandidates(now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.
		Preload("Assignments").
		Where("deadline IS NOT NULL AND deadline <= ?", now).
		Where("status <> ? AND penalty_applied = ?", models.TaskStatusCompleted, false).
		Order("deadline ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ApplyPenalty deducts the penalty from every assignee at most once per task.
// Balances are clamped at zero.
func (r *GormTaskRepository) ApplyPenalty(taskID string) (*PenaltyResult, error) {
	result := &PenaltyResult{}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id = ? AND penalty_applied = ? AND status <> ?", taskID, false, models.TaskStatusCompleted).
			Update("penalty_applied", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		result.Applied = true

		task, err := findWithAssignments(tx, taskID)
		if err != nil {
			return err
		}

		assignees := task.AssigneeIDs()
		if task.PenaltyPoints <= 0 || len(assignees) == 0 {
			return nil
		}

		if err := tx.Model(&models.BoardMember{}).
			Where("board_id = ? AND user_id IN ?", task.BoardID, assignees).
			UpdateColumn("points", gorm.Expr(
				"CASE WHEN points > ? THEN points - ? ELSE 0 END", task.PenaltyPoints, task.PenaltyPoints,
			)).Error; err != nil {
			return err
		}

		result.Assignees = assignees
		result.Points = task.PenaltyPoints
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

var taskContentColumns = []string{
	"title", "description", "deadline", "priority", "reviewer_id", "reward_points", "penalty_points",
}

func deleteTaskRows(tx *gorm.DB, id string) error {
	if err := tx.Where("task_id = ?", id).Delete(&models.Subtask{}).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("id = ?", id).Delete(&models.Task{}).Error; err != nil {
		return err
	}
	return bury(tx, id, models.TombstoneTask)
}

// bury records a tombstone; burying the same id twice is a no-op.
func bury(tx *gorm.DB, id string, kind models.TombstoneKind) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Tombstone{ID: id, Kind: kind, DeletedAt: time.Now()}).Error
}

func buried(tx *gorm.DB, id string, kind models.TombstoneKind) (bool, error) {
	var count int64
	if err := tx.Model(&models.Tombstone{}).Where("id = ? AND kind = ?", id, kind).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func orderSubtasks(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func findWithAssignments(tx *gorm.DB, taskID string) (*models.Task, error) {
	var task models.Task
	if err := tx.Preload("Assignments").Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// replaceAssignments makes the task's assignment rows equal to userIDs.
func replaceAssignments(tx *gorm.DB, taskID string, userIDs []string) error {
	stale := tx.Where("task_id = ?", taskID)
	if len(userIDs) > 0 {
		stale = stale.Where("user_id NOT IN ?", userIDs)
	}
	if err := stale.Delete(&models.TaskAssignment{}).Error; err != nil {
		return err
	}

	for _, userID := range userIDs {
		assignment := models.TaskAssignment{TaskID: taskID, UserID: userID}
		if err := tx.Where(assignment).FirstOrCreate(&assignment).Error; err != nil {
			return err
		}
	}
	return nil
}

// replaceSubtasks makes the task's subtasks equal to the given list. When
// overwriteState is false, completion state already stored for a subtask wins.
func replaceSubtasks(tx *gorm.DB, taskID string, subtasks []models.Subtask, overwriteState bool) error {
	keep := make([]string, 0, len(subtasks))
	for _, st := range subtasks {
		if st.ID != "" {
			keep = append(keep, st.ID)
		}
	}

	stale := tx.Where("task_id = ?", taskID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&models.Subtask{}).Error; err != nil {
		return err
	}

	for i := range subtasks {
		st := &subtasks[i]
		st.TaskID = taskID
		st.Position = i

		var existing models.Subtask
		err := tx.Where("id = ? AND task_id = ?", st.ID, taskID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound) || st.ID == "":
			if err := tx.Create(st).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			columns := []string{"text", "position"}
			if overwriteState {
				columns = append(columns, "completed", "completed_at")
			}
			if err := tx.Model(&existing).Select(columns).Updates(st).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
