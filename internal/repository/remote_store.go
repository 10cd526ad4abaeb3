package repository

import (
	"context"
	"errors"

	"github.com/wemake-app/wemake-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRemoteTaskStore replays cached rows into the primary database.
type GormRemoteTaskStore struct {
	db *gorm.DB
}

// NewRemoteTaskStore creates a RemoteTaskStore backed by the primary database
func NewRemoteTaskStore(db *gorm.DB) RemoteTaskStore {
	return &GormRemoteTaskStore{db: db}
}

func (s *GormRemoteTaskStore) Name() string {
	return "primary"
}

// UpsertTask writes the task's content keyed by its id. Status, completion and
// the reward and penalty flags are owned by the primary store and never
// overwritten by a replay; they are only set when the row is first inserted.
// A deleted task or board is never recreated, and a row owned by another
// board, creator or pending proposal is left alone.
func (s *GormRemoteTaskStore) UpsertTask(ctx context.Context, task *models.Task) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReplayTarget(tx, task.ID, task.BoardID, models.TombstoneTask); err != nil {
			return err
		}

		var existing models.Task
		err := tx.Select("id", "board_id", "created_by").Where("id = ?", task.ID).Take(&existing).Error
		switch {
		case err == nil:
			if existing.BoardID != task.BoardID || existing.CreatedBy != task.CreatedBy {
				return ErrOwnerMismatch
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			var proposals int64
			if err := tx.Model(&models.TaskProposal{}).Where("id = ?", task.ID).Count(&proposals).Error; err != nil {
				return err
			}
			if proposals > 0 {
				return ErrOwnerMismatch
			}
		default:
			return err
		}

		row := *task
		row.Board = models.Board{}
		row.Assignments = nil
		row.Subtasks = nil

		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(append([]string{"updated_at"}, taskContentColumns...)),
		}).Create(&row).Error; err != nil {
			return err
		}

		if err := replaceAssignments(tx, task.ID, task.AssigneeIDs()); err != nil {
			return err
		}
		return replaceSubtasks(tx, task.ID, task.Subtasks, false)
	})
}

// UpsertProposal writes a proposal keyed by its id. A proposal that was
// already approved has become a task with the same id and is left alone.
func (s *GormRemoteTaskStore) UpsertProposal(ctx context.Context, proposal *models.TaskProposal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Task{}).Where("id = ?", proposal.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if err := checkReplayTarget(tx, proposal.ID, proposal.BoardID, models.TombstoneProposal); err != nil {
			return err
		}

		var existing models.TaskProposal
		err := tx.Select("id", "board_id", "proposed_by").Where("id = ?", proposal.ID).Take(&existing).Error
		if err == nil && (existing.BoardID != proposal.BoardID || existing.ProposedBy != proposal.ProposedBy) {
			return ErrOwnerMismatch
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "deadline", "priority", "reviewer_id",
				"assigned_members", "subtasks", "reward_points", "penalty_points", "updated_at",
			}),
		}).Create(proposal).Error
	})
}

// DeleteTask removes the task if it is still present and records its tombstone.
func (s *GormRemoteTaskStore) DeleteTask(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteTaskRows(tx, id)
	})
}

// DeleteProposal removes the proposal if it is still pending and records its tombstone.
func (s *GormRemoteTaskStore) DeleteProposal(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Delete(&models.TaskProposal{}).Error; err != nil {
			return err
		}
		return bury(tx, id, models.TombstoneProposal)
	})
}

func checkReplayTarget(tx *gorm.DB, id, boardID string, kind models.TombstoneKind) error {
	dead, err := buried(tx, id, kind)
	if err != nil {
		return err
	}
	if dead {
		return ErrRecordDeleted
	}

	var boards int64
	if err := tx.Model(&models.Board{}).Where("id = ?", boardID).Count(&boards).Error; err != nil {
		return err
	}
	if boards == 0 {
		return ErrRecordDeleted
	}
	return nil
}
