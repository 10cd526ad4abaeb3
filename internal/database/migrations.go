package database

import (
	"fmt"
	"log"

	"github.com/wemake-app/wemake-api/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by the penalty sweep and member listings.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		model   interface{}
		name    string
		columns string
	}{
		// Overdue sweep: deadline <= now AND status != completed AND penalty_applied = false
		{&models.Task{}, "idx_tasks_penalty_sweep", "penalty_applied, deadline"},
		{&models.Task{}, "idx_tasks_board_status", "board_id, status"},

		{&models.BoardMember{}, "idx_board_members_board_points", "board_id, points"},
		{&models.RedemptionRequest{}, "idx_redemptions_board_status", "board_id, status"},
		{&models.Subtask{}, "idx_subtasks_task_position", "task_id, position"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to resolve table for index %s: %w", idx.name, err)
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, stmt.Schema.Table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s(%s)", idx.name, stmt.Schema.Table, idx.columns)
	}

	return nil
}
