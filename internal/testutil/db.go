// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wemake-app/wemake-api/internal/database"
	"github.com/wemake-app/wemake-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated SQLite database in a per-test temp directory.
// A file is used instead of :memory: so every pooled connection sees the same schema.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a password user with the given name.
func CreateUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		Email:                name + "@example.com",
		Name:                 name,
		PasswordHash:         "hashed",
		AuthProvider:         models.AuthProviderPassword,
		NotificationsEnabled: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateBoard inserts a board with admin as its only member.
func CreateBoard(t *testing.T, db *gorm.DB, name, inviteCode string, admin *models.User) *models.Board {
	t.Helper()

	board := &models.Board{
		Name:       name,
		Color:      "#C1CD7D",
		InviteCode: inviteCode,
		CreatedBy:  admin.ID,
	}
	require.NoError(t, db.Create(board).Error)
	AddMember(t, db, board, admin, models.RoleAdmin, 0)
	return board
}

// AddMember inserts a membership with a starting balance.
func AddMember(t *testing.T, db *gorm.DB, board *models.Board, user *models.User, role models.Role, points int64) *models.BoardMember {
	t.Helper()

	member := &models.BoardMember{
		BoardID:  board.ID,
		UserID:   user.ID,
		Role:     role,
		Points:   points,
		JoinedAt: time.Now(),
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

// CreateTask inserts a pending task assigned to assignees.
func CreateTask(t *testing.T, db *gorm.DB, board *models.Board, creator *models.User, title string, assignees ...*models.User) *models.Task {
	t.Helper()

	task := &models.Task{
		BoardID:       board.ID,
		Title:         title,
		Priority:      models.PriorityMedium,
		Status:        models.TaskStatusPending,
		CreatedBy:     creator.ID,
		RewardPoints:  50,
		PenaltyPoints: 10,
	}
	for _, u := range assignees {
		task.Assignments = append(task.Assignments, models.TaskAssignment{UserID: u.ID})
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// Points reads a member's current balance.
func Points(t *testing.T, db *gorm.DB, boardID, userID string) int64 {
	t.Helper()

	var member models.BoardMember
	require.NoError(t, db.Where("board_id = ? AND user_id = ?", boardID, userID).First(&member).Error)
	return member.Points
}
