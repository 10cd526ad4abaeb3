package localcache

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/wemake-app/wemake-api/internal/models"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()

	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
	})
	return c
}

func sampleRecord(id string) *TaskRecord {
	deadline := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return &TaskRecord{
		ID:              id,
		BoardID:         "board-1",
		Title:           "Clean kitchen",
		Deadline:        &deadline,
		Priority:        "high",
		Status:          "pending",
		CreatedBy:       "user-1",
		ReviewerID:      "user-2",
		AssignedMembers: []string{"user-1", "user-3"},
		RewardPoints:    100,
		PenaltyPoints:   20,
		Subtasks: []SubtaskRecord{
			{ID: "st-1", Text: "dishes"},
			{ID: "st-2", Text: "floor"},
		},
	}
}

func TestCache_SaveAndGet(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	rec := sampleRecord("task-1")
	require.NoError(t, c.Save(ctx, rec))
	require.Equal(t, int64(1), rec.Revision)
	require.True(t, rec.PendingSync)

	got, err := c.Get(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, "Clean kitchen", got.Title)
	require.Equal(t, []string{"user-1", "user-3"}, got.AssignedMembers)
	require.NotNil(t, got.Deadline)
	require.True(t, got.Deadline.Equal(*rec.Deadline))
	require.Len(t, got.Subtasks, 2)
	require.Equal(t, "floor", got.Subtasks[1].Text)
	require.True(t, got.PendingSync)

	rec.Title = "Clean whole kitchen"
	require.NoError(t, c.Save(ctx, rec))
	require.Equal(t, int64(2), rec.Revision)

	_, err = c.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCache_MarkSyncedComparesRevision(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	rec := sampleRecord("task-1")
	require.NoError(t, c.Save(ctx, rec))
	scanned := rec.Revision

	// A local edit lands between the scan and the acknowledgement.
	require.NoError(t, c.Save(ctx, rec))

	ok, err := c.MarkSynced(ctx, "task-1", scanned)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := c.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ok, err = c.MarkSynced(ctx, "task-1", rec.Revision)
	require.NoError(t, err)
	require.True(t, ok)

	n, err = c.PendingCount(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCache_ListPendingAndFailures(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, sampleRecord("a")))
	require.NoError(t, c.Save(ctx, sampleRecord("b")))
	require.NoError(t, c.RecordFailure(ctx, "a", errors.New("network down")))

	pending, err := c.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	var failed TaskRecord
	for _, p := range pending {
		if p.ID == "a" {
			failed = p
		}
		require.Len(t, p.Subtasks, 2)
	}
	require.Equal(t, 1, failed.Attempts)
	require.Equal(t, "network down", failed.LastError)

	limited, err := c.ListPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestCache_DiscardCascadesSubtasks(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, sampleRecord("task-1")))
	require.NoError(t, c.Discard(ctx, "task-1"))

	var n int
	require.NoError(t, c.db.QueryRow(`SELECT COUNT(*) FROM subtasks_offline`).Scan(&n))
	require.Zero(t, n)
}

func TestCache_SaveKeepsOwnershipOfExistingRow(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	original := sampleRecord("task-1")
	require.NoError(t, c.Save(ctx, original))

	tests := []struct {
		name   string
		mutate func(r *TaskRecord)
	}{
		{name: "other creator", mutate: func(r *TaskRecord) { r.CreatedBy = "user-9" }},
		{name: "other board", mutate: func(r *TaskRecord) { r.BoardID = "board-9" }},
		{name: "task to proposal", mutate: func(r *TaskRecord) { r.IsProposal = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hijack := sampleRecord("task-1")
			hijack.Title = "HIJACKED"
			tt.mutate(hijack)

			require.ErrorIs(t, c.Save(ctx, hijack), ErrConflict)

			got, err := c.Get(ctx, "task-1")
			require.NoError(t, err)
			require.Equal(t, "Clean kitchen", got.Title)
			require.Equal(t, "user-1", got.CreatedBy)
			require.Equal(t, "board-1", got.BoardID)
			require.False(t, got.IsProposal)
			require.Equal(t, original.Revision, got.Revision)
			require.Len(t, got.Subtasks, 2)
		})
	}
}

func TestCache_PromoteTurnsProposalIntoTask(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	proposal := sampleRecord("prop-1")
	proposal.IsProposal = true
	require.NoError(t, c.Save(ctx, proposal))

	task := sampleRecord("prop-1")
	require.ErrorIs(t, c.Save(ctx, task), ErrConflict)
	require.NoError(t, c.Promote(ctx, task))

	got, err := c.Get(ctx, "prop-1")
	require.NoError(t, err)
	require.False(t, got.IsProposal)
	require.True(t, got.PendingSync)

	back := sampleRecord("prop-1")
	back.IsProposal = true
	require.ErrorIs(t, c.Save(ctx, back), ErrConflict)
	require.Error(t, c.Promote(ctx, back))
}

func TestCache_MarkDeletedLeavesPendingMarker(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	rec := sampleRecord("task-1")
	require.NoError(t, c.Save(ctx, rec))
	require.NoError(t, c.MarkDeleted(ctx, "task-1", "board-1", false))
	require.NoError(t, c.MarkDeleted(ctx, "never-cached", "board-1", true))

	got, err := c.Get(ctx, "task-1")
	require.NoError(t, err)
	require.True(t, got.Deleted)
	require.True(t, got.PendingSync)
	require.Empty(t, got.Subtasks)
	require.Greater(t, got.Revision, rec.Revision)

	marker, err := c.Get(ctx, "never-cached")
	require.NoError(t, err)
	require.True(t, marker.Deleted)
	require.True(t, marker.IsProposal)

	require.ErrorIs(t, c.Save(ctx, sampleRecord("task-1")), ErrConflict)

	n, err := c.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	ok, err := c.Purge(ctx, "task-1", rec.Revision)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.Purge(ctx, "task-1", got.Revision)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = c.Get(ctx, "task-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCache_MigrateAddsDeletedColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE tasks_offline (
	id TEXT PRIMARY KEY, board_id TEXT NOT NULL, is_proposal INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL, description TEXT NOT NULL DEFAULT '', deadline DATETIME,
	priority TEXT NOT NULL, status TEXT NOT NULL, created_by TEXT NOT NULL,
	reviewer_id TEXT NOT NULL DEFAULT '', assigned_members TEXT NOT NULL DEFAULT '[]',
	reward_points INTEGER NOT NULL DEFAULT 0, penalty_points INTEGER NOT NULL DEFAULT 0,
	pending_sync INTEGER NOT NULL DEFAULT 1, revision INTEGER NOT NULL DEFAULT 0,
	attempts INTEGER NOT NULL DEFAULT 0, last_error TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Save(context.Background(), sampleRecord("task-1")))
	got, err := c.Get(context.Background(), "task-1")
	require.NoError(t, err)
	require.False(t, got.Deleted)
}

func TestCache_SaveAssignsMissingSubtaskIDs(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	proposal := &models.TaskProposal{
		ID:         "prop-1",
		BoardID:    "board-1",
		Title:      "Paint",
		Priority:   models.PriorityLow,
		Status:     models.ProposalAwaitingApproval,
		ProposedBy: "user-1",
		Subtasks:   []string{"buy paint", "tape edges"},
	}
	rec := FromProposal(proposal)
	require.NoError(t, c.Save(ctx, rec))
	require.NotEmpty(t, rec.Subtasks[0].ID)
	require.NotEqual(t, rec.Subtasks[0].ID, rec.Subtasks[1].ID)

	got, err := c.Get(ctx, "prop-1")
	require.NoError(t, err)
	require.True(t, got.IsProposal)
	require.Equal(t, []string{"buy paint", "tape edges"}, got.Proposal().Subtasks)
}

func TestCache_SaveRollsBackOnSubtaskFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := New(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks_offline").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM subtasks_offline").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO subtasks_offline").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = c.Save(context.Background(), sampleRecord("task-1"))
	require.ErrorContains(t, err, "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_MarkSyncedReportsDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := New(db)

	mock.ExpectExec("UPDATE tasks_offline SET pending_sync = 0").
		WithArgs("task-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE tasks_offline SET pending_sync = 0").
		WithArgs("task-1", int64(3)).
		WillReturnError(errors.New("database is locked"))

	ok, err := c.MarkSynced(context.Background(), "task-1", 3)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = c.MarkSynced(context.Background(), "task-1", 3)
	require.ErrorContains(t, err, "database is locked")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecords_TaskRoundTrip(t *testing.T) {
	task := &models.Task{
		ID:          "t1",
		BoardID:     "b1",
		Title:       "Laundry",
		Priority:    models.PriorityMedium,
		Status:      models.TaskStatusInProgress,
		Assignments: []models.TaskAssignment{{UserID: "u1"}},
		Subtasks:    []models.Subtask{{ID: "s1", Text: "wash", Completed: true}},
	}

	back := FromTask(task).Task()
	require.Equal(t, task.Title, back.Title)
	require.Equal(t, []string{"u1"}, back.AssigneeIDs())
	require.Equal(t, "s1", back.Subtasks[0].ID)
	require.True(t, back.Subtasks[0].Completed)
}
