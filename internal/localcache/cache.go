// Package localcache is the on-device task mirror and offline outbox. Rows
// written here are pushed to the remote stores by the sync replayer.
package localcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no cached row has the requested id.
	ErrNotFound = errors.New("localcache: task not found")
	// ErrConflict is returned when a save would change a row's board, creator
	// or kind, or revive a deleted row.
	ErrConflict = errors.New("localcache: id belongs to another row")
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks_offline (
	id               TEXT PRIMARY KEY,
	board_id         TEXT NOT NULL,
	is_proposal      INTEGER NOT NULL DEFAULT 0,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	deadline         DATETIME,
	priority         TEXT NOT NULL,
	status           TEXT NOT NULL,
	created_by       TEXT NOT NULL,
	reviewer_id      TEXT NOT NULL DEFAULT '',
	assigned_members TEXT NOT NULL DEFAULT '[]',
	reward_points    INTEGER NOT NULL DEFAULT 0,
	penalty_points   INTEGER NOT NULL DEFAULT 0,
	deleted          INTEGER NOT NULL DEFAULT 0,
	pending_sync     INTEGER NOT NULL DEFAULT 1,
	revision         INTEGER NOT NULL DEFAULT 0,
	attempts         INTEGER NOT NULL DEFAULT 0,
	last_error       TEXT NOT NULL DEFAULT '',
	updated_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_offline_pending ON tasks_offline (pending_sync, updated_at);
CREATE TABLE IF NOT EXISTS subtasks_offline (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL REFERENCES tasks_offline (id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	text         TEXT NOT NULL,
	completed    INTEGER NOT NULL DEFAULT 0,
	completed_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_subtasks_offline_task ON subtasks_offline (task_id, position);
`

// SubtaskRecord is a cached subtask row.
type SubtaskRecord struct {
	ID          string
	Position    int
	Text        string
	Completed   bool
	CompletedAt *time.Time
}

// TaskRecord is a cached task or proposal row with its sync bookkeeping.
type TaskRecord struct {
	ID              string
	BoardID         string
	IsProposal      bool
	Title           string
	Description     string
	Deadline        *time.Time
	Priority        string
	Status          string
	CreatedBy       string
	ReviewerID      string
	AssignedMembers []string
	RewardPoints    int64
	PenaltyPoints   int64
	Subtasks        []SubtaskRecord

	// Deleted rows are delete markers: replaying them removes the row remotely.
	Deleted     bool
	PendingSync bool
	Revision    int64
	Attempts    int
	LastError   string
	UpdatedAt   time.Time
}

// Cache wraps the local SQLite database.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an already opened database. Call Migrate before use.
func New(db *sql.DB) *Cache {
	return &Cache{db: db, now: time.Now}
}

// Open opens (or creates) the cache file at path and applies the schema.
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}
	// SQLite allows a single writer; one connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	c := New(db)
	if err := c.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Migrate creates the cache tables if they do not exist and adds columns
// missing from files written by older versions.
func (c *Cache) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate local cache: %w", err)
	}

	exists, err := c.hasColumn(ctx, "tasks_offline", "deleted")
	if err != nil {
		return fmt.Errorf("failed to migrate local cache: %w", err)
	}
	if !exists {
		if _, err := c.db.ExecContext(ctx,
			`ALTER TABLE tasks_offline ADD COLUMN deleted INTEGER NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("failed to migrate local cache: %w", err)
		}
	}
	return nil
}

func (c *Cache) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Save upserts a row, marks it pending and bumps its revision. rec.Revision
// and rec.UpdatedAt are set to the stored values. An existing row keeps its
// board, creator and kind; a save that would change them, or that targets a
// deleted row, fails with ErrConflict.
func (c *Cache) Save(ctx context.Context, rec *TaskRecord) error {
	return c.save(ctx, rec, false)
}

// Promote saves an approved proposal's row as a task row with the same id.
func (c *Cache) Promote(ctx context.Context, rec *TaskRecord) error {
	if rec.IsProposal {
		return fmt.Errorf("localcache: promote %s: record is still a proposal", rec.ID)
	}
	return c.save(ctx, rec, true)
}

func (c *Cache) save(ctx context.Context, rec *TaskRecord, promote bool) error {
	members, err := json.Marshal(nonNil(rec.AssignedMembers))
	if err != nil {
		return fmt.Errorf("failed to encode assignees: %w", err)
	}
	updatedAt := c.now().UTC()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO tasks_offline (
	id, board_id, is_proposal, title, description, deadline, priority, status, created_by,
	reviewer_id, assigned_members, reward_points, penalty_points, pending_sync, revision, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 1, ?)
ON CONFLICT (id) DO UPDATE SET
	is_proposal = excluded.is_proposal,
	title = excluded.title,
	description = excluded.description,
	deadline = excluded.deadline,
	priority = excluded.priority,
	status = excluded.status,
	reviewer_id = excluded.reviewer_id,
	assigned_members = excluded.assigned_members,
	reward_points = excluded.reward_points,
	penalty_points = excluded.penalty_points,
	pending_sync = 1,
	revision = tasks_offline.revision + 1,
	updated_at = excluded.updated_at
WHERE tasks_offline.deleted = 0
	AND tasks_offline.board_id = excluded.board_id
	AND tasks_offline.created_by = excluded.created_by
	AND (tasks_offline.is_proposal = excluded.is_proposal OR (? AND tasks_offline.is_proposal = 1))`,
		rec.ID, rec.BoardID, rec.IsProposal, rec.Title, rec.Description, rec.Deadline, rec.Priority,
		rec.Status, rec.CreatedBy, rec.ReviewerID, string(members), rec.RewardPoints, rec.PenaltyPoints,
		updatedAt, promote,
	)
	if err != nil {
		return fmt.Errorf("failed to save cached task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save cached task: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM subtasks_offline WHERE task_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("failed to clear cached subtasks: %w", err)
	}
	for i := range rec.Subtasks {
		st := &rec.Subtasks[i]
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		st.Position = i
		if _, err := tx.ExecContext(ctx, `
INSERT INTO subtasks_offline (id, task_id, position, text, completed, completed_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			st.ID, rec.ID, i, st.Text, st.Completed, st.CompletedAt,
		); err != nil {
			return fmt.Errorf("failed to save cached subtask: %w", err)
		}
	}

	var revision int64
	if err := tx.QueryRowContext(ctx, `SELECT revision FROM tasks_offline WHERE id = ?`, rec.ID).Scan(&revision); err != nil {
		return fmt.Errorf("failed to read cache revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cached task: %w", err)
	}

	rec.Deleted = false
	rec.PendingSync = true
	rec.Revision = revision
	rec.UpdatedAt = updatedAt
	return nil
}

// MarkDeleted turns the row into a pending delete marker, creating the marker
// when the id was never cached. Its subtasks are dropped. A deleted row can
// no longer be saved.
func (c *Cache) MarkDeleted(ctx context.Context, id, boardID string, isProposal bool) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO tasks_offline (
	id, board_id, is_proposal, title, priority, status, created_by, deleted, pending_sync, revision, updated_at
) VALUES (?, ?, ?, '', '', '', '', 1, 1, 1, ?)
ON CONFLICT (id) DO UPDATE SET
	is_proposal = excluded.is_proposal,
	deleted = 1,
	pending_sync = 1,
	revision = tasks_offline.revision + 1,
	attempts = 0,
	last_error = '',
	updated_at = excluded.updated_at`,
		id, boardID, isProposal, c.now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to mark cached task deleted: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subtasks_offline WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear cached subtasks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cached delete: %w", err)
	}
	return nil
}

const selectColumns = `
SELECT id, board_id, is_proposal, title, description, deadline, priority, status, created_by,
	reviewer_id, assigned_members, reward_points, penalty_points, deleted, pending_sync, revision,
	attempts, last_error, updated_at
FROM tasks_offline`

// Get returns a cached row with its subtasks. Delete markers are returned
// with Deleted set.
func (c *Cache) Get(ctx context.Context, id string) (*TaskRecord, error) {
	row := c.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := c.loadSubtasks(ctx, []*TaskRecord{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListPending returns up to limit dirty rows, oldest first.
func (c *Cache) ListPending(ctx context.Context, limit int) ([]TaskRecord, error) {
	rows, err := c.db.QueryContext(ctx, selectColumns+` WHERE pending_sync = 1 ORDER BY updated_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}
	rows.Close()

	ptrs := make([]*TaskRecord, len(records))
	for i := range records {
		ptrs[i] = &records[i]
	}
	if err := c.loadSubtasks(ctx, ptrs); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkSynced clears the pending flag if the row still has the given revision.
// It reports false when the row changed (or vanished) after it was read.
func (c *Cache) MarkSynced(ctx context.Context, id string, revision int64) (bool, error) {
	res, err := c.db.ExecContext(ctx, `
UPDATE tasks_offline SET pending_sync = 0, attempts = 0, last_error = ''
WHERE id = ? AND revision = ?`, id, revision)
	if err != nil {
		return false, fmt.Errorf("failed to mark task synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark task synced: %w", err)
	}
	return n == 1, nil
}

// Purge removes a delete marker once its deletion reached every remote
// store. It reports false when the row changed after it was read.
func (c *Cache) Purge(ctx context.Context, id string, revision int64) (bool, error) {
	res, err := c.db.ExecContext(ctx, `
DELETE FROM tasks_offline WHERE id = ? AND revision = ? AND deleted = 1`, id, revision)
	if err != nil {
		return false, fmt.Errorf("failed to purge cached task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to purge cached task: %w", err)
	}
	return n == 1, nil
}

// RecordFailure stores the last push error and bumps the attempt count.
func (c *Cache) RecordFailure(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := c.db.ExecContext(ctx, `
UPDATE tasks_offline SET attempts = attempts + 1, last_error = ? WHERE id = ?`, msg, id); err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return nil
}

// Discard removes a row and, through the foreign key, its subtasks, without
// leaving a delete marker.
func (c *Cache) Discard(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM tasks_offline WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cached task: %w", err)
	}
	return nil
}

// PendingCount returns the number of dirty rows.
func (c *Cache) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks_offline WHERE pending_sync = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending tasks: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*TaskRecord, error) {
	var (
		rec      TaskRecord
		deadline sql.NullTime
		members  string
	)
	if err := s.Scan(
		&rec.ID, &rec.BoardID, &rec.IsProposal, &rec.Title, &rec.Description, &deadline, &rec.Priority,
		&rec.Status, &rec.CreatedBy, &rec.ReviewerID, &members, &rec.RewardPoints, &rec.PenaltyPoints,
		&rec.Deleted, &rec.PendingSync, &rec.Revision, &rec.Attempts, &rec.LastError, &rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan cached task: %w", err)
	}

	if deadline.Valid {
		t := deadline.Time
		rec.Deadline = &t
	}
	if err := json.Unmarshal([]byte(members), &rec.AssignedMembers); err != nil {
		return nil, fmt.Errorf("failed to decode assignees of %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func (c *Cache) loadSubtasks(ctx context.Context, records []*TaskRecord) error {
	for _, rec := range records {
		rows, err := c.db.QueryContext(ctx, `
SELECT id, position, text, completed, completed_at FROM subtasks_offline
WHERE task_id = ? ORDER BY position ASC`, rec.ID)
		if err != nil {
			return fmt.Errorf("failed to load cached subtasks: %w", err)
		}

		for rows.Next() {
			var (
				st          SubtaskRecord
				completedAt sql.NullTime
			)
			if err := rows.Scan(&st.ID, &st.Position, &st.Text, &st.Completed, &completedAt); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan cached subtask: %w", err)
			}
			if completedAt.Valid {
				t := completedAt.Time
				st.CompletedAt = &t
			}
			rec.Subtasks = append(rec.Subtasks, st)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("failed to load cached subtasks: %w", err)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
