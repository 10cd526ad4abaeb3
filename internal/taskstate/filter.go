// Package taskstate holds the in-memory view over the tasks visible to a user.
package taskstate

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/wemake-app/wemake-api/internal/models"
)

const (
	// AssigneeMe matches tasks assigned to the requesting user.
	AssigneeMe = "me"
	// AssigneeUnassigned matches tasks with no assignees.
	AssigneeUnassigned = "unassigned"
)

type DueBucket string

const (
	DueOverdue  DueBucket = "overdue"
	DueToday    DueBucket = "today"
	DueTomorrow DueBucket = "tomorrow"
	DueThisWeek DueBucket = "this_week"
)

func (d DueBucket) Valid() bool {
	switch d {
	case DueOverdue, DueToday, DueTomorrow, DueThisWeek:
		return true
	}
	return false
}

var (
	ErrInvalidPriority = errors.New("taskstate: invalid priority")
	ErrInvalidStatus   = errors.New("taskstate: invalid status")
	ErrInvalidDue      = errors.New("taskstate: invalid due bucket")
)

// Criteria is the set of active filters. Zero values impose no constraint.
type Criteria struct {
	Query    string
	BoardIDs []string
	Priority *models.Priority
	Assignee string
	Due      *DueBucket
	Status   *models.TaskStatus
}

// IsEmpty reports whether no criterion is active.
func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Query) == "" && len(c.BoardIDs) == 0 && c.Priority == nil &&
		c.Assignee == "" && c.Due == nil && c.Status == nil
}

// StatusOnly keeps the status tab and clears every other filter.
func (c Criteria) StatusOnly() Criteria {
	return Criteria{Status: c.Status}
}

// Parse builds criteria from query parameters q, board_id, priority, assignee, due and status.
func Parse(values url.Values) (Criteria, error) {
	c := Criteria{
		Query:    strings.TrimSpace(values.Get("q")),
		Assignee: strings.TrimSpace(values.Get("assignee")),
	}

	for _, id := range values["board_id"] {
		if id = strings.TrimSpace(id); id != "" {
			c.BoardIDs = append(c.BoardIDs, id)
		}
	}

	if raw := values.Get("priority"); raw != "" {
		p := models.Priority(raw)
		if !p.Valid() {
			return Criteria{}, ErrInvalidPriority
		}
		c.Priority = &p
	}

	if raw := values.Get("status"); raw != "" {
		s := models.TaskStatus(raw)
		if !s.Valid() {
			return Criteria{}, ErrInvalidStatus
		}
		c.Status = &s
	}

	if raw := values.Get("due"); raw != "" {
		d := DueBucket(raw)
		if !d.Valid() {
			return Criteria{}, ErrInvalidDue
		}
		c.Due = &d
	}

	return c, nil
}

// Filter returns the tasks matching every active criterion, in input order.
// The input slice is not modified.
func Filter(tasks []models.Task, c Criteria, userID string, now time.Time) []models.Task {
	result := make([]models.Task, 0, len(tasks))
	for i := range tasks {
		if Matches(&tasks[i], c, userID, now) {
			result = append(result, tasks[i])
		}
	}
	return result
}

// Matches reports whether a single task satisfies every active criterion.
func Matches(task *models.Task, c Criteria, userID string, now time.Time) bool {
	if q := strings.ToLower(strings.TrimSpace(c.Query)); q != "" {
		if !strings.Contains(strings.ToLower(task.Title), q) &&
			!strings.Contains(strings.ToLower(task.Description), q) {
			return false
		}
	}

	if len(c.BoardIDs) > 0 && !contains(c.BoardIDs, task.BoardID) {
		return false
	}

	if c.Priority != nil && task.Priority != *c.Priority {
		return false
	}

	if c.Status != nil && task.Status != *c.Status {
		return false
	}

	switch c.Assignee {
	case "":
	case AssigneeMe:
		if !task.IsAssignedTo(userID) {
			return false
		}
	case AssigneeUnassigned:
		if len(task.Assignments) > 0 {
			return false
		}
	default:
		if !task.IsAssignedTo(c.Assignee) {
			return false
		}
	}

	if c.Due != nil && !InDueBucket(task, *c.Due, now) {
		return false
	}

	return true
}

// InDueBucket reports whether the task's deadline falls in bucket relative to now.
// Tasks without a deadline are in no bucket.
func InDueBucket(task *models.Task, bucket DueBucket, now time.Time) bool {
	if task.Deadline == nil {
		return false
	}
	deadline := task.Deadline.In(now.Location())

	switch bucket {
	case DueOverdue:
		return task.IsOverdue(now)
	case DueToday:
		return sameDay(deadline, now)
	case DueTomorrow:
		return sameDay(deadline, now.Add(24*time.Hour))
	case DueThisWeek:
		return !deadline.After(now.Add(7 * 24 * time.Hour))
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
