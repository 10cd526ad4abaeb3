package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wemake-app/wemake-api/internal/constants"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/repository"
	"gorm.io/gorm"
)

// DashboardService computes board statistics from the board's tasks and members.
type DashboardService struct {
	taskRepo  repository.TaskRepository
	boardRepo repository.BoardRepository
	now       func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(taskRepo repository.TaskRepository, boardRepo repository.BoardRepository) *DashboardService {
	return &DashboardService{
		taskRepo:  taskRepo,
		boardRepo: boardRepo,
		now:       time.Now,
	}
}

type DashboardSummary struct {
	TotalTasks   int `json:"total_tasks"`
	PendingTasks int `json:"pending_tasks"`
}

type ProductivityMetrics struct {
	TasksCompletedPerWeek map[string]int `json:"tasks_completed_per_week"`
	PriorityDistribution  map[string]int `json:"priority_distribution"`
	AvgCompletionDays     float64        `json:"avg_completion_time_days"`
	OnTimeCompletionRate  float64        `json:"on_time_completion_rate"`
}

type AtRiskTask struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Priority models.Priority `json:"priority"`
	Deadline time.Time       `json:"deadline"`
}

type Predictions struct {
	AtRiskTasks []AtRiskTask `json:"at_risk_tasks"`
}

// Dashboard is the board overview.
type Dashboard struct {
	Summary      DashboardSummary    `json:"summary"`
	Productivity ProductivityMetrics `json:"productivity"`
	Predictions  Predictions         `json:"predictions"`
}

// LeaderboardEntry is one ranked member.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
	Points   int64  `json:"points"`
}

// UserSummary describes one member's work on a board.
type UserSummary struct {
	TasksInvolved  int     `json:"tasks_involved"`
	TasksCompleted int     `json:"tasks_completed"`
	OnTimeRate     float64 `json:"on_time_rate"`
	OverdueTasks   int     `json:"overdue_tasks"`
}

// GetDashboard builds the summary, productivity and at-risk sections for a board.
func (s *DashboardService) GetDashboard(boardID string) (*Dashboard, error) {
	tasks, err := s.taskRepo.ListByBoards([]string{boardID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := s.now()
	dashboard := &Dashboard{
		Productivity: ProductivityMetrics{
			TasksCompletedPerWeek: emptyWeeks(now, constants.DashboardWeeks),
			PriorityDistribution: map[string]int{
				string(models.PriorityHigh):   0,
				string(models.PriorityMedium): 0,
				string(models.PriorityLow):    0,
			},
		},
		Predictions: Predictions{AtRiskTasks: []AtRiskTask{}},
	}

	var totalDays float64
	var completed int
	for i := range tasks {
		task := &tasks[i]
		dashboard.Summary.TotalTasks++
		dashboard.Productivity.PriorityDistribution[string(task.Priority)]++

		if task.Status != models.TaskStatusCompleted {
			dashboard.Summary.PendingTasks++
			if task.Deadline != nil && task.Deadline.Before(now.Add(constants.AtRiskWindow)) {
				dashboard.Predictions.AtRiskTasks = append(dashboard.Predictions.AtRiskTasks, AtRiskTask{
					ID:       task.ID,
					Title:    task.Title,
					Priority: task.Priority,
					Deadline: *task.Deadline,
				})
			}
			continue
		}

		if task.CompletedAt == nil {
			continue
		}
		completed++
		totalDays += task.CompletedAt.Sub(task.CreatedAt).Hours() / 24

		if label := isoWeekLabel(*task.CompletedAt); label != "" {
			if _, tracked := dashboard.Productivity.TasksCompletedPerWeek[label]; tracked {
				dashboard.Productivity.TasksCompletedPerWeek[label]++
			}
		}
	}

	if completed > 0 {
		dashboard.Productivity.AvgCompletionDays = round2(totalDays / float64(completed))
	}
	dashboard.Productivity.OnTimeCompletionRate = onTimeRate(tasks)

	sort.SliceStable(dashboard.Predictions.AtRiskTasks, func(i, j int) bool {
		return dashboard.Predictions.AtRiskTasks[i].Deadline.Before(dashboard.Predictions.AtRiskTasks[j].Deadline)
	})

	return dashboard, nil
}

// GetLeaderboard ranks members by points. Ties are ordered by name.
func (s *DashboardService) GetLeaderboard(boardID string) ([]LeaderboardEntry, error) {
	members, err := s.boardRepo.ListMembers(boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list board members: %w", err)
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Points != members[j].Points {
			return members[i].Points > members[j].Points
		}
		return strings.ToLower(members[i].User.Name) < strings.ToLower(members[j].User.Name)
	})

	entries := make([]LeaderboardEntry, 0, len(members))
	for i, m := range members {
		entries = append(entries, LeaderboardEntry{
			Rank:     i + 1,
			UserID:   m.UserID,
			Name:     m.User.Name,
			PhotoURL: m.User.PhotoURL,
			Points:   m.Points,
		})
	}
	return entries, nil
}

// GetUserSummary counts the tasks the user is assigned to or reviews.
func (s *DashboardService) GetUserSummary(boardID, userID string) (*UserSummary, error) {
	if _, err := s.boardRepo.FindMember(boardID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find board member: %w", err)
	}

	tasks, err := s.taskRepo.ListByBoards([]string{boardID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := s.now()
	summary := &UserSummary{}
	involved := make([]models.Task, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		if !task.IsAssignedTo(userID) && task.ReviewerID != userID {
			continue
		}
		involved = append(involved, *task)
		summary.TasksInvolved++
		if task.Status == models.TaskStatusCompleted {
			summary.TasksCompleted++
		}
		if task.IsOverdue(now) {
			summary.OverdueTasks++
		}
	}
	summary.OnTimeRate = onTimeRate(involved)

	return summary, nil
}

// onTimeRate is the percentage of completed tasks with a deadline that were
// completed at or before it.
func onTimeRate(tasks []models.Task) float64 {
	var withDeadline, onTime int
	for i := range tasks {
		task := &tasks[i]
		if task.Status != models.TaskStatusCompleted || task.Deadline == nil || task.CompletedAt == nil {
			continue
		}
		withDeadline++
		if !task.CompletedAt.After(*task.Deadline) {
			onTime++
		}
	}
	if withDeadline == 0 {
		return 0
	}
	return round2(float64(onTime) / float64(withDeadline) * 100)
}

// emptyWeeks returns zeroed counters for the current ISO week and the weeks before it.
func emptyWeeks(now time.Time, weeks int) map[string]int {
	counts := make(map[string]int, weeks)
	for i := 0; i < weeks; i++ {
		counts[isoWeekLabel(now.AddDate(0, 0, -7*i))] = 0
	}
	return counts
}

func isoWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
