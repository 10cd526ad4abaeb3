package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID  = "user_id"
	SessionCookieName = "wemake_session"
)

// Context keys set by board and task access middleware
const (
	ContextKeyBoard       = "board"
	ContextKeyBoardMember = "board_member"
	ContextKeyTask        = "task"
)

// Auth
const (
	MinPasswordLength = 8
	TokenTTL          = 7 * 24 * time.Hour
	SessionMaxAge     = 86400 * 7
)

// Boards
const (
	InviteCodeLength      = 6
	MaxInviteCodeAttempts = 5
	DefaultBoardColor     = "#C1CD7D"
	UserSearchLimit       = 10
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Points awarded or deducted when a task does not set its own
const (
	DefaultRewardHigh    = 100
	DefaultRewardMedium  = 50
	DefaultRewardLow     = 25
	DefaultPenaltyHigh   = 20
	DefaultPenaltyMedium = 10
	DefaultPenaltyLow    = 5
)

// Background jobs
const (
	JobSyncTasks        = "sync_tasks"
	JobOverduePenalties = "overdue_penalties"
	DefaultSyncBatch    = 50
)

// Dashboard
const (
	DashboardWeeks = 4
	AtRiskWindow   = 48 * time.Hour
)
