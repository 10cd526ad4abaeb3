package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wemake-app/wemake-api/internal/dto"
	apierrors "github.com/wemake-app/wemake-api/internal/errors"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/services"
	"github.com/wemake-app/wemake-api/internal/testutil"
)

func (e *handlerEnv) createTask(t *testing.T, s *boardSetup, title string) dto.TaskDTO {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/boards/"+s.board.ID+"/tasks", map[string]interface{}{
		"title":        title,
		"priority":     "high",
		"assignee_ids": []string{s.worker.ID},
		"reviewer_id":  s.reviewer.ID,
		"subtasks":     []string{"Wash", "Dry"},
	}, s.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var response dto.CreateTaskResponse
	decode(t, w, &response)
	require.NotNil(t, response.Task)
	return *response.Task
}

func TestTaskHandler_CreateTaskAsAdmin(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)

	task := env.createTask(t, s, "Laundry")
	assert.Equal(t, "Laundry", task.Title)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, int64(100), task.RewardPoints)
	assert.Equal(t, int64(20), task.PenaltyPoints)
	assert.Equal(t, []string{s.worker.ID}, task.AssigneeIDs)
	assert.Len(t, task.Subtasks, 2)
}

func TestTaskHandler_CreateTaskAsMemberMakesProposal(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)

	w := env.do(t, http.MethodPost, "/api/boards/"+s.board.ID+"/tasks", map[string]interface{}{
		"title":        "Buy milk",
		"assignee_ids": []string{s.worker.ID},
		"reviewer_id":  s.reviewer.ID,
	}, s.worker)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var response dto.CreateTaskResponse
	decode(t, w, &response)
	assert.Nil(t, response.Task)
	require.NotNil(t, response.Proposal)
	assert.Equal(t, models.ProposalAwaitingApproval, response.Proposal.Status)

	w = env.do(t, http.MethodGet, "/api/boards/"+s.board.ID+"/proposals", nil, s.admin)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Proposals []dto.ProposalDTO `json:"proposals"`
	}
	decode(t, w, &list)
	require.Len(t, list.Proposals, 1)

	w = env.do(t, http.MethodPost, "/api/boards/"+s.board.ID+"/proposals/"+response.Proposal.ID+"/approve",
		map[string]int64{"reward_points": 70}, s.admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var task dto.TaskDTO
	decode(t, w, &task)
	assert.Equal(t, response.Proposal.ID, task.ID)
	assert.Equal(t, int64(70), task.RewardPoints)

	w = env.do(t, http.MethodPost, "/api/boards/"+s.board.ID+"/proposals/"+response.Proposal.ID+"/deny", nil, s.admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_ProposalsAdminOnly(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)

	w := env.do(t, http.MethodGet, "/api/boards/"+s.board.ID+"/proposals", nil, s.worker)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTaskHandler_CreateTaskValidation(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	outsider := testutil.CreateUser(t, env.db, "outsider")
	path := "/api/boards/" + s.board.ID + "/tasks"

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{
			name: "missing title",
			body: map[string]interface{}{"assignee_ids": []string{s.worker.ID}, "reviewer_id": s.reviewer.ID},
			want: http.StatusBadRequest,
		},
		{
			name: "no assignee",
			body: map[string]interface{}{"title": "x", "reviewer_id": s.reviewer.ID},
			want: http.StatusBadRequest,
		},
		{
			name: "reviewer assigned",
			body: map[string]interface{}{"title": "x", "assignee_ids": []string{s.worker.ID}, "reviewer_id": s.worker.ID},
			want: http.StatusBadRequest,
		},
		{
			name: "assignee outside board",
			body: map[string]interface{}{"title": "x", "assignee_ids": []string{outsider.ID}, "reviewer_id": s.reviewer.ID},
			want: http.StatusBadRequest,
		},
		{
			name: "bad priority",
			body: map[string]interface{}{"title": "x", "priority": "urgent", "assignee_ids": []string{s.worker.ID}, "reviewer_id": s.reviewer.ID},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, path, tt.body, s.admin)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := env.do(t, http.MethodPost, path, map[string]interface{}{"title": "x"}, outsider)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_ListTasks(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	other := testutil.CreateBoard(t, env.db, "Office", "OFF111", s.admin)

	testutil.CreateTask(t, env.db, s.board, s.admin, "Dishes", s.worker)
	testutil.CreateTask(t, env.db, s.board, s.admin, "Vacuum", s.worker)
	testutil.CreateTask(t, env.db, other, s.admin, "Report", s.admin)

	w := env.do(t, http.MethodGet, "/api/tasks", nil, s.admin)
	require.Equal(t, http.StatusOK, w.Code)
	var response dto.TaskListResponse
	decode(t, w, &response)
	assert.Len(t, response.Tasks, 3)
	assert.Equal(t, int64(3), response.Pagination.Total)

	w = env.do(t, http.MethodGet, "/api/tasks?q=dish", nil, s.admin)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &response)
	require.Len(t, response.Tasks, 1)
	assert.Equal(t, "Dishes", response.Tasks[0].Title)

	w = env.do(t, http.MethodGet, "/api/tasks?limit=2&page=2", nil, s.admin)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &response)
	assert.Len(t, response.Tasks, 1)
	assert.Equal(t, int64(3), response.Pagination.Total)

	// The worker only belongs to the first board.
	w = env.do(t, http.MethodGet, "/api/tasks", nil, s.worker)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &response)
	assert.Len(t, response.Tasks, 2)

	w = env.do(t, http.MethodGet, "/api/boards/"+other.ID+"/tasks", nil, s.admin)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &response)
	require.Len(t, response.Tasks, 1)
	assert.Equal(t, "Report", response.Tasks[0].Title)

	w = env.do(t, http.MethodGet, "/api/tasks?priority=urgent", nil, s.admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_GetTask(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	outsider := testutil.CreateUser(t, env.db, "outsider")
	task := testutil.CreateTask(t, env.db, s.board, s.admin, "Dishes", s.worker)

	w := env.do(t, http.MethodGet, "/api/tasks/"+task.ID, nil, s.worker)
	require.Equal(t, http.StatusOK, w.Code)
	var response dto.TaskDTO
	decode(t, w, &response)
	assert.Equal(t, task.ID, response.ID)

	w = env.do(t, http.MethodGet, "/api/tasks/"+task.ID, nil, outsider)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/tasks/missing", nil, s.worker)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_PipelineWithUndo(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	task := env.createTask(t, s, "Laundry")

	w := env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/advance", nil, s.worker)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var mutation dto.MutationDTO
	decode(t, w, &mutation)
	assert.Equal(t, models.TaskStatusInProgress, mutation.Task.Status)
	assert.Equal(t, services.OutcomeCommitted, mutation.Outcome)
	require.NotEmpty(t, mutation.UndoToken)

	w = env.do(t, http.MethodPost, "/api/undo", map[string]string{"token": mutation.UndoToken}, s.worker)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &mutation)
	assert.Equal(t, models.TaskStatusPending, mutation.Task.Status)

	w = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "in_progress"}, s.worker)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/advance", nil, s.worker)
	require.Equal(t, http.StatusOK, w.Code)

	// Only the reviewer completes.
	w = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/advance", nil, s.worker)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/advance", nil, s.reviewer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &mutation)
	assert.Equal(t, models.TaskStatusCompleted, mutation.Task.Status)
	assert.True(t, mutation.Awarded)
	assert.Equal(t, int64(100), mutation.Points)
	assert.Equal(t, int64(100), testutil.Points(t, env.db, s.board.ID, s.worker.ID))

	w = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/advance", nil, s.reviewer)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTaskHandler_ChangeStatusErrors(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	task := env.createTask(t, s, "Laundry")

	w := env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "done"}, s.admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "in_review"}, s.worker)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "in_review"}, s.admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTaskHandler_UndoErrors(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	task := env.createTask(t, s, "Laundry")

	w := env.do(t, http.MethodPost, "/api/undo", map[string]string{"token": "unknown"}, s.worker)
	assert.Equal(t, http.StatusGone, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, apierrors.ErrCodeUndoExpired, body.Code)

	w = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/advance", nil, s.worker)
	require.Equal(t, http.StatusOK, w.Code)
	var mutation dto.MutationDTO
	decode(t, w, &mutation)

	w = env.do(t, http.MethodPost, "/api/undo", map[string]string{"token": mutation.UndoToken}, s.reviewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/undo", map[string]string{}, s.worker)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Priority(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	task := testutil.CreateTask(t, env.db, s.board, s.admin, "Dishes", s.worker)

	w := env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/priority/cycle", nil, s.worker)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var mutation dto.MutationDTO
	decode(t, w, &mutation)
	assert.Equal(t, models.PriorityHigh, mutation.Task.Priority)

	w = env.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/priority", map[string]string{"priority": "low"}, s.worker)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/priority", map[string]string{"priority": "low"}, s.admin)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &mutation)
	assert.Equal(t, models.PriorityLow, mutation.Task.Priority)

	w = env.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/priority", map[string]string{"priority": "urgent"}, s.admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_UpdateTask(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	task := env.createTask(t, s, "Laundry")

	w := env.do(t, http.MethodPatch, "/api/tasks/"+task.ID, map[string]interface{}{
		"title": "Laundry and ironing",
		"subtasks": []map[string]string{
			{"id": task.Subtasks[1].ID, "text": "Dry outside"},
			{"text": "Iron"},
		},
	}, s.admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response dto.TaskDTO
	decode(t, w, &response)
	assert.Equal(t, "Laundry and ironing", response.Title)
	require.Len(t, response.Subtasks, 2)
	assert.Equal(t, task.Subtasks[1].ID, response.Subtasks[0].ID)
	assert.Equal(t, "Iron", response.Subtasks[1].Text)

	w = env.do(t, http.MethodPatch, "/api/tasks/"+task.ID, map[string]interface{}{"title": "Mine now"}, s.worker)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, "/api/tasks/"+task.ID, map[string]interface{}{"reward_points": -5}, s.admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_ToggleSubtask(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	task := env.createTask(t, s, "Laundry")

	w := env.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/subtasks/"+task.Subtasks[0].ID,
		map[string]bool{"completed": true}, s.worker)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var subtask dto.SubtaskDTO
	decode(t, w, &subtask)
	assert.True(t, subtask.Completed)
	assert.NotNil(t, subtask.CompletedAt)

	w = env.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/subtasks/missing",
		map[string]bool{"completed": true}, s.worker)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/subtasks/"+task.Subtasks[0].ID, map[string]bool{}, s.worker)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_DeleteTask(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)
	task := env.createTask(t, s, "Laundry")

	w := env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, nil, s.worker)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, nil, s.admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/tasks/"+task.ID, nil, s.admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_DraftFromVoiceNotConfigured(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.newBoard(t)

	w := env.do(t, http.MethodPost, "/api/boards/"+s.board.ID+"/tasks/voice",
		map[string]string{"transcript": "limpiar la cocina mañana"}, s.worker)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
