package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/realtime"
	"github.com/wemake-app/wemake-api/internal/repository"
)

func newProposal(t *testing.T, env *serviceEnv, f *boardFixture, title string) *models.TaskProposal {
	t.Helper()

	result, err := env.taskSvc.CreateTask(context.Background(), CreateTaskInput{
		BoardID:     f.board.ID,
		ActorID:     f.worker.ID,
		Title:       title,
		AssigneeIDs: []string{f.worker.ID},
		ReviewerID:  f.reviewer.ID,
		Subtasks:    []string{"Step one"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Proposal)
	return result.Proposal
}

func TestProposalService_ApproveKeepsIDAndOverridesPoints(t *testing.T) {
	env := newServiceEnv(t)
	f := env.newBoard(t)
	ctx := context.Background()
	svc := NewProposalService(repository.NewProposalRepository(env.db), env.tasks, env.outbox, env.publisher)

	proposal := newProposal(t, env, f, "Build shelf")

	listed, err := svc.ListProposals(f.board.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	reward := int64(75)
	task, err := svc.ApproveProposal(ctx, f.board.ID, proposal.ID, ApproveProposalInput{RewardPoints: &reward})
	require.NoError(t, err)
	require.Equal(t, proposal.ID, task.ID)
	require.Equal(t, int64(75), task.RewardPoints)
	require.Equal(t, proposal.PenaltyPoints, task.PenaltyPoints)
	require.Equal(t, models.TaskStatusPending, task.Status)
	require.Equal(t, []string{f.worker.ID}, task.AssigneeIDs())
	require.Len(t, task.Subtasks, 1)

	listed, err = svc.ListProposals(f.board.ID)
	require.NoError(t, err)
	require.Empty(t, listed)

	cached, err := env.outbox.Get(ctx, proposal.ID)
	require.NoError(t, err)
	require.False(t, cached.IsProposal)
	require.True(t, cached.PendingSync)
	require.Equal(t, int64(75), cached.RewardPoints)

	report, err := env.replayer.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Pushed)

	_, err = svc.ApproveProposal(ctx, f.board.ID, proposal.ID, ApproveProposalInput{})
	require.ErrorIs(t, err, ErrProposalNotFound)
	require.Contains(t, env.publisher.Types(), realtime.EventProposalResolved)
}

func TestProposalService_DenyAndScope(t *testing.T) {
	env := newServiceEnv(t)
	f := env.newBoard(t)
	ctx := context.Background()
	svc := NewProposalService(repository.NewProposalRepository(env.db), env.tasks, env.outbox, env.publisher)

	proposal := newProposal(t, env, f, "Fix sink")

	require.ErrorIs(t, svc.DenyProposal(ctx, "other-board", proposal.ID), ErrProposalNotFound)

	negative := int64(-5)
	_, err := svc.ApproveProposal(ctx, f.board.ID, proposal.ID, ApproveProposalInput{PenaltyPoints: &negative})
	require.ErrorIs(t, err, ErrInvalidPoints)

	require.NoError(t, svc.DenyProposal(ctx, f.board.ID, proposal.ID))
	require.ErrorIs(t, svc.DenyProposal(ctx, f.board.ID, proposal.ID), ErrProposalNotFound)

	marker, err := env.outbox.Get(ctx, proposal.ID)
	require.NoError(t, err)
	require.True(t, marker.Deleted)
	require.True(t, marker.IsProposal)

	report, err := env.replayer.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Pushed)
	require.Equal(t, []string{"proposal/" + proposal.ID}, env.remote.deleted)

	_, err = env.taskSvc.GetTask(proposal.ID)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestProposalService_ProposalIDCannotBeTakenOver(t *testing.T) {
	env := newServiceEnv(t)
	f := env.newBoard(t)
	ctx := context.Background()
	svc := NewProposalService(repository.NewProposalRepository(env.db), env.tasks, env.outbox, env.publisher)

	proposal := newProposal(t, env, f, "Build shelf")
	_, err := env.replayer.RunOnce(ctx)
	require.NoError(t, err)

	// another member resubmits the id offline
	results, err := env.taskSvc.SubmitOfflineTasks(ctx, f.worker2.ID, []CreateTaskInput{{
		ID: proposal.ID, BoardID: f.board.ID, Title: "Mine now",
		AssigneeIDs: []string{f.worker2.ID}, ReviewerID: f.reviewer.ID,
	}})
	require.NoError(t, err)
	require.False(t, results[0].Accepted)
	require.Equal(t, ErrTaskIDConflict.Error(), results[0].Error)

	// an admin reuses it, online and offline
	_, err = env.taskSvc.CreateTask(ctx, CreateTaskInput{
		ID: proposal.ID, BoardID: f.board.ID, ActorID: f.admin.ID, Title: "Shadow task",
		AssigneeIDs: []string{f.worker.ID}, ReviewerID: f.reviewer.ID,
	})
	require.ErrorIs(t, err, ErrTaskIDConflict)
	results, err = env.taskSvc.SubmitOfflineTasks(ctx, f.admin.ID, []CreateTaskInput{{
		ID: proposal.ID, BoardID: f.board.ID, Title: "Shadow task",
		AssigneeIDs: []string{f.worker.ID}, ReviewerID: f.reviewer.ID,
	}})
	require.NoError(t, err)
	require.Equal(t, ErrTaskIDConflict.Error(), results[0].Error)

	_, err = env.replayer.RunOnce(ctx)
	require.NoError(t, err)

	stored, err := env.proposals.FindByID(proposal.ID)
	require.NoError(t, err)
	require.Equal(t, "Build shelf", stored.Title)
	require.Equal(t, f.worker.ID, stored.ProposedBy)

	task, err := svc.ApproveProposal(ctx, f.board.ID, proposal.ID, ApproveProposalInput{})
	require.NoError(t, err)
	require.Equal(t, f.worker.ID, task.CreatedBy)
}

func TestProposalService_ApprovedTaskSurvivesStaleProposalReplay(t *testing.T) {
	env := newServiceEnv(t)
	f := env.newBoard(t)
	ctx := context.Background()
	svc := NewProposalService(repository.NewProposalRepository(env.db), env.tasks, env.outbox, env.publisher)

	proposal := newProposal(t, env, f, "Build shelf")
	stale, err := env.outbox.Get(ctx, proposal.ID)
	require.NoError(t, err)

	_, err = svc.ApproveProposal(ctx, f.board.ID, proposal.ID, ApproveProposalInput{})
	require.NoError(t, err)

	_, err = env.replayer.Flush(ctx, stale)
	require.NoError(t, err)

	cached, err := env.outbox.Get(ctx, proposal.ID)
	require.NoError(t, err)
	require.False(t, cached.Deleted)
	require.False(t, cached.IsProposal)
	require.True(t, cached.PendingSync)

	list, err := svc.ListProposals(f.board.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}
