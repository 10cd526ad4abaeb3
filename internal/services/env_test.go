package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wemake-app/wemake-api/internal/cache"
	"github.com/wemake-app/wemake-api/internal/localcache"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/repository"
	"github.com/wemake-app/wemake-api/internal/syncer"
	"github.com/wemake-app/wemake-api/internal/testutil"
	"gorm.io/gorm"
)

type publishedEvent struct {
	BoardID string
	Type    string
	Data    interface{}
}

type recordingPublisher struct {
	mu           sync.Mutex
	events       []publishedEvent
	disconnected []string
}

// Disconnect records "board" for a whole board or "board/user" per user.
func (p *recordingPublisher) Disconnect(boardID string, userIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(userIDs) == 0 {
		p.disconnected = append(p.disconnected, boardID)
		return
	}
	for _, id := range userIDs {
		p.disconnected = append(p.disconnected, boardID+"/"+id)
	}
}

func (p *recordingPublisher) Publish(boardID, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{BoardID: boardID, Type: eventType, Data: data})
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type recordingKicker struct {
	kicked []string
}

func (k *recordingKicker) Kick(name string) {
	k.kicked = append(k.kicked, name)
}

// toggleTarget is a remote store that fails while down is set. It records
// the deletes it receives.
type toggleTarget struct {
	down    bool
	deleted []string
}

func (t *toggleTarget) Name() string { return "toggle" }

func (t *toggleTarget) UpsertTask(context.Context, *models.Task) error {
	if t.down {
		return errors.New("remote unavailable")
	}
	return nil
}

func (t *toggleTarget) UpsertProposal(context.Context, *models.TaskProposal) error {
	if t.down {
		return errors.New("remote unavailable")
	}
	return nil
}

func (t *toggleTarget) DeleteTask(_ context.Context, id string) error {
	if t.down {
		return errors.New("remote unavailable")
	}
	t.deleted = append(t.deleted, "task/"+id)
	return nil
}

func (t *toggleTarget) DeleteProposal(_ context.Context, id string) error {
	if t.down {
		return errors.New("remote unavailable")
	}
	t.deleted = append(t.deleted, "proposal/"+id)
	return nil
}

// flakyTaskRepo fails status and priority writes while failWrites is set.
type flakyTaskRepo struct {
	repository.TaskRepository
	failWrites bool
}

func (r *flakyTaskRepo) TransitionStatus(change repository.StatusChange) (*repository.TransitionResult, error) {
	if r.failWrites {
		return nil, errors.New("connection reset")
	}
	return r.TaskRepository.TransitionStatus(change)
}

func (r *flakyTaskRepo) UpdatePriority(taskID string, priority models.Priority) error {
	if r.failWrites {
		return errors.New("connection reset")
	}
	return r.TaskRepository.UpdatePriority(taskID, priority)
}

type serviceEnv struct {
	db        *gorm.DB
	tasks     *flakyTaskRepo
	boards    repository.BoardRepository
	users     repository.UserRepository
	proposals repository.ProposalRepository
	outbox    *localcache.Cache
	remote    *toggleTarget
	replayer  *syncer.Replayer
	publisher *recordingPublisher
	kicker    *recordingKicker
	undo      *cache.MemoryStore
	taskSvc   *TaskService
	now       time.Time
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	outbox, err := localcache.Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { outbox.Close() })

	env := &serviceEnv{
		db:        db,
		tasks:     &flakyTaskRepo{TaskRepository: repository.NewTaskRepository(db)},
		boards:    repository.NewBoardRepository(db),
		users:     repository.NewUserRepository(db),
		proposals: repository.NewProposalRepository(db),
		outbox:    outbox,
		remote:    &toggleTarget{},
		publisher: &recordingPublisher{},
		kicker:    &recordingKicker{},
		undo:      cache.NewMemoryStore(0),
		now:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	env.replayer = syncer.New(outbox, 50, repository.NewRemoteTaskStore(db), env.remote)

	env.taskSvc = NewTaskService(TaskServiceDeps{
		Tasks:      env.tasks,
		Boards:     env.boards,
		Proposals:  env.proposals,
		Outbox:     outbox,
		Flusher:    env.replayer,
		Kicker:     env.kicker,
		Publisher:  env.publisher,
		UndoStore:  env.undo,
		UndoWindow: 10 * time.Second,
	})
	env.taskSvc.now = func() time.Time { return env.now }
	return env
}

// boardFixture is a board with an admin, two workers and a reviewer.
type boardFixture struct {
	board    *models.Board
	admin    *models.User
	worker   *models.User
	worker2  *models.User
	reviewer *models.User
}

func (e *serviceEnv) newBoard(t *testing.T) *boardFixture {
	t.Helper()

	f := &boardFixture{
		admin:    testutil.CreateUser(t, e.db, "admin"),
		worker:   testutil.CreateUser(t, e.db, "worker"),
		worker2:  testutil.CreateUser(t, e.db, "worker2"),
		reviewer: testutil.CreateUser(t, e.db, "reviewer"),
	}
	f.board = testutil.CreateBoard(t, e.db, "Home", "ABC123", f.admin)
	testutil.AddMember(t, e.db, f.board, f.worker, models.RoleUser, 0)
	testutil.AddMember(t, e.db, f.board, f.worker2, models.RoleUser, 0)
	testutil.AddMember(t, e.db, f.board, f.reviewer, models.RoleUser, 0)
	return f
}

// reviewedTask creates a task through the service, assigned to worker and reviewed by reviewer.
func (e *serviceEnv) reviewedTask(t *testing.T, f *boardFixture) *models.Task {
	t.Helper()

	result, err := e.taskSvc.CreateTask(context.Background(), CreateTaskInput{
		BoardID:     f.board.ID,
		ActorID:     f.admin.ID,
		Title:       "Clean kitchen",
		AssigneeIDs: []string{f.worker.ID},
		ReviewerID:  f.reviewer.ID,
		Subtasks:    []string{"Dishes", "Floor"},
	})
	require.NoError(t, err)
	require.False(t, result.Queued)
	require.NotNil(t, result.Task)
	return result.Task
}

func mustCache(t *testing.T, env *serviceEnv, task *models.Task) *localcache.TaskRecord {
	t.Helper()

	rec := localcache.FromTask(task)
	require.NoError(t, env.outbox.Save(context.Background(), rec))
	return rec
}
