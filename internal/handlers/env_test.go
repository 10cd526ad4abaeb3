package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wemake-app/wemake-api/internal/cache"
	"github.com/wemake-app/wemake-api/internal/constants"
	"github.com/wemake-app/wemake-api/internal/localcache"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/repository"
	"github.com/wemake-app/wemake-api/internal/services"
	"github.com/wemake-app/wemake-api/internal/syncer"
	"github.com/wemake-app/wemake-api/internal/testutil"
	"github.com/wemake-app/wemake-api/internal/worker"
	"gorm.io/gorm"
)

// handlerEnv wires the real services over a SQLite database and serves the
// full route table.
type handlerEnv struct {
	db          *gorm.DB
	authService *services.AuthService
	taskService *services.TaskService
	outbox      *localcache.Cache
	scheduler   *worker.Scheduler
	router      *gin.Engine
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	outbox, err := localcache.Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { outbox.Close() })

	users := repository.NewUserRepository(db)
	boards := repository.NewBoardRepository(db)
	tasks := repository.NewTaskRepository(db)
	proposals := repository.NewProposalRepository(db)
	replayer := syncer.New(outbox, 50, repository.NewRemoteTaskStore(db))

	scheduler := worker.NewScheduler()
	require.NoError(t, scheduler.AddJob(constants.JobSyncTasks, time.Minute, func(ctx context.Context) (interface{}, error) {
		return replayer.RunOnce(ctx)
	}))

	publisher := services.NopPublisher{}
	authService := services.NewAuthService(users, boards, &stubVerifier{}, "test-secret")
	taskService := services.NewTaskService(services.TaskServiceDeps{
		Tasks:      tasks,
		Boards:     boards,
		Proposals:  proposals,
		Outbox:     outbox,
		Flusher:    replayer,
		Kicker:     scheduler,
		Publisher:  publisher,
		UndoStore:  cache.NewMemoryStore(0),
		UndoWindow: 10 * time.Second,
	})

	routes := &Routes{
		Auth:      NewAuthHandler(authService),
		Boards:    NewBoardHandler(services.NewBoardService(boards, users, publisher, nil)),
		Tasks:     NewTaskHandler(taskService, nil),
		Proposals: NewProposalHandler(services.NewProposalService(proposals, tasks, outbox, publisher)),
		Coupons: NewCouponHandler(services.NewCouponService(
			repository.NewCouponRepository(db), repository.NewRedemptionRepository(db), publisher)),
		Dashboard: NewDashboardHandler(services.NewDashboardService(tasks, boards)),
		Sync:      NewSyncHandler(taskService, outbox, scheduler),
		Tokens:    authService,
		BoardRepo: boards,
		TaskRepo:  tasks,
	}

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	routes.Register(r)

	return &handlerEnv{
		db:          db,
		authService: authService,
		taskService: taskService,
		outbox:      outbox,
		scheduler:   scheduler,
		router:      r,
	}
}

// do sends a JSON request as user (anonymous when user is nil).
func (e *handlerEnv) do(t *testing.T, method, path string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		token, _, err := e.authService.IssueToken(user.ID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type stubVerifier struct{}

func (stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*services.FederatedIdentity, error) {
	if idToken != "good-token" {
		return nil, services.ErrInvalidIDToken
	}
	return &services.FederatedIdentity{
		UID:   "firebase-uid-1",
		Email: "federated@example.com",
		Name:  "Fede",
	}, nil
}

// boardSetup is a board with an admin, a worker and a reviewer.
type boardSetup struct {
	board    *models.Board
	admin    *models.User
	worker   *models.User
	reviewer *models.User
}

func (e *handlerEnv) newBoard(t *testing.T) *boardSetup {
	t.Helper()

	s := &boardSetup{
		admin:    testutil.CreateUser(t, e.db, "admin"),
		worker:   testutil.CreateUser(t, e.db, "worker"),
		reviewer: testutil.CreateUser(t, e.db, "reviewer"),
	}
	s.board = testutil.CreateBoard(t, e.db, "Home", "ABC123", s.admin)
	testutil.AddMember(t, e.db, s.board, s.worker, models.RoleUser, 0)
	testutil.AddMember(t, e.db, s.board, s.reviewer, models.RoleUser, 0)
	return s
}
