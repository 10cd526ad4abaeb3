package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/wemake-app/wemake-api/internal/cache"
	"github.com/wemake-app/wemake-api/internal/config"
	"github.com/wemake-app/wemake-api/internal/constants"
	"github.com/wemake-app/wemake-api/internal/database"
	"github.com/wemake-app/wemake-api/internal/firebase"
	"github.com/wemake-app/wemake-api/internal/handlers"
	"github.com/wemake-app/wemake-api/internal/localcache"
	"github.com/wemake-app/wemake-api/internal/middleware"
	"github.com/wemake-app/wemake-api/internal/realtime"
	"github.com/wemake-app/wemake-api/internal/repository"
	"github.com/wemake-app/wemake-api/internal/services"
	"github.com/wemake-app/wemake-api/internal/syncer"
	"github.com/wemake-app/wemake-api/internal/worker"
	"gorm.io/gorm"
)

// application holds every long-lived dependency of the API.
type application struct {
	cfg *config.Config

	db        *gorm.DB
	outbox    *localcache.Cache
	redis     *redis.Client
	undoStore cache.Store
	firebase  *firebase.Clients
	hub       *realtime.Hub
	replayer  *syncer.Replayer
	scheduler *worker.Scheduler

	users     repository.UserRepository
	boards    repository.BoardRepository
	tasks     repository.TaskRepository
	proposals repository.ProposalRepository

	authService      *services.AuthService
	boardService     *services.BoardService
	taskService      *services.TaskService
	proposalService  *services.ProposalService
	couponService    *services.CouponService
	dashboardService *services.DashboardService
	aiService        *services.AIService
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{cfg: cfg}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := database.Migrate(db); err != nil {
		app.close()
		return nil, err
	}

	app.outbox, err = localcache.Open(ctx, cfg.LocalCachePath)
	if err != nil {
		app.close()
		return nil, err
	}

	if addr := cfg.RedisAddr(); addr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.undoStore = cache.NewRedisStore(app.redis, "wemake:undo:")
		log.Println("Undo tokens stored in Redis")
	} else {
		app.undoStore = cache.NewMemoryStore(time.Minute)
		log.Println("Undo tokens stored in memory")
	}

	var (
		verifier services.IdentityVerifier
		notifier services.Notifier
	)
	remotes := []repository.RemoteTaskStore{repository.NewRemoteTaskStore(db)}
	if cfg.FirebaseCredentials != "" {
		app.firebase, err = firebase.Connect(ctx, cfg.FirebaseCredentials, cfg.FirestoreMirror)
		if err != nil {
			app.close()
			return nil, err
		}
		verifier = app.firebase.Verifier
		notifier = app.firebase.Notifier
		if app.firebase.Firestore != nil {
			remotes = append(remotes, firebase.NewFirestoreMirror(app.firebase.Firestore))
			log.Println("Firestore mirror enabled")
		}
	} else {
		log.Println("Firebase not configured, federated login and push notifications disabled")
	}

	app.hub = realtime.NewHub()
	app.replayer = syncer.New(app.outbox, cfg.SyncBatchSize, remotes...)
	app.scheduler = worker.NewScheduler()

	app.users = repository.NewUserRepository(db)
	app.boards = repository.NewBoardRepository(db)
	app.tasks = repository.NewTaskRepository(db)
	app.proposals = repository.NewProposalRepository(db)

	app.authService = services.NewAuthService(app.users, app.boards, verifier, cfg.JWTSecret)
	app.boardService = services.NewBoardService(app.boards, app.users, app.hub, notifier)
	app.taskService = services.NewTaskService(services.TaskServiceDeps{
		Tasks:      app.tasks,
		Boards:     app.boards,
		Proposals:  app.proposals,
		Outbox:     app.outbox,
		Flusher:    app.replayer,
		Kicker:     app.scheduler,
		Publisher:  app.hub,
		UndoStore:  app.undoStore,
		UndoWindow: cfg.UndoWindow,
	})
	app.proposalService = services.NewProposalService(app.proposals, app.tasks, app.outbox, app.hub)
	app.couponService = services.NewCouponService(
		repository.NewCouponRepository(db),
		repository.NewRedemptionRepository(db),
		app.hub,
	)
	app.dashboardService = services.NewDashboardService(app.tasks, app.boards)
	if cfg.OpenAIAPIKey != "" {
		app.aiService = services.NewAIService(services.AIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}, app.boards)
	}

	if err := app.scheduler.AddJob(constants.JobSyncTasks, cfg.SyncInterval, func(ctx context.Context) (interface{}, error) {
		return app.replayer.RunOnce(ctx)
	}); err != nil {
		app.close()
		return nil, err
	}
	if err := app.scheduler.AddJob(constants.JobOverduePenalties, cfg.PenaltyInterval, func(ctx context.Context) (interface{}, error) {
		return app.taskService.ApplyOverduePenalties(ctx)
	}); err != nil {
		app.close()
		return nil, err
	}

	return app, nil
}

// router builds the Gin engine with sessions, CORS and every route.
func (app *application) router() (*gin.Engine, error) {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     app.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store, err := app.sessionStore()
	if err != nil {
		return nil, err
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(constants.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   app.cfg.IsProduction(),
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	routes := &handlers.Routes{
		Auth:      handlers.NewAuthHandler(app.authService),
		Boards:    handlers.NewBoardHandler(app.boardService),
		Tasks:     handlers.NewTaskHandler(app.taskService, app.aiService),
		Proposals: handlers.NewProposalHandler(app.proposalService),
		Coupons:   handlers.NewCouponHandler(app.couponService),
		Dashboard: handlers.NewDashboardHandler(app.dashboardService),
		Sync:      handlers.NewSyncHandler(app.taskService, app.outbox, app.scheduler),
		Realtime:  handlers.NewRealtimeHandler(app.hub, app.cfg.CORSOrigins),

		Tokens:    app.authService,
		BoardRepo: app.boards,
		TaskRepo:  app.tasks,

		VoiceLimiter: middleware.NewUserRateLimiter(app.cfg.AIRatePerMin),
	}
	routes.Register(r)

	return r, nil
}

// sessionStore uses Redis when it is configured and signed cookies otherwise.
func (app *application) sessionStore() (sessions.Store, error) {
	addr := app.cfg.RedisAddr()
	if addr == "" {
		return cookie.NewStore([]byte(app.cfg.SessionSecret)), nil
	}

	store, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		addr,
		"", // username (empty for default user)
		app.cfg.RedisPassword,
		[]byte(app.cfg.SessionSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis session store: %w", err)
	}
	return store, nil
}

func (app *application) close() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	// The Redis undo store owns the shared client.
	if app.undoStore != nil {
		app.undoStore.Close()
	}
	if app.firebase != nil {
		app.firebase.Close()
	}
	if app.outbox != nil {
		app.outbox.Close()
	}
	if app.db != nil {
		if sqlDB, err := app.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
