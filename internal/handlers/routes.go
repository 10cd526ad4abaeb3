package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wemake-app/wemake-api/internal/middleware"
	"github.com/wemake-app/wemake-api/internal/repository"
)

// Routes holds every handler plus what the auth middleware needs.
type Routes struct {
	Auth      *AuthHandler
	Boards    *BoardHandler
	Tasks     *TaskHandler
	Proposals *ProposalHandler
	Coupons   *CouponHandler
	Dashboard *DashboardHandler
	Sync      *SyncHandler
	Realtime  *RealtimeHandler

	Tokens    middleware.TokenParser
	BoardRepo repository.BoardRepository
	TaskRepo  repository.TaskRepository

	// VoiceLimiter throttles AI drafting per user. Nil disables the limit.
	VoiceLimiter *middleware.UserRateLimiter
}

// Register mounts the API on r.
func (rt *Routes) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "WeMake API is running",
		})
	})

	requireAuth := middleware.RequireAuth(rt.Tokens)
	boardAccess := middleware.RequireBoardAccess(rt.BoardRepo)
	boardAdmin := middleware.RequireBoardAdmin()
	taskAccess := middleware.RequireTaskAccess(rt.TaskRepo, rt.BoardRepo)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", rt.Auth.Signup)
			auth.POST("/login", rt.Auth.Login)
			auth.POST("/firebase", rt.Auth.FirebaseLogin)
			auth.POST("/logout", rt.Auth.Logout)
			auth.GET("/me", requireAuth, rt.Auth.GetCurrentUser)
		}

		me := api.Group("/me")
		me.Use(requireAuth)
		{
			me.GET("/preferences", rt.Auth.GetPreferences)
			me.PUT("/preferences", rt.Auth.UpdatePreferences)
		}

		api.GET("/users", requireAuth, rt.Auth.SearchUsers)

		// Board routes (protected)
		boards := api.Group("/boards")
		boards.Use(requireAuth)
		{
			boards.POST("", rt.Boards.CreateBoard)
			boards.GET("", rt.Boards.ListBoards)
			boards.POST("/join", rt.Boards.JoinBoard)
			boards.GET("/:id", boardAccess, rt.Boards.GetBoard)
			boards.PUT("/:id", boardAccess, boardAdmin, rt.Boards.UpdateBoard)
			boards.DELETE("/:id", boardAccess, boardAdmin, rt.Boards.DeleteBoard)
			boards.POST("/:id/regenerate-code", boardAccess, boardAdmin, rt.Boards.RegenerateInviteCode)
			boards.POST("/:id/members", boardAccess, boardAdmin, rt.Boards.AddMember)
			boards.DELETE("/:id/members/:user_id", boardAccess, boardAdmin, rt.Boards.RemoveMember)
			boards.PUT("/:id/members/:user_id/role", boardAccess, boardAdmin, rt.Boards.UpdateMemberRole)

			boards.GET("/:id/tasks", boardAccess, rt.Tasks.ListBoardTasks)
			boards.POST("/:id/tasks", boardAccess, rt.Tasks.CreateTask)
			voice := []gin.HandlerFunc{boardAccess}
			if rt.VoiceLimiter != nil {
				voice = append(voice, rt.VoiceLimiter.Middleware())
			}
			voice = append(voice, rt.Tasks.DraftFromVoice)
			boards.POST("/:id/tasks/voice", voice...)

			boards.GET("/:id/proposals", boardAccess, boardAdmin, rt.Proposals.ListProposals)
			boards.POST("/:id/proposals/:proposal_id/approve", boardAccess, boardAdmin, rt.Proposals.ApproveProposal)
			boards.POST("/:id/proposals/:proposal_id/deny", boardAccess, boardAdmin, rt.Proposals.DenyProposal)

			boards.GET("/:id/coupons", boardAccess, rt.Coupons.ListCoupons)
			boards.POST("/:id/coupons", boardAccess, boardAdmin, rt.Coupons.CreateCoupon)
			boards.PUT("/:id/coupons/:coupon_id", boardAccess, boardAdmin, rt.Coupons.UpdateCoupon)
			boards.DELETE("/:id/coupons/:coupon_id", boardAccess, boardAdmin, rt.Coupons.DeleteCoupon)
			boards.POST("/:id/coupons/:coupon_id/redeem", boardAccess, rt.Coupons.RedeemCoupon)
			boards.GET("/:id/redemptions", boardAccess, rt.Coupons.ListRedemptions)
			boards.POST("/:id/redemptions/:request_id/approve", boardAccess, boardAdmin, rt.Coupons.ApproveRedemption)
			boards.POST("/:id/redemptions/:request_id/deny", boardAccess, boardAdmin, rt.Coupons.DenyRedemption)

			boards.GET("/:id/dashboard", boardAccess, rt.Dashboard.GetDashboard)
			boards.GET("/:id/leaderboard", boardAccess, rt.Dashboard.GetLeaderboard)
			boards.GET("/:id/summary/:user_id", boardAccess, rt.Dashboard.GetUserSummary)

			if rt.Realtime != nil {
				boards.GET("/:id/live", boardAccess, rt.Realtime.Listen)
			}
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", rt.Tasks.ListTasks)
			tasks.GET("/:id", taskAccess, rt.Tasks.GetTask)
			tasks.PATCH("/:id", taskAccess, rt.Tasks.UpdateTask)
			tasks.DELETE("/:id", taskAccess, rt.Tasks.DeleteTask)
			tasks.POST("/:id/status", taskAccess, rt.Tasks.ChangeStatus)
			tasks.POST("/:id/advance", taskAccess, rt.Tasks.AdvanceTask)
			tasks.PUT("/:id/priority", taskAccess, rt.Tasks.SetPriority)
			tasks.POST("/:id/priority/cycle", taskAccess, rt.Tasks.CyclePriority)
			tasks.PUT("/:id/subtasks/:subtask_id", taskAccess, rt.Tasks.ToggleSubtask)
		}

		api.POST("/undo", requireAuth, rt.Tasks.Undo)

		if rt.Sync != nil {
			sync := api.Group("/sync")
			sync.Use(requireAuth)
			{
				sync.POST("/tasks", rt.Sync.SubmitOfflineTasks)
				sync.GET("/status", rt.Sync.GetStatus)
				sync.POST("/run", rt.Sync.RunSync)
			}
		}
	}
}
