package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/motionlab/capserver/internal/config"
	"github.com/motionlab/capserver/internal/handler"
	"github.com/motionlab/capserver/internal/middleware"
	"github.com/motionlab/capserver/internal/response"
	"github.com/motionlab/capserver/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	Trial   *handler.TrialHandler
	Result  *handler.ResultHandler
	Subject *handler.SubjectHandler
	Archive *handler.ArchiveHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth (public, rate limited) ────────────────────────────────
	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	auth := router.Group("/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. API (JWT) ──────────────────────────────────────────────────
	// Every route runs behind authentication; per-action visibility is the
	// policy engine's job inside each handler.
	api := router.Group("/v1")
	api.Use(middleware.RequireAuth(authService))
	{
		sessions := api.Group("/sessions")
		{
			sessions.GET("", handlers.Session.List)
			sessions.POST("", handlers.Session.Create)
			sessions.GET("/new", handlers.Session.New)
			sessions.GET("/search", handlers.Session.Search)
			sessions.GET("/valid", handlers.Session.ListValid)
			sessions.POST("/valid", handlers.Session.ConfirmValid)
			sessions.GET("/get_session_statuses", handlers.Session.SessionStatuses)

			sessions.GET("/:id", handlers.Session.Retrieve)
			sessions.PUT("/:id", handlers.Session.Update)
			sessions.PATCH("/:id", handlers.Session.PartialUpdate)
			sessions.DELETE("/:id", handlers.Session.Delete)
			sessions.POST("/:id/rename", handlers.Session.Rename)
			sessions.POST("/:id/trash", handlers.Session.Trash)
			sessions.POST("/:id/restore", handlers.Session.Restore)
			sessions.POST("/:id/permanent_remove", handlers.Session.PermanentRemove)

			sessions.GET("/:id/status", handlers.Session.Status)
			sessions.GET("/:id/get_session_permission", handlers.Session.Permission)
			sessions.GET("/:id/get_session_settings", handlers.Session.Settings)
			sessions.POST("/:id/set_metadata", handlers.Session.SetMetadata)
			sessions.POST("/:id/set_subject", handlers.Session.SetSubject)
			sessions.POST("/:id/set_session_status", handlers.Session.SetSessionStatus)
			sessions.POST("/:id/new_subject", handlers.Session.NewSubject)

			sessions.GET("/:id/record", handlers.Session.Record)
			sessions.POST("/:id/stop", handlers.Session.Stop)
			sessions.POST("/:id/cancel_trial", handlers.Session.CancelTrial)

			sessions.GET("/:id/calibration", handlers.Session.GetCalibration)
			sessions.POST("/:id/calibration", handlers.Session.PostCalibration)
			sessions.GET("/:id/get_n_calibrated_cameras", handlers.Session.CalibratedCameras)
			sessions.GET("/:id/calibration_img", middleware.NoStore(), handlers.Session.CalibrationImage)
			sessions.GET("/:id/neutral_img", middleware.NoStore(), handlers.Session.NeutralImage)
			sessions.GET("/:id/get_qr", middleware.NoStore(), handlers.Session.GetQR)

			sessions.GET("/:id/download", middleware.NoStore(), handlers.Session.Download)
			sessions.POST("/:id/async_download", handlers.Session.AsyncDownload)
		}

		trials := api.Group("/trials")
		{
			trials.GET("", handlers.Trial.List)
			trials.GET("/dequeue", handlers.Trial.Dequeue)
			trials.GET("/get_trials_with_status", handlers.Trial.TrialsWithStatus)

			trials.GET("/:id", handlers.Trial.Retrieve)
			trials.PUT("/:id", handlers.Trial.Update)
			trials.PATCH("/:id", handlers.Trial.PartialUpdate)
			trials.DELETE("/:id", handlers.Trial.Delete)
			trials.POST("/:id/rename", handlers.Trial.Rename)
			trials.POST("/:id/modifyTags", handlers.Trial.ModifyTags)
			trials.POST("/:id/trash", handlers.Trial.Trash)
			trials.POST("/:id/restore", handlers.Trial.Restore)
			trials.POST("/:id/permanent_remove", handlers.Trial.PermanentRemove)
		}

		results := api.Group("/results")
		{
			results.GET("", handlers.Result.List)
			results.POST("", handlers.Result.Create)
			results.GET("/:id", handlers.Result.Retrieve)
			results.PUT("/:id", handlers.Result.Update)
			results.PATCH("/:id", handlers.Result.PartialUpdate)
			results.DELETE("/:id", handlers.Result.Delete)
		}

		subjects := api.Group("/subjects")
		{
			subjects.GET("", handlers.Subject.List)
			subjects.POST("", handlers.Subject.Create)
			subjects.GET("/:id", handlers.Subject.Retrieve)
			subjects.PUT("/:id", handlers.Subject.Update)
			subjects.PATCH("/:id", handlers.Subject.PartialUpdate)
			subjects.DELETE("/:id", handlers.Subject.Delete)
			subjects.POST("/:id/trash", handlers.Subject.Trash)
			subjects.POST("/:id/restore", handlers.Subject.Restore)
			subjects.POST("/:id/permanent_remove", handlers.Subject.PermanentRemove)
			subjects.GET("/:id/download", middleware.NoStore(), handlers.Subject.Download)
			subjects.POST("/:id/async_download", handlers.Subject.AsyncDownload)
		}

		api.GET("/archives/tasks/:task_id", handlers.Archive.GetTask)
	}

	// ─── 3. WebSocket (WS auth via query token) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStatusStream)
	}

	return router
}
