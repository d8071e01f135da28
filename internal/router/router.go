package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/auth"
	"github.com/tehokas/taskdeck/internal/handlers"
	"github.com/tehokas/taskdeck/internal/middleware"
	"github.com/tehokas/taskdeck/internal/services"
)

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Tokens         *auth.Manager
	Revocations    auth.RevocationStore
	Services       *services.Services
	Handler        *handlers.Handler
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.Timeout(opts.RequestTimeout))

	h := opts.Handler
	requireAuth := middleware.AuthMiddleware(opts.Tokens, opts.Revocations, opts.Services.Accounts)

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", h.LoginUser)
			authGroup.POST("/logout", requireAuth, h.LogoutUser)
			authGroup.GET("/me", requireAuth, h.Me)
		}

		secured := api.Group("", requireAuth)
		{
			secured.GET("/dashboard", h.Dashboard)
			secured.GET("/accessible-projects", h.AccessibleProjects)

			secured.GET("/active-project", h.GetActiveProject)
			secured.PUT("/active-project", h.SetActiveProject)
			secured.POST("/active-project", h.SetActiveProject)
			secured.GET("/active-project/board", h.ActiveBoard)

			secured.POST("/tasks", h.CreateTask)
			secured.PATCH("/tasks/:task_id", h.UpdateTask)
			secured.PUT("/tasks/:task_id/status", h.TransitionTask)
			secured.DELETE("/tasks/:task_id", h.DeleteTask)
		}

		projects := api.Group("/projects", requireAuth)
		{
			projects.GET("/:project_id/board", h.ProjectBoard)
			projects.GET("/:project_id/my-tasks", h.MyTasks)

			// Admin only, enforced by the services.
			projects.GET("", h.ListProjects)
			projects.POST("", h.CreateProject)
			projects.PATCH("/:project_id", h.UpdateProject)
			projects.DELETE("/:project_id", h.DeleteProject)
			projects.POST("/:project_id/finish", h.FinishProject)
			projects.GET("/:project_id/members", h.ProjectMembers)
			projects.POST("/:project_id/members", h.AddProjectMember)
			projects.DELETE("/:project_id/members/:user_id", h.RemoveProjectMember)
			projects.GET("/:project_id/available-users", h.AvailableUsers)
		}

		users := api.Group("/users", requireAuth)
		{
			users.GET("", h.ListUsers)
			users.POST("", h.CreateUser)
			users.PATCH("/:user_id", h.UpdateUser)
			users.DELETE("/:user_id", h.DeleteUser)
		}
	}

	return r
}
