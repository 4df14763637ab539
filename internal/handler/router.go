package handler

import (
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/middleware"
	"github.com/cleberrangel/basecamp-dashboard/internal/websocket"
	"github.com/gin-gonic/gin"
)

// Routes agrupa os handlers montados pelo router
type Routes struct {
	Auth     *AuthHandler
	Projects *ProjectHandler
	Todos    *TodoHandler
	Logs     *LogHandler
	Uploads  *UploadHandler
	Health   *HealthHandler
	Hub      *websocket.Hub

	Metrics    *metrics.Metrics
	TokenHash  string
	CORSOrigin string
}

// NewRouter monta o engine gin com middlewares e rotas
func NewRouter(rt Routes) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID()) // Request ID + logging estruturado
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(rt.CORSOrigin))
	r.Use(middleware.Metrics(rt.Metrics))
	r.Use(middleware.Audit())

	// Públicas
	r.GET("/health/live", rt.Health.LivenessCheck)
	r.GET("/health/ready", rt.Health.ReadinessCheck)
	r.GET("/metrics", rt.Health.GetMetrics)

	r.GET("/auth", rt.Auth.Authorize)
	r.GET("/auth/callback", rt.Auth.Callback)

	r.GET("/ws", rt.Hub.ServeWS)

	// Dados do Basecamp, protegidos quando API_TOKEN_HASH está definido
	api := r.Group("/")
	api.Use(middleware.BearerAuth(middleware.AuthConfig{
		TokenHash: rt.TokenHash,
	}))
	{
		api.POST("/projects", rt.Projects.Table)
		api.GET("/projects/all", rt.Projects.All)
		api.GET("/projects/export", rt.Projects.Export)
		api.GET("/chart/:projectIds", rt.Projects.Chart)
		api.GET("/people/:projectId", rt.Projects.People)

		api.POST("/buckets/:projectId/todos/:todoId", rt.Todos.Update)
		api.PUT("/buckets/:projectId/todos/:todoId", rt.Todos.Trash)
		api.POST("/handdate/:projectId/todos/:todoId", rt.Todos.HandoverDate)
		api.POST("/completeTodo/:projectId/:todoId", rt.Todos.Complete)
		api.DELETE("/uncompleteTodo/:projectId/:todoId", rt.Todos.Uncomplete)

		api.GET("/logs", rt.Logs.List)
		api.GET("/logs/export", rt.Logs.Export)

		api.POST("/vaults/:projectId/:vaultId/uploads", rt.Uploads.UploadFile)
	}

	return r
}
