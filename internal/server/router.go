package server

import (
	"log/slog"

	"todo-api/backend/internal/config"
	"todo-api/backend/internal/handlers"
	"todo-api/backend/internal/middleware"
	"todo-api/backend/internal/monitoring"
	"todo-api/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type Dependencies struct {
	TodoService services.TodoService
	Monitor     *monitoring.Registry
	Logger      *slog.Logger
	CORS        config.CORSConfig
}

func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Monitor == nil {
		deps.Monitor = monitoring.NewRegistry()
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(deps.CORS))
	router.Use(deps.Monitor.MetricsMiddleware())

	router.GET("/health", deps.Monitor.HealthHandler())
	router.GET("/health/ready", deps.Monitor.ReadinessHandler())
	router.GET("/health/live", deps.Monitor.LivenessHandler())
	router.GET("/metrics", deps.Monitor.MetricsHandler())

	todoHandler := handlers.NewTodoHandler(deps.TodoService)
	todos := router.Group("/todos")
	{
		todos.GET("", todoHandler.ListTodos)
		todos.POST("", todoHandler.CreateTodo)
		todos.GET("/:id", todoHandler.GetTodo)
		todos.PUT("/:id", todoHandler.UpdateTodo)
		todos.DELETE("/:id", todoHandler.DeleteTodo)
	}

	return router
}
