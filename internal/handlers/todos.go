package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"todo-api/backend/internal/models"
	"todo-api/backend/internal/repositories"
	"todo-api/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type TodoHandler struct {
	todoService services.TodoService
}

func NewTodoHandler(todoService services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

func (h *TodoHandler) ListTodos(c *gin.Context) {
	todos, err := h.todoService.ListTodos(c.Request.Context())
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"todos": todos})
}

func (h *TodoHandler) GetTodo(c *gin.Context) {
	todo, err := h.todoService.GetTodo(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"todo": todo})
}

func (h *TodoHandler) CreateTodo(c *gin.Context) {
	var input models.TodoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid todo payload",
			"details": err.Error(),
		})
		return
	}

	result, err := h.todoService.CreateTodo(c.Request.Context(), input)
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Todo added",
		"todo":    result.Todo,
		"todos":   result.Todos,
	})
}

func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	var update models.TodoUpdate
	// an empty body is the same no-op as {}
	if err := c.ShouldBindJSON(&update); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid todo payload",
			"details": err.Error(),
		})
		return
	}

	result, err := h.todoService.UpdateTodo(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Todo updated",
		"todo":    result.Todo,
		"todos":   result.Todos,
	})
}

func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	result, err := h.todoService.DeleteTodo(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Todo deleted",
		"todo":    result.Todo,
		"todos":   result.Todos,
	})
}

func handleTodoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrTodoNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "todo not found",
		})
	case errors.Is(err, repositories.ErrInvalidTodo):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid todo payload",
			"details": err.Error(),
		})
	default:
		slog.Error("todo request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to process todo request",
		})
	}
}
