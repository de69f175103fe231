package services

import (
	"context"
	"fmt"

	"todo-api/backend/internal/models"
	"todo-api/backend/internal/repositories"
)

// TodoResult is returned by every mutation: the affected record plus the
// whole collection as it stands after the change.
type TodoResult struct {
	Todo  *models.Todo  `json:"todo"`
	Todos []models.Todo `json:"todos"`
}

type TodoService interface {
	ListTodos(ctx context.Context) ([]models.Todo, error)
	GetTodo(ctx context.Context, id string) (*models.Todo, error)
	CreateTodo(ctx context.Context, input models.TodoInput) (*TodoResult, error)
	UpdateTodo(ctx context.Context, id string, update models.TodoUpdate) (*TodoResult, error)
	DeleteTodo(ctx context.Context, id string) (*TodoResult, error)
}

type TodoServiceImpl struct {
	store repositories.TodoStore
}

func NewTodoService(store repositories.TodoStore) *TodoServiceImpl {
	return &TodoServiceImpl{store: store}
}

func (s *TodoServiceImpl) ListTodos(ctx context.Context) ([]models.Todo, error) {
	return s.store.ListAll(ctx)
}

func (s *TodoServiceImpl) GetTodo(ctx context.Context, id string) (*models.Todo, error) {
	return s.store.FindByID(ctx, id)
}

func (s *TodoServiceImpl) CreateTodo(ctx context.Context, input models.TodoInput) (*TodoResult, error) {
	todo, err := s.store.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.withCollection(ctx, todo)
}

func (s *TodoServiceImpl) UpdateTodo(ctx context.Context, id string, update models.TodoUpdate) (*TodoResult, error) {
	todo, err := s.store.UpdateByID(ctx, id, update)
	if err != nil {
		return nil, err
	}
	return s.withCollection(ctx, todo)
}

func (s *TodoServiceImpl) DeleteTodo(ctx context.Context, id string) (*TodoResult, error) {
	todo, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withCollection(ctx, todo)
}

// withCollection re-reads the collection after a mutation. The mutation has
// already been persisted when this fails.
func (s *TodoServiceImpl) withCollection(ctx context.Context, todo *models.Todo) (*TodoResult, error) {
	todos, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload todos: %w", err)
	}
	return &TodoResult{Todo: todo, Todos: todos}, nil
}
