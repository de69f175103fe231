package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"todo-api/backend/internal/cache"
	"todo-api/backend/internal/models"
)

const allTodosKey = "todos:all"

func todoKey(id string) string {
	return fmt.Sprintf("todo:%s", id)
}

type CachedTodoService struct {
	todoService TodoService
	cache       cache.Cache
	listTTL     time.Duration
	itemTTL     time.Duration

	// generation is bumped by every invalidation. A read-through fill only
	// lands if the generation it started under is still current.
	mu         sync.Mutex
	generation uint64
}

func NewCachedTodoService(todoService TodoService, cacheInstance cache.Cache, listTTL, itemTTL time.Duration) *CachedTodoService {
	if listTTL <= 0 {
		listTTL = 10 * time.Minute
	}
	if itemTTL <= 0 {
		itemTTL = 30 * time.Minute
	}

	return &CachedTodoService{
		todoService: todoService,
		cache:       cacheInstance,
		listTTL:     listTTL,
		itemTTL:     itemTTL,
	}
}

func (s *CachedTodoService) ListTodos(ctx context.Context) ([]models.Todo, error) {
	gen := s.currentGeneration()

	var cachedTodos []models.Todo
	err := s.cache.Get(ctx, allTodosKey, &cachedTodos)
	if err == nil {
		return cachedTodos, nil
	}
	logCacheError("get", allTodosKey, err)

	todos, err := s.todoService.ListTodos(ctx)
	if err != nil {
		return nil, err
	}

	s.fill(ctx, gen, allTodosKey, todos, s.listTTL)
	return todos, nil
}

func (s *CachedTodoService) GetTodo(ctx context.Context, id string) (*models.Todo, error) {
	key := todoKey(id)
	gen := s.currentGeneration()

	var cachedTodo models.Todo
	err := s.cache.Get(ctx, key, &cachedTodo)
	if err == nil {
		return &cachedTodo, nil
	}
	logCacheError("get", key, err)

	todo, err := s.todoService.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}

	s.fill(ctx, gen, key, todo, s.itemTTL)
	return todo, nil
}

func (s *CachedTodoService) CreateTodo(ctx context.Context, input models.TodoInput) (*TodoResult, error) {
	// invalidated on both sides of the write
	s.invalidate(ctx)

	result, err := s.todoService.CreateTodo(ctx, input)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return result, nil
}

func (s *CachedTodoService) UpdateTodo(ctx context.Context, id string, update models.TodoUpdate) (*TodoResult, error) {
	s.invalidate(ctx, todoKey(id))

	result, err := s.todoService.UpdateTodo(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, todoKey(id))
	return result, nil
}

func (s *CachedTodoService) DeleteTodo(ctx context.Context, id string) (*TodoResult, error) {
	s.invalidate(ctx, todoKey(id))

	result, err := s.todoService.DeleteTodo(ctx, id)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, todoKey(id))
	return result, nil
}

// WarmCache loads the collection into the cache. Called once at startup.
func (s *CachedTodoService) WarmCache(ctx context.Context) error {
	gen := s.currentGeneration()

	todos, err := s.todoService.ListTodos(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm todo cache: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil
	}
	if err := s.cache.Set(ctx, allTodosKey, todos, s.listTTL); err != nil {
		return fmt.Errorf("failed to warm todo cache: %w", err)
	}

	slog.Info("todo cache warmed", "todos", len(todos))
	return nil
}

func (s *CachedTodoService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}

func (s *CachedTodoService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *CachedTodoService) invalidate(ctx context.Context, keys ...string) {
	keys = append(keys, allTodosKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("todo cache invalidation failed", "keys", keys, "error", err)
	}
}

// fill caches a value read from the store unless a write has invalidated
// the cache since gen was taken.
func (s *CachedTodoService) fill(ctx context.Context, gen uint64, key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		slog.Debug("skipping todo cache fill after concurrent write", "key", key)
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		logCacheError("set", key, err)
	}
}

func logCacheError(op, key string, err error) {
	if errors.Is(err, cache.ErrCacheMiss) {
		return
	}
	slog.Warn("todo cache unavailable, using store", "op", op, "key", key, "error", err)
}
