package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todo-api/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type GormTodoStore struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormTodoStore(db *gorm.DB, timeout time.Duration) *GormTodoStore {
	return &GormTodoStore{db: db, timeout: timeout}
}

func (s *GormTodoStore) ListAll(ctx context.Context) ([]models.Todo, error) {
	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	var todos []models.Todo
	if err := s.db.WithContext(ctx).Order("created_at asc").Order("id asc").Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	return todos, nil
}

func (s *GormTodoStore) FindByID(ctx context.Context, id string) (*models.Todo, error) {
	if _, err := uuid.FromString(id); err != nil {
		return nil, ErrTodoNotFound
	}

	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	var todo models.Todo
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&todo).Error; err != nil {
		return nil, translateGormError("find", err)
	}
	return &todo, nil
}

func (s *GormTodoStore) Create(ctx context.Context, input models.TodoInput) (*models.Todo, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate todo ID: %w", err)
	}

	todo := models.Todo{
		ID:          id.String(),
		Name:        input.Name,
		Description: input.Description,
		Status:      *input.Status,
	}

	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Create(&todo).Error; err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return &todo, nil
}

func (s *GormTodoStore) UpdateByID(ctx context.Context, id string, update models.TodoUpdate) (*models.Todo, error) {
	if _, err := uuid.FromString(id); err != nil {
		return nil, ErrTodoNotFound
	}

	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	var todo models.Todo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&todo).Error; err != nil {
			return err
		}
		if update.IsEmpty() {
			return nil
		}
		if err := tx.Model(&todo).Updates(update.Fields()).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&todo).Error
	})
	if err != nil {
		return nil, translateGormError("update", err)
	}
	return &todo, nil
}

func (s *GormTodoStore) DeleteByID(ctx context.Context, id string) (*models.Todo, error) {
	if _, err := uuid.FromString(id); err != nil {
		return nil, ErrTodoNotFound
	}

	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	var todo models.Todo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&todo).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Todo{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, translateGormError("delete", err)
	}
	return &todo, nil
}

func (s *GormTodoStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.Todo{}); err != nil {
		return fmt.Errorf("failed to migrate todos table: %w", err)
	}
	return nil
}

func (s *GormTodoStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translateGormError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTodoNotFound
	}
	return fmt.Errorf("failed to %s todo: %w", op, err)
}
