package repositories

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"todo-api/backend/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	ErrTodoNotFound = errors.New("todo not found")
	ErrInvalidTodo  = errors.New("invalid todo")
)

// ValidationError reports a required field that was missing on create.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s is required", ErrInvalidTodo, e.Field)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTodo
}

// TodoStore persists todos in a single collection keyed by a store-assigned id.
type TodoStore interface {
	ListAll(ctx context.Context) ([]models.Todo, error)
	FindByID(ctx context.Context, id string) (*models.Todo, error)
	Create(ctx context.Context, input models.TodoInput) (*models.Todo, error)
	UpdateByID(ctx context.Context, id string, update models.TodoUpdate) (*models.Todo, error)
	DeleteByID(ctx context.Context, id string) (*models.Todo, error)
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error
}

// inputValidator reads the same binding tags gin checks at the request
// boundary, so stores called directly enforce identical rules.
var inputValidator = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func validateInput(input models.TodoInput) error {
	err := inputValidator.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &ValidationError{Field: fieldErrs[0].Field()}
	}
	return fmt.Errorf("%w: %v", ErrInvalidTodo, err)
}

func queryContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
