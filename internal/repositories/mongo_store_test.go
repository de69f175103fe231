package repositories_test

import (
	"context"
	"testing"
	"time"

	"todo-api/backend/internal/models"
	"todo-api/backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const todoNamespace = "todo_api.todos"

func todoBSON(id primitive.ObjectID, name, description string, status bool) bson.D {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "description", Value: description},
		{Key: "status", Value: status},
		{Key: "createdAt", Value: now},
		{Key: "updatedAt", Value: now},
	}
}

func TestMongoTodoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("list all decodes documents", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		first := primitive.NewObjectID()
		second := primitive.NewObjectID()

		mt.AddMockResponses(mtest.CreateCursorResponse(0, todoNamespace, mtest.FirstBatch,
			todoBSON(first, "Buy milk", "2%", false),
			todoBSON(second, "Walk dog", "park", true),
		))

		todos, err := store.ListAll(ctx)

		require.NoError(mt, err)
		require.Len(mt, todos, 2)
		assert.Equal(mt, first.Hex(), todos[0].ID)
		assert.Equal(mt, "Buy milk", todos[0].Name)
		assert.False(mt, todos[0].Status)
		assert.Equal(mt, second.Hex(), todos[1].ID)
		assert.True(mt, todos[1].Status)
	})

	mt.Run("list all on empty collection", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, todoNamespace, mtest.FirstBatch))

		todos, err := store.ListAll(ctx)

		require.NoError(mt, err)
		assert.NotNil(mt, todos)
		assert.Empty(mt, todos)
	})

	mt.Run("list all surfaces storage errors", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		_, err := store.ListAll(ctx)

		assert.Error(mt, err)
		assert.NotErrorIs(mt, err, repositories.ErrTodoNotFound)
	})

	mt.Run("create assigns an object id", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		status := false
		todo, err := store.Create(ctx, models.TodoInput{Name: "Buy milk", Description: "2%", Status: &status})

		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(todo.ID)
		assert.NoError(mt, err)
		assert.Equal(mt, "Buy milk", todo.Name)
		assert.Equal(mt, "2%", todo.Description)
		assert.False(mt, todo.Status)
		assert.Equal(mt, todo.CreatedAt, todo.UpdatedAt)
	})

	mt.Run("create rejects missing status without a round trip", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)

		_, err := store.Create(ctx, models.TodoInput{Name: "a", Description: "b"})

		assert.ErrorIs(mt, err, repositories.ErrInvalidTodo)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, todoNamespace, mtest.FirstBatch,
			todoBSON(id, "a", "b", true),
		))

		todo, err := store.FindByID(ctx, id.Hex())

		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), todo.ID)
	})

	mt.Run("find by id not found", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, todoNamespace, mtest.FirstBatch))

		_, err := store.FindByID(ctx, primitive.NewObjectID().Hex())

		assert.ErrorIs(mt, err, repositories.ErrTodoNotFound)
	})

	mt.Run("malformed id is not found", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)

		_, err := store.FindByID(ctx, "nope")
		assert.ErrorIs(mt, err, repositories.ErrTodoNotFound)

		name := "x"
		_, err = store.UpdateByID(ctx, "nope", models.TodoUpdate{Name: &name})
		assert.ErrorIs(mt, err, repositories.ErrTodoNotFound)

		_, err = store.DeleteByID(ctx, "nope")
		assert.ErrorIs(mt, err, repositories.ErrTodoNotFound)
	})

	mt.Run("update returns the updated document", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: todoBSON(id, "Buy milk", "2%", true)},
		))

		status := true
		todo, err := store.UpdateByID(ctx, id.Hex(), models.TodoUpdate{Status: &status})

		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), todo.ID)
		assert.True(mt, todo.Status)
	})

	mt.Run("update not found", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		status := true
		_, err := store.UpdateByID(ctx, primitive.NewObjectID().Hex(), models.TodoUpdate{Status: &status})

		assert.ErrorIs(mt, err, repositories.ErrTodoNotFound)
	})

	mt.Run("delete returns the removed document", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: todoBSON(id, "gone", "soon", false)},
		))

		todo, err := store.DeleteByID(ctx, id.Hex())

		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), todo.ID)
		assert.Equal(mt, "gone", todo.Name)
	})

	mt.Run("delete not found", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := store.DeleteByID(ctx, primitive.NewObjectID().Hex())

		assert.ErrorIs(mt, err, repositories.ErrTodoNotFound)
	})

	mt.Run("migrate creates index", func(mt *mtest.T) {
		store := repositories.NewMongoTodoStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, store.Migrate(ctx))
	})
}
