package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todo-api/backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type todoDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Status      bool               `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d todoDocument) toModel() models.Todo {
	return models.Todo{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type MongoTodoStore struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoTodoStore(collection *mongo.Collection, timeout time.Duration) *MongoTodoStore {
	return &MongoTodoStore{collection: collection, timeout: timeout}
}

func (s *MongoTodoStore) ListAll(ctx context.Context) ([]models.Todo, error) {
	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []todoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode todos: %w", err)
	}

	todos := make([]models.Todo, 0, len(docs))
	for _, doc := range docs {
		todos = append(todos, doc.toModel())
	}
	return todos, nil
}

func (s *MongoTodoStore) FindByID(ctx context.Context, id string) (*models.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTodoNotFound
	}

	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	var doc todoDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translateMongoError("find", err)
	}
	todo := doc.toModel()
	return &todo, nil
}

func (s *MongoTodoStore) Create(ctx context.Context, input models.TodoInput) (*models.Todo, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	// BSON dates carry millisecond precision.
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := todoDocument{
		ID:          primitive.NewObjectID(),
		Name:        input.Name,
		Description: input.Description,
		Status:      *input.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	todo := doc.toModel()
	return &todo, nil
}

func (s *MongoTodoStore) UpdateByID(ctx context.Context, id string, update models.TodoUpdate) (*models.Todo, error) {
	if update.IsEmpty() {
		return s.FindByID(ctx, id)
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTodoNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	for field, value := range update.Fields() {
		set[field] = value
	}

	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc todoDocument
	err = s.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return nil, translateMongoError("update", err)
	}
	todo := doc.toModel()
	return &todo, nil
}

func (s *MongoTodoStore) DeleteByID(ctx context.Context, id string) (*models.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTodoNotFound
	}

	ctx, cancel := queryContext(ctx, s.timeout)
	defer cancel()

	var doc todoDocument
	if err := s.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translateMongoError("delete", err)
	}
	todo := doc.toModel()
	return &todo, nil
}

func (s *MongoTodoStore) Migrate(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("createdAt_1"),
	}
	if _, err := s.collection.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create todos index: %w", err)
	}
	return nil
}

func (s *MongoTodoStore) Health(ctx context.Context) error {
	return s.collection.Database().Client().Ping(ctx, readpref.Primary())
}

func translateMongoError(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrTodoNotFound
	}
	return fmt.Errorf("failed to %s todo: %w", op, err)
}
