package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
)

const (
	tasksCollection = "tasks"
	usersCollection = "users"
)

// MongoStore - хранилище поверх MongoDB
type MongoStore struct {
	client *mongo.Client
	tasks  *MongoTaskRepository
	users  *MongoUserRepository
}

// NewMongoStore подключается, проверяет соединение и создаёт индексы
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client: client,
		tasks:  &MongoTaskRepository{coll: db.Collection(tasksCollection)},
		users:  &MongoUserRepository{coll: db.Collection(usersCollection)},
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "clerkId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	_, err = s.tasks.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "start", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create task indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Tasks() TaskRepository { return s.tasks }
func (s *MongoStore) Users() UserRepository { return s.users }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// MongoTaskRepository - коллекция tasks
type MongoTaskRepository struct {
	coll *mongo.Collection
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	now := storeTime(time.Now())
	task.Start = storeTime(task.Start)
	task.End = storeTime(task.End)
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, task)
	return err
}

func (r *MongoTaskRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	task := &models.Task{}
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *MongoTaskRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Task, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *MongoTaskRepository) ListByUserStartingBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]*models.Task, error) {
	return r.find(ctx, bson.M{
		"userId": userID,
		"start":  bson.M{"$gte": from, "$lte": to},
	})
}

func (r *MongoTaskRepository) find(ctx context.Context, filter bson.M) ([]*models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	tasks := make([]*models.Task, 0)
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *MongoTaskRepository) HasAny(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	set := bson.D{}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Start != nil {
		set = append(set, bson.E{Key: "start", Value: storeTime(*patch.Start)})
	}
	if patch.End != nil {
		set = append(set, bson.E{Key: "end", Value: storeTime(*patch.End)})
	}
	if patch.Kind != nil {
		set = append(set, bson.E{Key: "kind", Value: *patch.Kind})
	}
	if patch.Notes != nil {
		set = append(set, bson.E{Key: "notes", Value: *patch.Notes})
	}
	if patch.Completed != nil {
		set = append(set, bson.E{Key: "completed", Value: *patch.Completed})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: storeTime(time.Now())})

	return r.findOneAndUpdate(ctx, id, bson.D{{Key: "$set", Value: set}})
}

func (r *MongoTaskRepository) ToggleComplete(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	// pipeline-обновление читает текущее значение внутри одной операции
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "completed", Value: bson.D{{Key: "$not", Value: bson.A{"$completed"}}}},
			{Key: "updatedAt", Value: storeTime(time.Now())},
		}}},
	}
	return r.findOneAndUpdate(ctx, id, update)
}

func (r *MongoTaskRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update any) (*models.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	task := &models.Task{}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoUserRepository - коллекция users
type MongoUserRepository struct {
	coll *mongo.Collection
}

func (r *MongoUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	user := &models.User{}
	err := r.coll.FindOne(ctx, bson.M{"clerkId": externalID}).Decode(user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := storeTime(time.Now())
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
