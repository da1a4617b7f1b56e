package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
)

var (
	// ErrNotFound - записи с таким id нет
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate - нарушено ограничение уникальности
	ErrDuplicate = errors.New("duplicate key")
)

// TaskRepository хранит задачи. createdAt/updatedAt проставляет сам репозиторий.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	// GetByID возвращает nil, nil если задачи нет
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	// ListByUser - задачи пользователя по возрастанию start
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Task, error)
	// ListByUserStartingBetween - задачи, у которых start в [from, to] включительно
	ListByUserStartingBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]*models.Task, error)
	HasAny(ctx context.Context, userID primitive.ObjectID) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error)
	// ToggleComplete инвертирует сохранённый completed одной атомарной операцией
	ToggleComplete(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserRepository хранит пользователей. clerkId и email уникальны.
type UserRepository interface {
	// GetByExternalID возвращает nil, nil если пользователя нет
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	// Create возвращает ErrDuplicate при нарушении уникальности
	Create(ctx context.Context, user *models.User) error
}

// Store - соединение с хранилищем и его репозитории
type Store interface {
	Tasks() TaskRepository
	Users() UserRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// storeTime приводит время к точности хранилища (миллисекунды, UTC)
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
