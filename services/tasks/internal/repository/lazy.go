package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
)

// Tasks возвращает TaskRepository, который открывает хранилище при первом обращении
func (c *Connector) Tasks() TaskRepository { return lazyTasks{c} }

// Users возвращает UserRepository, который открывает хранилище при первом обращении
func (c *Connector) Users() UserRepository { return lazyUsers{c} }

// Ping открывает хранилище, если нужно, и проверяет соединение
func (c *Connector) Ping(ctx context.Context) error {
	s, err := c.Store(ctx)
	if err != nil {
		return err
	}
	return s.Ping(ctx)
}

type lazyTasks struct{ c *Connector }

func (l lazyTasks) repo(ctx context.Context) (TaskRepository, error) {
	s, err := l.c.Store(ctx)
	if err != nil {
		return nil, err
	}
	return s.Tasks(), nil
}

func (l lazyTasks) Create(ctx context.Context, task *models.Task) error {
	r, err := l.repo(ctx)
	if err != nil {
		return err
	}
	return r.Create(ctx, task)
}

func (l lazyTasks) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	r, err := l.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (l lazyTasks) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Task, error) {
	r, err := l.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.ListByUser(ctx, userID)
}

func (l lazyTasks) ListByUserStartingBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]*models.Task, error) {
	r, err := l.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.ListByUserStartingBetween(ctx, userID, from, to)
}

func (l lazyTasks) HasAny(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	r, err := l.repo(ctx)
	if err != nil {
		return false, err
	}
	return r.HasAny(ctx, userID)
}

func (l lazyTasks) Update(ctx context.Context, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	r, err := l.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.Update(ctx, id, patch)
}

func (l lazyTasks) ToggleComplete(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	r, err := l.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.ToggleComplete(ctx, id)
}

func (l lazyTasks) Delete(ctx context.Context, id primitive.ObjectID) error {
	r, err := l.repo(ctx)
	if err != nil {
		return err
	}
	return r.Delete(ctx, id)
}

type lazyUsers struct{ c *Connector }

func (l lazyUsers) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	s, err := l.c.Store(ctx)
	if err != nil {
		return nil, err
	}
	return s.Users().GetByExternalID(ctx, externalID)
}

func (l lazyUsers) Create(ctx context.Context, user *models.User) error {
	s, err := l.c.Store(ctx)
	if err != nil {
		return err
	}
	return s.Users().Create(ctx, user)
}
