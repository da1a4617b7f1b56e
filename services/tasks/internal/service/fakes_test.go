package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/repository"
)

// memTasks - in-memory TaskRepository для тестов сервиса
type memTasks struct {
	mu       sync.Mutex
	tasks    map[primitive.ObjectID]models.Task
	getCalls int

	// необязательные подмены для инъекции ошибок
	createFn func(task *models.Task) error
	deleteFn func(id primitive.ObjectID) error
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: make(map[primitive.ObjectID]models.Task)}
}

func (m *memTasks) Create(_ context.Context, task *models.Task) error {
	if m.createFn != nil {
		if err := m.createFn(task); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.CreatedAt, task.UpdatedAt = now, now
	m.tasks[task.ID] = *task
	return nil
}

func (m *memTasks) GetByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memTasks) ListByUser(_ context.Context, userID primitive.ObjectID) ([]*models.Task, error) {
	return m.filter(func(t models.Task) bool { return t.UserID == userID }), nil
}

func (m *memTasks) ListByUserStartingBetween(_ context.Context, userID primitive.ObjectID, from, to time.Time) ([]*models.Task, error) {
	return m.filter(func(t models.Task) bool {
		return t.UserID == userID && !t.Start.Before(from) && !t.Start.After(to)
	}), nil
}

func (m *memTasks) HasAny(_ context.Context, userID primitive.ObjectID) (bool, error) {
	return len(m.filter(func(t models.Task) bool { return t.UserID == userID })) > 0, nil
}

func (m *memTasks) Update(_ context.Context, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t = patch.Apply(t)
	t.UpdatedAt = time.Now().UTC()
	m.tasks[id] = t
	return &t, nil
}

func (m *memTasks) ToggleComplete(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.Completed = !t.Completed
	m.tasks[id] = t
	return &t, nil
}

func (m *memTasks) Delete(_ context.Context, id primitive.ObjectID) error {
	if m.deleteFn != nil {
		if err := m.deleteFn(id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTasks) filter(keep func(models.Task) bool) []*models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Task{}
	for _, t := range m.tasks {
		if keep(t) {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// memUsers - in-memory UserRepository
type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User

	// beforeCreate вызывается перед вставкой; так тест эмулирует гонку
	beforeCreate func()
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]models.User)}
}

func (m *memUsers) GetByExternalID(_ context.Context, externalID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[externalID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	if m.beforeCreate != nil {
		m.beforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ClerkID == user.ClerkID || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.ClerkID] = *user
	return nil
}

// stubSummarizer - Summarizer на функции
type stubSummarizer struct {
	fn    func(tasks []*models.Task) (string, error)
	calls int
}

func (s *stubSummarizer) Summarize(_ context.Context, tasks []*models.Task) (string, error) {
	s.calls++
	return s.fn(tasks)
}
