package api

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// QuestAPI - часть Client, нужная доске
type QuestAPI interface {
	ListQuests(ctx context.Context) ([]BackendTask, error)
	CreateQuest(ctx context.Context, p Payload) (TaskMessage, error)
	UpdateQuest(ctx context.Context, id string, p Payload) (TaskMessage, error)
	ToggleComplete(ctx context.Context, id string) (TaskMessage, error)
	DeleteQuest(ctx context.Context, id string) error
}

// Board - локальная копия задач пользователя с оптимистичными изменениями
type Board struct {
	api QuestAPI
	now func() time.Time

	mu    sync.Mutex
	tasks []Task
}

func NewBoard(api QuestAPI, now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{api: api, now: now}
}

// Load заменяет локальные задачи списком с сервера
func (b *Board) Load(ctx context.Context) error {
	remote, err := b.api.ListQuests(ctx)
	if err != nil {
		return err
	}
	tasks := make([]Task, 0, len(remote))
	for _, r := range remote {
		tasks = append(tasks, FromBackend(r))
	}

	b.mu.Lock()
	b.tasks = tasks
	b.mu.Unlock()
	return nil
}

// Tasks - копия задач, отсортированная по start
func (b *Board) Tasks() []Task {
	b.mu.Lock()
	out := make([]Task, len(b.tasks))
	copy(out, b.tasks)
	b.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (b *Board) On(day time.Time) []Task {
	return TasksOn(b.Tasks(), day)
}

// Add кладёт черновик на доску без обращения к серверу
func (b *Board) Add(t Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, t)
}

// Save создаёт задачу с временным id или обновляет сохранённую
func (b *Board) Save(ctx context.Context, t Task) (Task, error) {
	var (
		resp TaskMessage
		err  error
	)
	if IsTempID(t.ID) {
		resp, err = b.api.CreateQuest(ctx, ToBackend(t))
	} else {
		resp, err = b.api.UpdateQuest(ctx, t.ID, ToBackend(t))
	}
	if err != nil {
		return Task{}, err
	}

	saved := FromBackend(resp.Task)
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(t.ID); i >= 0 {
		b.tasks[i] = saved
	} else {
		b.tasks = append(b.tasks, saved)
	}
	return saved, nil
}

// Delete удаляет задачу; черновик удаляется только локально
func (b *Board) Delete(ctx context.Context, id string) error {
	if !IsTempID(id) {
		if err := b.api.DeleteQuest(ctx, id); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
	}
	return nil
}

// ToggleComplete сразу переключает локальную копию, затем вызывает сервер.
// При успехе берётся задача из ответа, при ошибке локальное переключение откатывается.
func (b *Board) ToggleComplete(ctx context.Context, id string) (Task, error) {
	b.mu.Lock()
	i := b.index(id)
	if i < 0 {
		b.mu.Unlock()
		return Task{}, fmt.Errorf("task %s is not on the board", id)
	}
	b.tasks[i].Completed = !b.tasks[i].Completed
	local := b.tasks[i]
	b.mu.Unlock()

	if IsTempID(id) {
		return local, nil
	}

	resp, err := b.api.ToggleComplete(ctx, id)

	b.mu.Lock()
	defer b.mu.Unlock()
	i = b.index(id)
	if err != nil {
		if i >= 0 {
			b.tasks[i].Completed = !b.tasks[i].Completed
		}
		return Task{}, err
	}
	updated := FromBackend(resp.Task)
	if i >= 0 {
		b.tasks[i] = updated
	}
	return updated, nil
}

func (b *Board) index(id string) int {
	for i, t := range b.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
