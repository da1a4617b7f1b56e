package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/repository"
)

const (
	MsgCompleted   = "Task marked as completed"
	MsgIncomplete  = "Task marked as incomplete"
	msgTitle       = "Title required"
	msgTimes       = "Start and end times required"
	msgInvalidTime = "Invalid start or end time"
)

// форматы времени без зоны трактуются в локации сервиса
var instantLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseInstant разбирает момент времени: RFC 3339 или локальное время без зоны
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// CreateInput - поля новой задачи в том виде, в каком их прислал клиент
type CreateInput struct {
	Title     string
	Start     string
	End       string
	Kind      *string
	Notes     *string
	Completed *bool
}

// UpdateInput - частичное обновление; nil означает "не менять"
type UpdateInput struct {
	Title     *string
	Start     *string
	End       *string
	Kind      *string
	Notes     *string
	Completed *bool
}

type TaskService struct {
	repo  repository.TaskRepository
	guard Guard
	loc   *time.Location
}

func NewTaskService(repo repository.TaskRepository, guard Guard, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{
		repo:  repo,
		guard: guard,
		loc:   loc,
	}
}

func (s *TaskService) List(ctx context.Context, userID primitive.ObjectID) ([]*models.Task, error) {
	tasks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, userID primitive.ObjectID, in CreateInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, validationError(msgTitle)
	}
	if in.Start == "" || in.End == "" {
		return nil, validationError(msgTimes)
	}
	start, err := ParseInstant(in.Start, s.loc)
	if err != nil {
		return nil, validationError(msgInvalidTime)
	}
	end, err := ParseInstant(in.End, s.loc)
	if err != nil {
		return nil, validationError(msgInvalidTime)
	}

	task := &models.Task{
		Title:  in.Title,
		Start:  start,
		End:    end,
		Kind:   models.DefaultKind,
		Notes:  in.Notes,
		UserID: userID,
	}
	if in.Kind != nil && *in.Kind != "" {
		task.Kind = *in.Kind
	}
	if in.Completed != nil {
		task.Completed = *in.Completed
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// Get возвращает задачу, если она принадлежит пользователю
func (s *TaskService) Get(ctx context.Context, rawID string, userID primitive.ObjectID) (*models.Task, error) {
	return s.loadOwned(ctx, rawID, userID)
}

func (s *TaskService) Update(ctx context.Context, rawID string, userID primitive.ObjectID, in UpdateInput) (*models.Task, error) {
	existing, err := s.loadOwned(ctx, rawID, userID)
	if err != nil {
		return nil, err
	}

	patch, err := s.buildPatch(in)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return existing, nil
	}

	task, err := s.repo.Update(ctx, existing.ID, patch)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// ToggleComplete инвертирует сохранённый completed и возвращает задачу
// вместе с сообщением по новому значению
func (s *TaskService) ToggleComplete(ctx context.Context, rawID string, userID primitive.ObjectID) (*models.Task, string, error) {
	existing, err := s.loadOwned(ctx, rawID, userID)
	if err != nil {
		return nil, "", err
	}

	task, err := s.repo.ToggleComplete(ctx, existing.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to toggle task: %w", err)
	}

	msg := MsgIncomplete
	if task.Completed {
		msg = MsgCompleted
	}
	return task, msg, nil
}

// Delete удаляет задачу и возвращает её id
func (s *TaskService) Delete(ctx context.Context, rawID string, userID primitive.ObjectID) (string, error) {
	existing, err := s.loadOwned(ctx, rawID, userID)
	if err != nil {
		return "", err
	}

	err = s.repo.Delete(ctx, existing.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete task: %w", err)
	}
	return existing.ID.Hex(), nil
}

// loadOwned: формат id, затем существование, затем владелец
func (s *TaskService) loadOwned(ctx context.Context, rawID string, userID primitive.ObjectID) (*models.Task, error) {
	id, ok := models.ParseID(rawID)
	if !ok {
		return nil, ErrInvalidID
	}

	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}
	if err := s.guard.Authorize(task, userID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) buildPatch(in UpdateInput) (models.TaskPatch, error) {
	patch := models.TaskPatch{
		Kind:      in.Kind,
		Notes:     in.Notes,
		Completed: in.Completed,
	}
	if in.Title != nil {
		if *in.Title == "" {
			return patch, validationError(msgTitle)
		}
		patch.Title = in.Title
	}
	if in.Start != nil {
		t, err := ParseInstant(*in.Start, s.loc)
		if err != nil {
			return patch, validationError(msgInvalidTime)
		}
		patch.Start = &t
	}
	if in.End != nil {
		t, err := ParseInstant(*in.End, s.loc)
		if err != nil {
			return patch, validationError(msgInvalidTime)
		}
		patch.End = &t
	}
	return patch, nil
}
