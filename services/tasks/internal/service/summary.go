package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/repository"
)

const (
	DateLayout = "2006-01-02"

	MsgNoTasksYet = "You have no tasks yet. Start your journey by creating your first quest!"
	msgNoTasksDay = "You have no tasks scheduled for %s. Check your timeline to see your upcoming quests!"
	msgBadDate    = "Invalid date format, expected YYYY-MM-DD"
)

// исход каждого запроса сводки
var summariesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quest_summaries_total",
		Help: "Total number of day summaries by outcome",
	},
	[]string{"outcome"},
)

// Summarizer превращает задачи дня в текст
type Summarizer interface {
	Summarize(ctx context.Context, tasks []*models.Task) (string, error)
}

type SummaryService struct {
	repo       repository.TaskRepository
	summarizer Summarizer
	loc        *time.Location
	now        func() time.Time
}

func NewSummaryService(repo repository.TaskRepository, summarizer Summarizer, loc *time.Location, now func() time.Time) *SummaryService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &SummaryService{
		repo:       repo,
		summarizer: summarizer,
		loc:        loc,
		now:        now,
	}
}

// DayWindow - [00:00:00.000, 23:59:59.999] дня day в его локации
func DayWindow(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	to := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), day.Location())
	return from, to
}

// Day разбирает YYYY-MM-DD в полночь локации сервиса; пустая строка - сегодня
func (s *SummaryService) Day(date string) (time.Time, error) {
	if date == "" {
		now := s.now().In(s.loc)
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, s.loc), nil
	}
	day, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, validationError(msgBadDate)
	}
	return day, nil
}

// Summarize собирает сводку задач пользователя за день date
func (s *SummaryService) Summarize(ctx context.Context, userID primitive.ObjectID, date string) (string, error) {
	day, err := s.Day(date)
	if err != nil {
		return "", err
	}
	from, to := DayWindow(day)

	tasks, err := s.repo.ListByUserStartingBetween(ctx, userID, from, to)
	if err != nil {
		return "", fmt.Errorf("failed to list day tasks: %w", err)
	}

	if len(tasks) == 0 {
		hasAny, err := s.repo.HasAny(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("failed to count tasks: %w", err)
		}
		if !hasAny {
			summariesTotal.WithLabelValues("no_tasks").Inc()
			return MsgNoTasksYet, nil
		}
		summariesTotal.WithLabelValues("empty_day").Inc()
		return fmt.Sprintf(msgNoTasksDay, day.Format("Monday, January 2")), nil
	}

	summary, err := s.summarizer.Summarize(ctx, tasks)
	if err != nil {
		summariesTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: %w", ErrSummaryGeneration, err)
	}
	summariesTotal.WithLabelValues("generated").Inc()
	return strings.TrimSpace(summary), nil
}
