package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 4, 13, 30, 0, 0, time.UTC)
}

func seed(t *testing.T, repo *memTasks, user primitive.ObjectID, title string, start time.Time) {
	t.Helper()
	task := &models.Task{Title: title, Start: start, End: start.Add(time.Hour), Kind: "task", UserID: user}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatal(err)
	}
}

func TestDayWindow(t *testing.T) {
	from, to := DayWindow(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	if !from.Equal(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", from)
	}
	if !to.Equal(time.Date(2025, 3, 4, 23, 59, 59, 999_000_000, time.UTC)) {
		t.Errorf("to = %v", to)
	}
}

// в сводку попадают только задачи, начинающиеся в этот день
func TestSummarizeDayWindow(t *testing.T) {
	repo := newMemTasks()
	user := primitive.NewObjectID()
	seed(t, repo, user, "prev", time.Date(2025, 3, 3, 23, 59, 59, 999_000_000, time.UTC))
	seed(t, repo, user, "first", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	seed(t, repo, user, "last", time.Date(2025, 3, 4, 23, 59, 59, 999_000_000, time.UTC))
	seed(t, repo, user, "next", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
	seed(t, repo, primitive.NewObjectID(), "foreign", time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC))

	var got []string
	sum := &stubSummarizer{fn: func(tasks []*models.Task) (string, error) {
		for _, task := range tasks {
			got = append(got, task.Title)
		}
		return "  Busy day ahead.\n", nil
	}}
	s := NewSummaryService(repo, sum, time.UTC, fixedNow)

	text, err := s.Summarize(context.Background(), user, "2025-03-04")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Busy day ahead." {
		t.Errorf("summary = %q, want trimmed text", text)
	}
	if strings.Join(got, ",") != "first,last" {
		t.Errorf("summarized tasks = %v", got)
	}
}

func TestSummarizeDefaultsToToday(t *testing.T) {
	repo := newMemTasks()
	user := primitive.NewObjectID()
	seed(t, repo, user, "today", time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC))
	sum := &stubSummarizer{fn: func(tasks []*models.Task) (string, error) { return "ok", nil }}
	s := NewSummaryService(repo, sum, time.UTC, fixedNow)

	if _, err := s.Summarize(context.Background(), user, ""); err != nil {
		t.Fatal(err)
	}
	if sum.calls != 1 {
		t.Errorf("summarizer calls = %d, want 1", sum.calls)
	}
}

func TestSummarizeNoTasksAtAll(t *testing.T) {
	sum := &stubSummarizer{fn: func([]*models.Task) (string, error) { return "", errors.New("must not be called") }}
	s := NewSummaryService(newMemTasks(), sum, time.UTC, fixedNow)

	text, err := s.Summarize(context.Background(), primitive.NewObjectID(), "2025-03-04")
	if err != nil {
		t.Fatal(err)
	}
	if text != "You have no tasks yet. Start your journey by creating your first quest!" {
		t.Errorf("summary = %q", text)
	}
	if sum.calls != 0 {
		t.Error("summarizer called for empty account")
	}
}

func TestSummarizeEmptyDay(t *testing.T) {
	repo := newMemTasks()
	user := primitive.NewObjectID()
	seed(t, repo, user, "elsewhere", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	sum := &stubSummarizer{fn: func([]*models.Task) (string, error) { return "", errors.New("must not be called") }}
	s := NewSummaryService(repo, sum, time.UTC, fixedNow)

	text, err := s.Summarize(context.Background(), user, "2025-03-04")
	if err != nil {
		t.Fatal(err)
	}
	want := "You have no tasks scheduled for Tuesday, March 4. Check your timeline to see your upcoming quests!"
	if text != want {
		t.Errorf("summary = %q, want %q", text, want)
	}
}

func TestSummarizeFailure(t *testing.T) {
	repo := newMemTasks()
	user := primitive.NewObjectID()
	seed(t, repo, user, "x", time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC))
	sum := &stubSummarizer{fn: func([]*models.Task) (string, error) { return "", errors.New("rate limited") }}
	s := NewSummaryService(repo, sum, time.UTC, fixedNow)

	_, err := s.Summarize(context.Background(), user, "2025-03-04")
	if !errors.Is(err, ErrSummaryGeneration) {
		t.Fatalf("want ErrSummaryGeneration, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("cause lost: %v", err)
	}
}

func TestSummarizeBadDate(t *testing.T) {
	s := NewSummaryService(newMemTasks(), &stubSummarizer{}, time.UTC, fixedNow)
	for _, d := range []string{"2025-13-01", "03/04/2025", "yesterday"} {
		_, err := s.Summarize(context.Background(), primitive.NewObjectID(), d)
		if _, ok := IsValidation(err); !ok {
			t.Errorf("%q: want validation error, got %v", d, err)
		}
	}
}
