// Package api - клиент API квестов и преобразования формы задачи.
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultKind  = "task"
	tempIDPrefix = "temp-"
	// формат, в котором клиент отправляет время на сервер
	wireTime = "2006-01-02T15:04:05.000Z07:00"
)

// Task - задача на стороне клиента. Repeat и Alerts живут только здесь
// и на сервер не отправляются.
type Task struct {
	ID        string
	Title     string
	Start     time.Time
	End       time.Time
	Kind      string
	Notes     string
	Repeat    string
	Alerts    []string
	Completed bool
}

// BackendTask - задача в том виде, в каком её отдаёт сервер
type BackendTask struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Kind      string    `json:"kind"`
	Notes     *string   `json:"notes,omitempty"`
	Completed bool      `json:"completed"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Payload - тело POST /quests и PATCH /quests/{id}
type Payload struct {
	Title string  `json:"title"`
	Start string  `json:"start"`
	End   string  `json:"end"`
	Kind  string  `json:"kind"`
	Notes *string `json:"notes,omitempty"`
}

func FromBackend(b BackendTask) Task {
	t := Task{
		ID:        b.ID,
		Title:     b.Title,
		Start:     b.Start,
		End:       b.End,
		Kind:      b.Kind,
		Completed: b.Completed,
	}
	if t.Kind == "" {
		t.Kind = DefaultKind
	}
	if b.Notes != nil {
		t.Notes = *b.Notes
	}
	return t
}

func ToBackend(t Task) Payload {
	p := Payload{
		Title: t.Title,
		Start: t.Start.UTC().Format(wireTime),
		End:   t.End.UTC().Format(wireTime),
		Kind:  t.Kind,
	}
	if p.Kind == "" {
		p.Kind = DefaultKind
	}
	// пустые заметки отправляются как "", иначе PATCH их не очистит
	notes := t.Notes
	p.Notes = &notes
	return p
}

// NewTempID - id задачи, ещё не сохранённой на сервере
func NewTempID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s%d-%s", tempIDPrefix, now.UnixMilli(), suffix)
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// SameDay сравнивает календарные дни в локации a
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NewEmptyTask - черновик "New Quest" длиной в час: сегодня со следующего часа,
// в другие дни с 09:00
func NewEmptyTask(forDate, now time.Time) Task {
	var start time.Time
	if SameDay(now, forDate) {
		start = time.Date(now.Year(), now.Month(), now.Day(), now.Hour()+1, 0, 0, 0, now.Location())
	} else {
		d := forDate.In(now.Location())
		start = time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, now.Location())
	}
	return Task{
		ID:    NewTempID(now),
		Title: "New Quest",
		Start: start,
		End:   start.Add(time.Hour),
		Kind:  DefaultKind,
	}
}

// TasksOn - задачи, которые начинаются в календарный день day
func TasksOn(tasks []Task, day time.Time) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if SameDay(day, t.Start) {
			out = append(out, t)
		}
	}
	return out
}

// TodaysTasks - задачи, начинающиеся сегодня
func TodaysTasks(tasks []Task, now time.Time) []Task {
	return TasksOn(tasks, now)
}
