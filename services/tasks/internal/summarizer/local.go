package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
)

// Local собирает сводку без внешних вызовов: число задач и чек-лист,
// незавершённые задачи первыми. Для разработки и окружений без ключа API.
type Local struct {
	loc *time.Location
}

func NewLocal(loc *time.Location) *Local {
	if loc == nil {
		loc = time.Local
	}
	return &Local{loc: loc}
}

func (l *Local) Summarize(_ context.Context, tasks []*models.Task) (string, error) {
	var open, done []*models.Task
	for _, t := range tasks {
		if t.Completed {
			done = append(done, t)
		} else {
			open = append(open, t)
		}
	}

	var b strings.Builder
	switch {
	case len(open) == 0:
		fmt.Fprintf(&b, "All %d %s done for today. Nice work!\n", len(done), plural(len(done), "quest", "quests"))
	default:
		fmt.Fprintf(&b, "You have %d %s left today", len(open), plural(len(open), "quest", "quests"))
		if len(done) > 0 {
			fmt.Fprintf(&b, " and %d already done", len(done))
		}
		b.WriteString(".\n")
	}

	for _, t := range open {
		fmt.Fprintf(&b, "[ ] %s - %s\n", formatClock(t.Start, l.loc), t.Title)
	}
	for _, t := range done {
		fmt.Fprintf(&b, "[x] %s - %s\n", formatClock(t.Start, l.loc), t.Title)
	}
	return strings.TrimSpace(b.String()), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
