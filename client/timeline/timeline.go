// Package timeline раскладывает задачи дня по вертикальной оси времени.
package timeline

import (
	"math"
	"sort"
	"time"

	"github.com/KhasarMunkh/SoloLeveler-public/client/api"
)

const (
	PxPerMinute = 1.2 // ~72px на час
	MinHeight   = 48.0
	// поля оси до первого и после последнего часа
	padding = 30 * time.Minute
	minSpan = 60
)

// Pill - положение задачи на оси
type Pill struct {
	Task   api.Task
	Top    float64
	Height float64
}

// HourLine - линия сетки часа
type HourLine struct {
	At    time.Time
	Top   float64
	Label string
}

type Layout struct {
	Start         time.Time
	End           time.Time
	TotalMinutes  int
	ContentHeight float64
	Hours         []HourLine
	Pills         []Pill
	ShowNow       bool
	NowTop        float64
}

// Compute строит раскладку. Без задач ось строится вокруг now.
func Compute(tasks []api.Task, now time.Time) Layout {
	sorted := make([]api.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	earliest, latest := now, now
	if len(sorted) > 0 {
		earliest = sorted[0].Start
		latest = sorted[0].End
		for _, t := range sorted[1:] {
			if t.End.After(latest) {
				latest = t.End
			}
		}
	}

	l := Layout{
		Start: FloorToHour(earliest).Add(-padding),
		End:   CeilToHour(latest).Add(padding),
	}
	l.TotalMinutes = max(minSpan, MinutesBetween(l.Start, l.End))
	l.ContentHeight = float64(l.TotalMinutes) * PxPerMinute

	yFor := func(t time.Time) float64 {
		return float64(MinutesBetween(l.Start, t)) * PxPerMinute
	}

	for h := FloorToHour(l.Start); !h.After(l.End); h = h.Add(time.Hour) {
		l.Hours = append(l.Hours, HourLine{At: h, Top: yFor(h), Label: FormatHour(h)})
	}

	for _, t := range sorted {
		l.Pills = append(l.Pills, Pill{
			Task:   t,
			Top:    clamp(yFor(t.Start), 0, l.ContentHeight-MinHeight),
			Height: math.Max(MinHeight, math.Max(0, float64(MinutesBetween(t.Start, t.End)))*PxPerMinute),
		})
	}

	if !now.Before(l.Start) && !now.After(l.End) {
		l.ShowNow = true
		l.NowTop = yFor(now)
	}
	return l
}

// MinutesBetween - округлённое число минут от a до b
func MinutesBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Minutes()))
}

func FloorToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func CeilToHour(t time.Time) time.Time {
	f := FloorToHour(t)
	if f.Equal(t) {
		return f
	}
	return f.Add(time.Hour)
}

// FormatHour - "3PM", "12AM"
func FormatHour(t time.Time) string {
	return t.Format("3PM")
}

func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}
