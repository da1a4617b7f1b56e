package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/KhasarMunkh/SoloLeveler-public/client/api"
	"github.com/KhasarMunkh/SoloLeveler-public/client/timeline"
)

var (
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hourStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(5).Align(lipgloss.Right)
	openStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	nowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// строка терминала - полчаса оси
const rowPx = 30 * timeline.PxPerMinute

func renderList(tasks []api.Task) string {
	if len(tasks) == 0 {
		return "No quests.\n"
	}
	var b strings.Builder
	for _, t := range tasks {
		mark, style := "[ ]", openStyle
		if t.Completed {
			mark, style = "[x]", doneStyle
		}
		fmt.Fprintf(&b, "%s %s-%s %s %s\n", mark,
			t.Start.Format("15:04"), t.End.Format("15:04"),
			style.Render(t.Title), idStyle.Render(t.ID))
	}
	return b.String()
}

// renderTimeline рисует раскладку построчно по полчаса
func renderTimeline(l timeline.Layout) string {
	rows := int(math.Ceil(l.ContentHeight / rowPx))
	labels := make([]string, rows+1)
	cells := make([][]string, rows+1)

	row := func(top float64) int {
		r := int(math.Floor(top / rowPx))
		return max(0, min(rows, r))
	}

	for _, h := range l.Hours {
		if h.Top >= 0 {
			labels[row(h.Top)] = h.Label
		}
	}
	for _, p := range l.Pills {
		style := openStyle
		if p.Task.Completed {
			style = doneStyle
		}
		span := max(1, int(math.Round(p.Height/rowPx)))
		r := row(p.Top)
		cells[r] = append(cells[r], style.Render(fmt.Sprintf("%s (%s-%s)", p.Task.Title,
			p.Task.Start.Format("15:04"), p.Task.End.Format("15:04"))))
		for i := 1; i < span && r+i <= rows; i++ {
			cells[r+i] = append(cells[r+i], style.Render("│"))
		}
	}
	if l.ShowNow {
		r := row(l.NowTop)
		cells[r] = append(cells[r], nowStyle.Render("● now"))
	}

	var b strings.Builder
	for i := 0; i <= rows; i++ {
		line := hourStyle.Render(labels[i]) + " │ " + strings.Join(cells[i], "  ")
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return b.String()
}
