package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/KhasarMunkh/SoloLeveler-public/client/api"
	"github.com/KhasarMunkh/SoloLeveler-public/client/timeline"
)

const dateLayout = "2006-01-02"

type app struct {
	client *api.Client
	board  *api.Board
	out    io.Writer
	now    func() time.Time
}

func (a *app) init(cfg *cliConfig, out io.Writer) {
	a.client = api.NewClient(cfg.Server, cfg.Token, cfg.Timeout)
	if a.now == nil {
		a.now = time.Now
	}
	a.board = api.NewBoard(a.client, a.now)
	a.out = out
}

// day разбирает --date; пустое значение - сегодня
func (a *app) day(date string) (time.Time, error) {
	if date == "" {
		return a.now(), nil
	}
	d, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return d, nil
}

func listCmd(a *app) *cobra.Command {
	var date string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quests for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := a.day(date)
			if err != nil {
				return err
			}
			if err := a.board.Load(cmd.Context()); err != nil {
				return err
			}
			tasks := a.board.Tasks()
			if !all {
				tasks = api.TasksOn(tasks, day)
			}
			fmt.Fprint(a.out, renderList(tasks))
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day (YYYY-MM-DD), default today")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "show every quest")
	return cmd
}

func addCmd(a *app) *cobra.Command {
	var start, date, kind, notes string
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a quest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := a.day(date)
			if err != nil {
				return err
			}
			draft := api.NewEmptyTask(day, a.now())
			draft.Title = args[0]
			if start != "" {
				hm, err := time.Parse("15:04", start)
				if err != nil {
					return fmt.Errorf("invalid start %q, expected HH:MM", start)
				}
				draft.Start = time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, day.Location())
			}
			draft.End = draft.Start.Add(duration)
			if kind != "" {
				draft.Kind = kind
			}
			draft.Notes = notes

			saved, err := a.board.Save(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Quest created: %s %s\n", idStyle.Render(saved.ID), saved.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&start, "start", "s", "", "start time HH:MM (default next hour, 09:00 on other days)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "day (YYYY-MM-DD), default today")
	cmd.Flags().DurationVar(&duration, "for", time.Hour, "duration")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "kind tag")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "notes")
	return cmd
}

func doneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Toggle quest completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.board.Load(cmd.Context()); err != nil {
				return err
			}
			task, err := a.board.ToggleComplete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if task.Completed {
				fmt.Fprintf(a.out, "Quest completed! %s\n", task.Title)
			} else {
				fmt.Fprintf(a.out, "Quest reopened: %s\n", task.Title)
			}
			return nil
		},
	}
}

func removeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a quest",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteQuest(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Quest deleted!")
			return nil
		},
	}
}

func summaryCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:     "summary",
		Aliases: []string{"wakie-wakie"},
		Short:   "Ask for the day summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				if _, err := a.day(date); err != nil {
					return err
				}
			}
			text, err := a.client.Summary(cmd.Context(), date)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, summaryStyle.Render(text))
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day (YYYY-MM-DD), default today")
	return cmd
}

func timelineCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Draw the day timeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := a.day(date)
			if err != nil {
				return err
			}
			if err := a.board.Load(cmd.Context()); err != nil {
				return err
			}
			layout := timeline.Compute(a.board.On(day), a.now())
			fmt.Fprint(a.out, renderTimeline(layout))
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day (YYYY-MM-DD), default today")
	return cmd
}

func meCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			u, err := a.client.Me(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %s <%s>\n", idStyle.Render(u.ID), u.ClerkID, u.Email)
			return nil
		},
	}
}
