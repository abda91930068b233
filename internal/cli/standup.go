package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/dayflow/internal/notion"
	"github.com/yourusername/dayflow/internal/sheets"
	"github.com/yourusername/dayflow/internal/standup"
	"github.com/yourusername/dayflow/internal/ui"
)

func (a *App) generateStandUpCommand() *cobra.Command {
	var (
		postSlack bool
		timelog   bool
		inOffice  string
		hours     float64
	)

	cmd := &cobra.Command{
		Use:   "generate-stand-up",
		Short: "Build today's stand-up from the task database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := a.cfg.RequireNotionTasks(); err != nil {
				return err
			}
			if postSlack {
				if err := a.cfg.RequireSlack(); err != nil {
					return err
				}
			}
			if timelog {
				if err := a.cfg.RequireSheets(); err != nil {
					return err
				}
			}

			now := a.Now()
			day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

			tasks, err := a.NewTasks(a.cfg, a.logger).FetchTasks(ctx, a.cfg.Notion.TaskDatabaseID, day)
			if err != nil {
				return fmt.Errorf("fetching tasks: %w", err)
			}

			classified := standup.Classify(tasks)
			report, err := standup.Render(day, classified)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.Out, report)

			if postSlack {
				if _, err := a.NewPoster(a.cfg, a.logger).Post(ctx, a.cfg.Slack.Channel, report); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(a.Out, ui.SuccessStyle.Render("Posted to "+a.cfg.Slack.Channel))
			}

			if timelog {
				tl, err := a.NewTimelog(ctx, a.cfg, a.logger)
				if err != nil {
					return err
				}
				err = tl.Append(ctx, sheets.Entry{
					Date:     day,
					InOffice: inOffice,
					Tasks:    standup.TimelogTasks(classified),
					Hours:    hours,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(a.Out, ui.SuccessStyle.Render("Timelog updated in "+sheets.SheetName(day)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&postSlack, "slack", "s", false, "Send the stand-up to Slack")
	cmd.Flags().BoolVarP(&timelog, "timelog", "t", false, "Add today's row to the timelog sheet")
	cmd.Flags().StringVarP(&inOffice, "in-office", "i", "WFH", "Value for the timelog In Office column")
	cmd.Flags().Float64VarP(&hours, "hours", "w", 8, "Value for the timelog hrs column")
	return cmd
}

func (a *App) addTaskCommand() *cobra.Command {
	var title, status, project string

	cmd := &cobra.Command{
		Use:   "add-task",
		Short: "Add a task to the task database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := standup.ParseStatus(status)
			if err != nil {
				return err
			}
			if err := a.cfg.RequireNotionTasks(); err != nil {
				return err
			}

			_, err = a.NewTasks(a.cfg, a.logger).AddTask(cmd.Context(), a.cfg.Notion.TaskDatabaseID, notion.NewTask{
				Title:   title,
				Status:  st,
				Project: project,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.Out, ui.SuccessStyle.Render("Added task: "+title))
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "task", "t", "", "Title of the task")
	cmd.Flags().StringVarP(&status, "status", "s", "done", "Status: to do, in progress or done")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project of the task")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
