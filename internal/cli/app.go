// Package cli wires dayflow's commands together.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/yourusername/dayflow/internal/backup"
	"github.com/yourusername/dayflow/internal/config"
	"github.com/yourusername/dayflow/internal/notion"
	"github.com/yourusername/dayflow/internal/preview"
	"github.com/yourusername/dayflow/internal/readinglist"
	"github.com/yourusername/dayflow/internal/sheets"
	"github.com/yourusername/dayflow/internal/slack"
	"github.com/yourusername/dayflow/internal/standup"
	"github.com/yourusername/dayflow/internal/storage"
)

// Exit codes returned by ExitCode.
const (
	ExitOK = iota
	ExitFailure
	ExitConfiguration
	ExitStoreUnavailable
	ExitMalformedRecord
	ExitNoSelectableRecord
	ExitPersistence
)

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrNotConfigured), errors.Is(err, config.ErrInvalid):
		return ExitConfiguration
	case errors.Is(err, storage.ErrMalformedRecord):
		return ExitMalformedRecord
	case errors.Is(err, storage.ErrPersistence):
		return ExitPersistence
	case errors.Is(err, storage.ErrStoreUnavailable), errors.Is(err, readinglist.ErrStoreBusy):
		return ExitStoreUnavailable
	case errors.Is(err, readinglist.ErrNoSelectableRecord):
		return ExitNoSelectableRecord
	}
	return ExitFailure
}

// Message renders err for the user, prefixed by what kind of failure it is.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch ExitCode(err) {
	case ExitConfiguration:
		return "configuration error: " + err.Error()
	case ExitStoreUnavailable:
		return "reading list store unavailable: " + err.Error()
	case ExitMalformedRecord:
		var mre *storage.MalformedRecordError
		if errors.As(err, &mre) {
			return fmt.Sprintf("reading list file is malformed at line %d: %v", mre.Line, mre.Err)
		}
		return "reading list file is malformed: " + err.Error()
	case ExitNoSelectableRecord:
		return "nothing to choose from: " + err.Error()
	case ExitPersistence:
		return "could not save reading list: " + err.Error()
	}
	return err.Error()
}

// ReadingListSource fetches the remote reading list.
type ReadingListSource interface {
	FetchReadingList(ctx context.Context, databaseID string) ([]readinglist.Fetched, error)
}

// TaskSource reads and creates tasks.
type TaskSource interface {
	FetchTasks(ctx context.Context, databaseID string, day time.Time) ([]standup.Task, error)
	AddTask(ctx context.Context, databaseID string, task notion.NewTask) (string, error)
}

// Poster delivers the stand-up.
type Poster interface {
	Post(ctx context.Context, channel, text string) (string, error)
}

// Timelog records the day's work.
type Timelog interface {
	Append(ctx context.Context, e sheets.Entry) error
}

// Previewer summarizes an article.
type Previewer interface {
	Fetch(ctx context.Context, url string) (preview.Preview, error)
}

// App holds the command dependencies. The zero value of each factory is
// replaced with the real implementation by New.
type App struct {
	Out io.Writer
	Err io.Writer

	Now     func() time.Time
	OpenURL func(url string) error

	NewNotion    func(cfg *config.Config, logger *slog.Logger) *notion.Client
	NewSource    func(cfg *config.Config, logger *slog.Logger) ReadingListSource
	NewTasks     func(cfg *config.Config, logger *slog.Logger) TaskSource
	NewPoster    func(cfg *config.Config, logger *slog.Logger) Poster
	NewTimelog   func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Timelog, error)
	NewPreviewer func(cfg *config.Config, logger *slog.Logger) Previewer
	NewBackup    func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (readinglist.Backup, error)
	Selector     *readinglist.Selector

	cfg    *config.Config
	logger *slog.Logger
}

// New creates an App writing to stdout and stderr.
func New() *App {
	a := &App{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Now:     time.Now,
		OpenURL: browser.OpenURL,
	}
	a.NewNotion = func(cfg *config.Config, logger *slog.Logger) *notion.Client {
		return notion.NewClient(notion.Options{
			Token:        cfg.Notion.APIKey,
			Version:      cfg.Notion.Version,
			ReadProperty: cfg.Notion.ReadProperty,
			URLProperty:  cfg.Notion.URLProperty,
			Timeout:      cfg.HTTPTimeout(),
			MaxRetries:   cfg.HTTP.MaxRetries,
			Logger:       logger,
		})
	}
	a.NewSource = func(cfg *config.Config, logger *slog.Logger) ReadingListSource {
		return a.NewNotion(cfg, logger)
	}
	a.NewTasks = func(cfg *config.Config, logger *slog.Logger) TaskSource {
		return a.NewNotion(cfg, logger)
	}
	a.NewPoster = func(cfg *config.Config, logger *slog.Logger) Poster {
		return slack.NewPoster(cfg.Slack.Token, "", logger)
	}
	a.NewTimelog = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Timelog, error) {
		return sheets.NewTimelog(ctx, cfg.Sheets.ServiceAccountFile, cfg.Sheets.SpreadsheetID, logger)
	}
	a.NewPreviewer = func(cfg *config.Config, logger *slog.Logger) Previewer {
		return preview.NewFetcherWithClient(&http.Client{Timeout: cfg.HTTPTimeout()}, logger)
	}
	a.NewBackup = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (readinglist.Backup, error) {
		return backup.NewS3Backup(ctx, backup.Config{
			Bucket:       cfg.Backup.S3Bucket,
			Prefix:       cfg.Backup.S3Prefix,
			Region:       cfg.Backup.S3Region,
			Profile:      cfg.Backup.S3Profile,
			UsePathStyle: cfg.Backup.UsePathStyle,
		}, logger)
	}
	return a
}

// Execute runs the root command with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.RootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// RootCommand builds the command tree.
func (a *App) RootCommand() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "dayflow",
		Short:         "Daily helpers for a Notion reading list and stand-ups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			a.cfg = cfg

			level, _ := config.ParseLogLevel(cfg.LogLevel)
			if verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(a.Err, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.giveMeArticleCommand(),
		a.readingListCommand(),
		a.generateStandUpCommand(),
		a.addTaskCommand(),
	)
	return root
}

// readingListService builds the store-backed service, attaching the S3
// backup when a bucket is configured.
func (a *App) readingListService(ctx context.Context) (*readinglist.Service, error) {
	if err := a.cfg.RequireReadingList(); err != nil {
		return nil, err
	}

	policy, err := readinglist.ParseMergePolicy(a.cfg.ReadingList.MergePolicy)
	if err != nil {
		return nil, err
	}

	selector := a.Selector
	if selector == nil {
		selector = readinglist.NewSelector(readinglist.WithFloor(a.cfg.ReadingList.WeightFloor))
	}

	opts := []readinglist.ServiceOption{
		readinglist.WithMergePolicy(policy),
		readinglist.WithLockTimeout(a.cfg.LockTimeout()),
		readinglist.WithLogger(a.logger),
	}
	if a.cfg.Backup.S3Bucket != "" {
		b, err := a.NewBackup(ctx, a.cfg, a.logger)
		if err != nil {
			a.logger.WarnContext(ctx, "Backup disabled", "error", err)
		} else {
			opts = append(opts, readinglist.WithBackup(b))
		}
	}

	store := storage.NewCSVStoreWithLogger(a.cfg.ReadingList.Path, a.logger)
	return readinglist.NewService(store, selector, opts...), nil
}

func (a *App) open(ctx context.Context, url string) {
	if err := a.OpenURL(url); err != nil {
		a.logger.WarnContext(ctx, "Could not open browser", "url", url, "error", err)
	}
}
