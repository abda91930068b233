package cli

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/dayflow/internal/readinglist"
	"github.com/yourusername/dayflow/internal/storage"
	"github.com/yourusername/dayflow/internal/ui"
)

func (a *App) giveMeArticleCommand() *cobra.Command {
	var noOpen, showPreview bool

	cmd := &cobra.Command{
		Use:   "give-me-article",
		Short: "Sync the reading list and pick an article to read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, err := a.readingListService(ctx)
			if err != nil {
				return err
			}
			if _, err := a.sync(ctx, svc); err != nil {
				return err
			}
			return a.chooseAndShow(ctx, svc, noOpen, showPreview)
		},
	}
	cmd.Flags().BoolVar(&noOpen, "no-open", false, "Print the article without opening a browser")
	cmd.Flags().BoolVar(&showPreview, "preview", false, "Show the article title and excerpt")
	return cmd
}

func (a *App) readingListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reading-list",
		Short: "Manage the local reading list",
	}
	cmd.AddCommand(
		a.readingListSyncCommand(),
		a.readingListNextCommand(),
		a.readingListInitCommand(),
		a.readingListShowCommand(),
	)
	return cmd
}

func (a *App) readingListSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the reading list from Notion and merge it into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, err := a.readingListService(ctx)
			if err != nil {
				return err
			}
			stats, err := a.sync(ctx, svc)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(a.Out, ui.SuccessStyle.Render(fmt.Sprintf(
				"Synced: %d inserted, %d updated, %d total", stats.Inserted, stats.Updated, stats.Total)))
			return nil
		},
	}
}

func (a *App) readingListNextCommand() *cobra.Command {
	var noOpen, showPreview bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Pick an article from the local store without syncing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, err := a.readingListService(ctx)
			if err != nil {
				return err
			}
			return a.chooseAndShow(ctx, svc, noOpen, showPreview)
		},
	}
	cmd.Flags().BoolVar(&noOpen, "no-open", false, "Print the article without opening a browser")
	cmd.Flags().BoolVar(&showPreview, "preview", false, "Show the article title and excerpt")
	return cmd
}

func (a *App) readingListInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty reading list store",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.cfg.RequireReadingList(); err != nil {
				return err
			}

			store := storage.NewCSVStoreWithLogger(a.cfg.ReadingList.Path, a.logger)
			created, err := store.Init()
			if err != nil {
				return err
			}
			if created {
				_, _ = fmt.Fprintln(a.Out, ui.SuccessStyle.Render("Created "+store.Path()))
			} else {
				_, _ = fmt.Fprintln(a.Out, ui.InfoStyle.Render(store.Path()+" already exists"))
			}
			return nil
		},
	}
}

func (a *App) readingListShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List stored articles by weight with their chance of being picked next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.readingListService(cmd.Context())
			if err != nil {
				return err
			}
			records, err := svc.Records(cmd.Context())
			if err != nil {
				return err
			}

			order := make([]int, len(records))
			for i := range order {
				order[i] = i
			}
			slices.SortStableFunc(order, func(x, y int) int {
				if c := cmp.Compare(records[y].Weight, records[x].Weight); c != 0 {
					return c
				}
				return strings.Compare(records[x].ID, records[y].ID)
			})

			_, _ = fmt.Fprintln(a.Out, ui.TitleStyle.Render(fmt.Sprintf("%d articles", len(records))))
			tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "WEIGHT\tCHANCE\tREAD\tURL")
			for _, i := range order {
				r := records[i]
				_, _ = fmt.Fprintf(tw, "%d\t%.1f%%\t%t\t%s\n", r.Weight, svc.Probability(records, i)*100, r.Read, r.URL)
			}
			return tw.Flush()
		},
	}
}

func (a *App) sync(ctx context.Context, svc *readinglist.Service) (readinglist.MergeStats, error) {
	if err := a.cfg.RequireNotionReadingList(); err != nil {
		return readinglist.MergeStats{}, err
	}

	batch, err := a.NewSource(a.cfg, a.logger).FetchReadingList(ctx, a.cfg.Notion.ReadingListDatabaseID)
	if err != nil {
		return readinglist.MergeStats{}, fmt.Errorf("fetching reading list: %w", err)
	}
	return svc.IngestAndRefresh(ctx, batch)
}

func (a *App) chooseAndShow(ctx context.Context, svc *readinglist.Service, noOpen, showPreview bool) error {
	record, err := svc.ChooseNext(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(a.Out, ui.Article(record.URL))

	if showPreview {
		p, err := a.NewPreviewer(a.cfg, a.logger).Fetch(ctx, record.URL)
		if err != nil {
			a.logger.WarnContext(ctx, "Could not load preview", "url", record.URL, "error", err)
		} else {
			_, _ = fmt.Fprintln(a.Out, ui.BoxStyle.Render(renderPreview(p.Title, p.SiteName, p.Excerpt)))
		}
	}

	if !noOpen {
		a.open(ctx, record.URL)
	}
	return nil
}

func renderPreview(title, site, excerpt string) string {
	var lines []string
	if title != "" {
		lines = append(lines, ui.TitleStyle.Render(title))
	}
	if site != "" {
		lines = append(lines, ui.InfoStyle.Render(site))
	}
	if excerpt != "" {
		lines = append(lines, excerpt)
	}
	return strings.Join(lines, "\n")
}
