// Package sheets appends daily timelog rows to a Google spreadsheet, one tab
// per month.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Header is the first row of every month tab.
var Header = []any{"Date", "In Office", "Task", "hrs"}

// Entry is one day in the timelog.
type Entry struct {
	Date     time.Time
	InOffice string
	Tasks    string
	Hours    float64
}

// Timelog writes entries to a spreadsheet.
type Timelog struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *slog.Logger
}

// NewTimelog authenticates with a service account key file.
func NewTimelog(ctx context.Context, serviceAccountFile, spreadsheetID string, logger *slog.Logger) (*Timelog, error) {
	data, err := os.ReadFile(serviceAccountFile) // #nosec G304 -- path comes from user config
	if err != nil {
		return nil, fmt.Errorf("reading service account file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account file: %w", err)
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return NewTimelogWithService(service, spreadsheetID, logger), nil
}

// NewTimelogWithService wraps an existing sheets service.
func NewTimelogWithService(service *sheets.Service, spreadsheetID string, logger *slog.Logger) *Timelog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timelog{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger.With("component", "sheets.timelog"),
	}
}

// SheetName returns the tab name for the month of day, e.g. "Jan(2024)".
func SheetName(day time.Time) string {
	return fmt.Sprintf("%s(%d)", day.Format("Jan"), day.Year())
}

// Append writes e to its month tab, creating the tab first if needed.
func (t *Timelog) Append(ctx context.Context, e Entry) error {
	name := SheetName(e.Date)

	if err := t.ensureSheet(ctx, name); err != nil {
		return err
	}

	row := &sheets.ValueRange{
		Values: [][]any{{e.Date.Format("01/02/2006"), e.InOffice, e.Tasks, e.Hours}},
	}
	_, err := t.service.Spreadsheets.Values.Append(t.spreadsheetID, a1(name, "A:D"), row).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending timelog row to %s: %w", name, err)
	}

	t.logger.InfoContext(ctx, "Timelog updated", "sheet", name, "hours", e.Hours)
	return nil
}

func (t *Timelog) ensureSheet(ctx context.Context, name string) error {
	spreadsheet, err := t.service.Spreadsheets.Get(t.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("reading spreadsheet: %w", err)
	}

	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return nil
		}
	}

	t.logger.InfoContext(ctx, "Creating month sheet", "sheet", name)

	_, err = t.service.Spreadsheets.BatchUpdate(t.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: name},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}

	_, err = t.service.Spreadsheets.Values.Update(t.spreadsheetID, a1(name, "A1:D1"), &sheets.ValueRange{
		Values: [][]any{Header},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing header to %s: %w", name, err)
	}
	return nil
}

// a1 quotes the sheet name for A1 notation.
func a1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}
