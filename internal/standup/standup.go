// Package standup turns the day's tasks into a stand-up report and a
// timelog entry.
package standup

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Status is a task status as named in the task database.
type Status string

// Known task statuses.
const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In progress"
	StatusDone       Status = "Done"
)

// Statuses lists the statuses a stand-up covers.
var Statuses = []Status{StatusToDo, StatusInProgress, StatusDone}

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q (want one of: to do, in progress, done)", s)
}

// Task is one entry of the task database.
type Task struct {
	Name   string
	Status Status
}

// Classified splits tasks into what was worked on today and what is next.
type Classified struct {
	Today    []string
	Tomorrow []string
}

// Classify puts done and in-progress tasks under today (in-progress ones
// prefixed with WIP) and everything else under tomorrow.
func Classify(tasks []Task) Classified {
	var c Classified
	for _, t := range tasks {
		switch t.Status {
		case StatusDone:
			c.Today = append(c.Today, t.Name)
		case StatusInProgress:
			c.Today = append(c.Today, "WIP "+t.Name)
		default:
			c.Tomorrow = append(c.Tomorrow, t.Name)
		}
	}
	return c
}

const reportTemplate = `Stand-up {{.Day}}
Today
{{bullets .Today}}
Tomorrow
{{bullets .Tomorrow}}
Blocker
{{bullets .Blockers}}`

var report = template.Must(template.New("standup").Funcs(template.FuncMap{
	"bullets": bullets,
}).Parse(reportTemplate))

type reportData struct {
	Day      string
	Today    []string
	Tomorrow []string
	Blockers []string
}

// Render produces the stand-up text for day.
func Render(day time.Time, c Classified) (string, error) {
	data := reportData{
		Day:      FormatDay(day),
		Today:    c.Today,
		Tomorrow: c.Tomorrow,
		Blockers: []string{"None"},
	}

	var buf bytes.Buffer
	if err := report.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering stand-up: %w", err)
	}
	return buf.String(), nil
}

// TimelogTasks returns today's tasks as a bullet list for the timelog.
func TimelogTasks(c Classified) string {
	return bullets(c.Today)
}

// FormatDay renders a date like "Mar 3rd".
func FormatDay(day time.Time) string {
	return fmt.Sprintf("%s %d%s", day.Format("Jan"), day.Day(), ordinal(day.Day()))
}

func ordinal(d int) string {
	switch d {
	case 1, 21, 31:
		return "st"
	case 2, 22:
		return "nd"
	case 3, 23:
		return "rd"
	}
	return "th"
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = " • " + item
	}
	return strings.Join(lines, "\n")
}
