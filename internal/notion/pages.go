package notion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/dayflow/internal/readinglist"
	"github.com/yourusername/dayflow/internal/standup"
)

const (
	pageSize = 100

	taskNameProperty    = "Name"
	taskStatusProperty  = "Status"
	taskProjectProperty = "Project"
	lastEditedProperty  = "Last edited time"
)

type richText struct {
	PlainText string       `json:"plain_text,omitempty"`
	Text      *textContent `json:"text,omitempty"`
}

type textContent struct {
	Content string `json:"content"`
}

type option struct {
	Name string `json:"name"`
}

// property covers the handful of property types dayflow reads or writes.
type property struct {
	Type     string     `json:"type,omitempty"`
	Checkbox *bool      `json:"checkbox,omitempty"`
	URL      *string    `json:"url,omitempty"`
	Title    []richText `json:"title,omitempty"`
	Status   *option    `json:"status,omitempty"`
	Select   *option    `json:"select,omitempty"`
}

type page struct {
	ID         string              `json:"id"`
	URL        string              `json:"url"`
	Properties map[string]property `json:"properties"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// queryAll follows next_cursor until the database query is exhausted.
func (c *Client) queryAll(ctx context.Context, databaseID string, query map[string]any) ([]page, error) {
	path := fmt.Sprintf("/databases/%s/query", databaseID)

	var pages []page
	cursor := ""
	for {
		body := map[string]any{"page_size": pageSize}
		for k, v := range query {
			body[k] = v
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var resp queryResponse
		if err := c.doWithRetry(ctx, http.MethodPost, path, body, &resp); err != nil {
			return nil, fmt.Errorf("querying database %s: %w", databaseID, err)
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

// FetchReadingList returns every article in the reading list database.
func (c *Client) FetchReadingList(ctx context.Context, databaseID string) ([]readinglist.Fetched, error) {
	c.logger.InfoContext(ctx, "Getting articles from Notion", "database_id", databaseID)

	pages, err := c.queryAll(ctx, databaseID, nil)
	if err != nil {
		return nil, err
	}

	articles := make([]readinglist.Fetched, 0, len(pages))
	for _, p := range pages {
		if p.ID == "" {
			c.logger.WarnContext(ctx, "Skipping page without an id", "url", p.URL)
			continue
		}

		read, ok := p.Properties[c.readProperty]
		if !ok || read.Checkbox == nil {
			return nil, fmt.Errorf("page %s has no checkbox property %q", p.ID, c.readProperty)
		}

		url := p.URL
		if c.urlProperty != "" {
			if prop, ok := p.Properties[c.urlProperty]; ok && prop.URL != nil && *prop.URL != "" {
				url = *prop.URL
			}
		}

		articles = append(articles, readinglist.Fetched{
			ID:   p.ID,
			URL:  url,
			Read: *read.Checkbox,
		})
	}

	c.logger.InfoContext(ctx, "Fetched reading list", "articles", len(articles))
	return articles, nil
}

// FetchTasks returns tasks with a stand-up status that were edited on or
// after day, oldest edit first.
func (c *Client) FetchTasks(ctx context.Context, databaseID string, day time.Time) ([]standup.Task, error) {
	statusFilters := make([]map[string]any, 0, len(standup.Statuses))
	for _, st := range standup.Statuses {
		statusFilters = append(statusFilters, map[string]any{
			"property": taskStatusProperty,
			"status":   map[string]any{"equals": string(st)},
		})
	}

	query := map[string]any{
		"filter": map[string]any{
			"and": []any{
				map[string]any{"or": statusFilters},
				map[string]any{
					"property":         lastEditedProperty,
					"last_edited_time": map[string]any{"on_or_after": day.Format("2006-01-02")},
				},
			},
		},
		"sorts": []map[string]any{
			{"property": lastEditedProperty, "direction": "ascending"},
		},
	}

	pages, err := c.queryAll(ctx, databaseID, query)
	if err != nil {
		return nil, err
	}

	tasks := make([]standup.Task, 0, len(pages))
	for _, p := range pages {
		name := plainText(p.Properties[taskNameProperty].Title)
		if name == "" {
			c.logger.WarnContext(ctx, "Skipping task without a name", "page_id", p.ID)
			continue
		}

		var status standup.Status
		if st := p.Properties[taskStatusProperty].Status; st != nil {
			status = standup.Status(st.Name)
		}
		tasks = append(tasks, standup.Task{Name: name, Status: status})
	}

	c.logger.InfoContext(ctx, "Fetched tasks", "tasks", len(tasks), "since", day.Format("2006-01-02"))
	return tasks, nil
}

// NewTask describes a task to create.
type NewTask struct {
	Title   string
	Status  standup.Status
	Project string
}

// AddTask creates a task page and returns its id.
func (c *Client) AddTask(ctx context.Context, databaseID string, task NewTask) (string, error) {
	if strings.TrimSpace(task.Title) == "" {
		return "", fmt.Errorf("task title is empty")
	}

	props := map[string]property{
		taskNameProperty: {
			Title: []richText{{Text: &textContent{Content: task.Title}}},
		},
		taskStatusProperty: {
			Status: &option{Name: string(task.Status)},
		},
	}
	if task.Project != "" {
		props[taskProjectProperty] = property{Select: &option{Name: task.Project}}
	}

	body := map[string]any{
		"parent":     map[string]string{"database_id": databaseID},
		"properties": props,
	}

	var created page
	if err := c.doWithRetry(ctx, http.MethodPost, "/pages", body, &created); err != nil {
		return "", fmt.Errorf("creating task: %w", err)
	}

	c.logger.InfoContext(ctx, "Task added", "page_id", created.ID, "status", task.Status)
	return created.ID, nil
}

func plainText(parts []richText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return strings.TrimSpace(b.String())
}
