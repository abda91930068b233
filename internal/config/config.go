// Package config provides configuration management for the dayflow CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given. A missing file at this
// path is not an error.
const DefaultPath = "dayflow.yaml"

var (
	// ErrNotConfigured is returned when a command needs a setting that is unset.
	ErrNotConfigured = errors.New("not configured")
	// ErrInvalid is returned when the configuration cannot be read or fails validation.
	ErrInvalid = errors.New("invalid configuration")
)

// Config represents the main application configuration.
type Config struct {
	Notion      NotionConfig      `yaml:"notion"`
	ReadingList ReadingListConfig `yaml:"reading_list"`
	Slack       SlackConfig       `yaml:"slack"`
	Sheets      SheetsConfig      `yaml:"sheets"`
	Backup      BackupConfig      `yaml:"backup"`
	HTTP        HTTPConfig        `yaml:"http"`
	LogLevel    string            `yaml:"log_level"`
}

// NotionConfig holds the Notion credentials and database ids.
type NotionConfig struct {
	APIKey                string `yaml:"api_key"`
	ReadingListDatabaseID string `yaml:"reading_list_database_id"`
	TaskDatabaseID        string `yaml:"task_database_id"`
	ReadProperty          string `yaml:"read_property"` // checkbox column on the reading list
	URLProperty           string `yaml:"url_property"`  // optional url column; page url otherwise
	Version               string `yaml:"version"`       // Notion-Version header
}

// ReadingListConfig configures the local prioritization store.
type ReadingListConfig struct {
	Path               string `yaml:"path"`
	MergePolicy        string `yaml:"merge_policy"` // "promote" or "overwrite"
	WeightFloor        int    `yaml:"weight_floor"`
	LockTimeoutSeconds int    `yaml:"lock_timeout_seconds"`
}

// SlackConfig configures stand-up delivery.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// SheetsConfig configures the timelog spreadsheet.
type SheetsConfig struct {
	SpreadsheetID      string `yaml:"spreadsheet_id"`
	ServiceAccountFile string `yaml:"service_account_file"`
}

// BackupConfig configures the optional S3 copy of the reading list.
type BackupConfig struct {
	S3Bucket     string `yaml:"s3_bucket"`
	S3Region     string `yaml:"s3_region"`
	S3Prefix     string `yaml:"s3_prefix"`
	S3Profile    string `yaml:"s3_profile"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// HTTPConfig configures outbound API calls.
type HTTPConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
}

// Load reads and parses a configuration file from the specified path, then
// applies defaults and environment overrides. When explicit is false a
// missing file is tolerated so env-only setups keep working.
func Load(path string, explicit bool) (*Config, error) {
	var config Config

	// #nosec G304 -- path is provided by user as configuration file path
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalid, path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		slog.Debug("No config file found, using defaults and environment", "path", path)
	default:
		return nil, fmt.Errorf("%w: reading %s: %w", ErrInvalid, path, err)
	}

	config.applyDefaults()
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Notion.ReadProperty == "" {
		c.Notion.ReadProperty = "Did I read it"
	}
	if c.Notion.Version == "" {
		c.Notion.Version = "2022-06-28"
	}
	if c.ReadingList.MergePolicy == "" {
		c.ReadingList.MergePolicy = "promote"
	}
	if c.ReadingList.LockTimeoutSeconds == 0 {
		c.ReadingList.LockTimeoutSeconds = 10
	}
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = 30
	}
	if c.HTTP.MaxRetries == 0 {
		c.HTTP.MaxRetries = 3
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// applyEnv overrides file values with environment variables (env vars take
// precedence).
func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&c.Notion.APIKey, "NOTION_API_KEY")
	setString(&c.Notion.ReadingListDatabaseID, "NOTION_READING_LIST_DATABASE_ID")
	setString(&c.Notion.TaskDatabaseID, "NOTION_TASK_DATABASE_ID")
	setString(&c.ReadingList.Path, "READING_LIST_CSV")
	setString(&c.ReadingList.MergePolicy, "READING_LIST_MERGE_POLICY")
	setString(&c.Slack.Token, "SLACK_USER_TOKEN")
	setString(&c.Slack.Channel, "SLACK_CHANNEL")
	setString(&c.Sheets.SpreadsheetID, "SHEET_ID")
	setString(&c.Sheets.ServiceAccountFile, "SERVICE_ACCOUNT_FILE")
	setString(&c.Backup.S3Bucket, "S3_BUCKET")
	setString(&c.Backup.S3Region, "S3_REGION")
	setString(&c.Backup.S3Prefix, "S3_PREFIX")
	setString(&c.Backup.S3Profile, "S3_PROFILE")
	setString(&c.LogLevel, "DAYFLOW_LOG_LEVEL")

	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Backup.UsePathStyle = b
		}
	}
}

// Validate checks if the configuration is valid. Missing credentials are
// not checked here; see the Require* methods.
func (c *Config) Validate() error {
	switch strings.ToLower(c.ReadingList.MergePolicy) {
	case "promote", "promote_only", "overwrite":
	default:
		return fmt.Errorf("reading_list.merge_policy must be promote or overwrite, got %q", c.ReadingList.MergePolicy)
	}
	if c.ReadingList.WeightFloor < 0 {
		return fmt.Errorf("reading_list.weight_floor must not be negative, got %d", c.ReadingList.WeightFloor)
	}
	if c.ReadingList.LockTimeoutSeconds < 1 || c.ReadingList.LockTimeoutSeconds > 600 {
		return fmt.Errorf("reading_list.lock_timeout_seconds must be between 1 and 600, got %d", c.ReadingList.LockTimeoutSeconds)
	}
	if c.HTTP.TimeoutSeconds < 1 || c.HTTP.TimeoutSeconds > 600 {
		return fmt.Errorf("http.timeout_seconds must be between 1 and 600, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.HTTP.MaxRetries < 1 || c.HTTP.MaxRetries > 10 {
		return fmt.Errorf("http.max_retries must be between 1 and 10, got %d", c.HTTP.MaxRetries)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// RequireReadingList checks the settings the local store needs.
func (c *Config) RequireReadingList() error {
	return require(map[string]string{
		"reading_list.path (READING_LIST_CSV)": c.ReadingList.Path,
	})
}

// RequireNotionReadingList checks the settings needed to fetch the reading list.
func (c *Config) RequireNotionReadingList() error {
	return require(map[string]string{
		"notion.api_key (NOTION_API_KEY)":                                   c.Notion.APIKey,
		"notion.reading_list_database_id (NOTION_READING_LIST_DATABASE_ID)": c.Notion.ReadingListDatabaseID,
	})
}

// RequireNotionTasks checks the settings needed to read or add tasks.
func (c *Config) RequireNotionTasks() error {
	return require(map[string]string{
		"notion.api_key (NOTION_API_KEY)":                   c.Notion.APIKey,
		"notion.task_database_id (NOTION_TASK_DATABASE_ID)": c.Notion.TaskDatabaseID,
	})
}

// RequireSlack checks the settings needed to post to Slack.
func (c *Config) RequireSlack() error {
	return require(map[string]string{
		"slack.token (SLACK_USER_TOKEN)": c.Slack.Token,
		"slack.channel (SLACK_CHANNEL)":  c.Slack.Channel,
	})
}

// RequireSheets checks the settings needed to update the timelog.
func (c *Config) RequireSheets() error {
	return require(map[string]string{
		"sheets.spreadsheet_id (SHEET_ID)":                   c.Sheets.SpreadsheetID,
		"sheets.service_account_file (SERVICE_ACCOUNT_FILE)": c.Sheets.ServiceAccountFile,
	})
}

// HTTPTimeout returns the outbound request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// LockTimeout returns how long to wait for the reading list lock.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.ReadingList.LockTimeoutSeconds) * time.Second
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
}

func require(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("%w: %s", ErrNotConfigured, strings.Join(missing, ", "))
}
