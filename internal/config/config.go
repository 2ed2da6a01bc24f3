// Package config loads the job configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"teater-impact-report/internal/archive"
	"teater-impact-report/internal/dispatch"
	"teater-impact-report/internal/extract"
	"teater-impact-report/internal/history"
	"teater-impact-report/internal/metrics"
	"teater-impact-report/internal/notify"
	"teater-impact-report/internal/source"
)

// Database is the read-only source of the usage data.
type Database struct {
	Driver         string        `envconfig:"DB_DRIVER" default:"mysql"`
	User           string        `envconfig:"DB_USER"`
	Password       string        `envconfig:"DB_PASS"`
	Host           string        `envconfig:"DB_HOST"`
	Port           int           `envconfig:"DB_PORT"`
	Name           string        `envconfig:"DB_NAME"`
	DSN            string        `envconfig:"DB_DSN"`
	ConnectTimeout time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"20s"`
	MaxOpenConns   int           `envconfig:"DB_MAX_OPEN_CONNS" default:"4"`
}

// Report selects the units and the window.
type Report struct {
	Units      []int64 `envconfig:"UNIT_IDS" default:"9,21,27,28,29,32,36,40,41,64,65,66,67,68,69,70,71,72,73,74,75,76,77"`
	UnitModel  string  `envconfig:"UNIT_MODEL" default:"student-college"`
	Timezone   string  `envconfig:"REPORT_TIMEZONE" default:"Local"`
	CutoffHour int     `envconfig:"REPORT_CUTOFF_HOUR" default:"8"`
	Parallel   int     `envconfig:"EXTRACT_PARALLEL" default:"1"`
}

type Email struct {
	User      string   `envconfig:"EMAIL_USER"`
	Password  string   `envconfig:"EMAIL_PASS"`
	From      string   `envconfig:"EMAIL_FROM"`
	To        []string `envconfig:"EMAIL_TO"`
	Cc        []string `envconfig:"EMAIL_CC"`
	Host      string   `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	Port      int      `envconfig:"SMTP_PORT" default:"465"`
	SSL       bool     `envconfig:"SMTP_SSL" default:"true"`
	Greeting  string   `envconfig:"EMAIL_GREETING" default:"Hi,"`
	Signature []string `envconfig:"EMAIL_SIGNATURE"`
}

type Slack struct {
	WebhookURL string `envconfig:"SLACK_WEBHOOK_URL"`
	TopUnits   int    `envconfig:"SLACK_TOP_UNITS" default:"3"`
}

type Archive struct {
	Driver          string `envconfig:"ARCHIVE_DRIVER" default:"none"`
	Dir             string `envconfig:"ARCHIVE_DIR" default:"./archive"`
	Bucket          string `envconfig:"ARCHIVE_S3_BUCKET"`
	Region          string `envconfig:"ARCHIVE_S3_REGION"`
	Endpoint        string `envconfig:"ARCHIVE_S3_ENDPOINT"`
	PathStyle       bool   `envconfig:"ARCHIVE_S3_PATH_STYLE"`
	AccessKeyID     string `envconfig:"ARCHIVE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"ARCHIVE_S3_SECRET_ACCESS_KEY"`
}

type History struct {
	URL    string `envconfig:"TEATER_HISTORY_DB_URL"`
	Schema string `envconfig:"TEATER_HISTORY_SCHEMA" default:"teater_report"`
}

type Metrics struct {
	PushURL string `envconfig:"PUSHGATEWAY_URL"`
	Job     string `envconfig:"METRICS_JOB" default:"teater_report"`
}

type Log struct {
	Format string `envconfig:"LOG_FORMAT" default:"text"`
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
}

// Config is the whole job configuration.
type Config struct {
	Database Database
	Report   Report
	Email    Email
	Slack    Slack
	Archive  Archive
	History  History
	Metrics  Metrics
	Log      Log
}

// Load reads every section from the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	sections := []any{
		&cfg.Database,
		&cfg.Report,
		&cfg.Email,
		&cfg.Slack,
		&cfg.Archive,
		&cfg.History,
		&cfg.Metrics,
		&cfg.Log,
	}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, err
		}
	}
	if cfg.History.URL == "" {
		cfg.History.URL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := source.DialectFor(c.Database.Driver); err != nil {
		errs = append(errs, err)
	}
	if len(c.Report.Units) == 0 {
		errs = append(errs, errors.New("UNIT_IDS must list at least one unit"))
	}
	if _, err := extract.ModelByName(c.Report.UnitModel); err != nil {
		errs = append(errs, err)
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("REPORT_TIMEZONE: %w", err))
	}
	if c.Report.CutoffHour < 0 || c.Report.CutoffHour > 23 {
		errs = append(errs, fmt.Errorf("REPORT_CUTOFF_HOUR must be 0-23, got %d", c.Report.CutoffHour))
	}
	if c.Report.Parallel < 1 {
		errs = append(errs, fmt.Errorf("EXTRACT_PARALLEL must be positive, got %d", c.Report.Parallel))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}
	switch archive.Driver(strings.ToLower(c.Archive.Driver)) {
	case archive.DriverNone, archive.DriverFilesystem:
	case archive.DriverS3:
		if c.Archive.Bucket == "" {
			errs = append(errs, errors.New("ARCHIVE_S3_BUCKET is required for the s3 archive"))
		}
	default:
		errs = append(errs, fmt.Errorf("ARCHIVE_DRIVER must be none, fs or s3, got %q", c.Archive.Driver))
	}
	return errors.Join(errs...)
}

// ValidateDelivery checks what a non-dry run needs to send mail.
func (c *Config) ValidateDelivery() error {
	if c.Email.User == "" && c.Email.From == "" {
		return errors.New("EMAIL_USER or EMAIL_FROM is required to send the report")
	}
	if len(c.Email.To) == 0 {
		return errors.New("EMAIL_TO is required to send the report")
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) Model() extract.Model {
	model, err := extract.ModelByName(c.Report.UnitModel)
	if err != nil {
		return extract.StudentCollege
	}
	return model
}

func (c *Config) Source() source.Config {
	return source.Config{
		Driver:         c.Database.Driver,
		Host:           c.Database.Host,
		Port:           c.Database.Port,
		User:           c.Database.User,
		Password:       c.Database.Password,
		Name:           c.Database.Name,
		DSN:            c.Database.DSN,
		Location:       c.Location(),
		ConnectTimeout: c.Database.ConnectTimeout,
		MaxOpenConns:   c.Database.MaxOpenConns,
	}
}

func (c *Config) Dispatch() dispatch.Config {
	return dispatch.Config{
		Host:     c.Email.Host,
		Port:     c.Email.Port,
		Username: c.Email.User,
		Password: c.Email.Password,
		From:     c.Email.From,
		To:       c.Email.To,
		Cc:       c.Email.Cc,
		SSL:      c.Email.SSL,
	}
}

func (c *Config) Notify() notify.Config {
	return notify.Config{WebhookURL: c.Slack.WebhookURL, TopUnits: c.Slack.TopUnits}
}

func (c *Config) ArchiveStore() archive.Config {
	return archive.Config{
		Driver: archive.Driver(strings.ToLower(c.Archive.Driver)),
		Dir:    c.Archive.Dir,
		S3: archive.S3Config{
			Region:          c.Archive.Region,
			Bucket:          c.Archive.Bucket,
			Endpoint:        c.Archive.Endpoint,
			AccessKeyID:     c.Archive.AccessKeyID,
			SecretAccessKey: c.Archive.SecretAccessKey,
			PathStyle:       c.Archive.PathStyle,
		},
	}
}

func (c *Config) HistoryStore() history.Config {
	return history.Config{URL: c.History.URL, Schema: c.History.Schema}
}

func (c *Config) MetricsPush() metrics.Config {
	return metrics.Config{
		PushURL:  c.Metrics.PushURL,
		Job:      c.Metrics.Job,
		Grouping: map[string]string{"model": c.Model().Name},
	}
}
