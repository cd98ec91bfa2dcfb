package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Calendar backends.
const (
	BackendGoogle = "google"
	BackendCalDAV = "caldav"
)

// NotionConfig identifies the database and how its properties are named.
type NotionConfig struct {
	Token         string `yaml:"token"`
	DatabaseID    string `yaml:"database_id"`
	TitleProperty string `yaml:"title_property"`
	DateProperty  string `yaml:"date_property"`
}

// GoogleConfig holds Google Calendar credentials. ServiceAccountJSON wins
// over the OAuth client and saved token files.
type GoogleConfig struct {
	ServiceAccountJSON string `yaml:"credentials"`
	ClientID           string `yaml:"client_id"`
	ClientSecret       string `yaml:"client_secret"`
	Account            string `yaml:"account"`
}

// CalDAVConfig holds CalDAV (iCloud by default) credentials.
type CalDAVConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	CalendarName string `yaml:"calendar_name"`
}

// CalendarConfig selects and configures the calendar side.
type CalendarConfig struct {
	Backend string       `yaml:"backend"`
	ID      string       `yaml:"id"`
	Google  GoogleConfig `yaml:"google"`
	CalDAV  CalDAVConfig `yaml:"caldav"`
}

// SyncConfig tunes the reconciliation.
type SyncConfig struct {
	PageSize int    `yaml:"page_size"`
	LinkKey  string `yaml:"link_key"`
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the whole application configuration, built once at start.
type Config struct {
	Notion   NotionConfig   `yaml:"notion"`
	Calendar CalendarConfig `yaml:"calendar"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads the optional YAML file at path, overlays environment variables
// and fills defaults. It does not validate; call Validate before connecting.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Notion.Token, "NOTION_TOKEN")
	setString(&c.Notion.DatabaseID, "NOTION_DB_ID")
	setString(&c.Notion.TitleProperty, "NOTION_TITLE_PROPERTY")
	setString(&c.Notion.DateProperty, "NOTION_DATE_PROPERTY")

	setString(&c.Calendar.Backend, "CALENDAR_BACKEND")
	setString(&c.Calendar.ID, "CALENDAR_ID")
	setString(&c.Calendar.Google.ServiceAccountJSON, "GOOGLE_CREDENTIALS")
	setString(&c.Calendar.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Calendar.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Calendar.Google.Account, "GOOGLE_ACCOUNT")
	setString(&c.Calendar.CalDAV.Endpoint, "CALDAV_ENDPOINT")
	setString(&c.Calendar.CalDAV.Username, "ICLOUD_USERNAME")
	setString(&c.Calendar.CalDAV.Password, "ICLOUD_APP_SPECIFIC_PASSWORD")
	setString(&c.Calendar.CalDAV.CalendarName, "ICLOUD_CALENDAR_NAME")

	if v := os.Getenv("SYNC_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_PAGE_SIZE %q: %w", v, err)
		}
		c.Sync.PageSize = n
	}
	setString(&c.Sync.LinkKey, "SYNC_LINK_KEY")
	setString(&c.Sync.Schedule, "SYNC_SCHEDULE")
	setString(&c.Sync.Timezone, "PRIMARY_TIMEZONE")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.File, "LOG_FILE")
	return nil
}

func setString(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*dst = v
	}
}

// Normalize fills in missing values with defaults.
func (c *Config) Normalize() {
	if c.Notion.TitleProperty == "" {
		c.Notion.TitleProperty = "Name"
	}
	if c.Notion.DateProperty == "" {
		c.Notion.DateProperty = "Date"
	}
	c.Calendar.Backend = strings.ToLower(c.Calendar.Backend)
	if c.Calendar.Backend == "" {
		c.Calendar.Backend = BackendGoogle
	}
	if c.Calendar.ID == "" && c.Calendar.Backend == BackendGoogle {
		c.Calendar.ID = "primary"
	}
	if c.Sync.PageSize <= 0 {
		c.Sync.PageSize = 2500
	}
	if c.Sync.LinkKey == "" {
		c.Sync.LinkKey = "notion_id"
	}
	if c.Sync.Timezone == "" {
		c.Sync.Timezone = "UTC"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports every missing or invalid setting in one error.
func (c *Config) Validate() error {
	var missing []string
	if c.Notion.Token == "" {
		missing = append(missing, "NOTION_TOKEN")
	}
	if c.Notion.DatabaseID == "" {
		missing = append(missing, "NOTION_DB_ID")
	}

	switch c.Calendar.Backend {
	case BackendGoogle:
		if c.Calendar.ID == "" {
			missing = append(missing, "CALENDAR_ID")
		}
		// Without a service account the saved OAuth token files are used,
		// which are checked when the client is built.
	case BackendCalDAV:
		if c.Calendar.CalDAV.Username == "" {
			missing = append(missing, "ICLOUD_USERNAME")
		}
		if c.Calendar.CalDAV.Password == "" {
			missing = append(missing, "ICLOUD_APP_SPECIFIC_PASSWORD")
		}
		if c.Calendar.CalDAV.CalendarName == "" {
			missing = append(missing, "ICLOUD_CALENDAR_NAME")
		}
	default:
		return fmt.Errorf("unknown calendar backend %q, want %q or %q", c.Calendar.Backend, BackendGoogle, BackendCalDAV)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Sync.PageSize > 2500 {
		return errors.New("sync page size cannot exceed 2500")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the primary time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Sync.Timezone, err)
	}
	return loc, nil
}
