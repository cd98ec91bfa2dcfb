package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"notioncal/internal/config"
	"notioncal/internal/google"
	"notioncal/internal/icloud"
	"notioncal/internal/notion"
	"notioncal/internal/syncer"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "notioncal",
		Usage: "Two-way sync between a Notion database and a calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", EnvVars: []string{"NOTIONCAL_CONFIG"}, Usage: "Optional YAML config file; environment variables override it."},
		},
		Commands: []*cli.Command{
			authCommand(),
			calendarsCommand(),
			syncCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Log)
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.Calendar.Google.ClientID, cfg.Calendar.Google.ClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)

			tokenFile, err := google.SaveToken(accountName, token)
			if err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "List the Google calendars of the authenticated account, to pick a CALENDAR_ID.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Log)

			client, err := google.NewClient(c.Context, logger, googleCredentials(cfg), cfg.Calendar.ID, cfg.Sync.LinkKey)
			if err != nil {
				return fmt.Errorf("failed to create google client: %w", err)
			}
			calendars, err := client.DiscoverGoogleCalendars(c.Context)
			if err != nil {
				return err
			}
			for _, cal := range calendars {
				marker := ""
				if cal.Primary {
					marker = " (primary)"
				}
				fmt.Printf("%s\t%s%s\n", cal.ID, cal.Summary, marker)
			}
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run the two-way synchronization.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run the sync cycle once and exit."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Run sync every N seconds. Overrides --once."},
			&cli.StringFlag{Name: "schedule", Usage: "Run sync on a cron schedule (e.g. '*/15 * * * *'). Overrides --watch."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return reportSetupFailure(err)
			}
			logger := setupLogger(cfg.Log)

			if err := cfg.Validate(); err != nil {
				logger.Error("Invalid configuration", "error", err)
				return reportSetupFailure(err)
			}
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := newSyncer(ctx, logger, cfg, c.Bool("dry-run"))
			if err != nil {
				logger.Error("Failed to set up clients", "error", err)
				return reportSetupFailure(err)
			}

			schedule := cfg.Sync.Schedule
			if c.IsSet("schedule") {
				schedule = c.String("schedule")
			}

			switch {
			case schedule != "":
				return runScheduled(ctx, logger, s, schedule)
			case c.IsSet("watch"):
				interval := time.Duration(c.Int("watch")) * time.Second
				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					s.Sync(ctx)
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
					}
				}
			default: // --once is the default behavior if --watch is not set
				logger.Info("Running a single sync cycle.")
				res := s.Sync(ctx)
				if err := writeResult(os.Stdout, res); err != nil {
					return err
				}
				if !res.Success {
					return cli.Exit("", 1)
				}
				return nil
			}
		},
	}
}

// newSyncer builds both backend clients from cfg.
func newSyncer(ctx context.Context, logger *slog.Logger, cfg *config.Config, dryRun bool) (*syncer.Syncer, error) {
	records, err := notion.NewClient(ctx, logger, cfg.Notion.Token, notion.Options{
		DatabaseID:    cfg.Notion.DatabaseID,
		TitleProperty: cfg.Notion.TitleProperty,
		DateProperty:  cfg.Notion.DateProperty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notion client: %w", err)
	}

	var cal syncer.Calendar
	switch cfg.Calendar.Backend {
	case config.BackendCalDAV:
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		cal, err = icloud.NewClient(ctx, logger, icloud.Options{
			Endpoint:     cfg.Calendar.CalDAV.Endpoint,
			Username:     cfg.Calendar.CalDAV.Username,
			Password:     cfg.Calendar.CalDAV.Password,
			CalendarName: cfg.Calendar.CalDAV.CalendarName,
			LinkKey:      cfg.Sync.LinkKey,
			Location:     loc,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
	default:
		cal, err = google.NewClient(ctx, logger, googleCredentials(cfg), cfg.Calendar.ID, cfg.Sync.LinkKey)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Google Calendar: %w", err)
		}
	}
	logger.Info("Initialized clients.", "calendarBackend", cfg.Calendar.Backend)

	return syncer.NewSyncer(logger, records, cal, syncer.Options{
		DryRun:        dryRun,
		PageSize:      cfg.Sync.PageSize,
		TitleProperty: cfg.Notion.TitleProperty,
	}), nil
}

func googleCredentials(cfg *config.Config) google.Credentials {
	return google.Credentials{
		ServiceAccountJSON: cfg.Calendar.Google.ServiceAccountJSON,
		ClientID:           cfg.Calendar.Google.ClientID,
		ClientSecret:       cfg.Calendar.Google.ClientSecret,
		Account:            cfg.Calendar.Google.Account,
	}
}

// runScheduled runs a sync on every cron tick until ctx is cancelled. A tick
// that fires while the previous run is still going is skipped.
func runScheduled(ctx context.Context, logger *slog.Logger, s *syncer.Syncer, spec string) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger)))
	if _, err := sched.AddFunc(spec, func() { s.Sync(ctx) }); err != nil {
		return reportSetupFailure(fmt.Errorf("invalid schedule %q: %w", spec, err))
	}

	logger.Info("Starting scheduler.", "schedule", spec)
	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	logger.Info("Scheduler stopped.")
	return nil
}

// reportSetupFailure prints a failed result and exits non-zero.
func reportSetupFailure(err error) error {
	if werr := writeResult(os.Stdout, syncer.SetupFailure(err)); werr != nil {
		return werr
	}
	return cli.Exit("", 1)
}

func writeResult(w io.Writer, res *syncer.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel}))
}
