// Package main provides the timeline operator CLI. It drives the same engine
// and store as the API server directly against the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/geocode"
	"github.com/pkordes/tripline/internal/repo"
	"github.com/pkordes/tripline/internal/service"
)

// Exit codes.
const (
	exitUserError = 1
	exitSysError  = 2
)

// Config keys. Each is also read from the upper-cased environment variable
// of the same name, e.g. DATABASE_URL.
const (
	cfgKeyDatabaseURL = "database_url"
	cfgKeyGeocoderURL = "geocoder_url"
	cfgKeyUserAgent   = "geocoder_user_agent"
)

var (
	// flagConfig is set by the --config flag.
	flagConfig string
	flagJSON   bool

	cfg = viper.New()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Inspect and edit trip timelines",
	Long: `timeline reads a trip's chapters from the database, applies edits with the
same rules as the API, and optionally saves the result in one transaction.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection string (env DATABASE_URL)")
	rootCmd.PersistentFlags().String("geocoder-url", "", "Nominatim-compatible search API (env GEOCODER_URL)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
}

// loadConfig binds flags, environment and the optional config file into cfg.
// Precedence is flag > environment > config file > default.
func loadConfig(cmd *cobra.Command) error {
	cfg.SetDefault(cfgKeyUserAgent, "tripline-cli/1.0")
	cfg.AutomaticEnv()
	_ = cfg.BindPFlag(cfgKeyDatabaseURL, cmd.Flags().Lookup("database-url"))
	_ = cfg.BindPFlag(cfgKeyGeocoderURL, cmd.Flags().Lookup("geocoder-url"))

	if flagConfig != "" {
		cfg.SetConfigFile(flagConfig)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	if cfg.GetString(cfgKeyDatabaseURL) == "" {
		return errors.New("database url not set: use --database-url or DATABASE_URL")
	}
	return nil
}

// openTimelines connects to the database and builds the timeline service.
// The returned close func releases the pool.
func openTimelines(ctx context.Context) (*service.TimelineService, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.GetString(cfgKeyDatabaseURL))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	var g geocode.Geocoder
	if url := cfg.GetString(cfgKeyGeocoderURL); url != "" {
		g = geocode.Cached(geocode.NewNominatim(url, cfg.GetString(cfgKeyUserAgent), &http.Client{Timeout: 10 * time.Second}))
	}
	svc := service.NewTimelineService(repo.NewTimelineStore(pool, g), nil)
	return svc, pool.Close, nil
}

// userMessage returns the text shown for err: the user-facing explanation
// for commit failures, the error itself otherwise.
func userMessage(err error) string {
	var ce *domain.CommitError
	if errors.As(err, &ce) {
		return ce.UserMessage() + " (" + strings.TrimSpace(ce.Error()) + ")"
	}
	return err.Error()
}

// exitCode maps err to the process exit status.
func exitCode(err error) int {
	var ce *domain.CommitError
	switch {
	case errors.As(err, &ce) && ce.Kind == domain.FailureTransaction:
		return exitSysError
	case errors.As(err, &ce),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound):
		return exitUserError
	default:
		return exitSysError
	}
}
