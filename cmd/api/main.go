package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/config"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/logger"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "crm",
		Short:         "Pipeline CRM API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "config", ".env", "path to a .env file")

	load := func() (*config.Config, *zap.Logger, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, nil, err
		}
		log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return nil, nil, err
		}
		return cfg, log, nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()
			return migrate(cmd.Context(), cfg, log)
		},
	})

	var (
		tokenEmail string
		tokenName  string
		tokenTTL   time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			if cfg.AuthSecret == "" {
				return fmt.Errorf("AUTH_SECRET is not set")
			}
			token, err := middleware.IssueToken([]byte(cfg.AuthSecret), args[0], tokenEmail, tokenName, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "name claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	root.AddCommand(tokenCmd)

	return root
}

func migrate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	store, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	m := database.NewMigrator(store, log)
	if err := m.Up(ctx); err != nil {
		return err
	}
	v, err := m.Version(ctx)
	if err != nil {
		return err
	}
	log.Info("database migrated", zap.Int("version", v))
	return nil
}
