// Package cli implements ledgerctl, the operator command line for the balance
// ledger.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tincleo/al-sub000/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate the team member balance ledger",
	Long: `ledgerctl applies balance transactions, clears balances, lists history
and reconciles the ledger directly against the database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "Path to a TOML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// env is what a command needs to talk to the ledger database.
type env struct {
	cfg  config.Config
	pool *pgxpool.Pool
	log  *slog.Logger
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot reach PostgreSQL: %w", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return &env{cfg: cfg, pool: pool, log: log}, nil
}

func (e *env) Close() { e.pool.Close() }

func memberFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("member")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--member is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--member: %w", err)
	}
	return id, nil
}
