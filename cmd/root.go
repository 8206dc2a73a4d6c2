/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jjudge-oj/accountsvc/config"
	"github.com/jjudge-oj/accountsvc/internal/db"
	"github.com/jjudge-oj/accountsvc/internal/logger"
	"github.com/jjudge-oj/accountsvc/internal/services"
	"github.com/jjudge-oj/accountsvc/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "accountsvc",
	Short: "User account management API",
	Long: `accountsvc serves the account API (registration, login, profile and
password recovery) and provides operational commands for its database.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadRuntime() (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// openAccountService connects to the database for one-off CLI commands.
// Events are not published from the CLI.
func openAccountService(ctx context.Context, cfg config.Config, log *zap.Logger) (*services.AccountService, *sql.DB, error) {
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	svc := services.NewAccountService(store.NewAccountRepository(conn), services.WithLogger(log))
	return svc, conn, nil
}
