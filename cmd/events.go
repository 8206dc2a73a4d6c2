/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/jjudge-oj/accountsvc/internal/mq"
	"github.com/jjudge-oj/accountsvc/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with published account events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log account events from the configured broker until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, err := mq.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("EVENTS_BACKEND is not configured")
		}
		events, err := mq.NewAccountEvents(backend, cfg.Events.Channel)
		if err != nil {
			_ = backend.Close()
			return err
		}
		defer events.Close()

		log.Info("tailing account events", zap.String("channel", cfg.Events.Channel))
		err = events.Consume(ctx, func(_ context.Context, event types.AccountEvent) error {
			log.Info("account event",
				zap.String("type", string(event.Type)),
				zap.String("account_id", event.AccountID.String()),
				zap.String("email", event.Email),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
