/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jjudge-oj/accountsvc/internal/export"
	"github.com/jjudge-oj/accountsvc/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const maxListLimit = 100

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect and export stored accounts",
}

var listFlags struct {
	page  int
	limit int
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listFlags.page < 1 || listFlags.limit < 1 {
			return errors.New("page and limit must be positive")
		}
		limit := min(listFlags.limit, maxListLimit)

		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		svc, conn, err := openAccountService(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		accounts, total, err := svc.List(cmd.Context(), (listFlags.page-1)*limit, limit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tSTAFF\tACTIVE\tCREATED")
		for _, account := range accounts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\t%s\n",
				account.ID,
				account.Email,
				account.FullName(),
				account.IsStaff,
				account.IsActive,
				account.CreatedAt.Format(time.RFC3339),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d accounts\n", listFlags.page, len(accounts), total)
		return nil
	},
}

var exportFlags struct {
	key    string
	verify bool
}

var accountsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON Lines snapshot of all accounts to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		objects, err := storage.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer objects.Close()

		svc, conn, err := openAccountService(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		exporter := export.New(svc, objects)
		result, err := exporter.Export(cmd.Context(), exportFlags.key)
		if err != nil {
			return err
		}
		log.Info("accounts exported",
			zap.String("bucket", result.Bucket),
			zap.String("key", result.Key),
			zap.Int("count", result.Count),
			zap.Int64("bytes", result.Bytes),
		)

		if exportFlags.verify {
			views, err := exporter.Load(cmd.Context(), result.Key)
			if err != nil {
				return err
			}
			if len(views) != result.Count {
				return fmt.Errorf("export %s holds %d accounts, wrote %d", result.Key, len(views), result.Count)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "exported %d accounts to %s/%s\n", result.Count, result.Bucket, result.Key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsExportCmd)

	accountsListCmd.Flags().IntVar(&listFlags.page, "page", 1, "page number")
	accountsListCmd.Flags().IntVar(&listFlags.limit, "limit", 20, "accounts per page")

	accountsExportCmd.Flags().StringVar(&exportFlags.key, "key", "", "object key (default accounts/<timestamp>.jsonl)")
	accountsExportCmd.Flags().BoolVar(&exportFlags.verify, "verify", false, "read the export back and check the account count")
}
