/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/jjudge-oj/accountsvc/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var superuserFlags struct {
	email     string
	password  string
	firstName string
	lastName  string
}

// createSuperuserCmd provisions an administrative account.
var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an account with staff and superuser flags set",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		account, err := svc.CreateSuperuser(cmd.Context(), superuserFlags.email, superuserFlags.password, services.AccountFields{
			FirstName: superuserFlags.firstName,
			LastName:  superuserFlags.lastName,
		})
		if err != nil {
			var verr *services.ValidationError
			if errors.As(err, &verr) {
				for field, messages := range verr.Fields {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", field, messages)
				}
			}
			return err
		}

		log.Info("superuser created",
			zap.String("account_id", account.ID.String()),
			zap.String("email", account.Email),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created (%s)\n", account.Email, account.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createSuperuserCmd)

	flags := createSuperuserCmd.Flags()
	flags.StringVar(&superuserFlags.email, "email", "", "login email (required)")
	flags.StringVar(&superuserFlags.password, "password", "", "initial password (required)")
	flags.StringVar(&superuserFlags.firstName, "first-name", "", "first name")
	flags.StringVar(&superuserFlags.lastName, "last-name", "", "last name")
	_ = createSuperuserCmd.MarkFlagRequired("email")
	_ = createSuperuserCmd.MarkFlagRequired("password")
}
