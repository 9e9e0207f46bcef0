package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/models"
)

var errAdminPasswordMissing = errors.New("VALID_ADMIN_PASSWORD is not set")

func newSeedAdminCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an administrator profile or promote an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := strings.TrimSpace(os.Getenv("VALID_ADMIN_PASSWORD"))
			if password == "" {
				return errAdminPasswordMissing
			}
			config.ConnectDatabaseWithRetry()

			profile, err := models.CreateAdministrator(operatorContext(), email, password, name)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "administrator %s ready (id=%s)\n", profile.Email, profile.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&email, "email", "", "Administrator email (required)")
	f.StringVar(&name, "name", "VALID Administrator", "Display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
