package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/utils"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run AutoMigrate against DB_* (use with SKIP_MIGRATIONS=true on the server)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config.ConnectDatabaseWithRetry()
			if err := models.MigrateTable(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// operatorContext acts as an administrator so history rows name the CLI.
func operatorContext() context.Context {
	ctx := utils.SetIsAdminInContext(context.Background(), true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	return utils.SetProfileNameInContext(ctx, "validctl")
}
