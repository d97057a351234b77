// Command rentctl runs maintenance tasks against the rental database:
// migrations, the daily batch jobs and first-admin bootstrap.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"rental-backend/internal/admin"
	"rental-backend/internal/config"
	"rental-backend/internal/database"
	"rental-backend/internal/jobs"
	"rental-backend/internal/lease"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "rentctl",
		Short:         "Rental back office maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		migrateCmd(),
		jobCmd("update-lease-statuses", "Move leases between active, expiring_soon and expired", (*jobs.Runner).UpdateLeaseStatuses),
		jobCmd("send-payment-reminders", "Notify tenants of upcoming and overdue rent", (*jobs.Runner).SendReminders),
		jobCmd("process-renewals", "Renew auto-renewing leases that have ended", (*jobs.Runner).ProcessRenewals),
		createAdminCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// open loads the configuration and connects. database.Init migrates the
// schema before returning.
func open() *config.Config {
	cfg := config.Load()
	database.Init(cfg)
	return cfg
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			open()
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func jobCmd(use, short string, run func(*jobs.Runner, context.Context) (jobs.Result, error)) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := open()
			runner := jobs.NewRunner(database.DB, lease.NewService(database.DB, cfg), cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := run(runner, ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			fmt.Println(res)
			if res.Failed > 0 {
				return fmt.Errorf("%s: %d item(s) failed", use, res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "abort the run after this long")
	return cmd
}

func createAdminCmd() *cobra.Command {
	var username, name, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the first administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if password == "" {
				return errors.New("--password or ADMIN_PASSWORD is required")
			}
			open()
			u, err := admin.EnsureAdmin(database.DB, username, name, password)
			if errors.Is(err, admin.ErrUserExists) {
				fmt.Printf("user %q already exists, nothing to do\n", username)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("admin %q created (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "login name")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	return cmd
}
