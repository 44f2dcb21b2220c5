package cmd

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	migrateUpTo   int64
	migrateDownTo int64

	MigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply settings database migrations",
		Long: `migrate brings the settings database up to date. Every command migrates on
startup; this one exists to pin a version with --up-to or roll back with
--down-to (the GOOSE_UP_TO / GOOSE_DOWN_TO environment variables work too).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("down-to") {
				os.Setenv("GOOSE_DOWN_TO", strconv.FormatInt(migrateDownTo, 10))
			} else if cmd.Flags().Changed("up-to") {
				os.Setenv("GOOSE_UP_TO", strconv.FormatInt(migrateUpTo, 10))
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			slog.Info("Database migrations completed successfully", "dialect", a.dbc.Dialect)
			cmd.Println("Database migrated.")
			return nil
		},
	}
)

func init() {
	RootCmd.AddCommand(MigrateCmd)
	MigrateCmd.Flags().Int64Var(&migrateUpTo, "up-to", 0, "migrate up to this version")
	MigrateCmd.Flags().Int64Var(&migrateDownTo, "down-to", 0, "roll back down to this version")
}
