package cli

import (
	"fmt"

	"goodhabits/config"
	"goodhabits/db"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		conn, err := openDatabase()
		if err != nil {
			return err
		}
		defer conn.Close()

		version, dirty, err := db.SchemaVersion(conn)
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		if dirty {
			color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "Schema version %d is marked dirty\n", version)
			return nil
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ %s is at schema version %d\n", config.AppConfig.DatabasePath, version)
		return nil
	},
}
