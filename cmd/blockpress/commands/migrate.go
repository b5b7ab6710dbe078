package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/blockpress/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long: `Apply pending schema migrations to the configured SQLite database.

serve applies migrations on startup unless database.skip_migrations is set;
run this command when it is.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbCfg := cfg.Database
	dbCfg.SkipMigrations = true
	st, err := store.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Database migrated (%s)\n", cfg.Database.Path)
	return nil
}
