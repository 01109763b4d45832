package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/ridebook/internal/storage"
)

var schemaCmd = &cobra.Command{
	Use:     "schema",
	Short:   "Create or check the database schema",
	GroupID: groupSetup,
}

var schemaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and apply all schema versions",
	Long: `Create the database file if needed and apply every schema version that
has not been applied yet. Running it again is a no-op.

Examples:
  ridebook schema init
  ridebook --db /tmp/rides.db schema init`,
	Args: cobra.NoArgs,
	RunE: runSchemaInit,
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify tables, indexes and foreign key enforcement",
	Args:  cobra.NoArgs,
	RunE:  runSchemaCheck,
}

func init() {
	schemaCmd.AddCommand(schemaInitCmd)
	schemaCmd.AddCommand(schemaCheckCmd)
	rootCmd.AddCommand(schemaCmd)
}

func runSchemaInit(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	version, err := a.store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%sSchema ready%s\n", colorGreen, colorReset)
	fmt.Printf("  Database: %s\n", a.store.Path())
	fmt.Printf("  Version:  %d\n", version)
	return nil
}

func runSchemaCheck(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("%sSchema check%s\n", colorBold, colorReset)
	fmt.Printf("  Database: %s\n", a.store.Path())

	version, err := a.store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  Version:  %d (latest %d)\n", version, storage.SchemaVersion)

	if err := a.store.ValidateSchema(ctx); err != nil {
		fmt.Printf("  Tables:   %sFAIL%s %v\n", colorRed, colorReset, err)
		return err
	}
	fmt.Printf("  Tables:   %sOK%s (%d tables, %d indexes)\n",
		colorGreen, colorReset, len(storage.AllTables), len(storage.AllIndexes))

	fk, err := a.store.ForeignKeysEnabled(ctx)
	if err != nil {
		return err
	}
	if !fk {
		fmt.Printf("  FKs:      %sOFF%s\n", colorRed, colorReset)
		return fmt.Errorf("foreign key enforcement is off")
	}
	fmt.Printf("  FKs:      %sON%s\n", colorGreen, colorReset)
	return nil
}
