package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trace-callgraph/internal/service"
)

var (
	// Import command flags
	traceID   string
	traceName string
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <dump.json>",
	Short: "Import a JSON interval dump into the SQL store",
	Long: `Import a JSON interval dump into the configured SQL store (store.type sqlite,
mysql or postgres). The trace can then be built by id. Importing under an
existing id replaces the previous copy.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&traceID, "id", "", "Trace id (random UUID if empty)")
	importCmd.Flags().StringVar(&traceName, "name", "", "Display name (defaults to the file name)")
}

func runImport(cmd *cobra.Command, args []string) error {
	svc, err := service.New(cfg, GetLogger())
	if err != nil {
		return err
	}

	id, err := svc.Import(cmd.Context(), args[0], traceID, traceName)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
